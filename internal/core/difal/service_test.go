package difal

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"difal-service/internal/core/benefits"
	"difal-service/internal/core/rates"
	"difal-service/internal/domain"
)

func analyzeSample(t *testing.T, svc Service, cfg Config) *domain.Report {
	t.Helper()
	f, err := os.Open("testdata/efd_sample.txt")
	require.NoError(t, err)
	defer f.Close()

	report, err := svc.Analyze(context.Background(), f, cfg)
	require.NoError(t, err)
	return report
}

func TestAnalyze_Sample(t *testing.T) {
	svc := NewService(zap.NewNop(), rates.DefaultJurisdictions(), rates.DefaultCFOPTable())
	report := analyzeSample(t, svc, Config{OriginUF: "SP", UseParticipantUF: true})

	assert.NotEmpty(t, report.RunID)
	require.NotNil(t, report.Company)
	assert.Equal(t, "BA", report.Settings.DestinationUF)
	assert.Equal(t, domain.DoubleBase, report.Settings.Methodology)

	d := report.Diagnostics
	assert.Equal(t, 19, d.LinesRead)
	assert.Equal(t, 1, d.LinesIgnored)
	assert.Equal(t, 1, d.OrphanItems)
	assert.Equal(t, 1, d.CancelledSkipped)
	assert.Equal(t, 1, d.DiscardedByCFOP)
	assert.Equal(t, 1, d.CatalogNotFound)

	require.Len(t, report.Results, 3)
	p1, p2, p9 := report.Results[0], report.Results[1], report.Results[2]

	// base 690 at 7% origin, re-grossed at 20.5%
	assert.Equal(t, "SP", p1.OriginUF)
	assert.Equal(t, 690.0, p1.Base)
	assert.Equal(t, 117.17, p1.Difal)
	assert.Equal(t, 13.8, p1.FCP)

	// CST 20: 16 / 400 = 4% effective
	assert.Equal(t, 4.0, p2.OriginRate)
	assert.Equal(t, 93.4, p2.Difal)
	assert.Equal(t, 9.0, p2.FCP)

	assert.Equal(t, "BA", p9.OriginUF)
	assert.Zero(t, p9.Total)

	tot := report.Totals
	assert.Equal(t, 3, tot.Items)
	assert.Equal(t, 2, tot.ItemsWithDifal)
	assert.Zero(t, tot.ErroredItems)
	assert.Equal(t, 66.67, tot.PercentWithDifal)
	assert.Equal(t, 1240.0, tot.Base)
	assert.Equal(t, 210.57, tot.Difal)
	assert.Equal(t, 22.8, tot.FCP)
	assert.Equal(t, 233.37, tot.TotalToCollect)
}

func TestAnalyze_BenefitsFromStore(t *testing.T) {
	store := benefits.StaticStore{Config: domain.BenefitConfig{
		"P001": domain.Exemption{},
		"P01":  domain.Exemption{},
	}}
	svc := NewService(nil, nil, rates.CFOPTable{}, WithBenefitStore(store))
	report := analyzeSample(t, svc, Config{OriginUF: "SP", UseParticipantUF: true})

	require.Len(t, report.Results, 3)
	assert.Zero(t, report.Results[0].Total)
	require.NotNil(t, report.Results[0].Benefit)
	assert.True(t, report.Results[0].Benefit.Applied)
	require.Len(t, report.Diagnostics.BenefitWarnings, 1)
	assert.Contains(t, report.Diagnostics.BenefitWarnings[0], "P01")
}

func TestAnalyze_ConfigurationErrorAborts(t *testing.T) {
	svc := NewService(zap.NewNop(), nil, rates.CFOPTable{})
	_, err := svc.Analyze(context.Background(), strings.NewReader("|C100|x|\n"), Config{OriginUF: "SP"})

	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "destination_uf", cfgErr.Field)
}

func TestAnalyze_EmptyFileStillReports(t *testing.T) {
	svc := NewService(zap.NewNop(), nil, rates.CFOPTable{})
	report, err := svc.Analyze(context.Background(), strings.NewReader("lixo\n"), Config{OriginUF: "SP", DestinationUF: "BA"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Diagnostics.LinesIgnored)
	assert.Empty(t, report.Results)
	assert.Zero(t, report.Totals.Items)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(zap.NewNop(), nil, rates.CFOPTable{})
	_, err := svc.Analyze(ctx, strings.NewReader("|0000|x|\n"), Config{OriginUF: "SP", DestinationUF: "BA"})
	assert.ErrorIs(t, err, context.Canceled)
}
