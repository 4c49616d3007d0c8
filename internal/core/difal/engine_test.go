package difal

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"difal-service/internal/core/rates"
	"difal-service/internal/domain"
)

func newItem(code, cst string, gross, rate, icms float64) domain.LineItem {
	return domain.LineItem{
		ItemNumber:   "001",
		ItemCode:     code,
		Line:         10,
		CFOP:         "2556",
		CFOPCategory: domain.CFOPUseConsumption,
		GrossValue:   gross,
		ICMSRate:     rate,
		ICMSValue:    icms,
		TaxCode:      cst,
		TaxSituation: rates.Classify(cst),
		DifalBase:    gross,
	}
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, rates.DefaultJurisdictions())
	require.NoError(t, err)
	return e
}

// RN: single base, internal 18%, FCP 2%.
func singleBaseConfig() Config {
	return Config{OriginUF: "SP", DestinationUF: "RN"}
}

func TestResolveMethodology(t *testing.T) {
	j := rates.DefaultJurisdictions()

	m, err := ResolveMethodology(j, "SP")
	require.NoError(t, err)
	assert.Equal(t, domain.DoubleBase, m)

	m, err = ResolveMethodology(j, "DF")
	require.NoError(t, err)
	assert.Equal(t, domain.SingleBase, m)

	_, err = ResolveMethodology(j, "XX")
	var cfgErr *domain.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestSingleBaseFullyTaxed(t *testing.T) {
	e := mustEngine(t, singleBaseConfig())
	res := e.CalculateItem(newItem("A", "00", 1000, 12, 120))

	require.Empty(t, res.Error)
	assert.Equal(t, domain.SingleBase, res.Methodology)
	assert.Equal(t, 12.0, res.OriginRate)
	assert.Equal(t, 18.0, res.DestinationRate)
	assert.Equal(t, 60.0, res.Difal)
	assert.Equal(t, 20.0, res.FCP)
	assert.Equal(t, 80.0, res.Total)
	assert.Contains(t, res.Trail[len(res.Trail)-1], "80.00")
}

func TestSingleBaseReducedOriginRate(t *testing.T) {
	e := mustEngine(t, singleBaseConfig())
	res := e.CalculateItem(newItem("B", "20", 1000, 12, 40))

	require.Empty(t, res.Error)
	assert.Equal(t, 4.0, res.OriginRate)
	assert.Equal(t, 140.0, res.Difal)
}

func TestDoubleBaseEightSteps(t *testing.T) {
	// SP: double base, internal 18%, no FCP.
	e := mustEngine(t, Config{OriginUF: "RJ", DestinationUF: "SP"})
	res := e.CalculateItem(newItem("C", "00", 1000, 12, 120))

	require.Empty(t, res.Error)
	assert.Equal(t, domain.DoubleBase, res.Methodology)
	// 120 interstate, 880 / 0.82 = 1073.17, internal 193.17
	assert.Equal(t, 73.17, res.Difal)
	assert.Zero(t, res.FCP)

	steps := 0
	for _, line := range res.Trail {
		if len(line) > 5 && line[:5] == "Passo" {
			steps++
		}
	}
	assert.Equal(t, 8, steps)
}

func TestBaseReductionMatchesReducedDestinationRate(t *testing.T) {
	reduced := mustEngine(t, Config{
		OriginUF:      "SP",
		DestinationUF: "RN",
		Benefits:      domain.BenefitConfig{"D": domain.BaseReduction{TargetBurden: 9}},
	})
	substituted := mustEngine(t, Config{
		OriginUF:      "SP",
		DestinationUF: "RN",
		Benefits:      domain.BenefitConfig{"D": domain.DestinationRateReduction{NewRate: 9}},
	})

	item := newItem("D", "20", 1000, 12, 40)
	a := reduced.CalculateItem(item)
	b := substituted.CalculateItem(item)

	require.Empty(t, a.Error)
	require.NotNil(t, a.Benefit)
	assert.True(t, a.Benefit.Applied)
	assert.Equal(t, b.Difal, a.Difal)
	assert.Equal(t, 50.0, a.Difal)
}

func TestExemptionZeroesEverything(t *testing.T) {
	for _, dest := range []string{"RN", "SP", "BA", "DF"} {
		e := mustEngine(t, Config{
			OriginUF:      "PR",
			DestinationUF: dest,
			Benefits:      domain.BenefitConfig{"E": domain.Exemption{}},
		})
		res := e.CalculateItem(newItem("E", "00", 5000, 7, 350))
		assert.Zero(t, res.Difal, dest)
		assert.Zero(t, res.FCP, dest)
		assert.Zero(t, res.Total, dest)
		require.NotNil(t, res.Benefit)
		assert.True(t, res.Benefit.Applied)
	}
}

func TestOriginRateReduction(t *testing.T) {
	e := mustEngine(t, Config{
		OriginUF:      "SP",
		DestinationUF: "RN",
		Benefits:      domain.BenefitConfig{"O": domain.OriginRateReduction{NewRate: 4}},
	})
	res := e.CalculateItem(newItem("O", "00", 1000, 12, 120))
	assert.Equal(t, 4.0, res.OriginRate)
	assert.Equal(t, 140.0, res.Difal)
}

func TestInvalidBenefitParametersAreIgnored(t *testing.T) {
	cases := map[string]domain.Benefit{
		"zero burden":     domain.BaseReduction{TargetBurden: 0},
		"burden above":    domain.BaseReduction{TargetBurden: 25},
		"negative origin": domain.OriginRateReduction{NewRate: -1},
		"negative dest":   domain.DestinationRateReduction{NewRate: -3},
	}
	plain := mustEngine(t, singleBaseConfig()).CalculateItem(newItem("X", "00", 1000, 12, 120))

	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := singleBaseConfig()
			cfg.Benefits = domain.BenefitConfig{"X": b}
			res := mustEngine(t, cfg).CalculateItem(newItem("X", "00", 1000, 12, 120))
			require.Empty(t, res.Error)
			require.NotNil(t, res.Benefit)
			assert.False(t, res.Benefit.Applied)
			assert.NotEmpty(t, res.Benefit.Note)
			assert.Equal(t, plain.Difal, res.Difal)
		})
	}
}

func TestFCPOverride(t *testing.T) {
	override := 1.0
	cfg := singleBaseConfig()
	cfg.FCPOverride = &override
	cfg.Benefits = domain.BenefitConfig{"F": domain.DestinationRateReduction{NewRate: 12}}

	res := mustEngine(t, cfg).CalculateItem(newItem("F", "00", 1000, 12, 120))
	assert.Equal(t, 1.0, res.FCPRate)
	assert.Equal(t, 10.0, res.FCP)
	assert.Zero(t, res.Difal)
}

func TestDifalNeverNegative(t *testing.T) {
	e := mustEngine(t, singleBaseConfig())
	res := e.CalculateItem(newItem("N", "00", 1000, 25, 250))
	assert.Zero(t, res.Difal)

	e = mustEngine(t, Config{OriginUF: "RJ", DestinationUF: "SP"})
	res = e.CalculateItem(newItem("N", "00", 1000, 25, 250))
	assert.Zero(t, res.Difal)
}

func TestExemptCSTRetainedWithZeroOriginRate(t *testing.T) {
	e := mustEngine(t, singleBaseConfig())
	res := e.CalculateItem(newItem("Z", "40", 1000, 12, 0))
	require.Empty(t, res.Error)
	assert.Zero(t, res.OriginRate)
	assert.Equal(t, 180.0, res.Difal)
}

func TestIntrastateHasNoDifal(t *testing.T) {
	e := mustEngine(t, Config{OriginUF: "SP", DestinationUF: "RN", UseParticipantUF: true})
	item := newItem("I", "00", 1000, 18, 180)
	item.ParticipantUF = "RN"

	res := e.CalculateItem(item)
	assert.Equal(t, "RN", res.OriginUF)
	assert.Zero(t, res.Difal)
	assert.Zero(t, res.FCP)

	item.ParticipantUF = "ZZ"
	res = e.CalculateItem(item)
	assert.Equal(t, "SP", res.OriginUF)
}

func TestDeterministic(t *testing.T) {
	e := mustEngine(t, Config{
		OriginUF:      "SP",
		DestinationUF: "BA",
		Benefits:      domain.BenefitConfig{"R": domain.BaseReduction{TargetBurden: 12}},
	})
	item := newItem("R", "20", 1234.56, 12, 48.9)
	first := e.CalculateItem(item)
	second := e.CalculateItem(item)

	assert.Equal(t, math.Float64bits(first.Difal), math.Float64bits(second.Difal))
	assert.Equal(t, math.Float64bits(first.FCP), math.Float64bits(second.FCP))
	assert.Equal(t, first.Trail, second.Trail)
}

func TestItemErrorIsRecordedAndRunContinues(t *testing.T) {
	e := mustEngine(t, singleBaseConfig())
	bad := newItem("BAD", "00", 1000, 12, 120)
	bad.DifalBase = math.NaN()

	results, totals := e.Calculate([]domain.LineItem{bad, newItem("A", "00", 1000, 12, 120)})

	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].Error)
	assert.Zero(t, results[0].Difal)
	assert.Zero(t, results[0].Base)
	assert.Contains(t, results[0].Error, "BAD")
	assert.Empty(t, results[1].Error)

	assert.Equal(t, 2, totals.Items)
	assert.Equal(t, 1, totals.ErroredItems)
	assert.Equal(t, 1, totals.ItemsWithDifal)
	assert.Equal(t, 50.0, totals.PercentWithDifal)
	assert.Equal(t, 80.0, totals.TotalToCollect)
}

func TestNewEngine_ConfigurationErrors(t *testing.T) {
	negative := -1.0
	above := 140.0
	cases := map[string]Config{
		"missing origin":      {DestinationUF: "SP"},
		"unknown destination": {OriginUF: "SP", DestinationUF: "SPP"},
		"bad methodology":     {OriginUF: "SP", DestinationUF: "BA", Methodology: "TRIPLA"},
		"share above 100":     {OriginUF: "SP", DestinationUF: "BA", DestinationShare: &above},
		"negative fcp":        {OriginUF: "SP", DestinationUF: "BA", FCPOverride: &negative},
		"precision":           {OriginUF: "SP", DestinationUF: "BA", Precision: 9},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine(cfg, rates.DefaultJurisdictions())
			var cfgErr *domain.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "%v", err)
		})
	}

	_, err := NewEngine(Config{OriginUF: "SP", DestinationUF: "Sao Pualo"}, rates.DefaultJurisdictions())
	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "SP", cfgErr.Suggestion)
}

func TestNewEngine_ForcedMethodologyAndNames(t *testing.T) {
	e := mustEngine(t, Config{OriginUF: "são paulo", DestinationUF: "Bahia", Methodology: "single"})
	s := e.Settings()
	assert.Equal(t, "SP", s.OriginUF)
	assert.Equal(t, "BA", s.DestinationUF)
	assert.Equal(t, domain.SingleBase, s.Methodology)
	assert.True(t, s.ForcedMethod)
	assert.Equal(t, 100.0, s.DestinationShare)
	assert.Equal(t, 2, s.Precision)
}

func TestDestinationShare(t *testing.T) {
	tests := map[string]struct {
		destination string
		item        domain.LineItem
		difal       float64
		fcp         float64
	}{
		// RN single base: share leaves both amounts untouched.
		"single base": {destination: "RN", item: newItem("A", "00", 1000, 12, 120), difal: 60, fcp: 20},
		// BA double base, FCP 2%: only the FCP is scaled.
		"double base": {destination: "BA", item: newItem("B", "00", 1000, 7, 70), fcp: 8},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			full := mustEngine(t, Config{OriginUF: "SP", DestinationUF: tt.destination})
			share := 40.0
			shared := mustEngine(t, Config{OriginUF: "SP", DestinationUF: tt.destination, DestinationShare: &share})
			want := full.CalculateItem(tt.item)
			got := shared.CalculateItem(tt.item)

			require.Empty(t, got.Error)
			assert.Equal(t, want.Difal, got.Difal)
			if tt.difal != 0 {
				assert.Equal(t, tt.difal, got.Difal)
			}
			assert.Equal(t, tt.fcp, got.FCP)
			assert.Equal(t, 40.0, shared.Settings().DestinationShare)
		})
	}
}

func TestTrailMatchesPrecision(t *testing.T) {
	cfg := singleBaseConfig()
	cfg.Precision = 4
	res := mustEngine(t, cfg).CalculateItem(newItem("A", "20", 999.99, 12, 33.33))
	last := res.Trail[len(res.Trail)-1]
	assert.Contains(t, last, "= ")
	assert.Regexp(t, `\d+\.\d{4}$`, last)
}
