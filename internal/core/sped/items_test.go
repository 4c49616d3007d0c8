package sped

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"difal-service/internal/core/rates"
	"difal-service/internal/domain"
)

func extractSample(t *testing.T) ([]domain.LineItem, ExtractStats) {
	t.Helper()
	reg := loadSample(t)
	catalog, _ := BuildCatalog(reg.Type(domain.RecordCatalog))
	participants := IndexParticipants(reg.Type(domain.RecordParticipant))
	invoices, _ := IndexInvoices(reg.Type(domain.RecordInvoice), participants)
	return ExtractItems(reg, catalog, invoices, rates.DefaultCFOPTable())
}

func TestExtractItems_Sample(t *testing.T) {
	items, stats := extractSample(t)

	require.Len(t, items, 3)
	assert.Equal(t, 1, stats.OrphanItems)
	assert.Equal(t, 1, stats.CancelledSkipped)
	assert.Equal(t, 1, stats.DiscardedByCFOP)
	assert.Equal(t, 1, stats.CatalogNotFound)
	assert.Empty(t, stats.InvoiceAlerts)
	assert.Empty(t, stats.RateWarnings)

	p1 := items[0]
	assert.Equal(t, "P001", p1.ItemCode)
	assert.Equal(t, domain.InvoiceKey{Participant: "F001", Series: "1", Number: "123"}, p1.Invoice)
	assert.Equal(t, domain.CFOPUseConsumption, p1.CFOPCategory)
	assert.Equal(t, domain.CatalogFound, p1.CatalogStatus)
	assert.Equal(t, "73181500", p1.NCM)
	assert.Equal(t, "SP", p1.ParticipantUF)
	assert.InDelta(t, 0.6, p1.ApportionRatio, 1e-9)
	assert.InDelta(t, 60, p1.Freight, 1e-9)
	assert.InDelta(t, 690, p1.DifalBase, 1e-9)
	assert.Equal(t, domain.RegimeNormal, p1.TaxSituation.Regime)
	assert.Equal(t, "00", p1.TaxSituation.Situation)

	p2 := items[1]
	assert.Equal(t, domain.CFOPFixedAsset, p2.CFOPCategory)
	assert.InDelta(t, 450, p2.DifalBase, 1e-9)
	assert.Equal(t, domain.NCMNotFound, p2.NCM)

	p9 := items[2]
	assert.Equal(t, domain.CatalogNotFound, p9.CatalogStatus)
	assert.Equal(t, domain.NCMNotFound, p9.NCM)
	assert.Equal(t, "ITEM SEM CADASTRO", p9.Description)
	assert.Equal(t, "40", p9.TaxSituation.Situation)
	assert.Equal(t, "BA", p9.ParticipantUF)
}

func TestExtractItems_ApportionmentSumsToOne(t *testing.T) {
	items, _ := extractSample(t)
	sum := 0.0
	for _, it := range items {
		if it.Invoice.Number == "123" {
			sum += it.ApportionRatio
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestExtractItems_LinkageFollowsFileOrder(t *testing.T) {
	text := "|0150|A|X|1058||||3550308|\n" +
		"|C100|0|1|A|55|00|1|10||01012024|01012024|100|0|0|0|100|0|10|0|0|0|0|0|0|0|\n" +
		"|C170|1|I1||1|UN|100|0|0|00|2556||0|0|0|\n" +
		"|C100|0|1|A|55|00|1|11||01012024|01012024|50|0|0|0|0|0|10|0|0|0|0|0|0|0|\n" +
		"|C170|1|I2||1|UN|50|0|0|00|2556||0|0|0|\n"
	reg := Parse(text)
	participants := IndexParticipants(reg.Type(domain.RecordParticipant))
	invoices, _ := IndexInvoices(reg.Type(domain.RecordInvoice), participants)
	items, stats := ExtractItems(reg, domain.Catalog{}, invoices, rates.DefaultCFOPTable())

	require.Len(t, items, 2)
	assert.Equal(t, "10", items[0].Invoice.Number)
	assert.InDelta(t, 110, items[0].DifalBase, 1e-9)
	assert.Equal(t, "11", items[1].Invoice.Number)
	// merchandise total absent: nothing is apportioned
	assert.Zero(t, items[1].ApportionRatio)
	assert.InDelta(t, 50, items[1].DifalBase, 1e-9)
	assert.Equal(t, 2, stats.CatalogNotFound)
}

func TestExtractItems_RepeatedKeyUsesOwnTotals(t *testing.T) {
	text := "|0150|P1|X|1058||||2927408|\n" +
		"|C100|0|1|P1|55|00|1|123||01012024|01012024|1100|0|0|0|1000|0|100|0|0|0|0|0|0|0|\n" +
		"|C170|1|I1||1|UN|1000|0|0|00|2556||0|0|0|\n" +
		"|C100|0|1|P1|55|00|1|123||02012024|02012024|500|0|0|0|500|0|0|0|0|0|0|0|0|0|\n" +
		"|C170|1|I2||1|UN|500|0|0|00|2556||0|0|0|\n"
	reg := Parse(text)
	participants := IndexParticipants(reg.Type(domain.RecordParticipant))
	invoices, warnings := IndexInvoices(reg.Type(domain.RecordInvoice), participants)
	require.Len(t, warnings, 1)

	items, _ := ExtractItems(reg, domain.Catalog{}, invoices, rates.DefaultCFOPTable())
	require.Len(t, items, 2)

	tests := []struct {
		code    string
		freight float64
		ratio   float64
		base    float64
		line    int
	}{
		{code: "I1", freight: 100, ratio: 1, base: 1100, line: 3},
		{code: "I2", freight: 0, ratio: 1, base: 500, line: 5},
	}
	for i, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			it := items[i]
			assert.Equal(t, tt.code, it.ItemCode)
			assert.Equal(t, tt.line, it.Line)
			assert.InDelta(t, tt.freight, it.Freight, 1e-9)
			assert.InDelta(t, tt.ratio, it.ApportionRatio, 1e-9)
			assert.InDelta(t, tt.base, it.DifalBase, 1e-9)
			assert.Equal(t, "BA", it.ParticipantUF)
		})
	}
}

func TestExtractItems_InvoiceAlertsAndUnmappedCST(t *testing.T) {
	text := "|C100|0|1|A|55|00|1|10||01012024|01012024|100|0|0|0|100|0|0|0|0|0|0|0|0|9|\n" +
		"|C170|1|I1||1|UN|80|0|0|99|2556||0|0|0|0|0|0|0|||0|0|1|\n" +
		"|C170|2|I2||1|UN|5|0|0|00|1556|\n"
	reg := Parse(text)
	invoices, _ := IndexInvoices(reg.Type(domain.RecordInvoice), nil)
	items, stats := ExtractItems(reg, domain.Catalog{}, invoices, rates.DefaultCFOPTable())

	require.Len(t, items, 1)
	assert.Len(t, stats.RateWarnings, 1)
	assert.Len(t, stats.FormatErrors, 1)
	assert.Len(t, stats.InvoiceAlerts, 2)
}
