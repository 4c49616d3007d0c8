// package sped/items.go
package sped

import (
	"fmt"
	"math"

	"difal-service/internal/core/rates"
	"difal-service/internal/domain"
)

// Positions of the C170 record.
const (
	itemNumber      = 1
	itemCode        = 2
	itemDescription = 3
	itemQuantity    = 4
	itemUnit        = 5
	itemValue       = 6
	itemDiscount    = 7
	itemCST         = 9
	itemCFOP        = 10
	itemICMSBase    = 12
	itemICMSRate    = 13
	itemICMSValue   = 14
	itemIPIValue    = 23

	minItemFields = itemICMSValue + 1
)

const divergenceTolerance = 0.5

// ExtractStats counts what the extractor skipped or flagged.
type ExtractStats struct {
	DiscardedByCFOP  int
	CancelledSkipped int
	OrphanItems      int
	CatalogNotFound  int
	FormatErrors     []domain.RecordFormatError
	RateWarnings     []string
	InvoiceAlerts    []string
}

// invoiceContext accumulates the C170 sums of the invoice being walked.
type invoiceContext struct {
	header   domain.InvoiceHeader
	items    int
	sumIPI   float64
	sumGross float64
}

// ExtractItems walks the records in file order. A C170 belongs to the nearest
// preceding C100; items outside the relevant CFOP table are discarded.
func ExtractItems(reg *domain.Registry, catalog domain.Catalog, invoices domain.InvoiceIndex, cfops rates.CFOPTable) ([]domain.LineItem, ExtractStats) {
	var items []domain.LineItem
	var stats ExtractStats
	var current *invoiceContext

	closeInvoice := func() {
		if current != nil {
			stats.InvoiceAlerts = append(stats.InvoiceAlerts, checkInvoice(current)...)
		}
	}

	for _, rec := range reg.Records {
		switch rec.Type {
		case domain.RecordInvoice:
			closeInvoice()
			current = nil
			if len(rec.Fields) < minInvoiceFields {
				continue
			}
			// Totals come from the record being walked: a repeated key must
			// not borrow the freight of the first document that used it.
			header := parseInvoiceHeader(rec, nil)
			if indexed, ok := invoices[header.Key]; ok {
				header.ParticipantUF = indexed.ParticipantUF
			}
			current = &invoiceContext{header: header}

		case domain.RecordLineItem:
			if current == nil {
				stats.OrphanItems++
				continue
			}
			if len(rec.Fields) < minItemFields {
				stats.FormatErrors = append(stats.FormatErrors, domain.RecordFormatError{
					Line:   rec.Line,
					Reason: fmt.Sprintf("registro C170 com %d campos (mínimo %d)", len(rec.Fields), minItemFields),
				})
				continue
			}

			current.items++
			current.sumIPI += parseNumberSped(rec.Field(itemIPIValue))
			current.sumGross += parseNumberSped(rec.Field(itemValue))

			if current.header.Cancelled() {
				stats.CancelledSkipped++
				continue
			}

			category, relevant := cfops.Category(rec.Field(itemCFOP))
			if !relevant {
				stats.DiscardedByCFOP++
				continue
			}

			item := buildLineItem(rec, current.header, category)
			if !enrichFromCatalog(&item, catalog) {
				stats.CatalogNotFound++
			}
			if !item.TaxSituation.Mapped {
				stats.RateWarnings = append(stats.RateWarnings, fmt.Sprintf("linha %d: CST/CSOSN %q sem mapeamento, será usada a alíquota nominal", rec.Line, item.TaxCode))
			}
			items = append(items, item)
		}
	}
	closeInvoice()

	return items, stats
}

func buildLineItem(rec domain.FiscalRecord, header domain.InvoiceHeader, category domain.CFOPCategory) domain.LineItem {
	item := domain.LineItem{
		Invoice:       header.Key,
		Line:          rec.Line,
		ItemNumber:    rec.Field(itemNumber),
		ItemCode:      rec.Field(itemCode),
		CFOP:          rec.Field(itemCFOP),
		CFOPCategory:  category,
		Quantity:      parseNumberSped(rec.Field(itemQuantity)),
		Unit:          rec.Field(itemUnit),
		GrossValue:    parseNumberSped(rec.Field(itemValue)),
		Discount:      parseNumberSped(rec.Field(itemDiscount)),
		ICMSBase:      parseNumberSped(rec.Field(itemICMSBase)),
		ICMSRate:      parseNumberSped(rec.Field(itemICMSRate)),
		ICMSValue:     parseNumberSped(rec.Field(itemICMSValue)),
		IPIValue:      parseNumberSped(rec.Field(itemIPIValue)),
		TaxCode:       rec.Field(itemCST),
		ParticipantUF: header.ParticipantUF,
		Description:   rec.Field(itemDescription),
	}
	item.TaxSituation = rates.Classify(item.TaxCode)

	item.ApportionRatio = apportionmentRatio(item.GrossValue, header.MerchandiseValue)
	item.Freight = header.Freight * item.ApportionRatio
	item.Insurance = header.Insurance * item.ApportionRatio
	item.OtherExpenses = header.OtherExpenses * item.ApportionRatio
	item.DifalBase = item.GrossValue + item.IPIValue + item.Freight + item.Insurance + item.OtherExpenses - item.Discount

	return item
}

// apportionmentRatio is the item's share of the invoice merchandise value, 0 when the total is unknown.
func apportionmentRatio(itemValue, merchandiseValue float64) float64 {
	if merchandiseValue <= 0 {
		return 0
	}
	return itemValue / merchandiseValue
}

// enrichFromCatalog fills NCM, description and type; it reports whether the item was catalogued.
func enrichFromCatalog(item *domain.LineItem, catalog domain.Catalog) bool {
	entry, ok := catalog[item.ItemCode]
	if !ok {
		item.CatalogStatus = domain.CatalogNotFound
		item.NCM = domain.NCMNotFound
		if item.Description == "" {
			item.Description = domain.DescriptionNotCatalogued
		}
		return false
	}
	item.CatalogStatus = domain.CatalogFound
	item.NCM = entry.NCM
	item.Description = entry.Description
	item.ItemType = entry.ItemType
	return true
}

func checkInvoice(ctx *invoiceContext) []string {
	if ctx.items == 0 || ctx.header.Cancelled() {
		return nil
	}
	var alerts []string
	h := ctx.header
	if h.IPIValue > 0 && math.Abs(h.IPIValue-ctx.sumIPI) > divergenceTolerance {
		alerts = append(alerts, fmt.Sprintf("documento %s/%s (linha %d): divergência entre IPI do C100 (%.2f) e a soma dos itens C170 (%.2f)", h.Key.Series, h.Key.Number, h.Line, h.IPIValue, ctx.sumIPI))
	}
	if h.MerchandiseValue > 0 && math.Abs(h.MerchandiseValue-ctx.sumGross) > divergenceTolerance {
		alerts = append(alerts, fmt.Sprintf("documento %s/%s (linha %d): divergência entre valor das mercadorias do C100 (%.2f) e a soma dos itens C170 (%.2f)", h.Key.Series, h.Key.Number, h.Line, h.MerchandiseValue, ctx.sumGross))
	}
	return alerts
}
