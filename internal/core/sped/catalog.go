package sped

import (
	"fmt"

	"difal-service/internal/domain"
)

// Positions of the 0200 record.
const (
	catItemCode    = 1
	catDescription = 2
	catBarcode     = 3
	catUnit        = 5
	catItemType    = 6
	catNCM         = 7

	minCatalogFields = 3
)

// BuildCatalog indexes every 0200 record by item code. Short records are skipped
// with a warning; missing NCM and description get explicit sentinels.
func BuildCatalog(records []domain.FiscalRecord) (domain.Catalog, []string) {
	catalog := make(domain.Catalog, len(records))
	var warnings []string

	for _, rec := range records {
		if len(rec.Fields) < minCatalogFields {
			warnings = append(warnings, fmt.Sprintf("linha %d: registro 0200 com %d campos (mínimo %d), ignorado", rec.Line, len(rec.Fields), minCatalogFields))
			continue
		}
		code := rec.Field(catItemCode)
		if code == "" {
			warnings = append(warnings, fmt.Sprintf("linha %d: registro 0200 sem código de item, ignorado", rec.Line))
			continue
		}

		entry := domain.ProductCatalogEntry{
			ItemCode:    code,
			Description: rec.Field(catDescription),
			Barcode:     rec.Field(catBarcode),
			Unit:        rec.Field(catUnit),
			ItemType:    rec.Field(catItemType),
			NCM:         rec.Field(catNCM),
		}
		if entry.NCM == "" {
			entry.NCM = domain.NCMNotFound
		}
		if entry.Description == "" {
			entry.Description = domain.DescriptionNotCatalogued
		}

		if _, dup := catalog[code]; dup {
			warnings = append(warnings, fmt.Sprintf("linha %d: item %s duplicado no 0200, mantida a primeira ocorrência", rec.Line, code))
			continue
		}
		catalog[code] = entry
	}

	return catalog, warnings
}
