package difal

import (
	"github.com/shopspring/decimal"

	"difal-service/internal/domain"
)

// Summarize aggregates the results of a run. Sums are accumulated in decimal so
// the totals equal the sum of the rounded item values.
func Summarize(results []domain.CalculationResult, precision int) domain.Totals {
	if precision <= 0 {
		precision = defaultPrecision
	}
	var base, difal, fcp, total decimal.Decimal
	totals := domain.Totals{Items: len(results)}

	for _, r := range results {
		if r.Error != "" {
			totals.ErroredItems++
			continue
		}
		if r.Difal > 0 {
			totals.ItemsWithDifal++
		}
		base = base.Add(decimal.NewFromFloat(r.Base))
		difal = difal.Add(decimal.NewFromFloat(r.Difal))
		fcp = fcp.Add(decimal.NewFromFloat(r.FCP))
		total = total.Add(decimal.NewFromFloat(r.Total))
	}

	p := int32(precision)
	totals.Base = base.Round(p).InexactFloat64()
	totals.Difal = difal.Round(p).InexactFloat64()
	totals.FCP = fcp.Round(p).InexactFloat64()
	totals.TotalToCollect = total.Round(p).InexactFloat64()
	if totals.Items > 0 {
		totals.PercentWithDifal = decimal.NewFromInt(int64(totals.ItemsWithDifal)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(totals.Items))).
			Round(2).InexactFloat64()
	}
	return totals
}
