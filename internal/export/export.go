// Package export renders a DIFAL report as a spreadsheet or CSV download.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"difal-service/internal/domain"
)

// Format is a report file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "xlsx" and "csv", case-insensitively. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", &domain.ConfigurationError{Field: "format", Value: s, Reason: "formato de exportação desconhecido", Suggestion: string(FormatXLSX)}
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=windows-1252"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName names the download after the company and period of the report.
func FileName(report *domain.Report, f Format) string {
	name := "difal"
	if c := report.Company; c != nil {
		if c.CNPJ != "" {
			name += "_" + c.CNPJ
		}
		if !c.PeriodStart.IsZero() {
			name += "_" + c.PeriodStart.Format("200601")
		}
	}
	return name + "." + string(f)
}

// Write renders report in the given format.
func Write(w io.Writer, report *domain.Report, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, report)
	case FormatXLSX:
		return WriteXLSX(w, report)
	default:
		return fmt.Errorf("formato de exportação não suportado: %s", f)
	}
}

var itemHeader = []string{
	"Linha", "Participante", "Série", "Número", "Item", "Código", "Descrição", "NCM",
	"CFOP", "Categoria", "CST/CSOSN", "UF Origem", "UF Destino", "Metodologia",
	"Base DIFAL", "Alíq. Origem", "Alíq. Destino", "Alíq. FCP", "DIFAL", "FCP", "Total",
	"Benefício", "Erro",
}

// itemRow lists the text columns of a result; money and rates are formatted by the caller.
func itemRow(r domain.CalculationResult) []string {
	return []string{
		r.Item.Invoice.Participant,
		r.Item.Invoice.Series,
		r.Item.Invoice.Number,
		r.Item.ItemNumber,
		r.Item.ItemCode,
		r.Item.Description,
		r.Item.NCM,
		r.Item.CFOP,
		string(r.Item.CFOPCategory),
		r.Item.TaxCode,
		r.OriginUF,
		r.DestinationUF,
		string(r.Methodology),
	}
}

func itemValues(r domain.CalculationResult) []float64 {
	return []float64{r.Base, r.OriginRate, r.DestinationRate, r.FCPRate, r.Difal, r.FCP, r.Total}
}

func benefitLabel(b *domain.BenefitInfo) string {
	if b == nil {
		return ""
	}
	label := string(b.Kind)
	if b.Parameter != nil {
		label += " " + decimal.NewFromFloat(*b.Parameter).String()
	}
	if !b.Applied {
		label += " (não aplicado)"
	}
	if b.Note != "" {
		label += ": " + b.Note
	}
	return label
}

// totalsRows lists the Totais sheet as label/value pairs.
func totalsRows(report *domain.Report) [][2]any {
	t := report.Totals
	s := report.Settings
	return [][2]any{
		{"UF de origem", s.OriginUF},
		{"UF de destino", s.DestinationUF},
		{"Metodologia", string(s.Methodology)},
		{"Partilha UF destino (%)", s.DestinationShare},
		{"Itens calculados", t.Items},
		{"Itens com DIFAL", t.ItemsWithDifal},
		{"Itens com erro", t.ErroredItems},
		{"% itens com DIFAL", t.PercentWithDifal},
		{"Base total", t.Base},
		{"DIFAL total", t.Difal},
		{"FCP total", t.FCP},
		{"Total a recolher", t.TotalToCollect},
	}
}

// diagnosticRows flattens the diagnostics into kind/detail pairs.
func diagnosticRows(d domain.Diagnostics) [][2]string {
	rows := [][2]string{
		{"Linhas lidas", fmt.Sprint(d.LinesRead)},
		{"Linhas ignoradas", fmt.Sprint(d.LinesIgnored)},
		{"Descartados por CFOP", fmt.Sprint(d.DiscardedByCFOP)},
		{"Itens de notas canceladas", fmt.Sprint(d.CancelledSkipped)},
		{"Itens sem nota", fmt.Sprint(d.OrphanItems)},
		{"Itens fora do cadastro", fmt.Sprint(d.CatalogNotFound)},
	}
	for _, e := range d.FormatErrors {
		rows = append(rows, [2]string{"Erro de formato", e.Error()})
	}
	for _, group := range []struct {
		kind  string
		items []string
	}{
		{"Cadastro", d.CatalogWarnings},
		{"Alíquota", d.RateWarnings},
		{"Nota fiscal", d.InvoiceAlerts},
		{"Benefício", d.BenefitWarnings},
	} {
		for _, msg := range group.items {
			rows = append(rows, [2]string{group.kind, msg})
		}
	}
	return rows
}
