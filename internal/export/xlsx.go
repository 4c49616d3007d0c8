package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"difal-service/internal/domain"
)

const (
	sheetItems       = "Itens"
	sheetTotals      = "Totais"
	sheetDiagnostics = "Diagnosticos"
)

// WriteXLSX writes the workbook with the Itens, Totais and Diagnosticos sheets.
func WriteXLSX(w io.Writer, report *domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetItems); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetTotals); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetDiagnostics); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	moneyFmt := "#,##0." + strings.Repeat("0", max(report.Settings.Precision, 2))
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return err
	}

	if err := writeItemsSheet(f, report, headerStyle, moneyStyle); err != nil {
		return fmt.Errorf("erro ao gerar aba %s: %w", sheetItems, err)
	}
	if err := writeTotalsSheet(f, report, headerStyle); err != nil {
		return fmt.Errorf("erro ao gerar aba %s: %w", sheetTotals, err)
	}
	if err := writeDiagnosticsSheet(f, report, headerStyle); err != nil {
		return fmt.Errorf("erro ao gerar aba %s: %w", sheetDiagnostics, err)
	}

	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

func writeItemsSheet(f *excelize.File, report *domain.Report, headerStyle, moneyStyle int) error {
	header := make([]any, 0, len(itemHeader)+1)
	for _, h := range itemHeader {
		header = append(header, h)
	}
	header = append(header, "Memória de cálculo")
	if err := f.SetSheetRow(sheetItems, "A1", &header); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(sheetItems, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, r := range report.Results {
		row := []any{r.Item.Line}
		for _, s := range itemRow(r) {
			row = append(row, s)
		}
		for _, v := range itemValues(r) {
			row = append(row, v)
		}
		row = append(row, benefitLabel(r.Benefit), r.Error, strings.Join(r.Trail, "\n"))

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetItems, cell, &row); err != nil {
			return err
		}
	}

	if n := len(report.Results); n > 0 {
		// Base DIFAL through Total.
		first, _ := excelize.ColumnNumberToName(15)
		last, _ := excelize.ColumnNumberToName(21)
		if err := f.SetCellStyle(sheetItems, first+"2", fmt.Sprintf("%s%d", last, n+1), moneyStyle); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetItems, "G", "G", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetItems, lastCol, lastCol, 80); err != nil {
		return err
	}
	return f.SetPanes(sheetItems, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeTotalsSheet(f *excelize.File, report *domain.Report, headerStyle int) error {
	if err := f.SetSheetRow(sheetTotals, "A1", &[]any{"Indicador", "Valor"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetTotals, "A1", "B1", headerStyle); err != nil {
		return err
	}
	for i, kv := range totalsRows(report) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetTotals, cell, &[]any{kv[0], kv[1]}); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetTotals, "A", "A", 28)
}

func writeDiagnosticsSheet(f *excelize.File, report *domain.Report, headerStyle int) error {
	if err := f.SetSheetRow(sheetDiagnostics, "A1", &[]any{"Tipo", "Detalhe"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetDiagnostics, "A1", "B1", headerStyle); err != nil {
		return err
	}
	for i, d := range diagnosticRows(report.Diagnostics) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetDiagnostics, cell, &[]any{d[0], d[1]}); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetDiagnostics, "B", "B", 100)
}
