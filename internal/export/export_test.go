package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"difal-service/internal/domain"
)

func sampleReport() *domain.Report {
	target := 12.0
	return &domain.Report{
		RunID: "run-1",
		Company: &domain.CompanyHeader{
			CNPJ:        "11111111000111",
			UF:          "BA",
			PeriodStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		Settings: domain.Settings{OriginUF: "SP", DestinationUF: "RN", DestinationShare: 100, Methodology: domain.SingleBase, Precision: 2},
		Results: []domain.CalculationResult{
			{
				Item: domain.LineItem{
					Invoice:      domain.InvoiceKey{Participant: "F001", Series: "1", Number: "123"},
					Line:         10,
					ItemNumber:   "1",
					ItemCode:     "P001",
					Description:  "Parafuso\tsextavado; aço",
					NCM:          "73181500",
					CFOP:         "2556",
					CFOPCategory: domain.CFOPUseConsumption,
					TaxCode:      "000",
				},
				OriginUF:        "SP",
				DestinationUF:   "RN",
				Methodology:     domain.SingleBase,
				Base:            1000,
				OriginRate:      12,
				DestinationRate: 18,
				FCPRate:         2,
				Difal:           60,
				FCP:             20,
				Total:           80,
				Benefit:         &domain.BenefitInfo{Kind: domain.BenefitBaseReduction, Parameter: &target, Applied: true},
				Trail:           []string{"Base DIFAL = 1000.00", "DIFAL (base única) = 60.00"},
			},
			{
				Item:  domain.LineItem{Line: 11, ItemCode: "P002", CFOP: "2551"},
				Error: "erro no cálculo do item P002 (linha 11): valores numéricos inválidos no item",
			},
		},
		Totals: domain.Totals{Items: 2, ItemsWithDifal: 1, ErroredItems: 1, PercentWithDifal: 50, Base: 1000, Difal: 60, FCP: 20, TotalToCollect: 80},
		Diagnostics: domain.Diagnostics{
			LinesRead:       20,
			LinesIgnored:    1,
			FormatErrors:    []domain.RecordFormatError{{Line: 12, Reason: "registro sem delimitador"}},
			BenefitWarnings: []string{"item P999 não consta no cadastro"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "difal_11111111000111_202403.xlsx", FileName(sampleReport(), FormatXLSX))
	assert.Equal(t, "difal.csv", FileName(&domain.Report{}, FormatCSV))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetItems, sheetTotals, sheetDiagnostics}, f.GetSheetList())

	rows, err := f.GetRows(sheetItems)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Linha", rows[0][0])
	assert.Equal(t, "Memória de cálculo", rows[0][len(rows[0])-1])
	assert.Equal(t, "P001", rows[1][5])

	difal, err := f.GetCellValue(sheetItems, "S2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "60", difal)
	benefit, err := f.GetCellValue(sheetItems, "V2")
	require.NoError(t, err)
	assert.Equal(t, "REDUCAO_BASE 12", benefit)
	errMsg, err := f.GetCellValue(sheetItems, "W3")
	require.NoError(t, err)
	assert.Contains(t, errMsg, "valores numéricos inválidos")

	totals, err := f.GetRows(sheetTotals)
	require.NoError(t, err)
	assert.Contains(t, totals, []string{"Total a recolher", "80"})

	diag, err := f.GetRows(sheetDiagnostics)
	require.NoError(t, err)
	assert.Contains(t, diag, []string{"Erro de formato", "linha 12: registro sem delimitador"})
	assert.Contains(t, diag, []string{"Benefício", "item P999 não consta no cadastro"})
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(buf.Bytes())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(decoded), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.True(t, strings.HasPrefix(lines[0], "Linha;Participante;Série;Número"))
	assert.Contains(t, lines[1], `"Parafusosextavado; aço"`)
	assert.Contains(t, lines[1], ";1000,00;12,00;18,00;2,00;60,00;20,00;80,00;")
	assert.Contains(t, lines[2], "valores numéricos inválidos")
}

func TestSanitizeForCSV(t *testing.T) {
	assert.Equal(t, "", sanitizeForCSV("  \t "))
	assert.Equal(t, "ab c", sanitizeForCSV(" a\r\nb\x01c "))
}

func TestWrite_Dispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatCSV))
	assert.NotZero(t, buf.Len())
	assert.Error(t, Write(&buf, sampleReport(), Format("pdf")))
}
