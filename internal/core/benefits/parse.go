package benefits

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"difal-service/internal/core/normalize"
	"difal-service/internal/domain"
)

const maxHeaderSearchRows = 40

// Column keywords, matched against the normalized header cells in order.
var (
	codeKeywords  = []string{"CODIGO DO ITEM", "COD ITEM", "CODIGO", "ITEM"}
	kindKeywords  = []string{"TIPO DE BENEFICIO", "BENEFICIO", "TIPO"}
	valueKeywords = []string{"VALOR", "PERCENTUAL", "ALIQUOTA", "CARGA"}
	cnpjKeywords  = []string{"CNPJ"}
)

// columns holds the positions of the benefit sheet columns; cnpj is -1 when absent.
type columns struct {
	header int
	code   int
	kind   int
	value  int
	cnpj   int
}

// ParseSheet reads a benefit sheet with one row per item: item code, benefit
// kind and value. Rows that cannot become a valid benefit are skipped with a
// warning; when companyCNPJ is set, rows of other companies are ignored.
func ParseSheet(filename string, file io.Reader, companyCNPJ string) (domain.BenefitConfig, []string, error) {
	rows, err := readRows(filename, file)
	if err != nil {
		return nil, nil, err
	}
	return parseRows(rows, normalize.Digits(companyCNPJ))
}

func parseRows(rows [][]string, companyCNPJ string) (domain.BenefitConfig, []string, error) {
	cols := findColumns(rows)
	config := make(domain.BenefitConfig)
	origin := make(map[string]int)
	var warnings []string

	for i := cols.header + 1; i < len(rows); i++ {
		row := rows[i]
		line := i + 1
		code := strings.TrimSpace(cell(row, cols.code))
		if code == "" {
			continue
		}
		if companyCNPJ != "" && cols.cnpj >= 0 {
			if rowCNPJ := normalize.Digits(cell(row, cols.cnpj)); rowCNPJ != "" && rowCNPJ != companyCNPJ {
				continue
			}
		}

		kind, err := domain.ParseBenefitKind(cell(row, cols.kind))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("linha %d: item %s: %v", line, code, err))
			continue
		}
		value, err := parseBRLNumber(cell(row, cols.value))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("linha %d: item %s: valor inválido %q", line, code, cell(row, cols.value)))
			continue
		}
		benefit, err := domain.NewBenefit(kind, value)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("linha %d: item %s: %v", line, code, err))
			continue
		}

		if first, dup := origin[code]; dup {
			warnings = append(warnings, fmt.Sprintf("linha %d: item %s já possui benefício na linha %d, mantido o primeiro", line, code, first))
			continue
		}
		origin[code] = line
		config[code] = benefit
	}

	return config, warnings, nil
}

// findColumns locates the header row. Without a recognizable header the sheet is
// read positionally: code, kind, value.
func findColumns(rows [][]string) columns {
	limit := maxHeaderSearchRows
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		code := pickBestColumn(rows[i], codeKeywords)
		kind := pickBestColumn(rows[i], kindKeywords)
		if code >= 0 && kind >= 0 && code != kind {
			return columns{
				header: i,
				code:   code,
				kind:   kind,
				value:  pickBestColumn(rows[i], valueKeywords),
				cnpj:   pickBestColumn(rows[i], cnpjKeywords),
			}
		}
	}
	return columns{header: -1, code: 0, kind: 1, value: 2, cnpj: -1}
}

func pickBestColumn(header []string, keywords []string) int {
	normCols := make([]string, len(header))
	for i, h := range header {
		normCols[i] = normalize.Text(h)
	}
	for _, kw := range keywords {
		for idx, nc := range normCols {
			if strings.Contains(nc, kw) {
				return idx
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseBRLNumber accepts Brazilian ("1.234,56") and plain ("1234.56") numbers
// with an optional "%" suffix. An empty cell is nil, never zero.
func parseBRLNumber(val string) (*float64, error) {
	s := strings.TrimSpace(val)
	s = strings.NewReplacer("R$", "", "%", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return nil, nil
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	if lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else if strings.Count(s, ".") > 1 {
		parts := strings.Split(s, ".")
		s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	f := d.InexactFloat64()
	return &f, nil
}
