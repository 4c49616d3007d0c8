package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"difal-service/internal/domain"
)

// WriteCSV writes one row per calculated item, ';' separated and encoded in
// Windows-1252 for spreadsheet tools configured for pt-BR. Numbers use a
// decimal comma.
func WriteCSV(w io.Writer, report *domain.Report) error {
	encoder := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	tw := transform.NewWriter(w, encoder)
	writer := csv.NewWriter(tw)
	writer.Comma = ';'

	precision := int32(report.Settings.Precision)
	if precision <= 0 {
		precision = 2
	}

	header := make([]string, len(itemHeader))
	for i, h := range itemHeader {
		header[i] = sanitizeForCSV(h)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range report.Results {
		record := []string{strconv.Itoa(r.Item.Line)}
		for _, s := range itemRow(r) {
			record = append(record, sanitizeForCSV(s))
		}
		for _, v := range itemValues(r) {
			record = append(record, formatDecimalComma(v, precision))
		}
		record = append(record, sanitizeForCSV(benefitLabel(r.Benefit)), sanitizeForCSV(r.Error))
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return tw.Close()
}

func formatDecimalComma(v float64, precision int32) string {
	return strings.Replace(decimal.NewFromFloat(v).StringFixed(precision), ".", ",", 1)
}

// sanitizeForCSV trims the value, drops embedded tabs and line breaks and turns
// other control characters into spaces.
func sanitizeForCSV(s string) string {
	s = strings.TrimFunc(s, unicode.IsSpace)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		if r == '\r' || r == '\n' || r == '\t' {
			continue
		}
		if r < 32 {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
