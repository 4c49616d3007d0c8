// package sped/reader.go
package sped

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"difal-service/internal/domain"

	"golang.org/x/text/encoding/charmap"
)

// maxFormatSamples caps how many malformed lines are kept for diagnostics; all are counted.
const maxFormatSamples = 50

var (
	utf8BOM           = []byte{0xEF, 0xBB, 0xBF}
	recordTypePattern = regexp.MustCompile(`^[A-Za-z0-9]{3,4}$`)
)

// Positions of the 0000 record (REG at 0).
const (
	hdrVersion     = 1
	hdrPurpose     = 2
	hdrPeriodStart = 3
	hdrPeriodEnd   = 4
	hdrName        = 5
	hdrCNPJ        = 6
	hdrUF          = 8
	hdrStateReg    = 9
)

// Read reads the whole SPED stream and decodes it.
func Read(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("erro ao ler arquivo SPED: %w", err)
	}
	return Decode(data)
}

// Decode tries strict UTF-8, then ISO-8859-1, then lossy UTF-8.
func Decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	text, latinErr := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if latinErr == nil {
		return string(text), nil
	}

	lossy := strings.ToValidUTF8(string(data), string(utf8.RuneError))
	if lossy == "" && len(data) > 0 {
		return "", &domain.DecodeError{Err: latinErr}
	}
	return lossy, nil
}

// Parse splits the decoded text into validated records. Malformed lines are
// counted and skipped; the first 0000 record becomes the company header.
func Parse(text string) *domain.Registry {
	reg := &domain.Registry{ByType: make(map[string][]domain.FiscalRecord)}

	lineNumber := 0
	for len(text) > 0 {
		var raw string
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			raw, text = text[:i], text[i+1:]
		} else {
			raw, text = text, ""
		}
		lineNumber++

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		reg.LinesRead++

		rec, reason := parseLine(line)
		if reason != "" {
			reg.LinesIgnored++
			if len(reg.FormatErrors) < maxFormatSamples {
				reg.FormatErrors = append(reg.FormatErrors, domain.RecordFormatError{
					Line:    lineNumber,
					Reason:  reason,
					Content: truncate(line, 80),
				})
			}
			continue
		}

		rec.Line = lineNumber
		reg.Records = append(reg.Records, rec)
		reg.ByType[rec.Type] = append(reg.ByType[rec.Type], rec)

		if rec.Type == domain.RecordHeader && reg.Company == nil {
			reg.Company = parseCompanyHeader(rec)
		}
	}

	return reg
}

func parseLine(line string) (domain.FiscalRecord, string) {
	if len(line) < 2 || line[0] != '|' || line[len(line)-1] != '|' {
		return domain.FiscalRecord{}, "linha não delimitada por '|'"
	}

	parts := strings.Split(line, "|")
	fields := parts[1 : len(parts)-1]
	if len(fields) < 2 {
		return domain.FiscalRecord{}, "registro com menos de 2 campos"
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if !recordTypePattern.MatchString(fields[0]) {
		return domain.FiscalRecord{}, fmt.Sprintf("tipo de registro inválido: %q", fields[0])
	}

	return domain.FiscalRecord{Type: fields[0], Fields: fields}, ""
}

func parseCompanyHeader(rec domain.FiscalRecord) *domain.CompanyHeader {
	return &domain.CompanyHeader{
		LayoutVersion: rec.Field(hdrVersion),
		Purpose:       rec.Field(hdrPurpose),
		PeriodStart:   parseDateSped(rec.Field(hdrPeriodStart)),
		PeriodEnd:     parseDateSped(rec.Field(hdrPeriodEnd)),
		LegalName:     rec.Field(hdrName),
		CNPJ:          rec.Field(hdrCNPJ),
		UF:            strings.ToUpper(rec.Field(hdrUF)),
		StateReg:      rec.Field(hdrStateReg),
	}
}
