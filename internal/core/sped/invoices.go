package sped

import (
	"fmt"

	"difal-service/internal/domain"
)

// Positions of the C100 record.
const (
	docOperation   = 1
	docIssuer      = 2
	docParticipant = 3
	docModel       = 4
	docSituation   = 5
	docSeries      = 6
	docNumber      = 7
	docAccessKey   = 8
	docDate        = 9
	docValue       = 11
	docMerchandise = 15
	docFreight     = 17
	docInsurance   = 18
	docOther       = 19
	docICMSBase    = 20
	docICMSValue   = 21
	docIPIValue    = 24

	minInvoiceFields = docIPIValue + 1
)

func invoiceKey(rec domain.FiscalRecord) domain.InvoiceKey {
	return domain.InvoiceKey{
		Participant: rec.Field(docParticipant),
		Series:      rec.Field(docSeries),
		Number:      rec.Field(docNumber),
	}
}

// IndexInvoices indexes the C100 headers. Only the totals used for apportionment
// are extracted; the first occurrence of a repeated key wins.
func IndexInvoices(records []domain.FiscalRecord, participants domain.ParticipantIndex) (domain.InvoiceIndex, []string) {
	index := make(domain.InvoiceIndex, len(records))
	var warnings []string

	for _, rec := range records {
		if len(rec.Fields) < minInvoiceFields {
			warnings = append(warnings, fmt.Sprintf("linha %d: registro C100 com %d campos (mínimo %d), ignorado", rec.Line, len(rec.Fields), minInvoiceFields))
			continue
		}
		key := invoiceKey(rec)
		if existing, dup := index[key]; dup {
			warnings = append(warnings, fmt.Sprintf("linha %d: documento %s/%s do participante %s repetido (primeira ocorrência na linha %d)", rec.Line, key.Series, key.Number, key.Participant, existing.Line))
			continue
		}

		index[key] = parseInvoiceHeader(rec, participants)
	}

	return index, warnings
}

// parseInvoiceHeader reads the totals of a C100 with at least minInvoiceFields
// fields.
func parseInvoiceHeader(rec domain.FiscalRecord, participants domain.ParticipantIndex) domain.InvoiceHeader {
	header := domain.InvoiceHeader{
		Key:              invoiceKey(rec),
		Operation:        rec.Field(docOperation),
		Issuer:           rec.Field(docIssuer),
		Model:            rec.Field(docModel),
		Situation:        rec.Field(docSituation),
		AccessKey:        rec.Field(docAccessKey),
		DocumentDate:     parseDateSped(rec.Field(docDate)),
		DocumentValue:    parseNumberSped(rec.Field(docValue)),
		MerchandiseValue: parseNumberSped(rec.Field(docMerchandise)),
		Freight:          parseNumberSped(rec.Field(docFreight)),
		Insurance:        parseNumberSped(rec.Field(docInsurance)),
		OtherExpenses:    parseNumberSped(rec.Field(docOther)),
		ICMSBase:         parseNumberSped(rec.Field(docICMSBase)),
		ICMSValue:        parseNumberSped(rec.Field(docICMSValue)),
		IPIValue:         parseNumberSped(rec.Field(docIPIValue)),
		Line:             rec.Line,
	}
	if p, ok := participants[header.Key.Participant]; ok {
		header.ParticipantUF = p.UF
	}
	return header
}
