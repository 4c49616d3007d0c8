package domain

// Catalog maps item codes (0200 COD_ITEM) to catalog entries.
type Catalog map[string]ProductCatalogEntry

// Codes returns the catalogued item codes in no particular order.
func (c Catalog) Codes() []string {
	codes := make([]string, 0, len(c))
	for code := range c {
		codes = append(codes, code)
	}
	return codes
}

// ParticipantIndex maps participant codes (0150 COD_PART) to participants.
type ParticipantIndex map[string]Participant

// InvoiceIndex maps invoice keys to C100 headers.
type InvoiceIndex map[InvoiceKey]InvoiceHeader
