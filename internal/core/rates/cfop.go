package rates

import (
	"fmt"
	"strings"

	"difal-service/internal/domain"
)

// DefaultRelevantCFOPs are the use/consumption and fixed-asset acquisition codes.
var DefaultRelevantCFOPs = []string{"1551", "2551", "1556", "2556"}

// CFOPTable is the read-only set of DIFAL-relevant CFOPs with their category.
type CFOPTable struct {
	categories map[string]domain.CFOPCategory
}

// NewCFOPTable categorizes each code by its last three digits: 551 and 406 are
// fixed-asset acquisitions, 556 and 407 are use/consumption.
func NewCFOPTable(codes []string) (CFOPTable, error) {
	t := CFOPTable{categories: make(map[string]domain.CFOPCategory, len(codes))}
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		if len(code) != 4 {
			return CFOPTable{}, &domain.ConfigurationError{Field: "relevant_cfops", Value: raw, Reason: "CFOP deve ter 4 dígitos"}
		}
		switch code[1:] {
		case "551", "406":
			t.categories[code] = domain.CFOPFixedAsset
		case "556", "407":
			t.categories[code] = domain.CFOPUseConsumption
		default:
			return CFOPTable{}, &domain.ConfigurationError{
				Field:  "relevant_cfops",
				Value:  raw,
				Reason: fmt.Sprintf("CFOP %s não é de uso e consumo nem de ativo imobilizado", code),
			}
		}
	}
	if len(t.categories) == 0 {
		return CFOPTable{}, &domain.ConfigurationError{Field: "relevant_cfops", Reason: "nenhum CFOP relevante configurado"}
	}
	return t, nil
}

// DefaultCFOPTable returns the table built from DefaultRelevantCFOPs.
func DefaultCFOPTable() CFOPTable {
	t, _ := NewCFOPTable(DefaultRelevantCFOPs)
	return t
}

// Category reports the category of a CFOP and whether it is relevant at all.
func (t CFOPTable) Category(cfop string) (domain.CFOPCategory, bool) {
	c, ok := t.categories[strings.TrimSpace(cfop)]
	return c, ok
}

// Len returns the number of relevant codes.
func (t CFOPTable) Len() int {
	return len(t.categories)
}
