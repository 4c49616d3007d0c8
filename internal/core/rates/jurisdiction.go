// package rates/jurisdiction.go
package rates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schollz/closestmatch"

	"difal-service/internal/core/normalize"
	"difal-service/internal/domain"
)

// Jurisdiction is the reference data of one UF.
type Jurisdiction struct {
	UF           string             `json:"uf"`
	Name         string             `json:"name"`
	InternalRate float64            `json:"internal_rate"`
	FCPRate      float64            `json:"fcp_rate"`
	Methodology  domain.Methodology `json:"methodology"`
}

// Jurisdictions is a read-only table of the 27 UFs. Build it with
// NewJurisdictions or DefaultJurisdictions and share it freely.
type Jurisdictions struct {
	byUF    map[string]Jurisdiction
	byName  map[string]string
	matcher *closestmatch.ClosestMatch
}

// NewJurisdictions validates that the entries cover every UF exactly once, each
// with a known methodology.
func NewJurisdictions(entries []Jurisdiction) (*Jurisdictions, error) {
	byUF := make(map[string]Jurisdiction, len(entries))
	for _, j := range entries {
		uf := strings.ToUpper(strings.TrimSpace(j.UF))
		if _, known := ufNames[uf]; !known {
			return nil, &domain.ConfigurationError{Field: "uf", Value: j.UF, Reason: "UF desconhecida na tabela de jurisdições"}
		}
		if _, dup := byUF[uf]; dup {
			return nil, &domain.ConfigurationError{Field: "uf", Value: uf, Reason: "UF repetida na tabela de jurisdições"}
		}
		if j.Methodology != domain.SingleBase && j.Methodology != domain.DoubleBase {
			return nil, &domain.ConfigurationError{Field: "methodology", Value: string(j.Methodology), Reason: fmt.Sprintf("metodologia inválida para %s", uf)}
		}
		if j.InternalRate <= 0 || j.InternalRate >= 100 || j.FCPRate < 0 {
			return nil, &domain.ConfigurationError{Field: "internal_rate", Value: fmt.Sprintf("%s=%.2f", uf, j.InternalRate), Reason: "alíquota fora do intervalo"}
		}
		j.UF = uf
		if j.Name == "" {
			j.Name = ufNames[uf]
		}
		byUF[uf] = j
	}
	for uf := range ufNames {
		if _, ok := byUF[uf]; !ok {
			return nil, &domain.ConfigurationError{Field: "uf", Value: uf, Reason: "UF ausente da tabela de jurisdições"}
		}
	}

	byName := make(map[string]string, len(byUF)*2)
	names := make([]string, 0, len(byUF))
	for uf, j := range byUF {
		name := normalize.Text(j.Name)
		byName[name] = uf
		byName[uf] = uf
		names = append(names, name)
	}
	sort.Strings(names)

	return &Jurisdictions{
		byUF:    byUF,
		byName:  byName,
		matcher: closestmatch.New(names, []int{2, 3}),
	}, nil
}

// DefaultJurisdictions returns the built-in table of internal and FCP rates.
func DefaultJurisdictions() *Jurisdictions {
	entries := make([]Jurisdiction, 0, len(defaultRates))
	for uf, r := range defaultRates {
		m := domain.SingleBase
		if doubleBaseUFs[uf] {
			m = domain.DoubleBase
		}
		entries = append(entries, Jurisdiction{UF: uf, InternalRate: r[0], FCPRate: r[1], Methodology: m})
	}
	j, err := NewJurisdictions(entries)
	if err != nil {
		panic(fmt.Sprintf("tabela padrão de jurisdições inválida: %v", err))
	}
	return j
}

// Lookup returns the jurisdiction of a UF.
func (t *Jurisdictions) Lookup(uf string) (Jurisdiction, bool) {
	j, ok := t.byUF[strings.ToUpper(strings.TrimSpace(uf))]
	return j, ok
}

// Methodology returns the methodology class of a UF.
func (t *Jurisdictions) Methodology(uf string) (domain.Methodology, bool) {
	j, ok := t.Lookup(uf)
	return j.Methodology, ok
}

// UFCodes lists the UFs in alphabetical order.
func (t *Jurisdictions) UFCodes() []string {
	codes := make([]string, 0, len(t.byUF))
	for uf := range t.byUF {
		codes = append(codes, uf)
	}
	sort.Strings(codes)
	return codes
}

// Resolve accepts a UF code or a state name ("São Paulo") and returns the UF code.
func (t *Jurisdictions) Resolve(input string) (string, bool) {
	uf, ok := t.byName[normalize.Text(input)]
	return uf, ok
}

// Suggest returns the UF whose state name is closest to an unknown input, or ""
// when nothing is close.
func (t *Jurisdictions) Suggest(input string) string {
	key := normalize.Text(input)
	if key == "" {
		return ""
	}
	if uf, ok := t.byName[key]; ok {
		return uf
	}
	return t.byName[t.matcher.Closest(key)]
}

// ConfigError builds the ConfigurationError for an unknown UF, with a suggestion.
func (t *Jurisdictions) ConfigError(field, value string) *domain.ConfigurationError {
	reason := "UF desconhecida"
	if strings.TrimSpace(value) == "" {
		reason = "UF não informada"
	}
	return &domain.ConfigurationError{
		Field:      field,
		Value:      value,
		Reason:     reason,
		Suggestion: t.Suggest(value),
	}
}

var ufNames = map[string]string{
	"AC": "Acre", "AL": "Alagoas", "AM": "Amazonas", "AP": "Amapá",
	"BA": "Bahia", "CE": "Ceará", "DF": "Distrito Federal", "ES": "Espírito Santo",
	"GO": "Goiás", "MA": "Maranhão", "MG": "Minas Gerais", "MS": "Mato Grosso do Sul",
	"MT": "Mato Grosso", "PA": "Pará", "PB": "Paraíba", "PE": "Pernambuco",
	"PI": "Piauí", "PR": "Paraná", "RJ": "Rio de Janeiro", "RN": "Rio Grande do Norte",
	"RO": "Rondônia", "RR": "Roraima", "RS": "Rio Grande do Sul", "SC": "Santa Catarina",
	"SE": "Sergipe", "SP": "São Paulo", "TO": "Tocantins",
}

// UFs adopting the double-base ("por dentro") calculation; the rest use single base.
var doubleBaseUFs = map[string]bool{
	"AL": true, "BA": true, "GO": true, "MA": true, "MG": true, "MS": true,
	"MT": true, "PA": true, "PB": true, "PE": true, "PI": true, "PR": true,
	"RJ": true, "RS": true, "SC": true, "SE": true, "SP": true, "TO": true,
}

// internal rate, FCP rate
var defaultRates = map[string][2]float64{
	"AC": {19, 0},
	"AL": {19, 1},
	"AM": {20, 0},
	"AP": {18, 0},
	"BA": {20.5, 2},
	"CE": {20, 2},
	"DF": {20, 0},
	"ES": {17, 0},
	"GO": {19, 2},
	"MA": {23, 2},
	"MG": {18, 2},
	"MS": {17, 2},
	"MT": {17, 2},
	"PA": {19, 0},
	"PB": {20, 2},
	"PE": {20.5, 0},
	"PI": {22.5, 1},
	"PR": {19.5, 0},
	"RJ": {20, 2},
	"RN": {18, 2},
	"RO": {19.5, 2},
	"RR": {20, 0},
	"RS": {17, 0},
	"SC": {17, 0},
	"SE": {19, 2},
	"SP": {18, 0},
	"TO": {20, 2},
}
