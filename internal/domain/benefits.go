package domain

import (
	"fmt"
	"strings"
)

// BenefitKind tags the fiscal benefit variants.
type BenefitKind string

const (
	BenefitBaseReduction            BenefitKind = "REDUCAO_BASE"
	BenefitOriginRateReduction      BenefitKind = "REDUCAO_ALIQUOTA_ORIGEM"
	BenefitDestinationRateReduction BenefitKind = "REDUCAO_ALIQUOTA_DESTINO"
	BenefitExemption                BenefitKind = "ISENCAO"
)

// Benefit is a closed union: only the four types below implement it.
type Benefit interface {
	Kind() BenefitKind
	isBenefit()
}

// BaseReduction reduces the destination base so the effective burden equals TargetBurden (%).
type BaseReduction struct {
	TargetBurden float64
}

// OriginRateReduction replaces the effective origin rate.
type OriginRateReduction struct {
	NewRate float64
}

// DestinationRateReduction replaces the destination internal rate.
type DestinationRateReduction struct {
	NewRate float64
}

// Exemption zeroes DIFAL and FCP.
type Exemption struct{}

func (BaseReduction) Kind() BenefitKind            { return BenefitBaseReduction }
func (OriginRateReduction) Kind() BenefitKind      { return BenefitOriginRateReduction }
func (DestinationRateReduction) Kind() BenefitKind { return BenefitDestinationRateReduction }
func (Exemption) Kind() BenefitKind                { return BenefitExemption }

func (BaseReduction) isBenefit()            {}
func (OriginRateReduction) isBenefit()      {}
func (DestinationRateReduction) isBenefit() {}
func (Exemption) isBenefit()                {}

// BenefitConfig maps item codes to the single benefit configured for them.
type BenefitConfig map[string]Benefit

// BenefitInfo is the serializable trace of the benefit considered for an item.
type BenefitInfo struct {
	Kind      BenefitKind `json:"kind"`
	Parameter *float64    `json:"parameter,omitempty"`
	Applied   bool        `json:"applied"`
	Note      string      `json:"note,omitempty"`
}

// DescribeBenefit builds the BenefitInfo of b, without the applied flag.
func DescribeBenefit(b Benefit) *BenefitInfo {
	if b == nil {
		return nil
	}
	info := &BenefitInfo{Kind: b.Kind()}
	switch v := b.(type) {
	case BaseReduction:
		p := v.TargetBurden
		info.Parameter = &p
	case OriginRateReduction:
		p := v.NewRate
		info.Parameter = &p
	case DestinationRateReduction:
		p := v.NewRate
		info.Parameter = &p
	}
	return info
}

// ParseBenefitKind accepts the canonical tags plus the spellings found in benefit sheets.
func ParseBenefitKind(s string) (BenefitKind, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_", "Ç", "C", "Ã", "A", "Í", "I").Replace(key)
	switch key {
	case "REDUCAO_BASE", "REDUCAO_DE_BASE", "REDUCAO_DA_BASE", "BASE_REDUCTION", "REDUCAO_BC", "RBC":
		return BenefitBaseReduction, nil
	case "REDUCAO_ALIQUOTA_ORIGEM", "REDUCAO_DE_ALIQUOTA_ORIGEM", "ORIGIN_RATE_REDUCTION", "ALIQUOTA_ORIGEM":
		return BenefitOriginRateReduction, nil
	case "REDUCAO_ALIQUOTA_DESTINO", "REDUCAO_DE_ALIQUOTA_DESTINO", "DESTINATION_RATE_REDUCTION", "ALIQUOTA_DESTINO":
		return BenefitDestinationRateReduction, nil
	case "ISENCAO", "EXEMPTION", "ISENTO":
		return BenefitExemption, nil
	}
	return "", fmt.Errorf("tipo de benefício desconhecido: %q", s)
}

// NewBenefit builds the variant for kind. value is required for every kind except
// exemption; a nil value is reported as an error so no variant carries an undefined parameter.
func NewBenefit(kind BenefitKind, value *float64) (Benefit, error) {
	if kind == BenefitExemption {
		return Exemption{}, nil
	}
	if value == nil {
		return nil, fmt.Errorf("benefício %s sem valor informado", kind)
	}
	switch kind {
	case BenefitBaseReduction:
		return BaseReduction{TargetBurden: *value}, nil
	case BenefitOriginRateReduction:
		return OriginRateReduction{NewRate: *value}, nil
	case BenefitDestinationRateReduction:
		return DestinationRateReduction{NewRate: *value}, nil
	}
	return nil, fmt.Errorf("tipo de benefício desconhecido: %q", kind)
}
