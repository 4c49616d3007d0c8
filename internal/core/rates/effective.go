// package rates/effective.go
package rates

import (
	"fmt"

	"difal-service/internal/core/normalize"
	"difal-service/internal/domain"
)

// legacyNationalRate is used for national goods under CSOSN when the route is unknown.
const legacyNationalRate = 7.0

const importedRate = 4.0

var (
	csosnSituations = map[string]bool{
		"101": true, "102": true, "103": true,
		"201": true, "202": true, "203": true,
		"300": true, "400": true, "500": true,
		"900": true,
	}
	cstSituations = map[string]bool{
		"00": true, "10": true, "20": true, "30": true, "40": true,
		"41": true, "50": true, "51": true, "60": true, "70": true, "90": true,
	}
	// ambiguousCSOSN are three-digit codes that also read as origin + CST 00.
	ambiguousCSOSN = map[string]bool{"300": true, "400": true, "500": true}
	// importedOrigins are the origin indicators treated as imported under CSOSN.
	importedOrigins = map[string]bool{"1": true, "2": true, "6": true, "7": true}
)

// Classify normalizes a CST/CSOSN code. Two digits are a CST; three digits are a
// CSOSN when listed in the CSOSN table, otherwise origin + CST; four digits are
// origin + CSOSN.
func Classify(code string) domain.TaxSituation {
	digits := normalize.Digits(code)
	sit := domain.TaxSituation{Code: digits, Regime: domain.RegimeUnknown, Situation: digits}

	switch len(digits) {
	case 2:
		sit.Regime = domain.RegimeNormal
		sit.Mapped = cstSituations[digits]
	case 3:
		if csosnSituations[digits] {
			sit.Regime = domain.RegimeSimplified
			sit.Mapped = true
			break
		}
		sit.Regime = domain.RegimeNormal
		sit.Origin = digits[:1]
		sit.Situation = digits[1:]
		sit.Mapped = cstSituations[sit.Situation]
	case 4:
		if csosnSituations[digits[1:]] {
			sit.Regime = domain.RegimeSimplified
			sit.Origin = digits[:1]
			sit.Situation = digits[1:]
			sit.Mapped = true
		}
	}
	return sit
}

// RateInput carries what EffectiveRate needs from a line item.
type RateInput struct {
	Code        string
	GrossValue  float64
	ChargedICMS float64
	NominalRate float64
	// InterstateRate is the route rate (7 or 12) applied to national goods under CSOSN.
	InterstateRate float64
}

// RateResolution is the effective origin rate plus how it was obtained.
type RateResolution struct {
	Rate      float64
	Situation domain.TaxSituation
	Rule      string
	Warning   string
}

// EffectiveRate resolves the ICMS rate actually borne at origin, in percent.
func EffectiveRate(in RateInput) RateResolution {
	sit := Classify(in.Code)
	res := RateResolution{Situation: sit}

	if sit.Code == "" || in.GrossValue <= 0 {
		res.Rule = "dados insuficientes"
		return res
	}

	if ambiguousCSOSN[sit.Code] {
		return resolveAmbiguous(in, res)
	}
	if sit.Regime == domain.RegimeSimplified {
		return resolveCSOSN(in, res)
	}

	switch sit.Situation {
	case "00", "90":
		res.Rate = in.NominalRate
		res.Rule = "tributado integralmente: alíquota nominal"
	case "10", "30", "60":
		res.Rule = "substituição tributária: alíquota zero"
	case "20", "70":
		if in.ChargedICMS > 0 {
			res.Rate = in.ChargedICMS / in.GrossValue * 100
		}
		res.Rule = "redução de base: ICMS destacado / valor do item × 100"
	case "40", "41", "50", "51":
		res.Rule = "isento/não tributado/suspenso/diferido: alíquota zero"
	default:
		res.Rate = in.NominalRate
		res.Rule = "código sem mapeamento: alíquota nominal"
		res.Warning = fmt.Sprintf("CST/CSOSN %q sem mapeamento, usada a alíquota nominal %.2f%%", in.Code, in.NominalRate)
	}
	return res
}

func resolveCSOSN(in RateInput, res RateResolution) RateResolution {
	switch res.Situation.Situation {
	case "300", "400", "500":
		res.Rule = "CSOSN imune/não tributado/ST: alíquota zero"
		return res
	}

	if importedOrigins[res.Situation.Origin] {
		res.Rate = importedRate
		res.Rule = "CSOSN com mercadoria importada: 4%"
		return res
	}
	if in.InterstateRate > 0 {
		res.Rate = in.InterstateRate
		res.Rule = "CSOSN com mercadoria nacional: alíquota interestadual da rota"
		return res
	}
	res.Rate = legacyNationalRate
	res.Rule = "CSOSN com mercadoria nacional e rota desconhecida: 7%"
	return res
}

// resolveAmbiguous settles 300/400/500 by the charged ICMS: a highlighted tax
// means origin + CST 00, none keeps the CSOSN reading.
func resolveAmbiguous(in RateInput, res RateResolution) RateResolution {
	if in.ChargedICMS <= 0 {
		res = resolveCSOSN(in, res)
		res.Warning = fmt.Sprintf("código %q ambíguo (CSOSN ou origem %s + CST 00); sem ICMS destacado, tratado como CSOSN", in.Code, res.Situation.Code[:1])
		return res
	}

	res.Situation.Regime = domain.RegimeNormal
	res.Situation.Origin = res.Situation.Code[:1]
	res.Situation.Situation = "00"
	res.Situation.Mapped = true
	res.Rate = in.NominalRate
	res.Rule = "tributado integralmente: alíquota nominal"
	res.Warning = fmt.Sprintf("código %q ambíguo (CSOSN ou origem %s + CST 00); ICMS destacado, tratado como CST 00", in.Code, res.Situation.Origin)
	return res
}
