// package difal/engine.go
package difal

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"difal-service/internal/core/rates"
	"difal-service/internal/domain"
)

const (
	defaultPrecision        = 2
	maxPrecision            = 6
	defaultDestinationShare = 100.0
)

// Config is the per-run configuration of the engine.
type Config struct {
	OriginUF      string
	DestinationUF string
	// DestinationShare is the destination UF percentage of the double-base FCP;
	// nil means 100.
	DestinationShare *float64
	// Methodology forces a method; empty resolves it from the destination UF.
	Methodology      domain.Methodology
	Benefits         domain.BenefitConfig
	FCPOverride      *float64
	Precision        int
	UseParticipantUF bool
}

// Engine computes DIFAL for the line items of one run. It holds no mutable
// state, so one engine may calculate the same item any number of times with
// identical results.
type Engine struct {
	cfg           Config
	jurisdictions *rates.Jurisdictions
	originUF      string
	destination   rates.Jurisdiction
	methodology   domain.Methodology
	forced        bool
	share         float64
	fcpRate       float64
	precision     int32
}

// ResolveMethodology returns the methodology of a destination UF. An unknown UF
// is a configuration error.
func ResolveMethodology(jurisdictions *rates.Jurisdictions, destinationUF string) (domain.Methodology, error) {
	m, ok := jurisdictions.Methodology(destinationUF)
	if !ok {
		return "", jurisdictions.ConfigError("destination_uf", destinationUF)
	}
	return m, nil
}

// NewEngine validates cfg against the jurisdiction table. Every failure is a
// *domain.ConfigurationError.
func NewEngine(cfg Config, jurisdictions *rates.Jurisdictions) (*Engine, error) {
	if jurisdictions == nil {
		jurisdictions = rates.DefaultJurisdictions()
	}
	e := &Engine{cfg: cfg, jurisdictions: jurisdictions}

	origin, ok := jurisdictions.Resolve(cfg.OriginUF)
	if !ok {
		return nil, jurisdictions.ConfigError("origin_uf", cfg.OriginUF)
	}
	destination, ok := jurisdictions.Resolve(cfg.DestinationUF)
	if !ok {
		return nil, jurisdictions.ConfigError("destination_uf", cfg.DestinationUF)
	}
	e.originUF = origin
	e.destination, _ = jurisdictions.Lookup(destination)

	switch strings.ToUpper(string(cfg.Methodology)) {
	case "", "AUTO":
		m, err := ResolveMethodology(jurisdictions, destination)
		if err != nil {
			return nil, err
		}
		e.methodology = m
	case string(domain.SingleBase), "SINGLE", "UNICA":
		e.methodology, e.forced = domain.SingleBase, true
	case string(domain.DoubleBase), "DOUBLE", "DUPLA":
		e.methodology, e.forced = domain.DoubleBase, true
	default:
		return nil, &domain.ConfigurationError{
			Field:      "methodology",
			Value:      string(cfg.Methodology),
			Reason:     "metodologia desconhecida",
			Suggestion: string(domain.DoubleBase),
		}
	}

	e.share = defaultDestinationShare
	if cfg.DestinationShare != nil {
		e.share = *cfg.DestinationShare
	}
	if e.share < 0 || e.share > 100 || math.IsNaN(e.share) {
		return nil, &domain.ConfigurationError{Field: "destination_share", Value: fmt.Sprint(e.share), Reason: "percentual da UF de destino deve estar entre 0 e 100"}
	}

	e.fcpRate = e.destination.FCPRate
	if cfg.FCPOverride != nil {
		if *cfg.FCPOverride < 0 || *cfg.FCPOverride >= 100 || math.IsNaN(*cfg.FCPOverride) {
			return nil, &domain.ConfigurationError{Field: "fcp_override", Value: fmt.Sprint(*cfg.FCPOverride), Reason: "alíquota de FCP fora do intervalo"}
		}
		e.fcpRate = *cfg.FCPOverride
	}

	switch {
	case cfg.Precision == 0:
		e.precision = defaultPrecision
	case cfg.Precision < 0 || cfg.Precision > maxPrecision:
		return nil, &domain.ConfigurationError{Field: "precision", Value: fmt.Sprint(cfg.Precision), Reason: fmt.Sprintf("precisão deve estar entre 1 e %d", maxPrecision)}
	default:
		e.precision = int32(cfg.Precision)
	}

	return e, nil
}

// Settings echoes the resolved configuration.
func (e *Engine) Settings() domain.Settings {
	return domain.Settings{
		OriginUF:         e.originUF,
		DestinationUF:    e.destination.UF,
		DestinationShare: e.share,
		Methodology:      e.methodology,
		ForcedMethod:     e.forced,
		FCPOverride:      e.cfg.FCPOverride,
		Precision:        int(e.precision),
	}
}

// Calculate runs every item and aggregates the totals. Item failures never
// abort the run.
func (e *Engine) Calculate(items []domain.LineItem) ([]domain.CalculationResult, domain.Totals) {
	results := make([]domain.CalculationResult, 0, len(items))
	for _, item := range items {
		results = append(results, e.CalculateItem(item))
	}
	return results, Summarize(results, int(e.precision))
}

// CalculateItem computes one item. Any failure, panics included, yields a
// result with zeroed monetary fields and the error message attached.
func (e *Engine) CalculateItem(item domain.LineItem) (result domain.CalculationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = e.failed(item, fmt.Errorf("falha inesperada: %v", r))
		}
	}()

	out, err := e.calculate(item)
	if err != nil {
		return e.failed(item, err)
	}
	return out
}

func (e *Engine) failed(item domain.LineItem, err error) domain.CalculationResult {
	var itemErr *domain.ItemCalculationError
	if !errors.As(err, &itemErr) {
		itemErr = &domain.ItemCalculationError{ItemCode: item.ItemCode, Line: item.Line, Err: err}
	}
	return domain.CalculationResult{
		Item:          item,
		OriginUF:      e.itemOrigin(item),
		DestinationUF: e.destination.UF,
		Methodology:   e.methodology,
		Trail:         []string{itemErr.Error()},
		Error:         itemErr.Error(),
	}
}

// itemOrigin prefers the supplier's UF when enabled and known.
func (e *Engine) itemOrigin(item domain.LineItem) string {
	if e.cfg.UseParticipantUF && item.ParticipantUF != "" {
		if _, ok := e.jurisdictions.Lookup(item.ParticipantUF); ok {
			return strings.ToUpper(item.ParticipantUF)
		}
	}
	return e.originUF
}

// calculation carries the intermediate values of one item.
type calculation struct {
	base            float64
	originRate      float64
	destinationRate float64
	fcpRate         float64
	difal           float64
	fcp             float64
}

func (e *Engine) calculate(item domain.LineItem) (domain.CalculationResult, error) {
	if !finite(item.DifalBase, item.GrossValue, item.ICMSValue, item.ICMSRate) {
		return domain.CalculationResult{}, fmt.Errorf("valores numéricos inválidos no item")
	}

	origin := e.itemOrigin(item)
	t := newTrail(e.precision)
	res := domain.CalculationResult{
		Item:          item,
		OriginUF:      origin,
		DestinationUF: e.destination.UF,
		Methodology:   e.methodology,
	}

	t.add("Item %s (código %s), linha %d, CFOP %s (%s)", item.ItemNumber, item.ItemCode, item.Line, item.CFOP, item.CFOPCategory)
	t.add("Rota %s → %s, metodologia %s (%s)", origin, e.destination.UF, e.methodology, e.methodologySource())
	t.add("Base DIFAL = valor %s + IPI %s + frete %s + seguro %s + outras despesas %s − desconto %s = %s",
		t.num(item.GrossValue), t.num(item.IPIValue), t.num(item.Freight), t.num(item.Insurance),
		t.num(item.OtherExpenses), t.num(item.Discount), t.num(item.DifalBase))

	c := calculation{
		base:            item.DifalBase,
		destinationRate: e.destination.InternalRate,
		fcpRate:         e.fcpRate,
	}

	interstate := rates.InterstateRate(origin, e.destination.UF, item.TaxSituation.Origin)
	resolution := rates.EffectiveRate(rates.RateInput{
		Code:           item.TaxCode,
		GrossValue:     item.GrossValue,
		ChargedICMS:    item.ICMSValue,
		NominalRate:    item.ICMSRate,
		InterstateRate: interstate,
	})
	c.originRate = resolution.Rate
	t.add("Alíquota efetiva de origem = %s%% (CST/CSOSN %s: %s)", t.num(c.originRate), item.TaxCode, resolution.Rule)
	if resolution.Warning != "" {
		t.add("Aviso: %s", resolution.Warning)
	}
	fcpSource := "tabela da UF"
	if e.cfg.FCPOverride != nil {
		fcpSource = "informada manualmente"
	}
	t.add("Alíquota interna de %s = %s%%, FCP = %s%% (%s)", e.destination.UF, t.num(c.destinationRate), t.num(c.fcpRate), fcpSource)

	benefit := e.cfg.Benefits[item.ItemCode]
	res.Benefit = domain.DescribeBenefit(benefit)

	switch {
	case origin == e.destination.UF:
		t.add("Operação interna (%s → %s): DIFAL não devido", origin, e.destination.UF)
	case isExemption(benefit):
		res.Benefit.Applied = true
		res.Benefit.Note = "isenção: DIFAL e FCP zerados"
		t.add("Benefício ISENCAO aplicado: DIFAL = 0, FCP = 0")
	case e.methodology == domain.DoubleBase:
		if err := e.doubleBase(&c, benefit, res.Benefit, t); err != nil {
			return domain.CalculationResult{}, err
		}
	default:
		e.singleBase(&c, benefit, res.Benefit, t)
	}

	if !finite(c.difal, c.fcp) {
		return domain.CalculationResult{}, fmt.Errorf("resultado numérico inválido (DIFAL=%v, FCP=%v)", c.difal, c.fcp)
	}

	difal := e.round(c.difal)
	fcp := e.round(c.fcp)
	total := difal.Add(fcp)

	res.Base = e.round(c.base).InexactFloat64()
	res.OriginRate = e.round(c.originRate).InexactFloat64()
	res.DestinationRate = e.round(c.destinationRate).InexactFloat64()
	res.FCPRate = e.round(c.fcpRate).InexactFloat64()
	res.Difal = difal.InexactFloat64()
	res.FCP = fcp.InexactFloat64()
	res.Total = total.InexactFloat64()

	t.add("Total a recolher = DIFAL %s + FCP %s = %s", difal.StringFixed(e.precision), fcp.StringFixed(e.precision), total.StringFixed(e.precision))
	res.Trail = t.lines
	return res, nil
}

func (e *Engine) methodologySource() string {
	if e.forced {
		return "forçada na configuração"
	}
	return "definida pela UF de destino"
}

func (e *Engine) round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(e.precision)
}

func isExemption(b domain.Benefit) bool {
	_, ok := b.(domain.Exemption)
	return ok
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
