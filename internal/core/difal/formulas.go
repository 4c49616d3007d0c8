package difal

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"difal-service/internal/domain"
)

// singleBase applies DIFAL = base × (destination − origin) / 100. A base
// reduction shrinks only the destination side.
func (e *Engine) singleBase(c *calculation, benefit domain.Benefit, info *domain.BenefitInfo, t *trail) {
	e.applyOriginBenefit(c, benefit, info, t)
	e.applyDestinationRateBenefit(c, benefit, info, t)

	destinationBase := c.base
	if reduction, ok := e.baseReduction(c.destinationRate, benefit, info, t); ok {
		destinationBase = c.base * (1 - reduction/100)
		t.add("Base reduzida no destino = %s × (1 − %s%%) = %s", t.num(c.base), t.num(reduction), t.num(destinationBase))
	}

	originICMS := c.base * c.originRate / 100
	destinationICMS := destinationBase * c.destinationRate / 100
	c.difal = math.Max(0, destinationICMS-originICMS)
	c.fcp = math.Max(0, c.base*c.fcpRate/100)

	if destinationBase == c.base {
		t.add("DIFAL (base única) = max(0, %s × (%s%% − %s%%) / 100) = %s",
			t.num(c.base), t.num(c.destinationRate), t.num(c.originRate), t.num(c.difal))
	} else {
		t.add("DIFAL (base única) = max(0, (%s × %s%% − %s × %s%%) / 100) = %s",
			t.num(destinationBase), t.num(c.destinationRate), t.num(c.base), t.num(c.originRate), t.num(c.difal))
	}
	t.add("FCP = %s × %s%% = %s", t.num(c.base), t.num(c.fcpRate), t.num(c.fcp))
}

// doubleBase removes the origin ICMS from the base, re-grosses it at the
// destination rate and charges the difference between both taxes.
func (e *Engine) doubleBase(c *calculation, benefit domain.Benefit, info *domain.BenefitInfo, t *trail) error {
	value := c.base
	e.applyOriginBenefit(c, benefit, info, t)
	t.add("Passo 1: valor com benefício de origem = %s, alíquota de origem efetiva = %s%%", t.num(value), t.num(c.originRate))

	interstateICMS := value * c.originRate / 100
	t.add("Passo 2: ICMS interestadual = %s × %s%% = %s", t.num(value), t.num(c.originRate), t.num(interstateICMS))

	base1 := value - interstateICMS
	t.add("Passo 3: base sem ICMS de origem = %s − %s = %s", t.num(value), t.num(interstateICMS), t.num(base1))

	e.applyDestinationRateBenefit(c, benefit, info, t)
	t.add("Passo 4: alíquota de destino efetiva = %s%%", t.num(c.destinationRate))
	if c.destinationRate >= 100 {
		return fmt.Errorf("alíquota de destino %.2f%% impede o cálculo por dentro", c.destinationRate)
	}

	newBase := base1 / (1 - c.destinationRate/100)
	t.add("Passo 5: nova base = %s / (1 − %s%%) = %s", t.num(base1), t.num(c.destinationRate), t.num(newBase))

	base2 := newBase
	if reduction, ok := e.baseReduction(c.destinationRate, benefit, info, t); ok {
		base2 = newBase * (1 - reduction/100)
	}
	t.add("Passo 6: base após redução no destino = %s", t.num(base2))

	internalICMS := base2 * c.destinationRate / 100
	t.add("Passo 7: ICMS interno = %s × %s%% = %s", t.num(base2), t.num(c.destinationRate), t.num(internalICMS))

	c.difal = math.Max(0, internalICMS-interstateICMS)
	t.add("Passo 8: DIFAL (base dupla) = max(0, %s − %s) = %s", t.num(internalICMS), t.num(interstateICMS), t.num(c.difal))

	// Only the double-base FCP is scaled by the destination share.
	c.fcp = math.Max(0, c.base*c.fcpRate*e.share/10000)
	t.add("FCP = %s × %s%% × %s%% = %s", t.num(c.base), t.num(c.fcpRate), t.num(e.share), t.num(c.fcp))
	return nil
}

func (e *Engine) applyOriginBenefit(c *calculation, benefit domain.Benefit, info *domain.BenefitInfo, t *trail) {
	b, ok := benefit.(domain.OriginRateReduction)
	if !ok {
		return
	}
	if !validRate(b.NewRate) {
		info.Note = "alíquota de origem informada inválida, benefício ignorado"
		t.add("Benefício REDUCAO_ALIQUOTA_ORIGEM rejeitado: alíquota %v inválida", b.NewRate)
		return
	}
	t.add("Benefício REDUCAO_ALIQUOTA_ORIGEM: alíquota de origem %s%% → %s%%", t.num(c.originRate), t.num(b.NewRate))
	c.originRate = b.NewRate
	info.Applied = true
}

func (e *Engine) applyDestinationRateBenefit(c *calculation, benefit domain.Benefit, info *domain.BenefitInfo, t *trail) {
	b, ok := benefit.(domain.DestinationRateReduction)
	if !ok {
		return
	}
	if !validRate(b.NewRate) {
		info.Note = "alíquota de destino informada inválida, benefício ignorado"
		t.add("Benefício REDUCAO_ALIQUOTA_DESTINO rejeitado: alíquota %v inválida", b.NewRate)
		return
	}
	t.add("Benefício REDUCAO_ALIQUOTA_DESTINO: alíquota de destino %s%% → %s%%", t.num(c.destinationRate), t.num(b.NewRate))
	c.destinationRate = b.NewRate
	info.Applied = true
}

// baseReduction returns the percentage by which the destination base is reduced
// so the burden equals the target: (nominal − target) / nominal × 100.
func (e *Engine) baseReduction(nominalRate float64, benefit domain.Benefit, info *domain.BenefitInfo, t *trail) (float64, bool) {
	b, ok := benefit.(domain.BaseReduction)
	if !ok {
		return 0, false
	}
	if math.IsNaN(b.TargetBurden) || b.TargetBurden <= 0 || nominalRate <= 0 {
		info.Note = "carga efetiva alvo ausente ou não positiva, benefício ignorado"
		t.add("Benefício REDUCAO_BASE rejeitado: carga efetiva alvo %v inválida", b.TargetBurden)
		return 0, false
	}
	reduction := (nominalRate - b.TargetBurden) / nominalRate * 100
	if reduction <= 0 {
		info.Note = "carga efetiva alvo não é menor que a alíquota nominal, benefício ignorado"
		t.add("Benefício REDUCAO_BASE rejeitado: carga alvo %s%% ≥ alíquota nominal %s%%", t.num(b.TargetBurden), t.num(nominalRate))
		return 0, false
	}
	t.add("Benefício REDUCAO_BASE: redução = (%s%% − %s%%) / %s%% × 100 = %s%%",
		t.num(nominalRate), t.num(b.TargetBurden), t.num(nominalRate), t.num(reduction))
	info.Applied = true
	return reduction, true
}

func validRate(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r >= 0 && r < 100
}

// trail collects the human-readable calculation steps of one item.
type trail struct {
	lines     []string
	precision int32
}

func newTrail(precision int32) *trail {
	return &trail{precision: precision}
}

func (t *trail) add(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

// num formats v rounded to the run precision, the same rounding used for the result fields.
func (t *trail) num(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(t.precision)
}
