package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBenefitKind(t *testing.T) {
	tests := map[string]BenefitKind{
		"REDUCAO_BASE":               BenefitBaseReduction,
		"Redução de Base":            BenefitBaseReduction,
		"rbc":                        BenefitBaseReduction,
		"alíquota origem":            BenefitOriginRateReduction,
		"destination-rate-reduction": BenefitDestinationRateReduction,
		"Isenção":                    BenefitExemption,
	}
	for in, want := range tests {
		got, err := ParseBenefitKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseBenefitKind("desconto")
	assert.Error(t, err)
}

func TestNewBenefit(t *testing.T) {
	v := 9.0
	b, err := NewBenefit(BenefitBaseReduction, &v)
	require.NoError(t, err)
	assert.Equal(t, BaseReduction{TargetBurden: 9}, b)

	b, err = NewBenefit(BenefitExemption, nil)
	require.NoError(t, err)
	assert.Equal(t, BenefitExemption, b.Kind())

	_, err = NewBenefit(BenefitOriginRateReduction, nil)
	assert.Error(t, err)

	_, err = NewBenefit("OUTRO", &v)
	assert.Error(t, err)
}

func TestDescribeBenefit(t *testing.T) {
	assert.Nil(t, DescribeBenefit(nil))

	info := DescribeBenefit(DestinationRateReduction{NewRate: 12})
	require.NotNil(t, info.Parameter)
	assert.Equal(t, 12.0, *info.Parameter)
	assert.False(t, info.Applied)

	assert.Nil(t, DescribeBenefit(Exemption{}).Parameter)
}

func TestErrors(t *testing.T) {
	cfg := &ConfigurationError{Field: "destination_uf", Value: "SPP", Reason: "UF desconhecida", Suggestion: "SP"}
	assert.Equal(t, `configuração inválida (destination_uf="SPP"): UF desconhecida; você quis dizer "SP"?`, cfg.Error())

	inner := errors.New("divisão por zero")
	itemErr := &ItemCalculationError{ItemCode: "A1", Line: 7, Err: inner}
	wrapped := fmt.Errorf("run: %w", itemErr)
	assert.ErrorIs(t, wrapped, inner)
	var target *ItemCalculationError
	assert.True(t, errors.As(wrapped, &target))

	decodeErr := &DecodeError{Err: inner}
	assert.ErrorIs(t, decodeErr, inner)

	assert.Equal(t, "linha 3: campos insuficientes", RecordFormatError{Line: 3, Reason: "campos insuficientes"}.Error())
}

func TestInvoiceHeader_Cancelled(t *testing.T) {
	for _, sit := range []string{"02", "03", "04", "05"} {
		assert.True(t, InvoiceHeader{Situation: sit}.Cancelled(), sit)
	}
	for _, sit := range []string{"00", "01", "06", "08", ""} {
		assert.False(t, InvoiceHeader{Situation: sit}.Cancelled(), sit)
	}
}

func TestFiscalRecord_Field(t *testing.T) {
	rec := FiscalRecord{Type: "C100", Fields: []string{"C100", "0"}}
	assert.Equal(t, "0", rec.Field(1))
	assert.Empty(t, rec.Field(5))
	assert.Empty(t, rec.Field(-1))

	var reg *Registry
	assert.Nil(t, reg.Type("C100"))
}
