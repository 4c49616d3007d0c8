package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	cases := map[string]string{
		"Código do Item":    "CODIGO DO ITEM",
		"  redução   base ": "REDUCAO BASE",
		"São Paulo":         "SAO PAULO",
		"valor (%)":         "VALOR",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Text(in), in)
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "0102", Digits(" 0-1.02 "))
	assert.Equal(t, "", Digits("abc"))
}
