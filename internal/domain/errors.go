package domain

import (
	"fmt"
	"strings"
)

// DecodeError means no supported encoding could read the file.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("não foi possível decodificar o arquivo SPED: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConfigurationError aborts a run: missing, unknown or unmapped UF and similar.
type ConfigurationError struct {
	Field      string
	Value      string
	Reason     string
	Suggestion string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "configuração inválida (%s", e.Field)
	if e.Value != "" {
		fmt.Fprintf(&b, "=%q", e.Value)
	}
	fmt.Fprintf(&b, "): %s", e.Reason)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "; você quis dizer %q?", e.Suggestion)
	}
	return b.String()
}

// RecordFormatError describes a malformed line that was skipped.
type RecordFormatError struct {
	Line    int    `json:"line"`
	Reason  string `json:"reason"`
	Content string `json:"content,omitempty"`
}

func (e RecordFormatError) Error() string {
	return fmt.Sprintf("linha %d: %s", e.Line, e.Reason)
}

// ItemCalculationError is attached to a single result; the run continues.
type ItemCalculationError struct {
	ItemCode string
	Line     int
	Err      error
}

func (e *ItemCalculationError) Error() string {
	return fmt.Sprintf("erro no cálculo do item %s (linha %d): %v", e.ItemCode, e.Line, e.Err)
}

func (e *ItemCalculationError) Unwrap() error {
	return e.Err
}
