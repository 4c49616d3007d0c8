package sped

import (
	"strconv"
	"strings"
	"time"
)

const spedDateLayout = "02012006"

// parseNumberSped parses a number from SPED format.
func parseNumberSped(val string) float64 {
	if val == "" {
		return 0.0
	}
	s := strings.Replace(val, ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

// parseDateSped parses a DDMMYYYY date; the zero time is returned for empty or invalid input.
func parseDateSped(val string) time.Time {
	if len(val) != len(spedDateLayout) {
		return time.Time{}
	}
	t, err := time.Parse(spedDateLayout, val)
	if err != nil {
		return time.Time{}
	}
	return t
}

// truncate cuts s to n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}
