package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// markerCutset is stripped from both ends of account numbers and codes.
const markerCutset = "* \t\r\n\u00a0"

// maxExponent bounds the exponent form ("1e9") that is expanded to digits.
const maxExponent = 64

// Number canonicalizes an account number or COA code so that join keys
// compare by plain string equality. Numeric text is rendered exactly, without
// a trailing ".0"; anything that does not parse is returned trimmed.
func Number(raw string) string {
	trimmed := strings.Trim(raw, markerCutset)
	if trimmed == "" {
		return trimmed
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil || d.Exponent() > maxExponent {
		return trimmed
	}

	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String()
	}
	return d.String()
}

// StripBold removes markdown bold delimiters the LLM may echo into values.
func StripBold(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

// Text trims whitespace and bold delimiters from a free-text value.
func Text(s string) string {
	return strings.TrimSpace(StripBold(s))
}
