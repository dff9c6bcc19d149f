package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numericToken matches a number as it appears on an invoice line: digits with
// optional dot/comma groups ("6", "782,00", "1.234,56", "1,234.56").
var numericToken = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// ParseAmount converts a locale-mixed numeric token to a decimal.
//
//   - with both separators, the last one is the decimal separator
//   - a single comma is decimal ("782,00", "54,760"), several commas group thousands
//   - a single dot followed by at most two digits is decimal, otherwise dots group thousands
//
// Malformed tokens yield zero.
func ParseAmount(token string) decimal.Decimal {
	s := strings.TrimSpace(token)
	if s == "" {
		return decimal.Zero
	}

	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == ',':
		default:
			return decimal.Zero
		}
	}
	if !hasDigit || isSeparator(s[0]) || isSeparator(s[len(s)-1]) {
		return decimal.Zero
	}
	for _, pair := range []string{"..", ",,", ".,", ",."} {
		if strings.Contains(s, pair) {
			return decimal.Zero
		}
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	var normalized string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		dec, group := ",", "."
		if lastDot > lastComma {
			dec, group = ".", ","
		}
		stripped := strings.ReplaceAll(s, group, "")
		if strings.Count(stripped, dec) != 1 {
			return decimal.Zero
		}
		normalized = strings.Replace(stripped, dec, ".", 1)

	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			normalized = strings.Replace(s, ",", ".", 1)
		} else {
			normalized = strings.ReplaceAll(s, ",", "")
		}

	case lastDot >= 0:
		if strings.Count(s, ".") == 1 && len(s)-lastDot-1 <= 2 {
			normalized = s
		} else {
			normalized = strings.ReplaceAll(s, ".", "")
		}

	default:
		normalized = s
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isSeparator(b byte) bool {
	return b == '.' || b == ','
}
