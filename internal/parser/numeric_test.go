package parser

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"782,00", "782"},
		{"4.692,00", "4692"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234.567,89", "1234567.89"},
		{"1,234,567.89", "1234567.89"},
		{"1.234", "1234"},
		{"1.234.567", "1234567"},
		{"12.50", "12.5"},
		{"12.5", "12.5"},
		{"54,760", "54.76"},
		{"1,234,567", "1234567"},
		{"6", "6"},
		{" 2,5 ", "2.5"},

		// malformed
		{"", "0"},
		{"abc", "0"},
		{"12a", "0"},
		{",5", "0"},
		{"5,", "0"},
		{"1..2", "0"},
		{"1,2,3.4.5", "0"},
		{"-5", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := ParseAmount(tt.token)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.token, got, tt.want)
			}
		})
	}
}
