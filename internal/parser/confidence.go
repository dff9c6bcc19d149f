package parser

import (
	"unicode/utf8"

	"github.com/facturaIA/invoice-stock-service/internal/models"
)

// Score rates how complete an interpreted invoice is, from 0 to 100. Every
// signal only ever adds points, so finding more never lowers the score.
func Score(inv *models.Invoice, text string) int {
	score := 50
	if inv.HasNumber() {
		score += 15
	}
	if inv.HasDate() {
		score += 15
	}
	if inv.HasSupplier() {
		score += 10
	}
	if !inv.TotalAmount.IsZero() {
		score += 10
	}
	if len(inv.Items) > 0 {
		score += 20
	}
	if utf8.RuneCountInString(text) > 100 {
		score += 5
	}
	if !HasCorruption(text) {
		score += 10
	}
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
