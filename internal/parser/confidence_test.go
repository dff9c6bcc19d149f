package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/shopspring/decimal"
)

func TestScore(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	long := strings.Repeat("x", 101)

	tests := []struct {
		name string
		inv  models.Invoice
		text string
		want int
	}{
		{"nothing found", models.Invoice{}, "", 60},
		{"corrupt text", models.Invoice{}, "Fatura N? ���", 50},
		{"unrepaired mojibake", models.Invoice{}, "Ã‡imento Ã x", 50},
		{"turkish text", models.Invoice{}, "Çimento ürün", 60},
		{"number and date", models.Invoice{InvoiceNumber: "AB123", InvoiceDate: &date}, "", 90},
		{"long text", models.Invoice{}, long, 65},
		{"everything clamps to 100", models.Invoice{
			InvoiceNumber: "AB123",
			InvoiceDate:   &date,
			SupplierName:  "BRIO",
			TotalAmount:   decimal.NewFromInt(10),
			Items:         []models.InvoiceItem{{ProductName: "BRIO TANK"}},
		}, long, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(&tt.inv, tt.text); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreIsMonotoneAndBounded(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	steps := []func(*models.Invoice){
		func(inv *models.Invoice) { inv.InvoiceNumber = "AB123" },
		func(inv *models.Invoice) { inv.InvoiceDate = &date },
		func(inv *models.Invoice) { inv.SupplierName = "BRIO Yapı" },
		func(inv *models.Invoice) { inv.TotalAmount = decimal.NewFromInt(4692) },
		func(inv *models.Invoice) { inv.Items = []models.InvoiceItem{{ProductName: "BRIO TANK"}} },
	}

	for _, text := range []string{"", "N?", strings.Repeat("fatura ", 30)} {
		inv := &models.Invoice{}
		prev := Score(inv, text)
		for i, step := range steps {
			step(inv)
			got := Score(inv, text)
			if got < prev {
				t.Errorf("step %d lowered the score from %d to %d", i, prev, got)
			}
			if got < 0 || got > 100 {
				t.Errorf("score %d out of range", got)
			}
			prev = got
		}
	}
}
