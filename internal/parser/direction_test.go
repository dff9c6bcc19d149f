package parser

import (
	"testing"

	"github.com/facturaIA/invoice-stock-service/internal/models"
)

func TestClassifyHintWins(t *testing.T) {
	c := NewDirectionClassifier(nil)
	saleText := "SATIŞ FATURASI\nMüşteri: Demir İnşaat\nTahsilat"

	tests := []struct {
		hint string
		want models.Direction
	}{
		{"purchase", models.DirectionPurchase},
		{"PURCHASE_RETURN", models.DirectionPurchaseReturn},
		{"sale-return", models.DirectionSaleReturn},
		{"Sale", models.DirectionSale},
		{"1", models.DirectionPurchase},
		{"4", models.DirectionSaleReturn},
	}
	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			if got := c.Classify(saleText, tt.hint); got != tt.want {
				t.Errorf("Classify(hint %q) = %s, want %s", tt.hint, got, tt.want)
			}
		})
	}
}

func TestClassifyKeywords(t *testing.T) {
	c := NewDirectionClassifier(nil)

	tests := []struct {
		name string
		text string
		hint string
		want models.Direction
	}{
		{"sale phrase", "SATIŞ FATURASI\nMüşteri: Demir İnşaat", "", models.DirectionSale},
		{"purchase phrase", "ALIŞ FATURASI\nTedarikçi: BRIO Yapı", "", models.DirectionPurchase},
		{"english sale", "Sales Invoice\nBill To: ACME Corp", "", models.DirectionSale},
		{"sale return", "İADE FATURASI\nSatış\nMüşteri: Demir", "", models.DirectionSaleReturn},
		{"purchase return", "Purchase\nRefund for damaged goods", "", models.DirectionPurchaseReturn},
		{"tie", "Fatura", "", models.DirectionPurchase},
		{"tie with return", "Return of goods", "", models.DirectionPurchaseReturn},
		{"unknown hint ignored", "SATIŞ FATURASI", "wholesale", models.DirectionSale},
		{"empty", "", "", models.DirectionPurchase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text, tt.hint); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestScoresCountKeywordsOnce(t *testing.T) {
	c := NewDirectionClassifier(nil)

	once := c.Scores("SATIŞ FATURASI")
	twice := c.Scores("SATIŞ FATURASI\nsatış faturası\nSatis Faturasi")
	if once.Sale != 70 {
		t.Errorf("Sale = %d, want 70 (phrase 50 + word 20)", once.Sale)
	}
	if twice.Sale != once.Sale {
		t.Errorf("repeated keywords scored %d, want %d", twice.Sale, once.Sale)
	}
	if once.Purchase != 0 {
		t.Errorf("Purchase = %d, want 0", once.Purchase)
	}
}
