package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/shopspring/decimal"
)

const sampleInvoice = `BRIO YAPI MARKET LTD. ŞTİ.
Fatura No: AB123
Tarih: 15.03.2024
1 BRIO TANK 6 adet 782,00 4692,00
Genel Toplam: 4.692,00 TL`

func TestInterpretSampleInvoice(t *testing.T) {
	ip := NewInterpreter(nil)
	inv := ip.Interpret(sampleInvoice, "brio.txt", "")

	if inv.InvoiceNumber != "AB123" {
		t.Errorf("InvoiceNumber = %q, want AB123", inv.InvoiceNumber)
	}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if inv.InvoiceDate == nil || !inv.InvoiceDate.Equal(want) {
		t.Errorf("InvoiceDate = %v, want %v", inv.InvoiceDate, want)
	}
	if inv.SupplierName != "BRIO YAPI MARKET LTD. ŞTİ." {
		t.Errorf("SupplierName = %q", inv.SupplierName)
	}
	if !inv.TotalAmount.Equal(decimal.NewFromInt(4692)) {
		t.Errorf("TotalAmount = %s, want 4692", inv.TotalAmount)
	}
	if inv.Direction != models.DirectionPurchase {
		t.Errorf("Direction = %s, want Purchase", inv.Direction)
	}
	if inv.Status != models.StatusPendingReview {
		t.Errorf("Status = %s", inv.Status)
	}
	if inv.Confidence < 90 {
		t.Errorf("Confidence = %d, want >= 90", inv.Confidence)
	}

	if len(inv.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(inv.Items))
	}
	it := inv.Items[0]
	if it.ProductName != "BRIO TANK" || it.Unit != "adet" {
		t.Errorf("item = %q %q", it.ProductName, it.Unit)
	}
	if !it.Quantity.Equal(decimal.NewFromInt(6)) || !it.UnitPrice.Equal(decimal.NewFromInt(782)) ||
		!it.TotalPrice.Equal(decimal.NewFromInt(4692)) {
		t.Errorf("item amounts = %s x %s = %s", it.Quantity, it.UnitPrice, it.TotalPrice)
	}
}

func TestInterpretSaleWithVAT(t *testing.T) {
	text := strings.Join([]string{
		"SATIŞ FATURASI",
		"Sayın Demir İnşaat Taahhüt",
		"Fatura Tarihi: 02/01/2024",
		"Fatura Numarası: SF-2024-0007",
		"1 Çimento 50 kg 3,50 175,00",
		"2 Kum 2 ton 400,00 800,00",
		"Ara Toplam: 975,00",
		"KDV (%20): 195,00",
		"Genel Toplam: 1.170,00 TL",
	}, "\n")

	inv := NewInterpreter(nil).Interpret(text, "satis.pdf", "")

	if inv.Direction != models.DirectionSale {
		t.Errorf("Direction = %s, want Sale", inv.Direction)
	}
	if inv.InvoiceNumber != "SF-2024-0007" {
		t.Errorf("InvoiceNumber = %q", inv.InvoiceNumber)
	}
	if inv.CustomerName != "Demir İnşaat Taahhüt" {
		t.Errorf("CustomerName = %q", inv.CustomerName)
	}
	if inv.InvoiceDate == nil || inv.InvoiceDate.Month() != time.January || inv.InvoiceDate.Day() != 2 {
		t.Errorf("InvoiceDate = %v, want 2024-01-02", inv.InvoiceDate)
	}
	if !inv.TotalAmount.Equal(decimal.NewFromInt(1170)) {
		t.Errorf("TotalAmount = %s, want 1170", inv.TotalAmount)
	}
	if inv.VATAmount == nil || !inv.VATAmount.Equal(decimal.NewFromInt(195)) {
		t.Errorf("VATAmount = %v, want 195", inv.VATAmount)
	}
	if len(inv.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(inv.Items))
	}
	if inv.Items[1].Unit != "ton" {
		t.Errorf("Unit = %q, want ton", inv.Items[1].Unit)
	}
}

func TestInterpretHintOverridesText(t *testing.T) {
	inv := NewInterpreter(nil).Interpret("SATIŞ FATURASI", "x.txt", "PurchaseReturn")
	if inv.Direction != models.DirectionPurchaseReturn {
		t.Errorf("Direction = %s, want PurchaseReturn", inv.Direction)
	}
}

func TestInterpretEmptyText(t *testing.T) {
	inv := NewInterpreter(nil).Interpret("", "empty.txt", "")
	if len(inv.Items) != 0 || inv.HasNumber() || inv.HasDate() {
		t.Errorf("unexpected fields from empty text: %+v", inv)
	}
	if inv.Status != models.StatusPendingReview {
		t.Errorf("Status = %s", inv.Status)
	}
	if inv.Confidence != 60 {
		t.Errorf("Confidence = %d, want 60", inv.Confidence)
	}
}

func TestInterpretRepairsMojibake(t *testing.T) {
	inv := NewInterpreter(nil).Interpret("SATIÅž FATURASI\n1 Ã‡imento 50 kg 3,50 175,00", "m.txt", "")
	if inv.Direction != models.DirectionSale {
		t.Errorf("Direction = %s, want Sale after repair", inv.Direction)
	}
	if len(inv.Items) != 1 || inv.Items[0].ProductName != "Çimento" {
		t.Errorf("items = %+v", inv.Items)
	}
}
