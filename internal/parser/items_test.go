package parser

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestExtractItems(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		name       string
		line       string
		product    string
		code       string
		qty        string
		unit       string
		price      string
		total      string
		confidence int
	}{
		{"row number and unit", "1 BRIO TANK 6 adet 782,00 4692,00", "BRIO TANK", "", "6", "adet", "782", "4692", 95},
		{"row number with dot", "2. Çimento 50 kg 3,50 175,00", "Çimento", "", "50", "kg", "3.5", "175", 95},
		{"total computed", "3 Vida M8 100 adet 0,50", "Vida M8", "", "100", "adet", "0.5", "50", 95},
		{"unit synonym", "Boya Beyaz 2,5 lt 120,00 300,00", "Boya Beyaz", "", "2.5", "litre", "120", "300", 90},
		{"product code", "BRT-0042 Vana Seti 3 45,00 TL 135,00 TL", "Vana Seti", "BRT-0042", "3", "adet", "45", "135", 85},
		{"total only", "Nakliye bedeli 1 sefer 150,00 TL", "Nakliye bedeli 1 sefer", "", "1", "adet", "150", "150", 70},
		{"vat column after price", "1 BRIO TANK 6 adet 782,00 %20 4692,00", "BRIO TANK", "", "6", "adet", "782", "4692", 95},
		{"vat column after name", "1 Vida M8 %20 100 adet 2,50 250,00", "Vida M8", "", "100", "adet", "2.5", "250", 95},
		{"number before vat column", "2 Boya 15 %18 4 adet 100,00 400,00", "Boya 15", "", "4", "adet", "100", "400", 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := e.ExtractItems(tt.line)
			if len(items) != 1 {
				t.Fatalf("ExtractItems(%q) returned %d items, want 1", tt.line, len(items))
			}
			it := items[0]
			if it.ProductName != tt.product {
				t.Errorf("ProductName = %q, want %q", it.ProductName, tt.product)
			}
			if it.ProductCode != tt.code {
				t.Errorf("ProductCode = %q, want %q", it.ProductCode, tt.code)
			}
			if !it.Quantity.Equal(decimal.RequireFromString(tt.qty)) {
				t.Errorf("Quantity = %s, want %s", it.Quantity, tt.qty)
			}
			if it.Unit != tt.unit {
				t.Errorf("Unit = %q, want %q", it.Unit, tt.unit)
			}
			if !it.UnitPrice.Equal(decimal.RequireFromString(tt.price)) {
				t.Errorf("UnitPrice = %s, want %s", it.UnitPrice, tt.price)
			}
			if !it.TotalPrice.Equal(decimal.RequireFromString(tt.total)) {
				t.Errorf("TotalPrice = %s, want %s", it.TotalPrice, tt.total)
			}
			if it.Confidence != tt.confidence {
				t.Errorf("Confidence = %d, want %d", it.Confidence, tt.confidence)
			}
		})
	}
}

func TestExtractItemsVATColumn(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		line    string
		product string
		qty     string
		unit    string
		vat     string
	}{
		{"3 Kablo 10 m %20 12,50 125,00", "Kablo", "10", "metre", "20"},
		{"1 BRIO TANK 6 adet 782,00 %20 4692,00", "BRIO TANK", "6", "adet", "20"},
		{"1 Vida M8 %20 100 adet 2,50 250,00", "Vida M8", "100", "adet", "20"},
		{"2 Boya 15 %18 4 adet 100,00 400,00", "Boya 15", "4", "adet", "18"},
		{"4 Sifon 2 adet 25,00 50,00 10%", "Sifon", "2", "adet", "10"},
		{"5 Conta 20 adet 1,50 30,00", "Conta", "20", "adet", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			items := e.ExtractItems(tt.line)
			if len(items) != 1 {
				t.Fatalf("got %d items, want 1", len(items))
			}
			it := items[0]
			if it.ProductName != tt.product {
				t.Errorf("ProductName = %q, want %q", it.ProductName, tt.product)
			}
			if it.Unit != tt.unit || !it.Quantity.Equal(decimal.RequireFromString(tt.qty)) {
				t.Errorf("item = %s %s, want %s %s", it.Quantity, it.Unit, tt.qty, tt.unit)
			}
			switch {
			case tt.vat == "" && it.VATRate != nil:
				t.Errorf("VATRate = %s, want none", it.VATRate)
			case tt.vat != "" && (it.VATRate == nil || !it.VATRate.Equal(decimal.RequireFromString(tt.vat))):
				t.Errorf("VATRate = %v, want %s", it.VATRate, tt.vat)
			}
		})
	}
}

func TestExtractItemsRejectsInvalidMatch(t *testing.T) {
	// the row matches structurally, so the first pattern decides and rejects it
	items := NewExtractor(nil).ExtractItems("1 Vida 0 adet 5,00 0,00")
	if len(items) != 0 {
		t.Errorf("got %+v, want no items for a zero quantity row", items)
	}
}

func TestExtractedItemsAreAlwaysValid(t *testing.T) {
	text := strings.Join([]string{
		"BRIO YAPI MARKET LTD. ŞTİ.",
		"Tel: 0212 555 12 34",
		"SIRA MALZEME MİKTAR FİYAT TUTAR",
		"1 BRIO TANK 6 adet 782,00 4692,00",
		"2 12 adet 0,00 0,00",
		"3 ab 1 kg 5,00 5,00",
		"4 Silikon 0 adet 10,00 0,00",
		"Nakliye 1 sefer 0,00 TL",
		"999 888 777 TL",
		"Ara Toplam: 4.692,00 TL",
		"KDV %20: 938,40 TL",
	}, "\n")

	items := NewExtractor(nil).ExtractItems(text)
	for _, it := range items {
		if !it.Valid() {
			t.Errorf("invalid item extracted: %+v", it)
		}
		if n := len([]rune(it.ProductName)); n < 3 {
			t.Errorf("name %q shorter than 3 runes", it.ProductName)
		}
	}
	if len(items) != 1 || items[0].ProductName != "BRIO TANK" {
		t.Errorf("got %d items, want only BRIO TANK", len(items))
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  BRIO   TANK ", "BRIO TANK", true},
		{"12. Vida M8", "Vida M8", true},
		{"Silikon Şeffaf TL", "Silikon Şeffaf", true},
		{"Montaj %18", "Montaj", true},
		{"Vida M8 %20", "Vida M8", true},
		{"Boya 15 %18", "Boya 15", true},
		{"Kompresör 50 lt 8%", "Kompresör 50 lt", true},
		{"Kablo -", "Kablo", true},
		{"ab", "", false},
		{"12 345", "", false},
	}
	for _, tt := range tests {
		got, ok := CleanName(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CleanName(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
