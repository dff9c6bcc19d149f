package parser

import "testing"

func TestClassifierIsNoise(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name string
		line string
		want bool
	}{
		{"too short", "ab", true},
		{"no letters", "12345 678,00", true},
		{"ban list", "Genel Toplam: 4.692,00 TL", true},
		{"ban list folded", "VERGİ DAİRESİ: Kadıköy", true},
		{"url", "www.brio.com.tr", true},
		{"email", "Bilgi: info@brio.com.tr", true},
		{"iban", "TR33 0006 1005 1978 6457 8413 26", true},
		{"phone", "Merkez 0532 123 45 67", true},
		{"phone with country code", "Merkez +90 (212) 555-12-34", true},
		{"uuid", "Belge 3fa85f64-5717-4562-b3fc-2c963f66afa6", true},
		{"header", "FATURA BİLGİLERİ", true},
		{"upper case item row", "1 BRIO TANK 6 ADET 782,00 4692,00", false},
		{"item row", "1 BRIO TANK 6 adet 782,00 4692,00", false},
		{"plain sentence", "Teslimat yarın yapılacak", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsNoise(tt.line); got != tt.want {
				t.Errorf("IsNoise(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestClassifierIsCandidate(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		line string
		want bool
	}{
		{"1 BRIO TANK 6 adet 782,00 4692,00", true},
		{"Nakliye bedeli 1 sefer 150,00 TL", true},
		{"Çimento 50 kg 3,50 175,00", true},
		{"Vana 3 45,00 € 135,00 €", true},
		{"BRIO 6 782 4692", false},
		{"Teslimat yarın yapılacak", false},
		{"6 kg 3,5", false},
		{"Genel Toplam: 4.692,00 TL", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := c.IsCandidate(tt.line); got != tt.want {
				t.Errorf("IsCandidate(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}
