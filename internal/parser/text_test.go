package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFold(t *testing.T) {
	tests := map[string]string{
		"SATIŞ":         "satis",
		"satış":         "satis",
		"İADE FATURASI": "iade faturasi",
		"ÇÖĞÜ":          "cogu",
		"Müşteri":       "musteri",
		"Sales Invoice": "sales invoice",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeTextWindows1254(t *testing.T) {
	// "şeker" in Windows-1254
	raw := []byte{0xFE, 'e', 'k', 'e', 'r'}
	if got := DecodeText(raw); got != "şeker" {
		t.Errorf("DecodeText() = %q, want şeker", got)
	}
	if got := DecodeText([]byte("ürün")); got != "ürün" {
		t.Errorf("DecodeText(utf8) = %q", got)
	}
}

func TestRepairMojibake(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ã¼rÃ¼n", "ürün"},
		{"SATIÅž", "SATIŞ"},
		{"ürün", "ürün"},
		{"plain ascii", "plain ascii"},
	}
	for _, tt := range tests {
		if got := RepairMojibake(tt.in); got != tt.want {
			t.Errorf("RepairMojibake(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHasCorruption(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"SATIŞ FATURASI", false},
		{"Fatura N? 12", true},
		{"ürün �", true},
		{"Ã‡imento", true},
		{"SATIÅž", true},
		{"Ä°stanbul", true},
	}
	for _, tt := range tests {
		if got := HasCorruption(tt.in); got != tt.want {
			t.Errorf("HasCorruption(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeUnit(t *testing.T) {
	v := DefaultVocabulary()
	tests := map[string]string{
		"Adet":  "adet",
		"PCS":   "adet",
		"KG":    "kg",
		"kg.":   "kg",
		"lt":    "litre",
		"mt":    "metre",
		"m2":    "m²",
		"M³":    "m³",
		"gr":    "gram",
		"":      "adet",
		"Çuval": "çuval",
	}
	for in, want := range tests {
		if got := v.NormalizeUnit(in); got != want {
			t.Errorf("NormalizeUnit(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadVocabularyExtendsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	data := `
ban_list: [kampanya]
units:
  adet: [çuval]
sale:
  phrases: [perakende satış fişi]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary() error = %v", err)
	}
	if got := v.NormalizeUnit("ÇUVAL"); got != "adet" {
		t.Errorf("NormalizeUnit(ÇUVAL) = %q, want adet", got)
	}
	if !v.IsBanned("Kampanya ürünü") {
		t.Error("extra ban word not applied")
	}
	if !v.IsBanned("Genel Toplam") {
		t.Error("default ban words lost")
	}
	if got := NewDirectionClassifier(v).Scores("PERAKENDE SATIŞ FİŞİ").Sale; got < 50 {
		t.Errorf("Sale score = %d, want the extra phrase counted", got)
	}

	if _, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadVocabulary(missing) = nil error")
	}
}
