package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/facturaIA/invoice-stock-service/internal/config"
)

type fakeEngine struct {
	text     string
	err      error
	calls    int
	mimeType string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, _ []byte, mimeType string) (string, error) {
	f.calls++
	f.mimeType = mimeType
	return f.text, f.err
}

func TestReaderRouting(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		fileName string
		data     []byte
		want     string
		wantMime string
		calls    int
	}{
		{"plain text", "fatura.txt", []byte("BRIO TANK 3 adet"), "BRIO TANK 3 adet", "", 0},
		{"windows-1254 text", "fatura.TXT", []byte{'K', 0xFD, 'r', 'm', 0xFD, 'z', 0xFD}, "Kırmızı", "", 0},
		{"jpeg", "scan.JPG", []byte{0xFF, 0xD8}, "recognized", "image/jpeg", 1},
		{"png", "scan.png", []byte{0x89, 'P'}, "recognized", "image/png", 1},
		{"tiff", "scan.tif", []byte{'I', 'I'}, "recognized", "image/tiff", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{text: "recognized"}
			r := NewReader(engine, false)

			got, err := r.ExtractText(ctx, tt.data, tt.fileName)
			if err != nil {
				t.Fatalf("ExtractText: %v", err)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
			if engine.calls != tt.calls {
				t.Errorf("engine calls = %d, want %d", engine.calls, tt.calls)
			}
			if engine.mimeType != tt.wantMime {
				t.Errorf("mime type = %q, want %q", engine.mimeType, tt.wantMime)
			}
		})
	}
}

func TestReaderErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewReader(&fakeEngine{}, false).ExtractText(ctx, []byte("x"), "fatura.docx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("docx error = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := NewReader(nil, false).ExtractText(ctx, []byte{0xFF}, "scan.jpg"); !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("image without engine error = %v, want ErrEngineUnavailable", err)
	}

	boom := errors.New("boom")
	_, err := NewReader(&fakeEngine{err: boom}, false).ExtractText(ctx, []byte{0xFF}, "scan.jpg")
	if !errors.Is(err, boom) {
		t.Errorf("engine error = %v, want boom", err)
	}
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.pdf", "a.PDF", "a.txt", "a.jpeg", "a.tiff"} {
		if !Supported(name) {
			t.Errorf("Supported(%q) = false", name)
		}
	}
	for _, name := range []string{"a.docx", "a", "a.xlsx"} {
		if Supported(name) {
			t.Errorf("Supported(%q) = true", name)
		}
	}
}

func TestIsTextBasedRejectsGarbage(t *testing.T) {
	p := NewPDFExtractor()
	if p.IsTextBased([]byte("not a pdf")) {
		t.Error("IsTextBased accepted garbage")
	}
	if _, err := p.ExtractText([]byte("not a pdf")); !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("ExtractText error = %v, want ErrInvalidPDF", err)
	}
}

func TestCleanTranscription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BRIO TANK 3 adet\n", "BRIO TANK 3 adet"},
		{"```\nBRIO TANK 3 adet\n```", "BRIO TANK 3 adet"},
		{"```text\nSATIŞ FATURASI\nBRIO TANK\n```\n", "SATIŞ FATURASI\nBRIO TANK"},
	}
	for _, tt := range tests {
		if got := cleanTranscription(tt.in); got != tt.want {
			t.Errorf("cleanTranscription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewEngine(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{OCR: config.OCRConfig{Engine: "tesseract"}}
	engine, err := NewEngine(ctx, cfg)
	if err != nil {
		t.Fatalf("NewEngine(tesseract): %v", err)
	}
	if tess, ok := engine.(*Tesseract); !ok || tess.language != "tur+eng" {
		t.Errorf("engine = %#v, want tesseract with tur+eng", engine)
	}

	for _, name := range []string{"openai", "gemini", "abbyy"} {
		cfg := &config.Config{OCR: config.OCRConfig{Engine: name}}
		if _, err := NewEngine(ctx, cfg); !errors.Is(err, ErrEngineUnavailable) {
			t.Errorf("NewEngine(%s) error = %v, want ErrEngineUnavailable", name, err)
		}
	}

	cfg = &config.Config{OCR: config.OCRConfig{Engine: "openai"}}
	cfg.AI.OpenAI.APIKey = "sk-test"
	engine, err = NewEngine(ctx, cfg)
	if err != nil {
		t.Fatalf("NewEngine(openai): %v", err)
	}
	if oa := engine.(*OpenAIEngine); oa.model != "gpt-4o-mini" {
		t.Errorf("default model = %q", oa.model)
	}
}
