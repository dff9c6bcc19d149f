package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/facturaIA/invoice-stock-service/internal/config"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/parser"
	"github.com/rs/zerolog"
)

// Reader turns an uploaded document into raw text.
// Text PDFs use their text layer; scanned PDFs and images go through the engine.
type Reader struct {
	pdf          *PDFExtractor
	engine       Engine
	preprocessor *Preprocessor
	log          zerolog.Logger
}

// NewReader creates a reader. engine may be nil, in which case only text
// documents can be read. preprocess enables ImageMagick enhancement.
func NewReader(engine Engine, preprocess bool) *Reader {
	r := &Reader{
		pdf:    NewPDFExtractor(),
		engine: engine,
		log:    logger.WithComponent("ocr"),
	}
	if preprocess {
		r.preprocessor = NewPreprocessor()
	}
	return r
}

// NewEngine builds the engine named in the config
func NewEngine(ctx context.Context, cfg *config.Config) (Engine, error) {
	switch strings.ToLower(cfg.OCR.Engine) {
	case "", "tesseract":
		return NewTesseract(cfg.OCR.Language), nil
	case "openai":
		return NewOpenAIEngine(cfg.AI.OpenAI)
	case "gemini":
		return NewGeminiEngine(ctx, cfg.AI.Gemini)
	default:
		return nil, NewOCRError("NewEngine", ErrEngineUnavailable, fmt.Sprintf("unknown engine %q", cfg.OCR.Engine))
	}
}

// Supported reports whether the file extension can be read
func Supported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf", ".txt", ".jpg", ".jpeg", ".png", ".tif", ".tiff":
		return true
	}
	return false
}

// ExtractText routes the document by file extension
func (r *Reader) ExtractText(ctx context.Context, data []byte, fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	log := r.log.With().Str("file", fileName).Logger()

	switch ext {
	case ".txt":
		return parser.DecodeText(data), nil

	case ".pdf":
		if r.pdf.IsTextBased(data) {
			log.Debug().Msg("reading PDF text layer")
			return r.pdf.ExtractText(data)
		}
		log.Debug().Msg("scanned PDF, rendering pages for OCR")
		return r.scannedPDF(ctx, data)

	case ".jpg", ".jpeg":
		return r.recognize(ctx, data, "image/jpeg")
	case ".png":
		return r.recognize(ctx, data, "image/png")
	case ".tif", ".tiff":
		return r.recognize(ctx, data, "image/tiff")

	default:
		return "", NewOCRError("ExtractText", ErrUnsupportedFormat, ext)
	}
}

func (r *Reader) scannedPDF(ctx context.Context, data []byte) (string, error) {
	if r.engine == nil {
		return "", NewOCRError("ExtractText", ErrEngineUnavailable, "scanned PDF needs an OCR engine")
	}
	pages, err := r.pdf.RenderPages(ctx, data)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		text, err := r.recognize(ctx, page, "image/png")
		if err != nil {
			return "", NewOCRError("ExtractText", err, fmt.Sprintf("page %d", i+1))
		}
		texts = append(texts, strings.TrimRight(text, "\n"))
	}
	return strings.Join(texts, "\n"), nil
}

func (r *Reader) recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	if r.engine == nil {
		return "", NewOCRError("Recognize", ErrEngineUnavailable, "no OCR engine configured")
	}
	if r.preprocessor != nil {
		if enhanced, ok := r.preprocessor.Enhance(ctx, image); ok {
			image, mimeType = enhanced, "image/png"
		}
	}
	return r.engine.Recognize(ctx, image, mimeType)
}
