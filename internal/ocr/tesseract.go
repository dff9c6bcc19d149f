package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/rs/zerolog"
)

// Tesseract runs the tesseract CLI on an image.
// Page segmentation mode 6 keeps table rows on one line.
type Tesseract struct {
	binary   string
	language string
	log      zerolog.Logger
}

// NewTesseract creates a tesseract engine; an empty language means "tur+eng"
func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = "tur+eng"
	}
	return &Tesseract{
		binary:   "tesseract",
		language: language,
		log:      logger.WithComponent("tesseract"),
	}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Available reports whether the tesseract binary is on PATH
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Recognize writes the image to a temp file and reads tesseract's stdout
func (t *Tesseract) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	if !t.Available() {
		return "", NewOCRError("Recognize", ErrEngineUnavailable, "tesseract binary not found")
	}

	in, err := os.CreateTemp("", "ocr-*"+extensionFor(mimeType))
	if err != nil {
		return "", WrapOCRError("Recognize", err)
	}
	defer os.Remove(in.Name())

	if _, err := in.Write(image); err != nil {
		in.Close()
		return "", WrapOCRError("Recognize", err)
	}
	if err := in.Close(); err != nil {
		return "", WrapOCRError("Recognize", err)
	}

	cmd := exec.CommandContext(ctx, t.binary, in.Name(), "stdout", "-l", t.language, "--psm", "6")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", NewOCRError("Recognize", err, strings.TrimSpace(stderr.String()))
	}

	text := stdout.String()
	t.log.Debug().Int("bytes", len(image)).Int("chars", len(text)).Str("lang", t.language).Msg("image recognized")
	return text, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/tiff":
		return ".tiff"
	case "image/jpeg":
		return ".jpg"
	default:
		return fmt.Sprintf(".%s", strings.TrimPrefix(mimeType, "image/"))
	}
}
