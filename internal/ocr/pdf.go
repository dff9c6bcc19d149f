package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// textLayerThreshold is the number of characters page 1 must yield before a PDF
// is treated as text based.
const textLayerThreshold = 50

// renderDPI is used when rasterising scanned pages for OCR
const renderDPI = 300

// PDFExtractor reads the text layer of PDFs and renders scanned ones to images
type PDFExtractor struct {
	dpi float64
}

// NewPDFExtractor creates a PDF extractor with the default render resolution
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{dpi: renderDPI}
}

// IsTextBased reports whether page 1 yields more than 50 characters of text.
// It is a routing hint only: scanned PDFs go through OCR instead.
func (p *PDFExtractor) IsTextBased(data []byte) bool {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil || r.NumPage() == 0 {
		return false
	}
	text, err := pageText(r, 1)
	if err != nil {
		return false
	}
	return len([]rune(strings.TrimSpace(text))) > textLayerThreshold
}

// ExtractText returns the text layer of every page, one output line per text row
func (p *PDFExtractor) ExtractText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", NewOCRError("ExtractText", ErrInvalidPDF, err.Error())
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		text, err := pageText(r, i)
		if err != nil {
			return "", NewOCRError("ExtractText", err, fmt.Sprintf("page %d", i))
		}
		if sb.Len() > 0 && text != "" {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// RenderPages rasterises every page to PNG for the OCR engine
func (p *PDFExtractor) RenderPages(ctx context.Context, data []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, NewOCRError("RenderPages", ErrInvalidPDF, err.Error())
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImagePNG(i, p.dpi)
		if err != nil {
			return nil, NewOCRError("RenderPages", err, fmt.Sprintf("page %d", i+1))
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// pageText joins the words of each row with spaces and the rows with newlines
func pageText(r *pdf.Reader, n int) (string, error) {
	page := r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		words := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			if s := strings.TrimSpace(word.S); s != "" {
				words = append(words, s)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	}
	return strings.Join(lines, "\n"), nil
}
