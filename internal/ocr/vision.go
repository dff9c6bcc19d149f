package ocr

import (
	"context"
	"strings"
)

// Engine turns an image into raw text
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

// transcriptionPrompt asks a vision model for a plain transcription. The model
// must not interpret the document: extraction happens downstream on the text.
const transcriptionPrompt = `You are an OCR engine reading a scanned invoice (fatura / irsaliye), usually in Turkish.

Transcribe ALL visible text exactly as printed:
- keep the original line breaks, one printed row per output line
- keep table rows on a single line with the cells separated by spaces
- copy numbers character by character, including "." and "," separators
- keep Turkish letters (ç, ğ, ı, İ, ö, ş, ü) as printed
- do not translate, summarise, reorder or correct anything
- do not add headings, explanations or markdown

If a part is unreadable, skip it.`

// cleanTranscription strips markdown fences some models wrap around the text
func cleanTranscription(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
