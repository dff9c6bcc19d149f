package parser

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
)

var asciiFold = strings.NewReplacer(
	"ı", "i", "ş", "s", "ç", "c", "ğ", "g", "ö", "o", "ü", "u",
	"â", "a", "î", "i", "û", "u",
)

// Fold lower-cases s with Turkish rules and drops Turkish diacritics, so that
// "SATIŞ", "satış" and "satis" all compare equal. It is the form every keyword
// comparison and product name key uses.
func Fold(s string) string {
	// a Caser keeps state, so one per call
	lower := cases.Lower(language.Turkish).String(s)
	return asciiFold.Replace(lower)
}

// Lower lower-cases s with Turkish rules but keeps the letters intact
func Lower(s string) string {
	return cases.Lower(language.Turkish).String(s)
}

// DecodeText returns b as a string. Bytes that are not valid UTF-8 are read as
// Windows-1254, the legacy Turkish code page most exported text files use.
func DecodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, _, err := transform.Bytes(charmap.Windows1254.NewDecoder(), b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// mojibakeLeads are what the UTF-8 lead bytes of Turkish letters look like after
// being decoded with a single byte code page.
var mojibakeLeads = []string{"Ã", "Ä", "Å"}

// RepairMojibake undoes a UTF-8 text that was decoded as Windows-1254/1252 and
// re-encoded ("Ã¼rÃ¼n" back to "ürün"). Text that does not round-trip is
// returned unchanged.
func RepairMojibake(s string) string {
	if !hasMojibake(s) {
		return s
	}

	for _, cm := range []*charmap.Charmap{charmap.Windows1254, charmap.Windows1252} {
		raw, err := cm.NewEncoder().String(s)
		if err != nil || !utf8.ValidString(raw) {
			continue
		}
		return raw
	}
	return s
}

func hasMojibake(s string) bool {
	for _, lead := range mojibakeLeads {
		if strings.Contains(s, lead) {
			return true
		}
	}
	return false
}

// HasCorruption reports whether text carries replacement characters, question
// marks or mojibake left behind by a lossy OCR or encoding step.
func HasCorruption(text string) bool {
	return strings.ContainsAny(text, "?�") || hasMojibake(text)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
