package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Header holds the invoice level fields found in the text
type Header struct {
	InvoiceNumber string
	InvoiceDate   *time.Time
	SupplierName  string
	CustomerName  string
	Total         decimal.Decimal
	VAT           *decimal.Decimal
}

var (
	numberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)fatura\s*(?:no\b|numaras[ıi]|#)\s*[:.#]?\s*([A-Z0-9][A-Z0-9\-/]*)`),
		regexp.MustCompile(`(?i)invoice\s*(?:no\b|number|#)\.?\s*[:#]?\s*([A-Z0-9][A-Z0-9\-/]*)`),
		regexp.MustCompile(`(?i)belge\s*(?:no\b|numaras[ıi])\s*[:.#]?\s*([A-Z0-9][A-Z0-9\-/]*)`),
	}

	dmyDate = regexp.MustCompile(`\b(\d{1,2})[./\-](\d{1,2})[./\-](\d{4})\b`)
	isoDate = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	dateLabels = newKeywordSet([]string{"tarih", "tarihi", "fatura tarihi", "date", "invoice date"})

	// ordered by how unambiguous the label is
	totalLabels = keywordList(
		"genel toplam", "ödenecek tutar", "ödenecek toplam", "toplam tutar", "fatura toplamı",
		"grand total", "total amount", "amount due", "toplam", "total",
	)
	subtotalLabels = newKeywordSet([]string{
		"ara toplam", "subtotal", "sub total", "kdv toplam", "toplam kdv", "toplam iskonto",
		"toplam indirim", "mal hizmet toplam", "kdv matrahı",
	})

	vatLabels = keywordList(
		"hesaplanan kdv", "toplam kdv", "kdv toplam", "kdv tutarı", "kdv", "k.d.v", "vat amount", "vat",
	)
	vatExclusions = newKeywordSet([]string{"kdv dahil", "kdv hariç", "matrah", "incl. vat", "excl. vat"})

	customerLabels = []string{"sayın", "müşteri", "alıcı", "customer", "bill to"}
)

func keywordList(words ...string) []*keywordSet {
	out := make([]*keywordSet, len(words))
	for i, w := range words {
		out[i] = newKeywordSet([]string{w})
	}
	return out
}

// FieldExtractor pulls header fields (number, date, parties, totals) out of
// invoice text
type FieldExtractor struct {
	vocab      *Vocabulary
	classifier *Classifier
}

func NewFieldExtractor(vocab *Vocabulary) *FieldExtractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &FieldExtractor{vocab: vocab, classifier: NewClassifier(vocab)}
}

// Extract returns every header field it can find. Missing fields stay zero.
func (f *FieldExtractor) Extract(text string) Header {
	lines := nonEmptyLines(text)
	return Header{
		InvoiceNumber: InvoiceNumber(text),
		InvoiceDate:   InvoiceDate(lines),
		SupplierName:  f.supplier(lines),
		CustomerName:  customer(lines),
		Total:         total(lines),
		VAT:           vat(lines),
	}
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range splitLines(text) {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// InvoiceNumber returns the first labelled invoice number ("Fatura No: AB123")
func InvoiceNumber(text string) string {
	for _, re := range numberPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if strings.ContainsFunc(m[1], unicode.IsDigit) {
				return strings.Trim(m[1], "-/")
			}
		}
	}
	return ""
}

// InvoiceDate prefers a date on a labelled line and falls back to the first
// valid date anywhere in the text.
func InvoiceDate(lines []string) *time.Time {
	for _, line := range lines {
		if dateLabels.matchFolded(Fold(line)) {
			if d := findDate(line); d != nil {
				return d
			}
		}
	}
	for _, line := range lines {
		if d := findDate(line); d != nil {
			return d
		}
	}
	return nil
}

func findDate(line string) *time.Time {
	for _, m := range dmyDate.FindAllStringSubmatch(line, -1) {
		if d := makeDate(m[3], m[2], m[1]); d != nil {
			return d
		}
	}
	for _, m := range isoDate.FindAllStringSubmatch(line, -1) {
		if d := makeDate(m[1], m[2], m[3]); d != nil {
			return d
		}
	}
	return nil
}

func makeDate(year, month, day string) *time.Time {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if y < 1990 || y > 2100 {
		return nil
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return nil
	}
	return &t
}

// supplier looks at the top of the document: a line with a company marker
// wins, otherwise the first long line that is neither an item nor a label.
func (f *FieldExtractor) supplier(lines []string) string {
	head := lines
	if len(head) > 10 {
		head = head[:10]
	}
	for _, line := range head {
		if f.vocab.IsCompanyLine(line) && !f.classifier.IsCandidate(line) {
			return trimLabel(line)
		}
	}
	for _, line := range head {
		if utf8.RuneCountInString(line) > 20 &&
			!numericToken.MatchString(line) &&
			!f.vocab.IsBanned(line) &&
			!f.classifier.IsCandidate(line) {
			return trimLabel(line)
		}
	}
	return ""
}

// trimLabel drops a short "Satıcı:" style prefix
func trimLabel(line string) string {
	if i := strings.Index(line, ":"); i > 0 && i < 25 {
		if rest := strings.TrimSpace(line[i+1:]); rest != "" {
			return rest
		}
	}
	return strings.TrimSpace(line)
}

func customer(lines []string) string {
	for i, line := range lines {
		words := strings.Fields(line)
		for _, label := range customerLabels {
			n := len(strings.Fields(label))
			if len(words) < n {
				continue
			}
			head := strings.TrimRight(strings.Join(words[:n], " "), ":-")
			if Fold(head) != Fold(label) {
				continue
			}
			rest := strings.Trim(strings.Join(words[n:], " "), ":- ")
			if rest == "" && i+1 < len(lines) {
				rest = lines[i+1]
			}
			return rest
		}
	}
	return ""
}

func total(lines []string) decimal.Decimal {
	folded := foldAll(lines)
	for _, label := range totalLabels {
		for i, line := range lines {
			if !label.matchFolded(folded[i]) || subtotalLabels.matchFolded(folded[i]) {
				continue
			}
			if amount := lastAmount(line); amount.IsPositive() {
				return amount
			}
		}
	}
	return decimal.Zero
}

func vat(lines []string) *decimal.Decimal {
	folded := foldAll(lines)
	for _, label := range vatLabels {
		for i, line := range lines {
			if !label.matchFolded(folded[i]) || vatExclusions.matchFolded(folded[i]) {
				continue
			}
			if amount := lastAmount(line); amount.IsPositive() {
				return &amount
			}
		}
	}
	return nil
}

func foldAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Fold(l)
	}
	return out
}

// lastAmount returns the last number on the line, ignoring percentages
func lastAmount(line string) decimal.Decimal {
	line = dropPercentages(line)
	tokens := numericToken.FindAllString(line, -1)
	if len(tokens) == 0 {
		return decimal.Zero
	}
	return ParseAmount(tokens[len(tokens)-1])
}
