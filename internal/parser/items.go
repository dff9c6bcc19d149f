package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/shopspring/decimal"
)

const (
	numGroup  = `(\d+(?:[.,]\d+)*)`
	unitGroup = `(\p{L}[\p{L}\d²³]{0,11})\.?`
	currency  = `(?:\s*(?:TL|TRY|YTL|USD|EUR|₺|€|\$)\.?)?`
)

var (
	// "%20" standing alone, or "20%" after a space; never digits inside a price
	vatPrefixed      = regexp.MustCompile(`(?:^|[\s(])%\s*(\d{1,2}(?:[.,]\d+)?)\b`)
	vatSuffixed      = regexp.MustCompile(`(?:^|[\s(])(\d{1,2}(?:[.,]\d+)?)%`)
	leadingRowNumber = regexp.MustCompile(`^\d{1,4}[.)\-]?\s+`)
	trailingFragment = regexp.MustCompile(`(?i)(?:\s+(?:TL|TRY|YTL|USD|EUR)\.?|\s*[₺€$]|\s*[\-–:;,.])+$`)
	digitsOnly       = regexp.MustCompile(`^[\d\s.,/\-]+$`)
)

// match is what a pattern pulled out of a line, before validation
type match struct {
	code  string
	name  string
	qty   decimal.Decimal
	unit  string
	price decimal.Decimal
	total decimal.Decimal
}

// pattern is one structural layout of an item row. build returns false when
// the groups do not fit the layout, letting the next pattern try.
type pattern struct {
	name       string
	re         *regexp.Regexp
	confidence int
	build      func(groups []string) (match, bool)
}

var itemPatterns = []pattern{
	{
		// 1 BRIO TANK 6 adet 782,00 4692,00
		name:       "row-unit",
		re:         regexp.MustCompile(`(?i)^(\d{1,4})[.)]?\s+(.+?)\s+` + numGroup + `\s*` + unitGroup + `\s+` + numGroup + currency + `(?:\s+` + numGroup + currency + `)?\s*$`),
		confidence: 95,
		build: func(g []string) (match, bool) {
			m := match{name: g[2], qty: ParseAmount(g[3]), unit: g[4], price: ParseAmount(g[5])}
			if g[6] != "" {
				m.total = ParseAmount(g[6])
			} else {
				m.total = m.qty.Mul(m.price)
			}
			return m, true
		},
	},
	{
		// BRIO TANK 6 adet 782,00 4692,00
		name:       "unit-line",
		re:         regexp.MustCompile(`(?i)^(.+?)\s+` + numGroup + `\s*` + unitGroup + `\s+` + numGroup + currency + `\s+` + numGroup + currency + `\s*$`),
		confidence: 90,
		build: func(g []string) (match, bool) {
			return match{name: g[1], qty: ParseAmount(g[2]), unit: g[3], price: ParseAmount(g[4]), total: ParseAmount(g[5])}, true
		},
	},
	{
		// BRT-0042 BRIO TANK 6 782,00 TL 4692,00 TL
		name:       "coded",
		re:         regexp.MustCompile(`(?i)^([A-Z0-9][A-Z0-9\-_/.]{2,})\s+(.+?)\s+` + numGroup + `\s+` + numGroup + currency + `\s+` + numGroup + currency + `\s*$`),
		confidence: 85,
		build: func(g []string) (match, bool) {
			if !isProductCode(g[1]) {
				return match{}, false
			}
			return match{code: strings.ToUpper(g[1]), name: g[2], qty: ParseAmount(g[3]), price: ParseAmount(g[4]), total: ParseAmount(g[5])}, true
		},
	},
	{
		// Montaj hizmeti 150,00 TL
		name:       "total-only",
		re:         regexp.MustCompile(`(?i)^(.+?)\s+` + numGroup + currency + `\s*$`),
		confidence: 70,
		build: func(g []string) (match, bool) {
			total := ParseAmount(g[2])
			return match{name: g[1], qty: decimal.NewFromInt(1), price: total, total: total}, true
		},
	},
}

// isProductCode accepts codes such as "BRT-0042" or "100234": a digit is
// required, and an all-digit code must be longer than a row number.
func isProductCode(code string) bool {
	digits, others := 0, 0
	for _, r := range code {
		if unicode.IsDigit(r) {
			digits++
		} else {
			others++
		}
	}
	if digits == 0 {
		return false
	}
	return others > 0 || digits >= 5
}

// Extractor turns candidate lines into line items
type Extractor struct {
	vocab      *Vocabulary
	classifier *Classifier
	patterns   []pattern
}

// NewExtractor returns an extractor over vocab
func NewExtractor(vocab *Vocabulary) *Extractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Extractor{
		vocab:      vocab,
		classifier: NewClassifier(vocab),
		patterns:   itemPatterns,
	}
}

// ExtractItems returns the line items found in text, in document order. Lines
// that match no pattern, or whose match fails validation, are dropped.
func (e *Extractor) ExtractItems(text string) []models.InvoiceItem {
	var items []models.InvoiceItem
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if !e.classifier.IsCandidate(line) {
			continue
		}
		if item, ok := e.ExtractLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// ExtractLine applies the patterns to a single line. The first pattern that
// matches decides: if its item is invalid the line yields nothing.
func (e *Extractor) ExtractLine(line string) (models.InvoiceItem, bool) {
	line, vat := stripVAT(line)

	for _, p := range e.patterns {
		groups := p.re.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		m, ok := p.build(groups)
		if !ok {
			continue
		}
		return e.toItem(m, vat, p.confidence)
	}
	return models.InvoiceItem{}, false
}

func (e *Extractor) toItem(m match, vat *decimal.Decimal, confidence int) (models.InvoiceItem, bool) {
	name, ok := CleanName(m.name)
	if !ok {
		return models.InvoiceItem{}, false
	}
	item := models.InvoiceItem{
		ProductName: name,
		ProductCode: m.code,
		Quantity:    m.qty,
		Unit:        e.vocab.NormalizeUnit(m.unit),
		UnitPrice:   m.price,
		TotalPrice:  m.total,
		VATRate:     vat,
		Confidence:  confidence,
	}
	if !item.Valid() {
		return models.InvoiceItem{}, false
	}
	return item, true
}

// dropPercentages blanks every rate column on the line
func dropPercentages(line string) string {
	line = vatPrefixed.ReplaceAllString(line, " ")
	return vatSuffixed.ReplaceAllString(line, " ")
}

// stripVAT removes a "%20" style rate column from the line and returns it
func stripVAT(line string) (string, *decimal.Decimal) {
	loc := vatPrefixed.FindStringSubmatchIndex(line)
	if loc == nil {
		loc = vatSuffixed.FindStringSubmatchIndex(line)
	}
	if loc == nil {
		return line, nil
	}
	raw := line[loc[2]:loc[3]]
	stripped := strings.Join(strings.Fields(line[:loc[0]]+" "+line[loc[1]:]), " ")
	rate := ParseAmount(raw)
	if !rate.IsPositive() {
		return stripped, nil
	}
	return stripped, &rate
}

// CleanName strips row numbers, trailing currency and punctuation from a
// product name and collapses its whitespace. ok is false when what remains is
// shorter than three runes or only digits.
func CleanName(name string) (string, bool) {
	name = strings.Join(strings.Fields(name), " ")
	name = leadingRowNumber.ReplaceAllString(name, "")
	name = dropPercentages(name)
	name = trailingFragment.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")

	if utf8.RuneCountInString(name) < 3 || digitsOnly.MatchString(name) {
		return "", false
	}
	return name, true
}
