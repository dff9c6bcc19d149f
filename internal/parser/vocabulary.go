package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// VocabularySpec is the editable form of the vocabulary, as read from a YAML
// file. Keywords are written naturally ("satış faturası"); they are folded when
// the vocabulary is built.
type VocabularySpec struct {
	BanList        []string            `yaml:"ban_list"`
	Units          map[string][]string `yaml:"units"` // canonical unit -> synonyms
	Currencies     []string            `yaml:"currencies"`
	CompanyMarkers []string            `yaml:"company_markers"`
	Returns        []string            `yaml:"returns"`
	Sale           KeywordGroups       `yaml:"sale"`
	Purchase       KeywordGroups       `yaml:"purchase"`
}

// KeywordGroups are the weighted keyword groups voting for one direction
type KeywordGroups struct {
	Phrases        []string `yaml:"phrases"`
	Words          []string `yaml:"words"`
	Parties        []string `yaml:"parties"`
	Verbs          []string `yaml:"verbs"`
	StrongPayments []string `yaml:"strong_payments"`
	WeakPayments   []string `yaml:"weak_payments"`
}

const (
	weightPhrase        = 50
	weightWord          = 20
	weightParty         = 15
	weightVerb          = 15
	weightStrongPayment = 10
	weightWeakPayment   = 5
)

// DefaultSpec returns the built-in Turkish/English vocabulary
func DefaultSpec() VocabularySpec {
	return VocabularySpec{
		BanList: []string{
			// Turkish
			"toplam", "ara toplam", "genel toplam", "kdv", "k.d.v", "matrah", "iskonto", "indirim",
			"tarih", "fatura no", "fatura tarihi", "vade", "vade tarihi", "telefon", "gsm",
			"faks", "fax", "adres", "mahalle", "mah", "cadde", "cad", "sokak", "sok", "banka",
			"iban", "hesap no", "vergi dairesi", "vergi no", "v.d", "vkn", "tckn", "t.c. kimlik",
			"mersis", "ticaret sicil", "a.ş", "ltd", "şti", "e-posta", "eposta", "ettn",
			"ödenecek", "yalnız", "irsaliye", "sayın", "teşekkür", "sayfa",
			// English
			"total", "subtotal", "grand total", "vat", "tax", "discount", "due date",
			"invoice no", "invoice number", "phone", "address", "bank", "swift", "account",
			"inc", "llc", "gmbh", "email", "page", "thank you",
		},
		Units: map[string][]string{
			"adet":  {"adet", "ad", "adt", "ade", "pcs", "pc", "piece", "pieces", "unit", "units", "ea", "each", "tane", "paket", "pk", "koli", "kutu", "rulo", "takım", "set"},
			"kg":    {"kg", "kgs", "kilo", "kilogram"},
			"litre": {"lt", "l", "ltr", "litre", "liter", "litres", "liters"},
			"metre": {"m", "mt", "mtr", "metre", "meter", "metres", "meters"},
			"cm":    {"cm", "santim", "santimetre", "centimeter", "centimetre"},
			"mm":    {"mm", "milimetre", "millimeter", "millimetre"},
			"gram":  {"g", "gr", "grm", "gram", "grams"},
			"ton":   {"ton", "tons", "tn", "t"},
			"m²":    {"m2", "m²", "metrekare", "sqm"},
			"m³":    {"m3", "m³", "metreküp", "cbm"},
		},
		Currencies:     []string{"tl", "try", "ytl", "usd", "eur", "₺", "€", "$"},
		CompanyMarkers: []string{"firma", "şirket", "şirketi", "company", "a.ş", "ltd", "şti", "tic", "san", "inc", "llc", "gmbh", "corp"},
		Returns:        []string{"iade", "iade faturası", "return", "returned", "refund", "credit note", "geri alım"},
		Sale: KeywordGroups{
			Phrases:        []string{"satış faturası", "sales invoice", "satış fişi"},
			Words:          []string{"satış", "sale", "sales", "sold"},
			Parties:        []string{"müşteri", "alıcı", "customer", "bill to", "sayın"},
			Verbs:          []string{"satılan", "satıldı", "sold to", "shipped to", "teslim edilen"},
			StrongPayments: []string{"tahsilat", "tahsil edilecek", "receivable"},
			WeakPayments:   []string{"alacak", "collected"},
		},
		Purchase: KeywordGroups{
			Phrases:        []string{"alış faturası", "purchase invoice", "alım faturası", "gider faturası"},
			Words:          []string{"alış", "alım", "purchase", "bought"},
			Parties:        []string{"tedarikçi", "satıcı", "supplier", "vendor"},
			Verbs:          []string{"satın alınan", "alınan", "purchased", "received from"},
			StrongPayments: []string{"ödenecek", "payable", "ödeme"},
			WeakPayments:   []string{"borç", "paid"},
		},
	}
}

// Merge appends the entries of other to s
func (s VocabularySpec) Merge(other VocabularySpec) VocabularySpec {
	out := VocabularySpec{
		BanList:        append(append([]string{}, s.BanList...), other.BanList...),
		Currencies:     append(append([]string{}, s.Currencies...), other.Currencies...),
		CompanyMarkers: append(append([]string{}, s.CompanyMarkers...), other.CompanyMarkers...),
		Returns:        append(append([]string{}, s.Returns...), other.Returns...),
		Sale:           s.Sale.merge(other.Sale),
		Purchase:       s.Purchase.merge(other.Purchase),
		Units:          make(map[string][]string, len(s.Units)),
	}
	for canonical, syn := range s.Units {
		out.Units[canonical] = append([]string{}, syn...)
	}
	for canonical, syn := range other.Units {
		out.Units[canonical] = append(out.Units[canonical], syn...)
	}
	return out
}

func (g KeywordGroups) merge(o KeywordGroups) KeywordGroups {
	return KeywordGroups{
		Phrases:        append(append([]string{}, g.Phrases...), o.Phrases...),
		Words:          append(append([]string{}, g.Words...), o.Words...),
		Parties:        append(append([]string{}, g.Parties...), o.Parties...),
		Verbs:          append(append([]string{}, g.Verbs...), o.Verbs...),
		StrongPayments: append(append([]string{}, g.StrongPayments...), o.StrongPayments...),
		WeakPayments:   append(append([]string{}, g.WeakPayments...), o.WeakPayments...),
	}
}

// Vocabulary is the compiled, read-only vocabulary shared by the classifier,
// the extractor, the direction classifier and the product resolver. It is safe
// for concurrent use.
type Vocabulary struct {
	ban        *keywordSet
	units      map[string]string // folded synonym -> canonical
	currencies map[string]bool
	company    *keywordSet
	returns    *keywordSet
	sale       []weightedKeyword
	purchase   []weightedKeyword
}

type weightedKeyword struct {
	word   string
	weight int
	re     *regexp.Regexp
}

// NewVocabulary compiles spec
func NewVocabulary(spec VocabularySpec) *Vocabulary {
	v := &Vocabulary{
		ban:        newKeywordSet(spec.BanList),
		units:      make(map[string]string),
		currencies: make(map[string]bool),
		company:    newKeywordSet(spec.CompanyMarkers),
		returns:    newKeywordSet(spec.Returns),
		sale:       weighKeywords(spec.Sale),
		purchase:   weighKeywords(spec.Purchase),
	}
	for canonical, synonyms := range spec.Units {
		v.units[Fold(canonical)] = canonical
		for _, syn := range synonyms {
			v.units[Fold(syn)] = canonical
		}
	}
	for _, c := range spec.Currencies {
		v.currencies[Fold(c)] = true
	}
	return v
}

var (
	defaultVocabulary     *Vocabulary
	defaultVocabularyOnce sync.Once
)

// DefaultVocabulary returns the compiled built-in vocabulary
func DefaultVocabulary() *Vocabulary {
	defaultVocabularyOnce.Do(func() {
		defaultVocabulary = NewVocabulary(DefaultSpec())
	})
	return defaultVocabulary
}

// LoadVocabulary builds the default vocabulary extended with the YAML file at
// path. An empty path returns the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	var extra VocabularySpec
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	return NewVocabulary(DefaultSpec().Merge(extra)), nil
}

// IsBanned reports whether text contains a ban-listed word or phrase
func (v *Vocabulary) IsBanned(text string) bool {
	return v.ban.matchFolded(Fold(text))
}

// IsCompanyLine reports whether line carries a company marker (Ltd, A.Ş., Firma...)
func (v *Vocabulary) IsCompanyLine(line string) bool {
	return v.company.matchFolded(Fold(line))
}

// NormalizeUnit maps a unit token onto its canonical unit. Unknown units come
// back lower-cased, an empty unit becomes "adet".
func (v *Vocabulary) NormalizeUnit(raw string) string {
	token := strings.Trim(strings.TrimSpace(raw), ".")
	if token == "" {
		return "adet"
	}
	if canonical, ok := v.units[Fold(token)]; ok {
		return canonical
	}
	return Lower(token)
}

// IsUnit reports whether token is a known unit synonym
func (v *Vocabulary) IsUnit(token string) bool {
	_, ok := v.units[Fold(strings.Trim(token, "."))]
	return ok
}

// IsCurrency reports whether token is a currency marker
func (v *Vocabulary) IsCurrency(token string) bool {
	return v.currencies[Fold(token)]
}

// keywordSet matches any of its folded keywords as a whole word
type keywordSet struct {
	words []string
	re    *regexp.Regexp
}

func newKeywordSet(words []string) *keywordSet {
	ks := &keywordSet{}
	seen := make(map[string]bool)
	var alts []string
	for _, w := range words {
		f := strings.TrimSpace(Fold(w))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		ks.words = append(ks.words, f)
		alts = append(alts, regexp.QuoteMeta(f))
	}
	if len(alts) > 0 {
		ks.re = regexp.MustCompile(wordBoundary(strings.Join(alts, "|")))
	}
	return ks
}

func (ks *keywordSet) matchFolded(folded string) bool {
	return ks.re != nil && ks.re.MatchString(folded)
}

func wordBoundary(alternation string) string {
	return `(?:^|[^\p{L}\p{N}])(?:` + alternation + `)(?:[^\p{L}\p{N}]|$)`
}

func weighKeywords(g KeywordGroups) []weightedKeyword {
	var out []weightedKeyword
	seen := make(map[string]bool)
	add := func(words []string, weight int) {
		for _, w := range words {
			f := strings.TrimSpace(Fold(w))
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, weightedKeyword{
				word:   f,
				weight: weight,
				re:     regexp.MustCompile(wordBoundary(regexp.QuoteMeta(f))),
			})
		}
	}
	add(g.Phrases, weightPhrase)
	add(g.Words, weightWord)
	add(g.Parties, weightParty)
	add(g.Verbs, weightVerb)
	add(g.StrongPayments, weightStrongPayment)
	add(g.WeakPayments, weightWeakPayment)
	return out
}
