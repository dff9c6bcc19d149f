package catalog

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/facturaIA/invoice-stock-service/internal/parser"
)

const (
	minNameRunes = 3
	maxNameRunes = 200
)

// VKN (10 digits) and TCKN (11 digits) tax identifiers
var taxIDPattern = regexp.MustCompile(`\b\d{10,11}\b`)

// ValidateName cleans name and checks that it can identify a product. The
// cleaned name is returned; failures are *ValidationError.
func ValidateName(vocab *parser.Vocabulary, name string) (string, error) {
	if vocab == nil {
		vocab = parser.DefaultVocabulary()
	}

	clean, ok := parser.CleanName(name)
	if !ok {
		return "", newValidationError(name, "too short after cleaning")
	}
	if n := utf8.RuneCountInString(clean); n < minNameRunes || n > maxNameRunes {
		return "", newValidationError(name, "length must be 3-200 characters")
	}
	if !strings.ContainsFunc(clean, unicode.IsLetter) {
		return "", newValidationError(name, "no letters")
	}
	if vocab.IsBanned(clean) {
		return "", newValidationError(name, "contains a reserved invoice word")
	}
	if taxIDPattern.MatchString(clean) {
		return "", newValidationError(name, "contains a tax identifier")
	}
	return clean, nil
}

// NameKey is the folded form products are unique under
func NameKey(name string) string {
	return strings.Join(strings.Fields(parser.Fold(name)), " ")
}

// Similarity returns 1 - distance/maxLen over the folded names, counted in
// runes. Identical names score 1, completely different ones 0.
func Similarity(a, b string) float64 {
	ka, kb := NameKey(a), NameKey(b)
	return keySimilarity(ka, kb)
}

func keySimilarity(ka, kb string) float64 {
	la, lb := utf8.RuneCountInString(ka), utf8.RuneCountInString(kb)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(ka, kb))/float64(longest)
}
