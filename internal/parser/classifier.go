package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	urlPattern   = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)
	emailPattern = regexp.MustCompile(`(?i)[\p{L}0-9._%+\-]+@[\p{L}0-9.\-]+\.[a-z]{2,}`)
	ibanPattern  = regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:\s?[A-Z0-9]{4}){3,7}(?:\s?[A-Z0-9]{1,4})?\b`)
	uuidPattern  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)

	phonePatterns = []*regexp.Regexp{
		// +90 532 123 45 67, +90 (212) 123-45-67
		regexp.MustCompile(`\+\d{1,3}[\s\-]?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}`),
		// 0532 123 45 67, 0 (212) 123 45 67
		regexp.MustCompile(`\b0\s?\(?[1-9]\d{2}\)?[\s\-]\d{3}[\s\-]?\d{2}[\s\-]?\d{2}\b`),
		// (212) 123 45 67
		regexp.MustCompile(`\(\d{3}\)\s?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}`),
	}

	wordPattern = regexp.MustCompile(`\p{L}{3,}`)
)

const (
	minLineRunes = 3
	maxLineRunes = 200
)

// Classifier separates noise lines from candidate item rows
type Classifier struct {
	vocab *Vocabulary
}

// NewClassifier returns a classifier over vocab
func NewClassifier(vocab *Vocabulary) *Classifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Classifier{vocab: vocab}
}

// IsNoise reports whether line can never be an item row: too short or long, no
// letters, a ban-listed word, contact or banking details, or a bare header.
func (c *Classifier) IsNoise(line string) bool {
	line = strings.TrimSpace(line)
	n := utf8.RuneCountInString(line)
	if n < minLineRunes || n > maxLineRunes {
		return true
	}
	if !strings.ContainsFunc(line, unicode.IsLetter) {
		return true
	}
	if c.vocab.IsBanned(line) {
		return true
	}
	if urlPattern.MatchString(line) || emailPattern.MatchString(line) ||
		ibanPattern.MatchString(line) || uuidPattern.MatchString(line) {
		return true
	}
	for _, p := range phonePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return isHeader(line)
}

// IsCandidate reports whether line looks like an item row worth matching
func (c *Classifier) IsCandidate(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) <= 10 || c.IsNoise(line) {
		return false
	}
	if len(numericToken.FindAllString(line, -1)) < 2 {
		return false
	}
	if !wordPattern.MatchString(line) {
		return false
	}
	return c.hasUnitOrCurrency(line)
}

func (c *Classifier) hasUnitOrCurrency(line string) bool {
	if strings.ContainsAny(line, "₺€$") {
		return true
	}
	for _, field := range strings.Fields(line) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && r != '²' && r != '³'
		})
		if word == "" {
			continue
		}
		if c.vocab.IsUnit(word) || c.vocab.IsCurrency(word) {
			return true
		}
	}
	return false
}

// isHeader matches all-caps title lines ("FATURA BİLGİLERİ") that carry no
// numbers. Upper-case OCR item rows always have quantities and prices.
func isHeader(line string) bool {
	if utf8.RuneCountInString(line) <= 10 || numericToken.MatchString(line) {
		return false
	}
	for _, r := range line {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
