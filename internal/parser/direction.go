package parser

import (
	"github.com/facturaIA/invoice-stock-service/internal/models"
)

// DirectionScores is the keyword evidence behind a classification
type DirectionScores struct {
	Sale      int              `json:"sale"`
	Purchase  int              `json:"purchase"`
	IsReturn  bool             `json:"isReturn"`
	SaleHits  []string         `json:"saleHits,omitempty"`
	BuyHits   []string         `json:"purchaseHits,omitempty"`
	Direction models.Direction `json:"direction"`
}

// DirectionClassifier decides whether an invoice is a purchase, a sale or a
// return of either
type DirectionClassifier struct {
	vocab *Vocabulary
}

func NewDirectionClassifier(vocab *Vocabulary) *DirectionClassifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &DirectionClassifier{vocab: vocab}
}

// Classify returns the direction named by hint when it is a known direction,
// otherwise the direction the text's keywords vote for.
func (c *DirectionClassifier) Classify(text, hint string) models.Direction {
	if d, ok := models.ParseDirection(hint); ok {
		return d
	}
	return c.Scores(text).Direction
}

// Scores runs the weighted keyword vote over text. Each keyword counts once
// no matter how often it appears. Ties go to Purchase.
func (c *DirectionClassifier) Scores(text string) DirectionScores {
	folded := Fold(text)

	var s DirectionScores
	for _, kw := range c.vocab.sale {
		if kw.re.MatchString(folded) {
			s.Sale += kw.weight
			s.SaleHits = append(s.SaleHits, kw.word)
		}
	}
	for _, kw := range c.vocab.purchase {
		if kw.re.MatchString(folded) {
			s.Purchase += kw.weight
			s.BuyHits = append(s.BuyHits, kw.word)
		}
	}
	s.IsReturn = c.vocab.returns.matchFolded(folded)

	sale := s.Sale > s.Purchase
	switch {
	case sale && s.IsReturn:
		s.Direction = models.DirectionSaleReturn
	case sale:
		s.Direction = models.DirectionSale
	case s.IsReturn:
		s.Direction = models.DirectionPurchaseReturn
	default:
		s.Direction = models.DirectionPurchase
	}
	return s
}
