// Package parser interprets the free text of an invoice: it finds the header
// fields, segments the line items, decides the direction of the goods and
// scores how much of the document it understood.
//
// Everything in the package is pure and safe for concurrent use.
package parser

import (
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/models"
)

// Interpreter turns raw invoice text into an invoice draft
type Interpreter struct {
	fields     *FieldExtractor
	extractor  *Extractor
	directions *DirectionClassifier
	now        func() time.Time
}

// NewInterpreter wires the interpreter components over one vocabulary. A nil
// vocabulary means the built-in defaults.
func NewInterpreter(vocab *Vocabulary) *Interpreter {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Interpreter{
		fields:     NewFieldExtractor(vocab),
		extractor:  NewExtractor(vocab),
		directions: NewDirectionClassifier(vocab),
		now:        time.Now,
	}
}

// Directions exposes the direction classifier (for score explanations)
func (ip *Interpreter) Directions() *DirectionClassifier {
	return ip.directions
}

// Interpret builds a PendingReview invoice from rawText. Fields that cannot be
// found are left empty; the confidence score reflects what was found. hint may
// name the direction explicitly.
func (ip *Interpreter) Interpret(rawText, fileName, hint string) *models.Invoice {
	text := RepairMojibake(rawText)
	header := ip.fields.Extract(text)

	inv := &models.Invoice{
		FileName:      fileName,
		Direction:     ip.directions.Classify(text, hint),
		ProcessedDate: ip.now(),
		InvoiceNumber: header.InvoiceNumber,
		InvoiceDate:   header.InvoiceDate,
		SupplierName:  header.SupplierName,
		CustomerName:  header.CustomerName,
		TotalAmount:   header.Total,
		VATAmount:     header.VAT,
		Status:        models.StatusPendingReview,
		RawText:       rawText,
		Items:         ip.extractor.ExtractItems(text),
	}
	inv.Confidence = Score(inv, text)
	return inv
}
