// Package services holds the invoice workflows that span the parser, the
// catalog, the stock ledger and the document archive.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/db"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/facturaIA/invoice-stock-service/internal/ocr"
	"github.com/facturaIA/invoice-stock-service/internal/parser"
	"github.com/facturaIA/invoice-stock-service/internal/stock"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	ErrInvoiceNotFound = db.ErrInvoiceNotFound
	ErrAlreadyApproved = errors.New("invoice already approved")
	ErrInvalidStatus   = errors.New("invoice status does not allow this operation")
	ErrNoDocument      = errors.New("invoice has no archived document")
)

// DocumentReader turns an uploaded file into raw text
type DocumentReader interface {
	ExtractText(ctx context.Context, data []byte, fileName string) (string, error)
}

// Archive keeps the original uploaded documents
type Archive interface {
	Put(ctx context.Context, fileName string, data []byte, contentType string) (string, error)
	PresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, objectPath string) error
}

// Upload is a document received for processing
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
	// Hint optionally names the direction ("Purchase", "Sale", ... or 1-4)
	Hint string
}

// ProcessResult is a stored draft together with its consistency checks
type ProcessResult struct {
	Invoice    *models.Invoice   `json:"invoice"`
	Validation *ValidationResult `json:"validation,omitempty"`
}

// ApproveResult reports what approval did to the stock
type ApproveResult struct {
	Invoice *models.Invoice    `json:"invoice"`
	Stock   *stock.ApplyResult `json:"stock"`
}

// InvoiceService runs the upload, approval and deletion workflows
type InvoiceService struct {
	db          *gorm.DB
	reader      DocumentReader
	interpreter *parser.Interpreter
	validator   *ConsistencyValidator
	ledger      *stock.Ledger
	archive     Archive
	log         zerolog.Logger
}

// NewInvoiceService wires the workflows. archive may be nil, in which case
// documents are not kept.
func NewInvoiceService(gdb *gorm.DB, reader DocumentReader, interpreter *parser.Interpreter, ledger *stock.Ledger, archive Archive) *InvoiceService {
	return &InvoiceService{
		db:          gdb,
		reader:      reader,
		interpreter: interpreter,
		validator:   NewConsistencyValidator(),
		ledger:      ledger,
		archive:     archive,
		log:         logger.WithComponent("invoices"),
	}
}

// Process extracts, interprets and stores an uploaded document as a
// PendingReview draft. A document whose text cannot be extracted is stored as
// Failed so it still shows up for review; an unsupported format is refused.
func (s *InvoiceService) Process(ctx context.Context, up Upload) (*ProcessResult, error) {
	log := s.log.With().Str("file", up.FileName).Logger()

	text, err := s.reader.ExtractText(ctx, up.Data, up.FileName)
	if err != nil {
		if errors.Is(err, ocr.ErrUnsupportedFormat) {
			return nil, err
		}
		log.Error().Err(err).Msg("text extraction failed")
		inv := &models.Invoice{
			FileName:      up.FileName,
			Direction:     models.DirectionPurchase,
			ProcessedDate: time.Now(),
			Status:        models.StatusFailed,
			ErrorMessage:  err.Error(),
			Logs: []models.ProcessingLog{
				newLog(models.LogError, "text extraction failed", err.Error()),
			},
		}
		inv.DocumentPath = s.archiveDocument(ctx, up, log)
		if err := db.SaveInvoice(ctx, s.db, inv); err != nil {
			return nil, err
		}
		return &ProcessResult{Invoice: inv}, nil
	}

	inv, validation := s.Parse(text, up.FileName, up.Hint)
	inv.Logs = append(inv.Logs, newLog(models.LogInfo, "invoice interpreted", parseSummary(inv)))
	inv.Logs = append(inv.Logs, validationLogs(validation)...)
	inv.DocumentPath = s.archiveDocument(ctx, up, log)

	if err := db.SaveInvoice(ctx, s.db, inv); err != nil {
		return nil, err
	}

	log.Info().
		Uint("invoice_id", inv.ID).
		Str("direction", string(inv.Direction)).
		Int("items", len(inv.Items)).
		Int("confidence", inv.Confidence).
		Bool("needs_review", validation.NeedsReview).
		Msg("invoice processed")
	return &ProcessResult{Invoice: inv, Validation: validation}, nil
}

// Parse interprets text without storing anything
func (s *InvoiceService) Parse(text, fileName, hint string) (*models.Invoice, *ValidationResult) {
	inv := s.interpreter.Interpret(text, fileName, hint)
	return inv, s.validator.Validate(inv)
}

// Get returns one invoice with its items
func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return db.GetInvoiceByID(ctx, s.db, id)
}

// List returns invoices newest first, optionally filtered by status
func (s *InvoiceService) List(ctx context.Context, status models.Status, limit int) ([]models.Invoice, error) {
	return db.GetInvoices(ctx, s.db, status, limit)
}

// Logs returns the processing logs of an invoice
func (s *InvoiceService) Logs(ctx context.Context, id uint) ([]models.ProcessingLog, error) {
	if _, err := db.GetInvoiceByID(ctx, s.db, id); err != nil {
		return nil, err
	}
	return db.GetInvoiceLogs(ctx, s.db, id)
}

// Approve applies a PendingReview invoice to stock and marks it Approved in
// one transaction. items, when not nil, replaces the interpreted line items
// with the reviewed ones first. Items the ledger skips are logged as warnings.
func (s *InvoiceService) Approve(ctx context.Context, id uint, items []models.InvoiceItem) (*ApproveResult, error) {
	var result *ApproveResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := db.GetInvoiceByID(ctx, tx, id)
		if err != nil {
			return err
		}
		switch inv.Status {
		case models.StatusApproved:
			return ErrAlreadyApproved
		case models.StatusPendingReview:
		default:
			return fmt.Errorf("%w: cannot approve a %s invoice", ErrInvalidStatus, inv.Status)
		}

		if items != nil {
			if err := replaceItems(tx, inv, items); err != nil {
				return err
			}
		}

		applied, err := s.ledger.WithTx(tx).Apply(ctx, inv)
		if err != nil {
			return err
		}

		if err := db.UpdateInvoice(ctx, tx, id, map[string]interface{}{"status": models.StatusApproved}); err != nil {
			return err
		}
		inv.Status = models.StatusApproved

		for _, skipped := range applied.Skipped {
			details := fmt.Sprintf("item %d %q: %s", skipped.Index+1, skipped.Name, skipped.Reason)
			if err := db.AddLog(ctx, tx, id, models.LogWarning, "item skipped during approval", details); err != nil {
				return err
			}
		}
		summary := fmt.Sprintf("%d movements, %d items skipped", len(applied.Movements), len(applied.Skipped))
		if err := db.AddLog(ctx, tx, id, models.LogInfo, "invoice approved", summary); err != nil {
			return err
		}

		result = &ApproveResult{Invoice: inv, Stock: applied}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("invoice_id", id).Int("movements", len(result.Stock.Movements)).Msg("invoice approved")
	return result, nil
}

// replaceItems swaps the invoice's items for the reviewed ones
func replaceItems(tx *gorm.DB, inv *models.Invoice, items []models.InvoiceItem) error {
	if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete items of invoice %d: %w", inv.ID, err)
	}

	replaced := make([]models.InvoiceItem, 0, len(items))
	for _, it := range items {
		it.ID = 0
		it.InvoiceID = inv.ID
		it.ProductID = nil
		it.ProductName = strings.TrimSpace(it.ProductName)
		if it.Unit == "" {
			it.Unit = models.DefaultUnit
		}
		replaced = append(replaced, it)
	}
	if len(replaced) > 0 {
		if err := tx.Create(&replaced).Error; err != nil {
			return fmt.Errorf("failed to save items of invoice %d: %w", inv.ID, err)
		}
	}
	inv.Items = replaced
	return nil
}

// Delete removes an invoice. An approved invoice has its stock movements
// reversed in the same transaction. The archived document is removed
// afterwards on a best-effort basis. Returns the number of movements reversed.
func (s *InvoiceService) Delete(ctx context.Context, id uint) (int, error) {
	var (
		reversed     int
		documentPath string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := db.GetInvoiceByID(ctx, tx, id)
		if err != nil {
			return err
		}
		documentPath = inv.DocumentPath

		if inv.Status == models.StatusApproved {
			reversed, err = s.ledger.WithTx(tx).Reverse(ctx, inv)
			if err != nil {
				return err
			}
		}
		return db.DeleteInvoice(ctx, tx, id)
	})
	if err != nil {
		return 0, err
	}

	if documentPath != "" && s.archive != nil {
		if err := s.archive.Remove(ctx, documentPath); err != nil {
			s.log.Warn().Err(err).Str("document", documentPath).Msg("failed to remove archived document")
		}
	}

	s.log.Info().Uint("invoice_id", id).Int("reversed", reversed).Msg("invoice deleted")
	return reversed, nil
}

// DocumentURL returns a temporary link to the original document
func (s *InvoiceService) DocumentURL(ctx context.Context, id uint, expiry time.Duration) (string, error) {
	inv, err := db.GetInvoiceByID(ctx, s.db, id)
	if err != nil {
		return "", err
	}
	if inv.DocumentPath == "" || s.archive == nil {
		return "", ErrNoDocument
	}
	return s.archive.PresignedURL(ctx, inv.DocumentPath, expiry)
}

// archiveDocument stores the upload; a failure only costs the document link
func (s *InvoiceService) archiveDocument(ctx context.Context, up Upload, log zerolog.Logger) string {
	if s.archive == nil || len(up.Data) == 0 {
		return ""
	}
	path, err := s.archive.Put(ctx, up.FileName, up.Data, up.ContentType)
	if err != nil {
		log.Warn().Err(err).Msg("failed to archive document")
		return ""
	}
	return path
}

func newLog(level models.LogLevel, message, details string) models.ProcessingLog {
	return models.ProcessingLog{
		Level:     level,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

func parseSummary(inv *models.Invoice) string {
	return fmt.Sprintf("direction=%s items=%d confidence=%d number=%q total=%s",
		inv.Direction, len(inv.Items), inv.Confidence, inv.InvoiceNumber, inv.TotalAmount.StringFixed(2))
}

func validationLogs(v *ValidationResult) []models.ProcessingLog {
	var logs []models.ProcessingLog
	for _, e := range v.Errors {
		logs = append(logs, newLog(models.LogWarning, "consistency check failed", fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)))
	}
	for _, w := range v.Warnings {
		logs = append(logs, newLog(models.LogWarning, "consistency warning", fmt.Sprintf("%s: %s (%s)", w.Field, w.Message, w.Code)))
	}
	return logs
}
