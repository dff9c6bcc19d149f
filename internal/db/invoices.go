package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"gorm.io/gorm"
)

// ErrInvoiceNotFound is returned when an invoice ID does not exist
var ErrInvoiceNotFound = errors.New("invoice not found")

// SaveInvoice stores an invoice with its items and logs
func SaveInvoice(ctx context.Context, db *gorm.DB, inv *models.Invoice) error {
	if err := db.WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// GetInvoices lists invoices newest first, without raw text and items.
// A limit <= 0 returns everything.
func GetInvoices(ctx context.Context, db *gorm.DB, status models.Status, limit int) ([]models.Invoice, error) {
	q := db.WithContext(ctx).
		Omit("raw_text").
		Order("processed_date DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// GetInvoiceByID retrieves a single invoice with its items
func GetInvoiceByID(ctx context.Context, db *gorm.DB, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice %d: %w", id, err)
	}
	return &inv, nil
}

// UpdateInvoice updates invoice columns
func UpdateInvoice(ctx context.Context, db *gorm.DB, id uint, updates map[string]interface{}) error {
	res := db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update invoice %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// DeleteInvoice removes an invoice with its items and logs
func DeleteInvoice(ctx context.Context, db *gorm.DB, id uint) error {
	tx := db.WithContext(ctx)
	if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete items of invoice %d: %w", id, err)
	}
	if err := tx.Where("invoice_id = ?", id).Delete(&models.ProcessingLog{}).Error; err != nil {
		return fmt.Errorf("failed to delete logs of invoice %d: %w", id, err)
	}
	res := tx.Delete(&models.Invoice{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete invoice %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// AddLog appends a processing log entry to an invoice
func AddLog(ctx context.Context, db *gorm.DB, invoiceID uint, level models.LogLevel, message, details string) error {
	entry := models.ProcessingLog{
		InvoiceID: invoiceID,
		Level:     level,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write processing log: %w", err)
	}
	return nil
}

// GetInvoiceLogs returns the processing logs of an invoice, oldest first
func GetInvoiceLogs(ctx context.Context, db *gorm.DB, invoiceID uint) ([]models.ProcessingLog, error) {
	var logs []models.ProcessingLog
	if err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("timestamp ASC, id ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get logs of invoice %d: %w", invoiceID, err)
	}
	return logs, nil
}
