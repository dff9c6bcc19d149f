package db

import (
	"context"
	"fmt"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardStats are the invoice figures shown on the dashboard
type DashboardStats struct {
	TotalInvoices  int64           `json:"totalInvoices"`
	PendingReview  int64           `json:"pendingReview"`
	Failed         int64           `json:"failed"`
	ProcessedToday int64           `json:"processedToday"`
	ApprovedAmount decimal.Decimal `json:"approvedAmount"`
	Month          *MonthlyStats   `json:"month"`
}

// MonthlyStats represents monthly statistics
type MonthlyStats struct {
	Month         string          `json:"month"`
	TotalInvoices int64           `json:"totalInvoices"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	TotalVAT      decimal.Decimal `json:"totalVat"`
}

// StockSummary describes the catalog as a whole
type StockSummary struct {
	Products     int64           `json:"products"`
	LowStock     int64           `json:"lowStock"`
	StockValue   decimal.Decimal `json:"stockValue"`
	Movements    int64           `json:"movements"`
	LastMovement *time.Time      `json:"lastMovement,omitempty"`
}

// GetDashboardStats returns invoice counts and the approved amount. now sets
// the day and month boundaries.
func GetDashboardStats(ctx context.Context, db *gorm.DB, now time.Time) (*DashboardStats, error) {
	tx := db.WithContext(ctx)
	stats := &DashboardStats{}

	if err := tx.Model(&models.Invoice{}).Count(&stats.TotalInvoices).Error; err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}
	if err := tx.Model(&models.Invoice{}).Where("status = ?", models.StatusPendingReview).Count(&stats.PendingReview).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending invoices: %w", err)
	}
	if err := tx.Model(&models.Invoice{}).Where("status = ?", models.StatusFailed).Count(&stats.Failed).Error; err != nil {
		return nil, fmt.Errorf("failed to count failed invoices: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := tx.Model(&models.Invoice{}).Where("processed_date >= ?", today).Count(&stats.ProcessedToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's invoices: %w", err)
	}

	approved, err := sumColumn(tx.Model(&models.Invoice{}).Where("status = ?", models.StatusApproved), "total_amount")
	if err != nil {
		return nil, err
	}
	stats.ApprovedAmount = approved

	month, err := GetMonthlyStats(ctx, db, now)
	if err != nil {
		return nil, err
	}
	stats.Month = month
	return stats, nil
}

// GetMonthlyStats returns statistics for the month containing now
func GetMonthlyStats(ctx context.Context, db *gorm.DB, now time.Time) (*MonthlyStats, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	tx := db.WithContext(ctx)

	stats := &MonthlyStats{Month: start.Format("2006-01")}
	inMonth := func() *gorm.DB {
		return tx.Model(&models.Invoice{}).Where("processed_date >= ?", start)
	}

	if err := inMonth().Count(&stats.TotalInvoices).Error; err != nil {
		return nil, fmt.Errorf("failed to count monthly invoices: %w", err)
	}
	var err error
	if stats.TotalAmount, err = sumColumn(inMonth(), "total_amount"); err != nil {
		return nil, err
	}
	if stats.TotalVAT, err = sumColumn(inMonth(), "vat_amount"); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetStockSummary returns product counts and the stock value at last
// purchase prices
func GetStockSummary(ctx context.Context, db *gorm.DB) (*StockSummary, error) {
	tx := db.WithContext(ctx)
	s := &StockSummary{}

	if err := tx.Model(&models.Product{}).Count(&s.Products).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := tx.Model(&models.Product{}).Where("current_stock <= minimum_stock").Count(&s.LowStock).Error; err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}

	value, err := sumColumn(tx.Model(&models.Product{}), "current_stock * COALESCE(last_purchase_price, 0)")
	if err != nil {
		return nil, err
	}
	s.StockValue = value

	if err := tx.Model(&models.StockMovement{}).Count(&s.Movements).Error; err != nil {
		return nil, fmt.Errorf("failed to count movements: %w", err)
	}
	if s.Movements > 0 {
		var last models.StockMovement
		if err := tx.Order("movement_date DESC, id DESC").First(&last).Error; err != nil {
			return nil, fmt.Errorf("failed to get last movement: %w", err)
		}
		s.LastMovement = &last.MovementDate
	}
	return s, nil
}

// sumColumn sums expr over q. The result is scanned as a decimal so that
// postgres numerics and sqlite reals both fit.
func sumColumn(q *gorm.DB, expr string) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := q.Select("SUM(" + expr + ")").Row().Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s: %w", expr, err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
