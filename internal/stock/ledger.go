// Package stock keeps product balances as an append-only movement ledger.
// Every change to a product's stock is a movement carrying the previous and
// new balance, so history can be replayed and drift repaired.
package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/catalog"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Epsilon is the largest difference between replayed and stored stock that
// counts as consistent
var Epsilon = decimal.RequireFromString("0.001")

// Ledger applies invoices to product stock and maintains the movement log
type Ledger struct {
	db       *gorm.DB
	resolver *catalog.Resolver
	log      zerolog.Logger
	now      func() time.Time
}

// ApplyResult reports what Apply did with each invoice item
type ApplyResult struct {
	InvoiceID uint                   `json:"invoiceId"`
	Movements []models.StockMovement `json:"movements"`
	Skipped   []*ItemError           `json:"skipped,omitempty"`
}

// RepairResult is the outcome of replaying one product's movements
type RepairResult struct {
	ProductID uint            `json:"productId"`
	Name      string          `json:"name"`
	Stored    decimal.Decimal `json:"stored"`
	Replayed  decimal.Decimal `json:"replayed"`
	Movements int             `json:"movements"`
	Changed   bool            `json:"changed"`
}

// NewLedger creates a ledger resolving products through resolver
func NewLedger(db *gorm.DB, resolver *catalog.Resolver) *Ledger {
	return &Ledger{
		db:       db,
		resolver: resolver,
		log:      logger.WithComponent("stock"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithTx returns a copy of the ledger bound to tx. The operations then run in
// nested transactions (savepoints) of tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	clone := *l
	clone.db = tx
	clone.resolver = l.resolver.WithTx(tx)
	return &clone
}

// Apply moves stock for every valid item of inv in the direction of the
// invoice. Items that cannot be resolved are skipped and reported; a store
// failure rolls the whole invoice back.
func (l *Ledger) Apply(ctx context.Context, inv *models.Invoice) (*ApplyResult, error) {
	if !inv.Direction.Valid() {
		return nil, NewLedgerError("apply", ErrInvalidDirection, string(inv.Direction))
	}
	kind := models.MovementKindFor(inv.Direction)
	description := fmt.Sprintf("%s - %s", kind, inv.FileName)

	result := &ApplyResult{InvoiceID: inv.ID}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.StockMovement{}).Where("invoice_id = ?", inv.ID).Count(&existing).Error; err != nil {
			return NewLedgerError("apply", err, "count movements")
		}
		if existing > 0 {
			return ErrAlreadyApplied
		}

		resolver := l.resolver.WithTx(tx)
		for i := range inv.Items {
			item := &inv.Items[i]
			if !item.Quantity.IsPositive() {
				result.Skipped = append(result.Skipped, newItemError(i, item.ProductName, ErrInvalidQuantity))
				continue
			}

			product, err := resolver.Resolve(ctx, item.ProductName, item.ProductCode, item.Unit)
			if err != nil {
				if errors.Is(err, catalog.ErrInvalidProductName) {
					result.Skipped = append(result.Skipped, newItemError(i, item.ProductName, err))
					continue
				}
				return WrapLedgerError("apply", err, fmt.Sprintf("resolve %q", item.ProductName))
			}

			var price *decimal.Decimal
			if inv.Direction == models.DirectionPurchase && item.UnitPrice.IsPositive() {
				p := item.UnitPrice
				price = &p
			}

			mv, err := l.move(tx, product.ID, kind, item.Quantity, &inv.ID, description, price)
			if err != nil {
				return WrapLedgerError("apply", err, fmt.Sprintf("item %d", i))
			}
			result.Movements = append(result.Movements, *mv)

			item.ProductID = &product.ID
			if item.ID != 0 {
				if err := tx.Model(&models.InvoiceItem{}).Where("id = ?", item.ID).Update("product_id", product.ID).Error; err != nil {
					return NewLedgerError("apply", err, fmt.Sprintf("link item %d", item.ID))
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, skipped := range result.Skipped {
		l.log.Warn().Uint("invoice_id", inv.ID).Int("item", skipped.Index).Str("name", skipped.Name).Msg(skipped.Reason)
	}
	l.log.Info().
		Uint("invoice_id", inv.ID).
		Str("direction", string(inv.Direction)).
		Int("movements", len(result.Movements)).
		Int("skipped", len(result.Skipped)).
		Msg("invoice applied to stock")
	return result, nil
}

// move locks the product row, writes the new balance and appends the movement
func (l *Ledger) move(tx *gorm.DB, productID uint, kind models.MovementKind, qty decimal.Decimal, invoiceID *uint, description string, price *decimal.Decimal) (*models.StockMovement, error) {
	p, err := lockProduct(tx, productID)
	if err != nil {
		return nil, err
	}

	previous := p.CurrentStock
	next := previous.Add(kind.Delta(qty))
	now := l.now()

	updates := map[string]interface{}{
		"current_stock": next,
		"last_updated":  now,
	}
	if price != nil {
		updates["last_purchase_price"] = *price
	}
	if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update stock of product %d: %w", p.ID, err)
	}

	mv := models.StockMovement{
		ProductID:     p.ID,
		InvoiceID:     invoiceID,
		Kind:          kind,
		Quantity:      qty,
		PreviousStock: previous,
		NewStock:      next,
		MovementDate:  now,
		Description:   description,
	}
	if err := tx.Create(&mv).Error; err != nil {
		return nil, fmt.Errorf("failed to record movement for product %d: %w", p.ID, err)
	}
	return &mv, nil
}

// lockProduct loads a product with SELECT ... FOR UPDATE. SQLite ignores the
// locking clause and serialises writers on its own.
func lockProduct(tx *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to lock product %d: %w", id, err)
	}
	return &p, nil
}

// Reverse undoes the movements of inv, newest first, restoring each product
// to the balance it had before the movement. A product whose balance changed
// since is still restored; the drift is logged. Returns the number of
// movements reversed.
func (l *Ledger) Reverse(ctx context.Context, inv *models.Invoice) (int, error) {
	var reversed int
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var movements []models.StockMovement
		if err := tx.Where("invoice_id = ?", inv.ID).
			Order("movement_date DESC, id DESC").
			Find(&movements).Error; err != nil {
			return NewLedgerError("reverse", err, "load movements")
		}

		now := l.now()
		for _, mv := range movements {
			p, err := lockProduct(tx, mv.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrProductNotFound) {
					l.log.Warn().Uint("movement_id", mv.ID).Uint("product_id", mv.ProductID).Msg("movement points at a missing product")
					continue
				}
				return NewLedgerError("reverse", err, fmt.Sprintf("movement %d", mv.ID))
			}

			if !p.CurrentStock.Equal(mv.NewStock) {
				l.log.Warn().
					Uint("invoice_id", inv.ID).
					Uint("product_id", p.ID).
					Str("expected", mv.NewStock.String()).
					Str("current", p.CurrentStock.String()).
					Msg("stock changed after this invoice; restoring the recorded previous balance")
			}

			if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
				"current_stock": mv.PreviousStock,
				"last_updated":  now,
			}).Error; err != nil {
				return NewLedgerError("reverse", err, fmt.Sprintf("restore product %d", p.ID))
			}
		}

		if len(movements) > 0 {
			if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.StockMovement{}).Error; err != nil {
				return NewLedgerError("reverse", err, "delete movements")
			}
		}
		reversed = len(movements)
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.log.Info().Uint("invoice_id", inv.ID).Int("movements", reversed).Msg("invoice reversed from stock")
	return reversed, nil
}

// Repair replays the movements of a product from zero in (date, ID) order and
// overwrites the stored balance when it is off by more than Epsilon.
// Repairing twice changes nothing the second time.
func (l *Ledger) Repair(ctx context.Context, productID uint) (*RepairResult, error) {
	var result *RepairResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProduct(tx, productID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return err
			}
			return NewLedgerError("repair", err, "")
		}

		var movements []models.StockMovement
		if err := tx.Where("product_id = ?", productID).
			Order("movement_date ASC, id ASC").
			Find(&movements).Error; err != nil {
			return NewLedgerError("repair", err, fmt.Sprintf("load movements of product %d", productID))
		}

		replayed := decimal.Zero
		for _, mv := range movements {
			replayed = replayed.Add(mv.Kind.Delta(mv.Quantity))
		}

		result = &RepairResult{
			ProductID: p.ID,
			Name:      p.Name,
			Stored:    p.CurrentStock,
			Replayed:  replayed,
			Movements: len(movements),
		}
		if replayed.Sub(p.CurrentStock).Abs().LessThanOrEqual(Epsilon) {
			return nil
		}

		if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
			"current_stock": replayed,
			"last_updated":  l.now(),
		}).Error; err != nil {
			return NewLedgerError("repair", err, fmt.Sprintf("write product %d", p.ID))
		}
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		l.log.Warn().
			Uint("product_id", result.ProductID).
			Str("stored", result.Stored.String()).
			Str("replayed", result.Replayed.String()).
			Msg("stock drift repaired")
	}
	return result, nil
}

// RepairAll repairs every product and returns one result per product
func (l *Ledger) RepairAll(ctx context.Context) ([]RepairResult, error) {
	var ids []uint
	if err := l.db.WithContext(ctx).Model(&models.Product{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, NewLedgerError("repair", err, "list products")
	}

	results := make([]RepairResult, 0, len(ids))
	changed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := l.Repair(ctx, id)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				continue
			}
			return results, err
		}
		if res.Changed {
			changed++
		}
		results = append(results, *res)
	}

	l.log.Info().Int("products", len(results)).Int("changed", changed).Msg("stock repair finished")
	return results, nil
}

// ListMovements returns movements newest first with their product. A nil
// productID lists every product.
func (l *Ledger) ListMovements(ctx context.Context, productID *uint) ([]models.StockMovement, error) {
	q := l.db.WithContext(ctx).Preload("Product").Order("movement_date DESC, id DESC")
	if productID != nil {
		q = q.Where("product_id = ?", *productID)
	}

	var movements []models.StockMovement
	if err := q.Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}

// Adjust sets a product's stock to newStock by recording an Adjustment
// movement with the signed difference
func (l *Ledger) Adjust(ctx context.Context, productID uint, newStock decimal.Decimal, note string) (*models.StockMovement, error) {
	var mv *models.StockMovement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProduct(tx, productID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return err
			}
			return NewLedgerError("adjust", err, "")
		}

		description := string(models.MovementAdjustment)
		if note != "" {
			description += " - " + note
		}
		mv, err = l.move(tx, p.ID, models.MovementAdjustment, newStock.Sub(p.CurrentStock), nil, description, nil)
		if err != nil {
			return WrapLedgerError("adjust", err, fmt.Sprintf("product %d", p.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Uint("product_id", productID).
		Str("previous", mv.PreviousStock.String()).
		Str("new", mv.NewStock.String()).
		Msg("stock adjusted")
	return mv, nil
}
