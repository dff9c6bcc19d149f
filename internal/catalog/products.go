package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductInput carries the editable product fields. Stock is not editable
// here; it changes through the ledger only.
type ProductInput struct {
	Name         string           `json:"name"`
	Code         string           `json:"code,omitempty"`
	Unit         string           `json:"unit,omitempty"`
	Description  string           `json:"description,omitempty"`
	Category     string           `json:"category,omitempty"`
	MinimumStock *decimal.Decimal `json:"minimumStock,omitempty"`
}

// List returns products ordered by name, optionally filtered by a search term
// matched against the folded name and the code
func (r *Resolver) List(ctx context.Context, search string) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Order("name")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + NameKey(search) + "%"
		q = q.Where("name_key LIKE ? OR code LIKE ?", like, "%"+search+"%")
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Get returns a product by ID
func (r *Resolver) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &p, nil
}

// Create adds a product with zero stock. The name must be valid and unused.
func (r *Resolver) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	clean, err := ValidateName(r.vocab, in.Name)
	if err != nil {
		return nil, err
	}
	key := NameKey(clean)
	code := strings.TrimSpace(in.Code)

	db := r.db.WithContext(ctx)
	if err := r.ensureUnique(db, 0, key, code); err != nil {
		return nil, err
	}

	now := r.now()
	p := models.Product{
		Name:         clean,
		NameKey:      key,
		Description:  in.Description,
		Category:     in.Category,
		DefaultUnit:  r.vocab.NormalizeUnit(in.Unit),
		CurrentStock: decimal.Zero,
		MinimumStock: decimal.NewFromInt(1),
		LastUpdated:  now,
		CreatedAt:    now,
	}
	if code != "" {
		p.Code = &code
	}
	if in.MinimumStock != nil {
		p.MinimumStock = *in.MinimumStock
	}
	if err := db.Create(&p).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, clean)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

// Update changes the descriptive fields of a product
func (r *Resolver) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	if strings.TrimSpace(in.Name) != "" {
		clean, err := ValidateName(r.vocab, in.Name)
		if err != nil {
			return nil, err
		}
		p.Name, p.NameKey = clean, NameKey(clean)
	}
	if code := strings.TrimSpace(in.Code); code != "" {
		p.Code = &code
	}
	if err := r.ensureUnique(db, p.ID, p.NameKey, p.CodeValue()); err != nil {
		return nil, err
	}

	if in.Unit != "" {
		p.DefaultUnit = r.vocab.NormalizeUnit(in.Unit)
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Category != "" {
		p.Category = in.Category
	}
	if in.MinimumStock != nil {
		p.MinimumStock = *in.MinimumStock
	}
	p.LastUpdated = r.now()

	if err := db.Save(p).Error; err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	return p, nil
}

// Delete removes a product with its movements. Invoice items that pointed at
// it are unlinked.
func (r *Resolver) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.StockMovement{}).Error; err != nil {
			return fmt.Errorf("failed to delete movements of product %d: %w", id, err)
		}
		if err := tx.Model(&models.InvoiceItem{}).Where("product_id = ?", id).Update("product_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink items of product %d: %w", id, err)
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete product %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})
}

// LowStock returns products at or below their minimum stock, lowest first
func (r *Resolver) LowStock(ctx context.Context, limit int) ([]models.Product, error) {
	q := r.db.WithContext(ctx).
		Where("current_stock <= minimum_stock").
		Order("current_stock ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

func (r *Resolver) ensureUnique(db *gorm.DB, id uint, key, code string) error {
	var count int64
	if err := db.Model(&models.Product{}).Where("name_key = ? AND id <> ?", key, id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check product name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: name %q", ErrDuplicateProduct, key)
	}
	if code == "" {
		return nil
	}
	if err := db.Model(&models.Product{}).Where("code = ? AND id <> ?", code, id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check product code: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: code %q", ErrDuplicateProduct, code)
	}
	return nil
}
