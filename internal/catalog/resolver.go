// Package catalog maintains the product catalog and maps invoice item names
// onto products, merging spelling variants through fuzzy matching.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/facturaIA/invoice-stock-service/internal/parser"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultThreshold is the similarity at which two names are the same product
const DefaultThreshold = 0.85

const scanBatchSize = 500

// SQLSTATE unique_violation
const uniqueViolationCode = "23505"

var errStopScan = errors.New("stop scan")

// Resolver finds or creates the product an invoice item refers to
type Resolver struct {
	db        *gorm.DB
	vocab     *parser.Vocabulary
	threshold float64
	log       zerolog.Logger
	now       func() time.Time
}

// NewResolver returns a resolver. A threshold outside (0,1] falls back to
// DefaultThreshold.
func NewResolver(db *gorm.DB, vocab *parser.Vocabulary, threshold float64) *Resolver {
	if vocab == nil {
		vocab = parser.DefaultVocabulary()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Resolver{
		db:        db,
		vocab:     vocab,
		threshold: threshold,
		log:       logger.WithComponent("catalog"),
		now:       time.Now,
	}
}

// WithTx returns a copy of the resolver bound to tx
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	clone := *r
	clone.db = tx
	return &clone
}

// Threshold returns the fuzzy match threshold in use
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve returns the product for an item name. Lookup order is exact folded
// name, then code (renaming the product to name), then the first product in
// ID order whose name is similar enough. When nothing matches, a product is
// created with zero stock.
func (r *Resolver) Resolve(ctx context.Context, name, code, unit string) (*models.Product, error) {
	clean, err := ValidateName(r.vocab, name)
	if err != nil {
		return nil, err
	}
	key := NameKey(clean)
	db := r.db.WithContext(ctx)

	var p models.Product
	err = db.Where("name_key = ?", key).First(&p).Error
	switch {
	case err == nil:
		return &p, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to look up product by name: %w", err)
	}

	code = strings.TrimSpace(code)
	if code != "" {
		err = db.Where("code = ?", code).First(&p).Error
		switch {
		case err == nil:
			p.Name, p.NameKey, p.LastUpdated = clean, key, r.now()
			if err := db.Model(&p).Updates(map[string]interface{}{
				"name":         p.Name,
				"name_key":     p.NameKey,
				"last_updated": p.LastUpdated,
			}).Error; err != nil {
				return nil, fmt.Errorf("failed to rename product %d: %w", p.ID, err)
			}
			r.log.Debug().Uint("product_id", p.ID).Str("code", code).Str("name", clean).Msg("product renamed by code")
			return &p, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("failed to look up product by code: %w", err)
		}
	}

	match, err := r.fuzzyMatch(db, key)
	if err != nil {
		return nil, err
	}
	if match != nil {
		r.log.Debug().Uint("product_id", match.ID).Str("name", clean).Str("matched", match.Name).Msg("fuzzy product match")
		return match, nil
	}

	now := r.now()
	p = models.Product{
		Name:         clean,
		NameKey:      key,
		DefaultUnit:  r.vocab.NormalizeUnit(unit),
		CurrentStock: decimal.Zero,
		MinimumStock: decimal.NewFromInt(1),
		LastUpdated:  now,
		CreatedAt:    now,
	}
	if code != "" {
		p.Code = &code
	}
	created, err := r.insert(db, &p)
	if err != nil {
		return nil, err
	}
	if created == &p {
		r.log.Info().Uint("product_id", p.ID).Str("name", p.Name).Msg("product created")
	}
	return created, nil
}

// insert creates p in a savepoint. When another writer stored the same name
// key first, the unique index rejects the row and that product is returned.
func (r *Resolver) insert(db *gorm.DB, p *models.Product) (*models.Product, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(p).Error
	})
	if err == nil {
		return p, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	var existing models.Product
	if lookupErr := db.Where("name_key = ?", p.NameKey).First(&existing).Error; lookupErr != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	r.log.Debug().Uint("product_id", existing.ID).Str("name", p.Name).Msg("product created concurrently")
	return &existing, nil
}

// isUniqueViolation recognizes a unique index rejection from postgres or sqlite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// fuzzyMatch scans products in ID order and returns the first one whose key is
// at least threshold similar to key
func (r *Resolver) fuzzyMatch(db *gorm.DB, key string) (*models.Product, error) {
	var (
		batch []models.Product
		found *models.Product
	)
	res := db.Order("id").FindInBatches(&batch, scanBatchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if keySimilarity(key, batch[i].NameKey) >= r.threshold {
				p := batch[i]
				found = &p
				return errStopScan
			}
		}
		return nil
	})
	if res.Error != nil && !errors.Is(res.Error, errStopScan) {
		return nil, fmt.Errorf("failed to scan products: %w", res.Error)
	}
	return found, nil
}
