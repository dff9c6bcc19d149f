package catalog

import (
	"context"
	"fmt"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"gorm.io/gorm"
)

// DuplicateGroup is a product and the later products similar enough to it
type DuplicateGroup struct {
	Keep       models.Product   `json:"keep"`
	Duplicates []models.Product `json:"duplicates"`
}

// MergeResult summarises a MergeDuplicates run
type MergeResult struct {
	Groups  int `json:"groups"`
	Removed int `json:"removed"`
}

// PreviewDuplicates groups products whose names are at least threshold
// similar. The lowest ID of each group is the one kept.
func (r *Resolver) PreviewDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	return r.findDuplicates(r.db.WithContext(ctx))
}

func (r *Resolver) findDuplicates(db *gorm.DB) ([]DuplicateGroup, error) {
	var products []models.Product
	if err := db.Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	grouped := make([]bool, len(products))
	var groups []DuplicateGroup
	for i := range products {
		if grouped[i] {
			continue
		}
		g := DuplicateGroup{Keep: products[i]}
		for j := i + 1; j < len(products); j++ {
			if grouped[j] {
				continue
			}
			if keySimilarity(products[i].NameKey, products[j].NameKey) >= r.threshold {
				g.Duplicates = append(g.Duplicates, products[j])
				grouped[j] = true
			}
		}
		if len(g.Duplicates) > 0 {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// MergeDuplicates folds every duplicate group into its kept product: stocks
// are summed, movements and invoice items move over, the first non-empty code
// and the highest last purchase price are kept, and the duplicates are deleted.
func (r *Resolver) MergeDuplicates(ctx context.Context) (*MergeResult, error) {
	result := &MergeResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		groups, err := r.findDuplicates(tx)
		if err != nil {
			return err
		}
		for _, g := range groups {
			if err := r.mergeGroup(tx, g); err != nil {
				return err
			}
			result.Groups++
			result.Removed += len(g.Duplicates)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().Int("groups", result.Groups).Int("removed", result.Removed).Msg("duplicate products merged")
	return result, nil
}

func (r *Resolver) mergeGroup(tx *gorm.DB, g DuplicateGroup) error {
	keep := g.Keep
	ids := make([]uint, 0, len(g.Duplicates))
	for _, d := range g.Duplicates {
		ids = append(ids, d.ID)
		keep.CurrentStock = keep.CurrentStock.Add(d.CurrentStock)
		if keep.Code == nil && d.Code != nil && *d.Code != "" {
			code := *d.Code
			keep.Code = &code
		}
		if d.LastPurchasePrice != nil && (keep.LastPurchasePrice == nil || d.LastPurchasePrice.GreaterThan(*keep.LastPurchasePrice)) {
			price := *d.LastPurchasePrice
			keep.LastPurchasePrice = &price
		}
	}

	if err := tx.Model(&models.StockMovement{}).Where("product_id IN ?", ids).Update("product_id", keep.ID).Error; err != nil {
		return fmt.Errorf("failed to move movements to product %d: %w", keep.ID, err)
	}
	if err := tx.Model(&models.InvoiceItem{}).Where("product_id IN ?", ids).Update("product_id", keep.ID).Error; err != nil {
		return fmt.Errorf("failed to move invoice items to product %d: %w", keep.ID, err)
	}
	// the duplicates go first so a code taken over from them stays unique
	if err := tx.Delete(&models.Product{}, ids).Error; err != nil {
		return fmt.Errorf("failed to delete duplicates of product %d: %w", keep.ID, err)
	}

	keep.LastUpdated = r.now()
	if err := tx.Save(&keep).Error; err != nil {
		return fmt.Errorf("failed to save merged product %d: %w", keep.ID, err)
	}
	r.log.Info().Uint("product_id", keep.ID).Uints("merged", ids).Str("name", keep.Name).Msg("products merged")
	return nil
}
