package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/facturaIA/invoice-stock-service/internal/parser"
	"github.com/xuri/excelize/v2"
)

// ImportResult reports what an XLSX import did
type ImportResult struct {
	Rows     int      `json:"rows"`
	Resolved int      `json:"resolved"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportXLSX resolves every row of the first sheet into a product. Columns are
// name, code, unit and minimum stock; the first row is a header. Rows with an
// invalid name are skipped and reported.
func (r *Resolver) ImportXLSX(ctx context.Context, src io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	result := &ImportResult{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		name := cell(row, 0)
		if name == "" {
			continue
		}
		result.Rows++

		p, err := r.Resolve(ctx, name, cell(row, 1), cell(row, 2))
		if err != nil {
			if errors.Is(err, ErrInvalidProductName) {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
				continue
			}
			return result, err
		}
		result.Resolved++

		if raw := cell(row, 3); strings.ContainsAny(raw, "0123456789") {
			if minStock := parser.ParseAmount(raw); !minStock.Equal(p.MinimumStock) {
				if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", p.ID).
					Update("minimum_stock", minStock).Error; err != nil {
					return result, fmt.Errorf("failed to set minimum stock of product %d: %w", p.ID, err)
				}
			}
		}
	}

	r.log.Info().Int("rows", result.Rows).Int("resolved", result.Resolved).Int("skipped", result.Skipped).Msg("products imported")
	return result, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
