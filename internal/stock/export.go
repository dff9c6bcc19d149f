package stock

import (
	"fmt"
	"io"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/xuri/excelize/v2"
)

const movementSheet = "Hareketler"

var movementHeaders = []interface{}{
	"Tarih", "Ürün", "Kod", "Tür", "Miktar", "Önceki Stok", "Yeni Stok", "Fatura", "Açıklama",
}

// ExportXLSX writes movements as a workbook with one row per movement. The
// movements should carry their Product (ListMovements preloads it).
func ExportXLSX(w io.Writer, movements []models.StockMovement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), movementSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(movementSheet, "A1", &movementHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(movementSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, mv := range movements {
		var name, code string
		if mv.Product != nil {
			name, code = mv.Product.Name, mv.Product.CodeValue()
		}
		var invoice interface{}
		if mv.InvoiceID != nil {
			invoice = *mv.InvoiceID
		}

		row := []interface{}{
			mv.MovementDate.Format("2006-01-02 15:04"),
			name,
			code,
			string(mv.Kind),
			mv.Quantity.InexactFloat64(),
			mv.PreviousStock.InexactFloat64(),
			mv.NewStock.InexactFloat64(),
			invoice,
			mv.Description,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(movementSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write movement %d: %w", mv.ID, err)
		}
	}

	f.SetColWidth(movementSheet, "A", "A", 17)
	f.SetColWidth(movementSheet, "B", "B", 40)
	f.SetColWidth(movementSheet, "C", "D", 14)
	f.SetColWidth(movementSheet, "E", "G", 12)
	f.SetColWidth(movementSheet, "H", "H", 8)
	f.SetColWidth(movementSheet, "I", "I", 40)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
