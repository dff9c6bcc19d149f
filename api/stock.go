package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/facturaIA/invoice-stock-service/internal/db"
	"github.com/facturaIA/invoice-stock-service/internal/stock"
	"github.com/shopspring/decimal"
)

// AdjustRequest sets a product's stock to NewStock through an Adjustment movement
type AdjustRequest struct {
	ProductID uint            `json:"productId"`
	NewStock  decimal.Decimal `json:"newStock"`
	Note      string          `json:"note"`
}

// ListMovements returns movements newest first; ?productId= filters
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	productID, err := queryID(r, "productId")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	movements, err := h.Ledger.ListMovements(r.Context(), productID)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"movements": movements,
		"count":     len(movements),
	})
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == 0 {
		h.sendError(w, http.StatusBadRequest, "productId is required")
		return
	}
	mv, err := h.Ledger.Adjust(r.Context(), req.ProductID, req.NewStock, req.Note)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, mv)
}

// RepairStock replays the movements of one product (?productId=) or of all
func (h *Handler) RepairStock(w http.ResponseWriter, r *http.Request) {
	productID, err := queryID(r, "productId")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	var results []stock.RepairResult
	if productID != nil {
		res, err := h.Ledger.Repair(r.Context(), *productID)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		results = append(results, *res)
	} else {
		results, err = h.Ledger.RepairAll(r.Context())
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
	}

	changed := 0
	for _, res := range results {
		if res.Changed {
			changed++
		}
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"checked": len(results),
		"changed": changed,
	})
}

// StockSummary returns product count, low-stock count and stock value
func (h *Handler) StockSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := db.GetStockSummary(r.Context(), h.DB)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, summary)
}

// ExportMovements streams an XLSX workbook of the movements
func (h *Handler) ExportMovements(w http.ResponseWriter, r *http.Request) {
	productID, err := queryID(r, "productId")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	movements, err := h.Ledger.ListMovements(r.Context(), productID)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := stock.ExportXLSX(&buf, movements); err != nil {
		h.sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="stok-hareketleri-%s.xlsx"`, h.now().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
