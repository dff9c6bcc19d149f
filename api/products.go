package api

import (
	"encoding/json"
	"net/http"

	"github.com/facturaIA/invoice-stock-service/internal/catalog"
)

// ResolveRequest is the body of POST /api/products/resolve
type ResolveRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Unit string `json:"unit"`
}

// ListProducts returns products by name; ?search= filters on name and code
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.Catalog.Create(r.Context(), in)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.Catalog.Update(r.Context(), id, in)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, p)
}

// DeleteProduct removes a product with its movements and unlinks its items
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "product deleted",
	})
}

// ResolveProduct finds or creates the product a line item names
func (h *Handler) ResolveProduct(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.Catalog.Resolve(r.Context(), req.Name, req.Code, req.Unit)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, p)
}

func (h *Handler) PreviewDuplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Catalog.PreviewDuplicates(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"groups":    groups,
		"count":     len(groups),
		"threshold": h.Catalog.Threshold(),
	})
}

func (h *Handler) MergeDuplicates(w http.ResponseWriter, r *http.Request) {
	result, err := h.Catalog.MergeDuplicates(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, result)
}

// LowStock lists products at or below their minimum stock
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.LowStock(r.Context(), queryLimit(r, 100, 1000))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}
