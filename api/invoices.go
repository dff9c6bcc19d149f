package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/db"
	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/facturaIA/invoice-stock-service/internal/services"
)

const defaultMaxUpload = 10 * 1024 * 1024 // 10MB

// ParseRequest is the body of POST /api/invoices/parse
type ParseRequest struct {
	Text     string `json:"text"`
	FileName string `json:"fileName"`
	Type     string `json:"type"`
}

// ApproveRequest optionally carries the reviewed line items
type ApproveRequest struct {
	Items []models.InvoiceItem `json:"items"`
}

// UploadInvoice handles multipart uploads: field "file" (or "image") and an
// optional "type" naming the direction
func (h *Handler) UploadInvoice(w http.ResponseWriter, r *http.Request) {
	maxUpload := int64(defaultMaxUpload)
	if h.Config != nil && h.Config.MaxUploadBytes() > 0 {
		maxUpload = h.Config.MaxUploadBytes()
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "No file provided (use 'file' or 'image' field)")
			return
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	result, err := h.Invoices.Process(r.Context(), services.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Hint:        r.FormValue("type"),
	})
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendJSON(w, http.StatusCreated, result)
}

// ParseInvoice interprets text without storing it
func (h *Handler) ParseInvoice(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		h.sendError(w, http.StatusBadRequest, "text is required")
		return
	}

	inv, validation := h.Invoices.Parse(req.Text, req.FileName, req.Type)
	h.sendJSON(w, http.StatusOK, services.ProcessResult{Invoice: inv, Validation: validation})
}

// GetInvoices lists invoices newest first; ?status= filters and ?limit= caps
func (h *Handler) GetInvoices(w http.ResponseWriter, r *http.Request) {
	status := models.Status(r.URL.Query().Get("status"))
	invoices, err := h.Invoices.List(r.Context(), status, queryLimit(r, 100, 1000))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// GetInvoice returns a single invoice with its items
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.Invoices.Get(r.Context(), id)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, inv)
}

// GetInvoiceLogs returns the processing logs of an invoice
func (h *Handler) GetInvoiceLogs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	logs, err := h.Invoices.Logs(r.Context(), id)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

// GetInvoiceDocument returns a presigned link to the original document
func (h *Handler) GetInvoiceDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	expiry := time.Hour
	url, err := h.Invoices.DocumentURL(r.Context(), id, expiry)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"url":       url,
		"expiresAt": h.now().Add(expiry).Format(time.RFC3339),
	})
}

// ApproveInvoice applies an invoice to stock. An empty body approves the
// interpreted items; {"items": [...]} replaces them first.
func (h *Handler) ApproveInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Invoices.Approve(r.Context(), id, req.Items)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, result)
}

// DeleteInvoice deletes an invoice, reversing its stock movements if approved
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	reversed, err := h.Invoices.Delete(r.Context(), id)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "invoice deleted",
		"reversed": reversed,
	})
}

// DashboardStats returns invoice totals, pending count, today's count and
// the approved amount
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := db.GetDashboardStats(r.Context(), h.DB, h.now())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, stats)
}
