package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/facturaIA/invoice-stock-service/internal/auth"
	"github.com/facturaIA/invoice-stock-service/internal/catalog"
	"github.com/facturaIA/invoice-stock-service/internal/config"
	"github.com/facturaIA/invoice-stock-service/internal/db"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/ocr"
	"github.com/facturaIA/invoice-stock-service/internal/services"
	"github.com/facturaIA/invoice-stock-service/internal/stock"
)

const Version = "3.0.0"

// Pinger is a dependency the health check can probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP layer. Auth, Redis and Archive are
// optional.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Invoices *services.InvoiceService
	Catalog  *catalog.Resolver
	Ledger   *stock.Ledger
	Auth     *auth.Service
	Redis    *redis.Client
	Archive  Pinger
}

// Handler handles HTTP requests for invoices, products and stock
type Handler struct {
	Deps
	log zerolog.Logger
	now func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		Deps: deps,
		log:  logger.WithComponent("api"),
		now:  time.Now,
	}
}

// SetupRoutes configures the HTTP routes. When auth is configured every route
// except /health and /api/login requires a Bearer token.
func (h *Handler) SetupRoutes() http.Handler {
	router := mux.NewRouter()
	router.Use(h.requestLogger)

	router.HandleFunc("/health", h.Health).Methods("GET")
	if h.Auth != nil {
		router.HandleFunc("/api/login", h.Auth.LoginHandler).Methods("POST")
	}

	// Invoices
	router.HandleFunc("/api/invoices/upload", h.UploadInvoice).Methods("POST")
	router.HandleFunc("/api/invoices/parse", h.ParseInvoice).Methods("POST")
	router.HandleFunc("/api/invoices", h.GetInvoices).Methods("GET")
	router.HandleFunc("/api/invoices/{id:[0-9]+}", h.GetInvoice).Methods("GET")
	router.HandleFunc("/api/invoices/{id:[0-9]+}", h.DeleteInvoice).Methods("DELETE")
	router.HandleFunc("/api/invoices/{id:[0-9]+}/logs", h.GetInvoiceLogs).Methods("GET")
	router.HandleFunc("/api/invoices/{id:[0-9]+}/document", h.GetInvoiceDocument).Methods("GET")
	router.HandleFunc("/api/invoices/{id:[0-9]+}/approve", h.ApproveInvoice).Methods("POST")

	// Products
	router.HandleFunc("/api/products", h.ListProducts).Methods("GET")
	router.HandleFunc("/api/products", h.CreateProduct).Methods("POST")
	router.HandleFunc("/api/products/resolve", h.ResolveProduct).Methods("POST")
	router.HandleFunc("/api/products/duplicates", h.PreviewDuplicates).Methods("GET")
	router.HandleFunc("/api/products/merge-duplicates", h.MergeDuplicates).Methods("POST")
	router.HandleFunc("/api/products/low-stock", h.LowStock).Methods("GET")
	router.HandleFunc("/api/products/{id:[0-9]+}", h.GetProduct).Methods("GET")
	router.HandleFunc("/api/products/{id:[0-9]+}", h.UpdateProduct).Methods("PUT")
	router.HandleFunc("/api/products/{id:[0-9]+}", h.DeleteProduct).Methods("DELETE")

	// Stock
	router.HandleFunc("/api/stock/movements", h.ListMovements).Methods("GET")
	router.HandleFunc("/api/stock/adjust", h.AdjustStock).Methods("POST")
	router.HandleFunc("/api/stock/repair", h.RepairStock).Methods("POST")
	router.HandleFunc("/api/stock/summary", h.StockSummary).Methods("GET")
	router.HandleFunc("/api/stock/export", h.ExportMovements).Methods("GET")

	// Statistics
	router.HandleFunc("/api/dashboard/stats", h.DashboardStats).Methods("GET")

	if h.Auth == nil {
		return router
	}
	return auth.JWTMiddleware(h.Auth.Tokens(), "/health", "/api/login")(router)
}

// requestLogger tags each request with an ID and logs it when done
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log := logger.WithRequestID(requestID)
		event := log.Info()
		if rec.status >= 500 {
			event = log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status      string        `json:"status"`
	Version     string        `json:"version"`
	Timestamp   string        `json:"timestamp"`
	Uptime      string        `json:"uptime"`
	Memory      MemoryStats   `json:"memory"`
	OCREngine   string        `json:"ocrEngine"`
	Tesseract   ServiceStatus `json:"tesseract"`
	ImageMagick ServiceStatus `json:"imageMagick"`
	Database    ServiceStatus `json:"database"`
	Redis       ServiceStatus `json:"redis"`
	Storage     ServiceStatus `json:"storage"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health reports the dependencies. The service is degraded when the database
// is down, or when the tesseract engine is selected but not installed.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	engine := ""
	if h.Config != nil {
		engine = strings.ToLower(h.Config.OCR.Engine)
	}

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		OCREngine:   engine,
		Tesseract:   checkBinary("tesseract", "--version"),
		ImageMagick: checkBinary("convert", "-version"),
		Database:    h.checkDatabase(ctx),
		Redis:       h.checkRedis(ctx),
		Storage:     h.checkStorage(ctx),
	}

	degraded := !response.Database.Available
	if engine == "tesseract" && !response.Tesseract.Available {
		degraded = true
	}
	if degraded {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

// checkBinary runs a version command and reports its first output line
func checkBinary(name string, args ...string) ServiceStatus {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     name + " not found or not executable",
		}
	}

	version := "unknown"
	if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
		version = strings.TrimSpace(lines[0])
	}
	return ServiceStatus{Available: true, Version: version}
}

func (h *Handler) checkDatabase(ctx context.Context) ServiceStatus {
	if err := db.Ping(ctx, h.DB); err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	version := h.DB.Dialector.Name()
	if total, idle, ok := db.PoolStats(); ok {
		version = fmt.Sprintf("%s (pool %d conns, %d idle)", version, total, idle)
	}
	return ServiceStatus{Available: true, Version: version}
}

func (h *Handler) checkRedis(ctx context.Context) ServiceStatus {
	if h.Redis == nil {
		return ServiceStatus{Available: false, Error: "not configured"}
	}
	if err := h.Redis.Ping(ctx).Err(); err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	return ServiceStatus{Available: true}
}

func (h *Handler) checkStorage(ctx context.Context) ServiceStatus {
	if h.Archive == nil {
		return ServiceStatus{Available: false, Error: "not configured"}
	}
	if err := h.Archive.Ping(ctx); err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	return ServiceStatus{Available: true, Version: "MinIO S3"}
}

// sendJSON writes v with the given status
func (h *Handler) sendJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn().Err(err).Msg("failed to encode response")
	}
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	h.sendJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// sendServiceError maps domain errors onto HTTP status codes
func (h *Handler) sendServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.log.Error().Err(err).Msg("request failed")
	}
	h.sendError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, services.ErrNoDocument):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyApproved),
		errors.Is(err, stock.ErrAlreadyApplied),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, catalog.ErrDuplicateProduct):
		return http.StatusConflict
	case errors.Is(err, ocr.ErrUnsupportedFormat),
		errors.Is(err, catalog.ErrInvalidProductName),
		errors.Is(err, stock.ErrInvalidQuantity),
		errors.Is(err, stock.ErrInvalidDirection):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNoDatabase),
		errors.Is(err, ocr.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// pathID reads the {id} route variable
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", mux.Vars(r)["id"])
	}
	return uint(id), nil
}

// queryID reads an optional numeric query parameter
func queryID(r *http.Request, name string) (*uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	v := uint(id)
	return &v, nil
}

// queryLimit reads ?limit= within (0, upper], falling back to def
func queryLimit(r *http.Request, def, upper int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= upper {
			return val
		}
	}
	return def
}
