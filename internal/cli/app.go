package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/facturaIA/invoice-stock-service/internal/auth"
	"github.com/facturaIA/invoice-stock-service/internal/catalog"
	"github.com/facturaIA/invoice-stock-service/internal/db"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/ocr"
	"github.com/facturaIA/invoice-stock-service/internal/parser"
	"github.com/facturaIA/invoice-stock-service/internal/services"
	"github.com/facturaIA/invoice-stock-service/internal/stock"
	"github.com/facturaIA/invoice-stock-service/internal/storage"
)

// app holds the wired components shared by the commands
type app struct {
	db       *gorm.DB
	vocab    *parser.Vocabulary
	resolver *catalog.Resolver
	ledger   *stock.Ledger
	invoices *services.InvoiceService
	auth     *auth.Service
	redis    *redis.Client
	archive  *storage.Archive
	engine   ocr.Engine
	log      zerolog.Logger
}

// loadVocabulary returns the configured vocabulary, or the built-in one
func loadVocabulary() (*parser.Vocabulary, error) {
	if cfg.Extraction.VocabularyFile == "" {
		return parser.DefaultVocabulary(), nil
	}
	return parser.LoadVocabulary(cfg.Extraction.VocabularyFile)
}

// newReader builds the document reader for the configured OCR engine. A
// missing engine is not fatal: text and text-layer PDFs still work.
func newReader(ctx context.Context, log zerolog.Logger) (*ocr.Reader, ocr.Engine) {
	engine, err := ocr.NewEngine(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Str("engine", cfg.OCR.Engine).Msg("OCR engine unavailable, images and scanned PDFs will be refused")
		engine = nil
	}
	return ocr.NewReader(engine, cfg.OCR.Preprocess), engine
}

// openApp connects the database and wires the ledger and invoice workflow.
// Redis, the document archive and auth are attached only when withServices
// is set, since maintenance commands do not need them.
func openApp(ctx context.Context, withServices bool) (*app, error) {
	a := &app{log: logger.WithComponent("app")}

	vocab, err := loadVocabulary()
	if err != nil {
		return nil, err
	}
	a.vocab = vocab

	gdb, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		db.CloseDB(gdb)
		return nil, err
	}
	a.db = gdb

	a.resolver = catalog.NewResolver(gdb, vocab, cfg.Extraction.FuzzyThreshold)
	a.ledger = stock.NewLedger(gdb, a.resolver)

	var archive services.Archive
	if withServices {
		if cfg.Redis.URL != "" {
			client, err := db.ConnectRedis(ctx, cfg.Redis.URL)
			if err != nil {
				a.log.Warn().Err(err).Msg("Redis not available, repair lock is process-local")
			} else {
				a.redis = client
			}
		}

		arc, err := storage.New(ctx, cfg.Storage)
		switch {
		case err == nil:
			a.archive = arc
			archive = arc
		case errors.Is(err, storage.ErrNotConfigured):
			a.log.Info().Msg("document archive not configured")
		default:
			a.log.Warn().Err(err).Msg("MinIO storage not available, documents will not be archived")
		}

		if cfg.Auth.Enabled {
			tokens, err := auth.NewTokenIssuer(cfg.Auth)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.auth = auth.NewService(gdb, tokens)
		}
	}

	reader, engine := newReader(ctx, a.log)
	a.engine = engine
	a.invoices = services.NewInvoiceService(gdb, reader, parser.NewInterpreter(vocab), a.ledger, archive)
	return a, nil
}

// Close releases the connections and the vision client
func (a *app) Close() {
	if g, ok := a.engine.(*ocr.GeminiEngine); ok {
		g.Close()
	}
	if err := db.CloseRedis(a.redis); err != nil {
		a.log.Warn().Err(err).Msg("failed to close Redis")
	}
	if err := db.CloseDB(a.db); err != nil {
		a.log.Warn().Err(err).Msg("failed to close database")
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
