package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/db"
	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.CloseDB(gdb) })
	return gdb
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(newTestDB(t), nil, 0)
}

func countProducts(t *testing.T, r *Resolver) int64 {
	t.Helper()
	var n int64
	if err := r.db.Model(&models.Product{}).Count(&n).Error; err != nil {
		t.Fatalf("count products: %v", err)
	}
	return n
}

func TestResolveIsIdempotent(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "BRIO TANK", "", "AD")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.DefaultUnit != "adet" {
		t.Errorf("DefaultUnit = %q, want adet", first.DefaultUnit)
	}
	if !first.CurrentStock.IsZero() {
		t.Errorf("CurrentStock = %s, want 0", first.CurrentStock)
	}
	if !first.MinimumStock.Equal(decimal.NewFromInt(1)) {
		t.Errorf("MinimumStock = %s, want 1", first.MinimumStock)
	}

	for _, name := range []string{"BRIO TANK", "brio tank", "  Brio   Tank "} {
		again, err := r.Resolve(ctx, name, "", "")
		if err != nil {
			t.Fatalf("Resolve(%q): %v", name, err)
		}
		if again.ID != first.ID {
			t.Errorf("Resolve(%q) = product %d, want %d", name, again.ID, first.ID)
		}
	}
	if n := countProducts(t, r); n != 1 {
		t.Errorf("products = %d, want 1", n)
	}
}

func TestResolveFuzzyMatch(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	p, err := r.Resolve(ctx, "BRIO TANK", "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	typo, err := r.Resolve(ctx, "BRIO TANKK", "", "")
	if err != nil {
		t.Fatalf("Resolve typo: %v", err)
	}
	if typo.ID != p.ID {
		t.Errorf("typo resolved to %d, want %d", typo.ID, p.ID)
	}

	other, err := r.Resolve(ctx, "Galvaniz Boru", "", "")
	if err != nil {
		t.Fatalf("Resolve other: %v", err)
	}
	if other.ID == p.ID {
		t.Error("unrelated name matched an existing product")
	}
}

func TestResolveFirstFuzzyMatchWins(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	a, err := r.Create(ctx, ProductInput{Name: "Boya Fırçası 10"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := r.Create(ctx, ProductInput{Name: "Boya Fırçası 12"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := r.Resolve(ctx, "Boya Fırçası 11", "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("Resolve = %d, want lowest id %d", got.ID, a.ID)
	}
}

func TestResolveByCodeRenames(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	p, err := r.Resolve(ctx, "Vida M8 Civata", "vd-8", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	renamed, err := r.Resolve(ctx, "Altıgen Başlı Bulon", "vd-8", "")
	if err != nil {
		t.Fatalf("Resolve by code: %v", err)
	}
	if renamed.ID != p.ID {
		t.Fatalf("code lookup returned %d, want %d", renamed.ID, p.ID)
	}
	if renamed.Name != "Altıgen Başlı Bulon" {
		t.Errorf("Name = %q, want renamed", renamed.Name)
	}

	stored, err := r.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Name != "Altıgen Başlı Bulon" || stored.NameKey != NameKey("Altıgen Başlı Bulon") {
		t.Errorf("stored = %q/%q, want renamed", stored.Name, stored.NameKey)
	}
}

func TestInsertReturnsConcurrentlyCreatedProduct(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	winner, err := r.Resolve(ctx, "BRIO TANK", "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// a writer that passed the lookups before the winner committed
	late := func() *models.Product {
		now := time.Now()
		return &models.Product{
			Name:         "BRIO TANK",
			NameKey:      NameKey("BRIO TANK"),
			DefaultUnit:  models.DefaultUnit,
			CurrentStock: decimal.Zero,
			MinimumStock: decimal.NewFromInt(1),
			LastUpdated:  now,
			CreatedAt:    now,
		}
	}

	got, err := r.insert(r.db.WithContext(ctx), late())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got.ID != winner.ID {
		t.Errorf("insert returned %d, want existing %d", got.ID, winner.ID)
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		p, err := r.WithTx(tx).insert(tx.WithContext(ctx), late())
		if err != nil {
			return err
		}
		if p.ID != winner.ID {
			return fmt.Errorf("insert in transaction returned %d, want %d", p.ID, winner.ID)
		}
		// the outer transaction is still usable after the rejected row
		_, err = r.WithTx(tx).Resolve(ctx, "Galvaniz Boru", "", "")
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if n := countProducts(t, r); n != 2 {
		t.Errorf("products = %d, want 2", n)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres foreign key", &pgconn.PgError{Code: "23503"}, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"sqlite", errors.New("UNIQUE constraint failed: products.name_key"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestResolveRejectsInvalidNames(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	for _, name := range []string{"", "ab", "12345", "Genel Toplam", "Ürün 1234567890"} {
		_, err := r.Resolve(ctx, name, "", "")
		if !errors.Is(err, ErrInvalidProductName) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidProductName", name, err)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Reason == "" {
			t.Errorf("Resolve(%q) error %v is not a ValidationError with a reason", name, err)
		}
	}
	if n := countProducts(t, r); n != 0 {
		t.Errorf("products = %d, want 0", n)
	}
}

func TestNewResolverThreshold(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, DefaultThreshold},
		{-1, DefaultThreshold},
		{1.5, DefaultThreshold},
		{0.9, 0.9},
		{1, 1},
	}
	for _, tt := range tests {
		if got := NewResolver(nil, nil, tt.in).Threshold(); got != tt.want {
			t.Errorf("NewResolver(%v).Threshold() = %v, want %v", tt.in, got, tt.want)
		}
	}
}
