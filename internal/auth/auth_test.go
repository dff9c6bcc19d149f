package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/config"
	"github.com/facturaIA/invoice-stock-service/internal/db"
	"github.com/facturaIA/invoice-stock-service/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.CloseDB(gdb) })

	tokens, err := NewTokenIssuer(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return NewService(gdb, tokens)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens, _ := NewTokenIssuer(config.AuthConfig{JWTSecret: "s3cret"})
	user := &models.User{ID: 7, Email: "depo@brio.com.tr", Role: RoleAdmin}

	token, expires, err := tokens.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if d := time.Until(expires); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("default TTL gives expiry in %v", d)
	}

	claims, err := tokens.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 7 || claims.Email != user.Email || claims.Role != RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}

	other, _ := NewTokenIssuer(config.AuthConfig{JWTSecret: "other"})
	if _, err := other.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpires(t *testing.T) {
	tokens, _ := NewTokenIssuer(config.AuthConfig{JWTSecret: "s3cret", TokenTTL: time.Minute})
	issued := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	token, _, err := tokens.GenerateToken(&models.User{ID: 1})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tokens.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestNewTokenIssuerNeedsSecret(t *testing.T) {
	if _, err := NewTokenIssuer(config.AuthConfig{}); err == nil {
		t.Error("empty secret accepted")
	}
}

func TestCreateUserAndLogin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, " Depo@Brio.com.tr ", "correct-horse", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "depo@brio.com.tr" || user.Role != RoleOperator {
		t.Errorf("user = %+v", user)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in clear")
	}

	if _, err := s.CreateUser(ctx, "depo@brio.com.tr", "another-pass", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate CreateUser error = %v, want ErrUserExists", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "DEPO@brio.com.tr", "correct-horse", nil},
		{"wrong password", "depo@brio.com.tr", "wrong", ErrInvalidCredentials},
		{"unknown user", "kasa@brio.com.tr", "correct-horse", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && (resp.Token == "" || resp.UserID != user.ID) {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "not-an-email", "correct-horse", ""); err == nil {
		t.Error("invalid email accepted")
	}
	if _, err := s.CreateUser(ctx, "a@b.c", "short", ""); err == nil {
		t.Error("short password accepted")
	}
	if _, err := s.CreateUser(ctx, "a@b.c", "correct-horse", "root"); err == nil {
		t.Error("unknown role accepted")
	}
}

func TestLoginHandler(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateUser(context.Background(), "depo@brio.com.tr", "correct-horse", RoleAdmin); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"email":"depo@brio.com.tr","password":"correct-horse"}`, http.StatusOK},
		{"bad password", `{"email":"depo@brio.com.tr","password":"nope"}`, http.StatusUnauthorized},
		{"missing fields", `{"email":"depo@brio.com.tr"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.LoginHandler(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK {
				var resp LoginResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Role != RoleAdmin || resp.Token == "" {
					t.Errorf("response = %+v", resp)
				}
			}
		})
	}
}

func TestJWTMiddleware(t *testing.T) {
	tokens, _ := NewTokenIssuer(config.AuthConfig{JWTSecret: "s3cret"})
	token, _, _ := tokens.GenerateToken(&models.User{ID: 3, Email: "depo@brio.com.tr", Role: RoleOperator})

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := JWTMiddleware(tokens, "/health", "/api/login")(next)

	tests := []struct {
		name       string
		path       string
		header     string
		want       int
		wantClaims bool
	}{
		{"public path", "/health", "", http.StatusNoContent, false},
		{"missing token", "/api/invoices", "", http.StatusUnauthorized, false},
		{"wrong scheme", "/api/invoices", "Basic abc", http.StatusUnauthorized, false},
		{"bad token", "/api/invoices", "Bearer abc.def.ghi", http.StatusUnauthorized, false},
		{"valid token", "/api/invoices", "Bearer " + token, http.StatusNoContent, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if (seen != nil) != tt.wantClaims {
				t.Errorf("claims seen = %v, want %v", seen != nil, tt.wantClaims)
			}
			if tt.wantClaims && seen.UserID != 3 {
				t.Errorf("claims = %+v", seen)
			}
		})
	}
}
