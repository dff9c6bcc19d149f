package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// Roles
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    uint      `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// Service authenticates the users stored in the database
type Service struct {
	db     *gorm.DB
	tokens *TokenIssuer
	log    zerolog.Logger
}

// NewService creates the login service
func NewService(db *gorm.DB, tokens *TokenIssuer) *Service {
	return &Service{db: db, tokens: tokens, log: logger.WithComponent("auth")}
}

// Tokens exposes the issuer for the middleware
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Login checks the password and issues a token. Unknown users and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = normalizeEmail(email)

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn().Str("email", email).Msg("failed login attempt")
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.GenerateToken(&user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to record last login")
	}

	return &LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}

// CreateUser stores a user with a bcrypt password hash
func (s *Service) CreateUser(ctx context.Context, email, password, role string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	switch role {
	case "":
		role = RoleOperator
	case RoleAdmin, RoleOperator:
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.log.Info().Str("email", email).Str("role", role).Msg("user created")
	return &user, nil
}

// LoginHandler handles user authentication
func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"email and password are required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp, err := s.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}
		s.log.Error().Err(err).Msg("login failed")
		http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(resp)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
