package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration, read from config.yaml and overridden by env
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	MaxUploadMB int `yaml:"max_upload_mb"`

	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Storage    StorageConfig    `yaml:"storage"`
	OCR        OCRConfig        `yaml:"ocr"`
	AI         AIConfig         `yaml:"ai"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Stock      StockConfig      `yaml:"stock"`
}

// DatabaseConfig selects the store. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
	MaxConns   int32  `yaml:"max_conns"`
	MinConns   int32  `yaml:"min_conns"`
	Debug      bool   `yaml:"debug"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether document archival is configured
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

// OCRConfig picks the engine used for images and scanned PDFs
type OCRConfig struct {
	Engine     string `yaml:"engine"` // tesseract, openai, gemini
	Language   string `yaml:"language"`
	Preprocess bool   `yaml:"preprocess"`
}

type AIConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Gemini GeminiConfig `yaml:"gemini"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AuthConfig struct {
	Enabled   bool          `yaml:"enabled"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// LogConfig mirrors logger.Config so the yaml file can carry it
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	TimeFormat string `yaml:"time_format"`
	Output     string `yaml:"output"`
}

// ExtractionConfig tunes the text interpreter and product matching
type ExtractionConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	VocabularyFile string  `yaml:"vocabulary_file"`
}

type StockConfig struct {
	RepairInterval time.Duration `yaml:"repair_interval"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Host:        "0.0.0.0",
		Port:        8080,
		MaxUploadMB: 10,
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "invoices.db",
			MaxConns:   10,
			MinConns:   2,
		},
		Storage: StorageConfig{
			Bucket: "faturalar",
		},
		OCR: OCRConfig{
			Engine:     "tesseract",
			Language:   "tur+eng",
			Preprocess: true,
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
			Gemini: GeminiConfig{Model: "gemini-1.5-flash"},
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			TimeFormat: time.RFC3339,
			Output:     "stdout",
		},
		Extraction: ExtractionConfig{
			FuzzyThreshold: 0.85,
		},
		Stock: StockConfig{
			RepairInterval: time.Hour,
		},
	}
}

// Load reads .env (if any), then the yaml file at path (if it exists), then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// defaults + env only
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Port = p
	}
	cfg.Host = getEnv("HOST", cfg.Host)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.SQLitePath = getEnv("SQLITE_PATH", cfg.Database.SQLitePath)
	if url := databaseURLFromEnv(); url != "" {
		cfg.Database.URL = url
		if os.Getenv("DB_DRIVER") == "" {
			cfg.Database.Driver = "postgres"
		}
	}

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)

	cfg.Storage.Endpoint = getEnv("MINIO_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.Storage.SecretKey)
	cfg.Storage.Bucket = getEnv("MINIO_BUCKET", cfg.Storage.Bucket)
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		cfg.Storage.UseSSL = v == "true"
	}

	cfg.OCR.Engine = getEnv("OCR_ENGINE", cfg.OCR.Engine)
	cfg.OCR.Language = getEnv("OCR_LANGUAGE", cfg.OCR.Language)

	cfg.AI.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.AI.OpenAI.APIKey)
	cfg.AI.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.AI.OpenAI.BaseURL)
	cfg.AI.OpenAI.Model = getEnv("OPENAI_MODEL", cfg.AI.OpenAI.Model)
	cfg.AI.Gemini.APIKey = getEnv("GEMINI_API_KEY", cfg.AI.Gemini.APIKey)
	cfg.AI.Gemini.Model = getEnv("GEMINI_MODEL", cfg.AI.Gemini.Model)

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
		cfg.Auth.Enabled = true
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Output = getEnv("LOG_OUTPUT", cfg.Log.Output)

	if v := os.Getenv("FUZZY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid FUZZY_THRESHOLD %q: %w", v, err)
		}
		cfg.Extraction.FuzzyThreshold = f
	}
	cfg.Extraction.VocabularyFile = getEnv("VOCABULARY_FILE", cfg.Extraction.VocabularyFile)

	if v := os.Getenv("REPAIR_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REPAIR_INTERVAL %q: %w", v, err)
		}
		cfg.Stock.RepairInterval = d
	}
	return nil
}

// databaseURLFromEnv prefers DATABASE_URL and falls back to the DB_* variables
func databaseURLFromEnv() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if host == "" || user == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		user, os.Getenv("DB_PASSWORD"), host, getEnv("DB_PORT", "5432"), name)
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database driver postgres requires DATABASE_URL")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database driver sqlite requires a sqlite_path")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch strings.ToLower(c.OCR.Engine) {
	case "tesseract", "openai", "gemini":
	default:
		return fmt.Errorf("unknown OCR engine %q", c.OCR.Engine)
	}

	if c.Extraction.FuzzyThreshold <= 0 || c.Extraction.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in (0,1], got %v", c.Extraction.FuzzyThreshold)
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth is enabled but no JWT secret is set")
	}
	return nil
}

// Addr returns host:port for the HTTP listener
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
