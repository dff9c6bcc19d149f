package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"
)

func TestSetupRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if err := Setup(cfg); err == nil {
		t.Fatal("Setup() accepted an unknown level")
	}
}

func TestSetupWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := Config{Level: "debug", Format: "json", Output: path}
	if err := Setup(cfg); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l := WithComponent("ledger")
	l.Info().Str("product", "BRIO TANK").Msg("stock applied")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"component":"ledger"`, `"product":"BRIO TANK"`, `"message":"stock applied"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}

func TestGormLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	l := NewGormLogger(false)
	l.Info(context.Background(), "hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}

	l.LogMode(gormlogger.Info).Info(context.Background(), "shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("info not logged after LogMode(Info): %q", buf.String())
	}
}
