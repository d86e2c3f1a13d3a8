package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	cfg, fileLoaded, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fileLoaded {
		t.Fatalf("expected no config file to be loaded")
	}
	if cfg.Server.Addr != ":8080" || cfg.Database.DBName != "ev_service" || cfg.Import.MaxRows != 5000 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Import.MaxUploadBytes() != 32<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.Import.MaxUploadBytes())
	}
}

func TestLoadReadsFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  addr: ":9090"
  read_timeout: 5s
  cors_origins:
    - https://ops.example.com
database:
  host: db.internal
  dbname: ev_prod
import:
  max_rows: 200
log:
  format: console
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("EVS_DATABASE_HOST", "override.internal")
	t.Setenv("EVS_IMPORT_MAX_UPLOAD_MB", "8")

	cfg, fileLoaded, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fileLoaded {
		t.Fatalf("expected config file to be loaded")
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://ops.example.com" {
		t.Fatalf("unexpected cors origins %v", cfg.Server.CORSOrigins)
	}
	if cfg.Database.Host != "override.internal" || cfg.Database.DBName != "ev_prod" {
		t.Fatalf("expected env to override file, got %+v", cfg.Database)
	}
	if cfg.Import.MaxRows != 200 || cfg.Import.MaxUploadMB != 8 {
		t.Fatalf("unexpected import config %+v", cfg.Import)
	}
	if cfg.Log.Format != "console" {
		t.Fatalf("unexpected log format %q", cfg.Log.Format)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("EVS_LOG_FORMAT", "xml")
	if _, _, err := Load(t.TempDir()); err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("expected log format error, got %v", err)
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}
