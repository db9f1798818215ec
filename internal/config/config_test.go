package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BAG_REINDEX_STORAGE", "")
	t.Setenv("BAG_REINDEX_LOG_LEVEL", "")
	t.Setenv("BAG_REINDEX_LOG_FORMAT", "")
	t.Setenv("BAG_REINDEX_INTERACTIVE", "")
	t.Setenv("BAG_REINDEX_COMPRESSION_FORMAT", "")
	t.Setenv("BAG_REINDEX_COMPRESSION_MODE", "")
	t.Setenv("BAG_REINDEX_SERIALIZATION_FORMAT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "storage_id = \"sqlite3\"\nlog_level = \"debug\"\nlog_format = \"json\"\ninteractive = true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BAG_REINDEX_STORAGE", "")
	t.Setenv("BAG_REINDEX_LOG_FORMAT", "")
	t.Setenv("BAG_REINDEX_LOG_LEVEL", "WARN")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected env to override log level, got %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" || !cfg.Interactive || cfg.StorageID != "sqlite3" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoad_RejectsBadFormat(t *testing.T) {
	t.Setenv("BAG_REINDEX_LOG_FORMAT", "xml")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unsupported log format")
	}
}

func TestLoad_RejectsInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("storage_id = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDetectConfigPath(t *testing.T) {
	if got, _ := DetectConfigPath("/tmp/x/../c.toml"); got != "/tmp/c.toml" {
		t.Fatalf("explicit path not cleaned: %q", got)
	}
	t.Setenv("BAG_REINDEX_CONFIG", "/etc/bag-reindex.toml")
	if got, _ := DetectConfigPath(""); got != "/etc/bag-reindex.toml" {
		t.Fatalf("expected env path, got %q", got)
	}
	t.Setenv("BAG_REINDEX_CONFIG", "")
	got, err := DetectConfigPath("")
	if err != nil {
		t.Fatalf("DetectConfigPath: %v", err)
	}
	if !strings.HasSuffix(got, filepath.Join(".config", "bag-reindex", "config.toml")) {
		t.Fatalf("unexpected default path %q", got)
	}
}

func TestResolveBagDir(t *testing.T) {
	if _, err := ResolveBagDir("  "); err == nil {
		t.Fatalf("expected error for empty dir")
	}
	got, err := ResolveBagDir("rel/bag")
	if err != nil {
		t.Fatalf("ResolveBagDir: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("expected absolute path, got %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	logger, err := NewLogger(cfg, &buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("unexpected level %v", logger.GetLevel())
	}
	logger.Info("hidden")
	logger.WithField("bag", "/b").Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"bag":"/b"`) {
		t.Fatalf("unexpected log output %q", out)
	}

	cfg.LogLevel = "loud"
	if _, err := NewLogger(cfg, &buf); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestLoad_CompressionSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("compression_format = \"zstd\"\ncompression_mode = \"file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BAG_REINDEX_COMPRESSION_FORMAT", "")
	t.Setenv("BAG_REINDEX_COMPRESSION_MODE", "")
	t.Setenv("BAG_REINDEX_SERIALIZATION_FORMAT", "cdr")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CompressionFormat != "zstd" || cfg.CompressionMode != "FILE" || cfg.SerializationFormat != "cdr" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("BAG_REINDEX_COMPRESSION_MODE", "none")
	if cfg, err = Load(path); err != nil || cfg.CompressionMode != "" {
		t.Fatalf("expected none to clear the mode, got %q, %v", cfg.CompressionMode, err)
	}

	t.Setenv("BAG_REINDEX_COMPRESSION_MODE", "chunk")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported compression mode")
	}
}
