package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultStorageID = "sqlite3"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	// DefaultGlamourStyle is used when rendering reports for a terminal.
	DefaultGlamourStyle = "dark"
)

type AppConfig struct {
	StorageID    string `toml:"storage_id"`
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`
	GlamourStyle string `toml:"glamour_style"`
	Interactive  bool   `toml:"interactive"`

	// Written into the rebuilt metadata; empty keeps what the first
	// segment reports.
	CompressionFormat   string `toml:"compression_format"`
	CompressionMode     string `toml:"compression_mode"`
	SerializationFormat string `toml:"serialization_format"`
}

func Default() AppConfig {
	return AppConfig{
		StorageID:    DefaultStorageID,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		GlamourStyle: DefaultGlamourStyle,
	}
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg = ApplyEnv(cfg)
	return cfg, cfg.Normalize()
}

func ApplyEnv(cfg AppConfig) AppConfig {
	if v := os.Getenv("BAG_REINDEX_STORAGE"); v != "" {
		cfg.StorageID = v
	}
	if v := os.Getenv("BAG_REINDEX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BAG_REINDEX_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("BAG_REINDEX_COMPRESSION_FORMAT"); v != "" {
		cfg.CompressionFormat = v
	}
	if v := os.Getenv("BAG_REINDEX_COMPRESSION_MODE"); v != "" {
		cfg.CompressionMode = v
	}
	if v := os.Getenv("BAG_REINDEX_SERIALIZATION_FORMAT"); v != "" {
		cfg.SerializationFormat = v
	}
	if os.Getenv("BAG_REINDEX_INTERACTIVE") == "1" {
		cfg.Interactive = true
	}
	return cfg
}

// Normalize trims and canonicalizes values, fills defaults and rejects
// unsupported formats. Call it again after applying flag overrides.
func (c *AppConfig) Normalize() error {
	c.StorageID = strings.TrimSpace(c.StorageID)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.GlamourStyle = strings.TrimSpace(c.GlamourStyle)
	c.CompressionFormat = strings.TrimSpace(c.CompressionFormat)
	c.CompressionMode = strings.ToUpper(strings.TrimSpace(c.CompressionMode))
	c.SerializationFormat = strings.TrimSpace(c.SerializationFormat)

	if c.StorageID == "" {
		c.StorageID = DefaultStorageID
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.GlamourStyle == "" {
		c.GlamourStyle = DefaultGlamourStyle
	}
	switch c.CompressionMode {
	case "NONE":
		c.CompressionMode = ""
	case "", "FILE", "MESSAGE":
	default:
		return fmt.Errorf("unsupported compression mode %q (none|file|message)", c.CompressionMode)
	}
	switch c.LogFormat {
	case "":
		c.LogFormat = DefaultLogFormat
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (text|json)", c.LogFormat)
	}
	return nil
}

// DetectConfigPath resolves the config file location: explicit value,
// then BAG_REINDEX_CONFIG, then the user config directory.
func DetectConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if fromEnv := os.Getenv("BAG_REINDEX_CONFIG"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "bag-reindex", "config.toml"), nil
}

// ResolveBagDir cleans dir and makes it absolute.
func ResolveBagDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("bag directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve bag directory: %w", err)
	}
	return abs, nil
}
