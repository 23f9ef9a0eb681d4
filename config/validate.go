package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dlunire/dlstorage-go/container"
)

// validLogLevels maps the accepted log level strings to slog levels.
var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if err := container.ValidateVersion(cfg.Version); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidVersion, err)
	}

	switch cfg.Backend {
	case BackendFile:
	case BackendS3:
		if cfg.S3Bucket == "" {
			return ErrMissingBucket
		}
	default:
		return ErrInvalidBackend
	}

	if _, ok := validLogLevels[strings.ToLower(cfg.LogLevel)]; !ok {
		return ErrInvalidLogLevel
	}

	return nil
}

// SlogLevel returns the slog level for cfg.LogLevel, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	if lvl, ok := validLogLevels[strings.ToLower(c.LogLevel)]; ok {
		return lvl
	}
	return slog.LevelInfo
}
