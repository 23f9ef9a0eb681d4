// Package config loads and saves the dlstorage configuration file, a plain
// "key = value" file with '#' comments.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dlunire/dlstorage-go/container"
	"github.com/dlunire/dlstorage-go/storagepath"
)

// Backend names.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// configFileName is the configuration file name inside the data directory.
const configFileName = "dlstorage.conf"

// Config holds dlstorage settings.
type Config struct {
	DataDir    string // document root
	StorageDir string // managed subdirectory of DataDir
	Version    string // version written into new containers
	Backend    string // "file" or "s3"
	Catalog    string // bbolt catalog path; empty disables the catalog
	LogLevel   string
	LogFile    string // empty logs to stderr

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string
	S3PathStyle bool
	S3AccessKey string
	S3SecretKey string
}

// DefaultDataDir returns the document root: the parent of the working
// directory, or "." if it cannot be determined.
func DefaultDataDir() string {
	root, err := storagepath.DocumentRoot()
	if err != nil {
		return "."
	}
	return root
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:    DefaultDataDir(),
		StorageDir: storagepath.DefaultStorageDir,
		Version:    container.DefaultVersion,
		Backend:    BackendFile,
		LogLevel:   "info",
	}
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// LoadConfig reads the file at path on top of DefaultConfig.
// Blank lines and '#' comments are skipped; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", err, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d", err, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}

	return cfg, nil
}

// parseKeyValue splits a line on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

// set assigns value to the field named by key.
func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "storagedir":
		c.StorageDir = value
	case "version":
		c.Version = value
	case "backend":
		c.Backend = strings.ToLower(value)
	case "catalog":
		c.Catalog = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "s3.bucket":
		c.S3Bucket = value
	case "s3.region":
		c.S3Region = value
	case "s3.endpoint":
		c.S3Endpoint = value
	case "s3.prefix":
		c.S3Prefix = value
	case "s3.pathstyle":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: s3.pathstyle: %w", ErrInvalidConfigValue, err)
		}
		c.S3PathStyle = b
	case "s3.accesskey":
		c.S3AccessKey = value
	case "s3.secretkey":
		c.S3SecretKey = value
	}
	return nil
}

// SaveConfig writes cfg to path (mode 0600), creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# dlstorage Configuration\n\n")
	writeKV(&b, "datadir", cfg.DataDir)
	writeKV(&b, "storagedir", cfg.StorageDir)
	writeKV(&b, "version", cfg.Version)
	writeKV(&b, "backend", cfg.Backend)
	writeKV(&b, "catalog", cfg.Catalog)
	writeKV(&b, "loglevel", cfg.LogLevel)
	writeKV(&b, "logfile", cfg.LogFile)

	if cfg.Backend == BackendS3 {
		b.WriteString("\n# S3-compatible object storage\n")
		writeKV(&b, "s3.bucket", cfg.S3Bucket)
		writeKV(&b, "s3.region", cfg.S3Region)
		writeKV(&b, "s3.endpoint", cfg.S3Endpoint)
		writeKV(&b, "s3.prefix", cfg.S3Prefix)
		writeKV(&b, "s3.pathstyle", strconv.FormatBool(cfg.S3PathStyle))
		writeKV(&b, "s3.accesskey", cfg.S3AccessKey)
		writeKV(&b, "s3.secretkey", cfg.S3SecretKey)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

func writeKV(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%s = %s\n", key, value)
}
