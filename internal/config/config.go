// Package config loads arenalru settings from defaults, an optional .env
// file, an optional YAML file and ARENALRU_* environment variables, in that
// order of increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/obot-platform/arenalru/lru"
)

const (
	envPrefix = "ARENALRU_"

	DefaultCapacity     = 1024
	DefaultListen       = "127.0.0.1:8089"
	DefaultLogLevel     = "info"
	DefaultMaxBlobBytes = 64 << 20
)

// ErrInvalid indicates a configuration value failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the service settings.
type Config struct {
	// Capacity is the fixed number of blobs the cache holds. Zero disables
	// caching.
	Capacity     int      `yaml:"capacity"`
	CacheDir     string   `yaml:"cache_dir"`
	Compress     bool     `yaml:"compress"`
	MaxBlobBytes int64    `yaml:"max_blob_bytes"`
	Listen       string   `yaml:"listen"`
	CORSOrigins  []string `yaml:"cors_origins"`
	LogLevel     string   `yaml:"log_level"`
	Development  bool     `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Capacity:     DefaultCapacity,
		CacheDir:     filepath.Join(xdg.CacheHome, "arenalru"),
		MaxBlobBytes: DefaultMaxBlobBytes,
		Listen:       DefaultListen,
		CORSOrigins:  []string{"*"},
		LogLevel:     DefaultLogLevel,
	}
}

// Load builds a Config. Either path may be empty; a missing env file is not
// an error, a missing YAML file is.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookupEnv("CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sCAPACITY: %v", ErrInvalid, envPrefix, err)
		}
		c.Capacity = n
	}
	if v, ok := lookupEnv("CACHE_DIR"); ok {
		c.CacheDir = v
	}
	if v, ok := lookupEnv("COMPRESS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sCOMPRESS: %v", ErrInvalid, envPrefix, err)
		}
		c.Compress = b
	}
	if v, ok := lookupEnv("MAX_BLOB_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_BLOB_BYTES: %v", ErrInvalid, envPrefix, err)
		}
		c.MaxBlobBytes = n
	}
	if v, ok := lookupEnv("LISTEN"); ok {
		c.Listen = v
	}
	if v, ok := lookupEnv("CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookupEnv("DEVELOPMENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sDEVELOPMENT: %v", ErrInvalid, envPrefix, err)
		}
		c.Development = b
	}
	return nil
}

// Validate checks every field and reports the first problem.
func (c *Config) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative, got %d", ErrInvalid, c.Capacity)
	}
	if uint64(c.Capacity) > lru.MaxCapacity {
		return fmt.Errorf("%w: capacity %d exceeds %d", ErrInvalid, c.Capacity, uint64(lru.MaxCapacity))
	}
	if c.CacheDir == "" {
		return fmt.Errorf("%w: cache_dir is required", ErrInvalid)
	}
	if c.MaxBlobBytes <= 0 {
		return fmt.Errorf("%w: max_blob_bytes must be positive, got %d", ErrInvalid, c.MaxBlobBytes)
	}
	if c.Listen == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalid)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	return nil
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
