// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "CONTENTSTORE_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Storage backends.
const (
	BackendDirectory = "directory"
	BackendMemory    = "memory"
	BackendS3        = "s3"
)

// Index kinds.
const (
	IndexMemory = "memory"
	IndexSQLite = "sqlite"
)

// Config is the content store configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment" json:"environment"`

	// Store configures where and how objects are kept.
	Store StoreConfig `yaml:"store" json:"store"`

	// Index configures the location index.
	Index IndexConfig `yaml:"index" json:"index"`

	// S3 configures the bucket used when Store.Backend is "s3".
	S3 S3Config `yaml:"s3" json:"s3"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log" json:"log"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty" json:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty" json:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty" json:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Store *StoreConfig `yaml:"store,omitempty" json:"store,omitempty"`
	Index *IndexConfig `yaml:"index,omitempty" json:"index,omitempty"`
	S3    *S3Config    `yaml:"s3,omitempty" json:"s3,omitempty"`
	Log   *LogConfig   `yaml:"log,omitempty" json:"log,omitempty"`
}

// StoreConfig configures the object database.
type StoreConfig struct {
	// Root is the base directory for store data. The directory
	// backend keeps objects under Root/objects.
	// Default: ${HOME}/.cache/contentstore
	Root string `yaml:"root" json:"root"`

	// Backend is where objects live: "directory", "memory" or "s3".
	// Default: directory
	Backend string `yaml:"backend" json:"backend"`

	// Compression is the policy for new objects: "auto", "none",
	// "lz4" or "zstd".
	// Default: auto
	Compression string `yaml:"compression" json:"compression"`

	// UncompressedPrefixes lists location prefixes stored without
	// compression regardless of Compression (already-compressed media,
	// for instance).
	UncompressedPrefixes []string `yaml:"uncompressed_prefixes" json:"uncompressed_prefixes"`

	// SealingKeyFile, when set, names a file holding the 32-byte
	// master key (raw or hex) used to seal every new object.
	SealingKeyFile string `yaml:"sealing_key_file" json:"sealing_key_file"`

	// SealingIdentityFile, when set, names an age identity file. The
	// sealing key file is then age-encrypted and unwrapped with it.
	SealingIdentityFile string `yaml:"sealing_identity_file" json:"sealing_identity_file"`
}

// IndexConfig configures the location index.
type IndexConfig struct {
	// Kind is "sqlite" or "memory".
	// Default: sqlite
	Kind string `yaml:"kind" json:"kind"`

	// Path is the SQLite database file.
	// Default: ${CONTENTSTORE_ROOT}/index.db
	Path string `yaml:"path" json:"path"`

	// PoolSize is the number of SQLite connections. Zero picks the
	// pool's default.
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// S3Config selects the bucket for the s3 backend. Credentials come
// from the standard AWS environment and shared config files.
type S3Config struct {
	Bucket string `yaml:"bucket" json:"bucket"`

	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix" json:"prefix"`

	// Region defaults to us-east-1.
	Region string `yaml:"region" json:"region"`

	// Endpoint overrides the service endpoint (MinIO, local stacks).
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// PathStyle addresses the bucket in the URL path instead of the
	// host name.
	PathStyle bool `yaml:"path_style" json:"path_style"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: info
	Level string `yaml:"level" json:"level"`

	// Format is "auto" (text on a terminal, JSON otherwise), "text"
	// or "json".
	// Default: auto (development), json (production)
	Format string `yaml:"format" json:"format"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Environment: Development,
		Store: StoreConfig{
			Root:        filepath.Join(homeDir, ".cache", "contentstore"),
			Backend:     BackendDirectory,
			Compression: "auto",
		},
		Index: IndexConfig{
			Kind: IndexSQLite,
			Path: "${CONTENTSTORE_ROOT}/index.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the CONTENTSTORE_CONFIG environment
// variable. There is no fallback: if it is not set, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your contentstore.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Files ending
// in .json or .jsonc are parsed as JSON with comments and trailing
// commas allowed; anything else is YAML. Unknown keys are errors.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch filepath.Ext(path) {
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		// An empty file leaves the defaults in place.
		if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: machine-readable logs.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Store != nil {
		if overrides.Store.Root != "" {
			c.Store.Root = overrides.Store.Root
		}
		if overrides.Store.Backend != "" {
			c.Store.Backend = overrides.Store.Backend
		}
		if overrides.Store.Compression != "" {
			c.Store.Compression = overrides.Store.Compression
		}
		if overrides.Store.UncompressedPrefixes != nil {
			c.Store.UncompressedPrefixes = overrides.Store.UncompressedPrefixes
		}
		if overrides.Store.SealingKeyFile != "" {
			c.Store.SealingKeyFile = overrides.Store.SealingKeyFile
		}
		if overrides.Store.SealingIdentityFile != "" {
			c.Store.SealingIdentityFile = overrides.Store.SealingIdentityFile
		}
	}

	if overrides.Index != nil {
		if overrides.Index.Kind != "" {
			c.Index.Kind = overrides.Index.Kind
		}
		if overrides.Index.Path != "" {
			c.Index.Path = overrides.Index.Path
		}
		if overrides.Index.PoolSize != 0 {
			c.Index.PoolSize = overrides.Index.PoolSize
		}
	}

	if overrides.S3 != nil {
		if overrides.S3.Bucket != "" {
			c.S3.Bucket = overrides.S3.Bucket
		}
		if overrides.S3.Prefix != "" {
			c.S3.Prefix = overrides.S3.Prefix
		}
		if overrides.S3.Region != "" {
			c.S3.Region = overrides.S3.Region
		}
		if overrides.S3.Endpoint != "" {
			c.S3.Endpoint = overrides.S3.Endpoint
		}
		// PathStyle is a bool, so we always apply it from overrides.
		c.S3.PathStyle = overrides.S3.PathStyle
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Store.Root = expandVars(c.Store.Root, vars)
	vars["CONTENTSTORE_ROOT"] = c.Store.Root

	c.Store.SealingKeyFile = expandVars(c.Store.SealingKeyFile, vars)
	c.Store.SealingIdentityFile = expandVars(c.Store.SealingIdentityFile, vars)
	c.Index.Path = expandVars(c.Index.Path, vars)
	c.S3.Endpoint = expandVars(c.S3.Endpoint, vars)
	c.S3.Bucket = expandVars(c.S3.Bucket, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Provided
// vars win over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	backends     = []string{BackendDirectory, BackendMemory, BackendS3}
	indexKinds   = []string{IndexMemory, IndexSQLite}
	compressions = []string{"auto", "none", "lz4", "zstd"}
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"auto", "text", "json"}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if !slices.Contains(backends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("store.backend must be one of: %v", backends))
	}
	if c.Store.Backend == BackendDirectory && c.Store.Root == "" {
		errs = append(errs, fmt.Errorf("store.root is required for the directory backend"))
	}
	if c.Store.Backend == BackendS3 && c.S3.Bucket == "" {
		errs = append(errs, fmt.Errorf("s3.bucket is required for the s3 backend"))
	}
	if c.Store.SealingIdentityFile != "" && c.Store.SealingKeyFile == "" {
		errs = append(errs, fmt.Errorf("store.sealing_identity_file requires store.sealing_key_file"))
	}
	if !slices.Contains(compressions, c.Store.Compression) {
		errs = append(errs, fmt.Errorf("store.compression must be one of: %v", compressions))
	}

	if !slices.Contains(indexKinds, c.Index.Kind) {
		errs = append(errs, fmt.Errorf("index.kind must be one of: %v", indexKinds))
	}
	if c.Index.Kind == IndexSQLite && c.Index.Path == "" {
		errs = append(errs, fmt.Errorf("index.path is required for the sqlite index"))
	}
	if c.Index.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("index.pool_size must not be negative"))
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogLevel returns Log.Level as an slog level. Unknown levels map to
// info; Validate reports them.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ObjectsDir is where the directory backend keeps objects.
func (c *Config) ObjectsDir() string {
	return filepath.Join(c.Store.Root, "objects")
}

// EnsurePaths creates the directories the configuration names.
func (c *Config) EnsurePaths() error {
	var paths []string
	if c.Store.Backend == BackendDirectory {
		paths = append(paths, c.ObjectsDir())
	}
	if c.Index.Kind == IndexSQLite {
		paths = append(paths, filepath.Dir(c.Index.Path))
	}
	for _, path := range paths {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

// Uncompressed reports whether location falls under one of
// Store.UncompressedPrefixes.
func (c *Config) Uncompressed(location string) bool {
	for _, prefix := range c.Store.UncompressedPrefixes {
		if strings.HasPrefix(location, prefix) {
			return true
		}
	}
	return false
}
