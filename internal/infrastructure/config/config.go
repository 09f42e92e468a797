// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for canon configuration.
	DefaultConfigDir = ".canon"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultFandomsFile is the default fandoms registry file name.
	DefaultFandomsFile = "fandoms.yaml"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Engine   EngineConfig   `yaml:"engine,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant vector database.
type QdrantConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	// For per-fandom databases, this is computed dynamically using SQLitePathForFandom.
	Path string `yaml:"path,omitempty"`
}

// EngineConfig holds rule engine tuning. Boolean options are pointers so
// a config file can distinguish "unset, use the default" from an
// explicit false.
type EngineConfig struct {
	MaxExecutionTimeMS          int   `yaml:"max_execution_time_ms,omitempty"`
	StrictMode                  *bool `yaml:"strict_mode,omitempty"`
	CircularDependencyDetection *bool `yaml:"circular_dependency_detection,omitempty"`
	ParallelExecution           bool  `yaml:"parallel_execution,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Engine: EngineConfig{
			MaxExecutionTimeMS: 1000,
		},
	}
}

// Load loads configuration from the .canon directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'canon fandoms create' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		if c.Qdrant.APIKey == "" {
			c.Qdrant.APIKey = key
		}
	}
}

// ConfigDir returns the path to the .canon config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// FandomsFilePath returns the path to the fandoms registry file.
func FandomsFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultFandomsFile)
}

// Exists checks if a canon config exists in the given path.
func Exists(basePath string) bool {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
	_, err := os.Stat(configFile)
	return err == nil
}

// SanitizeFandomName converts a fandom name to a valid collection suffix.
func SanitizeFandomName(name string) string {
	// Convert to lowercase
	name = strings.ToLower(name)

	// Replace spaces and hyphens with underscores
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	// Remove any characters that aren't alphanumeric or underscore
	name = reNonAlphanumeric.ReplaceAllString(name, "")

	// Remove consecutive underscores
	name = reMultipleUnderscores.ReplaceAllString(name, "_")

	// Trim leading/trailing underscores
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}

// GenerateCollectionName creates a collection name for a fandom.
func GenerateCollectionName(fandomName string) string {
	return "canon_" + SanitizeFandomName(fandomName)
}

// SQLitePathForFandom returns the SQLite database path for a given fandom.
func SQLitePathForFandom(basePath, fandomName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "fandoms", SanitizeFandomName(fandomName), "canon.db")
}

// FandomDir returns the directory path for a given fandom.
func FandomDir(basePath, fandomName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "fandoms", SanitizeFandomName(fandomName))
}
