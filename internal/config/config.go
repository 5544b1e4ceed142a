// Package config provides configuration loading and structs for the tategaki server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Storage  StorageConfig  `yaml:"storage"`
	Book     BookConfig     `yaml:"book"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Extract  ExtractConfig  `yaml:"extract"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	MaxBodyBytes   int64           `yaml:"max_body_bytes"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a token bucket. A negative RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// FetchConfig holds settings for retrieving Google Docs exports.
type FetchConfig struct {
	ExportURLTemplate string          `yaml:"export_url_template"`
	UserAgent         string          `yaml:"user_agent"`
	Timeout           time.Duration   `yaml:"timeout"`
	MaxBytes          int64           `yaml:"max_bytes"`
	TitleSuffix       string          `yaml:"title_suffix"`
	LoginMarkers      []string        `yaml:"login_markers"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
}

// StorageConfig holds paths for the history database and generated books.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	OutputDir    string `yaml:"output_dir"`
}

// BookConfig holds fixed settings of generated books.
type BookConfig struct {
	Language       string `yaml:"language"`
	BackmatterURL  string `yaml:"backmatter_url"`
	BackmatterText string `yaml:"backmatter_text"`
	DefaultTitle   string `yaml:"default_title"`
}

// DefaultsConfig holds option values used when a request leaves them unset.
type DefaultsConfig struct {
	TcyNumbers *bool `yaml:"tcy_numbers"`
	TcyLatin   *bool `yaml:"tcy_latin"`
	TocPage    *bool `yaml:"toc_page"`
}

// ExtractConfig holds blank-paragraph detection rules.
type ExtractConfig struct {
	BlankClasses   []string `yaml:"blank_classes"`
	BlankEmptySpan *bool    `yaml:"blank_empty_span"`
	BlankNBSP      *bool    `yaml:"blank_nbsp"`
	BlankLineBreak *bool    `yaml:"blank_line_break"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	expandPaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns a configuration with every default applied, for running without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.OutputDir = expandPath(cfg.Storage.OutputDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
