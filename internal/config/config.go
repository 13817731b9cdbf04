// Package config provides configuration loading and structs for the Mitate server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug           bool                  `yaml:"debug"`
	Server          ServerConfig          `yaml:"server"`
	Storage         StorageConfig         `yaml:"storage"`
	Encoding        EncodingConfig        `yaml:"encoding"`
	Generation      GenerationConfig      `yaml:"generation"`
	Search          SearchConfig          `yaml:"search"`
	Personalization PersonalizationConfig `yaml:"personalization"`
	Session         SessionConfig         `yaml:"session"`
	RateLimit       RateLimitConfig       `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the catalog database, preference database,
// and persisted vector indexes.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	TextIndexPath   string `yaml:"text_index_path"`
	ImageIndexPath  string `yaml:"image_index_path"`
	ProductsCSVPath string `yaml:"products_csv_path"`
}

// EncodingConfig holds query-encoder settings. The text encoder is an
// embeddings API; the image encoder is a local ONNX CLIP model (cgo builds).
type EncodingConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	TextModel       string `yaml:"text_model"`
	ImageModelPath  string `yaml:"image_model_path"`
	Dimensions      int    `yaml:"dimensions"`       // index dimension (padded space)
	ImageDimensions int    `yaml:"image_dimensions"` // native image-encoder output, padded up to Dimensions
	MemoSize        int    `yaml:"memo_size"`        // text-embedding memo capacity
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// GenerationConfig holds answer-generation settings.
type GenerationConfig struct {
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float32 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// SearchConfig holds retrieval and fusion settings.
type SearchConfig struct {
	DefaultLimit    int     `yaml:"default_limit"`
	MaxLimit        int     `yaml:"max_limit"`
	FetchMultiplier int     `yaml:"fetch_multiplier"` // per-modality over-fetch factor, >= 2
	DefaultAlpha    float64 `yaml:"default_alpha"`    // text weight for fusion
	MinScore        float64 `yaml:"min_score"`
}

// PersonalizationConfig holds boost values and strategy weights.
type PersonalizationConfig struct {
	FavoriteBoost     float64 `yaml:"favorite_boost"`
	ColorBoost        float64 `yaml:"color_boost"`
	StyleBoost        float64 `yaml:"style_boost"`
	FavoritesWeight   float64 `yaml:"favorites_weight"`
	HistoryWeight     float64 `yaml:"history_weight"`
	PreferencesWeight float64 `yaml:"preferences_weight"`
	HistoryDepth      int     `yaml:"history_depth"` // recent queries fed to the history strategy
}

// SessionConfig holds conversation session store settings.
type SessionConfig struct {
	MaxSessions int `yaml:"max_sessions"`
	TTLMinutes  int `yaml:"ttl_minutes"`
	MaxTurns    int `yaml:"max_turns"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
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

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.TextIndexPath = expandPath(cfg.Storage.TextIndexPath, configDir)
	cfg.Storage.ImageIndexPath = expandPath(cfg.Storage.ImageIndexPath, configDir)
	if cfg.Storage.ProductsCSVPath != "" {
		cfg.Storage.ProductsCSVPath = expandPath(cfg.Storage.ProductsCSVPath, configDir)
	}
	if cfg.Encoding.ImageModelPath != "" {
		cfg.Encoding.ImageModelPath = expandPath(cfg.Encoding.ImageModelPath, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
