// Package config provides configuration loading and structs for the kashf server.
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
	Debug       bool               `yaml:"debug"`
	UseCloud    *bool              `yaml:"use_cloud"`
	Server      ServerConfig       `yaml:"server"`
	Storage     StorageConfig      `yaml:"storage"`
	Embedding   EmbeddingConfig    `yaml:"embedding"`
	Search      SearchConfig       `yaml:"search"`
	Download    DownloadConfig     `yaml:"download"`
	Attribution AttributionConfig  `yaml:"attribution"`
	Verses      VersesConfig       `yaml:"verses"`
	Collections []CollectionConfig `yaml:"collections"`
}

// UseCloudOrDefault returns whether remote sources are preferred; defaults to true when unset.
func (c *Config) UseCloudOrDefault() bool {
	if c.UseCloud != nil {
		return *c.UseCloud
	}
	return true
}

// Collection returns the collection config with the given name, or nil.
func (c *Config) Collection(name string) *CollectionConfig {
	for i := range c.Collections {
		if c.Collections[i].Name == name {
			return &c.Collections[i]
		}
	}
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the download cache and local stores.
type StorageConfig struct {
	CacheDir     string `yaml:"cache_dir"`
	DatabasePath string `yaml:"database_path"`
	// KeywordIndexPath is where the verse text index lives. Empty keeps it in memory.
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// EmbeddingConfig holds settings for the external embedding service.
type EmbeddingConfig struct {
	Provider            string  `yaml:"provider"` // openai | mock
	Model               string  `yaml:"model"`
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	Dimensions          int     `yaml:"dimensions"`
	CacheSize           int     `yaml:"cache_size"`
	PersistentCachePath string  `yaml:"persistent_cache_path"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"`
	Burst               int     `yaml:"burst"`
}

// SearchConfig holds search defaults and limits.
type SearchConfig struct {
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
	IndexType    string `yaml:"index_type"` // flat | hnsw
	PoolSize     int    `yaml:"pool_size"`
}

// DownloadConfig holds retry settings for remote collection artifacts.
type DownloadConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AttributionConfig holds settings for resolving media fragments to source videos.
type AttributionConfig struct {
	Collection   string   `yaml:"collection"`
	MappingURL   string   `yaml:"mapping_url"`
	MappingPaths []string `yaml:"mapping_paths"`
	// GapWarnThreshold is the distance between a fragment and its mapped key above
	// which an approximate attribution is logged as low confidence.
	GapWarnThreshold int `yaml:"gap_warn_threshold"`
}

// VersesConfig holds the verse corpus sources.
type VersesConfig struct {
	URL        string   `yaml:"url"`
	LocalPaths []string `yaml:"local_paths"`
}

// CollectionConfig describes one searchable collection and where its artifacts live.
type CollectionConfig struct {
	Name               string   `yaml:"name"`
	Kind               string   `yaml:"kind"` // verse | media | article | footnote
	IndexURL           string   `yaml:"index_url"`
	MetadataURL        string   `yaml:"metadata_url"`
	CacheName          string   `yaml:"cache_name"`
	LocalIndexPaths    []string `yaml:"local_index_paths"`
	LocalMetadataPaths []string `yaml:"local_metadata_paths"`
	ScriptNative       bool     `yaml:"script_native"`
	EmbeddingModel     string   `yaml:"embedding_model"`
	Source             string   `yaml:"source"`
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths.
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

	finish(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config built only from defaults and the environment. Relative
// paths resolve against the working directory.
func Default() *Config {
	var cfg Config
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	finish(&cfg, dir)
	return &cfg
}

func finish(cfg *Config, configDir string) {
	ApplyDefaults(cfg)
	ApplyEnv(cfg, os.Getenv)

	cfg.Storage.CacheDir = expandPath(cfg.Storage.CacheDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Storage.KeywordIndexPath != "" {
		cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	}
	if cfg.Embedding.PersistentCachePath != "" {
		cfg.Embedding.PersistentCachePath = expandPath(cfg.Embedding.PersistentCachePath, configDir)
	}
	expandAll(cfg.Attribution.MappingPaths, configDir)
	expandAll(cfg.Verses.LocalPaths, configDir)
	for i := range cfg.Collections {
		expandAll(cfg.Collections[i].LocalIndexPaths, configDir)
		expandAll(cfg.Collections[i].LocalMetadataPaths, configDir)
	}
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

func expandAll(paths []string, configDir string) {
	for i := range paths {
		paths[i] = expandPath(paths[i], configDir)
	}
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
