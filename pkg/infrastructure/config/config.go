package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// Config holds all site search configuration
type Config struct {
	// Where content records come from
	Content ContentConfig `json:"content"`

	// Index building and snapshot
	Index IndexConfig `json:"index"`

	// Query engine behaviour
	Search SearchConfig `json:"search"`

	// Result cache
	Cache CacheConfig `json:"cache"`

	// Scheduled background jobs
	Maintenance MaintenanceConfig `json:"maintenance"`

	// HTTP API
	Server ServerConfig `json:"server"`

	// System configuration
	Logging LoggingConfig `json:"logging"`
}

// ContentConfig selects the content source
type ContentConfig struct {
	Driver      string `json:"driver"` // file, postgres
	Dir         string `json:"dir"`
	DatabaseURL string `json:"database_url,omitempty"`
	Watch       bool   `json:"watch"`
	// Milliseconds to wait for a burst of file events to settle
	WatchDebounceMS int `json:"watch_debounce_ms"`
}

// IndexConfig holds index build settings
type IndexConfig struct {
	SnapshotPath string `json:"snapshot_path"`
	// Index draft/archived/scheduled records as well as published ones
	IncludeUnpublished bool `json:"include_unpublished"`
}

// SearchConfig holds query engine defaults
type SearchConfig struct {
	DefaultLimit     int     `json:"default_limit"`
	MaxLimit         int     `json:"max_limit"`
	Threshold        float64 `json:"threshold"`
	HighlightLength  int     `json:"highlight_length"`
	Fuzzy            bool    `json:"fuzzy"`
	JapaneseTokenize bool    `json:"japanese_tokenize"`
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	MaxEntries     int    `json:"max_entries"`
	TTLSeconds     int    `json:"ttl_seconds"`
	SnapshotPath   string `json:"snapshot_path"`
	PopularQueries string `json:"popular_queries_path,omitempty"`
	PreloadCount   int    `json:"preload_count"`
}

// MaintenanceConfig holds cron schedules; an empty schedule disables the job
type MaintenanceConfig struct {
	RebuildSchedule      string `json:"rebuild_schedule"`
	CachePersistSchedule string `json:"cache_persist_schedule"`
	ExpirySweepSchedule  string `json:"expiry_sweep_schedule"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Address             string `json:"address"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
	EnableMetrics       bool   `json:"enable_metrics"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Output string `json:"output"` // console, file
	File   string `json:"file,omitempty"`
	Format string `json:"format"` // text, json
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Content: ContentConfig{
			Driver:          "file",
			Dir:             filepath.Join("data", "content"),
			Watch:           false,
			WatchDebounceMS: 500,
		},
		Index: IndexConfig{
			SnapshotPath: filepath.Join("data", "search-index.json"),
		},
		Search: SearchConfig{
			DefaultLimit:     10,
			MaxLimit:         100,
			Threshold:        0.3,
			HighlightLength:  150,
			Fuzzy:            true,
			JapaneseTokenize: true,
		},
		Cache: CacheConfig{
			MaxEntries:   100,
			TTLSeconds:   300,
			SnapshotPath: filepath.Join("data", "search-cache.json"),
			PreloadCount: 10,
		},
		Maintenance: MaintenanceConfig{
			RebuildSchedule:      "",
			CachePersistSchedule: "*/10 * * * *",
			ExpirySweepSchedule:  "* * * * *",
		},
		Server: ServerConfig{
			Address:             ":8080",
			ReadTimeoutSeconds:  10,
			WriteTimeoutSeconds: 30,
			EnableMetrics:       true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from file with environment variable overrides
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// Load from file if it exists
	if configPath != "" {
		if err := config.loadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a JSON file
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return nil
		}
		return err
	}

	return json.Unmarshal(data, c)
}

func envInt(key string, target *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*target = n
		}
	}
}

func envFloat(key string, target *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*target = f
		}
	}
}

func envBool(key string, target *bool) {
	if val := os.Getenv(key); val != "" {
		*target = strings.ToLower(val) == "true"
	}
}

func envString(key string, target *string) {
	if val, ok := os.LookupEnv(key); ok {
		*target = val
	}
}

// applyEnvironmentOverrides applies SITESEARCH_* environment variable overrides
func (c *Config) applyEnvironmentOverrides() {
	// Content overrides
	envString("SITESEARCH_CONTENT_DRIVER", &c.Content.Driver)
	envString("SITESEARCH_CONTENT_DIR", &c.Content.Dir)
	envString("SITESEARCH_DATABASE_URL", &c.Content.DatabaseURL)
	envBool("SITESEARCH_WATCH", &c.Content.Watch)
	envInt("SITESEARCH_WATCH_DEBOUNCE_MS", &c.Content.WatchDebounceMS)

	// Index overrides
	envString("SITESEARCH_INDEX_PATH", &c.Index.SnapshotPath)
	envBool("SITESEARCH_INCLUDE_UNPUBLISHED", &c.Index.IncludeUnpublished)

	// Search overrides
	envInt("SITESEARCH_DEFAULT_LIMIT", &c.Search.DefaultLimit)
	envInt("SITESEARCH_MAX_LIMIT", &c.Search.MaxLimit)
	envFloat("SITESEARCH_THRESHOLD", &c.Search.Threshold)
	envInt("SITESEARCH_HIGHLIGHT_LENGTH", &c.Search.HighlightLength)
	envBool("SITESEARCH_FUZZY", &c.Search.Fuzzy)
	envBool("SITESEARCH_JAPANESE_TOKENIZE", &c.Search.JapaneseTokenize)

	// Cache overrides
	envInt("SITESEARCH_CACHE_SIZE", &c.Cache.MaxEntries)
	envInt("SITESEARCH_CACHE_TTL", &c.Cache.TTLSeconds)
	envString("SITESEARCH_CACHE_PATH", &c.Cache.SnapshotPath)
	envString("SITESEARCH_POPULAR_QUERIES", &c.Cache.PopularQueries)
	envInt("SITESEARCH_PRELOAD_COUNT", &c.Cache.PreloadCount)

	// Maintenance overrides
	envString("SITESEARCH_REBUILD_SCHEDULE", &c.Maintenance.RebuildSchedule)
	envString("SITESEARCH_CACHE_PERSIST_SCHEDULE", &c.Maintenance.CachePersistSchedule)
	envString("SITESEARCH_EXPIRY_SWEEP_SCHEDULE", &c.Maintenance.ExpirySweepSchedule)

	// Server overrides
	envString("SITESEARCH_ADDR", &c.Server.Address)
	envBool("SITESEARCH_METRICS", &c.Server.EnableMetrics)

	// Logging overrides
	envString("SITESEARCH_LOG_LEVEL", &c.Logging.Level)
	envString("SITESEARCH_LOG_OUTPUT", &c.Logging.Output)
	envString("SITESEARCH_LOG_FILE", &c.Logging.File)
	envString("SITESEARCH_LOG_FORMAT", &c.Logging.Format)
}

// Validate validates the configuration and provides helpful suggestions
func (c *Config) Validate() error {
	// Validate content source
	switch c.Content.Driver {
	case "file":
		if c.Content.Dir == "" {
			return fmt.Errorf("content directory cannot be empty for the file driver. Point it at the directory holding <type>.json files")
		}
	case "postgres":
		if c.Content.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for the postgres driver. Set SITESEARCH_DATABASE_URL or content.database_url")
		}
	default:
		return fmt.Errorf("invalid content driver '%s'. Valid options: file, postgres", c.Content.Driver)
	}
	if c.Content.WatchDebounceMS < 0 {
		return fmt.Errorf("watch debounce cannot be negative (current: %d ms). Use 500ms for normal editing", c.Content.WatchDebounceMS)
	}

	if c.Index.SnapshotPath == "" {
		return fmt.Errorf("index snapshot path cannot be empty. Use data/search-index.json for default")
	}

	// Validate search configuration
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("default limit must be positive (current: %d). Use 10 for default", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("max limit (%d) must not be below default limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("search threshold must be within [0,1] (current: %g). Use 0.3 for default", c.Search.Threshold)
	}
	if c.Search.HighlightLength <= 0 {
		return fmt.Errorf("highlight length must be positive (current: %d). Use 150 for default", c.Search.HighlightLength)
	}

	// Validate cache configuration
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache size must be positive (current: %d). Use 100 for default", c.Cache.MaxEntries)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache TTL must be positive (current: %d seconds). Use 300 for default", c.Cache.TTLSeconds)
	}
	if c.Cache.PreloadCount < 0 {
		return fmt.Errorf("preload count cannot be negative (current: %d)", c.Cache.PreloadCount)
	}

	// Validate schedules
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedules := map[string]string{
		"rebuild_schedule":       c.Maintenance.RebuildSchedule,
		"cache_persist_schedule": c.Maintenance.CachePersistSchedule,
		"expiry_sweep_schedule":  c.Maintenance.ExpirySweepSchedule,
	}
	for name, expr := range schedules {
		if expr == "" {
			continue
		}
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("invalid %s '%s': %v. Use a five-field cron expression such as '*/10 * * * *'", name, expr, err)
		}
	}

	if c.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty. Use ':8080' for default")
	}

	// Validate logging configuration
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s'. Valid options: debug, info, warn, error", c.Logging.Level)
	}

	validOutputs := map[string]bool{
		"console": true, "file": true,
	}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid log output '%s'. Valid options: console, file", c.Logging.Output)
	}
	if c.Logging.Output == "file" && c.Logging.File == "" {
		return fmt.Errorf("log file path must be specified when output is 'file'")
	}

	validFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format '%s'. Valid options: text, json", c.Logging.Format)
	}

	return nil
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	if val := os.Getenv("SITESEARCH_CONFIG"); val != "" {
		return val, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}

	return filepath.Join(configDir, "sitesearch", "config.json"), nil
}
