package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "FLICKRBACKUP_"

// Config holds all configuration options for the backup pipeline
type Config struct {
	Flickr    FlickrConfig    `yaml:"flickr" json:"flickr"`
	Queue     QueueConfig     `yaml:"queue" json:"queue"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Sync      SyncConfig      `yaml:"sync" json:"sync"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// FlickrConfig holds the photo service endpoint and credentials
type FlickrConfig struct {
	APIKey    string        `yaml:"api_key" json:"api_key"`
	APISecret string        `yaml:"api_secret" json:"api_secret"`
	UserID    string        `yaml:"user_id" json:"user_id"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	PageSize  int           `yaml:"page_size" json:"page_size"`
}

// QueueConfig holds topic names and consumer pool sizing
type QueueConfig struct {
	Topics        TopicsConfig    `yaml:"topics" json:"topics"`
	Consumers     ConsumersConfig `yaml:"consumers" json:"consumers"`
	MinConsumers  int             `yaml:"min_consumers" json:"min_consumers"`
	MaxConsumers  int             `yaml:"max_consumers" json:"max_consumers"`
	MaxDeliveries int             `yaml:"max_deliveries" json:"max_deliveries"`
}

// TopicsConfig names the four pipeline topics
type TopicsConfig struct {
	Pages       string `yaml:"pages" json:"pages"`
	Downloads   string `yaml:"downloads" json:"downloads"`
	Contexts    string `yaml:"contexts" json:"contexts"`
	Assignments string `yaml:"assignments" json:"assignments"`
}

// ConsumersConfig switches individual pipeline stages on or off
type ConsumersConfig struct {
	Pages       bool `yaml:"pages" json:"pages"`
	Downloads   bool `yaml:"downloads" json:"downloads"`
	Contexts    bool `yaml:"contexts" json:"contexts"`
	Assignments bool `yaml:"assignments" json:"assignments"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Root    string        `yaml:"root" json:"root"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// SyncConfig selects where the incremental sync cursor lives
type SyncConfig struct {
	Store string `yaml:"store" json:"store"`
	Path  string `yaml:"path" json:"path"`
	Key   string `yaml:"key" json:"key"`
}

// IndexConfig selects the metadata index sink
type IndexConfig struct {
	Type  string `yaml:"type" json:"type"`
	URL   string `yaml:"url" json:"url"`
	Index string `yaml:"index" json:"index"`
	Path  string `yaml:"path" json:"path"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerHour int `yaml:"requests_per_hour" json:"requests_per_hour"`
	BurstSize       int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds backoff settings for remote calls
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// ServerConfig holds the trigger endpoint listener settings
type ServerConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	DumpPath    string `yaml:"dump_path" json:"dump_path"`
	SyncOnStart bool   `yaml:"sync_on_start" json:"sync_on_start"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Flickr: FlickrConfig{
			UserID:   "me",
			BaseURL:  "https://api.flickr.com/services/rest/",
			Timeout:  30 * time.Second,
			PageSize: 500,
		},
		Queue: QueueConfig{
			Topics: TopicsConfig{
				Pages:       "flickr.photosets.photos",
				Downloads:   "flickr.download",
				Contexts:    "flickr.context",
				Assignments: "flickr.photosets.add",
			},
			Consumers: ConsumersConfig{
				Pages:       true,
				Downloads:   true,
				Contexts:    true,
				Assignments: true,
			},
			MinConsumers:  3,
			MaxConsumers:  10,
			MaxDeliveries: 5,
		},
		Download: DownloadConfig{
			Root:    "./flickr-backup",
			Timeout: 5 * time.Minute,
		},
		Sync: SyncConfig{
			Store: "file",
			Key:   "lastUpdated",
		},
		Index: IndexConfig{
			Type:  "none",
			Index: "flickr",
		},
		RateLimit: RateLimitConfig{
			RequestsPerHour: 3600,
			BurstSize:       10,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from FLICKRBACKUP_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	str := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		v := os.Getenv(envPrefix + name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
			return
		}
		*dst = n
	}

	str("API_KEY", &c.Flickr.APIKey)
	str("API_SECRET", &c.Flickr.APISecret)
	str("USER_ID", &c.Flickr.UserID)
	str("BASE_URL", &c.Flickr.BaseURL)
	str("DOWNLOAD_ROOT", &c.Download.Root)
	str("SYNC_STORE", &c.Sync.Store)
	str("SYNC_PATH", &c.Sync.Path)
	str("INDEX_TYPE", &c.Index.Type)
	str("INDEX_URL", &c.Index.URL)
	str("INDEX_PATH", &c.Index.Path)
	str("SERVER_ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FILE", &c.Logging.File)

	num("MIN_CONSUMERS", &c.Queue.MinConsumers)
	num("MAX_CONSUMERS", &c.Queue.MaxConsumers)
	num("MAX_DELIVERIES", &c.Queue.MaxDeliveries)
	num("REQUESTS_PER_HOUR", &c.RateLimit.RequestsPerHour)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".flickrbackup.yaml",
		".flickrbackup.yml",
		filepath.Join(home, ".config", "flickrbackup", "config.yaml"),
		filepath.Join(home, ".config", "flickrbackup", "config.yml"),
		filepath.Join(home, ".flickrbackup.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Flickr.BaseURL == "" {
		errs = append(errs, errors.New("flickr base URL is required"))
	}
	if c.Flickr.PageSize <= 0 || c.Flickr.PageSize > 500 {
		errs = append(errs, errors.New("flickr page size must be between 1 and 500"))
	}

	q := c.Queue
	if q.MinConsumers <= 0 {
		errs = append(errs, errors.New("min consumers must be positive"))
	}
	if q.MaxConsumers < q.MinConsumers {
		errs = append(errs, errors.New("max consumers must not be lower than min consumers"))
	}
	if q.MaxDeliveries <= 0 {
		errs = append(errs, errors.New("max deliveries must be positive"))
	}
	if q.Topics.Pages == "" || q.Topics.Downloads == "" || q.Topics.Contexts == "" || q.Topics.Assignments == "" {
		errs = append(errs, errors.New("all queue topics must be named"))
	}

	if c.Download.Root == "" {
		errs = append(errs, errors.New("download root is required"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	switch strings.ToLower(c.Sync.Store) {
	case "file", "bolt":
	default:
		errs = append(errs, fmt.Errorf("invalid sync store %q", c.Sync.Store))
	}
	if c.Sync.Key == "" {
		errs = append(errs, errors.New("sync key is required"))
	}

	switch strings.ToLower(c.Index.Type) {
	case "none", "":
	case "http":
		if c.Index.URL == "" {
			errs = append(errs, errors.New("index URL is required for the http index"))
		}
	case "sqlite":
		if c.Index.Path == "" {
			errs = append(errs, errors.New("index path is required for the sqlite index"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid index type %q", c.Index.Type))
	}

	if c.RateLimit.RequestsPerHour <= 0 {
		errs = append(errs, errors.New("requests per hour must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if root, ok := flags["root"].(string); ok && root != "" {
		c.Download.Root = root
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if n, ok := flags["min-consumers"].(int); ok && n > 0 {
		c.Queue.MinConsumers = n
	}
	if n, ok := flags["max-consumers"].(int); ok && n > 0 {
		c.Queue.MaxConsumers = n
	}
	if store, ok := flags["sync-store"].(string); ok && store != "" {
		c.Sync.Store = store
	}
	if index, ok := flags["index"].(string); ok && index != "" {
		c.Index.Type = index
	}
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Addr = addr
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".flickrbackup.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
