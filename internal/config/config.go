// Package config provides configuration for the phishguard service.
// It uses YAML files with .env and environment variable overrides.
package config

import (
	"errors"
	"time"
)

// Default configuration values.
const (
	defaultServiceName     = "phishguard"
	defaultServiceVersion  = "1.0.0"
	defaultServicePort     = 8085
	defaultShutdownTimeout = 10 * time.Second

	defaultLogLevel  = "info"
	defaultLogFormat = "json"

	defaultTrustTopN       = 100000
	defaultTrustCacheDir   = "data/trust_cache"
	defaultBlockFeedURL    = "https://openphish.com/feed.txt"
	defaultBlockMaxEntries = 1000
	defaultBlockCacheDir   = "data/block_cache"
	defaultListMaxAgeDays  = 30

	defaultPersonalPath     = "data/personal/trusted.json"
	defaultPersonalCapacity = 30

	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "gemma3:4b"
	defaultGeminiModel    = "gemini-2.5-flash"
	defaultModelTimeout   = 60 * time.Second

	defaultDatabasePath = "data/phishguard.db"
)

// Config holds all configuration for the phishguard service.
type Config struct {
	Service   ServiceConfig  `yaml:"service"`
	Logging   LoggingConfig  `yaml:"logging"`
	TrustList TrustConfig    `yaml:"trust_list"`
	BlockList BlockConfig    `yaml:"block_list"`
	Personal  PersonalConfig `yaml:"personal"`
	Models    ModelsConfig   `yaml:"models"`
	Storage   StorageConfig  `yaml:"storage"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Port            int           `env:"PHISHGUARD_PORT" yaml:"port"`
	Debug           bool          `env:"APP_DEBUG"       yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
	Output string `yaml:"output"`
}

// TrustConfig holds global trust list configuration.
type TrustConfig struct {
	FeedURL    string `env:"TRUST_FEED_URL" yaml:"feed_url"`
	TopN       int    `yaml:"top_n"`
	MaxAgeDays int    `yaml:"max_age_days"`
	CacheDir   string `yaml:"cache_dir"`
}

// BlockConfig holds block list configuration.
type BlockConfig struct {
	FeedURL    string `env:"BLOCK_FEED_URL" yaml:"feed_url"`
	MaxEntries int    `yaml:"max_entries"`
	MaxAgeDays int    `yaml:"max_age_days"`
	CacheDir   string `yaml:"cache_dir"`
}

// PersonalConfig holds personal trust cache configuration.
type PersonalConfig struct {
	Path     string `yaml:"path"`
	Capacity int    `yaml:"capacity"`
}

// ModelsConfig holds the two verification model configurations.
type ModelsConfig struct {
	Ollama OllamaConfig `yaml:"ollama"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// OllamaConfig holds the local model configuration.
type OllamaConfig struct {
	Endpoint string        `env:"OLLAMA_ENDPOINT" yaml:"endpoint"`
	Model    string        `env:"OLLAMA_MODEL"    yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// GeminiConfig holds the remote model configuration.
type GeminiConfig struct {
	APIKey  string        `env:"GEMINI_API_KEY" yaml:"api_key"`
	Model   string        `env:"GEMINI_MODEL"   yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig holds feedback database configuration.
type StorageConfig struct {
	DatabasePath string `env:"PHISHGUARD_DB" yaml:"database_path"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	cfg, err := loadWithDefaults[Config](path, setDefaults)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fields that have no usable default.
func (c *Config) Validate() error {
	if c.TrustList.FeedURL == "" {
		return errors.New("config: trust_list.feed_url is required")
	}
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return errors.New("config: service.port out of range")
	}
	return nil
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setLoggingDefaults(&cfg.Logging)
	setListDefaults(cfg)
	setPersonalDefaults(&cfg.Personal)
	setModelDefaults(&cfg.Models)
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = defaultDatabasePath
	}
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = defaultShutdownTimeout
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
	if l.Output == "" {
		l.Output = "stdout"
	}
}

func setListDefaults(cfg *Config) {
	if cfg.TrustList.TopN == 0 {
		cfg.TrustList.TopN = defaultTrustTopN
	}
	if cfg.TrustList.MaxAgeDays == 0 {
		cfg.TrustList.MaxAgeDays = defaultListMaxAgeDays
	}
	if cfg.TrustList.CacheDir == "" {
		cfg.TrustList.CacheDir = defaultTrustCacheDir
	}

	if cfg.BlockList.FeedURL == "" {
		cfg.BlockList.FeedURL = defaultBlockFeedURL
	}
	if cfg.BlockList.MaxEntries == 0 {
		cfg.BlockList.MaxEntries = defaultBlockMaxEntries
	}
	if cfg.BlockList.MaxAgeDays == 0 {
		cfg.BlockList.MaxAgeDays = defaultListMaxAgeDays
	}
	if cfg.BlockList.CacheDir == "" {
		cfg.BlockList.CacheDir = defaultBlockCacheDir
	}
}

func setPersonalDefaults(p *PersonalConfig) {
	if p.Path == "" {
		p.Path = defaultPersonalPath
	}
	if p.Capacity == 0 {
		p.Capacity = defaultPersonalCapacity
	}
}

func setModelDefaults(m *ModelsConfig) {
	if m.Ollama.Endpoint == "" {
		m.Ollama.Endpoint = defaultOllamaEndpoint
	}
	if m.Ollama.Model == "" {
		m.Ollama.Model = defaultOllamaModel
	}
	if m.Ollama.Timeout == 0 {
		m.Ollama.Timeout = defaultModelTimeout
	}
	if m.Gemini.Model == "" {
		m.Gemini.Model = defaultGeminiModel
	}
	if m.Gemini.Timeout == 0 {
		m.Gemini.Timeout = defaultModelTimeout
	}
}
