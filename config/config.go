// Package config loads the server configuration.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
)

const (
	DefaultListenAddr  = ":3001"
	DefaultEnvironment = "development"
	DefaultStorePrefix = "mulmochat"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config of the server
type Config struct {
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	OpenAI     OpenAIConfig     `json:"openai" yaml:"openai"`
	Gemini     GeminiConfig     `json:"gemini" yaml:"gemini"`
	GoogleMaps GoogleMapsConfig `json:"google_maps" yaml:"google_maps"`
	Plugins    PluginsConfig    `json:"plugins" yaml:"plugins"`
	Store      StoreConfig      `json:"store" yaml:"store"`
}

// HTTPConfig of the listener
type HTTPConfig struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	// Environment is reported by /api/config
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	// StaticDir is the directory of the web client, served when set
	StaticDir string `json:"static_dir,omitempty" yaml:"static_dir,omitempty"`
	// ShutdownTimeout is a duration, default 10s
	ShutdownTimeout string `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
}

// OpenAIConfig of the realtime session
type OpenAIConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
	Voice   string `json:"voice,omitempty" yaml:"voice,omitempty"`
	// Instructions are the system instructions of the session
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// GeminiConfig of the image backend
type GeminiConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
}

// GoogleMapsConfig enables the map tool
type GoogleMapsConfig struct {
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// PluginsConfig of the tools
type PluginsConfig struct {
	// ImageEndpoint is an external image service,
	// the Gemini backend is used when empty.
	ImageEndpoint string `json:"image_endpoint,omitempty" yaml:"image_endpoint,omitempty"`
	// BrowseEndpoint is an external browse service,
	// pages are fetched in process when empty.
	BrowseEndpoint string `json:"browse_endpoint,omitempty" yaml:"browse_endpoint,omitempty"`
	// RequestTimeout is a duration, default 2m
	RequestTimeout string `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
	// BeatTimeout is a duration, default 2m
	BeatTimeout string `json:"beat_timeout,omitempty" yaml:"beat_timeout,omitempty"`
	// BeatConcurrency bounds the beats generated at once, 0 means all
	BeatConcurrency int `json:"beat_concurrency,omitempty" yaml:"beat_concurrency,omitempty"`
}

// StoreConfig of the session store
type StoreConfig struct {
	// Kind is memory or redis
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty"`
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// TTL is a duration, default 24h
	TTL string `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// Load returns the configuration from file with defaults applied.
// An empty file name returns the defaults.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to load config %s", file)
		}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills the empty values,
// from the environment first where a variable is defined.
func (c *Config) SetDefaults() {
	var port string
	if p := os.Getenv("PORT"); p != "" {
		port = ":" + p
	}
	c.HTTP.ListenAddr = values.StringsCoalesce(c.HTTP.ListenAddr, port, DefaultListenAddr)
	c.HTTP.Environment = values.StringsCoalesce(c.HTTP.Environment, os.Getenv("ENVIRONMENT"), DefaultEnvironment)
	c.OpenAI.APIKey = values.StringsCoalesce(c.OpenAI.APIKey, os.Getenv("OPENAI_API_KEY"))
	c.Gemini.APIKey = values.StringsCoalesce(c.Gemini.APIKey, os.Getenv("GEMINI_API_KEY"))
	c.GoogleMaps.APIKey = values.StringsCoalesce(c.GoogleMaps.APIKey, os.Getenv("GOOGLE_MAP_API_KEY"))
	c.HTTP.ShutdownTimeout = values.StringsCoalesce(c.HTTP.ShutdownTimeout, "10s")
	c.Plugins.RequestTimeout = values.StringsCoalesce(c.Plugins.RequestTimeout, "2m")
	c.Plugins.BeatTimeout = values.StringsCoalesce(c.Plugins.BeatTimeout, "2m")
	c.Store.Kind = values.StringsCoalesce(c.Store.Kind, StoreMemory)
	c.Store.Prefix = values.StringsCoalesce(c.Store.Prefix, DefaultStorePrefix)
	c.Store.TTL = values.StringsCoalesce(c.Store.TTL, "24h")
}

// Validate returns an error if the configuration is not usable
func (c *Config) Validate() error {
	for name, val := range map[string]string{
		"http.shutdown_timeout":   c.HTTP.ShutdownTimeout,
		"plugins.request_timeout": c.Plugins.RequestTimeout,
		"plugins.beat_timeout":    c.Plugins.BeatTimeout,
		"store.ttl":               c.Store.TTL,
	} {
		if _, err := time.ParseDuration(val); err != nil {
			return errors.Wrapf(err, "invalid %s", name)
		}
	}
	if c.Plugins.BeatConcurrency < 0 {
		return errors.New("invalid plugins.beat_concurrency: must not be negative")
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return errors.New("store.redis_url is required for redis store")
		}
	default:
		return errors.Newf("invalid store.kind: %q", c.Store.Kind)
	}
	return nil
}

// ShutdownTimeoutDuration returns the parsed http.shutdown_timeout
func (c *HTTPConfig) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(c.ShutdownTimeout)
}

// RequestTimeoutDuration returns the parsed plugins.request_timeout
func (c *PluginsConfig) RequestTimeoutDuration() time.Duration {
	return mustDuration(c.RequestTimeout)
}

// BeatTimeoutDuration returns the parsed plugins.beat_timeout
func (c *PluginsConfig) BeatTimeoutDuration() time.Duration {
	return mustDuration(c.BeatTimeout)
}

// TTLDuration returns the parsed store.ttl
func (c *StoreConfig) TTLDuration() time.Duration {
	return mustDuration(c.TTL)
}

// mustDuration returns zero for values that did not pass Validate
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
