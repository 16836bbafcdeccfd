// Package config loads the player configuration from viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config contains all configuration options.
type Config struct {
	Trello  TrelloConfig  `mapstructure:"trello"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Player  PlayerConfig  `mapstructure:"player"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// TrelloConfig selects the list and API endpoint.
type TrelloConfig struct {
	APIKey    string  `mapstructure:"api_key"`
	ListID    string  `mapstructure:"list_id"`
	APIURL    string  `mapstructure:"api_url"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

// ProxyConfig configures both the proxy client and the proxy service.
type ProxyConfig struct {
	URL            string   `mapstructure:"url"`
	Origin         string   `mapstructure:"origin"`
	Listen         string   `mapstructure:"listen"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PlayerConfig tunes playback.
type PlayerConfig struct {
	CacheLimit   int           `mapstructure:"cache_limit"`
	Autoplay     bool          `mapstructure:"autoplay"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// StorageConfig locates the persisted key/value document.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig configures the debug log.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Defaults.
const (
	DefaultAPIURL       = "https://api.trello.com"
	DefaultProxyURL     = "http://localhost:8787/"
	DefaultOriginURL    = "https://yourdomain.com"
	DefaultListen       = ":8787"
	DefaultOrigin       = "yourdomain.com"
	DefaultRateLimit    = 10.0
	DefaultCacheLimit   = 6
	DefaultFetchTimeout = 2 * time.Minute
	DefaultLogLevel     = "info"
)

var (
	// ErrInvalidURL is returned for malformed endpoint URLs.
	ErrInvalidURL = errors.New("invalid url")
	// ErrOutOfRange is returned for numeric settings outside their bounds.
	ErrOutOfRange = errors.New("value out of range")
)

var validLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Trello: TrelloConfig{
			APIURL:    DefaultAPIURL,
			RateLimit: DefaultRateLimit,
		},
		Proxy: ProxyConfig{
			URL:            DefaultProxyURL,
			Origin:         DefaultOriginURL,
			Listen:         DefaultListen,
			AllowedOrigins: []string{DefaultOrigin},
		},
		Player: PlayerConfig{
			CacheLimit:   DefaultCacheLimit,
			Autoplay:     true,
			FetchTimeout: DefaultFetchTimeout,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// SetDefaults registers the defaults with v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("trello.api_key", d.Trello.APIKey)
	v.SetDefault("trello.list_id", d.Trello.ListID)
	v.SetDefault("trello.api_url", d.Trello.APIURL)
	v.SetDefault("trello.rate_limit", d.Trello.RateLimit)
	v.SetDefault("proxy.url", d.Proxy.URL)
	v.SetDefault("proxy.origin", d.Proxy.Origin)
	v.SetDefault("proxy.listen", d.Proxy.Listen)
	v.SetDefault("proxy.allowed_origins", d.Proxy.AllowedOrigins)
	v.SetDefault("player.cache_limit", d.Player.CacheLimit)
	v.SetDefault("player.autoplay", d.Player.Autoplay)
	v.SetDefault("player.fetch_timeout", d.Player.FetchTimeout)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode configuration: %w", err)
	}
	cfg.Storage.Path = expand(cfg.Storage.Path)
	cfg.Log.File = expand(cfg.Log.File)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validateURL("trello.api_url", c.Trello.APIURL); err != nil {
		return err
	}
	if c.Trello.RateLimit < 0 || c.Trello.RateLimit > 100 {
		return fmt.Errorf("%w: trello.rate_limit must be between 0 and 100, got %.2f", ErrOutOfRange, c.Trello.RateLimit)
	}
	if err := validateURL("proxy.url", c.Proxy.URL); err != nil {
		return err
	}
	if c.Proxy.Listen == "" {
		return fmt.Errorf("%w: proxy.listen must not be empty", ErrInvalidURL)
	}
	if c.Player.CacheLimit < 1 || c.Player.CacheLimit > 100 {
		return fmt.Errorf("%w: player.cache_limit must be between 1 and 100, got %d", ErrOutOfRange, c.Player.CacheLimit)
	}
	if c.Player.FetchTimeout <= 0 {
		return fmt.Errorf("%w: player.fetch_timeout must be positive, got %s", ErrOutOfRange, c.Player.FetchTimeout)
	}

	level := strings.ToLower(c.Log.Level)
	for _, l := range validLevels {
		if l == level {
			c.Log.Level = level
			return nil
		}
	}
	return fmt.Errorf("invalid log level '%s': must be one of %v", c.Log.Level, validLevels)
}

// LogLevel returns the configured charmbracelet log level.
func (c Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an http(s) url, got %q", ErrInvalidURL, key, raw)
	}
	return nil
}

func expand(path string) string {
	if path == "" {
		return path
	}
	p, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return p
}
