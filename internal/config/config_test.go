package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	if cfg.Player.CacheLimit != 6 {
		t.Errorf("Default cache limit should be 6, got %d", cfg.Player.CacheLimit)
	}
	if !cfg.Player.Autoplay {
		t.Error("Autoplay should be enabled by default")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:    "bad api url",
			modify:  func(c *Config) { c.Trello.APIURL = "api.trello.com" },
			wantErr: ErrInvalidURL,
			errMsg:  "trello.api_url",
		},
		{
			name:    "bad proxy url",
			modify:  func(c *Config) { c.Proxy.URL = "ftp://proxy" },
			wantErr: ErrInvalidURL,
			errMsg:  "proxy.url",
		},
		{
			name:    "empty listen",
			modify:  func(c *Config) { c.Proxy.Listen = "" },
			wantErr: ErrInvalidURL,
		},
		{
			name:    "cache limit too small",
			modify:  func(c *Config) { c.Player.CacheLimit = 0 },
			wantErr: ErrOutOfRange,
			errMsg:  "player.cache_limit",
		},
		{
			name:    "negative rate limit",
			modify:  func(c *Config) { c.Trello.RateLimit = -1 },
			wantErr: ErrOutOfRange,
		},
		{
			name:    "zero fetch timeout",
			modify:  func(c *Config) { c.Player.FetchTimeout = 0 },
			wantErr: ErrOutOfRange,
		},
		{
			name:   "invalid log level",
			modify: func(c *Config) { c.Log.Level = "loud" },
			errMsg: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()

			wantErr := tt.wantErr != nil || tt.errMsg != ""
			if wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, wantErr)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err)
			}
		})
	}
}

func TestLoadFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("trello.list_id", "list123")
	v.Set("player.cache_limit", 3)
	v.Set("player.autoplay", false)
	v.Set("player.fetch_timeout", "30s")
	v.Set("proxy.allowed_origins", []string{"trello.com", "example.com"})
	v.Set("log.level", "DEBUG")
	v.Set("storage.path", "~/player.yml")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Trello.ListID != "list123" {
		t.Errorf("list id = %q", cfg.Trello.ListID)
	}
	if cfg.Trello.APIURL != DefaultAPIURL {
		t.Errorf("api url = %q", cfg.Trello.APIURL)
	}
	if cfg.Player.CacheLimit != 3 || cfg.Player.Autoplay {
		t.Errorf("player = %+v", cfg.Player)
	}
	if cfg.Player.FetchTimeout != 30*time.Second {
		t.Errorf("fetch timeout = %s", cfg.Player.FetchTimeout)
	}
	if len(cfg.Proxy.AllowedOrigins) != 2 {
		t.Errorf("origins = %v", cfg.Proxy.AllowedOrigins)
	}
	if cfg.Log.Level != "debug" || cfg.LogLevel() != log.DebugLevel {
		t.Errorf("log level = %q", cfg.Log.Level)
	}

	home, err := homedir.Dir()
	if err == nil && cfg.Storage.Path != filepath.Join(home, "player.yml") {
		t.Errorf("storage path not expanded: %q", cfg.Storage.Path)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("player.cache_limit", 1000)

	if _, err := Load(v); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}
