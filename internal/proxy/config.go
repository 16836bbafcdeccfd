package proxy

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultAllowedOrigin is allowed when no origins are configured.
const DefaultAllowedOrigin = "yourdomain.com"

// Config configures the proxy service.
type Config struct {
	Listen         string        `env:"PROXY_LISTEN" envDefault:":8787"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGIN_DOMAIN" envSeparator:"," envDefault:"yourdomain.com"`
	Timeout        time.Duration `env:"PROXY_TIMEOUT" envDefault:"2m"`
}

// ConfigFromEnv reads the configuration from the environment.
func ConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	return cfg, nil
}

// normalizeOrigins trims entries and drops empty ones, falling back to
// DefaultAllowedOrigin when nothing is left.
func normalizeOrigins(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return []string{DefaultAllowedOrigin}
	}
	return out
}

// WithEnv overrides c with the proxy variables set in the environment.
func (c Config) WithEnv() (Config, error) {
	fromEnv, err := ConfigFromEnv()
	if err != nil {
		return c, err
	}
	if _, ok := os.LookupEnv("PROXY_LISTEN"); ok {
		c.Listen = fromEnv.Listen
	}
	if _, ok := os.LookupEnv("ALLOWED_ORIGIN_DOMAIN"); ok {
		c.AllowedOrigins = fromEnv.AllowedOrigins
	}
	if _, ok := os.LookupEnv("PROXY_TIMEOUT"); ok {
		c.Timeout = fromEnv.Timeout
	}
	c.AllowedOrigins = normalizeOrigins(c.AllowedOrigins)
	return c, nil
}
