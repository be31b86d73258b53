// Package config loads client settings from an optional YAML file and
// SB_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/smartbridge/sbclient"
	"github.com/vitalvas/smartbridge/sbsig"
)

var (
	ErrNoEndpoint     = errors.New("config: site_url or endpoint is required")
	ErrNoAPIKey       = errors.New("config: api_key is required")
	ErrNoSecretKey    = errors.New("config: secret_key is required")
	ErrBadTimeout     = errors.New("config: timeout must be positive")
	ErrBadConcurrency = errors.New("config: concurrency must be at least 1")
)

// DefaultConcurrency is the number of links created in parallel.
const DefaultConcurrency = 4

// Config holds the client settings. Environment variables take precedence
// over the file.
type Config struct {
	// SiteURL is the site root; the endpoint is derived from it unless
	// Endpoint is set.
	SiteURL  string `yaml:"site_url" env:"SB_SITE_URL"`
	Endpoint string `yaml:"endpoint" env:"SB_ENDPOINT"`

	APIKey    string `yaml:"api_key" env:"SB_API_KEY"`
	SecretKey string `yaml:"secret_key" env:"SB_SECRET_KEY"`

	Timeout     time.Duration `yaml:"timeout" env:"SB_TIMEOUT"`
	UserAgent   string        `yaml:"user_agent" env:"SB_USER_AGENT"`
	Concurrency int           `yaml:"concurrency" env:"SB_CONCURRENCY"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Timeout:     sbclient.DefaultTimeout,
		UserAgent:   sbsig.DefaultUserAgent,
		Concurrency: DefaultConcurrency,
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read is Load without validation, for callers that apply further
// overrides first.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		defer f.Close()

		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	return dec.Decode(c)
}

// Validate reports the first missing or out of range setting.
func (c *Config) Validate() error {
	switch {
	case c.SiteURL == "" && c.Endpoint == "":
		return ErrNoEndpoint
	case c.APIKey == "":
		return ErrNoAPIKey
	case c.SecretKey == "":
		return ErrNoSecretKey
	case c.Timeout <= 0:
		return ErrBadTimeout
	case c.Concurrency < 1:
		return ErrBadConcurrency
	}

	return nil
}

// EndpointURL returns Endpoint, or the endpoint derived from SiteURL.
func (c *Config) EndpointURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}

	return sbclient.EndpointFromSite(c.SiteURL)
}

// Credentials returns the signing credentials.
func (c *Config) Credentials() sbsig.Credentials {
	return sbsig.Credentials{
		APIKey: c.APIKey,
		Secret: sbsig.NewSecret(c.SecretKey),
	}
}

// ClientConfig converts the settings for sbclient.New.
func (c *Config) ClientConfig() sbclient.Config {
	return sbclient.Config{
		Endpoint:    c.EndpointURL(),
		Credentials: c.Credentials(),
		Timeout:     c.Timeout,
		UserAgent:   c.UserAgent,
	}
}
