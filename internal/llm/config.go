package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds proposal collaborator settings. Provider "none" disables the
// collaborator entirely; the pipeline then runs rule-only and every result
// is escalated for review.
type Config struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Timeout    string `toml:"timeout"`
	MaxRetries int    `toml:"max_retries"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    string
	MaxRetries string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = "none"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func (c *Config) loadEnv(env *Env) {
	setString := func(envVar string, dst *string) {
		if envVar == "" {
			return
		}
		if v := os.Getenv(envVar); v != "" {
			*dst = v
		}
	}

	setString(env.Provider, &c.Provider)
	setString(env.Model, &c.Model)
	setString(env.APIKey, &c.APIKey)
	setString(env.BaseURL, &c.BaseURL)
	setString(env.Timeout, &c.Timeout)

	if env.MaxRetries != "" {
		if v := os.Getenv(env.MaxRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxRetries = n
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case "none":
	case "openai", "anthropic":
		if c.Model == "" {
			return fmt.Errorf("model required for provider %s", c.Provider)
		}
		if c.APIKey == "" {
			return fmt.Errorf("api_key required for provider %s", c.Provider)
		}
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}

	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	return nil
}
