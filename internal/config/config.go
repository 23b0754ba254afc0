package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/arbor/internal/classifier"
	"github.com/JaimeStill/arbor/internal/llm"
	"github.com/JaimeStill/arbor/pkg/database"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvArborEnv             = "ARBOR_ENV"
	EnvArborShutdownTimeout = "ARBOR_SHUTDOWN_TIMEOUT"
	EnvArborVersion         = "ARBOR_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "ARBOR_DB_HOST",
	Port:            "ARBOR_DB_PORT",
	Name:            "ARBOR_DB_NAME",
	User:            "ARBOR_DB_USER",
	Password:        "ARBOR_DB_PASSWORD",
	SSLMode:         "ARBOR_DB_SSL_MODE",
	MaxOpenConns:    "ARBOR_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "ARBOR_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "ARBOR_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "ARBOR_DB_CONN_TIMEOUT",
}

var llmEnv = &llm.Env{
	Provider:   "ARBOR_LLM_PROVIDER",
	Model:      "ARBOR_LLM_MODEL",
	APIKey:     "ARBOR_LLM_API_KEY",
	BaseURL:    "ARBOR_LLM_BASE_URL",
	Timeout:    "ARBOR_LLM_TIMEOUT",
	MaxRetries: "ARBOR_LLM_MAX_RETRIES",
}

var classifierEnv = &classifier.Env{
	Threshold:      "ARBOR_CLASSIFIER_THRESHOLD",
	ConflictPolicy: "ARBOR_CLASSIFIER_CONFLICT_POLICY",
	DegradedMargin: "ARBOR_CLASSIFIER_DEGRADED_MARGIN",
	BatchWorkers:   "ARBOR_CLASSIFIER_BATCH_WORKERS",
}

// Config is the root configuration for the Arbor service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	LLM             llm.Config        `toml:"llm"`
	Classifier      classifier.Config `toml:"classifier"`
	API             APIConfig         `toml:"api"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the ARBOR_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvArborEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.LLM.Merge(&overlay.LLM)
	c.Classifier.Merge(&overlay.Classifier)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.LLM.Finalize(llmEnv); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Classifier.Finalize(classifierEnv); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvArborShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvArborVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvArborEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
