package classifier

import (
	"fmt"
	"os"
	"strconv"
)

// Conflict policies for accepted mapping writes.
const (
	PolicyReject         = "reject"
	PolicyLastWriterWins = "last_writer_wins"
)

// Weights controls how the scoring stage combines signal sources. The
// weighted sum is clamped to [0, 1].
type Weights struct {
	Rule      float64 `toml:"rule"`
	LLM       float64 `toml:"llm"`
	Agreement float64 `toml:"agreement"`
}

// Config holds classification pipeline settings.
type Config struct {
	Threshold      float64 `toml:"threshold"`
	ConflictPolicy string  `toml:"conflict_policy"`
	DegradedMargin float64 `toml:"degraded_margin"`
	BatchWorkers   int     `toml:"batch_workers"`
	Weights        Weights `toml:"weights"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Threshold      string
	ConflictPolicy string
	DegradedMargin string
	BatchWorkers   string
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
	if overlay.Threshold != 0 {
		c.Threshold = overlay.Threshold
	}
	if overlay.ConflictPolicy != "" {
		c.ConflictPolicy = overlay.ConflictPolicy
	}
	if overlay.DegradedMargin != 0 {
		c.DegradedMargin = overlay.DegradedMargin
	}
	if overlay.BatchWorkers != 0 {
		c.BatchWorkers = overlay.BatchWorkers
	}
	if overlay.Weights.Rule != 0 {
		c.Weights.Rule = overlay.Weights.Rule
	}
	if overlay.Weights.LLM != 0 {
		c.Weights.LLM = overlay.Weights.LLM
	}
	if overlay.Weights.Agreement != 0 {
		c.Weights.Agreement = overlay.Weights.Agreement
	}
}

func (c *Config) loadDefaults() {
	if c.Threshold == 0 {
		c.Threshold = 0.70
	}
	if c.ConflictPolicy == "" {
		c.ConflictPolicy = PolicyReject
	}
	if c.DegradedMargin == 0 {
		c.DegradedMargin = 0.05
	}
	if c.BatchWorkers == 0 {
		c.BatchWorkers = 4
	}
	if c.Weights == (Weights{}) {
		c.Weights = Weights{Rule: 0.3, LLM: 0.5, Agreement: 0.2}
	}
}

func (c *Config) loadEnv(env *Env) {
	setFloat := func(envVar string, dst *float64) {
		if envVar == "" {
			return
		}
		if v := os.Getenv(envVar); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	setFloat(env.Threshold, &c.Threshold)
	setFloat(env.DegradedMargin, &c.DegradedMargin)

	if env.ConflictPolicy != "" {
		if v := os.Getenv(env.ConflictPolicy); v != "" {
			c.ConflictPolicy = v
		}
	}
	if env.BatchWorkers != "" {
		if v := os.Getenv(env.BatchWorkers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.BatchWorkers = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", c.Threshold)
	}

	switch c.ConflictPolicy {
	case PolicyReject, PolicyLastWriterWins:
	default:
		return fmt.Errorf("unsupported conflict policy: %s", c.ConflictPolicy)
	}

	if c.DegradedMargin < 0 || c.DegradedMargin >= c.Threshold {
		return fmt.Errorf("degraded_margin must be in [0, threshold), got %v", c.DegradedMargin)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("batch_workers must be positive, got %d", c.BatchWorkers)
	}

	if c.Weights.Rule < 0 || c.Weights.LLM < 0 || c.Weights.Agreement < 0 {
		return fmt.Errorf("weights must be non-negative, got %+v", c.Weights)
	}
	total := c.Weights.Rule + c.Weights.LLM + c.Weights.Agreement
	if total <= 0 {
		return fmt.Errorf("weights must sum to a positive value, got %v", total)
	}

	return nil
}
