package llm

import "fmt"

// New creates a Proposer for the configured provider, wrapped with retry
// behavior. Returns nil (no error) for provider "none": a nil Proposer tells
// the pipeline to run in rule-only mode.
func New(cfg *Config) (Proposer, error) {
	var base Proposer

	switch cfg.Provider {
	case "none":
		return nil, nil
	case "openai":
		base = NewOpenAIProposer(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "anthropic":
		base = NewAnthropicProposer(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return WithRetry(base, cfg.MaxRetries, cfg.TimeoutDuration()), nil
}
