package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProposer implements Proposer against the OpenAI chat completion API
// (or any OpenAI-compatible endpoint via base_url).
type OpenAIProposer struct {
	client *openai.Client
	model  string
}

// NewOpenAIProposer creates an OpenAI-backed proposer. An empty baseURL uses
// the default API endpoint.
func NewOpenAIProposer(apiKey, model, baseURL string) *OpenAIProposer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIProposer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProposer) Propose(ctx context.Context, req Request) (*Proposal, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(req),
			},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformed)
	}

	return parseProposal(resp.Choices[0].Message.Content)
}
