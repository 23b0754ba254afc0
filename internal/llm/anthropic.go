package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProposer implements Proposer against the Anthropic messages API.
type AnthropicProposer struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProposer creates an Anthropic-backed proposer. An empty baseURL
// uses the default API endpoint.
func NewAnthropicProposer(apiKey, model, baseURL string) *AnthropicProposer {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}

	return &AnthropicProposer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (p *AnthropicProposer) Propose(ctx context.Context, req Request) (*Proposal, error) {
	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(p.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(buildPrompt(req)),
				},
			},
		},
		MaxTokens: 1024,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return nil, fmt.Errorf("%w: no response content", ErrMalformed)
	}

	return parseProposal(*resp.Content[0].Text)
}
