package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Perplexity defaults.
const (
	DefaultPerplexityBaseURL = "https://api.perplexity.ai"
	DefaultPerplexityModel   = "llama-3.1-sonar-large-128k-online"
)

// PerplexityOptions configures NewPerplexity.
type PerplexityOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
}

// Perplexity queries Perplexity's OpenAI compatible chat endpoint with the
// raw query as the only user message.
type Perplexity struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewPerplexity creates the provider. It is disabled without an API key.
func NewPerplexity(optFns ...func(o *PerplexityOptions)) *Perplexity {
	opts := PerplexityOptions{
		BaseURL:    DefaultPerplexityBaseURL,
		Model:      DefaultPerplexityModel,
		MaxRetries: 2,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithMaxRetries(opts.MaxRetries),
	)
	return &Perplexity{client: &client, model: opts.Model, apiKey: opts.APIKey}
}

// Name implements Provider.
func (p *Perplexity) Name() string { return "Perplexity" }

// Enabled implements Provider.
func (p *Perplexity) Enabled() bool { return p.apiKey != "" }

// Query implements Provider.
func (p *Perplexity) Query(ctx context.Context, q string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(q)},
	})
	if err != nil {
		return "", fmt.Errorf("perplexity api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("perplexity returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
