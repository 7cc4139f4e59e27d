// Package providers wraps the LLM backends an agent can ask for irrigation decisions.
package providers

import (
	"context"
	"fmt"
)

// Client completes a single prompt.
type Client interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

const (
	OpenAIProvider = "openai"
	GeminiProvider = "gemini"

	DefaultOpenAIBaseURL = "https://api.openai.com/v1/"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultGeminiModel   = "gemini-2.0-flash-exp"
)

type ProviderParams struct {
	BaseURL string
	APIKey  string
}

type ProviderOption func(*ProviderParams)

func WithBaseURL(baseURL string) ProviderOption {
	return func(p *ProviderParams) {
		p.BaseURL = baseURL
	}
}

func WithAPIKey(apiKey string) ProviderOption {
	return func(p *ProviderParams) {
		p.APIKey = apiKey
	}
}

// New builds the client for a named provider.
func New(ctx context.Context, name string, opts ...ProviderOption) (Client, error) {
	switch name {
	case OpenAIProvider, "":
		return OpenAi(ctx, opts...), nil
	case GeminiProvider:
		return Gemini(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(name string) string {
	if name == GeminiProvider {
		return DefaultGeminiModel
	}
	return DefaultOpenAIModel
}
