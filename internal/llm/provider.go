package llm

import (
	"context"
	"fmt"
	"net/http"

	"hospitality-commands/internal/common/config"
)

// Request is one single-turn completion: a fixed instruction, the user's
// raw text and a cap on generated tokens.
type Request struct {
	Model     string
	System    string
	User      string
	MaxTokens int
}

type Response struct {
	Text string
}

// Provider performs exactly one blocking round trip per Complete call.
// Implementations never retry.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Doer is satisfied by *http.Client and the common http client wrapper.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewProvider(ctx context.Context, cfg config.LLMConfig, client Doer) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIProvider(client, cfg.BaseURL, cfg.APIKey), nil
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
