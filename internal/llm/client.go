// Package llm contains the outbound text-generation clients used to phrase advice.
package llm

import (
	"context"
	"errors"
	"fmt"

	"shellsense/internal/config"
)

// Client defines the interface for LLM providers.
type Client interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Named is implemented by clients that can report provider and model for journaling.
type Named interface {
	Provider() string
	Model() string
}

var (
	ErrNotConfigured  = errors.New("LLM client not configured")
	ErrUnauthorized   = errors.New("API key rejected")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrServer         = errors.New("LLM server error")
	ErrEmptyResponse  = errors.New("response contained no text")
	ErrMalformedReply = errors.New("could not parse LLM response")
)

// NewClient creates a client for cfg.Provider.
func NewClient(cfg config.LLMConfig) (Client, error) {
	full := config.Config{LLM: cfg}
	if err := full.ValidateLLM(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:      cfg.APIKey,
			URL:         cfg.APIURL,
			Model:       cfg.ModelOrDefault(),
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     full.GetLLMTimeout(),
		}), nil
	case "gemini":
		c, err := NewGeminiClient(context.Background(), GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.ModelOrDefault(),
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     full.GetLLMTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
	}
}
