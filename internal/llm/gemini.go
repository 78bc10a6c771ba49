package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shellsense/internal/config"
	"shellsense/internal/logging"

	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// GeminiClient implements Client using Google's genai SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultGemini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultTimeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// Provider implements Named.
func (c *GeminiClient) Provider() string { return "gemini" }

// Model implements Named.
func (c *GeminiClient) Model() string { return c.model }

// CompleteWithSystem sends the prompts as a system instruction plus one user turn.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := logging.Get(logging.CategoryAPI)
	start := time.Now()

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(c.temperature)),
	}
	if c.maxTokens > 0 {
		genCfg.MaxOutputTokens = int32(c.maxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)},
		genCfg,
	)
	if err != nil {
		log.Warnw("gemini request failed", "model", c.model, "error", err)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	log.Infow("gemini completion done", "model", c.model, "elapsed", time.Since(start), "response_len", len(text))
	return text, nil
}
