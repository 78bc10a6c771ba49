package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shellsense/internal/config"
	"shellsense/internal/logging"
)

// OpenAIConfig holds configuration for an OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey      string
	URL         string // full chat-completions endpoint
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// OpenAIClient talks to any endpoint speaking the OpenAI chat-completions format.
type OpenAIClient struct {
	apiKey      string
	url         string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	maxRetries  int
	backoff     func(attempt int) time.Duration
}

// NewOpenAIClientWithConfig creates a client with custom config.
func NewOpenAIClientWithConfig(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = config.DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultTimeout
	}
	return &OpenAIClient{
		apiKey:      cfg.APIKey,
		url:         cfg.URL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxRetries:  3,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
	}
}

// Provider implements Named.
func (c *OpenAIClient) Provider() string { return "openai" }

// Model implements Named.
func (c *OpenAIClient) Model() string { return c.model }

// OpenAIMessage represents a message.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIRequest represents the chat-completions request.
type OpenAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

// OpenAIResponse represents the chat-completions response. Content and Text cover
// providers that answer with a flat body instead of choices.
type OpenAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Content string `json:"content"`
	Text    string `json:"text"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// text extracts the reply, preferring choices[0].message.content.
func (r *OpenAIResponse) text() string {
	if len(r.Choices) > 0 && r.Choices[0].Message.Content != "" {
		return r.Choices[0].Message.Content
	}
	if r.Content != "" {
		return r.Content
	}
	return r.Text
}

// CompleteWithSystem sends a system and user message and returns the reply text.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	log := logging.Get(logging.CategoryAPI)
	startTime := time.Now()
	log.Debugw("chat completion request", "url", c.url, "model", c.model,
		"system_len", len(systemPrompt), "user_len", len(userPrompt))

	if c.apiKey == "" {
		return "", fmt.Errorf("%w: API key not configured", ErrNotConfigured)
	}
	if c.url == "" {
		return "", fmt.Errorf("%w: API URL not configured", ErrNotConfigured)
	}

	reqBody := OpenAIRequest{
		Model: c.model,
		Messages: []OpenAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff(i)):
			}
		}

		text, retry, err := c.do(ctx, jsonData)
		if err == nil {
			log.Infow("chat completion done", "model", c.model, "elapsed", time.Since(startTime), "response_len", len(text))
			return text, nil
		}
		if !retry {
			log.Warnw("chat completion failed", "model", c.model, "error", err)
			return "", err
		}
		lastErr = err
	}

	log.Warnw("chat completion retries exhausted", "model", c.model, "elapsed", time.Since(startTime), "error", lastErr)
	return "", lastErr
}

// do performs one attempt. retry reports whether the failure is worth another attempt.
func (c *OpenAIClient) do(ctx context.Context, body []byte) (text string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, fmt.Errorf("request failed: %w", ctx.Err())
		}
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", true, fmt.Errorf("%w (429)", ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized:
		return "", false, fmt.Errorf("%w (401): %s", ErrUnauthorized, apiMessage(data))
	case resp.StatusCode >= 500:
		return "", false, fmt.Errorf("%w (%d): %s", ErrServer, resp.StatusCode, apiMessage(data))
	case resp.StatusCode != http.StatusOK:
		return "", false, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, apiMessage(data))
	}

	var parsed OpenAIResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("API error: %s", parsed.Error.Message)
	}

	text = strings.TrimSpace(parsed.text())
	if text == "" {
		return "", false, ErrEmptyResponse
	}
	return text, false, nil
}

// apiMessage returns error.message from a JSON error body, or the first 200 bytes of it.
func apiMessage(body []byte) string {
	var parsed OpenAIResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
