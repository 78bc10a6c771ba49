package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"shellsense/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

func newTestClient(url string) *OpenAIClient {
	c := NewOpenAIClientWithConfig(OpenAIConfig{
		APIKey:      "test-key",
		URL:         url,
		Model:       "test-model",
		MaxTokens:   100,
		Temperature: 0.5,
		Timeout:     5 * time.Second,
	})
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestOpenAIClient_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body OpenAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		assert.Equal(t, 100, body.MaxTokens)
		assert.Equal(t, 0.5, body.Temperature)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "be brief", body.Messages[0].Content)
		assert.Equal(t, "user", body.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"message":{"role":"assistant","content":"  Shoot the dealer.  "}}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).CompleteWithSystem(context.Background(), "be brief", "what now?")
	require.NoError(t, err)
	assert.Equal(t, "Shoot the dealer.", got)
}

func TestOpenAIClient_FallbackFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"content field", `{"content":"from content"}`, "from content"},
		{"text field", `{"text":"from text"}`, "from text"},
		{"empty choice falls through", `{"choices":[{"message":{"content":""}}],"text":"tail"}`, "tail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got, err := newTestClient(server.URL).CompleteWithSystem(context.Background(), "s", "u")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenAIClient_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CompleteWithSystem(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CompleteWithSystem(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrMalformedReply)
}

func TestOpenAIClient_RetryOnRateLimit(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).CompleteWithSystem(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestOpenAIClient_RateLimitExhausted(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CompleteWithSystem(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(4), atomic.LoadInt32(&attempts), "one try plus three retries")
}

func TestOpenAIClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, ErrUnauthorized, "bad key"},
		{"server", http.StatusBadGateway, `upstream down`, ErrServer, "upstream down"},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"model not found"}}`, nil, "model not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CompleteWithSystem(context.Background(), "s", "u")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "no retry")
		})
	}
}

func TestOpenAIClient_NotConfigured(t *testing.T) {
	c := NewOpenAIClientWithConfig(OpenAIConfig{URL: config.DefaultAPIURL})
	_, err := c.CompleteWithSystem(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrNotConfigured)

	c = NewOpenAIClientWithConfig(OpenAIConfig{APIKey: "k"})
	_, err = c.CompleteWithSystem(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIClient_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).CompleteWithSystem(ctx, "s", "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestApiMessage_Truncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	assert.Len(t, apiMessage([]byte(long)), 200)
}

func TestNewClient(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		cfg.APIKey = "k"
		cfg.Model = ""
		c, err := NewClient(cfg)
		require.NoError(t, err)
		named, ok := c.(Named)
		require.True(t, ok)
		assert.Equal(t, "openai", named.Provider())
		assert.Equal(t, config.DefaultModel, named.Model())
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		_, err := NewClient(cfg)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		cfg.APIKey = "k"
		cfg.Provider = "smoke-signals"
		_, err := NewClient(cfg)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
