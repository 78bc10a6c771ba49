package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shellsense/internal/config"
	"shellsense/internal/llm"
	"shellsense/internal/logging"

	"golang.org/x/sync/singleflight"
)

// ClientFactory builds an llm.Client for one set of settings.
type ClientFactory func(config.LLMConfig) (llm.Client, error)

// Advisor fetches remotely phrased advice.
type Advisor struct {
	newClient ClientFactory
	group     singleflight.Group
}

// NewAdvisor returns an Advisor backed by llm.NewClient.
func NewAdvisor() *Advisor {
	return NewAdvisorWithFactory(llm.NewClient)
}

// NewAdvisorWithFactory returns an Advisor that builds clients with f.
func NewAdvisorWithFactory(f ClientFactory) *Advisor {
	return &Advisor{newClient: f}
}

// Reply is one piece of remote advice and who produced it.
type Reply struct {
	Text     string
	Provider string
	Model    string
}

// Remote asks the configured model for advice on s. Settings are passed per
// call so a model or prompt change takes effect on the next request.
// Identical concurrent requests share one upstream call.
func (a *Advisor) Remote(ctx context.Context, s GameState, settings config.LLMConfig) (string, error) {
	r, err := a.RemoteReply(ctx, s, settings)
	return r.Text, err
}

// RemoteReply is Remote plus the provider and model the client reports
// through llm.Named, falling back to settings for clients that do not.
func (a *Advisor) RemoteReply(ctx context.Context, s GameState, settings config.LLMConfig) (Reply, error) {
	system := SystemPrompt()
	user := UserPrompt(s, settings.CustomPrompt)
	key := strings.Join([]string{settings.Provider, settings.APIURL, settings.ModelOrDefault(), user}, "\x00")

	log := logging.Get(logging.CategoryAdvice)
	log.Debugw("remote advice requested",
		"provider", settings.Provider,
		"model", settings.ModelOrDefault(),
		"remaining", s.Remaining(),
		"known", len(s.Known),
		"user_prompt_len", len(user))

	ch := a.group.DoChan(key, func() (interface{}, error) {
		client, err := a.newClient(settings)
		if err != nil {
			return Reply{}, err
		}
		reply := Reply{Provider: settings.Provider, Model: settings.ModelOrDefault()}
		if named, ok := client.(llm.Named); ok {
			reply.Provider, reply.Model = named.Provider(), named.Model()
		}

		start := time.Now()
		// Detached from any single caller so a cancelled waiter does not fail the others.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeoutOf(settings))
		defer cancel()
		reply.Text, err = client.CompleteWithSystem(callCtx, system, user)
		if err != nil {
			return Reply{}, err
		}
		log.Infow("remote advice received", "provider", reply.Provider, "model", reply.Model,
			"elapsed", time.Since(start), "len", len(reply.Text))
		return reply, nil
	})

	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			log.Warnw("remote advice failed", "error", res.Err)
			return Reply{}, res.Err
		}
		return res.Val.(Reply), nil
	}
}

func timeoutOf(settings config.LLMConfig) time.Duration {
	c := config.Config{LLM: settings}
	return c.GetLLMTimeout()
}

// Explain turns an advice error into a message fit for the user.
func Explain(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrInvalid), errors.Is(err, llm.ErrNotConfigured):
		return fmt.Sprintf("AI advice is not configured: %v. Set a key with `shellsense config set llm.api_key <key>`.", err)
	case errors.Is(err, llm.ErrUnauthorized):
		return "The API key was rejected. Check llm.api_key."
	case errors.Is(err, llm.ErrRateLimited):
		return "The provider is rate limiting requests. Try again shortly."
	case errors.Is(err, llm.ErrServer):
		return "The provider returned a server error. Try again later."
	case errors.Is(err, llm.ErrEmptyResponse), errors.Is(err, llm.ErrMalformedReply):
		return "The provider returned an unusable reply."
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI request timed out. Raise llm.timeout or try again."
	case errors.Is(err, context.Canceled):
		return "The AI request was cancelled."
	}
	return fmt.Sprintf("AI request failed: %v", err)
}
