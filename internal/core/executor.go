package core

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 500
)

type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Provider is a chat completion backend. Implementations return
// *ProviderError for API failures so overloads can be classified.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Asker is the single-turn contract the conversation loop depends on.
type Asker interface {
	Ask(ctx context.Context, history []Message, systemPrompt string) (string, error)
}

type ExecutorOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Retry       RetryPolicy
}

type Executor struct {
	provider Provider
	opts     ExecutorOptions
}

func NewExecutor(provider Provider, opts ExecutorOptions) *Executor {
	if provider == nil {
		panic("provider cannot be nil")
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxOutputTokens
	}
	if opts.Retry.MaxAttempts == 0 {
		retry := DefaultRetryPolicy()
		retry.OnRetry = opts.Retry.OnRetry
		opts.Retry = retry
	}
	return &Executor{provider: provider, opts: opts}
}

// Ask sends the history, prefixed with the system prompt when it carries no
// system message, and returns only the reply text. history is not modified.
func (e *Executor) Ask(ctx context.Context, history []Message, systemPrompt string) (string, error) {
	if len(history) == 0 {
		return "", ErrEmptyHistory
	}

	req := ChatRequest{
		Model:       e.opts.Model,
		Messages:    WithSystemPrompt(history, systemPrompt),
		Temperature: e.opts.Temperature,
		MaxTokens:   e.opts.MaxTokens,
	}

	log.Debug().
		Str("provider", e.provider.Name()).
		Int("messages", len(req.Messages)).
		Int("approx_tokens", EstimateTokens(req.Messages)).
		Msg("Asking model")

	var reply string
	err := e.opts.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		reply, err = e.provider.Chat(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}
