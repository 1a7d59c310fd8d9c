package llm

import (
	"codelibre/internal/clients/anthropic"
	"codelibre/internal/clients/common"
	"codelibre/internal/clients/gemini"
	"codelibre/internal/clients/openai"
	"codelibre/internal/config"
	"codelibre/internal/core"
	"context"
	"fmt"
	"strings"
	"time"
)

const LLMClientTimeout = 60 * time.Second

type LLMProviderType string

const (
	LLMProviderTypeAnthropic LLMProviderType = config.ProviderAnthropic
	LLMProviderTypeOpenAI    LLMProviderType = config.ProviderOpenAI
	LLMProviderTypeGemini    LLMProviderType = config.ProviderGemini
)

func ValidateProvider(provider LLMProviderType) bool {
	switch provider {
	case LLMProviderTypeAnthropic, LLMProviderTypeOpenAI, LLMProviderTypeGemini:
		return true
	default:
		return false
	}
}

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.Config) (core.Provider, error) {
	provider := LLMProviderType(strings.ToLower(cfg.Provider))
	if !ValidateProvider(provider) {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, &config.MissingError{Provider: string(provider), Key: strings.ToUpper(string(provider)) + "_API_KEY"}
	}

	switch provider {
	case LLMProviderTypeAnthropic:
		return anthropic.NewAnthropicClient(anthropic.Options{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: LLMClientTimeout,
		}), nil
	case LLMProviderTypeOpenAI:
		return openai.NewOpenAIClient(openai.Options{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Config:  common.ClientConfig{Timeout: LLMClientTimeout},
		}), nil
	default:
		client, err := gemini.NewGeminiClient(ctx, gemini.Options{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: LLMClientTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// NewExecutor wires a provider into a core.Executor using cfg's sampling
// and retry settings.
func NewExecutor(provider core.Provider, cfg config.Config, onRetry func(attempt int, delay time.Duration, err error)) *core.Executor {
	retry := core.DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RetryBaseDelay > 0 {
		retry.BaseDelay = cfg.RetryBaseDelay
	}
	retry.OnRetry = onRetry

	return core.NewExecutor(provider, core.ExecutorOptions{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
		Retry:       retry,
	})
}
