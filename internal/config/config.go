// Package config resolves codelibre settings with a fixed precedence:
// flags > environment > repo file > global file > defaults.
//
// Files:
//   - Repo: <repo>/.codelibre.toml or <repo>/.codelibre.yaml
//   - Global: <user config dir>/codelibre/config.toml or config.yaml
//
// API keys are read from the environment only.
package config

import (
	"codelibre/internal/core"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

const (
	envProvider        = "CODELIBRE_PROVIDER"
	envModel           = "DEFAULT_MODEL"
	envTokenLimit      = "DEFAULT_TOKEN_LIMIT"
	envAnthropicKey    = "ANTHROPIC_API_KEY"
	envOpenAIKey       = "OPENAI_API_KEY"
	envGeminiKey       = "GEMINI_API_KEY"
	envOpenAIBaseURL   = "OPENAI_BASE_URL"
	envTemperature     = "CODELIBRE_TEMPERATURE"
	envMaxOutputTokens = "CODELIBRE_MAX_OUTPUT_TOKENS"
	envMaxDiffChars    = "CODELIBRE_MAX_DIFF_CHARS"
	envMaxMessageChars = "CODELIBRE_MAX_MESSAGE_CHARS"
	envMaxAttempts     = "CODELIBRE_MAX_ATTEMPTS"
	envRetryBaseDelay  = "CODELIBRE_RETRY_BASE_DELAY"
	envGitTimeout      = "CODELIBRE_GIT_TIMEOUT"
	envSystemPrompt    = "CODELIBRE_SYSTEM_PROMPT"
	envDebug           = "DEBUG"
)

const (
	_defaultTokenLimit = 10000
	_defaultGitTimeout = 30 * time.Second
)

// providerKeyEnv lists providers in auto-detection order.
var providerKeyEnv = []struct {
	provider string
	env      string
}{
	{ProviderAnthropic, envAnthropicKey},
	{ProviderOpenAI, envOpenAIKey},
	{ProviderGemini, envGeminiKey},
}

// Config is resolved once per invocation and passed by value.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string

	// TokenLimit is the estimated-token budget for the whole conversation.
	TokenLimit      int
	MaxOutputTokens int
	Temperature     float64
	MaxDiffChars    int
	// MaxMessageChars is the sanitizer ceiling; Strict forces core.StrictMaxLength.
	MaxMessageChars int
	Strict          bool

	MaxAttempts    int
	RetryBaseDelay time.Duration
	GitTimeout     time.Duration

	SystemPrompt string
	Debug        bool
}

// Overrides carries flag values. Non-nil means the flag was set.
type Overrides struct {
	Provider *string
	Model    *string
	Strict   *bool
	Debug    *bool
}

type LoadOptions struct {
	// RepoRoot enables the repo file lookup when set.
	RepoRoot string
	// GlobalConfigPath replaces the user config dir lookup when set.
	GlobalConfigPath string
	// Env is a key=value slice; nil means os.Environ().
	Env       []string
	Overrides *Overrides
}

func DefaultConfig() Config {
	return Config{
		TokenLimit:      _defaultTokenLimit,
		MaxOutputTokens: core.DefaultMaxOutputTokens,
		Temperature:     core.DefaultTemperature,
		MaxDiffChars:    core.DefaultMaxDiffChars,
		MaxMessageChars: core.PermissiveMaxLength,
		MaxAttempts:     core.DefaultMaxAttempts,
		RetryBaseDelay:  core.DefaultBaseDelay,
		GitTimeout:      _defaultGitTimeout,
	}
}

// MessageLimit is the ceiling handed to the sanitizer.
func (c Config) MessageLimit() int {
	if c.Strict {
		return core.StrictMaxLength
	}
	if c.MaxMessageChars <= 0 {
		return core.PermissiveMaxLength
	}
	return c.MaxMessageChars
}

// Prompt returns the configured system prompt or the built-in one.
func (c Config) Prompt() string {
	if strings.TrimSpace(c.SystemPrompt) != "" {
		return c.SystemPrompt
	}
	return core.SystemPrompt(core.StrictMaxLength)
}

// Load builds a Config. Missing files are skipped; malformed files, bad
// env values, or a missing API key are errors.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPaths, err := globalCandidates(opts.GlobalConfigPath)
	if err != nil {
		return nil, err
	}
	if err := mergeFirst(&cfg, globalPaths); err != nil {
		return nil, err
	}
	if opts.RepoRoot != "" {
		repoPaths := []string{
			filepath.Join(opts.RepoRoot, ".codelibre.toml"),
			filepath.Join(opts.RepoRoot, ".codelibre.yaml"),
			filepath.Join(opts.RepoRoot, ".codelibre.yml"),
		}
		if err := mergeFirst(&cfg, repoPaths); err != nil {
			return nil, err
		}
	}

	vals := envMap(opts.Env)
	if err := applyEnv(&cfg, vals); err != nil {
		return nil, err
	}
	applyOverrides(&cfg, opts.Overrides)

	if err := resolveProvider(&cfg, vals); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func globalCandidates(explicit string) ([]string, error) {
	if explicit != "" {
		return []string{explicit}, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine config directory: %w", err)
	}
	base := filepath.Join(dir, "codelibre")
	return []string{
		filepath.Join(base, "config.toml"),
		filepath.Join(base, "config.yaml"),
		filepath.Join(base, "config.yml"),
	}, nil
}

// mergeFirst merges the first existing path.
func mergeFirst(cfg *Config, paths []string) error {
	for _, p := range paths {
		ok, err := mergeFile(cfg, p)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return nil
}

func envMap(env []string) map[string]string {
	vals := make(map[string]string, len(env))
	for _, e := range env {
		idx := strings.Index(e, "=")
		if idx <= 0 {
			continue
		}
		vals[strings.TrimSpace(e[:idx])] = strings.TrimSpace(e[idx+1:])
	}
	return vals
}

func applyEnv(cfg *Config, vals map[string]string) error {
	if v := vals[envProvider]; v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	if v := vals[envModel]; v != "" {
		cfg.Model = v
	}
	if v := vals[envSystemPrompt]; v != "" {
		cfg.SystemPrompt = v
	}

	// A zero token limit disables truncation; every other limit must be positive.
	ints := []struct {
		key string
		dst *int
		min int
	}{
		{envTokenLimit, &cfg.TokenLimit, 0},
		{envMaxOutputTokens, &cfg.MaxOutputTokens, 1},
		{envMaxDiffChars, &cfg.MaxDiffChars, 1},
		{envMaxMessageChars, &cfg.MaxMessageChars, 1},
		{envMaxAttempts, &cfg.MaxAttempts, 1},
	}
	for _, f := range ints {
		v := vals[f.key]
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < f.min {
			return &InvalidValueError{Key: f.key, Value: v, Err: err}
		}
		*f.dst = n
	}

	if v := vals[envTemperature]; v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 2 {
			return &InvalidValueError{Key: envTemperature, Value: v, Err: err}
		}
		cfg.Temperature = t
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{envRetryBaseDelay, &cfg.RetryBaseDelay},
		{envGitTimeout, &cfg.GitTimeout},
	}
	for _, f := range durations {
		v := vals[f.key]
		if v == "" {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return &InvalidValueError{Key: f.key, Value: v, Err: err}
		}
		*f.dst = d
	}

	if v, ok := vals[envDebug]; ok && v != "" {
		cfg.Debug = parseBool(v)
	}
	return nil
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o == nil {
		return
	}
	if o.Provider != nil && *o.Provider != "" {
		cfg.Provider = strings.ToLower(*o.Provider)
	}
	if o.Model != nil && *o.Model != "" {
		cfg.Model = *o.Model
	}
	if o.Strict != nil {
		cfg.Strict = *o.Strict
	}
	if o.Debug != nil && *o.Debug {
		cfg.Debug = true
	}
}

// resolveProvider picks the provider (explicit or first key found) and its key.
func resolveProvider(cfg *Config, vals map[string]string) error {
	if cfg.Provider == "" {
		for _, p := range providerKeyEnv {
			if vals[p.env] != "" {
				cfg.Provider = p.provider
				break
			}
		}
		if cfg.Provider == "" {
			return &MissingError{Provider: ProviderAnthropic, Key: envAnthropicKey}
		}
	}
	for _, p := range providerKeyEnv {
		if p.provider != cfg.Provider {
			continue
		}
		cfg.APIKey = vals[p.env]
		if cfg.APIKey == "" {
			return &MissingError{Provider: p.provider, Key: p.env}
		}
		if v := vals[envOpenAIBaseURL]; v != "" && p.provider == ProviderOpenAI {
			cfg.BaseURL = v
		}
		return nil
	}
	return &InvalidValueError{Key: envProvider, Value: cfg.Provider, Err: ErrUnknownProvider}
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if n < 0 {
		return 0, errors.New("negative duration")
	}
	return time.Duration(n) * time.Second, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
