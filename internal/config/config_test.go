package config

import (
	"codelibre/internal/core"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func ptrStr(s string) *string { return &s }
func ptrBool(b bool) *bool    { return &b }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func load(t *testing.T, dir string, env []string, o *Overrides) (*Config, error) {
	t.Helper()
	return Load(context.Background(), LoadOptions{
		RepoRoot:         dir,
		GlobalConfigPath: filepath.Join(dir, "global.toml"),
		Env:              env,
		Overrides:        o,
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	if c.TokenLimit != _defaultTokenLimit {
		t.Errorf("TokenLimit = %d, want %d", c.TokenLimit, _defaultTokenLimit)
	}
	if c.MaxDiffChars != core.DefaultMaxDiffChars {
		t.Errorf("MaxDiffChars = %d, want %d", c.MaxDiffChars, core.DefaultMaxDiffChars)
	}
	if c.MaxAttempts != 3 || c.RetryBaseDelay != 2*time.Second {
		t.Errorf("retry = %d/%v, want 3/2s", c.MaxAttempts, c.RetryBaseDelay)
	}
	if c.GitTimeout != 30*time.Second {
		t.Errorf("GitTimeout = %v, want 30s", c.GitTimeout)
	}
	if c.MessageLimit() != core.PermissiveMaxLength {
		t.Errorf("MessageLimit() = %d, want %d", c.MessageLimit(), core.PermissiveMaxLength)
	}
}

func TestLoad_missingKey(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := load(t, dir, []string{}, nil)
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("err = %v, want ErrConfigurationMissing", err)
	}
	var missing *MissingError
	if !errors.As(err, &missing) || missing.Key != envAnthropicKey {
		t.Errorf("MissingError = %+v, want key %s", missing, envAnthropicKey)
	}
}

func TestLoad_detectsProviderFromKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		env  []string
		want string
	}{
		{"anthropic", []string{"ANTHROPIC_API_KEY=a"}, ProviderAnthropic},
		{"openai", []string{"OPENAI_API_KEY=o"}, ProviderOpenAI},
		{"gemini", []string{"GEMINI_API_KEY=g"}, ProviderGemini},
		{"anthropic first", []string{"OPENAI_API_KEY=o", "ANTHROPIC_API_KEY=a"}, ProviderAnthropic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := load(t, t.TempDir(), tt.env, nil)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Provider != tt.want {
				t.Errorf("Provider = %q, want %q", cfg.Provider, tt.want)
			}
			if cfg.APIKey == "" {
				t.Error("APIKey is empty")
			}
		})
	}
}

func TestLoad_explicitProviderWithoutKey(t *testing.T) {
	t.Parallel()
	_, err := load(t, t.TempDir(), []string{"ANTHROPIC_API_KEY=a"}, &Overrides{Provider: ptrStr("gemini")})
	var missing *MissingError
	if !errors.As(err, &missing) || missing.Provider != ProviderGemini {
		t.Fatalf("err = %v, want MissingError for gemini", err)
	}
}

func TestLoad_unknownProvider(t *testing.T) {
	t.Parallel()
	_, err := load(t, t.TempDir(), []string{"CODELIBRE_PROVIDER=mistral"}, nil)
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestLoad_precedence(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "global.toml"), `
model = "global-model"
token_limit = 1000
max_diff_chars = 100
git_timeout = "5s"
`)
	writeFile(t, filepath.Join(dir, ".codelibre.yaml"), `
model: repo-model
token_limit: 2000
retry_base_delay: 1s
`)
	env := []string{"ANTHROPIC_API_KEY=k", "DEFAULT_TOKEN_LIMIT=3000"}

	cfg, err := load(t, dir, env, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "repo-model" {
		t.Errorf("Model = %q, want repo-model", cfg.Model)
	}
	if cfg.TokenLimit != 3000 {
		t.Errorf("TokenLimit = %d, want 3000 from env", cfg.TokenLimit)
	}
	if cfg.MaxDiffChars != 100 {
		t.Errorf("MaxDiffChars = %d, want 100 from global", cfg.MaxDiffChars)
	}
	if cfg.GitTimeout != 5*time.Second || cfg.RetryBaseDelay != time.Second {
		t.Errorf("durations = %v/%v, want 5s/1s", cfg.GitTimeout, cfg.RetryBaseDelay)
	}

	cfg, err = load(t, dir, env, &Overrides{Model: ptrStr("flag-model"), Strict: ptrBool(true)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "flag-model" {
		t.Errorf("Model = %q, want flag-model", cfg.Model)
	}
	if cfg.MessageLimit() != core.StrictMaxLength {
		t.Errorf("MessageLimit() = %d, want %d", cfg.MessageLimit(), core.StrictMaxLength)
	}
}

func TestLoad_repoTomlWinsOverYaml(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".codelibre.toml"), `model = "from-toml"`)
	writeFile(t, filepath.Join(dir, ".codelibre.yaml"), `model: from-yaml`)
	cfg, err := load(t, dir, []string{"OPENAI_API_KEY=k"}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "from-toml" {
		t.Errorf("Model = %q, want from-toml", cfg.Model)
	}
}

func TestLoad_invalidInputs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		env  []string
	}{
		{"bad toml", `model = `, nil},
		{"bad temperature in file", `temperature = 5.0`, nil},
		{"bad duration in file", `git_timeout = "soon"`, nil},
		{"bad int env", ``, []string{"DEFAULT_TOKEN_LIMIT=lots"}},
		{"bad temperature env", ``, []string{"CODELIBRE_TEMPERATURE=-1"}},
		{"bad duration env", ``, []string{"CODELIBRE_RETRY_BASE_DELAY=x"}},
		{"zero diff limit env", ``, []string{"CODELIBRE_MAX_DIFF_CHARS=0"}},
		{"zero attempts env", ``, []string{"CODELIBRE_MAX_ATTEMPTS=0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, filepath.Join(dir, ".codelibre.toml"), tt.file)
			}
			env := append([]string{"ANTHROPIC_API_KEY=k"}, tt.env...)
			if _, err := load(t, dir, env, nil); err == nil {
				t.Error("Load returned nil error")
			}
		})
	}
}

func TestLoad_debugAndPrompt(t *testing.T) {
	t.Parallel()
	cfg, err := load(t, t.TempDir(), []string{"ANTHROPIC_API_KEY=k", "DEBUG=1", "CODELIBRE_SYSTEM_PROMPT=be brief"}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.Prompt() != "be brief" {
		t.Errorf("Prompt() = %q, want %q", cfg.Prompt(), "be brief")
	}
	if DefaultConfig().Prompt() != core.SystemPrompt(core.StrictMaxLength) {
		t.Error("default Prompt() should be the built-in system prompt")
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30s", 30 * time.Second, true},
		{"45", 45 * time.Second, true},
		{"", 0, false},
		{"-3", 0, false},
		{"later", 0, false},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseDuration(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
