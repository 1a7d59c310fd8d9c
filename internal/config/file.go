package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the keys accepted in .codelibre.toml / .codelibre.yaml.
// Pointers distinguish "absent" from zero.
type fileConfig struct {
	Provider        *string  `toml:"provider" yaml:"provider"`
	Model           *string  `toml:"model" yaml:"model"`
	BaseURL         *string  `toml:"base_url" yaml:"base_url"`
	TokenLimit      *int     `toml:"token_limit" yaml:"token_limit"`
	MaxOutputTokens *int     `toml:"max_output_tokens" yaml:"max_output_tokens"`
	Temperature     *float64 `toml:"temperature" yaml:"temperature"`
	MaxDiffChars    *int     `toml:"max_diff_chars" yaml:"max_diff_chars"`
	MaxMessageChars *int     `toml:"max_message_chars" yaml:"max_message_chars"`
	Strict          *bool    `toml:"strict" yaml:"strict"`
	MaxAttempts     *int     `toml:"max_attempts" yaml:"max_attempts"`
	RetryBaseDelay  *string  `toml:"retry_base_delay" yaml:"retry_base_delay"`
	GitTimeout      *string  `toml:"git_timeout" yaml:"git_timeout"`
	SystemPrompt    *string  `toml:"system_prompt" yaml:"system_prompt"`
	Debug           *bool    `toml:"debug" yaml:"debug"`
}

// FileError reports a config file that exists but cannot be used.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("invalid configuration file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// mergeFile reports whether path existed. Only keys present in the file are applied.
func mergeFile(cfg *Config, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &FileError{Path: path, Err: err}
	}

	var file fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		_, err = toml.Decode(string(data), &file)
	}
	if err != nil {
		return true, &FileError{Path: path, Err: err}
	}
	if err := file.apply(cfg); err != nil {
		return true, &FileError{Path: path, Err: err}
	}
	return true, nil
}

func (f fileConfig) apply(cfg *Config) error {
	if f.Provider != nil && *f.Provider != "" {
		cfg.Provider = strings.ToLower(*f.Provider)
	}
	if f.Model != nil && *f.Model != "" {
		cfg.Model = *f.Model
	}
	if f.BaseURL != nil {
		cfg.BaseURL = *f.BaseURL
	}
	if f.TokenLimit != nil && *f.TokenLimit >= 0 {
		cfg.TokenLimit = *f.TokenLimit
	}
	if f.MaxOutputTokens != nil && *f.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = *f.MaxOutputTokens
	}
	if f.Temperature != nil {
		if *f.Temperature < 0 || *f.Temperature > 2 {
			return fmt.Errorf("temperature %v out of range [0, 2]", *f.Temperature)
		}
		cfg.Temperature = *f.Temperature
	}
	if f.MaxDiffChars != nil && *f.MaxDiffChars > 0 {
		cfg.MaxDiffChars = *f.MaxDiffChars
	}
	if f.MaxMessageChars != nil && *f.MaxMessageChars > 0 {
		cfg.MaxMessageChars = *f.MaxMessageChars
	}
	if f.Strict != nil {
		cfg.Strict = *f.Strict
	}
	if f.MaxAttempts != nil && *f.MaxAttempts > 0 {
		cfg.MaxAttempts = *f.MaxAttempts
	}
	if f.RetryBaseDelay != nil && *f.RetryBaseDelay != "" {
		d, err := parseDuration(*f.RetryBaseDelay)
		if err != nil {
			return fmt.Errorf("retry_base_delay: %w", err)
		}
		cfg.RetryBaseDelay = d
	}
	if f.GitTimeout != nil && *f.GitTimeout != "" {
		d, err := parseDuration(*f.GitTimeout)
		if err != nil {
			return fmt.Errorf("git_timeout: %w", err)
		}
		cfg.GitTimeout = d
	}
	if f.SystemPrompt != nil {
		cfg.SystemPrompt = *f.SystemPrompt
	}
	if f.Debug != nil {
		cfg.Debug = *f.Debug
	}
	return nil
}
