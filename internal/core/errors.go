package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySystemPrompt = errors.New("system prompt cannot be empty")
	ErrEmptyDiff         = errors.New("diff cannot be empty")
	ErrEmptyHistory      = errors.New("conversation history cannot be empty")

	ErrSanitization      = errors.New("commit message failed sanitization")
	ErrExitRequested     = errors.New("exit requested by user")
	ErrInterrupted       = errors.New("interrupted by user")
	ErrTransientOverload = errors.New("provider temporarily overloaded")
	ErrEmptyResponse     = errors.New("model returned an empty response")
	ErrTurnLimit         = errors.New("conversation turn limit reached")
)

type SanitizationError struct {
	Msg string
}

func (e *SanitizationError) Error() string {
	return fmt.Sprintf("sanitization failed: %s", e.Msg)
}

func (e *SanitizationError) Is(target error) bool {
	return target == ErrSanitization
}

type DiffTooLargeError struct {
	Size  int
	Limit int
}

func (e *DiffTooLargeError) Error() string {
	return fmt.Sprintf("staged diff is too large: %d characters (limit %d)", e.Size, e.Limit)
}

type ContextTooLargeError struct {
	Tokens int
	Limit  int
}

func (e *ContextTooLargeError) Error() string {
	return fmt.Sprintf("conversation exceeds token budget: ~%d tokens (limit %d)", e.Tokens, e.Limit)
}

// ProviderError is returned by chat providers for failed API calls.
type ProviderError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Type != "" {
		return fmt.Sprintf("%s API error: status=%d type=%s: %s", e.Provider, e.StatusCode, e.Type, msg)
	}
	return fmt.Sprintf("%s API error: status=%d: %s", e.Provider, e.StatusCode, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is reports provider overload conditions as ErrTransientOverload.
func (e *ProviderError) Is(target error) bool {
	return target == ErrTransientOverload && e.Overloaded()
}

func (e *ProviderError) Overloaded() bool {
	switch e.StatusCode {
	case 529, 503:
		return true
	}
	switch e.Type {
	case "overloaded_error", "UNAVAILABLE":
		return true
	}
	return false
}

type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}
