package core

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	PermissiveMaxLength = 500
	StrictMaxLength     = 45
)

// Sanitizer reduces arbitrary text to the commit summary charset
// [a-z0-9 .:_/]. MaxLength <= 0 means PermissiveMaxLength.
type Sanitizer struct {
	MaxLength int
}

// Sanitize applies the permissive sanitizer.
func Sanitize(raw string) (string, error) {
	return Sanitizer{}.Sanitize(raw)
}

func (s Sanitizer) limit() int {
	if s.MaxLength <= 0 {
		return PermissiveMaxLength
	}
	return s.MaxLength
}

func (s Sanitizer) Sanitize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &SanitizationError{Msg: "commit message cannot be empty"}
	}

	filtered := strings.Map(func(r rune) rune {
		if allowedRune(r) {
			return r
		}
		return -1
	}, strings.ToLower(raw))
	msg := strings.Join(strings.Fields(filtered), " ")

	if msg == "" {
		return "", &SanitizationError{Msg: "commit message contains no valid characters"}
	}
	if !strings.ContainsFunc(msg, unicode.IsLetter) {
		return "", &SanitizationError{Msg: "commit message must contain at least one letter"}
	}
	if n := len(msg); n > s.limit() {
		return "", &SanitizationError{Msg: fmt.Sprintf("commit message too long after sanitization (%d > %d)", n, s.limit())}
	}
	return msg, nil
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case ' ', '.', ':', '_', '/':
		return true
	}
	return false
}
