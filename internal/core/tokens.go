package core

import (
	"strings"
)

const (
	charsPerToken      = 4
	perMessageOverhead = 4
)

// EstimateTokens approximates the token count of a history as one token per
// four characters of whitespace-collapsed text plus a fixed per-message cost.
func EstimateTokens(messages []Message) int {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
	}
	text := collapseWhitespace(b.String())
	return len(text)/charsPerToken + len(messages)*perMessageOverhead
}

// collapseWhitespace keeps leading and trailing runs as a single space.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v' {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate evicts the oldest non-system messages until the estimate fits in
// limit. The newest human message is never evicted, and the remaining
// conversation always starts with a human message. limit <= 0 disables it.
func Truncate(messages []Message, limit int) ([]Message, error) {
	out := make([]Message, len(messages))
	copy(out, messages)
	if limit <= 0 {
		return out, nil
	}

	keep := -1
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == RoleHuman {
			keep = i
			break
		}
	}

	for EstimateTokens(out) > limit {
		idx := oldestEvictable(out, keep)
		if idx < 0 {
			return nil, &ContextTooLargeError{Tokens: EstimateTokens(out), Limit: limit}
		}
		out = append(out[:idx], out[idx+1:]...)
		if idx < keep {
			keep--
		}
		for {
			first := firstConversational(out)
			if first < 0 || out[first].Role != RoleAssistant {
				break
			}
			out = append(out[:first], out[first+1:]...)
			if first < keep {
				keep--
			}
		}
	}
	return out, nil
}

func oldestEvictable(messages []Message, keep int) int {
	for i, m := range messages {
		if m.Role != RoleSystem && i != keep {
			return i
		}
	}
	return -1
}

func firstConversational(messages []Message) int {
	for i, m := range messages {
		if m.Role != RoleSystem {
			return i
		}
	}
	return -1
}
