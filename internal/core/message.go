package core

import "slices"

type Role string

const (
	RoleSystem    Role = "system"
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation history. Messages are never
// modified after they are appended.
type Message struct {
	Role    Role
	Content string
}

func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func HumanMessage(content string) Message     { return Message{Role: RoleHuman, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// appendMessage returns a new slice; the input backing array is never shared
// with the result so earlier states keep their view of the history.
func appendMessage(history []Message, m Message) []Message {
	out := make([]Message, len(history), len(history)+1)
	copy(out, history)
	return append(out, m)
}

func hasSystemMessage(history []Message) bool {
	return slices.ContainsFunc(history, func(m Message) bool { return m.Role == RoleSystem })
}

func lastRole(history []Message) (Role, bool) {
	if len(history) == 0 {
		return "", false
	}
	return history[len(history)-1].Role, true
}

// WithSystemPrompt returns the history with the system prompt at its head,
// unless the prompt is empty or a system message is already present.
func WithSystemPrompt(history []Message, systemPrompt string) []Message {
	if systemPrompt == "" || hasSystemMessage(history) {
		return slices.Clone(history)
	}
	out := make([]Message, 0, len(history)+1)
	out = append(out, SystemMessage(systemPrompt))
	return append(out, history...)
}
