package core

import (
	"fmt"
	"unicode/utf8"
)

const DefaultMaxDiffChars = 8000

type Phase int

const (
	PhaseTruncate Phase = iota
	PhaseAsk
	PhaseRecordHistory
	PhaseAwaitInput
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseTruncate:
		return "truncate"
	case PhaseAsk:
		return "ask"
	case PhaseRecordHistory:
		return "record_history"
	case PhaseAwaitInput:
		return "await_input"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeAccepted
	OutcomeExited
	OutcomeNoResponse
)

type Outcome struct {
	Kind    OutcomeKind
	Message string
}

// State is the conversation record. Every transition returns a new State;
// Messages is copied whenever it changes.
type State struct {
	Phase        Phase
	Messages     []Message
	SystemPrompt string
	Response     string
	Reiterate    bool
	Turns        int
	Outcome      Outcome
}

func (s State) Done() bool {
	return s.Phase == PhaseDone
}

// Result returns the terminal outcome once the loop reached PhaseDone.
func (s State) Result() (Outcome, bool) {
	if !s.Done() {
		return Outcome{}, false
	}
	return s.Outcome, true
}

// BuildLoop creates the initial state: the diff wrapped in the prompt
// template as the only human message.
func BuildLoop(diff, systemPrompt string) State {
	return State{
		Phase:        PhaseTruncate,
		Messages:     []Message{HumanMessage(DiffPrompt(diff))},
		SystemPrompt: systemPrompt,
	}
}

// NewSession validates the inputs and applies the diff size guard before
// building the initial state. maxDiffChars <= 0 disables the guard.
func NewSession(diff, systemPrompt string, maxDiffChars int) (State, error) {
	if systemPrompt == "" {
		return State{}, ErrEmptySystemPrompt
	}
	if diff == "" {
		return State{}, ErrEmptyDiff
	}
	if n := utf8.RuneCountInString(diff); maxDiffChars > 0 && n > maxDiffChars {
		return State{}, &DiffTooLargeError{Size: n, Limit: maxDiffChars}
	}
	return BuildLoop(diff, systemPrompt), nil
}
