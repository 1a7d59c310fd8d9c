package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// Proposal is what the human is shown while the loop awaits input.
type Proposal struct {
	Message string // sanitized candidate, empty when Err is set
	Raw     string
	Err     error
	EditErr error
	Turn    int
}

// Prompter blocks for one line of human input. Returning io.EOF,
// context.Canceled or ErrInterrupted ends the session like an explicit exit.
type Prompter interface {
	Prompt(ctx context.Context, p Proposal) (string, error)
	Edit(ctx context.Context, current string) (string, error)
}

type Decision int

const (
	DecisionAccept Decision = iota
	DecisionExit
	DecisionEdit
	DecisionFeedback
)

// ParseDecision classifies one line of human input.
func ParseDecision(input string) Decision {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "y", "yes":
		return DecisionAccept
	case "n", "no", "exit", "quit":
		return DecisionExit
	case "e", "edit":
		return DecisionEdit
	default:
		return DecisionFeedback
	}
}

type Loop struct {
	Asker     Asker
	Prompter  Prompter
	Sanitizer Sanitizer
	// TokenLimit is the history budget enforced before every model call; 0 disables it.
	TokenLimit int
	// MaxTurns bounds model round-trips; 0 means the human decides.
	MaxTurns int
}

// Step performs exactly one transition.
func (l *Loop) Step(ctx context.Context, s State) (State, error) {
	switch s.Phase {
	case PhaseTruncate:
		return l.truncate(s)
	case PhaseAsk:
		return l.ask(ctx, s)
	case PhaseRecordHistory:
		return RecordHistory(s), nil
	case PhaseAwaitInput:
		return l.awaitInput(ctx, s)
	case PhaseDone:
		return s, nil
	default:
		return s, fmt.Errorf("unknown phase %v", s.Phase)
	}
}

// Cycle advances until the loop is back at PhaseTruncate or done. An exit
// requested by the human ends the session with OutcomeExited instead of an
// error; every other error is returned unchanged.
func (l *Loop) Cycle(ctx context.Context, s State) (State, error) {
	for {
		next, err := l.Step(ctx, s)
		if err != nil {
			if isExit(err) {
				log.Debug().Err(err).Str("phase", s.Phase.String()).Msg("Session ended by user")
				return exited(s), nil
			}
			return s, err
		}
		s = next
		if s.Done() || s.Phase == PhaseTruncate {
			return s, nil
		}
	}
}

// Run drives the session to PhaseDone.
func (l *Loop) Run(ctx context.Context, s State) (State, error) {
	for !s.Done() {
		var err error
		if s, err = l.Cycle(ctx, s); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (l *Loop) truncate(s State) (State, error) {
	if l.MaxTurns > 0 && s.Turns >= l.MaxTurns {
		return s, ErrTurnLimit
	}
	// The budget covers what the executor sends, system prompt included.
	full := WithSystemPrompt(s.Messages, s.SystemPrompt)
	msgs, err := Truncate(full, l.TokenLimit)
	if err != nil {
		return s, err
	}
	if len(full) > len(s.Messages) {
		// Truncate never evicts system messages, so the prepended one is still first.
		msgs = msgs[1:]
	}
	if len(msgs) != len(s.Messages) {
		log.Debug().Int("before", len(s.Messages)).Int("after", len(msgs)).Msg("Truncated conversation history")
	}
	s.Messages = msgs
	s.Phase = PhaseAsk
	return s, nil
}

func (l *Loop) ask(ctx context.Context, s State) (State, error) {
	reply, err := l.Asker.Ask(ctx, s.Messages, s.SystemPrompt)
	if err != nil {
		return s, err
	}
	s.Response = reply
	s.Reiterate = false
	s.Turns++
	s.Phase = PhaseRecordHistory
	return s, nil
}

// RecordHistory appends the pending response as an assistant message unless
// the last message already is one. Without a response the session is done.
func RecordHistory(s State) State {
	if strings.TrimSpace(s.Response) == "" {
		s.Phase = PhaseDone
		s.Outcome = Outcome{Kind: OutcomeNoResponse}
		return s
	}
	if role, ok := lastRole(s.Messages); !ok || role != RoleAssistant {
		s.Messages = appendMessage(s.Messages, AssistantMessage(s.Response))
	}
	s.Phase = PhaseAwaitInput
	return s
}

func (l *Loop) awaitInput(ctx context.Context, s State) (State, error) {
	candidate, cerr := l.Sanitizer.Sanitize(s.Response)
	proposal := Proposal{Message: candidate, Raw: s.Response, Err: cerr, Turn: s.Turns}

	for {
		input, err := l.Prompter.Prompt(ctx, proposal)
		if err != nil {
			return s, err
		}

		switch ParseDecision(input) {
		case DecisionAccept:
			if proposal.Err != nil {
				continue
			}
			return accepted(s, proposal.Message), nil

		case DecisionExit:
			return s, ErrExitRequested

		case DecisionEdit:
			edited, err := l.Prompter.Edit(ctx, proposal.Message)
			if err != nil {
				return s, err
			}
			if strings.TrimSpace(edited) == "" {
				if proposal.Err != nil {
					continue
				}
				return accepted(s, proposal.Message), nil
			}
			msg, err := l.Sanitizer.Sanitize(edited)
			if err != nil {
				proposal.EditErr = err
				continue
			}
			return accepted(s, msg), nil

		default:
			s.Messages = appendMessage(s.Messages, HumanMessage(FeedbackPrompt(strings.TrimSpace(input))))
			s.Response = ""
			s.Reiterate = true
			s.Phase = PhaseTruncate
			return s, nil
		}
	}
}

func accepted(s State, msg string) State {
	s.Phase = PhaseDone
	s.Outcome = Outcome{Kind: OutcomeAccepted, Message: msg}
	return s
}

func exited(s State) State {
	s.Phase = PhaseDone
	s.Outcome = Outcome{Kind: OutcomeExited}
	return s
}

func isExit(err error) bool {
	return errors.Is(err, ErrExitRequested) ||
		errors.Is(err, ErrInterrupted) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled)
}
