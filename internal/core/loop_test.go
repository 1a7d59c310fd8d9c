package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type fakeAsker struct {
	replies []string
	err     error
	calls   [][]Message
}

func (f *fakeAsker) Ask(_ context.Context, history []Message, _ string) (string, error) {
	f.calls = append(f.calls, history)
	if f.err != nil {
		return "", f.err
	}
	i := len(f.calls) - 1
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "fix: fallback", nil
}

type scriptedPrompter struct {
	inputs    []string
	edits     []string
	err       error
	proposals []Proposal
}

func (s *scriptedPrompter) Prompt(_ context.Context, p Proposal) (string, error) {
	s.proposals = append(s.proposals, p)
	if len(s.inputs) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	in := s.inputs[0]
	s.inputs = s.inputs[1:]
	return in, nil
}

func (s *scriptedPrompter) Edit(_ context.Context, _ string) (string, error) {
	if len(s.edits) == 0 {
		return "", io.EOF
	}
	e := s.edits[0]
	s.edits = s.edits[1:]
	return e, nil
}

func newTestLoop(asker Asker, prompter Prompter) *Loop {
	return &Loop{Asker: asker, Prompter: prompter}
}

func TestBuildLoop(t *testing.T) {
	s := BuildLoop("+added line", "sys")
	if s.Phase != PhaseTruncate {
		t.Errorf("Phase = %v, want truncate", s.Phase)
	}
	if len(s.Messages) != 1 || s.Messages[0].Role != RoleHuman {
		t.Fatalf("Messages = %v", s.Messages)
	}
	if s.Messages[0].Content != "\nDiff:\n+added line" {
		t.Errorf("Content = %q", s.Messages[0].Content)
	}
	if _, ok := s.Result(); ok {
		t.Error("Result available before done")
	}
}

func TestNewSessionDiffGuard(t *testing.T) {
	asker := &fakeAsker{}
	diff := strings.Repeat("x", DefaultMaxDiffChars+1)

	_, err := NewSession(diff, "sys", DefaultMaxDiffChars)
	var tooLarge *DiffTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("err = %v, want DiffTooLargeError", err)
	}
	if tooLarge.Size != DefaultMaxDiffChars+1 || tooLarge.Limit != DefaultMaxDiffChars {
		t.Errorf("got %+v", tooLarge)
	}
	if len(asker.calls) != 0 {
		t.Errorf("asker called %d times", len(asker.calls))
	}

	if _, err := NewSession(strings.Repeat("x", DefaultMaxDiffChars), "sys", DefaultMaxDiffChars); err != nil {
		t.Errorf("diff at limit rejected: %v", err)
	}
	if _, err := NewSession("", "sys", DefaultMaxDiffChars); !errors.Is(err, ErrEmptyDiff) {
		t.Errorf("err = %v, want ErrEmptyDiff", err)
	}
	if _, err := NewSession("diff", "", DefaultMaxDiffChars); !errors.Is(err, ErrEmptySystemPrompt) {
		t.Errorf("err = %v, want ErrEmptySystemPrompt", err)
	}
}

func TestRecordHistoryIsIdempotent(t *testing.T) {
	s := BuildLoop("diff", "sys")
	s.Phase = PhaseRecordHistory
	s.Response = "fix: thing"

	once := RecordHistory(s)
	if len(once.Messages) != 2 || once.Messages[1] != AssistantMessage("fix: thing") {
		t.Fatalf("Messages = %v", once.Messages)
	}
	if len(s.Messages) != 1 {
		t.Errorf("previous state aliased: %v", s.Messages)
	}

	twice := RecordHistory(once)
	if len(twice.Messages) != 2 {
		t.Errorf("assistant message duplicated: %v", twice.Messages)
	}
	if twice.Phase != PhaseAwaitInput {
		t.Errorf("Phase = %v", twice.Phase)
	}
}

func TestRecordHistoryWithoutResponseEndsSession(t *testing.T) {
	s := BuildLoop("diff", "sys")
	s.Phase = PhaseRecordHistory

	got := RecordHistory(s)
	out, ok := got.Result()
	if !ok || out.Kind != OutcomeNoResponse {
		t.Errorf("Result() = %+v, %v", out, ok)
	}
}

func TestLoopRun(t *testing.T) {
	tests := []struct {
		name      string
		replies   []string
		inputs    []string
		edits     []string
		wantKind  OutcomeKind
		wantMsg   string
		wantCalls int
	}{
		{name: "empty input accepts", replies: []string{"Fix: Add Thing!!"}, inputs: []string{""}, wantKind: OutcomeAccepted, wantMsg: "fix: add thing", wantCalls: 1},
		{name: "y accepts", replies: []string{"feat: x"}, inputs: []string{"y"}, wantKind: OutcomeAccepted, wantMsg: "feat: x", wantCalls: 1},
		{name: "YES accepts", replies: []string{"feat: x"}, inputs: []string{"YES"}, wantKind: OutcomeAccepted, wantMsg: "feat: x", wantCalls: 1},
		{name: "n exits", replies: []string{"feat: x"}, inputs: []string{"n"}, wantKind: OutcomeExited, wantCalls: 1},
		{name: "quit exits", replies: []string{"feat: x"}, inputs: []string{"quit"}, wantKind: OutcomeExited, wantCalls: 1},
		{name: "end of input exits", replies: []string{"feat: x"}, inputs: nil, wantKind: OutcomeExited, wantCalls: 1},
		{
			name:      "feedback loops once",
			replies:   []string{"feat: x", "test: cover loop"},
			inputs:    []string{"mention tests", "yes"},
			wantKind:  OutcomeAccepted,
			wantMsg:   "test: cover loop",
			wantCalls: 2,
		},
		{name: "edit replaces", replies: []string{"feat: x"}, inputs: []string{"e"}, edits: []string{"Docs: Better README"}, wantKind: OutcomeAccepted, wantMsg: "docs: better readme", wantCalls: 1},
		{name: "empty edit keeps candidate", replies: []string{"feat: x"}, inputs: []string{"edit"}, edits: []string{"  "}, wantKind: OutcomeAccepted, wantMsg: "feat: x", wantCalls: 1},
		{name: "invalid edit reprompts", replies: []string{"feat: x"}, inputs: []string{"e", ""}, edits: []string{"!!!"}, wantKind: OutcomeAccepted, wantMsg: "feat: x", wantCalls: 1},
		{
			name:      "invalid candidate cannot be accepted",
			replies:   []string{"!!!", "fix: valid"},
			inputs:    []string{"", "try again", ""},
			wantKind:  OutcomeAccepted,
			wantMsg:   "fix: valid",
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{replies: tt.replies}
			prompter := &scriptedPrompter{inputs: tt.inputs, edits: tt.edits}
			l := newTestLoop(asker, prompter)

			final, err := l.Run(context.Background(), BuildLoop("diff", "sys"))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			out, ok := final.Result()
			if !ok {
				t.Fatal("Result not available after Run")
			}
			if out.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", out.Kind, tt.wantKind)
			}
			if out.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", out.Message, tt.wantMsg)
			}
			if len(asker.calls) != tt.wantCalls {
				t.Errorf("asker calls = %d, want %d", len(asker.calls), tt.wantCalls)
			}
		})
	}
}

func TestLoopFeedbackHistory(t *testing.T) {
	asker := &fakeAsker{replies: []string{"feat: first", "feat: second"}}
	prompter := &scriptedPrompter{inputs: []string{"  be more specific ", "y"}}
	l := newTestLoop(asker, prompter)

	final, err := l.Run(context.Background(), BuildLoop("diff", "sys"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	second := asker.calls[1]
	want := []Message{
		HumanMessage("\nDiff:\ndiff"),
		AssistantMessage("feat: first"),
		HumanMessage("Feedback: be more specific"),
	}
	if len(second) != len(want) {
		t.Fatalf("second call history = %v", second)
	}
	for i := range want {
		if second[i] != want[i] {
			t.Errorf("history[%d] = %v, want %v", i, second[i], want[i])
		}
	}
	if len(final.Messages) != 4 || final.Messages[3] != AssistantMessage("feat: second") {
		t.Errorf("final history = %v", final.Messages)
	}
	if final.Turns != 2 {
		t.Errorf("Turns = %d, want 2", final.Turns)
	}
}

func TestLoopCycle(t *testing.T) {
	asker := &fakeAsker{replies: []string{"feat: first"}}
	prompter := &scriptedPrompter{inputs: []string{"shorter"}}
	l := newTestLoop(asker, prompter)

	s, err := l.Cycle(context.Background(), BuildLoop("diff", "sys"))
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if s.Phase != PhaseTruncate || !s.Reiterate {
		t.Errorf("Phase = %v Reiterate = %v, want truncate/true", s.Phase, s.Reiterate)
	}
	if len(asker.calls) != 1 || len(prompter.proposals) != 1 {
		t.Errorf("calls = %d proposals = %d", len(asker.calls), len(prompter.proposals))
	}
	if prompter.proposals[0].Message != "feat: first" {
		t.Errorf("proposal = %+v", prompter.proposals[0])
	}
}

func TestLoopErrors(t *testing.T) {
	t.Run("provider error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		l := newTestLoop(&fakeAsker{err: boom}, &scriptedPrompter{})
		_, err := l.Run(context.Background(), BuildLoop("diff", "sys"))
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want boom", err)
		}
	})

	t.Run("cancel during ask exits", func(t *testing.T) {
		l := newTestLoop(&fakeAsker{err: context.Canceled}, &scriptedPrompter{})
		final, err := l.Run(context.Background(), BuildLoop("diff", "sys"))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if out, _ := final.Result(); out.Kind != OutcomeExited {
			t.Errorf("Kind = %v, want exited", out.Kind)
		}
	})

	t.Run("interrupt while prompting exits", func(t *testing.T) {
		l := newTestLoop(&fakeAsker{}, &scriptedPrompter{err: ErrInterrupted})
		final, err := l.Run(context.Background(), BuildLoop("diff", "sys"))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if out, _ := final.Result(); out.Kind != OutcomeExited {
			t.Errorf("Kind = %v, want exited", out.Kind)
		}
	})

	t.Run("turn limit", func(t *testing.T) {
		l := newTestLoop(&fakeAsker{}, &scriptedPrompter{inputs: []string{"again", "again", "again"}})
		l.MaxTurns = 2
		_, err := l.Run(context.Background(), BuildLoop("diff", "sys"))
		if !errors.Is(err, ErrTurnLimit) {
			t.Errorf("err = %v, want ErrTurnLimit", err)
		}
	})

	t.Run("context budget exceeded", func(t *testing.T) {
		asker := &fakeAsker{}
		l := newTestLoop(asker, &scriptedPrompter{})
		l.TokenLimit = 5
		_, err := l.Run(context.Background(), BuildLoop(strings.Repeat("x", 200), "sys"))
		var tooLarge *ContextTooLargeError
		if !errors.As(err, &tooLarge) {
			t.Errorf("err = %v, want ContextTooLargeError", err)
		}
		if len(asker.calls) != 0 {
			t.Errorf("asker called %d times", len(asker.calls))
		}
	})

	t.Run("system prompt counts against the budget", func(t *testing.T) {
		asker := &fakeAsker{}
		l := newTestLoop(asker, &scriptedPrompter{})
		l.TokenLimit = 50
		_, err := l.Run(context.Background(), BuildLoop("diff", strings.Repeat("s", 400)))
		var tooLarge *ContextTooLargeError
		if !errors.As(err, &tooLarge) {
			t.Fatalf("err = %v, want ContextTooLargeError", err)
		}
		if len(asker.calls) != 0 {
			t.Errorf("asker called %d times", len(asker.calls))
		}
	})

	t.Run("system prompt is not added to the history", func(t *testing.T) {
		asker := &fakeAsker{}
		l := newTestLoop(asker, &scriptedPrompter{inputs: []string{"y"}})
		l.TokenLimit = 500
		if _, err := l.Run(context.Background(), BuildLoop("diff", "sys")); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(asker.calls) != 1 || len(asker.calls[0]) != 1 || asker.calls[0][0].Role != RoleHuman {
			t.Errorf("asked with %v, want the single human message", asker.calls)
		}
	})
}

func TestParseDecision(t *testing.T) {
	tests := map[string]Decision{
		"":           DecisionAccept,
		"y":          DecisionAccept,
		" Yes ":      DecisionAccept,
		"n":          DecisionExit,
		"no":         DecisionExit,
		"EXIT":       DecisionExit,
		"quit":       DecisionExit,
		"e":          DecisionEdit,
		"edit":       DecisionEdit,
		"use fix:":   DecisionFeedback,
		"yes please": DecisionFeedback,
	}
	for in, want := range tests {
		if got := ParseDecision(in); got != want {
			t.Errorf("ParseDecision(%q) = %v, want %v", in, got, want)
		}
	}
}
