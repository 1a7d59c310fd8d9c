package tui

import (
	"codelibre/internal/core"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

type Spinner struct {
	program   *tea.Program
	model     spinnerModel
	doneChan  chan struct{}
	startTime time.Time
	isTTY     bool
	out       io.Writer
}

type spinnerModel struct {
	spinner  spinner.Model
	quitting bool
	state    string
	duration time.Duration
	text     string
	onQuit   func()
}

// NewSpinner renders on out when isTTY, otherwise prints one line per update.
// onQuit runs if the user presses ctrl+c while it spins.
func NewSpinner(out io.Writer, isTTY bool, onQuit func()) *Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	if out == nil {
		out = os.Stdout
	}
	model := spinnerModel{
		spinner: s,
		state:   "idle",
		text:    "Initializing...",
		onQuit:  onQuit,
	}

	return &Spinner{
		model:    model,
		doneChan: make(chan struct{}),
		isTTY:    isTTY,
		out:      out,
	}
}

func (s *Spinner) Start(message string) {
	s.model.state = "running"
	s.model.text = message
	s.startTime = time.Now()

	// If not in TTY, just print the message
	if !s.isTTY {
		fmt.Fprintf(s.out, "⏺ %s\n", message)
		return
	}

	s.program = tea.NewProgram(s.model, tea.WithOutput(s.out))
	go func() {
		if _, err := s.program.Run(); err != nil {
			log.Error().Err(err).Msg("Error running spinner")
		}
		close(s.doneChan)
	}()
}

func (s *Spinner) Stop() {
	if !s.isTTY || s.program == nil {
		return
	}
	s.program.Send(doneMsg{duration: time.Since(s.startTime)})
	<-s.doneChan
}

func (s *Spinner) UpdateText(text string) {
	if !s.isTTY || s.program == nil {
		fmt.Fprintf(s.out, "⏺ %s\n", text)
		return
	}
	s.program.Send(updateTextMsg(text))
}

type doneMsg struct {
	duration time.Duration
}

type updateTextMsg string

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			m.state = "quitting"
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		default:
			return m, nil
		}
	case doneMsg:
		m.state = "done"
		m.duration = msg.duration
		return m, tea.Quit
	case updateTextMsg:
		m.text = string(msg)
		return m, nil
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() string {
	switch m.state {
	case "quitting":
		return "\n"
	case "done":
		return fmt.Sprintf("   Done! Took %.2f seconds\n", m.duration.Seconds())
	default:
		return fmt.Sprintf("   %s %s\n", m.spinner.View(), m.text)
	}
}

// SpinningAsker shows a spinner for the duration of each model call and
// reports retries through it. Wire OnRetry into the retry policy of Asker.
type SpinningAsker struct {
	Asker core.Asker
	Out   io.Writer
	IsTTY bool

	mu      sync.Mutex
	spinner *Spinner
}

func (a *SpinningAsker) Ask(ctx context.Context, history []core.Message, systemPrompt string) (string, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s := NewSpinner(a.Out, a.IsTTY, func() { cancel(core.ErrInterrupted) })
	a.setSpinner(s)
	s.Start("Generating commit message...")
	reply, err := a.Asker.Ask(ctx, history, systemPrompt)
	a.setSpinner(nil)
	s.Stop()

	if err != nil && errors.Is(context.Cause(ctx), core.ErrInterrupted) {
		return "", core.ErrInterrupted
	}
	return reply, err
}

// OnRetry updates the running spinner; outside Ask it only logs.
func (a *SpinningAsker) OnRetry(attempt int, delay time.Duration, err error) {
	log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Model overloaded, retrying")
	a.mu.Lock()
	s := a.spinner
	a.mu.Unlock()
	if s != nil {
		s.UpdateText(fmt.Sprintf("Model overloaded, retrying in %s (attempt %d)", delay, attempt))
	}
}

func (a *SpinningAsker) setSpinner(s *Spinner) {
	a.mu.Lock()
	a.spinner = s
	a.mu.Unlock()
}
