package tui

import (
	"codelibre/internal/core"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const listHeight = 10

type MenuAction int

const (
	CommitThis MenuAction = iota
	EditMessage
	GiveFeedback
	Cancel
)

// answers maps menu actions onto the line protocol understood by core.ParseDecision.
var answers = map[MenuAction]string{
	CommitThis:  "y",
	EditMessage: "e",
	Cancel:      "n",
}

const feedbackMarker = "Feedback: "

type item struct {
	title  string
	action MenuAction
}

func (i item) FilterValue() string { return i.title }

type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(item)
	if !ok {
		return
	}

	str := i.title

	fn := itemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return selectedItemStyle.Render("> " + strings.Join(s, " "))
		}
	}

	fmt.Fprint(w, fn(str))
}

type menuMode int

const (
	modeMenu menuMode = iota
	modeInput
)

type model struct {
	list        list.Model
	input       textinput.Model
	mode        menuMode
	header      string
	inputAction MenuAction
	answer      string
	done        bool
	interrupted bool
}

func newMenuModel(header string, valid bool) model {
	var items []list.Item
	if valid {
		items = append(items, item{title: "✅ Commit this", action: CommitThis})
	}
	items = append(items,
		item{title: "✏️  Edit message", action: EditMessage},
		item{title: "💬 Give feedback and regenerate", action: GiveFeedback},
		item{title: "❌ Cancel", action: Cancel},
	)

	const defaultWidth = 40

	l := list.New(items, itemDelegate{}, defaultWidth, listHeight)
	l.Title = ""
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle

	return model{list: l, input: newInput(""), header: header}
}

func newInputModel(header, value string) model {
	m := model{input: newInput(value), header: header, mode: modeInput, inputAction: EditMessage}
	m.input.Focus()
	return m
}

func newInput(value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Width = 60
	ti.SetValue(value)
	return ti
}

func (m model) Init() tea.Cmd {
	if m.mode == modeInput {
		return textinput.Blink
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			return m, tea.Quit
		}
		if m.mode == modeInput {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "q", "esc":
			m.answer = answers[Cancel]
			m.done = true
			return m, tea.Quit

		case "enter":
			i, ok := m.list.SelectedItem().(item)
			if !ok {
				return m, nil
			}
			if i.action == GiveFeedback {
				m.mode = modeInput
				m.inputAction = GiveFeedback
				m.input.Placeholder = "e.g. mention the config loader"
				cmd := m.input.Focus()
				return m, cmd
			}
			m.answer = answers[i.action]
			m.done = true
			return m, tea.Quit
		}
	}

	if m.mode == modeInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		if m.inputAction == GiveFeedback {
			if value == "" {
				return m, nil
			}
			value = feedbackAnswer(value)
		}
		m.answer = value
		m.done = true
		return m, tea.Quit
	case tea.KeyEsc:
		if m.inputAction == GiveFeedback {
			m.mode = modeMenu
			m.input.Blur()
			m.input.SetValue("")
			return m, nil
		}
		m.answer = ""
		m.done = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// feedbackAnswer keeps feedback such as "no" or "edit" from being read as
// a menu decision.
func feedbackAnswer(value string) string {
	if core.ParseDecision(value) != core.DecisionFeedback {
		return feedbackMarker + value
	}
	return value
}

func (m model) View() string {
	if m.interrupted {
		return quitTextStyle.Render("Exiting...")
	}
	if m.done {
		return ""
	}
	if m.mode == modeInput {
		label := "Feedback for the next attempt (esc to go back):"
		if m.inputAction == EditMessage {
			label = "Edit the message (enter to accept, esc keeps current):"
		}
		return fmt.Sprintf("%s\n\n%s\n%s\n", m.header, label, m.input.View())
	}
	return fmt.Sprintf("%s\n\n%s", m.header, m.list.View())
}

// TeaPrompter is the interactive prompter used on a terminal.
type TeaPrompter struct {
	in  io.Reader
	out io.Writer
}

func NewTeaPrompter(in io.Reader, out io.Writer) *TeaPrompter {
	return &TeaPrompter{in: in, out: out}
}

func (p *TeaPrompter) Prompt(ctx context.Context, prop core.Proposal) (string, error) {
	return p.run(ctx, newMenuModel(renderProposal(prop), prop.Err == nil))
}

func (p *TeaPrompter) Edit(ctx context.Context, current string) (string, error) {
	return p.run(ctx, newInputModel(renderProposal(core.Proposal{Message: current}), current))
}

func (p *TeaPrompter) run(ctx context.Context, m model) (string, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.in != nil {
		opts = append(opts, tea.WithInput(p.in))
	}
	if p.out != nil {
		opts = append(opts, tea.WithOutput(p.out))
	}

	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", core.ErrInterrupted
		}
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	fm, ok := final.(model)
	if !ok || fm.interrupted {
		return "", core.ErrInterrupted
	}
	return fm.answer, nil
}

func renderProposal(prop core.Proposal) string {
	var b strings.Builder
	NewPrinter(&b).Proposal(prop)
	return strings.TrimRight(b.String(), "\n")
}
