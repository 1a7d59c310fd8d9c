package tui

import (
	"codelibre/internal/core"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	proposalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	messageStyle  = lipgloss.NewStyle().PaddingLeft(2)
	dimStyle      = lipgloss.NewStyle().Faint(true)

	titleStyle        = lipgloss.NewStyle().MarginLeft(2).Bold(true)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	paginationStyle   = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	helpStyle         = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
	quitTextStyle     = lipgloss.NewStyle().Margin(1, 0, 2, 4)
)

type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarning
	StatusError
	StatusProcess
)

var statusIcons = map[StatusKind]struct {
	icon  string
	color lipgloss.Color
}{
	StatusInfo:    {"ℹ", "39"},
	StatusSuccess: {"✓", "42"},
	StatusWarning: {"⚠", "214"},
	StatusError:   {"✗", "196"},
	StatusProcess: {"⏺", "205"},
}

// Printer renders user-facing output. Logs go to zerolog on stderr; this
// is what the human reads.
type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) Header(text string) {
	fmt.Fprintln(p.out, headerStyle.Render(text))
}

func (p *Printer) Status(kind StatusKind, text string) {
	s, ok := statusIcons[kind]
	if !ok {
		s = statusIcons[StatusInfo]
	}
	icon := lipgloss.NewStyle().Foreground(s.color).Render(s.icon)
	fmt.Fprintf(p.out, "%s %s\n", icon, text)
}

func (p *Printer) Dim(text string) {
	fmt.Fprintln(p.out, dimStyle.Render(text))
}

// Proposal shows the current candidate, or why there is none.
func (p *Printer) Proposal(prop core.Proposal) {
	fmt.Fprintln(p.out)
	if prop.Err != nil {
		p.Status(StatusWarning, fmt.Sprintf("The model's reply is not a usable commit message: %v", prop.Err))
		if raw := strings.TrimSpace(prop.Raw); raw != "" {
			p.Dim(messageStyle.Render(raw))
		}
		p.Dim("Give feedback to try again, or edit it yourself.")
	} else {
		fmt.Fprintf(p.out, "%s %s\n", proposalStyle.Render("📝 Proposed commit message:"), prop.Message)
	}
	if prop.EditErr != nil {
		p.Status(StatusWarning, fmt.Sprintf("Edited message rejected: %v", prop.EditErr))
	}
}
