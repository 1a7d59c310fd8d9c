package tui

import (
	"bufio"
	"codelibre/internal/core"
	"context"
	"fmt"
	"io"
	"strings"
)

// LinePrompter reads answers line by line. It works on pipes and dumb
// terminals; a closed input ends the session.
type LinePrompter struct {
	printer *Printer
	out     io.Writer
	lines   chan lineResult
	in      *bufio.Reader
	started bool
}

type lineResult struct {
	line string
	err  error
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		printer: NewPrinter(out),
		out:     out,
		lines:   make(chan lineResult),
		in:      bufio.NewReader(in),
	}
}

func (p *LinePrompter) Prompt(ctx context.Context, prop core.Proposal) (string, error) {
	p.printer.Proposal(prop)
	if prop.Err != nil {
		fmt.Fprint(p.out, "Type feedback, [e]dit, or [n]o to cancel: ")
	} else {
		fmt.Fprint(p.out, "Commit with this message? [Y]es, [n]o, [e]dit, or type feedback: ")
	}
	return p.readLine(ctx)
}

func (p *LinePrompter) Edit(ctx context.Context, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(p.out, "Current: %s\n", current)
	}
	fmt.Fprint(p.out, "New message (empty keeps current): ")
	return p.readLine(ctx)
}

// readLine waits for the next line or ctx. The reader goroutine is started
// once and outlives a cancelled call; stdin cannot be unblocked portably.
func (p *LinePrompter) readLine(ctx context.Context) (string, error) {
	if !p.started {
		p.started = true
		go p.pump()
	}
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case r, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return r.line, r.err
	}
}

func (p *LinePrompter) pump() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		if err != nil {
			if err == io.EOF && line != "" {
				p.lines <- lineResult{line: strings.TrimRight(line, "\r\n")}
			}
			if err != io.EOF {
				p.lines <- lineResult{err: err}
			}
			return
		}
		p.lines <- lineResult{line: strings.TrimRight(line, "\r\n")}
	}
}

// AutoPrompter accepts the first valid candidate without asking (--force).
type AutoPrompter struct{}

func (AutoPrompter) Prompt(ctx context.Context, prop core.Proposal) (string, error) {
	if prop.Err != nil {
		return "", fmt.Errorf("cannot accept the generated message without review: %w", prop.Err)
	}
	return "y", nil
}

func (AutoPrompter) Edit(ctx context.Context, current string) (string, error) {
	return "", nil
}
