package git

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGitCommand     = errors.New("git command failed")
	ErrUnsafeArgument = errors.New("unsafe git argument")
	ErrNoArguments    = errors.New("no git arguments")
	ErrGitNotFound    = errors.New("git executable not found")
	ErrTimeout        = errors.New("git command timed out")
	ErrNotRepository  = errors.New("not a git repository")
)

// CommandError is returned for any git invocation that did not succeed.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Is(target error) bool {
	return target == ErrGitCommand
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
