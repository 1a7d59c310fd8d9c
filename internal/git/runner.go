package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 30 * time.Second

// unsafeSequences are rejected in any argument before git is spawned.
var unsafeSequences = []string{";", "&", "|", "`", "$("}

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes the git binary in Dir with a per-call timeout.
type Runner struct {
	Dir     string
	Timeout time.Duration
	Binary  string
}

func (r Runner) Run(ctx context.Context, args ...string) (*Result, error) {
	if err := checkArgs(args); err != nil {
		return nil, &CommandError{Args: args, ExitCode: -1, Err: err}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	bin := r.Binary
	if bin == "" {
		bin = "git"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Strs("args", args).Str("dir", r.Dir).Msg("Running git")
	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &CommandError{Args: args, ExitCode: -1, Stderr: res.Stderr,
			Err: fmt.Errorf("%w after %s", ErrTimeout, timeout)}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, &CommandError{Args: args, ExitCode: -1, Err: context.Canceled}
	}
	if binaryMissing(err, bin) {
		return nil, &CommandError{Args: args, ExitCode: -1, Err: ErrGitNotFound}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &CommandError{Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}
	return nil, &CommandError{Args: args, ExitCode: -1, Err: err}
}

// binaryMissing matches a failed PATH lookup or an explicit Binary path that
// does not exist. A missing Dir is reported against the directory and is not matched.
func binaryMissing(err error, bin string) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr) && pathErr.Path == bin && errors.Is(err, fs.ErrNotExist)
}

func checkArgs(args []string) error {
	if len(args) == 0 {
		return ErrNoArguments
	}
	for _, arg := range args {
		for _, seq := range unsafeSequences {
			if strings.Contains(arg, seq) {
				return fmt.Errorf("%w: %q", ErrUnsafeArgument, arg)
			}
		}
	}
	return nil
}
