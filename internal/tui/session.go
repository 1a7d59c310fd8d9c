package tui

import (
	"codelibre/internal/config"
	"codelibre/internal/core"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog/log"
)

type Mode int

const (
	ModeNone Mode = iota
	ModeStaged
	ModeAll
	ModeFiles
)

var ErrNoMode = errors.New("choose --staged, --all or --files")

// GitClient is the slice of git.Client the session needs.
type GitClient interface {
	StagedDiff(ctx context.Context) (string, error)
	StageAll(ctx context.Context) error
	StageFiles(ctx context.Context, files []string) error
	Unstage(ctx context.Context) error
	Commit(ctx context.Context, message string) (string, error)
}

type Options struct {
	Mode   Mode
	Files  []string
	Copy   bool
	DryRun bool
	Prefix string
}

type Session struct {
	Git      GitClient
	Asker    core.Asker
	Prompter core.Prompter
	Printer  *Printer
	Config   config.Config
	// Clipboard defaults to atotto/clipboard.
	Clipboard func(string) error
	// StagedFiles, when set, lists what is about to be described.
	StagedFiles func() ([]string, error)
}

type Result struct {
	Outcome       core.Outcome
	NothingStaged bool
	Committed     bool
	Copied        bool
}

// Run stages according to opts, drives the conversation and applies the
// accepted message. Staging done here is rolled back unless a commit is made.
func (s *Session) Run(ctx context.Context, opts Options) (res Result, err error) {
	if opts.Mode == ModeNone {
		return res, ErrNoMode
	}

	speculative, err := s.stage(ctx, opts)
	if err != nil {
		return res, err
	}
	defer func() {
		if speculative && !res.Committed {
			s.rollback()
		}
	}()

	diff, err := s.Git.StagedDiff(ctx)
	if err != nil {
		return res, err
	}
	if diff == "" {
		res.NothingStaged = true
		s.Printer.Status(StatusWarning, "No changes staged for commit")
		return res, nil
	}

	if s.StagedFiles != nil {
		if files, ferr := s.StagedFiles(); ferr != nil {
			log.Debug().Err(ferr).Msg("Failed to list staged files")
		} else if len(files) > 0 {
			s.Printer.Dim(fmt.Sprintf("Staged: %s", strings.Join(files, ", ")))
		}
	}

	state, err := core.NewSession(diff, s.Config.Prompt(), s.Config.MaxDiffChars)
	if err != nil {
		return res, err
	}

	sanitizer := core.Sanitizer{MaxLength: s.Config.MessageLimit()}
	loop := &core.Loop{
		Asker:      s.Asker,
		Prompter:   s.Prompter,
		Sanitizer:  sanitizer,
		TokenLimit: s.Config.TokenLimit,
	}
	final, err := loop.Run(ctx, state)
	if err != nil {
		return res, err
	}
	outcome, _ := final.Result()
	res.Outcome = outcome
	log.Debug().Int("turns", final.Turns).Str("outcome", outcomeName(outcome.Kind)).Msg("Conversation finished")

	switch outcome.Kind {
	case core.OutcomeExited:
		s.Printer.Status(StatusWarning, "Commit canceled")
		return res, nil
	case core.OutcomeNoResponse:
		return res, core.ErrEmptyResponse
	}

	message, err := applyPrefix(sanitizer, opts.Prefix, outcome.Message)
	if err != nil {
		return res, err
	}
	res.Outcome.Message = message

	switch {
	case opts.DryRun:
		s.Printer.Status(StatusInfo, "Dry run, not committing:")
		fmt.Fprintln(s.Printer.out, message)
		return res, nil
	case opts.Copy:
		copyFn := s.Clipboard
		if copyFn == nil {
			copyFn = clipboard.WriteAll
		}
		if err := copyFn(message); err != nil {
			return res, fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		res.Copied = true
		s.Printer.Status(StatusSuccess, "Commit message copied to clipboard")
		return res, nil
	}

	s.Printer.Dim(fmt.Sprintf("git commit -m %q", message))
	out, err := s.Git.Commit(ctx, message)
	if err != nil {
		return res, err
	}
	res.Committed = true
	if out != "" {
		s.Printer.Dim(out)
	}
	s.Printer.Status(StatusSuccess, "Successfully committed!")
	return res, nil
}

func (s *Session) stage(ctx context.Context, opts Options) (bool, error) {
	switch opts.Mode {
	case ModeAll:
		s.Printer.Status(StatusProcess, "Staging all changes")
		if err := s.Git.StageAll(ctx); err != nil {
			s.rollback()
			return false, err
		}
		return true, nil
	case ModeFiles:
		if len(opts.Files) == 0 {
			return false, errors.New("no files given to stage")
		}
		s.Printer.Status(StatusProcess, fmt.Sprintf("Staging %s", strings.Join(opts.Files, ", ")))
		if err := s.Git.StageFiles(ctx, opts.Files); err != nil {
			s.rollback()
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}

// rollback uses a fresh context: the session context may already be cancelled.
func (s *Session) rollback() {
	if err := s.Git.Unstage(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to unstage changes")
		return
	}
	s.Printer.Dim("Unstaged changes")
}

// applyPrefix runs the accepted message through the sanitizer once more
// with the user's prefix in front.
func applyPrefix(s core.Sanitizer, prefix, message string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return message, nil
	}
	return s.Sanitize(prefix + " " + message)
}

func outcomeName(k core.OutcomeKind) string {
	switch k {
	case core.OutcomeAccepted:
		return "accepted"
	case core.OutcomeExited:
		return "exited"
	case core.OutcomeNoResponse:
		return "no_response"
	default:
		return "none"
	}
}
