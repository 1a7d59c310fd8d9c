package main

import (
	"codelibre/internal/config"
	"codelibre/internal/core"
	"codelibre/internal/git"
	"codelibre/internal/llm"
	"codelibre/internal/tui"
	"codelibre/internal/utils"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

type flags struct {
	staged   bool
	all      bool
	files    bool
	force    bool
	copy     bool
	dryRun   bool
	strict   bool
	debug    bool
	prefix   string
	provider string
	model    string
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		kind := tui.StatusError
		if isInterrupt(err) {
			kind = tui.StatusWarning
		}
		tui.NewPrinter(os.Stderr).Status(kind, describeError(err))
		log.Debug().Err(err).Msg("Command failed")
	}
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "codelibre [flags] [files...]",
		Short: "Generate a commit message for your changes with a language model",
		Long: `codelibre sends the staged diff to a language model, shows the proposed
commit message and lets you accept it, edit it, or give feedback for another try.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, f)
		},
	}

	fl := cmd.Flags()
	fl.BoolVarP(&f.staged, "staged", "s", false, "describe what is already staged")
	fl.BoolVarP(&f.all, "all", "a", false, "stage all changes first")
	fl.BoolVarP(&f.files, "files", "e", false, "stage only the files given as arguments")
	fl.BoolVarP(&f.force, "force", "f", false, "accept the first valid message without prompting")
	fl.BoolVar(&f.copy, "copy", false, "copy the message to the clipboard instead of committing")
	fl.BoolVar(&f.dryRun, "dry-run", false, "print the message instead of committing")
	fl.BoolVar(&f.strict, "strict", false, fmt.Sprintf("limit the message to %d characters", core.StrictMaxLength))
	fl.BoolVar(&f.debug, "debug", false, "enable debug logging")
	fl.StringVar(&f.prefix, "prefix", "", "text to put in front of the message")
	fl.StringVar(&f.provider, "provider", "", "model provider: anthropic, openai or gemini")
	fl.StringVar(&f.model, "model", "", "model name (defaults to the provider's)")
	cmd.MarkFlagsMutuallyExclusive("staged", "all", "files")
	cmd.MarkFlagsMutuallyExclusive("copy", "dry-run")

	return cmd
}

func run(cmd *cobra.Command, args []string, f *flags) error {
	ctx := cmd.Context()

	mode := selectMode(f)
	if mode == tui.ModeNone {
		return cmd.Usage()
	}
	if mode != tui.ModeFiles && len(args) > 0 {
		return fmt.Errorf("file arguments need --files")
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	root, err := git.RepoRoot(cwd)
	if err != nil {
		return err
	}

	overrides := &config.Overrides{Debug: &f.debug}
	if cmd.Flags().Changed("strict") {
		overrides.Strict = &f.strict
	}
	if cmd.Flags().Changed("provider") {
		overrides.Provider = &f.provider
	}
	if cmd.Flags().Changed("model") {
		overrides.Model = &f.model
	}
	cfg, err := config.Load(ctx, config.LoadOptions{RepoRoot: root, Overrides: overrides})
	if err != nil {
		return err
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.With().Str("session", uuid.NewString()).Logger()
	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Str("repo", root).Msg("Configuration loaded")

	provider, err := llm.New(ctx, *cfg)
	if err != nil {
		return err
	}
	interactive := utils.IsInteractive()
	asker := &tui.SpinningAsker{Out: os.Stdout, IsTTY: interactive}
	asker.Asker = llm.NewExecutor(provider, *cfg, asker.OnRetry)

	var prompter core.Prompter
	switch {
	case f.force:
		prompter = tui.AutoPrompter{}
	case interactive:
		prompter = tui.NewTeaPrompter(os.Stdin, os.Stdout)
	default:
		prompter = tui.NewLinePrompter(os.Stdin, os.Stdout)
	}

	printer := tui.NewPrinter(os.Stdout)
	printer.Header("codelibre")
	session := &tui.Session{
		Git:      git.NewClient(root, cfg.GitTimeout),
		Asker:    asker,
		Prompter: prompter,
		Printer:  printer,
		Config:   *cfg,
		StagedFiles: func() ([]string, error) {
			return git.StagedFiles(root)
		},
	}

	_, err = session.Run(ctx, tui.Options{
		Mode:   mode,
		Files:  args,
		Copy:   f.copy,
		DryRun: f.dryRun,
		Prefix: f.prefix,
	})
	return err
}

func selectMode(f *flags) tui.Mode {
	switch {
	case f.staged:
		return tui.ModeStaged
	case f.all:
		return tui.ModeAll
	case f.files:
		return tui.ModeFiles
	default:
		return tui.ModeNone
	}
}

// exitCode is 0 for success and for a session the user ended.
func exitCode(err error) int {
	if err == nil || isInterrupt(err) {
		return 0
	}
	return 1
}

func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, core.ErrInterrupted) ||
		errors.Is(err, core.ErrExitRequested)
}

func describeError(err error) string {
	var (
		tooLarge   *core.DiffTooLargeError
		overBudget *core.ContextTooLargeError
		exhausted  *core.RetryExhaustedError
		missing    *config.MissingError
		provider   *core.ProviderError
	)
	switch {
	case isInterrupt(err):
		return "Interrupted, nothing committed"
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("Diff too large (%d characters, limit %d). Stage fewer files and try again.", tooLarge.Size, tooLarge.Limit)
	case errors.As(err, &overBudget):
		return fmt.Sprintf("Conversation too long for the token limit (%d > %d). Start over with less feedback.", overBudget.Tokens, overBudget.Limit)
	case errors.As(err, &missing):
		return fmt.Sprintf("No API key for %s. Set %s in the environment or a .env file.", missing.Provider, missing.Key)
	case errors.As(err, &exhausted):
		return fmt.Sprintf("The model is overloaded; gave up after %d attempts.", exhausted.Attempts)
	case errors.Is(err, core.ErrEmptyResponse):
		return "Unable to generate commit message: the model returned nothing."
	case errors.Is(err, core.ErrSanitization):
		return fmt.Sprintf("Invalid commit message: %v", err)
	case errors.As(err, &provider):
		return fmt.Sprintf("The %s API rejected the request: %v", provider.Provider, err)
	case errors.Is(err, git.ErrNotRepository):
		return "This directory is not inside a git repository."
	case errors.Is(err, git.ErrGitCommand):
		return fmt.Sprintf("Git command failed: %v", err)
	default:
		return err.Error()
	}
}
