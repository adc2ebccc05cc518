// Package main provides the sessionlearn CLI, which mines coding-session
// logs for recurring problems and keeps them as learned pattern records.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"sessionlearn/internal/analyze"
	"sessionlearn/internal/config"
	"sessionlearn/internal/format"
	"sessionlearn/internal/logging"
	"sessionlearn/internal/store"
	"sessionlearn/internal/view"
	"sessionlearn/internal/watch"
)

var version = "dev"

const (
	defaultProblemWidth = 160
	minProblemWidth     = 20
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath  string
	activity    string
	tests       string
	guard       string
	changes     string
	patternsDir string
	maxPatterns int
	timeout     time.Duration
	logLevel    string
	logFormat   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sessionlearn: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "sessionlearn",
		Short: "Detect recurring patterns in session logs and persist them",
		Long: "Reads the activity, test-run, TDD-guard and change logs, runs the pattern detectors\n" +
			"and creates or updates learned pattern records. Prints the number of patterns\n" +
			"created plus updated.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			return analyzeOnce(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultConfigPath, "path to the trigger config file (JSON or YAML)")
	flags.StringVar(&opts.activity, "activity", defaults.Logs.Activity, "path to the activity log")
	flags.StringVar(&opts.tests, "tests", defaults.Logs.Tests, "path to the test-run log")
	flags.StringVar(&opts.guard, "tdd-guard", defaults.Logs.Guard, "path to the TDD guard log")
	flags.StringVar(&opts.changes, "changes", defaults.Logs.Changes, "path to the change log")
	flags.StringVar(&opts.patternsDir, "patterns-dir", defaults.Patterns.Dir, "directory holding learned pattern records")
	flags.IntVar(&opts.maxPatterns, "max-patterns", defaults.Patterns.MaxPerRun, "maximum patterns created or updated per run")
	flags.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "wall-clock limit for one run (0 disables)")
	flags.StringVar(&opts.logLevel, "log-level", defaults.Logging.Level, "diagnostic log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", defaults.Logging.Format, "diagnostic log format: console or json")

	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	return cmd
}

// load reads the config file and environment, then applies the flags the
// user set explicitly.
func (o *options) load(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	bootstrap, err := logging.New(logging.Config{Level: o.logLevel, Format: o.logFormat})
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(o.configPath, bootstrap)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("activity") {
		cfg.Logs.Activity = o.activity
	}
	if flags.Changed("tests") {
		cfg.Logs.Tests = o.tests
	}
	if flags.Changed("tdd-guard") {
		cfg.Logs.Guard = o.guard
	}
	if flags.Changed("changes") {
		cfg.Logs.Changes = o.changes
	}
	if flags.Changed("patterns-dir") {
		cfg.Patterns.Dir = o.patternsDir
	}
	if flags.Changed("max-patterns") {
		cfg.Patterns.MaxPerRun = o.maxPatterns
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// analyzeOnce runs one analysis and prints its result. Run failures,
// including timeouts, print 0 and do not fail the command.
func analyzeOnce(ctx context.Context, out io.Writer, cfg *config.Config, logger *zap.Logger) error {
	report, err := analyze.Run(ctx, cfg, logger)
	total := report.Total()
	if err != nil {
		if !errors.Is(err, analyze.ErrTimeout) {
			logger.Warn("analysis aborted", zap.Error(err))
		}
		total = 0
	}
	_, werr := fmt.Fprintln(out, total)
	return werr
}

func newListCmd(opts *options) *cobra.Command {
	var (
		formatFlag   string
		noHeader     bool
		problemWidth int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned patterns, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			records, warnings := store.New(cfg.Patterns.Dir, store.WithLogger(logger)).List()

			errs := cmd.ErrOrStderr()
			for _, warn := range warnings {
				fmt.Fprintf(errs, "warning: %v\n", warn) //nolint:errcheck
			}

			out := cmd.OutOrStdout()
			return format.WriteRecords(out, records, format.ListOptions{
				Format:        strings.ToLower(formatFlag),
				IncludeHeader: !noHeader,
				ProblemWidth:  determineProblemWidth(out, problemWidth),
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for table and plain output")
	flags.IntVar(&problemWidth, "problem-width", 0, "maximum characters of the problem column (0 sizes to the terminal)")
	return cmd
}

// determineProblemWidth leaves a third of a terminal to the problem column.
func determineProblemWidth(out io.Writer, width int) int {
	if width > 0 {
		return width
	}
	if file, ok := out.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 0 {
			return max(w/3, minProblemWidth)
		}
	}
	return defaultProblemWidth
}

func newShowCmd(opts *options) *cobra.Command {
	var (
		formatFlag   string
		wrap         int
		forceColor   bool
		forceNoColor bool
		noPager      bool
	)

	cmd := &cobra.Command{
		Use:   "show <id|path>",
		Short: "Display one learned pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			path, err := store.New(cfg.Patterns.Dir).Resolve(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			outFile, _ := out.(*os.File)
			return view.Run(view.Options{
				Path:         path,
				Format:       formatFlag,
				Wrap:         wrap,
				ForceColor:   forceColor,
				ForceNoColor: forceNoColor,
				NoPager:      noPager,
				Out:          out,
				OutFile:      outFile,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "text", "output format: text or raw")
	flags.IntVar(&wrap, "wrap", 0, "wrap prose at the given column width (0 uses the terminal width)")
	flags.BoolVar(&forceColor, "color", false, "force ANSI colors")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors")
	flags.BoolVar(&noPager, "no-pager", false, "write directly instead of piping through $PAGER")
	return cmd
}

func newWatchCmd(opts *options) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the analysis whenever the session logs change",
		Long: "Runs one analysis immediately, then watches the log directories and runs again\n" +
			"after the logs have been quiet for the debounce window. Runs never overlap.\n" +
			"Stops on SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			run := func(ctx context.Context) error {
				return analyzeOnce(ctx, out, cfg, logger)
			}

			w, err := watch.New([]string{cfg.Logs.Activity, cfg.Logs.Tests, cfg.Logs.Guard, cfg.Logs.Changes}, debounce, logger)
			if err != nil {
				return err
			}
			defer w.Close() //nolint:errcheck

			logger.Info("watching session logs", zap.Strings("dirs", w.Dirs()), zap.Duration("debounce", debounce))
			if err := run(ctx); err != nil {
				return err
			}
			return w.Run(ctx, run)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period after a log change before re-running")
	return cmd
}
