// Package analyze wires the log readers, detectors and pattern store into
// one bounded run.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"sessionlearn/internal/changes"
	"sessionlearn/internal/config"
	"sessionlearn/internal/detect"
	"sessionlearn/internal/parser"
	"sessionlearn/internal/store"
	"sessionlearn/internal/trigger"
)

// ErrTimeout is returned when the run exceeds its deadline. The run then
// reports zero patterns.
var ErrTimeout = errors.New("analysis timed out")

// Source names used in reports and logs.
const (
	SourceActivity = "activity"
	SourceTests    = "tests"
	SourceGuard    = "guard"
	SourceChanges  = "changes"
)

// SourceReport describes how one log was read.
type SourceReport struct {
	Name      string
	Path      string
	Status    parser.Status
	Records   int
	Skipped   int
	Truncated bool
}

// Report summarizes a run.
type Report struct {
	Sources         []SourceReport
	Triggers        []string
	TriggerProblems int
	LibrarySize     int
	Candidates      int
	Created         []string
	Updated         []string
	Skipped         int
	Failed          int
}

// Total is the number printed as the run result.
func (r Report) Total() int { return len(r.Created) + len(r.Updated) }

// Runner performs analysis runs. Zero-valued fields fall back to values
// derived from Config.
type Runner struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *store.Store
	Suite  *detect.Suite
}

// Run executes one analysis with the given configuration.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Report, error) {
	return (&Runner{Config: cfg, Logger: logger}).Run(ctx)
}

// Run reads the logs, detects candidates and persists them. The configured
// timeout bounds the whole run and is checked after each reader, after
// each detector and before each write.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	cfg := r.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	report, err := r.run(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("analysis timed out, reporting zero patterns", zap.Duration("timeout", cfg.Timeout))
			return Report{}, fmt.Errorf("%w after %s", ErrTimeout, cfg.Timeout)
		}
		return Report{}, err
	}

	logger.Info("analysis finished",
		zap.Int("candidates", report.Candidates),
		zap.Int("created", len(report.Created)),
		zap.Int("updated", len(report.Updated)),
		zap.Int("library", report.LibrarySize))
	return report, nil
}

func (r *Runner) run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Report, error) {
	var report Report

	paths := []string{cfg.Logs.Activity, cfg.Logs.Tests, cfg.Logs.Guard, cfg.Logs.Changes}
	if !anyFile(paths) {
		logger.Debug("no session logs found")
		return report, nil
	}

	opts := func(maxLines int) parser.Options {
		return parser.Options{MaxBytes: cfg.Logs.MaxBytes, MaxLines: maxLines, Logger: logger}
	}

	activity := parser.ReadActivity(ctx, cfg.Logs.Activity, opts(cfg.Logs.MaxActivityLines))
	report.Sources = append(report.Sources, sourceReport(SourceActivity, activity))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	tests := parser.ReadTestLog(ctx, cfg.Logs.Tests, opts(cfg.Logs.MaxTestLines))
	report.Sources = append(report.Sources, sourceReport(SourceTests, tests))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	guard := parser.ReadGuardLog(ctx, cfg.Logs.Guard, opts(cfg.Logs.MaxGuardLines))
	report.Sources = append(report.Sources, sourceReport(SourceGuard, guard))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	changeLog := parser.ReadChanges(ctx, cfg.Logs.Changes, opts(cfg.Logs.MaxChanges))
	report.Sources = append(report.Sources, sourceReport(SourceChanges, changeLog))
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if activity.Empty() && tests.Empty() && guard.Empty() && changeLog.Empty() {
		logger.Debug("session logs contain no entries")
		return report, nil
	}

	triggers, problems := trigger.Compile(cfg.Triggers)
	for _, p := range problems {
		logger.Warn("trigger dropped", zap.String("trigger", p.Name), zap.Error(p.Err))
	}
	report.Triggers = triggers.Names()
	report.TriggerProblems = len(problems)

	st := r.Store
	if st == nil {
		st = store.New(cfg.Patterns.Dir, store.WithLogger(logger))
	}
	lib := st.LoadLibrary(cfg.Patterns.Similarity)
	report.LibrarySize = lib.Len()

	suite := r.Suite
	if suite == nil {
		s := detect.DefaultSuite(cfg.Thresholds.DetectThresholds(), cfg.Thresholds.AgentType)
		suite = &s
	}
	candidates, err := suite.Run(ctx, detect.Input{
		Activity: activity.Records,
		Tests:    tests.Records,
		Guard:    guard.Records,
		Changes:  changes.NewIndex(changeLog.Records),
		Triggers: triggers,
	})
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)

	out, err := st.Persist(ctx, lib, candidates, cfg.Patterns.MaxPerRun)
	if err != nil {
		return report, err
	}
	report.Created = out.Created
	report.Updated = out.Updated
	report.Skipped = out.Skipped
	report.Failed = len(out.Failed)
	return report, nil
}

func sourceReport[T any](name string, res parser.Result[T]) SourceReport {
	return SourceReport{
		Name:      name,
		Path:      res.Path,
		Status:    res.Status,
		Records:   len(res.Records),
		Skipped:   res.Skipped,
		Truncated: res.Truncated,
	}
}

// anyFile reports whether at least one path names a regular file.
func anyFile(paths []string) bool {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}
