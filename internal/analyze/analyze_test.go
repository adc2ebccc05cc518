package analyze

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sessionlearn/internal/config"
	"sessionlearn/internal/parser"
	"sessionlearn/internal/store"
	"sessionlearn/internal/trigger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Logs.Activity = filepath.Join(dir, "logs", "activity.jsonl")
	cfg.Logs.Tests = filepath.Join(dir, "logs", "test-runs.log")
	cfg.Logs.Guard = filepath.Join(dir, "logs", "tdd-guard.log")
	cfg.Logs.Changes = filepath.Join(dir, "logs", "changes.jsonl")
	cfg.Patterns.Dir = filepath.Join(dir, "patterns")
	cfg.Triggers = map[string]trigger.Spec{trigger.ErrorResolved: {Pattern: "error"}}
	return cfg
}

func writeLog(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func activityLine(name, detail string) string {
	return "[2025-01-01 10:00:00] AGENT | EXECUTE | " + name + " | " + detail
}

func patternFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunWithoutLogs(t *testing.T) {
	cfg := testConfig(t)

	report, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total())
	assert.Empty(t, report.Sources, "no reader runs when every log is absent")
	assert.NoDirExists(t, cfg.Patterns.Dir)
}

func TestRunWithEmptyLogs(t *testing.T) {
	cfg := testConfig(t)
	writeLog(t, cfg.Logs.Activity, "not a log line")

	report, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total())
	require.Len(t, report.Sources, 4)
	assert.Equal(t, parser.StatusRead, report.Sources[0].Status)
	assert.Equal(t, 1, report.Sources[0].Skipped)
	assert.Equal(t, parser.StatusMissing, report.Sources[1].Status)
	assert.NoDirExists(t, cfg.Patterns.Dir)
}

func TestRunCreatesThenUpdates(t *testing.T) {
	cfg := testConfig(t)
	writeLog(t, cfg.Logs.Activity,
		activityLine("build", "TS2345 error"),
		activityLine("build", "TS2345 error"),
	)

	report, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total())
	require.Len(t, report.Created, 1)
	assert.Equal(t, []string{trigger.ErrorResolved}, report.Triggers)

	report, err = Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total())
	assert.Empty(t, report.Created)
	assert.Equal(t, 1, report.LibrarySize)

	records, warnings := store.New(cfg.Patterns.Dir).List()
	require.Empty(t, warnings)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].UsageCount)
	assert.Equal(t, "TS2345 Error Pattern", records[0].Title)
}

func TestRunHonorsMaxPatterns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Patterns.MaxPerRun = 1

	activity := []string{
		activityLine("build", "TS2345 error"),
		activityLine("build", "TS2345 error"),
	}
	for i := 0; i < 5; i++ {
		activity = append(activity, activityLine("edit", "[done] src/app.ts"))
	}
	writeLog(t, cfg.Logs.Activity, activity...)
	writeLog(t, cfg.Logs.Tests,
		"[2025-01-01 10:00:00] tests failed",
		"[2025-01-01 10:01:00] tests failed",
		"[2025-01-01 10:02:00] tests failed",
	)

	report, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 1, report.Total())
	assert.Equal(t, 2, report.Skipped)
	assert.Len(t, patternFiles(t, cfg.Patterns.Dir), 1)
}

func TestRunTimeoutReportsZero(t *testing.T) {
	cfg := testConfig(t)
	writeLog(t, cfg.Logs.Activity,
		activityLine("build", "TS2345 error"),
		activityLine("build", "TS2345 error"),
	)
	core, logs := observer.New(zapcore.WarnLevel)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	report, err := Run(ctx, cfg, zap.New(core))
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 0, report.Total())
	assert.Empty(t, patternFiles(t, cfg.Patterns.Dir))
	assert.Equal(t, 1, logs.FilterMessage("analysis timed out, reporting zero patterns").Len())
}

func TestRunCancelledIsNotTimeout(t *testing.T) {
	cfg := testConfig(t)
	writeLog(t, cfg.Logs.Activity, activityLine("build", "TS2345 error"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestRunDropsInvalidTrigger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Triggers["workaround"] = trigger.Spec{Pattern: "("}
	writeLog(t, cfg.Logs.Activity,
		activityLine("build", "TS2345 error"),
		activityLine("build", "TS2345 error"),
	)
	core, logs := observer.New(zapcore.WarnLevel)

	report, err := Run(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 1, report.TriggerProblems)
	assert.Equal(t, 1, report.Total())
	assert.Equal(t, 1, logs.FilterMessage("trigger dropped").Len())
}

func TestRunSkipsOversizedLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logs.MaxBytes = 16
	writeLog(t, cfg.Logs.Activity,
		activityLine("build", "TS2345 error"),
		activityLine("build", "TS2345 error"),
	)

	report, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total())
	assert.Equal(t, parser.StatusOversized, report.Sources[0].Status)
}
