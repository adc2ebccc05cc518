package detect

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionlearn/internal/changes"
	"sessionlearn/internal/model"
	"sessionlearn/internal/trigger"
)

func triggers(t *testing.T, specs map[string]string) trigger.Set {
	t.Helper()
	in := make(map[string]trigger.Spec, len(specs))
	for name, pattern := range specs {
		in[name] = trigger.Spec{Pattern: pattern}
	}
	set, problems := trigger.Compile(in)
	require.Empty(t, problems)
	return set
}

func agentDone(detail string) model.ActivityEntry {
	return model.ActivityEntry{Timestamp: "2025-01-05 10:00:00", Type: "AGENT", Phase: "EXECUTE", Name: "implementer", Detail: detail}
}

func logLines(messages ...string) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(messages))
	for _, m := range messages {
		out = append(out, model.LogEntry{Timestamp: "2025-01-05 10:00:00", Message: m})
	}
	return out
}

func TestExtractors(t *testing.T) {
	assert.Equal(t, []string{"TS2345", "TypeError"}, ErrorCodes().Extract("TS2345 then TypeError and error"))
	assert.Empty(t, ErrorCodes().Extract("no codes here"))

	assert.Equal(t, []string{"src/app.ts"}, FilePaths().Extract("[done] src/app.ts"))
	assert.Equal(t, []string{"main.go"}, FilePaths().Extract(`edited "main.go": ok`))
	assert.Empty(t, FilePaths().Extract("see config.prod.yaml"), "multi-dot names without a slash are dropped")
	assert.Equal(t, []string{"deploy/config.prod.yaml"}, FilePaths().Extract("see deploy/config.prod.yaml"))
}

func TestErrorRecurrence_Scenario(t *testing.T) {
	in := Input{
		Activity: []model.ActivityEntry{
			{Type: "AGENT", Phase: "EXECUTE", Name: "build", Detail: "TS2345 error"},
			{Type: "AGENT", Phase: "EXECUTE", Name: "build", Detail: "TS2345 error"},
		},
		Triggers: triggers(t, map[string]string{trigger.ErrorResolved: "error"}),
	}

	got := (&ErrorRecurrence{Threshold: 2}).Detect(in)
	require.Len(t, got, 1)
	assert.Equal(t, CategoryErrorResolution, got[0].Category)
	assert.Equal(t, "TS2345 Error Pattern", got[0].Title)
	assert.Contains(t, got[0].Problem, "occurred 2 times")
	assert.Equal(t, "Recurring error detected from logs. Review context: build TS2345 error", got[0].Solution)
	assert.Equal(t, []string{"TS2345", "error", "resolution"}, got[0].Keywords)
	assert.Empty(t, got[0].CodeExample)
}

func TestErrorRecurrence_WithChanges(t *testing.T) {
	in := Input{
		Tests: logLines("TS2345 error in src/a.ts", "TS2345 error again"),
		Changes: changes.NewIndex([]model.ChangeRecord{
			{Tool: model.ToolEdit, File: "src/a.ts", Language: "typescript", OldContent: "f(x) // ts2345", NewContent: "f(String(x))"},
		}),
		Triggers: triggers(t, map[string]string{trigger.ErrorResolved: "error"}),
	}

	got := (&ErrorRecurrence{}).Detect(in)
	require.Len(t, got, 1)
	assert.Equal(t, "Error 'TS2345' was resolved by modifying: src/a.ts. See code examples below.", got[0].Solution)
	assert.Contains(t, got[0].CodeExample, "**Before:**")
}

func TestErrorRecurrence_NoTrigger(t *testing.T) {
	in := Input{Activity: []model.ActivityEntry{
		{Detail: "TS2345 error"}, {Detail: "TS2345 error"},
	}}
	assert.Empty(t, (&ErrorRecurrence{}).Detect(in))
}

func TestErrorRecurrence_BelowThreshold(t *testing.T) {
	in := Input{
		Activity: []model.ActivityEntry{{Detail: "TS2345 error"}, {Detail: "TypeError error"}},
		Triggers: triggers(t, map[string]string{trigger.ErrorResolved: "error"}),
	}
	assert.Empty(t, (&ErrorRecurrence{Threshold: 2}).Detect(in))
}

func TestErrorRecurrence_CustomExtractor(t *testing.T) {
	in := Input{
		Activity: []model.ActivityEntry{{Detail: "E42 failure"}, {Detail: "E42 failure"}},
		Triggers: triggers(t, map[string]string{trigger.ErrorResolved: "failure"}),
	}
	codes := model.ExtractorFunc(func(text string) []string {
		return []string{strings.Fields(text)[0]}
	})

	got := (&ErrorRecurrence{Codes: codes}).Detect(in)
	require.Len(t, got, 1)
	assert.Equal(t, "E42 Error Pattern", got[0].Title)
}

func TestRepeatedEdits_Scenario(t *testing.T) {
	var activity []model.ActivityEntry
	for i := 0; i < 5; i++ {
		activity = append(activity, agentDone("[done] src/app.ts"))
	}

	got := (&RepeatedEdits{Threshold: 3, AgentType: DefaultAgentType}).Detect(Input{Activity: activity})
	require.Len(t, got, 1)
	assert.Equal(t, CategoryUserCorrections, got[0].Category)
	assert.Contains(t, got[0].Problem, "src/app.ts (5x)")
	assert.Equal(t, []string{"repeated edit", "correction", "app.ts"}, got[0].Keywords)
	assert.Equal(t, "These files required repeated modifications. Consider reviewing the approach for these areas.", got[0].Solution)
}

func TestRepeatedEdits_FiltersActivity(t *testing.T) {
	activity := []model.ActivityEntry{
		agentDone("[done] src/app.ts"),
		agentDone("[done] src/app.ts"),
		{Type: "AGENT", Phase: "PLAN", Detail: "[done] src/app.ts"},
		{Type: "AGENT", Phase: "EXECUTE", Detail: "started src/app.ts"},
		{Type: "HOOK", Phase: "EXECUTE", Detail: "[done] src/app.ts"},
	}

	assert.Empty(t, (&RepeatedEdits{Threshold: 3, AgentType: DefaultAgentType}).Detect(Input{Activity: activity}))
	assert.Len(t, (&RepeatedEdits{Threshold: 3}).Detect(Input{Activity: activity}), 1, "empty agent type accepts any type")
}

func TestRepeatedEdits_CombinesChangesAndOrdersByCount(t *testing.T) {
	records := []model.ChangeRecord{
		{Tool: model.ToolEdit, File: "src/b.ts", OldContent: "b1", NewContent: "b2"},
		{Tool: model.ToolEdit, File: "src/b.ts", OldContent: "b2", NewContent: "b3"},
		{Tool: model.ToolEdit, File: "src/b.ts", OldContent: "b3", NewContent: "b4"},
		{Tool: model.ToolEdit, File: "src/b.ts", OldContent: "b4", NewContent: "b5"},
		{Tool: model.ToolEdit, File: "src/a.ts", OldContent: "a1", NewContent: "a2"},
	}
	in := Input{
		Activity: []model.ActivityEntry{agentDone("[done] src/a.ts"), agentDone("[done] src/a.ts")},
		Changes:  changes.NewIndex(records),
	}

	got := (&RepeatedEdits{Threshold: 3, AgentType: DefaultAgentType}).Detect(in)
	require.Len(t, got, 1)
	assert.Equal(t, "Files edited multiple times in execution phase: src/b.ts (4x), src/a.ts (3x)", got[0].Problem)
	assert.Equal(t, "Multiple iterations were needed. Review the final changes to understand the solution pattern.", got[0].Solution)
	// the two most recent changes of the most-repeated file come first
	assert.Contains(t, got[0].CodeExample, "b3")
	assert.Contains(t, got[0].CodeExample, "b5")
	assert.NotContains(t, got[0].CodeExample, "b1")
}

func TestWorkarounds(t *testing.T) {
	long := strings.Repeat("w", 300)
	in := Input{
		Activity: []model.ActivityEntry{
			{Name: "fix", Detail: "workaround " + long},
			{Name: "fix", Detail: "another workaround"},
			{Name: "fix", Detail: "clean"},
		},
		Triggers: triggers(t, map[string]string{trigger.Workaround: "workaround"}),
	}

	got := (&Workarounds{Threshold: 2}).Detect(in)
	require.Len(t, got, 1)
	sample := ("fix workaround " + long)[:200]
	assert.Equal(t, "Workaround applied 2 times. Sample: "+sample, got[0].Problem)
	assert.Empty(t, got[0].CodeExample)
}

func TestWorkarounds_NeedsTriggerAndTwoLines(t *testing.T) {
	activity := []model.ActivityEntry{{Detail: "workaround"}}
	assert.Empty(t, (&Workarounds{}).Detect(Input{Activity: append(activity, activity...)}))

	in := Input{Activity: activity, Triggers: triggers(t, map[string]string{trigger.Workaround: "workaround"})}
	assert.Empty(t, (&Workarounds{}).Detect(in))
}

func TestTDDIssues_ConsecutiveFailures(t *testing.T) {
	tests := logLines("test failed", "test failed", "test failed", "test failed", "all passing", "test failed")

	got := (&TDDIssues{FailureRun: 3, Violations: 2}).Detect(Input{Tests: tests})
	require.Len(t, got, 1)
	assert.Equal(t, CategoryDebuggingTechniques, got[0].Category)
	assert.Equal(t, "Tests failed 4 times consecutively during session", got[0].Problem)
}

func TestTDDIssues_RunBelowThreshold(t *testing.T) {
	tests := logLines("FAIL a", "FAIL b", "ok", "FAIL c", "FAIL d")
	assert.Equal(t, 2, LongestFailureRun(tests, failureRE))
	assert.Empty(t, (&TDDIssues{}).Detect(Input{Tests: tests}))
}

func TestTDDIssues_GuardViolations(t *testing.T) {
	guard := logLines("Edit BLOCKED", "write rejected", "all fine")

	got := (&TDDIssues{}).Detect(Input{Guard: guard})
	require.Len(t, got, 1)
	assert.Equal(t, CategoryBestPractices, got[0].Category)
	assert.Contains(t, got[0].Problem, "TDD guard triggered 2 times")
}

func TestSuite_Run(t *testing.T) {
	in := Input{
		Activity: []model.ActivityEntry{
			{Type: "AGENT", Phase: "EXECUTE", Detail: "TS2345 error workaround"},
			{Type: "AGENT", Phase: "EXECUTE", Detail: "TS2345 error workaround"},
		},
		Guard: logLines("violation", "violation"),
		Triggers: triggers(t, map[string]string{
			trigger.ErrorResolved: "error",
			trigger.Workaround:    "workaround",
		}),
	}

	got, err := DefaultSuite(DefaultThresholds(), DefaultAgentType).Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, CategoryErrorResolution, got[0].Category)
	assert.Equal(t, CategoryWorkarounds, got[1].Category)
	assert.Equal(t, CategoryBestPractices, got[2].Category)
}

func TestSuite_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DefaultSuite(DefaultThresholds(), DefaultAgentType).Run(ctx, Input{})
	assert.ErrorIs(t, err, context.Canceled)
}
