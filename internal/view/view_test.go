package view

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionlearn/internal/model"
	"sessionlearn/internal/store"
)

func sampleRecord() model.Record {
	return model.Record{
		ID:          "workarounds-20250102030405-deadbeef",
		Title:       "Workaround Pattern Detected",
		Category:    "workarounds",
		Problem:     "Found 2 workaround patterns in session.",
		Solution:    "Document workarounds and create follow-up tasks.",
		CodeExample: "```go\nx := legacyValue() // keep\n```",
		Keywords:    []string{"workaround", "hack", "temporary"},
		UsageCount:  3,
		LastUsed:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRenderRecordPlain(t *testing.T) {
	lines := RenderRecord(sampleRecord(), 80, false)
	require.GreaterOrEqual(t, len(lines), 3)

	assert.Equal(t, "[workarounds] Workaround Pattern Detected", lines[0])
	assert.Equal(t, "workarounds-20250102030405-deadbeef | uses 3 | last used 2025-01-02T03:04:05Z", lines[1])
	assert.Equal(t, strings.Repeat("-", len(lines[0])), lines[2])

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "\nProblem\n| Found 2 workaround patterns in session.")
	assert.Contains(t, joined, "\nCode Example\n| ```go\n| x := legacyValue() // keep\n| ```")
	assert.Contains(t, joined, "\nTrigger Keywords\n| workaround, hack, temporary")
	assert.NotContains(t, joined, "\x1b[")
}

func TestRenderRecordWrapsProseOnly(t *testing.T) {
	rec := sampleRecord()
	rec.Problem = strings.Repeat("a", 30)
	rec.CodeExample = strings.Repeat("b", 30)

	lines := RenderRecord(rec, 12, false)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "| aaaaaaaaaa\n| aaaaaaaaaa\n| aaaaaaaaaa")
	assert.Contains(t, joined, "| "+strings.Repeat("b", 30))
}

func TestRenderRecordSkipsEmptySections(t *testing.T) {
	rec := sampleRecord()
	rec.CodeExample = ""
	joined := strings.Join(RenderRecord(rec, 80, false), "\n")
	assert.NotContains(t, joined, "Code Example")
}

func TestRenderRecordColor(t *testing.T) {
	lines := RenderRecord(sampleRecord(), 80, true)
	assert.Contains(t, lines[0], ansiTool)
	assert.Equal(t, RenderRecord(sampleRecord(), 80, false)[2], lines[2], "rule ignores escape codes")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"abc", "def"}, wrapText("abcdef", 3))
	assert.Equal(t, []string{""}, wrapText("   ", 3))
	assert.Equal(t, []string{"日本", "語"}, wrapText("日本語", 4))
	assert.Equal(t, []string{"as is"}, wrapText("as is", 0))
}

func TestWrapTextBreaksBetweenWords(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"fits", "the quick", 9, []string{"the quick"}},
		{"word boundary", "the quick brown fox", 9, []string{"the quick", "brown fox"}},
		{"collapses runs of spaces", "a   b", 5, []string{"a b"}},
		{"long word split", "ab cdefghij", 4, []string{"ab", "cdef", "ghij"}},
		{"keeps indentation", "  - item one", 8, []string{"  - item", "one"}},
		{"wide runes", "日本 語", 4, []string{"日本", "語"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapText(tt.text, tt.width))
		})
	}
}

func TestPagerCommand(t *testing.T) {
	assert.Equal(t, []string{"sh", "-c", "more -s"}, pagerCommand("more -s", true).Args)
	assert.Equal(t, []string{"less", "-R"}, pagerCommand("", true).Args)
	assert.Equal(t, []string{"less"}, pagerCommand("", false).Args)
}

func TestOptionsColorAndWidth(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("COLUMNS", "")
	assert.True(t, Options{ForceColor: true}.useColor())
	assert.False(t, Options{ForceNoColor: true}.useColor())
	assert.False(t, Options{Out: &bytes.Buffer{}}.useColor(), "non-terminal output is plain")
	assert.False(t, Options{}.paged())

	assert.Equal(t, 42, Options{Wrap: 42}.width())
	assert.Equal(t, 80, Options{}.width())
	t.Setenv("COLUMNS", "100")
	assert.Equal(t, 100, Options{}.width())

	t.Setenv("NO_COLOR", "1")
	assert.False(t, Options{}.useColor())
	assert.True(t, Options{ForceColor: true}.useColor())
}

func writeRecord(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	s := store.New(dir)
	rec := sampleRecord()
	path, err := s.Create(model.Candidate{
		Category:    rec.Category,
		Title:       rec.Title,
		Problem:     rec.Problem,
		Solution:    rec.Solution,
		CodeExample: rec.CodeExample,
		Keywords:    rec.Keywords,
	})
	require.NoError(t, err)
	return path
}

func TestRunFormatRaw(t *testing.T) {
	path := writeRecord(t)
	var buf bytes.Buffer
	require.NoError(t, Run(Options{Path: path, Format: "raw", Out: &buf}))

	want, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(want), buf.String())
}

func TestRunFormatText(t *testing.T) {
	path := writeRecord(t)
	var buf bytes.Buffer
	require.NoError(t, Run(Options{Path: path, Out: &buf, Wrap: 100}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[workarounds] Workaround Pattern Detected\n"))
	assert.Contains(t, out, "| uses 1 |")
}

func TestRunErrors(t *testing.T) {
	path := writeRecord(t)
	assert.Error(t, Run(Options{Path: path, Format: "html", Out: &bytes.Buffer{}}))
	assert.Error(t, Run(Options{Path: filepath.Join(t.TempDir(), "missing.md"), Out: &bytes.Buffer{}}))
}
