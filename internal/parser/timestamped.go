package parser

import (
	"context"
	"regexp"
	"strings"

	"sessionlearn/internal/model"
)

var timestampedRE = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\]\s+(.*)`)

// ReadTestLog parses the test-run log ("[YYYY-MM-DD HH:MM:SS] message").
func ReadTestLog(ctx context.Context, path string, opts Options) Result[model.LogEntry] {
	return readTimestamped(ctx, path, opts)
}

// ReadGuardLog parses the TDD-guard log, which shares the test-run layout.
func ReadGuardLog(ctx context.Context, path string, opts Options) Result[model.LogEntry] {
	return readTimestamped(ctx, path, opts)
}

func readTimestamped(ctx context.Context, path string, opts Options) Result[model.LogEntry] {
	return readLines(ctx, path, opts, func(line string) (model.LogEntry, bool, bool) {
		if strings.TrimSpace(line) == "" {
			return model.LogEntry{}, false, true
		}
		entry, ok := ParseTimestampedLine(line)
		return entry, ok, false
	})
}

// ParseTimestampedLine parses one bracketed-timestamp line.
func ParseTimestampedLine(line string) (model.LogEntry, bool) {
	m := timestampedRE.FindStringSubmatch(line)
	if m == nil {
		return model.LogEntry{}, false
	}
	return model.LogEntry{
		Timestamp: m[1],
		Message:   strings.TrimSpace(m[2]),
	}, true
}
