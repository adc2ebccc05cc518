package parser

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"sessionlearn/internal/model"
)

// activityLegacyRE matches "[YYYY-MM-DD HH:MM:SS] TYPE | PHASE | NAME | DETAIL"
// where the trailing " | DETAIL" segment is optional.
var activityLegacyRE = regexp.MustCompile(
	`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\]\s+(\S+)\s+\|\s+(\S+)\s+\|\s+([^|]+?)(?:\s+\|\s+(.+))?$`)

// ReadActivity parses the activity log. Each line is tried as a JSON object
// carrying at least "ts" and "type", then as the legacy text layout.
func ReadActivity(ctx context.Context, path string, opts Options) Result[model.ActivityEntry] {
	return readLines(ctx, path, opts, func(line string) (model.ActivityEntry, bool, bool) {
		line = strings.TrimSpace(line)
		if line == "" {
			return model.ActivityEntry{}, false, true
		}
		entry, ok := ParseActivityLine(line)
		return entry, ok, false
	})
}

// ParseActivityLine parses a single trimmed activity line.
func ParseActivityLine(line string) (model.ActivityEntry, bool) {
	if entry, ok := parseActivityJSON(line); ok {
		return entry, true
	}
	return parseActivityLegacy(line)
}

func parseActivityJSON(line string) (model.ActivityEntry, bool) {
	if !strings.HasPrefix(line, "{") {
		return model.ActivityEntry{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return model.ActivityEntry{}, false
	}
	ts, hasTS := fields["ts"]
	typ, hasType := fields["type"]
	if !hasTS || !hasType {
		return model.ActivityEntry{}, false
	}

	entry := model.ActivityEntry{
		Timestamp: stringField(ts),
		Type:      stringField(typ),
		Phase:     "-",
		Name:      stringField(fields["name"]),
		Detail:    stringField(fields["detail"]),
	}
	if phase, ok := fields["phase"]; ok {
		entry.Phase = stringField(phase)
	}
	return entry, true
}

func parseActivityLegacy(line string) (model.ActivityEntry, bool) {
	m := activityLegacyRE.FindStringSubmatch(line)
	if m == nil {
		return model.ActivityEntry{}, false
	}
	return model.ActivityEntry{
		Timestamp: m[1],
		Type:      m[2],
		Phase:     m[3],
		Name:      strings.TrimSpace(m[4]),
		Detail:    strings.TrimSpace(m[5]),
	}, true
}

// stringField renders a JSON value as text: strings are unquoted, null and
// absent values become empty, anything else keeps its JSON spelling.
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}
