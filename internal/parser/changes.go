package parser

import (
	"context"
	"encoding/json"
	"strings"

	"sessionlearn/internal/model"
)

// ReadChanges parses the structured change log, one JSON object per line.
func ReadChanges(ctx context.Context, path string, opts Options) Result[model.ChangeRecord] {
	return readLines(ctx, path, opts, func(line string) (model.ChangeRecord, bool, bool) {
		line = strings.TrimSpace(line)
		if line == "" {
			return model.ChangeRecord{}, false, true
		}
		var rec model.ChangeRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return model.ChangeRecord{}, false, false
		}
		return rec, true, false
	})
}
