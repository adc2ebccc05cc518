package format

import (
	"fmt"
	"strings"

	"sessionlearn/internal/model"
)

// DefaultMaxExamples is how many changes a code example draws from.
const DefaultMaxExamples = 2

// CodeExample renders the first maxExamples changes as markdown. Edit
// records become Before/After blocks, Write records a single "created"
// block. Records without usable content are skipped, so the result may hold
// fewer blocks than maxExamples, or be empty.
func CodeExample(changes []model.ChangeRecord, maxExamples int) string {
	if len(changes) == 0 {
		return ""
	}
	if maxExamples > 0 && len(changes) > maxExamples {
		changes = changes[:maxExamples]
	}

	examples := make([]string, 0, len(changes))
	for _, change := range changes {
		file := change.File
		if file == "" {
			file = "unknown"
		}
		lang := change.Language
		if lang == "" {
			lang = "text"
		}

		switch change.Tool {
		case model.ToolEdit:
			before := strings.TrimSpace(change.OldContent)
			after := strings.TrimSpace(change.NewContent)
			if before == "" || after == "" {
				continue
			}
			examples = append(examples, fmt.Sprintf(
				"### File: `%s`\n\n**Before:**\n```%s\n%s\n```\n\n**After:**\n```%s\n%s\n```",
				file, lang, before, lang, after))
		case model.ToolWrite:
			content := strings.TrimSpace(change.ContentSample)
			if content == "" {
				continue
			}
			examples = append(examples, fmt.Sprintf(
				"### File: `%s` (created)\n\n```%s\n%s\n```", file, lang, content))
		}
	}
	return strings.Join(examples, "\n\n")
}
