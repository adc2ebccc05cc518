package detect

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"sessionlearn/internal/format"
	"sessionlearn/internal/model"
)

const (
	maxListedFiles   = 5
	maxExampleFiles  = 2
	changesPerFile   = 2
	maxKeywordFiles  = 3
	executePhase     = "EXECUTE"
	doneMarker       = "[done]"
	DefaultAgentType = "AGENT"
)

// RepeatedEdits reports files that had to be touched again and again,
// counting finished EXECUTE-phase activity entries and change-log records.
type RepeatedEdits struct {
	Threshold int
	// AgentType restricts activity entries to this type; empty accepts any.
	AgentType string
	// Paths extracts file paths from activity detail; nil means FilePaths().
	Paths model.Extractor
}

// Name implements Detector.
func (d *RepeatedEdits) Name() string { return "repeated_edits" }

type fileCount struct {
	file  string
	count int
}

// Detect implements Detector.
func (d *RepeatedEdits) Detect(in Input) []model.Candidate {
	extract := d.Paths
	if extract == nil {
		extract = FilePaths()
	}
	threshold := thresholdOr(d.Threshold, DefaultThresholds().RepeatedEdit)

	files := newCounter()
	for _, e := range in.Activity {
		if d.AgentType != "" && e.Type != d.AgentType {
			continue
		}
		if e.Phase != executePhase || !strings.Contains(e.Detail, doneMarker) {
			continue
		}
		for _, p := range extract.Extract(e.Detail) {
			files.add(p)
		}
	}
	for _, rec := range in.Changes.All() {
		if rec.File != "" {
			files.add(rec.File)
		}
	}

	var repeated []fileCount
	for _, f := range files.order {
		if n := files.counts[f]; n >= threshold {
			repeated = append(repeated, fileCount{file: f, count: n})
		}
	}
	if len(repeated) == 0 {
		return nil
	}
	sort.SliceStable(repeated, func(i, j int) bool {
		return repeated[i].count > repeated[j].count
	})

	listed := make([]string, 0, maxListedFiles)
	for _, fc := range head(repeated, maxListedFiles) {
		listed = append(listed, fmt.Sprintf("%s (%dx)", fc.file, fc.count))
	}

	var related []model.ChangeRecord
	for _, fc := range head(repeated, maxExampleFiles) {
		forFile := in.Changes.ForFile(fc.file)
		if len(forFile) > changesPerFile {
			forFile = forFile[len(forFile)-changesPerFile:]
		}
		related = append(related, forFile...)
	}

	solution := "These files required repeated modifications. Consider reviewing the approach for these areas."
	if len(related) > 0 {
		solution = "Multiple iterations were needed. Review the final changes to understand the solution pattern."
	}

	keywords := []string{"repeated edit", "correction"}
	for _, fc := range head(repeated, maxKeywordFiles) {
		keywords = append(keywords, path.Base(fc.file))
	}

	return []model.Candidate{{
		Category:    CategoryUserCorrections,
		Title:       "Repeated File Edits",
		Problem:     "Files edited multiple times in execution phase: " + strings.Join(listed, ", "),
		Solution:    solution,
		CodeExample: format.CodeExample(related, format.DefaultMaxExamples),
		Keywords:    keywords,
	}}
}

func head(items []fileCount, n int) []fileCount {
	if len(items) > n {
		return items[:n]
	}
	return items
}
