package detect

import (
	"fmt"
	"regexp"
	"strings"

	"sessionlearn/internal/format"
	"sessionlearn/internal/model"
	"sessionlearn/internal/trigger"
)

// maxSolutionFiles bounds how many related changes name files in the solution text.
const maxSolutionFiles = 3

// ErrorRecurrence reports error codes that show up repeatedly in lines
// flagged by the errorResolved trigger.
type ErrorRecurrence struct {
	Threshold int
	// Codes extracts error codes from a flagged line; nil means ErrorCodes().
	Codes model.Extractor
}

// Name implements Detector.
func (d *ErrorRecurrence) Name() string { return "error_recurrence" }

// Detect implements Detector.
func (d *ErrorRecurrence) Detect(in Input) []model.Candidate {
	tr := in.Triggers.Get(trigger.ErrorResolved)
	if !tr.Defined() {
		return nil
	}
	extract := d.Codes
	if extract == nil {
		extract = ErrorCodes()
	}
	threshold := thresholdOr(d.Threshold, DefaultThresholds().ErrorRecurrence)

	var lines []string
	for _, e := range in.Activity {
		if text := e.Text(); tr.MatchString(text) {
			lines = append(lines, text)
		}
	}
	for _, te := range in.Tests {
		if tr.MatchString(te.Message) {
			lines = append(lines, te.Message)
		}
	}

	codes := newCounter()
	firstContext := make(map[string]string)
	for _, line := range lines {
		for _, code := range extract.Extract(line) {
			codes.add(code)
			if _, ok := firstContext[code]; !ok {
				firstContext[code] = line
			}
		}
	}

	var out []model.Candidate
	for _, code := range codes.order {
		count := codes.counts[code]
		if count < threshold {
			continue
		}

		related := in.Changes.Matching(regexp.MustCompile("(?i)" + regexp.QuoteMeta(code)))
		solution := "Recurring error detected from logs. Review context: " + firstContext[code]
		if len(related) > 0 {
			files := distinctFiles(related, maxSolutionFiles)
			solution = fmt.Sprintf("Error '%s' was resolved by modifying: %s. See code examples below.",
				code, strings.Join(files, ", "))
		}

		out = append(out, model.Candidate{
			Category:    CategoryErrorResolution,
			Title:       code + " Error Pattern",
			Problem:     fmt.Sprintf("'%s' error occurred %d times during session", code, count),
			Solution:    solution,
			CodeExample: format.CodeExample(related, format.DefaultMaxExamples),
			Keywords:    []string{code, "error", "resolution"},
		})
	}
	return out
}

// distinctFiles returns the distinct non-empty file names among the first
// limit records, in order.
func distinctFiles(records []model.ChangeRecord, limit int) []string {
	if len(records) > limit {
		records = records[:limit]
	}
	seen := make(map[string]bool, len(records))
	var files []string
	for _, rec := range records {
		if rec.File == "" || seen[rec.File] {
			continue
		}
		seen[rec.File] = true
		files = append(files, rec.File)
	}
	return files
}
