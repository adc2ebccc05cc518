package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sessionlearn/internal/model"
)

const (
	titlePrefix     = "# Pattern: "
	headID          = "## ID"
	headCategory    = "## Category"
	headCreated     = "## Created"
	headProblem     = "## Problem"
	headSolution    = "## Solution"
	headCodeExample = "## Code Example"
	headKeywords    = "## Trigger Keywords"
	headUsageCount  = "## Usage Count"
	headLastUsed    = "## Last Used"

	noExample = "_No code example captured for this session._"
)

var knownHeadings = map[string]struct{}{
	headID: {}, headCategory: {}, headCreated: {}, headProblem: {},
	headSolution: {}, headCodeExample: {}, headKeywords: {},
	headUsageCount: {}, headLastUsed: {},
}

var errNoTitle = errors.New("missing pattern title")

// Render produces the markdown body of a new record with usage count 1.
func Render(id string, c model.Candidate, now time.Time) string {
	stamp := now.UTC().Format(stampTime)

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n\n", titlePrefix, c.Title)
	section(&b, headID, id)
	section(&b, headCategory, c.Category)
	section(&b, headCreated, stamp)
	section(&b, headProblem, c.Problem)
	section(&b, headSolution, c.Solution)
	section(&b, headCodeExample, codeSection(c.CodeExample))
	section(&b, headKeywords, strings.Join(c.Keywords, ", "))
	section(&b, headUsageCount, "1")
	fmt.Fprintf(&b, "%s\n%s\n", headLastUsed, stamp)
	return b.String()
}

func section(b *strings.Builder, heading, body string) {
	fmt.Fprintf(b, "%s\n%s\n\n", heading, body)
}

// codeSection keeps pre-formatted markdown as is and fences anything else.
func codeSection(example string) string {
	switch {
	case example == "":
		return noExample
	case strings.Contains(example, "```") || strings.HasPrefix(example, "###"):
		return example
	default:
		return "```\n" + example + "\n```"
	}
}

// ParseRecord reads a rendered record back into its fields. The code
// example is taken verbatim up to the last Trigger Keywords heading, so
// headings quoted inside it never open a section. Unknown headings stay
// part of the preceding section body.
func ParseRecord(content string) (model.Record, error) {
	lines := strings.Split(content, "\n")

	headEnd, tailStart := len(lines), len(lines)
	if kw := lastHeading(lines, headKeywords); kw >= 0 {
		headEnd, tailStart = kw, kw
	}
	var code []string
	if c := firstHeading(lines[:headEnd], headCodeExample); c >= 0 {
		code = lines[c+1 : headEnd]
		headEnd = c
	}

	var rec model.Record
	sections := map[string][]string{}
	if len(lines) > 0 && strings.HasPrefix(lines[0], titlePrefix) {
		rec.Title = strings.TrimSpace(strings.TrimPrefix(lines[0], titlePrefix))
		collectSections(lines[1:headEnd], sections)
	} else {
		return model.Record{}, errNoTitle
	}
	collectSections(lines[tailStart:], sections)

	body := func(h string) string { return strings.Trim(strings.Join(sections[h], "\n"), "\n") }

	rec.ID = strings.TrimSpace(body(headID))
	rec.Category = strings.TrimSpace(body(headCategory))
	rec.Problem = body(headProblem)
	rec.Solution = body(headSolution)
	if ex := strings.Trim(strings.Join(code, "\n"), "\n"); ex != noExample {
		rec.CodeExample = ex
	}
	rec.Keywords = splitKeywords(firstLine(sections[headKeywords]))
	rec.Created = parseStamp(body(headCreated))
	rec.LastUsed = parseStamp(body(headLastUsed))
	if n, err := strconv.Atoi(strings.TrimSpace(body(headUsageCount))); err == nil {
		rec.UsageCount = n
	}
	return rec, nil
}

func collectSections(lines []string, sections map[string][]string) {
	current := ""
	for _, line := range lines {
		if _, ok := knownHeadings[strings.TrimSpace(line)]; ok {
			current = strings.TrimSpace(line)
			continue
		}
		if current != "" {
			sections[current] = append(sections[current], line)
		}
	}
}

func firstHeading(lines []string, heading string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) == heading {
			return i
		}
	}
	return -1
}

func lastHeading(lines []string, heading string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == heading {
			return i
		}
	}
	return -1
}

func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func firstLine(lines []string) string {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}

func splitKeywords(line string) []string {
	var out []string
	for _, k := range strings.Split(line, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
