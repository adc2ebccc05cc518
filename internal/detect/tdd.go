package detect

import (
	"fmt"
	"regexp"

	"sessionlearn/internal/model"
)

var (
	failureRE   = regexp.MustCompile(`(?i)FAIL|failed|failure`)
	violationRE = regexp.MustCompile(`(?i)violation|blocked|rejected`)
)

// TDDIssues reports long runs of consecutive failing test messages and
// repeated TDD-guard violations.
type TDDIssues struct {
	FailureRun int
	Violations int
	// Failure and Violation override the stock message matchers when set.
	Failure   *regexp.Regexp
	Violation *regexp.Regexp
}

// Name implements Detector.
func (d *TDDIssues) Name() string { return "tdd_issues" }

// Detect implements Detector.
func (d *TDDIssues) Detect(in Input) []model.Candidate {
	defaults := DefaultThresholds()
	var out []model.Candidate

	if longest := LongestFailureRun(in.Tests, d.failure()); longest >= thresholdOr(d.FailureRun, defaults.ConsecutiveFailures) {
		out = append(out, model.Candidate{
			Category: CategoryDebuggingTechniques,
			Title:    "Consecutive Test Failures",
			Problem:  fmt.Sprintf("Tests failed %d times consecutively during session", longest),
			Solution: "Consider breaking down the problem into smaller steps when tests fail repeatedly.",
			Keywords: []string{"test failure", "consecutive", "debugging"},
		})
	}

	violation := d.violation()
	violations := 0
	for _, e := range in.Guard {
		if violation.MatchString(e.Message) {
			violations++
		}
	}
	if violations >= thresholdOr(d.Violations, defaults.GuardViolations) {
		out = append(out, model.Candidate{
			Category: CategoryBestPractices,
			Title:    "TDD Guard Violations",
			Problem:  fmt.Sprintf("TDD guard triggered %d times — code was modified without tests", violations),
			Solution: "Always write tests before implementation (RED → GREEN → REFACTOR).",
			Keywords: []string{"tdd", "violation", "test first", "best practice"},
		})
	}
	return out
}

func (d *TDDIssues) failure() *regexp.Regexp {
	if d.Failure != nil {
		return d.Failure
	}
	return failureRE
}

func (d *TDDIssues) violation() *regexp.Regexp {
	if d.Violation != nil {
		return d.Violation
	}
	return violationRE
}

// LongestFailureRun returns the longest run of consecutive messages matching
// fail. A non-matching message resets the run.
func LongestFailureRun(entries []model.LogEntry, fail *regexp.Regexp) int {
	run, longest := 0, 0
	for _, e := range entries {
		if !fail.MatchString(e.Message) {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	return longest
}
