// Package detect runs the heuristic detectors over parsed session logs.
//
// Detectors are pure: they read an Input and return zero or more
// candidates. An empty result means nothing was found, never an error.
package detect

import (
	"context"

	"sessionlearn/internal/changes"
	"sessionlearn/internal/model"
	"sessionlearn/internal/trigger"
)

// Pattern categories written by the detectors.
const (
	CategoryErrorResolution     = "error_resolution"
	CategoryUserCorrections     = "user_corrections"
	CategoryWorkarounds         = "workarounds"
	CategoryDebuggingTechniques = "debugging_techniques"
	CategoryBestPractices       = "best_practices"
)

// Input is everything a detector may look at.
type Input struct {
	Activity []model.ActivityEntry
	Tests    []model.LogEntry
	Guard    []model.LogEntry
	Changes  *changes.Index
	Triggers trigger.Set
}

// Detector produces candidates from an Input.
type Detector interface {
	Name() string
	Detect(in Input) []model.Candidate
}

// Thresholds are the minimum counts at which each detector fires.
type Thresholds struct {
	ErrorRecurrence     int
	RepeatedEdit        int
	Workaround          int
	ConsecutiveFailures int
	GuardViolations     int
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ErrorRecurrence:     2,
		RepeatedEdit:        3,
		Workaround:          2,
		ConsecutiveFailures: 3,
		GuardViolations:     2,
	}
}

// Suite runs detectors in order.
type Suite struct {
	Detectors []Detector
}

// DefaultSuite returns the four stock detectors in their canonical order:
// error recurrence, repeated edits, workarounds, TDD issues.
func DefaultSuite(th Thresholds, agentType string) Suite {
	return Suite{Detectors: []Detector{
		&ErrorRecurrence{Threshold: th.ErrorRecurrence},
		&RepeatedEdits{Threshold: th.RepeatedEdit, AgentType: agentType},
		&Workarounds{Threshold: th.Workaround},
		&TDDIssues{FailureRun: th.ConsecutiveFailures, Violations: th.GuardViolations},
	}}
}

// Run executes every detector and concatenates their candidates. The
// context is checked after each detector.
func (s Suite) Run(ctx context.Context, in Input) ([]model.Candidate, error) {
	var out []model.Candidate
	for _, d := range s.Detectors {
		out = append(out, d.Detect(in)...)
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// counter counts string keys and remembers first-seen order.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// thresholdOr returns v, or def when v is unset.
func thresholdOr(v, def int) int {
	if v < 1 {
		return def
	}
	return v
}
