package detect

import (
	"fmt"

	"sessionlearn/internal/model"
	"sessionlearn/internal/trigger"
)

const workaroundSampleLen = 200

// Workarounds reports activity lines flagged by the workaround trigger.
type Workarounds struct {
	Threshold int
}

// Name implements Detector.
func (d *Workarounds) Name() string { return "workarounds" }

// Detect implements Detector.
func (d *Workarounds) Detect(in Input) []model.Candidate {
	tr := in.Triggers.Get(trigger.Workaround)
	if !tr.Defined() {
		return nil
	}

	var lines []string
	for _, e := range in.Activity {
		if text := e.Text(); tr.MatchString(text) {
			lines = append(lines, text)
		}
	}
	if len(lines) == 0 || len(lines) < thresholdOr(d.Threshold, DefaultThresholds().Workaround) {
		return nil
	}

	return []model.Candidate{{
		Category: CategoryWorkarounds,
		Title:    "Workaround Pattern Detected",
		Problem: fmt.Sprintf("Workaround applied %d times. Sample: %s",
			len(lines), truncateRunes(lines[0], workaroundSampleLen)),
		Solution: "Consider finding a proper solution to replace the workaround.",
		Keywords: []string{"workaround", "temporary", "alternative"},
	}}
}
