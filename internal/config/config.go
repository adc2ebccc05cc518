// Package config holds sessionlearn settings and loads them from a config
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"sessionlearn/internal/detect"
	"sessionlearn/internal/store"
	"sessionlearn/internal/trigger"
)

// Default locations, relative to the project root.
const (
	DefaultActivityLog = ".orchestra/logs/activity.jsonl"
	DefaultTestLog     = ".orchestra/logs/test-runs.log"
	DefaultGuardLog    = ".orchestra/logs/tdd-guard.log"
	DefaultChangesLog  = ".orchestra/logs/changes.jsonl"
	DefaultConfigPath  = "hooks/learning/config.json"
	DefaultPatternsDir = "hooks/learning/learned-patterns"
)

// Config is the full runtime configuration.
type Config struct {
	Logs       LogsConfig              `koanf:"logs"`
	Patterns   PatternsConfig          `koanf:"patterns"`
	Thresholds ThresholdsConfig        `koanf:"thresholds"`
	Timeout    time.Duration           `koanf:"timeout"`
	Logging    LoggingConfig           `koanf:"logging"`
	Triggers   map[string]trigger.Spec `koanf:"triggers"`
}

// LogsConfig locates the four session logs and bounds how much of each is read.
type LogsConfig struct {
	Activity         string `koanf:"activity"`
	Tests            string `koanf:"tests"`
	Guard            string `koanf:"guard"`
	Changes          string `koanf:"changes"`
	MaxBytes         int64  `koanf:"max_bytes"`
	MaxActivityLines int    `koanf:"max_activity_lines"`
	MaxTestLines     int    `koanf:"max_test_lines"`
	MaxGuardLines    int    `koanf:"max_guard_lines"`
	MaxChanges       int    `koanf:"max_changes"`
}

// PatternsConfig controls the pattern store.
type PatternsConfig struct {
	Dir        string  `koanf:"dir"`
	MaxPerRun  int     `koanf:"max_per_run"`
	Similarity float64 `koanf:"similarity"`
}

// ThresholdsConfig holds detector thresholds.
type ThresholdsConfig struct {
	ErrorRecurrence     int    `koanf:"error_recurrence"`
	RepeatedEdit        int    `koanf:"repeated_edit"`
	Workaround          int    `koanf:"workaround"`
	ConsecutiveFailures int    `koanf:"consecutive_failures"`
	GuardViolations     int    `koanf:"guard_violations"`
	AgentType           string `koanf:"agent_type"`
}

// LoggingConfig configures the diagnostic logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the stock configuration with no triggers.
func Default() *Config {
	th := detect.DefaultThresholds()
	return &Config{
		Logs: LogsConfig{
			Activity:         DefaultActivityLog,
			Tests:            DefaultTestLog,
			Guard:            DefaultGuardLog,
			Changes:          DefaultChangesLog,
			MaxBytes:         10 * 1024 * 1024,
			MaxActivityLines: 10000,
			MaxTestLines:     5000,
			MaxGuardLines:    5000,
			MaxChanges:       1000,
		},
		Patterns: PatternsConfig{
			Dir:        DefaultPatternsDir,
			MaxPerRun:  5,
			Similarity: store.DefaultSimilarity,
		},
		Thresholds: ThresholdsConfig{
			ErrorRecurrence:     th.ErrorRecurrence,
			RepeatedEdit:        th.RepeatedEdit,
			Workaround:          th.Workaround,
			ConsecutiveFailures: th.ConsecutiveFailures,
			GuardViolations:     th.GuardViolations,
			AgentType:           detect.DefaultAgentType,
		},
		Timeout: 30 * time.Second,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DetectThresholds converts the threshold section for the detector suite.
func (t ThresholdsConfig) DetectThresholds() detect.Thresholds {
	return detect.Thresholds{
		ErrorRecurrence:     t.ErrorRecurrence,
		RepeatedEdit:        t.RepeatedEdit,
		Workaround:          t.Workaround,
		ConsecutiveFailures: t.ConsecutiveFailures,
		GuardViolations:     t.GuardViolations,
	}
}

// Validate checks value ranges. Zero timeout means no deadline and a zero
// line cap means unlimited; detector thresholds must be at least 1.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.Patterns.MaxPerRun < 0 {
		return fmt.Errorf("invalid max patterns per run: %d", c.Patterns.MaxPerRun)
	}
	if c.Patterns.Similarity <= 0 || c.Patterns.Similarity > 1 {
		return fmt.Errorf("invalid similarity threshold: %g (must be in (0, 1])", c.Patterns.Similarity)
	}
	if c.Logs.MaxBytes < 0 {
		return fmt.Errorf("invalid max log size: %d", c.Logs.MaxBytes)
	}

	caps := map[string]int{
		"logs.max_activity_lines": c.Logs.MaxActivityLines,
		"logs.max_test_lines":     c.Logs.MaxTestLines,
		"logs.max_guard_lines":    c.Logs.MaxGuardLines,
		"logs.max_changes":        c.Logs.MaxChanges,
	}
	for key, v := range caps {
		if v < 0 {
			return fmt.Errorf("%s must not be negative: %d", key, v)
		}
	}

	// A detector fires once a count reaches its threshold, so 0 is meaningless.
	thresholds := map[string]int{
		"thresholds.error_recurrence":     c.Thresholds.ErrorRecurrence,
		"thresholds.repeated_edit":        c.Thresholds.RepeatedEdit,
		"thresholds.workaround":           c.Thresholds.Workaround,
		"thresholds.consecutive_failures": c.Thresholds.ConsecutiveFailures,
		"thresholds.guard_violations":     c.Thresholds.GuardViolations,
	}
	for key, v := range thresholds {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1: %d", key, v)
		}
	}
	return nil
}
