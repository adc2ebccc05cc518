// Package model provides the record types shared by the readers, detectors and store.
package model

import "time"

// ActivityEntry is one parsed line of the activity log.
type ActivityEntry struct {
	Timestamp string // log-native format, not parsed
	Type      string // e.g. "AGENT"
	Phase     string // e.g. "EXECUTE"
	Name      string
	Detail    string
}

// Text returns the name and detail joined by a single space, the form
// triggers are matched against.
func (e ActivityEntry) Text() string {
	return e.Name + " " + e.Detail
}

// LogEntry is one bracketed-timestamp line of the test-run or TDD-guard log.
type LogEntry struct {
	Timestamp string
	Message   string
}

// Tool identifies the editing tool that produced a ChangeRecord.
type Tool string

const (
	ToolEdit  Tool = "Edit"
	ToolWrite Tool = "Write"
)

// ChangeRecord is one line of the structured change log. Edit records carry
// OldContent/NewContent, Write records carry ContentSample.
type ChangeRecord struct {
	Timestamp     string `json:"timestamp"`
	Tool          Tool   `json:"tool"`
	File          string `json:"file"`
	Language      string `json:"language"`
	OldContent    string `json:"old_string,omitempty"`
	NewContent    string `json:"new_string,omitempty"`
	ContentSample string `json:"content_sample,omitempty"`
}

// Candidate is a pattern description produced by a detector and not yet persisted.
type Candidate struct {
	Category    string
	Title       string
	Problem     string
	Solution    string
	CodeExample string
	Keywords    []string
}

// Record is a persisted pattern as read back from the pattern directory.
type Record struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Created     time.Time `json:"created"`
	Problem     string    `json:"problem"`
	Solution    string    `json:"solution"`
	CodeExample string    `json:"code_example"`
	Keywords    []string  `json:"trigger_keywords"`
	UsageCount  int       `json:"usage_count"`
	LastUsed    time.Time `json:"last_used"`
}
