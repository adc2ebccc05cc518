package model

// Extractor pulls tokens (error codes, file paths, ...) out of free text.
// Detectors depend on this interface so that stricter or project-specific
// matchers can replace the default regular expressions.
type Extractor interface {
	Extract(text string) []string
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(text string) []string

// Extract calls f(text).
func (f ExtractorFunc) Extract(text string) []string { return f(text) }
