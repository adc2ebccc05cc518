package detect

import (
	"regexp"
	"strings"

	"sessionlearn/internal/model"
)

var (
	errorCodeRE = regexp.MustCompile(`(TS\d{4}|[A-Z]\w*Error)`)
	filePathRE  = regexp.MustCompile(`(?:^|[\s"'])([./\w-]+\.[a-zA-Z]{1,5})(?:[\s"':,]|$)`)
)

// RegexExtractor returns the given capture group of every non-overlapping
// match, optionally filtered.
type RegexExtractor struct {
	Pattern *regexp.Regexp
	Group   int
	Keep    func(token string) bool
}

// Extract implements model.Extractor.
func (r RegexExtractor) Extract(text string) []string {
	if r.Pattern == nil {
		return nil
	}
	var out []string
	for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
		if r.Group >= len(m) {
			continue
		}
		token := m[r.Group]
		if token == "" {
			continue
		}
		if r.Keep != nil && !r.Keep(token) {
			continue
		}
		out = append(out, token)
	}
	return out
}

// ErrorCodes matches TypeScript diagnostics (TS + 4 digits) and capitalized
// identifiers ending in "Error".
func ErrorCodes() model.Extractor {
	return RegexExtractor{Pattern: errorCodeRE, Group: 1}
}

// FilePaths matches path-shaped tokens with a short extension. Tokens
// without a slash must contain at most one dot, which drops version strings
// and dotted identifiers.
func FilePaths() model.Extractor {
	return RegexExtractor{
		Pattern: filePathRE,
		Group:   1,
		Keep: func(p string) bool {
			return strings.Contains(p, "/") || strings.Count(p, ".") <= 1
		},
	}
}
