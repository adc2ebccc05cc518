package store

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultSimilarity is the Jaccard score at or above which a candidate is
// treated as a duplicate of an existing record.
const DefaultSimilarity = 0.5

// KeywordSet is a lowercase, trimmed set of trigger keywords.
type KeywordSet map[string]struct{}

// NewKeywordSet lowercases and trims keywords, dropping empty ones.
func NewKeywordSet(keywords []string) KeywordSet {
	set := make(KeywordSet, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b KeywordSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Entry is one known record: its path and keyword set.
type Entry struct {
	Path     string
	Keywords KeywordSet
}

// Library is the in-memory view of existing records used for dedup. It
// grows as records are created during a run.
type Library struct {
	entries   []Entry
	threshold float64
}

// NewLibrary returns an empty library with the given similarity threshold.
// A non-positive threshold falls back to DefaultSimilarity.
func NewLibrary(threshold float64) *Library {
	if threshold <= 0 {
		threshold = DefaultSimilarity
	}
	return &Library{threshold: threshold}
}

// LoadLibrary reads the keyword line of every record in the store
// directory. A missing directory yields an empty library; unreadable files
// are skipped.
func (s *Store) LoadLibrary(threshold float64) *Library {
	lib := NewLibrary(threshold)

	paths, err := s.recordPaths()
	if err != nil {
		s.logger.Warn("cannot list pattern dir", zap.String("dir", s.dir), zap.Error(err))
		return lib
	}
	for _, path := range paths {
		data, err := s.fs.ReadFile(path)
		if err != nil {
			s.logger.Debug("skipping unreadable record", zap.String("path", path), zap.Error(err))
			continue
		}
		lib.entries = append(lib.entries, Entry{
			Path:     path,
			Keywords: NewKeywordSet(splitKeywords(keywordLine(string(data)))),
		})
	}
	s.logger.Debug("pattern library loaded", zap.Int("records", len(lib.entries)))
	return lib
}

// keywordLine returns the first non-empty line after the last Trigger
// Keywords heading, stopping at the next heading. Earlier occurrences can
// only be quoted text inside the code example.
func keywordLine(content string) string {
	lines := strings.Split(content, "\n")
	start := lastHeading(lines, headKeywords)
	if start < 0 {
		return ""
	}
	for _, line := range lines[start+1:] {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "##") {
			break
		}
		if line != "" {
			return line
		}
	}
	return ""
}

// Len reports the number of entries.
func (l *Library) Len() int { return len(l.entries) }

// Entries returns a copy of the entries in load order.
func (l *Library) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Add records a newly created record so later candidates in the same run
// can match it.
func (l *Library) Add(path string, keywords []string) {
	l.entries = append(l.entries, Entry{Path: path, Keywords: NewKeywordSet(keywords)})
}

// FindDuplicate returns the path of the first entry whose keyword set has a
// Jaccard similarity at or above the threshold. Empty queries and entries
// with no keywords never match.
func (l *Library) FindDuplicate(keywords []string) (string, bool) {
	query := NewKeywordSet(keywords)
	if len(query) == 0 {
		return "", false
	}
	for _, e := range l.entries {
		if len(e.Keywords) == 0 {
			continue
		}
		if Jaccard(query, e.Keywords) >= l.threshold {
			return e.Path, true
		}
	}
	return "", false
}
