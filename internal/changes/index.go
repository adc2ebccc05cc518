// Package changes indexes parsed change-log records so detectors can recover
// concrete before/after snippets.
package changes

import (
	"regexp"

	"sessionlearn/internal/model"
)

// Index is a read-only lookup over change records. The zero value is an
// empty index.
type Index struct {
	records []model.ChangeRecord
	byFile  map[string][]int
}

// NewIndex builds an index over records, preserving their order.
func NewIndex(records []model.ChangeRecord) *Index {
	idx := &Index{
		records: records,
		byFile:  make(map[string][]int),
	}
	for i, rec := range records {
		if rec.File == "" {
			continue
		}
		idx.byFile[rec.File] = append(idx.byFile[rec.File], i)
	}
	return idx
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// All returns every record in log order.
func (idx *Index) All() []model.ChangeRecord {
	if idx == nil {
		return nil
	}
	return idx.records
}

// ForFile returns the records whose file field equals path exactly.
func (idx *Index) ForFile(path string) []model.ChangeRecord {
	if idx == nil {
		return nil
	}
	positions := idx.byFile[path]
	out := make([]model.ChangeRecord, 0, len(positions))
	for _, i := range positions {
		out = append(out, idx.records[i])
	}
	return out
}

// Matching returns the records whose old or new content matches re. Write
// records carry no old/new content and never match.
func (idx *Index) Matching(re *regexp.Regexp) []model.ChangeRecord {
	if idx == nil || re == nil {
		return nil
	}
	var out []model.ChangeRecord
	for _, rec := range idx.records {
		if rec.Tool == model.ToolWrite {
			continue
		}
		if re.MatchString(rec.OldContent) || re.MatchString(rec.NewContent) {
			out = append(out, rec)
		}
	}
	return out
}
