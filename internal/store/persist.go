package store

import (
	"context"

	"go.uber.org/zap"

	"sessionlearn/internal/model"
)

// Outcome summarizes one persistence pass.
type Outcome struct {
	Created []string
	Updated []string
	// Skipped counts candidates left unprocessed once the cap was reached.
	Skipped int
	Failed  []error
}

// Total is the number of records created plus updated.
func (o Outcome) Total() int { return len(o.Created) + len(o.Updated) }

// Persist walks candidates in order, updating the first similar record or
// creating a new one, until maxPatterns records have been created or
// updated. A cancelled ctx stops the pass before the next write.
func (s *Store) Persist(ctx context.Context, lib *Library, candidates []model.Candidate, maxPatterns int) (Outcome, error) {
	var out Outcome
	for i, c := range candidates {
		if out.Total() >= maxPatterns {
			out.Skipped = len(candidates) - i
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if path, ok := lib.FindDuplicate(c.Keywords); ok {
			if err := s.Update(path); err != nil {
				s.logger.Warn("failed to update pattern", zap.String("path", path), zap.Error(err))
			} else {
				s.logger.Debug("pattern updated", zap.String("path", path), zap.String("category", c.Category))
			}
			out.Updated = append(out.Updated, path)
			continue
		}

		path, err := s.Create(c)
		if err != nil {
			s.logger.Error("failed to create pattern", zap.String("category", c.Category), zap.Error(err))
			out.Failed = append(out.Failed, err)
			continue
		}
		s.logger.Debug("pattern created", zap.String("path", path), zap.String("category", c.Category))
		lib.Add(path, c.Keywords)
		out.Created = append(out.Created, path)
	}
	return out, nil
}
