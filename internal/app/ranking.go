package service

import (
	"context"
	"fmt"

	"github.com/okian/reviewdesk/internal/domain/export"
	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/rating"
	"github.com/okian/reviewdesk/internal/domain/types"
)

// TopN returns the n records with the highest rank field value, best first.
// Ties keep registration order. Records without a rank value are left out.
// A schema without a rank field yields nothing.
func (s *Service) TopN(ctx context.Context, n int) []types.Ranked {
	if s.schema.Rank == "" || n <= 0 {
		return []types.Ranked{}
	}
	var rows []export.Row
	for _, e := range s.store.ListAll(ctx) {
		if !e.HasRecord || !e.Record.Has(s.schema.Rank) {
			continue
		}
		rows = append(rows, export.Row{ID: e.ID, Source: e.Source, Record: e.Record})
	}
	rows = export.SortBy(rows, s.schema.Rank, true)
	if len(rows) > n {
		rows = rows[:n]
	}

	out := make([]types.Ranked, len(rows))
	for i, r := range rows {
		score, _ := r.Record.Get(s.schema.Rank).Int()
		out[i] = types.Ranked{
			Rank:   i + 1,
			ID:     r.ID,
			Source: r.Source,
			Name:   r.Record.Get(s.schema.Header).Text(),
			Score:  int(score),
		}
		if m, ok := s.classifier.ClassifyRecord(r.Record); ok {
			out[i].Match = string(m)
		}
	}
	return out
}

// Rating grades the effective record of a submission.
func (s *Service) Rating(ctx context.Context, id string) (rating.Match, error) {
	rec, err := s.store.Effective(ctx, id)
	if err != nil {
		return "", err
	}
	m, ok := s.classifier.ClassifyRecord(rec)
	if !ok {
		return "", fmt.Errorf("%w: %q lacks %s or %s", ErrNotRated, id, model.FieldScore, model.FieldDecision)
	}
	return m, nil
}
