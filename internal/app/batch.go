package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/reviewdesk/internal/adapters/replies"
	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/pkg/logger"
	"github.com/okian/reviewdesk/pkg/metrics"
)

// BatchResult is the outcome for one submission of a batch. Raw holds the
// agent reply whenever the analyzer produced one.
type BatchResult struct {
	ID     string
	Raw    string
	Record model.Record
	Err    error
}

// AnalyzeBatch asks the analyzer for a reply to each submission and runs it
// through the pipeline, at most batch_concurrency at a time. Results are in
// the order of ids. Cancelling ctx abandons the rest of the batch; records
// already stored are kept.
func (s *Service) AnalyzeBatch(ctx context.Context, ids []string) ([]BatchResult, error) {
	if s.analyzer == nil {
		return nil, ErrNoAnalyzer
	}
	start := time.Now()
	results := make([]BatchResult, len(ids))

	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, id := range ids {
		results[i].ID = id
		g.Go(func() error {
			results[i] = s.analyzeOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	metrics.RecordBatch(len(ids), time.Since(start))
	s.logger.Info(ctx, "batch analyzed",
		logger.Int("submissions", len(ids)),
		logger.Int("failed", failed),
		logger.Duration("took", time.Since(start)),
	)
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("batch abandoned: %w", err)
	}
	return results, nil
}

func (s *Service) analyzeOne(ctx context.Context, id string) BatchResult {
	res := BatchResult{ID: id}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		res.Err = err
		return res
	}
	reply, err := s.analyzer.Analyze(ctx, replies.Submission{ID: id, Source: snap.Source})
	if err != nil {
		metrics.RecordAnalyzerError()
		metrics.RecordErrorByComponent("analyzer", "analyze")
		res.Err = fmt.Errorf("analyze %s: %w", id, err)
		return res
	}
	res.Raw = reply
	res.Record, res.Err = s.Ingest(ctx, id, reply)
	return res
}
