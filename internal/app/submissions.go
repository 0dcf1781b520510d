package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/reviewdesk/internal/adapters/mq/queue"
	"github.com/okian/reviewdesk/internal/adapters/repository"
	"github.com/okian/reviewdesk/internal/domain/export"
	"github.com/okian/reviewdesk/internal/domain/extract"
	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/okian/reviewdesk/pkg/logger"
	"github.com/okian/reviewdesk/pkg/metrics"
)

// Register creates an empty submission and returns its id. An empty id is
// replaced by a random UUID. A non-empty source must not already be in use.
func (s *Service) Register(ctx context.Context, id, source string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if source != "" && s.deduper.SeenAndRecord(ctx, source) {
		metrics.RecordDuplicateSource()
		return "", fmt.Errorf("%w: %q", ErrDuplicateSource, source)
	}
	if err := s.store.Register(ctx, id, source); err != nil {
		if source != "" {
			s.deduper.Unrecord(ctx, source)
		}
		return "", fmt.Errorf("register: %w", err)
	}
	metrics.RecordSubmissionRegistered()
	s.logger.Debug(ctx, "submission registered",
		logger.String("submission_id", id),
		logger.String("source", source),
	)
	return id, nil
}

// Ingest extracts a record from reply and stores it as the machine record of
// the submission. Existing overrides stay in place. On extraction failure the
// reply is kept on the submission and the returned error is an
// *extract.Failure carrying the raw reply.
func (s *Service) Ingest(ctx context.Context, id, reply string) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}
	rec, err := s.extractor.Extract(reply)
	if err != nil {
		if serr := s.recordFailure(ctx, id, err); serr != nil {
			return model.Record{}, fmt.Errorf("ingest: %w", serr)
		}
		s.logger.Info(ctx, "reply rejected",
			logger.String("submission_id", id),
			logger.Error(err),
		)
		return model.Record{}, err
	}
	if err := s.store.SetRecord(ctx, id, rec); err != nil {
		return model.Record{}, fmt.Errorf("ingest: %w", err)
	}
	return s.Effective(ctx, id)
}

func (s *Service) recordFailure(ctx context.Context, id string, err error) error {
	f := repository.Failure{}
	var xf *extract.Failure
	if errors.As(err, &xf) {
		f.Raw = xf.Raw
		f.FieldErrors = xf.FieldErrors
		if xf.ParseErr != nil {
			f.ParseError = xf.ParseErr.Error()
		}
	} else {
		f.ParseError = err.Error()
	}
	return s.store.SetFailure(ctx, id, f)
}

// Submit queues reply for the worker pool. The returned channel receives
// exactly one outcome.
func (s *Service) Submit(ctx context.Context, id, reply string) (<-chan queue.Outcome, error) {
	q, err := s.running()
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	job := queue.NewJob(id, reply)
	if !q.Enqueue(ctx, job) {
		if q.IsClosed() {
			return nil, fmt.Errorf("submit: %w: %w", ErrNotStarted, queue.ErrStopped)
		}
		return nil, fmt.Errorf("submit %q: %w: %w", id, ErrQueueFull, queue.ErrFull)
	}
	return job.Done(), nil
}

// IngestEnvelope extracts every item of an envelope reply and stores each as
// its own submission, named prefix-1, prefix-2 and so on. Items that fail
// validation are registered without a record and reported by position.
func (s *Service) IngestEnvelope(ctx context.Context, prefix, reply string) ([]string, []error, error) {
	recs, errs, err := s.extractor.ExtractAll(reply)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, len(recs))
	for i := range recs {
		id, rerr := s.Register(ctx, fmt.Sprintf("%s-%d", prefix, i+1), "")
		if rerr != nil {
			return ids[:i], errs[:i], rerr
		}
		ids[i] = id
		if errs[i] != nil {
			if err := s.recordFailure(ctx, id, errs[i]); err != nil {
				return ids[:i+1], errs[:i+1], fmt.Errorf("ingest envelope: %w", err)
			}
			continue
		}
		if err := s.store.SetRecord(ctx, id, recs[i]); err != nil {
			return ids[:i+1], errs[:i+1], fmt.Errorf("ingest envelope: %w", err)
		}
	}
	return ids, errs, nil
}

// Override validates a partial set of field values and merges it into the
// submission's override layer. It returns the new effective record, whose
// confidence and warnings reflect the overridden values.
func (s *Service) Override(ctx context.Context, id string, fields map[string]any) (model.Record, error) {
	values, warnings, err := schema.ValidatePartial(fields, s.schema)
	if err != nil {
		return model.Record{}, err
	}
	if err := s.store.ApplyOverride(ctx, id, values); err != nil {
		return model.Record{}, fmt.Errorf("override: %w", err)
	}
	metrics.RecordOverride()
	s.logger.Info(ctx, "override applied",
		logger.String("submission_id", id),
		logger.Int("fields", len(values)),
		logger.Int("warnings", len(warnings)),
	)
	return s.Effective(ctx, id)
}

// ClearOverride drops the named overrides, or all of them. Names must be
// fields of the active schema.
func (s *Service) ClearOverride(ctx context.Context, id string, fields ...string) (model.Record, error) {
	var unknown []schema.FieldError
	for _, name := range fields {
		if _, ok := s.schema.Field(name); !ok {
			unknown = append(unknown, schema.FieldError{Field: name, Code: schema.CodeUnknown})
		}
	}
	if len(unknown) > 0 {
		return model.Record{}, &schema.ValidationError{Schema: s.schema.Name, Errors: unknown}
	}
	if err := s.store.ClearOverride(ctx, id, fields...); err != nil {
		return model.Record{}, fmt.Errorf("clear override: %w", err)
	}
	return s.Effective(ctx, id)
}

// Effective returns the reconciled record of a submission. Confidence and
// warnings are derived from the reconciled values, not the machine record.
func (s *Service) Effective(ctx context.Context, id string) (model.Record, error) {
	rec, err := s.store.Effective(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	return schema.Recheck(rec, s.schema), nil
}

// Get returns a snapshot of a submission.
func (s *Service) Get(ctx context.Context, id string) (repository.Snapshot, error) {
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return repository.Snapshot{}, err
	}
	if snap.HasRecord {
		snap.Effective = schema.Recheck(snap.Effective, s.schema)
	}
	return snap, nil
}

// Remove deletes a submission and frees its source name.
func (s *Service) Remove(ctx context.Context, id string) error {
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	if snap.Source != "" {
		s.deduper.Unrecord(ctx, snap.Source)
	}
	metrics.RecordSubmissionRemoved()
	return nil
}

// List returns every submission in registration order.
func (s *Service) List(ctx context.Context) []repository.Entry {
	entries := s.store.ListAll(ctx)
	for i := range entries {
		if entries[i].HasRecord {
			entries[i].Record = schema.Recheck(entries[i].Record, s.schema)
		}
	}
	return entries
}

// Rows returns the effective records in registration order, skipping
// submissions that have no record yet.
func (s *Service) Rows(ctx context.Context) []export.Row {
	entries := s.List(ctx)
	rows := make([]export.Row, 0, len(entries))
	for _, e := range entries {
		if e.HasRecord {
			rows = append(rows, export.Row{ID: e.ID, Source: e.Source, Record: e.Record})
		}
	}
	return rows
}

// AwaitOutcome waits for a queued reply to finish.
func AwaitOutcome(ctx context.Context, done <-chan queue.Outcome) (queue.Outcome, error) {
	select {
	case o := <-done:
		return o, nil
	case <-ctx.Done():
		return queue.Outcome{}, ctx.Err()
	}
}
