// Package service owns the submission store and the extraction pipeline and
// implements the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/reviewdesk/internal/adapters/mq/queue"
	"github.com/okian/reviewdesk/internal/adapters/mq/worker"
	"github.com/okian/reviewdesk/internal/adapters/replies"
	"github.com/okian/reviewdesk/internal/adapters/repository"
	"github.com/okian/reviewdesk/internal/domain/dedupe"
	"github.com/okian/reviewdesk/internal/domain/extract"
	"github.com/okian/reviewdesk/internal/domain/rating"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/okian/reviewdesk/pkg/logger"
	"github.com/okian/reviewdesk/pkg/metrics"
)

const (
	defaultQueueSize        = 1024
	defaultBatchConcurrency = 4
	stopTimeout             = 30 * time.Second
)

// Service reconciles agent replies into reviewable records.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	schema     *schema.Schema
	extractor  *extract.Extractor
	classifier *rating.Classifier
	analyzer   replies.Analyzer
	queue      *queue.InMemoryQueue
	pool       *worker.Pool

	// Configuration
	workerCount      int
	queueSize        int
	batchConcurrency int

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. The store is usable right away; Start is only
// needed for queued processing.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        defaultQueueSize,
		batchConcurrency: defaultBatchConcurrency,
		schema:           schema.Evaluation(),
		classifier:       rating.NewClassifier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper()
	s.extractor = extract.New(s.schema)
	return s
}

// Schema returns the schema records are validated against.
func (s *Service) Schema() *schema.Schema { return s.schema }

// Start creates the queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting review service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s,
		worker.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(runCtx)
	s.cancel = cancel
	s.started = true

	s.logger.Info(ctx, "review service started",
		logger.String("schema", s.schema.Name),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop closes the queue, waits for queued replies to finish and stops the
// workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping review service...")

	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "review service stopped")
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started       bool   `json:"started"`
	Schema        string `json:"schema"`
	WorkerCount   int    `json:"workerCount"`
	ActiveWorkers int    `json:"activeWorkers"`
	QueueSize     int    `json:"queueSize"`
	QueueLength   int    `json:"queueLength"`
	Processed     int64  `json:"processed"`
	Submissions   int    `json:"submissions"`
	Recorded      int    `json:"recorded"`
	Overridden    int    `json:"overridden"`
	Sources       int64  `json:"sources"`
}

// GetStats returns service statistics for monitoring and refreshes the
// matching gauges.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	st := Stats{
		Started:     s.started,
		Schema:      s.schema.Name,
		WorkerCount: s.workerCount,
		QueueSize:   s.queueSize,
		Sources:     s.deduper.Size(),
	}
	for _, e := range s.store.ListAll(ctx) {
		st.Submissions++
		if e.HasRecord {
			st.Recorded++
		}
		if len(e.Overridden) > 0 {
			st.Overridden++
		}
	}
	if s.started {
		st.QueueLength = s.queue.Len(ctx)
		st.ActiveWorkers = s.pool.Active()
		st.Processed = s.pool.Processed()
		metrics.UpdateQueueSize(st.QueueLength)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	metrics.UpdateStoredSubmissions(st.Submissions, st.Recorded)
	return st
}

// running returns the queue while the service is started.
func (s *Service) running() (*queue.InMemoryQueue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, fmt.Errorf("submit: %w", ErrNotStarted)
	}
	return s.queue, nil
}
