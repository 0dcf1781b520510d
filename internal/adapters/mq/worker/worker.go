// Package worker runs queued replies through the extraction pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/reviewdesk/internal/adapters/mq/queue"
	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/pkg/logger"
	"github.com/okian/reviewdesk/pkg/metrics"
)

// Ingester extracts a reply and stores the record under the submission id.
// Implementations serialize store writes.
type Ingester interface {
	Ingest(ctx context.Context, submissionID, reply string) (model.Record, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue closes or ctx is canceled.
type Worker interface {
	Run(ctx context.Context)
	Done() <-chan struct{}
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	ingester Ingester
	name     string

	active    *atomic.Int64
	processed *atomic.Int64

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, ing Ingester, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		ingester:  ing,
		name:      "worker",
		active:    new(atomic.Int64),
		processed: new(atomic.Int64),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Run processes jobs until the queue is closed and drained or ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.process(ctx, job); err != nil {
				w.logger.Warn(ctx, "job failed",
					logger.String("submission_id", job.SubmissionID),
					logger.Error(err),
				)
			}
		}
	}
}

// process runs one job and always completes it.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	if !job.Enqueued.IsZero() {
		metrics.RecordQueueWait(start.Sub(job.Enqueued))
	}
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))

	rec, err := w.ingester.Ingest(ctx, job.SubmissionID, job.Reply)

	metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
	metrics.RecordWorkerProcessingLatency(time.Since(start))
	w.processed.Add(1)
	job.Complete(queue.Outcome{SubmissionID: job.SubmissionID, Record: rec, Err: err})
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", errorType(err))
		return fmt.Errorf("ingest %s: %w", job.SubmissionID, err)
	}
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "ingest_error"
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	active    atomic.Int64
	processed atomic.Int64

	logger logger.Logger
}

// NewPool creates workerCount workers. A count below one means runtime.NumCPU().
func NewPool(workerCount int, q Queue, ing Ingester, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		wopts = append(wopts, withCounters(&p.active, &p.processed))
		p.workers[i] = NewInMemoryWorker(q, ing, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns how many workers are processing a job right now.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Processed returns how many jobs the pool has finished.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	return nil
}
