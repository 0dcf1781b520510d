package service

import (
	"github.com/okian/reviewdesk/internal/adapters/replies"
	"github.com/okian/reviewdesk/internal/adapters/repository"
	"github.com/okian/reviewdesk/internal/domain/rating"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/okian/reviewdesk/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued replies.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithBatchConcurrency bounds how many submissions AnalyzeBatch runs at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSchema sets the schema replies are validated against.
func WithSchema(sc *schema.Schema) Option {
	return func(s *Service) {
		if sc != nil {
			s.schema = sc
		}
	}
}

// WithAnalyzer sets the analyzer used by AnalyzeBatch.
func WithAnalyzer(a replies.Analyzer) Option {
	return func(s *Service) {
		s.analyzer = a
	}
}

// WithStore replaces the default in-memory store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithClassifier sets the classifier used for match ratings.
func WithClassifier(c *rating.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}
