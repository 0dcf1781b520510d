package service

import "errors"

var (
	// ErrDuplicateSource is returned when a source name is already registered.
	ErrDuplicateSource = errors.New("source already registered")
	// ErrNotStarted is returned by asynchronous operations before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrQueueFull is returned when the processing queue cannot take a job.
	ErrQueueFull = errors.New("processing queue full")
	// ErrNoAnalyzer is returned by AnalyzeBatch when no analyzer is configured.
	ErrNoAnalyzer = errors.New("no analyzer configured")
	// ErrNotRated is returned when a record lacks the fields needed for a rating.
	ErrNotRated = errors.New("record cannot be rated")
)
