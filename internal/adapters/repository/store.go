// Package repository holds submissions and their reconciled records.
package repository

import (
	"context"
	"time"

	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/schema"
)

// Failure is the last reply of a submission that could not be extracted.
// It keeps what a reviewer needs to fill the record by hand.
type Failure struct {
	Raw         string
	ParseError  string
	FieldErrors []schema.FieldError
	At          time.Time
}

func (f *Failure) clone() *Failure {
	if f == nil {
		return nil
	}
	cp := *f
	cp.FieldErrors = append([]schema.FieldError(nil), f.FieldErrors...)
	return &cp
}

// Entry is one submission as listed by ListAll.
type Entry struct {
	ID         string
	Source     string
	Registered time.Time
	// Record is the effective record; zero when HasRecord is false.
	Record     model.Record
	HasRecord  bool
	Overridden []string
	// Failed is set while the last reply failed extraction.
	Failed bool
}

// Snapshot is a full copy of one submission.
type Snapshot struct {
	ID         string
	Source     string
	Registered time.Time
	HasRecord  bool
	Machine    model.Record
	Overrides  map[string]model.Value
	Effective  model.Record
	// Overridden lists the override field names in lexical order.
	Overridden []string
	// Failure is the last extraction failure, nil once a record is set.
	Failure *Failure
}

// Store owns every submission. Implementations serialize all mutations and
// return copies, so callers never share state with the store.
type Store interface {
	// Register creates an empty submission. Returns ErrAlreadyExists while id is present.
	Register(ctx context.Context, id, source string) error
	// SetRecord attaches or replaces the machine record. The override layer is
	// kept and any recorded failure is cleared.
	SetRecord(ctx context.Context, id string, rec model.Record) error
	// SetFailure records a reply that could not be extracted. An existing
	// machine record is left untouched.
	SetFailure(ctx context.Context, id string, f Failure) error
	// ApplyOverride merges fields into the override layer.
	// Returns ErrNoRecordYet before the first SetRecord.
	ApplyOverride(ctx context.Context, id string, fields map[string]model.Value) error
	// ClearOverride drops the named overrides, or all of them when none are named.
	ClearOverride(ctx context.Context, id string, fields ...string) error
	// Effective returns the override layer merged over the machine record.
	Effective(ctx context.Context, id string) (model.Record, error)
	// Get returns a snapshot of the submission.
	Get(ctx context.Context, id string) (Snapshot, error)
	// Remove deletes the submission. Returns ErrNotFound when absent.
	Remove(ctx context.Context, id string) error
	// ListAll returns every submission in registration order.
	ListAll(ctx context.Context) []Entry
	// Count returns the number of submissions.
	Count(ctx context.Context) int
}
