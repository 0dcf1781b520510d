package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/pkg/metrics"
)

// submission is the stored state of one unit of work.
type submission struct {
	id         string
	source     string
	registered time.Time
	machine    model.Record
	hasRecord  bool
	overrides  map[string]model.Value
	failure    *Failure
}

// effective returns a copy; With never shares maps or slices.
func (s *submission) effective() model.Record {
	return s.machine.With(s.overrides)
}

func (s *submission) overridden() []string {
	if len(s.overrides) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.overrides))
	for k := range s.overrides {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MemoryStore is the in-memory Store. One RWMutex covers the whole store,
// which serializes every write to any id.
type MemoryStore struct {
	mu       sync.RWMutex
	subs     map[string]*submission
	orderIDs []string // registration order
	recorded int

	now      func() time.Time
	capacity int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.subs = make(map[string]*submission, s.capacity)
	s.orderIDs = make([]string, 0, s.capacity)
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, time.Since(start))
}

func notFound(id string) error {
	metrics.RecordErrorByComponent("repository", "not_found")
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

// publish must be called with the write lock held.
func (s *MemoryStore) publish() {
	metrics.UpdateStoredSubmissions(len(s.subs), s.recorded)
}

func (s *MemoryStore) Register(_ context.Context, id, source string) error {
	defer observe("register", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[id]; exists {
		metrics.RecordErrorByComponent("repository", "already_exists")
		return fmt.Errorf("%w: %q", ErrAlreadyExists, id)
	}
	s.subs[id] = &submission{id: id, source: source, registered: s.now()}
	s.orderIDs = append(s.orderIDs, id)
	s.publish()
	return nil
}

func (s *MemoryStore) SetRecord(_ context.Context, id string, rec model.Record) error {
	defer observe("set_record", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return notFound(id)
	}
	if !sub.hasRecord {
		s.recorded++
	}
	sub.machine = rec
	sub.hasRecord = true
	sub.failure = nil
	s.publish()
	return nil
}

func (s *MemoryStore) SetFailure(_ context.Context, id string, f Failure) error {
	defer observe("set_failure", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return notFound(id)
	}
	if f.At.IsZero() {
		f.At = s.now()
	}
	sub.failure = f.clone()
	return nil
}

func (s *MemoryStore) ApplyOverride(_ context.Context, id string, fields map[string]model.Value) error {
	defer observe("apply_override", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return notFound(id)
	}
	if !sub.hasRecord {
		metrics.RecordErrorByComponent("repository", "no_record_yet")
		return fmt.Errorf("%w: %q", ErrNoRecordYet, id)
	}
	if sub.overrides == nil {
		sub.overrides = make(map[string]model.Value, len(fields))
	}
	for k, v := range fields {
		if !v.IsAbsent() {
			sub.overrides[k] = v
		}
	}
	return nil
}

func (s *MemoryStore) ClearOverride(_ context.Context, id string, fields ...string) error {
	defer observe("clear_override", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return notFound(id)
	}
	if len(fields) == 0 {
		sub.overrides = nil
		return nil
	}
	for _, f := range fields {
		delete(sub.overrides, f)
	}
	return nil
}

func (s *MemoryStore) Effective(_ context.Context, id string) (model.Record, error) {
	defer observe("effective", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return model.Record{}, notFound(id)
	}
	if !sub.hasRecord {
		return model.Record{}, fmt.Errorf("%w: %q", ErrNoRecordYet, id)
	}
	return sub.effective(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Snapshot, error) {
	defer observe("get", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return Snapshot{}, notFound(id)
	}
	snap := Snapshot{
		ID:         sub.id,
		Source:     sub.source,
		Registered: sub.registered,
		HasRecord:  sub.hasRecord,
		Machine:    sub.machine.With(nil),
		Overridden: sub.overridden(),
		Failure:    sub.failure.clone(),
	}
	if sub.hasRecord {
		snap.Effective = sub.effective()
	}
	if len(sub.overrides) > 0 {
		snap.Overrides = make(map[string]model.Value, len(sub.overrides))
		for k, v := range sub.overrides {
			snap.Overrides[k] = v
		}
	}
	return snap, nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	defer observe("remove", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return notFound(id)
	}
	if sub.hasRecord {
		s.recorded--
	}
	delete(s.subs, id)
	for i, oid := range s.orderIDs {
		if oid == id {
			s.orderIDs = append(s.orderIDs[:i], s.orderIDs[i+1:]...)
			break
		}
	}
	s.publish()
	return nil
}

func (s *MemoryStore) ListAll(_ context.Context) []Entry {
	defer observe("list_all", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.orderIDs))
	for _, id := range s.orderIDs {
		sub := s.subs[id]
		e := Entry{
			ID:         sub.id,
			Source:     sub.source,
			Registered: sub.registered,
			HasRecord:  sub.hasRecord,
			Overridden: sub.overridden(),
			Failed:     sub.failure != nil,
		}
		if sub.hasRecord {
			e.Record = sub.effective()
		}
		out = append(out, e)
	}
	return out
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
