// Package dedupe tracks which sources have already been registered so the
// same document is not reviewed twice.
package dedupe

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

// Deduper records seen source names.
type Deduper interface {
	// SeenAndRecord atomically checks whether name was seen and records it if not.
	// Returns true if name was already seen.
	SeenAndRecord(ctx context.Context, name string) bool

	// Unrecord forgets name so it can be registered again.
	Unrecord(ctx context.Context, name string)

	Size() int64
}

type inMemoryDeduper struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	normalize func(string) string
}

// NewInMemoryDeduper creates an unbounded in-memory deduper. Names are
// compared by NormalizeSource unless WithNormalizer says otherwise.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:      make(map[string]struct{}),
		normalize: NormalizeSource,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NormalizeSource keys a source by its trimmed, lower-cased base name, so
// "Resumes/Jane.PDF" and "jane.pdf" collide.
func NormalizeSource(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.ToLower(filepath.Base(filepath.ToSlash(name)))
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, name string) bool {
	key := d.normalize(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, name string) {
	key := d.normalize(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
