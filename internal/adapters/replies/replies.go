// Package replies supplies agent replies for submissions. The agent itself
// is out of process; these analyzers replay replies that were captured
// earlier.
package replies

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoReply is returned when no reply exists for a submission.
var ErrNoReply = errors.New("no reply for submission")

// Ext is the file extension of stored replies.
const Ext = ".txt"

// Submission identifies what the agent is asked to analyze.
type Submission struct {
	ID     string
	Source string
}

// Analyzer produces the raw reply for one submission.
type Analyzer interface {
	Analyze(ctx context.Context, sub Submission) (string, error)
}

// Func adapts a function to Analyzer.
type Func func(ctx context.Context, sub Submission) (string, error)

// Analyze calls f.
func (f Func) Analyze(ctx context.Context, sub Submission) (string, error) { return f(ctx, sub) }

// Map serves replies keyed by submission id.
type Map map[string]string

// Analyze returns the reply stored under sub.ID.
func (m Map) Analyze(ctx context.Context, sub Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reply, ok := m[sub.ID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoReply, sub.ID)
	}
	return reply, nil
}

// DirAnalyzer reads <dir>/<id>.txt.
type DirAnalyzer struct {
	dir      string
	maxBytes int64
}

// DirOption applies a configuration option to the DirAnalyzer.
type DirOption func(*DirAnalyzer)

// WithMaxBytes caps the size of a reply file. Zero means no limit.
func WithMaxBytes(n int64) DirOption {
	return func(d *DirAnalyzer) {
		if n >= 0 {
			d.maxBytes = n
		}
	}
}

// NewDirAnalyzer creates an analyzer over the reply files in dir.
func NewDirAnalyzer(dir string, opts ...DirOption) *DirAnalyzer {
	d := &DirAnalyzer{dir: dir}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Analyze reads the reply file of sub.
func (d *DirAnalyzer) Analyze(ctx context.Context, sub Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sub.ID == "" || strings.ContainsAny(sub.ID, `/\`) || sub.ID == "." || sub.ID == ".." {
		return "", fmt.Errorf("%w: invalid id %q", ErrNoReply, sub.ID)
	}
	path := filepath.Join(d.dir, sub.ID+Ext)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %q", ErrNoReply, sub.ID)
	}
	if err != nil {
		return "", fmt.Errorf("stat reply: %w", err)
	}
	if d.maxBytes > 0 && info.Size() > d.maxBytes {
		return "", fmt.Errorf("reply %q is %d bytes, limit %d", sub.ID, info.Size(), d.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return string(data), nil
}

// IDs lists the submission ids that have a reply file, sorted.
func (d *DirAnalyzer) IDs() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read reply dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), Ext))
	}
	sort.Strings(ids)
	return ids, nil
}
