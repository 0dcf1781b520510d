// Package rating grades how well an evaluated candidate matches a role.
package rating

import (
	"strings"

	"github.com/okian/reviewdesk/internal/domain/model"
)

// Match is the coarse grade shown next to a candidate.
type Match string

const (
	Strong   Match = "Strong Match"
	Moderate Match = "Moderate Match"
	Poor     Match = "Poor Match"
)

const defaultModerateFrom = 50

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithModerateThreshold sets the lowest score graded Moderate for a
// candidate that was not selected.
func WithModerateThreshold(score int) Option {
	return func(c *Classifier) {
		if score >= 0 {
			c.moderateFrom = score
		}
	}
}

// Classifier maps a decision and score to a Match.
type Classifier struct {
	moderateFrom int
}

// NewClassifier creates a classifier with configuration options.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{moderateFrom: defaultModerateFrom}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify grades a selected candidate Strong regardless of score. Others
// are Moderate from the threshold up and Poor below it.
func (c *Classifier) Classify(score int, decision string) Match {
	if strings.EqualFold(strings.TrimSpace(decision), model.DecisionSelected) {
		return Strong
	}
	if score >= c.moderateFrom {
		return Moderate
	}
	return Poor
}

// ClassifyRecord grades an evaluation record. It reports false when the
// record lacks a decision or a score.
func (c *Classifier) ClassifyRecord(r model.Record) (Match, bool) {
	score, ok := r.Get(model.FieldScore).Int()
	if !ok || !r.Has(model.FieldDecision) {
		return "", false
	}
	return c.Classify(int(score), r.Get(model.FieldDecision).Text()), true
}

var defaultClassifier = NewClassifier() //nolint:gochecknoglobals // stateless default

// Classify grades with the default threshold.
func Classify(score int, decision string) Match {
	return defaultClassifier.Classify(score, decision)
}
