// Package extract runs the parse and validate pipeline on one agent reply.
package extract

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/parser"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/okian/reviewdesk/pkg/metrics"
)

// Failure is returned when a reply cannot be turned into a record. It keeps
// the raw reply so a reviewer can read it and fill the record by hand.
type Failure struct {
	Raw         string
	Schema      string
	ParseErr    error
	FieldErrors []schema.FieldError
	cause       error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extract %s: %v", f.Schema, f.cause)
}

// Unwrap exposes the underlying *parser.ParseError or *schema.ValidationError.
func (f *Failure) Unwrap() error { return f.cause }

// Extractor turns raw replies into records of one schema. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	schema *schema.Schema
}

// New returns an Extractor for s.
func New(s *schema.Schema) *Extractor {
	return &Extractor{schema: s}
}

// Schema returns the schema records are validated against.
func (e *Extractor) Schema() *schema.Schema { return e.schema }

// Extract parses raw and validates the result.
func (e *Extractor) Extract(raw string) (model.Record, error) {
	start := time.Now()

	c, strategy, err := parser.ParseDetailed(raw)
	if err != nil {
		metrics.RecordReplyParsed("failed")
		metrics.RecordExtraction(e.schema.Name, "parse_error", time.Since(start))
		return model.Record{}, &Failure{Raw: raw, Schema: e.schema.Name, ParseErr: err, cause: err}
	}
	metrics.RecordReplyParsed(strategy.String())

	rec, err := e.validate(raw, c)
	if err != nil {
		metrics.RecordExtraction(e.schema.Name, "invalid", time.Since(start))
		return model.Record{}, err
	}
	metrics.RecordExtraction(e.schema.Name, "success", time.Since(start))
	return rec, nil
}

// ExtractAll parses an envelope reply and validates each listed object.
// Records and failures are returned by position; exactly one of the two
// is set for each item. A reply that cannot be parsed at all fails as a whole.
func (e *Extractor) ExtractAll(raw string) ([]model.Record, []error, error) {
	items, err := parser.ParseEnvelope(raw, e.schema.Envelope)
	if err != nil {
		metrics.RecordReplyParsed("failed")
		return nil, nil, &Failure{Raw: raw, Schema: e.schema.Name, ParseErr: err, cause: err}
	}
	metrics.RecordReplyParsed("envelope")

	recs := make([]model.Record, len(items))
	errs := make([]error, len(items))
	for i, c := range items {
		recs[i], errs[i] = e.validate(raw, c)
	}
	return recs, errs, nil
}

func (e *Extractor) validate(raw string, c model.Candidate) (model.Record, error) {
	rec, err := schema.Validate(c, e.schema)
	if err != nil {
		f := &Failure{Raw: raw, Schema: e.schema.Name, cause: err}
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			f.FieldErrors = ve.Errors
			codes := make([]string, len(ve.Errors))
			for i, fe := range ve.Errors {
				codes[i] = string(fe.Code)
			}
			metrics.RecordValidationFailure(e.schema.Name, codes...)
		}
		return model.Record{}, f
	}
	if rec.Confidence == model.ConfidenceLow {
		metrics.RecordLowConfidence(e.schema.Name)
	}
	return rec, nil
}
