package model

import (
	"encoding/json"
	"sort"
)

// Candidate is an unvalidated object decoded from an agent reply.
// Numbers are kept as json.Number.
type Candidate map[string]any

// Confidence grades how much a record can be trusted without review.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Warning is a non-fatal finding attached to a record during validation.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Record is a schema-validated set of field values. Records are values:
// every accessor returns copies and mutation helpers return a new Record.
type Record struct {
	Schema     string
	Confidence Confidence
	Warnings   []Warning
	values     map[string]Value
}

// NewRecord builds a high-confidence record from values. The map is copied
// and absent values are dropped.
func NewRecord(schema string, values map[string]Value) Record {
	r := Record{
		Schema:     schema,
		Confidence: ConfidenceHigh,
		values:     make(map[string]Value, len(values)),
	}
	for k, v := range values {
		if !v.IsAbsent() {
			r.values[k] = v
		}
	}
	return r
}

// IsZero reports whether the record was never populated.
func (r Record) IsZero() bool {
	return r.Schema == "" && len(r.values) == 0
}

// Get returns the value of field, absent when unset.
func (r Record) Get(field string) Value {
	return r.values[field]
}

// Has reports whether field carries a value.
func (r Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Fields returns the set field names in lexical order.
func (r Record) Fields() []string {
	names := make([]string, 0, len(r.values))
	for k := range r.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the field map.
func (r Record) Values() map[string]Value {
	cp := make(map[string]Value, len(r.values))
	for k, v := range r.values {
		cp[k] = v
	}
	return cp
}

// With returns a copy of r where every non-absent value in overrides
// replaces the field of the same name.
func (r Record) With(overrides map[string]Value) Record {
	out := r.clone()
	for k, v := range overrides {
		if !v.IsAbsent() {
			out.values[k] = v
		}
	}
	return out
}

// WithWarning returns a low-confidence copy of r carrying w.
func (r Record) WithWarning(w Warning) Record {
	out := r.clone()
	out.Confidence = ConfidenceLow
	out.Warnings = append(out.Warnings, w)
	return out
}

// WithoutWarnings returns a high-confidence copy of r with no warnings.
func (r Record) WithoutWarnings() Record {
	out := r.clone()
	out.Confidence = ConfidenceHigh
	out.Warnings = nil
	return out
}

func (r Record) clone() Record {
	out := Record{
		Schema:     r.Schema,
		Confidence: r.Confidence,
		values:     r.Values(),
	}
	if len(r.Warnings) > 0 {
		out.Warnings = make([]Warning, len(r.Warnings))
		copy(out.Warnings, r.Warnings)
	}
	return out
}

// recordJSON is the wire shape of a Record.
type recordJSON struct {
	Schema     string           `json:"schema"`
	Confidence Confidence       `json:"confidence"`
	Warnings   []Warning        `json:"warnings,omitempty"`
	Fields     map[string]Value `json:"fields"`
}

// MarshalJSON encodes the record with its fields nested under "fields".
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Schema:     r.Schema,
		Confidence: r.Confidence,
		Warnings:   r.Warnings,
		Fields:     r.values,
	})
}
