// Package export projects reconciled records into tables, summaries,
// documents and JSON. Every function is pure: rows are read, never modified.
package export

import (
	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/schema"
)

// SummaryWidth is the number of characters of long text kept in summaries.
const SummaryWidth = 50

const ellipsis = "..."

// Row is one effective record together with its submission id and the
// file it was registered from.
type Row struct {
	ID     string
	Source string
	Record model.Record
}

// Value returns the value of field, reading schema.SourceField from the
// submission rather than the record.
func (r Row) Value(field string) model.Value {
	if field == schema.SourceField {
		if r.Source == "" {
			return model.Value{}
		}
		return model.String(r.Source)
	}
	return r.Record.Get(field)
}

// Table returns one row of cells per record, one cell per field, in input
// order. Cells carry the full text of each value.
func Table(rows []Row, fields []string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		cells := make([]string, len(fields))
		for j, f := range fields {
			cells[j] = r.Value(f).Text()
		}
		out[i] = cells
	}
	return out
}

// Header returns the display labels of fields.
func Header(s *schema.Schema, fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = s.Label(f)
	}
	return out
}

// SummaryRow is the compact listing of one record.
type SummaryRow struct {
	ID        string            `json:"id"`
	Fields    map[string]string `json:"fields"`
	Truncated bool              `json:"truncated"`
}

// SummaryFields returns the columns used by Summary: the key fields followed
// by the long text field.
func SummaryFields(s *schema.Schema) []string {
	fields := s.KeyFields()
	if s.LongText != "" {
		fields = append(fields, s.LongText)
	}
	return fields
}

// Summary returns compact rows holding the key fields in full and the long
// text field cut to SummaryWidth characters.
func Summary(rows []Row, s *schema.Schema) []SummaryRow {
	keys := s.KeyFields()
	out := make([]SummaryRow, len(rows))
	for i, r := range rows {
		sr := SummaryRow{ID: r.ID, Fields: make(map[string]string, len(keys)+1)}
		for _, k := range keys {
			sr.Fields[k] = r.Record.Get(k).Text()
		}
		if s.LongText != "" {
			sr.Fields[s.LongText], sr.Truncated = Truncate(r.Record.Get(s.LongText).Text(), SummaryWidth)
		}
		out[i] = sr
	}
	return out
}

// Truncate cuts s to n characters and appends an ellipsis when it was longer.
// It reports whether anything was cut.
func Truncate(s string, n int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= n {
		return s, false
	}
	return string(runes[:n]) + ellipsis, true
}
