package export

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/reviewdesk/internal/domain/schema"
)

// NoneText is written for fields without a value.
const NoneText = "None"

// ErrMalformedDocument is returned by ParseDocument for text it cannot read.
var ErrMalformedDocument = errors.New("malformed document")

// Template fixes the layout of a text report.
type Template struct {
	// Title is written once before the first record when not empty.
	Title string
	// Header names the field written first in every block.
	Header string
	// Fields lists the remaining fields in the order they are written.
	Fields []string
	Labels map[string]string
}

// TemplateFor derives the report layout of s: the header field first, then
// every other field in schema order.
func TemplateFor(s *schema.Schema) Template {
	t := Template{
		Title:  s.Title,
		Header: s.Header,
		Labels: make(map[string]string, len(s.Fields)),
	}
	for _, f := range s.Fields {
		t.Labels[f.Name] = f.DisplayLabel()
		if f.Name != s.Header {
			t.Fields = append(t.Fields, f.Name)
		}
	}
	return t
}

func (t Template) label(field string) string {
	if l, ok := t.Labels[field]; ok && l != "" {
		return l
	}
	if field == schema.SourceField {
		return schema.SourceLabel
	}
	return field
}

// Document renders one block per record in input order. A block is the
// header line followed by one "Label: value" line per field; blocks are
// separated by exactly one blank line.
func Document(rows []Row, t Template) string {
	var b strings.Builder
	if t.Title != "" {
		b.WriteString(t.Title)
		b.WriteString("\n\n")
	}
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		writeLine(&b, t.label(t.Header), r.Value(t.Header).Text())
		for _, f := range t.Fields {
			writeLine(&b, t.label(f), r.Value(f).Text())
		}
	}
	return b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	if value == "" {
		value = NoneText
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// ParseDocument reads a report written by Document back into field values,
// one map per block keyed by field name. "None" reads back as an empty value.
// Values that contained line breaks cannot be recovered.
func ParseDocument(doc string, t Template) ([]map[string]string, error) {
	byLabel := make(map[string]string, len(t.Fields)+1)
	for _, f := range append([]string{t.Header}, t.Fields...) {
		byLabel[t.label(f)] = f
	}

	var (
		out     []map[string]string
		current map[string]string
	)
	flush := func() {
		if current != nil {
			out = append(out, current)
			current = nil
		}
	}

	sc := bufio.NewScanner(strings.NewReader(doc))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if first && t.Title != "" {
			first = false
			if text == t.Title {
				continue
			}
		}
		first = false
		if text == "" {
			flush()
			continue
		}
		label, value, ok := strings.Cut(text, ": ")
		if !ok {
			return nil, fmt.Errorf("%w: line %d has no label", ErrMalformedDocument, line)
		}
		field, known := byLabel[label]
		if !known {
			return nil, fmt.Errorf("%w: line %d has unknown label %q", ErrMalformedDocument, line, label)
		}
		if current == nil {
			if field != t.Header {
				return nil, fmt.Errorf("%w: line %d starts a block without the header", ErrMalformedDocument, line)
			}
			current = make(map[string]string, len(t.Fields)+1)
		}
		if value == NoneText {
			value = ""
		}
		current[field] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	flush()
	return out, nil
}
