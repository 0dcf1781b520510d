package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/okian/reviewdesk/internal/domain/schema"
)

// JSON renders {"<envelope>": [ ... ]} with one object per record. Object
// keys follow fields, or schema order when none are given. Fields without a
// value are null.
func JSON(rows []Row, s *schema.Schema, fields ...string) ([]byte, error) {
	if len(fields) == 0 {
		fields = s.FieldNames()
	}
	envelope := s.Envelope
	if envelope == "" {
		envelope = "results"
	}

	var buf bytes.Buffer
	key, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	buf.WriteByte('{')
	buf.Write(key)
	buf.WriteString(":[")
	for i, r := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, f := range fields {
			if j > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(f)
			if err != nil {
				return nil, fmt.Errorf("encode field name: %w", err)
			}
			val, err := json.Marshal(r.Value(f))
			if err != nil {
				return nil, fmt.Errorf("encode %s.%s: %w", r.ID, f, err)
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteString("]}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent export: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// WriteCSV writes header and table as RFC 4180 CSV.
func WriteCSV(w io.Writer, header []string, table [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(table); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// Markdown renders header and table as a pipe table.
func Markdown(header []string, table [][]string) string {
	var b strings.Builder
	writeMarkdownRow(&b, header)
	b.WriteString("|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range table {
		writeMarkdownRow(&b, row)
	}
	return b.String()
}

var markdownCell = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func writeMarkdownRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(markdownCell.Replace(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}
