package reviewctl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/okian/reviewdesk/internal/domain/export"
	"github.com/okian/reviewdesk/internal/domain/extract"
	"github.com/okian/reviewdesk/internal/domain/schema"
)

// Output formats.
const (
	formatJSON     = "json"
	formatCSV      = "csv"
	formatText     = "text"
	formatMarkdown = "markdown"
)

const renderWidth = 100

type exportOptions struct {
	format string
	sort   string
	desc   bool
	fields []string
	out    string
	render bool
}

func (e *exportOptions) validate(s *schema.Schema) error {
	switch e.format {
	case formatJSON, formatCSV, formatText, formatMarkdown:
	default:
		return fmt.Errorf("unknown format %q", e.format)
	}
	if e.sort != "" {
		if !s.Column(e.sort) {
			return fmt.Errorf("unknown sort field %q", e.sort)
		}
	}
	for _, f := range e.fields {
		if !s.Column(f) {
			return fmt.Errorf("unknown field %q", f)
		}
	}
	return nil
}

// write renders rows in the chosen format to e.out, or to stdout when empty.
func (e *exportOptions) write(stdout io.Writer, rows []export.Row, s *schema.Schema) error {
	if e.sort != "" {
		rows = export.SortBy(rows, e.sort, e.desc)
	}
	fields := e.fields
	if len(fields) == 0 {
		fields = s.FieldNames()
	}

	var buf bytes.Buffer
	switch e.format {
	case formatJSON:
		data, err := export.JSON(rows, s, e.fields...)
		if err != nil {
			return err
		}
		buf.Write(data)
	case formatCSV:
		if err := export.WriteCSV(&buf, export.Header(s, fields), export.Table(rows, fields)); err != nil {
			return err
		}
	case formatText:
		t := export.TemplateFor(s)
		if len(e.fields) > 0 {
			t.Fields = nil
			for _, f := range e.fields {
				if f != s.Header {
					t.Fields = append(t.Fields, f)
				}
			}
		}
		buf.WriteString(export.Document(rows, t))
	case formatMarkdown:
		if s.Title != "" {
			fmt.Fprintf(&buf, "# %s\n\n", s.Title)
		}
		buf.WriteString(export.Markdown(export.Header(s, fields), export.Table(rows, fields)))
	}

	data := buf.Bytes()
	if e.render {
		rendered, err := render(buf.String())
		if err != nil {
			return err
		}
		data = []byte(rendered)
	}

	if e.out == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(e.out, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", e.out, err)
	}
	return nil
}

// render formats markdown for the terminal.
func render(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return out, nil
}

// printFailure shows why a reply was rejected next to the reply itself, so
// the record can be filled in by hand.
func printFailure(w io.Writer, name, raw string, err error) {
	fmt.Fprintf(w, "FAILED %s: %v\n", name, err)
	var f *extract.Failure
	if errors.As(err, &f) {
		if f.ParseErr != nil {
			fmt.Fprintf(w, "  parse: %v\n", f.ParseErr)
		}
		for _, fe := range f.FieldErrors {
			fmt.Fprintf(w, "  %s: %s (%s)\n", fe.Field, fe.Message, fe.Code)
		}
	}
	if raw != "" {
		fmt.Fprintln(w, "  --- raw reply ---")
		for _, line := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}
