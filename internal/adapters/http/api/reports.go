package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/reviewdesk/internal/domain/export"
	"github.com/okian/reviewdesk/internal/domain/schema"
)

// Export formats accepted by GET /export.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// ReportsHandler serves read-only projections of the effective records.
type ReportsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps Dependencies, maxLimit int) *ReportsHandler {
	return &ReportsHandler{deps: deps, maxLimit: maxLimit}
}

type summaryResponse struct {
	Schema string              `json:"schema"`
	Fields []string            `json:"fields"`
	Rows   []export.SummaryRow `json:"rows"`
}

// HandleSummary handles GET /summary requests.
func (h *ReportsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	s := h.deps.Schema()
	writeJSON(w, http.StatusOK, summaryResponse{
		Schema: s.Name,
		Fields: export.SummaryFields(s),
		Rows:   export.Summary(h.deps.Rows(r.Context()), s),
	})
}

// HandleTop handles GET /top?limit=N requests.
func (h *ReportsHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_top"
	n := min(defaultTopN, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.TopN(r.Context(), n))
}

// exportQuery is the parsed query of GET /export.
type exportQuery struct {
	format string
	sort   string
	desc   bool
	fields []string
	picked bool
}

func parseExportQuery(r *http.Request, s *schema.Schema) (exportQuery, error) {
	q := r.URL.Query()
	eq := exportQuery{format: strings.ToLower(q.Get("format")), sort: q.Get("sort")}
	if eq.format == "" {
		eq.format = FormatJSON
	}
	switch eq.format {
	case FormatJSON, FormatCSV, FormatText, FormatMarkdown:
	default:
		return eq, fmt.Errorf("%w: %q", ErrUnsupportedType, eq.format)
	}

	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
	case "desc":
		eq.desc = true
	default:
		return eq, fmt.Errorf("%w: order must be asc or desc", ErrBadRequest)
	}
	if eq.sort != "" {
		if !s.Column(eq.sort) {
			return eq, fmt.Errorf("%w: %q", ErrUnknownField, eq.sort)
		}
	}

	if raw := q.Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			f = strings.TrimSpace(f)
			if !s.Column(f) {
				return eq, fmt.Errorf("%w: %q", ErrUnknownField, f)
			}
			eq.fields = append(eq.fields, f)
		}
		eq.picked = true
	} else {
		eq.fields = s.FieldNames()
	}
	return eq, nil
}

// HandleExport handles GET /export?format=&sort=&order=&fields= requests.
func (h *ReportsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	s := h.deps.Schema()
	eq, err := parseExportQuery(r, s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}

	rows := h.deps.Rows(r.Context())
	if eq.sort != "" {
		rows = export.SortBy(rows, eq.sort, eq.desc)
	}

	switch eq.format {
	case FormatJSON:
		data, err := export.JSON(rows, s, eq.fields...)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(data)
	case FormatCSV:
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, export.Header(s, eq.fields), export.Table(rows, eq.fields)); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.Name+".csv"))
		_, _ = w.Write(buf.Bytes())
	case FormatText:
		t := export.TemplateFor(s)
		if eq.picked {
			t.Fields = t.Fields[:0:0]
			for _, f := range eq.fields {
				if f != s.Header {
					t.Fields = append(t.Fields, f)
				}
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(export.Document(rows, t)))
	case FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(export.Markdown(export.Header(s, eq.fields), export.Table(rows, eq.fields))))
	}
}
