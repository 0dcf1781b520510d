// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/reviewdesk/internal/adapters/mq/queue"
	"github.com/okian/reviewdesk/internal/adapters/repository"
	service "github.com/okian/reviewdesk/internal/app"
	"github.com/okian/reviewdesk/internal/domain/export"
	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/rating"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/okian/reviewdesk/internal/domain/types"
	"github.com/okian/reviewdesk/pkg/logger"
)

const (
	defaultMaxReplyBytes = 1 << 20
	defaultTopLimit      = 100
	defaultTopN          = 10
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Schema() *schema.Schema

	Register(ctx context.Context, id, source string) (string, error)
	Ingest(ctx context.Context, id, reply string) (model.Record, error)
	Submit(ctx context.Context, id, reply string) (<-chan queue.Outcome, error)
	Override(ctx context.Context, id string, fields map[string]any) (model.Record, error)
	ClearOverride(ctx context.Context, id string, fields ...string) (model.Record, error)
	Get(ctx context.Context, id string) (repository.Snapshot, error)
	Remove(ctx context.Context, id string) error

	List(ctx context.Context) []repository.Entry
	Rows(ctx context.Context) []export.Row
	TopN(ctx context.Context, n int) []types.Ranked
	Rating(ctx context.Context, id string) (rating.Match, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	submissionsHandler *SubmissionsHandler
	reportsHandler     *ReportsHandler
}

// Option applies a configuration option to the Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxReplyBytes int64
	topLimit      int
	logger        logger.Logger
}

// WithMaxReplyBytes caps the size of a posted reply body.
func WithMaxReplyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxReplyBytes = n
		}
	}
}

// WithTopLimit caps the limit accepted by GET /top.
func WithTopLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.topLimit = n
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{
		maxReplyBytes: defaultMaxReplyBytes,
		topLimit:      defaultTopLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		submissionsHandler: NewSubmissionsHandler(deps, cfg.maxReplyBytes, cfg.logger),
		reportsHandler:     NewReportsHandler(deps, cfg.topLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	sh, rh := s.submissionsHandler, s.reportsHandler

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /submissions", MetricsMiddleware(sh.HandleRegister, "submissions"))
	mux.HandleFunc("GET /submissions", MetricsMiddleware(sh.HandleList, "submissions"))
	mux.HandleFunc("GET /submissions/{id}", MetricsMiddleware(sh.HandleGet, "submission"))
	mux.HandleFunc("DELETE /submissions/{id}", MetricsMiddleware(sh.HandleRemove, "submission"))
	mux.HandleFunc("POST /submissions/{id}/reply", MetricsMiddleware(sh.HandleReply, "reply"))
	mux.HandleFunc("PATCH /submissions/{id}/override", MetricsMiddleware(sh.HandleOverride, "override"))
	mux.HandleFunc("DELETE /submissions/{id}/override", MetricsMiddleware(sh.HandleClearOverride, "override"))

	mux.HandleFunc("GET /summary", MetricsMiddleware(rh.HandleSummary, "summary"))
	mux.HandleFunc("GET /top", MetricsMiddleware(rh.HandleTop, "top"))
	mux.HandleFunc("GET /export", MetricsMiddleware(rh.HandleExport, "export"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// failureResponse carries what a reviewer needs to fix a rejected reply or
// override by hand.
type failureResponse struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Raw        string              `json:"raw,omitempty"`
	ParseError string              `json:"parse_error,omitempty"`
	Errors     []schema.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// errorStatus maps service and store errors to a status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, service.ErrDuplicateSource):
		return http.StatusConflict, "duplicate_source"
	case errors.Is(err, repository.ErrNoRecordYet):
		return http.StatusConflict, "no_record"
	case errors.Is(err, service.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, schema.ErrInvalidRecord):
		return http.StatusUnprocessableEntity, "invalid_record"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code := errorStatus(err)
	if status == http.StatusTooManyRequests {
		writeError(w, status, code, WrapKind(op, ErrBackpressure, err))
		return
	}
	writeError(w, status, code, Wrap(op, err))
}
