package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/reviewdesk/internal/adapters/repository"
	service "github.com/okian/reviewdesk/internal/app"
	"github.com/okian/reviewdesk/internal/domain/extract"
	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/okian/reviewdesk/pkg/logger"
)

// SubmissionsHandler handles the submission lifecycle routes.
type SubmissionsHandler struct {
	deps          Dependencies
	maxReplyBytes int64
	logger        logger.Logger
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps Dependencies, maxReplyBytes int64, l logger.Logger) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps, maxReplyBytes: maxReplyBytes, logger: l}
}

// registerRequest mirrors the OpenAPI schema for POST /submissions.
type registerRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

type registerResponse struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"`
}

type submissionResponse struct {
	ID         string                 `json:"id"`
	Source     string                 `json:"source,omitempty"`
	Registered time.Time              `json:"registered"`
	HasRecord  bool                   `json:"has_record"`
	Record     *model.Record          `json:"record,omitempty"`
	Machine    *model.Record          `json:"machine,omitempty"`
	Overrides  map[string]model.Value `json:"overrides,omitempty"`
	Overridden []string               `json:"overridden,omitempty"`
	Match      string                 `json:"match,omitempty"`
	Failed     bool                   `json:"failed,omitempty"`
	Failure    *failureView           `json:"failure,omitempty"`
}

// failureView is the last reply of a submission that could not be extracted.
type failureView struct {
	Raw        string              `json:"raw"`
	ParseError string              `json:"parse_error,omitempty"`
	Errors     []schema.FieldError `json:"errors,omitempty"`
	At         time.Time           `json:"at"`
}

type acceptedResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// HandleRegister handles POST /submissions requests. The body is optional.
func (h *SubmissionsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	id, err := h.deps.Register(r.Context(), req.ID, req.Source)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{ID: id, Source: req.Source})
}

// HandleList handles GET /submissions requests.
func (h *SubmissionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries := h.deps.List(r.Context())
	out := make([]submissionResponse, len(entries))
	for i, e := range entries {
		out[i] = submissionResponse{
			ID:         e.ID,
			Source:     e.Source,
			Registered: e.Registered,
			HasRecord:  e.HasRecord,
			Overridden: e.Overridden,
			Failed:     e.Failed,
		}
		if e.HasRecord {
			rec := e.Record
			out[i].Record = &rec
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /submissions/{id} requests. When the schema ranks
// records the response carries the match level of the effective record.
func (h *SubmissionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "api.get_submission", err)
		return
	}
	out := snapshotResponse(snap)
	if snap.HasRecord && h.deps.Schema().Rank != "" {
		if m, err := h.deps.Rating(r.Context(), snap.ID); err == nil {
			out.Match = string(m)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRemove handles DELETE /submissions/{id} requests.
func (h *SubmissionsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "api.remove_submission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReply handles POST /submissions/{id}/reply requests. The body is the
// raw agent reply. With ?async=true the reply is queued and 202 returned.
// With ?wait=true it is queued and the response waits for the worker.
func (h *SubmissionsHandler) HandleReply(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reply"
	id := r.PathValue("id")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxReplyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "reply_too_large", NewKind(op, ErrReplyTooLarge))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	reply := string(body)

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		h.replyAndWait(w, r, id, reply)
		return
	}
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if _, err := h.deps.Submit(r.Context(), id, reply); err != nil {
			writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", ID: id})
		return
	}

	rec, err := h.deps.Ingest(r.Context(), id, reply)
	h.writeOutcome(w, r, op, id, rec, err)
}

func (h *SubmissionsHandler) replyAndWait(w http.ResponseWriter, r *http.Request, id, reply string) {
	const op = "api.post_reply"
	done, err := h.deps.Submit(r.Context(), id, reply)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	o, err := service.AwaitOutcome(r.Context(), done)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	h.writeOutcome(w, r, op, id, o.Record, o.Err)
}

func (h *SubmissionsHandler) writeOutcome(w http.ResponseWriter, r *http.Request, op, id string, rec model.Record, err error) {
	if err != nil {
		var f *extract.Failure
		if errors.As(err, &f) {
			h.logger.Info(r.Context(), "reply rejected",
				logger.String("submission_id", id),
				logger.Int("field_errors", len(f.FieldErrors)),
			)
			writeJSON(w, http.StatusUnprocessableEntity, failureOf(f))
			return
		}
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleOverride handles PATCH /submissions/{id}/override requests. The body
// is a JSON object of field values.
func (h *SubmissionsHandler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	const op = "api.override"
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	rec, err := h.deps.Override(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusUnprocessableEntity, failureResponse{
				Code:    "invalid_override",
				Message: ve.Error(),
				Errors:  ve.Errors,
			})
			return
		}
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleClearOverride handles DELETE /submissions/{id}/override requests.
// ?fields=a,b drops only the named overrides; without it all are dropped.
func (h *SubmissionsHandler) HandleClearOverride(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_override"
	var fields []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	rec, err := h.deps.ClearOverride(r.Context(), r.PathValue("id"), fields...)
	if err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusUnprocessableEntity, failureResponse{
				Code:    "invalid_override",
				Message: ve.Error(),
				Errors:  ve.Errors,
			})
			return
		}
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func snapshotResponse(snap repository.Snapshot) submissionResponse {
	out := submissionResponse{
		ID:         snap.ID,
		Source:     snap.Source,
		Registered: snap.Registered,
		HasRecord:  snap.HasRecord,
		Overrides:  snap.Overrides,
		Overridden: snap.Overridden,
	}
	if snap.HasRecord {
		eff, machine := snap.Effective, snap.Machine
		out.Record, out.Machine = &eff, &machine
	}
	if f := snap.Failure; f != nil {
		out.Failed = true
		out.Failure = &failureView{
			Raw:        f.Raw,
			ParseError: f.ParseError,
			Errors:     f.FieldErrors,
			At:         f.At,
		}
	}
	return out
}

func failureOf(f *extract.Failure) failureResponse {
	resp := failureResponse{
		Code:    "extraction_failed",
		Message: f.Error(),
		Raw:     f.Raw,
		Errors:  f.FieldErrors,
	}
	if f.ParseErr != nil {
		resp.ParseError = f.ParseErr.Error()
	}
	return resp
}
