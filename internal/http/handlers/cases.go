package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/acuitylabs/triage-ai/internal/artifacts"
	"github.com/acuitylabs/triage-ai/internal/casestore"
	"github.com/acuitylabs/triage-ai/internal/triage"
	"github.com/acuitylabs/triage-ai/pkg/logging"
)

// maxTranscriptBytes bounds request bodies; a triage conversation is short.
const maxTranscriptBytes = 1 << 20

// TriageRunner runs the full deliberation pipeline for one transcript.
type TriageRunner interface {
	Run(ctx context.Context, rawTranscript string) (*triage.Result, *triage.Case, error)
}

// CaseReader looks up recorded case summaries.
type CaseReader interface {
	Get(ctx context.Context, caseID string) (*casestore.Summary, error)
	Recent(ctx context.Context, limit int) ([]casestore.Summary, error)
}

// CasesHandler serves triage case submission, lookup and artifact download.
type CasesHandler struct {
	runner    TriageRunner
	cases     CaseReader
	artifacts artifacts.Store
	logger    *logging.Logger
}

// NewCasesHandler builds the handler. Runner and artifact store are required;
// a nil case reader disables the lookup endpoints with 503.
func NewCasesHandler(runner TriageRunner, cases CaseReader, store artifacts.Store, logger *logging.Logger) *CasesHandler {
	if runner == nil {
		panic("handlers: triage runner cannot be nil")
	}
	if store == nil {
		panic("handlers: artifact store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CasesHandler{runner: runner, cases: cases, artifacts: store, logger: logger}
}

type submitRequest struct {
	Transcript string `json:"transcript"`
}

// Submit handles POST /api/cases. The body is either a JSON object with a
// "transcript" field or a plain-text conversation.
func (h *CasesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTranscriptBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	transcript := string(body)
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req submitRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		transcript = req.Transcript
	}

	result, _, err := h.runner.Run(r.Context(), transcript)
	if err != nil {
		switch {
		case errors.Is(err, triage.ErrEmptyTranscript):
			writeError(w, http.StatusBadRequest, "transcript is empty")
		case errors.Is(err, triage.ErrNoOpinionsProduced):
			h.logger.Error("triage run produced no opinions", "error", err.Error())
			writeError(w, http.StatusBadGateway, "no clinician opinions could be produced; the case was not triaged")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "triage run was interrupted")
		default:
			h.logger.Error("triage run failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "triage run failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetCase handles GET /api/cases/{caseID}.
func (h *CasesHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	if h.cases == nil {
		writeError(w, http.StatusServiceUnavailable, "case lookup is not configured")
		return
	}
	caseID := chi.URLParam(r, "caseID")
	summary, err := h.cases.Get(r.Context(), caseID)
	if err != nil {
		if errors.Is(err, casestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "case not found")
			return
		}
		h.logger.Error("case lookup failed", "case_id", caseID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "case lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListCases handles GET /api/cases.
func (h *CasesHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	if h.cases == nil {
		writeError(w, http.StatusServiceUnavailable, "case lookup is not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	summaries, err := h.cases.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("case list failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "case list failed")
		return
	}
	if summaries == nil {
		summaries = []casestore.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": summaries})
}

// GetArtifact handles GET /api/cases/{caseID}/artifacts/{kind}.
func (h *CasesHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	kind := artifacts.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusNotFound, "unknown artifact kind")
		return
	}

	body, err := h.artifacts.Get(r.Context(), caseID, kind)
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artifact not found")
			return
		}
		h.logger.Error("artifact fetch failed", "case_id", caseID, "kind", string(kind), "error", err.Error())
		writeError(w, http.StatusInternalServerError, "artifact fetch failed")
		return
	}

	w.Header().Set("Content-Type", kind.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// HealthCheck handles GET /health.
func (h *CasesHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
