package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/alexanderramin/hashi/internal/clarify"
	"github.com/alexanderramin/hashi/internal/config"
	"github.com/alexanderramin/hashi/internal/dispatch"
	"github.com/alexanderramin/hashi/internal/extract"
	"github.com/alexanderramin/hashi/internal/llm"
)

// defaultCallerID keys pending state for requests that carry no caller
// identity (single-tenant deployments).
const defaultCallerID = "default"

// ingestRequest is the inbound envelope. Only user_text is required; the
// richer fields support multi-caller and idempotent variants.
type ingestRequest struct {
	UserText       string `json:"user_text"`
	CallerID       string `json:"caller_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Event          string `json:"event,omitempty"`
	SentAt         string `json:"sent_at,omitempty"`
}

// dispatchedResponse reports a command delivered to the sink.
type dispatchedResponse struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status"`
	Text   string `json:"text"`
}

// needsUserResponse asks the caller for a missing field. Not an error.
type needsUserResponse struct {
	OK        bool   `json:"ok"`
	NeedsUser bool   `json:"needs_user"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

// duplicateResponse reports a request suppressed by its idempotency key.
type duplicateResponse struct {
	OK             bool   `json:"ok"`
	Duplicate      bool   `json:"duplicate"`
	IdempotencyKey string `json:"idempotency_key"`
}

// healthResponse reports process readiness and absent configuration.
type healthResponse struct {
	OK         bool     `json:"ok"`
	Message    string   `json:"message"`
	MissingEnv []string `json:"missing_env"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		OK:         true,
		Message:    "hashi is running",
		MissingEnv: config.MissingEnv(),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	text := strings.TrimSpace(req.UserText)
	if text == "" {
		writeError(w, http.StatusBadRequest, "user_text required")
		return
	}

	callerID := req.CallerID
	if callerID == "" {
		callerID = defaultCallerID
	}

	// Claim the idempotency key before any processing so two concurrent
	// requests with the same key resolve to exactly one dispatch.
	if !s.dedup.FirstUse(req.IdempotencyKey) {
		writeJSON(w, http.StatusOK, duplicateResponse{
			OK:             true,
			Duplicate:      true,
			IdempotencyKey: req.IdempotencyKey,
		})
		return
	}

	outcome := s.engine.Process(r.Context(), callerID, text)
	switch outcome.Kind {
	case clarify.KindNeedsInput:
		writeJSON(w, http.StatusOK, needsUserResponse{
			NeedsUser: true,
			Field:     outcome.Field,
			Message:   outcome.Message,
		})
		return

	case clarify.KindFailed:
		s.writeExtractionFailure(w, outcome.Err)
		return
	}

	// Ready: pending state is already cleared. A sink failure from here on
	// does not resurrect it; callers resubmit the whole extraction.
	if s.dispatcher == nil {
		writeError(w, http.StatusInternalServerError, "SINK_WEBHOOK_URL is not set")
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), outcome.Command)
	if err != nil {
		s.writeSinkFailure(w, err)
		return
	}

	if err := s.journal.Record(r.Context(), callerID, outcome.Command, result.Status); err != nil {
		// Journaling is best-effort; the command already reached the sink.
		s.log.Warn("dispatch journal write failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, dispatchedResponse{
		OK:     true,
		Status: result.Status,
		Text:   result.Snippet,
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeError(w, http.StatusInternalServerError, "SINK_WEBHOOK_URL is not set")
		return
	}

	assignee := strings.TrimSpace(r.URL.Query().Get("assignee"))
	result, err := s.dispatcher.ListTasks(r.Context(), assignee)
	if err != nil {
		s.writeSinkFailure(w, err)
		return
	}

	if result.NeedsFilter {
		writeJSON(w, http.StatusOK, needsUserResponse{
			NeedsUser: true,
			Message:   "担当者を指定してください。",
		})
		return
	}

	writeJSON(w, http.StatusOK, dispatchedResponse{
		OK:     true,
		Status: result.Status,
		Text:   result.Snippet,
	})
}

// writeExtractionFailure maps extraction errors to stable status codes:
// a missing model credential is the operator's fault (500); everything else
// is an upstream failure (502).
func (s *Server) writeExtractionFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, llm.ErrNoAPIKey) {
		writeError(w, http.StatusInternalServerError, "OPENAI_API_KEY is not set")
		return
	}

	var extErr *extract.ExtractionError
	if errors.As(err, &extErr) {
		writeError(w, http.StatusBadGateway, extErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

// writeSinkFailure maps sink errors to 502, preserving which side failed in
// the detail so a human can diagnose it.
func (s *Server) writeSinkFailure(w http.ResponseWriter, err error) {
	var rejected *dispatch.SinkRejectedError
	switch {
	case errors.As(err, &rejected):
		writeError(w, http.StatusBadGateway, rejected.Error())
	case errors.Is(err, dispatch.ErrSinkUnavailable):
		writeError(w, http.StatusBadGateway, "sink request failed: "+err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
