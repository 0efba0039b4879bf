package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dvega/askme/internal/chat"
	"github.com/dvega/askme/internal/knowledge"
	"github.com/dvega/askme/internal/log"
)

// SessionHeader carries the caller's session identity. Requests without
// it share one process-wide default session.
const SessionHeader = "X-Session-ID"

const defaultSessionID = "default"

// Fixed boundary messages. The empty-question reply never invokes the
// pipeline; the failure reply is shown when generation fails and the
// conversation history stays untouched.
const (
	msgEmptyQuestion     = "Please type a question and I'll do my best to answer it."
	msgGenerationFailure = "I couldn't put together an answer just now. Please try again in a moment."
	msgChatCleared       = "Chat history cleared."
)

// Answerer is the orchestration contract the HTTP layer depends on.
type Answerer interface {
	Answer(ctx context.Context, sessionID, question string) (string, error)
	Reset(sessionID string)
}

// AskHandler serves the question and clear-chat endpoints.
type AskHandler struct {
	answerer Answerer
	logger   log.Logger
}

// NewAskHandler creates the handler.
func NewAskHandler(answerer Answerer, logger log.Logger) *AskHandler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &AskHandler{answerer: answerer, logger: logger}
}

// RegisterRoutes registers the ask routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/portfolio/ask-me", h.askMe)
	mux.HandleFunc("GET /api/clear-chat", h.clearChat)
}

// AskRequest is the ask-me request body.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the ask-me response body.
type AskResponse struct {
	Answer string `json:"answer"`
}

// ClearResponse is the clear-chat response body.
type ClearResponse struct {
	Message string `json:"message"`
}

func (h *AskHandler) askMe(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with a question field")
		return
	}

	// A missing question gets a friendly nudge and never reaches the
	// pipeline.
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusOK, AskResponse{Answer: msgEmptyQuestion})
		return
	}

	answer, err := h.answerer.Answer(r.Context(), sessionID(r), req.Question)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, AskResponse{Answer: answer})
	case errors.Is(err, chat.ErrInvalidInput):
		writeJSON(w, http.StatusOK, AskResponse{Answer: msgEmptyQuestion})
	case errors.Is(err, chat.ErrGeneration):
		h.logger.Error("generation failed", "error", err)
		writeJSON(w, http.StatusOK, AskResponse{Answer: msgGenerationFailure})
	case errors.Is(err, knowledge.ErrRetrievalUnavailable),
		errors.Is(err, knowledge.ErrStoreUnavailable),
		errors.Is(err, knowledge.ErrUpstreamTimeout):
		h.logger.Error("knowledge base unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "knowledge_unavailable", "the knowledge base is temporarily unavailable")
	default:
		h.logger.Error("answering question", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func (h *AskHandler) clearChat(w http.ResponseWriter, r *http.Request) {
	h.answerer.Reset(sessionID(r))
	writeJSON(w, http.StatusOK, ClearResponse{Message: msgChatCleared})
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	return defaultSessionID
}
