package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvega/askme/internal/chat"
	"github.com/dvega/askme/internal/knowledge"
)

type fakeAnswerer struct {
	answer string
	err    error

	calls        int
	lastSession  string
	lastQuestion string
	resets       []string
}

func (f *fakeAnswerer) Answer(ctx context.Context, sessionID, question string) (string, error) {
	f.calls++
	f.lastSession = sessionID
	f.lastQuestion = question
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeAnswerer) Reset(sessionID string) {
	f.resets = append(f.resets, sessionID)
}

func newTestServer(answerer Answerer) http.Handler {
	return NewServer(answerer, nil, nil).Handler()
}

func postAsk(t *testing.T, handler http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/portfolio/ask-me", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeAnswer(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Answer
}

func TestAskMe_Success(t *testing.T) {
	fake := &fakeAnswerer{answer: "I build Go services."}
	rec := postAsk(t, newTestServer(fake), `{"question":"What do you do?"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "I build Go services.", decodeAnswer(t, rec))
	assert.Equal(t, "What do you do?", fake.lastQuestion)
	assert.Equal(t, "default", fake.lastSession, "no header falls back to the shared session")
}

func TestAskMe_SessionHeader(t *testing.T) {
	fake := &fakeAnswerer{answer: "hi"}
	rec := postAsk(t, newTestServer(fake), `{"question":"hello"}`,
		map[string]string{SessionHeader: "visitor-42"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "visitor-42", fake.lastSession)
}

func TestAskMe_EmptyQuestionShortCircuits(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing field", `{}`},
		{"empty string", `{"question":""}`},
		{"whitespace only", `{"question":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAnswerer{}
			rec := postAsk(t, newTestServer(fake), tt.body, nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, msgEmptyQuestion, decodeAnswer(t, rec))
			assert.Zero(t, fake.calls, "the pipeline must not be invoked")
		})
	}
}

func TestAskMe_MalformedBody(t *testing.T) {
	fake := &fakeAnswerer{}
	rec := postAsk(t, newTestServer(fake), `not json at all`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, fake.calls)
}

func TestAskMe_GenerationFailureIsAFriendlyMessage(t *testing.T) {
	fake := &fakeAnswerer{err: fmt.Errorf("%w: model call after 3 retries", chat.ErrGeneration)}
	rec := postAsk(t, newTestServer(fake), `{"question":"Who are you?"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgGenerationFailure, decodeAnswer(t, rec))
}

func TestAskMe_KnowledgeUnavailable(t *testing.T) {
	for _, cause := range []error{
		knowledge.ErrRetrievalUnavailable,
		knowledge.ErrStoreUnavailable,
		knowledge.ErrUpstreamTimeout,
	} {
		t.Run(cause.Error(), func(t *testing.T) {
			fake := &fakeAnswerer{err: fmt.Errorf("retrieving context: %w", cause)}
			rec := postAsk(t, newTestServer(fake), `{"question":"Who are you?"}`, nil)

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "knowledge_unavailable", resp.Error)
		})
	}
}

func TestAskMe_UnexpectedError(t *testing.T) {
	fake := &fakeAnswerer{err: fmt.Errorf("bootstrapping index: boom")}
	rec := postAsk(t, newTestServer(fake), `{"question":"Who are you?"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAskMe_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/portfolio/ask-me", nil)
	rec := httptest.NewRecorder()
	newTestServer(&fakeAnswerer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestClearChat(t *testing.T) {
	fake := &fakeAnswerer{}
	req := httptest.NewRequest(http.MethodGet, "/api/clear-chat", nil)
	req.Header.Set(SessionHeader, "visitor-42")
	rec := httptest.NewRecorder()
	newTestServer(fake).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ClearResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, msgChatCleared, resp.Message)
	assert.Equal(t, []string{"visitor-42"}, fake.resets)
}

func TestClearChat_DefaultSession(t *testing.T) {
	fake := &fakeAnswerer{}
	req := httptest.NewRequest(http.MethodGet, "/api/clear-chat", nil)
	rec := httptest.NewRecorder()
	newTestServer(fake).ServeHTTP(rec, req)

	assert.Equal(t, []string{"default"}, fake.resets)
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	newTestServer(&fakeAnswerer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadyEndpoint_NoPool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	newTestServer(&fakeAnswerer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := chain(panicky, recoveryMiddleware(nil), loggingMiddleware(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
