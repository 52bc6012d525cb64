package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/apierr"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/realtime"
	"github.com/yungbote/scribe-backend/internal/relay/stream"
	"github.com/yungbote/scribe-backend/internal/services"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	return log
}

type fakeMemory struct {
	saveResult *types.SaveResult
	saveErr    error
	env        *types.Envelope
}

func (f *fakeMemory) Save(dbc dbctx.Context, env *types.Envelope) (*types.SaveResult, error) {
	return f.saveResult, f.saveErr
}

func (f *fakeMemory) Broadcast(dbc dbctx.Context, env *types.Envelope) (*types.SaveResult, error) {
	return f.saveResult, f.saveErr
}

func (f *fakeMemory) Retrieve(dbc dbctx.Context, req types.RetrieveRequest) (*types.Envelope, error) {
	return f.env, f.saveErr
}

func (f *fakeMemory) ResolveConflict(dbc dbctx.Context, req types.ConflictRequest) (*types.ConflictResult, error) {
	return &types.ConflictResult{SessionID: req.SessionID, ContextVersion: 5, Resolution: "merge"}, nil
}

func (f *fakeMemory) GetSession(dbc dbctx.Context, sessionID string) (*types.Session, error) {
	return nil, nil
}

func (f *fakeMemory) ListEvents(dbc dbctx.Context, sessionID string, limit int) ([]*types.AuditEvent, error) {
	return nil, nil
}

type fakeRelay struct {
	result *services.TurnResult
	err    error
	events []stream.Event
}

func (f *fakeRelay) Turn(dbc dbctx.Context, req services.TurnRequest, emit func(stream.Event)) (*services.TurnResult, error) {
	if emit != nil {
		for _, ev := range f.events {
			emit(ev)
		}
	}
	return f.result, f.err
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMemoryHandlerSave(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMemoryHandler(testLogger(t), &fakeMemory{
		saveResult: &types.SaveResult{SessionID: "sess-1", ContextVersion: 3},
	})
	r := gin.New()
	r.POST("/memory/save", h.Save)

	w := postJSON(r, "/memory/save", `{"session_id":"sess-1","payload":{}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res types.SaveResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.ContextVersion != 3 {
		t.Fatalf("expected version 3, got %d", res.ContextVersion)
	}
}

func TestMemoryHandlerBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMemoryHandler(testLogger(t), &fakeMemory{})
	r := gin.New()
	r.POST("/memory/save", h.Save)

	w := postJSON(r, "/memory/save", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewMemoryHandler(testLogger(t), &fakeMemory{
		saveErr: apierr.New(http.StatusBadRequest, "invalid_envelope", fmt.Errorf("bad role")),
	})
	r := gin.New()
	r.POST("/memory/save", h.Save)

	w := postJSON(r, "/memory/save", `{"session_id":"sess-1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("tagged client errors keep their status, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_envelope") {
		t.Fatalf("expected error code in body, got %s", w.Body.String())
	}

	h2 := NewMemoryHandler(testLogger(t), &fakeMemory{saveErr: fmt.Errorf("pq: connection refused")})
	r2 := gin.New()
	r2.POST("/memory/save", h2.Save)

	w2 := postJSON(r2, "/memory/save", `{"session_id":"sess-1"}`)
	if w2.Code != http.StatusInternalServerError {
		t.Fatalf("untagged errors become 500, got %d", w2.Code)
	}
	if strings.Contains(w2.Body.String(), "connection refused") {
		t.Fatalf("internal error detail must not leak: %s", w2.Body.String())
	}
}

func TestRelayHandlerNonStreaming(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewRelayHandler(testLogger(t), &fakeRelay{
		result: &services.TurnResult{Content: "hello there"},
	})
	r := gin.New()
	r.POST("/relay/turn", h.Turn)

	w := postJSON(r, "/relay/turn", `{"prompt":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["content"] != "hello there" {
		t.Fatalf("expected content field, got %v", body)
	}
}

func TestRelayHandlerStreaming(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewRelayHandler(testLogger(t), &fakeRelay{
		result: &services.TurnResult{Content: "chunk"},
		events: []stream.Event{stream.Delta("chunk"), stream.Done()},
	})
	r := gin.New()
	r.POST("/relay/turn", h.Turn)

	w := postJSON(r, "/relay/turn", `{"prompt":"hi","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected SSE content type, got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, `event: delta`) || !strings.Contains(body, `"text":"chunk"`) {
		t.Fatalf("expected delta frame, got %s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("stream must close with the [DONE] sentinel, got %s", body)
	}
}

func TestRealtimeStreamRequiresSessionID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewRealtimeHandler(testLogger(t), realtime.NewSSEHub(testLogger(t)))
	r := gin.New()
	r.GET("/realtime/stream", h.Stream)

	req := httptest.NewRequest(http.MethodGet, "/realtime/stream", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing session_id should 400, got %d", w.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/realtime/stream?session_id=!bad!", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("malformed session_id should 400, got %d", w2.Code)
	}
}
