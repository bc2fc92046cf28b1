package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xshopai/chat-gateway/internal/chat"
	"github.com/xshopai/chat-gateway/internal/config"
	"github.com/xshopai/chat-gateway/internal/observability"
)

type stubProcessor struct {
	lastReq  chat.Request
	lastCtx  context.Context
	response *chat.Response
}

func (s *stubProcessor) Process(ctx context.Context, req chat.Request) *chat.Response {
	s.lastCtx = ctx
	s.lastReq = req
	return s.response
}

func newTestHandler(resp *chat.Response) (*stubProcessor, *http.ServeMux) {
	svc := &stubProcessor{response: resp}
	cfg := &config.Config{ServiceName: "chat-gateway", ServiceVersion: "1.0.0"}
	mux := http.NewServeMux()
	NewHandler(cfg, svc).Register(mux)
	return svc, mux
}

func TestHandleMessage_Success(t *testing.T) {
	svc, mux := newTestHandler(&chat.Response{
		Message:        "Here you go",
		ConversationID: "conv_1_abcdefg",
	})

	body := `{"message":"find me shoes","userId":"user-1","authToken":"tok"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var env struct {
		Success bool          `json:"success"`
		Data    chat.Response `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !env.Success {
		t.Error("Expected success=true")
	}
	if env.Data.Message != "Here you go" {
		t.Errorf("Unexpected message: '%s'", env.Data.Message)
	}

	if svc.lastReq.Message != "find me shoes" || svc.lastReq.UserID != "user-1" || svc.lastReq.AuthToken != "tok" {
		t.Errorf("Request not forwarded to processor: %+v", svc.lastReq)
	}
}

func TestHandleMessage_MissingMessage(t *testing.T) {
	_, mux := newTestHandler(&chat.Response{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{"userId":"u"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if env.Success {
		t.Error("Expected success=false")
	}
	if env.Error != "Bad Request" {
		t.Errorf("Expected 'Bad Request' error, got '%s'", env.Error)
	}
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	_, mux := newTestHandler(&chat.Response{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestHandleMessage_MethodNotAllowed(t *testing.T) {
	_, mux := newTestHandler(&chat.Response{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/message", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestHandleMessage_TracePropagation(t *testing.T) {
	svc, mux := newTestHandler(&chat.Response{ConversationID: "c"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("x-trace-id", "trace-42")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if got := rec.Header().Get("x-trace-id"); got != "trace-42" {
		t.Errorf("Expected trace id echoed on response, got '%s'", got)
	}
	if got := observability.TraceIDFromContext(svc.lastCtx); got != "trace-42" {
		t.Errorf("Expected trace id in processor context, got '%s'", got)
	}
}

func TestHandleMessage_GeneratedTraceID(t *testing.T) {
	_, mux := newTestHandler(&chat.Response{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Header().Get("x-trace-id") == "" {
		t.Error("Expected a generated trace id on the response")
	}
	if rec.Header().Get("x-span-id") == "" {
		t.Error("Expected a generated span id on the response")
	}
}

func TestHandleHistory_Stub(t *testing.T) {
	_, mux := newTestHandler(&chat.Response{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history/conv_1_abcdefg", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			ConversationID string   `json:"conversationId"`
			Messages       []string `json:"messages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if env.Data.ConversationID != "conv_1_abcdefg" {
		t.Errorf("Unexpected conversation id: '%s'", env.Data.ConversationID)
	}
	if env.Data.Messages == nil || len(env.Data.Messages) != 0 {
		t.Errorf("Expected empty message list, got %v", env.Data.Messages)
	}
}

func TestHandleVersion(t *testing.T) {
	_, mux := newTestHandler(&chat.Response{})

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["service"] != "chat-gateway" || body["version"] != "1.0.0" {
		t.Errorf("Unexpected version payload: %v", body)
	}
}
