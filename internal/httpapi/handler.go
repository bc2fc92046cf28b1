// Package httpapi is the inbound HTTP surface of the chat gateway.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xshopai/chat-gateway/internal/chat"
	"github.com/xshopai/chat-gateway/internal/config"
	"github.com/xshopai/chat-gateway/internal/observability"
)

// Processor handles one chat message; it always returns a well-formed
// response
type Processor interface {
	Process(ctx context.Context, req chat.Request) *chat.Response
}

// Handler serves the chat API routes
type Handler struct {
	cfg *config.Config
	svc Processor
}

// NewHandler creates the chat API handler
func NewHandler(cfg *config.Config, svc Processor) *Handler {
	return &Handler{cfg: cfg, svc: svc}
}

// Register attaches all chat routes to the mux, wrapped in trace middleware
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/api/chat/message", WithTrace(http.HandlerFunc(h.handleMessage)))
	mux.Handle("/api/chat/history/", WithTrace(http.HandlerFunc(h.handleHistory)))
	mux.HandleFunc("/", h.handleInfo)
	mux.HandleFunc("/version", h.handleVersion)
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// POST /api/chat/message
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{
			Success: false,
			Error:   "Method Not Allowed",
			Message: "Use POST to send a chat message",
		})
		return
	}

	log := observability.LoggerFromContext(r.Context())

	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Error:   "Bad Request",
			Message: "Request body must be valid JSON",
		})
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Error:   "Bad Request",
			Message: "Message is required and must be a string",
		})
		return
	}

	log.Info().
		Str("user_id", req.UserID).
		Str("conversation_id", req.ConversationID).
		Int("message_length", len(req.Message)).
		Msg("Processing chat message")

	resp := h.svc.Process(r.Context(), req)

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: resp})
}

type historyPayload struct {
	ConversationID string   `json:"conversationId"`
	Messages       []string `json:"messages"`
}

// GET /api/chat/history/{conversationId}
//
// Conversations are not persisted; the contract is served with an empty
// message list so clients have a stable endpoint once persistence lands.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{
			Success: false,
			Error:   "Method Not Allowed",
			Message: "Use GET to fetch conversation history",
		})
		return
	}

	conversationID := strings.TrimPrefix(r.URL.Path, "/api/chat/history/")
	if conversationID == "" || strings.Contains(conversationID, "/") {
		http.NotFound(w, r)
		return
	}

	log := observability.LoggerFromContext(r.Context())
	log.Info().
		Str("conversation_id", conversationID).
		Msg("Fetching conversation history")

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: historyPayload{
		ConversationID: conversationID,
		Messages:       []string{},
	}})
}

// GET /
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Welcome to the Chat Gateway",
		"service":     h.cfg.ServiceName,
		"description": "AI-powered chat service for the xshopai platform",
	})
}

// GET /version
func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": h.cfg.ServiceName,
		"version": h.cfg.ServiceVersion,
	})
}
