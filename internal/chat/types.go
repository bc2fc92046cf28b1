package chat

import (
	"github.com/xshopai/chat-gateway/internal/catalog"
	"github.com/xshopai/chat-gateway/internal/orders"
)

// ContextMessage is one prior turn supplied by the client. Only user and
// assistant turns are expected; the transcript is not persisted server-side.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Context carries client-supplied conversation history
type Context struct {
	PreviousMessages []ContextMessage `json:"previousMessages,omitempty"`
}

// Request is one inbound chat message
type Request struct {
	Message        string   `json:"message"`
	UserID         string   `json:"userId,omitempty"`
	ConversationID string   `json:"conversationId,omitempty"`
	Context        *Context `json:"context,omitempty"`
	TraceID        string   `json:"-"`
	AuthToken      string   `json:"authToken,omitempty"`
}

// CollectedData accumulates the structured records gathered from tool results
// across loop iterations, for client-side rendering. Entries are appended in
// execution order and deliberately not deduplicated: repeated tool calls
// append repeated records.
type CollectedData struct {
	Products []catalog.Product `json:"products,omitempty"`
	Orders   []orders.Order    `json:"orders,omitempty"`
}

func (c *CollectedData) empty() bool {
	return len(c.Products) == 0 && len(c.Orders) == 0
}

// Metadata describes how a response was produced
type Metadata struct {
	ToolsUsed  []string `json:"toolsUsed,omitempty"`
	TokensUsed int      `json:"tokensUsed,omitempty"`
}

// Response is the final answer for one chat request
type Response struct {
	Message        string         `json:"message"`
	ConversationID string         `json:"conversationId"`
	Data           *CollectedData `json:"data,omitempty"`
	Metadata       *Metadata      `json:"metadata,omitempty"`
}

// Identity is the resolved caller identity forwarded to identity-requiring
// tools
type Identity struct {
	UserID    string
	AuthToken string
}

// ToolError is the structured error payload surfaced to the model in place of
// a domain result. Tool failures never abort the conversation; they resolve
// to this shape.
type ToolError struct {
	Error string `json:"error"`
}
