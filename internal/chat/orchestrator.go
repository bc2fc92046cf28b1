// Package chat holds the conversation orchestrator: a bounded loop that
// alternates between asking the model and executing the tools it requests,
// then aggregates the results into a single response envelope.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xshopai/chat-gateway/internal/llm"
	"github.com/xshopai/chat-gateway/internal/observability"
	"github.com/xshopai/chat-gateway/internal/tools"
)

const systemPrompt = `You are a helpful shopping assistant for an e-commerce platform. You can help customers with:

1. **Product Search**: Find products by name, category, price range, or description
2. **Product Information**: Get details about specific products
3. **Order History**: View past orders and their status
4. **Order Tracking**: Track shipments and delivery status

Be friendly, concise, and helpful.

IMPORTANT: When showing products or orders, do NOT list them in your text response. The UI will automatically display interactive product/order cards with images, prices, and ratings. Just provide a brief summary like "Here are some phones I found for you:" or "I found 5 products matching your search." Let the cards do the work of showing details.

If the user is not logged in (no userId provided), you can still help with product searches but will need to let them know they need to log in to view their orders.

Always use the available tools to get real data - don't make up product names, prices, or order information.`

const (
	// The loop bounds both cost and the worst case where the model keeps
	// requesting tools on every turn.
	maxToolIterations = 5

	// At most this many prior turns from the client-supplied context are
	// replayed into the transcript.
	maxContextMessages = 10

	notConfiguredMessage  = "I'm sorry, the chat service is not fully configured yet. Please try again later or contact support."
	emptyReplyMessage     = "I'm sorry, I couldn't generate a response. Please try again."
	processingFailMessage = "I'm sorry, I encountered an error processing your request. Please try again."
)

// ModelGateway is the single-exchange contract to the language model
type ModelGateway interface {
	Configured() bool
	Complete(ctx context.Context, transcript []llm.Message, catalog []tools.Definition, choice llm.ToolChoice) (*llm.Result, error)
}

// ToolExecutor runs one tool call to completion, resolving every failure to a
// payload rather than an error
type ToolExecutor interface {
	Execute(ctx context.Context, call llm.ToolCall, ident Identity) any
}

// Orchestrator drives the conversation for one request. It holds no
// cross-request state; transcript and accumulator live on the stack of a
// single Process call.
type Orchestrator struct {
	gateway  ModelGateway
	executor ToolExecutor
}

// NewOrchestrator creates an orchestrator over the given gateway and executor
func NewOrchestrator(gateway ModelGateway, executor ToolExecutor) *Orchestrator {
	return &Orchestrator{gateway: gateway, executor: executor}
}

// Process handles one chat message end to end. It never fails past this
// boundary: every exit path, including an unconfigured model or an unexpected
// error mid-loop, yields a well-formed response carrying the conversation id.
func (o *Orchestrator) Process(ctx context.Context, req Request) (resp *Response) {
	if req.TraceID != "" && observability.TraceIDFromContext(ctx) == "" {
		ctx = observability.ContextWithTraceID(ctx, req.TraceID)
	}
	log := observability.LoggerFromContext(ctx)

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = newConversationID()
	}

	observability.RecordChatStart()
	start := time.Now()
	defer observability.RecordChatEnd(start)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Chat processing panicked")
			observability.RecordError("panic", "chat")
			resp = &Response{Message: processingFailMessage, ConversationID: conversationID}
		}
	}()

	if !o.gateway.Configured() {
		log.Warn().Msg("Model gateway not configured, returning fallback response")
		return &Response{Message: notConfiguredMessage, ConversationID: conversationID}
	}

	resp, err := o.run(ctx, req, conversationID)
	if err != nil {
		log.Error().Err(err).Msg("Chat processing failed")
		observability.RecordError("processing", "chat")
		return &Response{Message: processingFailMessage, ConversationID: conversationID}
	}
	return resp
}

func (o *Orchestrator) run(ctx context.Context, req Request, conversationID string) (*Response, error) {
	log := observability.LoggerFromContext(ctx)

	transcript := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}

	if req.Context != nil {
		prev := req.Context.PreviousMessages
		if len(prev) > maxContextMessages {
			prev = prev[len(prev)-maxContextMessages:]
		}
		for _, m := range prev {
			transcript = append(transcript, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
		}
	}

	transcript = append(transcript, llm.Message{Role: llm.RoleUser, Content: req.Message})

	ident := Identity{UserID: req.UserID, AuthToken: req.AuthToken}
	var toolsUsed []string
	var collected CollectedData
	var result *llm.Result

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		var err error
		result, err = o.gateway.Complete(ctx, transcript, tools.Catalog(), llm.ToolChoiceAuto)
		if err != nil {
			return nil, err
		}

		if len(result.ToolCalls) == 0 {
			break
		}

		log.Debug().
			Int("iteration", iteration+1).
			Int("tool_count", len(result.ToolCalls)).
			Msg("Processing tool calls")

		transcript = append(transcript, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})

		payloads := o.executeAll(ctx, result.ToolCalls, ident)

		// Tool replies are appended in the order the calls were requested,
		// not completion order, so the transcript stays deterministic for the
		// next model turn.
		for i, call := range result.ToolCalls {
			toolsUsed = append(toolsUsed, call.Name)

			payload := payloads[i]
			if _, failed := payload.(ToolError); !failed {
				collected.fold(payload)
			}

			content, err := json.Marshal(payload)
			if err != nil {
				content = []byte(`{"error":"failed to serialize tool result"}`)
			}
			transcript = append(transcript, llm.Message{
				Role:       llm.RoleTool,
				Content:    string(content),
				ToolCallID: call.ID,
			})
		}
	}

	// When the iteration ceiling was hit with tool calls still pending,
	// result holds the last model turn; its content, possibly empty, is the
	// best answer available.
	message := result.Content
	if message == "" {
		message = emptyReplyMessage
	}

	resp := &Response{
		Message:        message,
		ConversationID: conversationID,
	}
	if !collected.empty() {
		resp.Data = &collected
	}

	meta := &Metadata{}
	if len(toolsUsed) > 0 {
		meta.ToolsUsed = toolsUsed
	}
	if result.Usage != nil {
		meta.TokensUsed = result.Usage.TotalTokens
	}
	resp.Metadata = meta

	return resp, nil
}

// executeAll runs the tool calls of one iteration concurrently. The calls are
// mutually independent; results are returned indexed by request order so the
// caller can correlate replies regardless of completion order.
func (o *Orchestrator) executeAll(ctx context.Context, calls []llm.ToolCall, ident Identity) []any {
	payloads := make([]any, len(calls))

	var wg sync.WaitGroup
	for i := range calls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payloads[i] = o.executor.Execute(ctx, calls[i], ident)
		}(i)
	}
	wg.Wait()

	return payloads
}

// newConversationID builds an id of the form conv_<epoch-ms>_<random7>
func newConversationID() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:7]
	return fmt.Sprintf("conv_%d_%s", time.Now().UnixMilli(), suffix)
}
