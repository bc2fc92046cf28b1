package chat

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xshopai/chat-gateway/internal/catalog"
	"github.com/xshopai/chat-gateway/internal/llm"
	"github.com/xshopai/chat-gateway/internal/tools"
)

// scriptedGateway returns canned results in order; the last result repeats
// when the script runs out. It records every transcript it was sent.
type scriptedGateway struct {
	configured bool
	results    []*llm.Result
	err        error

	mu          sync.Mutex
	calls       int
	transcripts [][]llm.Message
}

func (g *scriptedGateway) Configured() bool { return g.configured }

func (g *scriptedGateway) Complete(ctx context.Context, transcript []llm.Message, catalog []tools.Definition, choice llm.ToolChoice) (*llm.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	copied := make([]llm.Message, len(transcript))
	copy(copied, transcript)
	g.transcripts = append(g.transcripts, copied)

	idx := g.calls
	g.calls++

	if g.err != nil {
		return nil, g.err
	}
	if idx >= len(g.results) {
		idx = len(g.results) - 1
	}
	return g.results[idx], nil
}

// funcExecutor adapts a function to the ToolExecutor interface
type funcExecutor struct {
	fn func(call llm.ToolCall, ident Identity) any
}

func (e *funcExecutor) Execute(ctx context.Context, call llm.ToolCall, ident Identity) any {
	return e.fn(call, ident)
}

func textResult(content string, totalTokens int) *llm.Result {
	return &llm.Result{
		Content:      content,
		FinishReason: "stop",
		Usage:        &llm.Usage{TotalTokens: totalTokens},
	}
}

func toolCallResult(content string, calls ...llm.ToolCall) *llm.Result {
	return &llm.Result{
		Content:      content,
		ToolCalls:    calls,
		FinishReason: "tool_calls",
		Usage:        &llm.Usage{TotalTokens: 1},
	}
}

func TestProcess_NoToolCalls(t *testing.T) {
	gw := &scriptedGateway{configured: true, results: []*llm.Result{textResult("Hello there!", 42)}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(llm.ToolCall, Identity) any {
		t.Error("Executor should not be called when the model requests no tools")
		return nil
	}})

	resp := o.Process(context.Background(), Request{Message: "hi"})

	if gw.calls != 1 {
		t.Errorf("Expected exactly 1 model call, got %d", gw.calls)
	}
	if resp.Message != "Hello there!" {
		t.Errorf("Expected content returned verbatim, got '%s'", resp.Message)
	}
	if resp.Data != nil {
		t.Error("Expected no collected data")
	}
	if resp.Metadata == nil || resp.Metadata.TokensUsed != 42 {
		t.Errorf("Expected TokensUsed 42, got %+v", resp.Metadata)
	}
	if len(resp.Metadata.ToolsUsed) != 0 {
		t.Errorf("Expected no tools used, got %v", resp.Metadata.ToolsUsed)
	}
}

func TestProcess_GeneratesConversationID(t *testing.T) {
	gw := &scriptedGateway{configured: true, results: []*llm.Result{textResult("ok", 1)}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(llm.ToolCall, Identity) any { return nil }})

	resp := o.Process(context.Background(), Request{Message: "hi"})

	pattern := regexp.MustCompile(`^conv_\d+_[0-9a-f]{7}$`)
	if !pattern.MatchString(resp.ConversationID) {
		t.Errorf("Conversation id '%s' does not match conv_<epoch-ms>_<random7>", resp.ConversationID)
	}
}

func TestProcess_PreservesConversationID(t *testing.T) {
	gw := &scriptedGateway{configured: true, results: []*llm.Result{textResult("ok", 1)}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(llm.ToolCall, Identity) any { return nil }})

	resp := o.Process(context.Background(), Request{Message: "hi", ConversationID: "conv_1_abc1234"})
	if resp.ConversationID != "conv_1_abc1234" {
		t.Errorf("Expected conversation id preserved, got '%s'", resp.ConversationID)
	}
}

func TestProcess_NotConfigured(t *testing.T) {
	gw := &scriptedGateway{configured: false}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(llm.ToolCall, Identity) any {
		t.Error("Executor should not be called in degraded mode")
		return nil
	}})

	resp := o.Process(context.Background(), Request{Message: "hi", ConversationID: "conv_9_zzzzzzz"})

	if gw.calls != 0 {
		t.Errorf("Expected no model calls in degraded mode, got %d", gw.calls)
	}
	if resp.Message != notConfiguredMessage {
		t.Errorf("Expected the fixed degraded-mode message, got '%s'", resp.Message)
	}
	if resp.ConversationID != "conv_9_zzzzzzz" {
		t.Errorf("Expected conversation id preserved, got '%s'", resp.ConversationID)
	}
	if resp.Data != nil || resp.Metadata != nil {
		t.Error("Expected no data or metadata in degraded mode")
	}
}

func TestProcess_SingleToolRoundTrip(t *testing.T) {
	products := []catalog.Product{
		{ID: "p1", Name: "Road Runner", Price: 89.99},
		{ID: "p2", Name: "Trail Blazer", Price: 119.99},
	}

	gw := &scriptedGateway{configured: true, results: []*llm.Result{
		toolCallResult("", llm.ToolCall{ID: "call_1", Name: "searchProducts", Arguments: `{"query":"running shoes"}`}),
		textResult("Here are some running shoes I found for you:", 77),
	}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(call llm.ToolCall, _ Identity) any {
		return &catalog.SearchResult{Products: products, Total: 2}
	}})

	resp := o.Process(context.Background(), Request{Message: "find me running shoes"})

	if gw.calls != 2 {
		t.Fatalf("Expected 2 model calls, got %d", gw.calls)
	}
	if resp.Message != "Here are some running shoes I found for you:" {
		t.Errorf("Unexpected final message: '%s'", resp.Message)
	}
	if resp.Data == nil || len(resp.Data.Products) != 2 {
		t.Fatalf("Expected 2 collected products, got %+v", resp.Data)
	}
	if len(resp.Metadata.ToolsUsed) != 1 || resp.Metadata.ToolsUsed[0] != "searchProducts" {
		t.Errorf("Expected toolsUsed [searchProducts], got %v", resp.Metadata.ToolsUsed)
	}
	if resp.Metadata.TokensUsed != 77 {
		t.Errorf("Expected tokens from the final turn, got %d", resp.Metadata.TokensUsed)
	}

	// The second model call must have seen the assistant tool-call message
	// and a correlated tool reply.
	second := gw.transcripts[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "call_1" {
		t.Errorf("Expected trailing tool reply for call_1, got %+v", last)
	}
	assistant := second[len(second)-2]
	if assistant.Role != llm.RoleAssistant || len(assistant.ToolCalls) != 1 {
		t.Errorf("Expected assistant tool-call message before reply, got %+v", assistant)
	}
}

func TestProcess_IterationCeiling(t *testing.T) {
	gw := &scriptedGateway{configured: true, results: []*llm.Result{
		toolCallResult("", llm.ToolCall{ID: "c", Name: "getCategories", Arguments: `{}`}),
	}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(llm.ToolCall, Identity) any {
		return CategoriesPayload{Categories: []string{"Shoes"}}
	}})

	resp := o.Process(context.Background(), Request{Message: "loop forever"})

	if gw.calls != 5 {
		t.Errorf("Expected exactly 5 model calls at the ceiling, got %d", gw.calls)
	}
	if resp.Message != emptyReplyMessage {
		t.Errorf("Expected the empty-reply fallback at the ceiling, got '%s'", resp.Message)
	}
	if len(resp.Metadata.ToolsUsed) != 5 {
		t.Errorf("Expected 5 recorded tool uses, got %d", len(resp.Metadata.ToolsUsed))
	}
}

func TestProcess_CeilingKeepsLastContent(t *testing.T) {
	gw := &scriptedGateway{configured: true, results: []*llm.Result{
		toolCallResult("Still digging...", llm.ToolCall{ID: "c", Name: "getCategories", Arguments: `{}`}),
	}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(llm.ToolCall, Identity) any {
		return CategoriesPayload{Categories: nil}
	}})

	resp := o.Process(context.Background(), Request{Message: "loop"})
	if resp.Message != "Still digging..." {
		t.Errorf("Expected last turn's content at the ceiling, got '%s'", resp.Message)
	}
}

func TestProcess_ToolRepliesKeepRequestOrder(t *testing.T) {
	calls := []llm.ToolCall{
		{ID: "c1", Name: "searchProducts", Arguments: `{"query":"a"}`},
		{ID: "c2", Name: "searchProducts", Arguments: `{"query":"b"}`},
		{ID: "c3", Name: "searchProducts", Arguments: `{"query":"c"}`},
	}
	gw := &scriptedGateway{configured: true, results: []*llm.Result{
		toolCallResult("", calls...),
		textResult("done", 1),
	}}

	// Make the first call finish last to force completion order != request
	// order.
	o := NewOrchestrator(gw, &funcExecutor{fn: func(call llm.ToolCall, _ Identity) any {
		if call.ID == "c1" {
			time.Sleep(30 * time.Millisecond)
		}
		return &catalog.SearchResult{Products: []catalog.Product{{ID: call.ID}}}
	}})

	o.Process(context.Background(), Request{Message: "three searches"})

	second := gw.transcripts[1]
	var replies []llm.Message
	for _, m := range second {
		if m.Role == llm.RoleTool {
			replies = append(replies, m)
		}
	}

	if len(replies) != 3 {
		t.Fatalf("Expected 3 tool replies, got %d", len(replies))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if replies[i].ToolCallID != want {
			t.Errorf("Expected reply %d correlated to %s, got %s", i, want, replies[i].ToolCallID)
		}
		if !strings.Contains(replies[i].Content, want) {
			t.Errorf("Expected reply %d content to carry its own result, got %s", i, replies[i].Content)
		}
	}
}

func TestProcess_ToolErrorIsIsolated(t *testing.T) {
	gw := &scriptedGateway{configured: true, results: []*llm.Result{
		toolCallResult("",
			llm.ToolCall{ID: "bad", Name: "getProductDetails", Arguments: `{"productId":"x"}`},
			llm.ToolCall{ID: "good", Name: "searchProducts", Arguments: `{"query":"shoes"}`},
		),
		textResult("Partial results below.", 5),
	}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(call llm.ToolCall, _ Identity) any {
		if call.ID == "bad" {
			return ToolError{Error: "Failed to execute getProductDetails: boom"}
		}
		return &catalog.SearchResult{Products: []catalog.Product{{ID: "p1"}}}
	}})

	resp := o.Process(context.Background(), Request{Message: "mixed"})

	if resp.Message != "Partial results below." {
		t.Errorf("Expected processing to continue past the tool error, got '%s'", resp.Message)
	}

	second := gw.transcripts[1]
	var badReply string
	for _, m := range second {
		if m.Role == llm.RoleTool && m.ToolCallID == "bad" {
			badReply = m.Content
		}
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(badReply), &payload); err != nil {
		t.Fatalf("Failed to decode tool error reply: %v", err)
	}
	if payload["error"] == "" {
		t.Errorf("Expected an error field in the failed tool's reply, got %s", badReply)
	}

	// The error payload must not be folded into collected data.
	if resp.Data == nil || len(resp.Data.Products) != 1 {
		t.Errorf("Expected only the successful tool's product, got %+v", resp.Data)
	}
	if len(resp.Metadata.ToolsUsed) != 2 {
		t.Errorf("Expected both tools recorded regardless of success, got %v", resp.Metadata.ToolsUsed)
	}
}

func TestProcess_DuplicateResultsAccumulate(t *testing.T) {
	same := catalog.Product{ID: "p1", Name: "Road Runner"}
	gw := &scriptedGateway{configured: true, results: []*llm.Result{
		toolCallResult("", llm.ToolCall{ID: "c1", Name: "searchProducts", Arguments: `{"query":"shoes"}`}),
		toolCallResult("", llm.ToolCall{ID: "c2", Name: "searchProducts", Arguments: `{"query":"shoes"}`}),
		textResult("done", 1),
	}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(llm.ToolCall, Identity) any {
		return &catalog.SearchResult{Products: []catalog.Product{same}}
	}})

	resp := o.Process(context.Background(), Request{Message: "shoes twice"})

	if resp.Data == nil || len(resp.Data.Products) != 2 {
		t.Fatalf("Expected duplicated entries to accumulate without dedup, got %+v", resp.Data)
	}
	if resp.Data.Products[0].ID != "p1" || resp.Data.Products[1].ID != "p1" {
		t.Errorf("Expected both entries to be the same product, got %+v", resp.Data.Products)
	}
}

func TestProcess_CeilingAccumulatesAcrossIterations(t *testing.T) {
	gw := &scriptedGateway{configured: true, results: []*llm.Result{
		toolCallResult("",
			llm.ToolCall{ID: "a", Name: "searchProducts", Arguments: `{"query":"shoes"}`},
			llm.ToolCall{ID: "b", Name: "searchProducts", Arguments: `{"query":"shoes"}`},
		),
	}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(call llm.ToolCall, _ Identity) any {
		return &catalog.SearchResult{Products: []catalog.Product{{ID: "p1", Name: "Road Runner"}}}
	}})

	resp := o.Process(context.Background(), Request{Message: "shoes, relentlessly"})

	if gw.calls != 5 {
		t.Fatalf("Expected exactly 5 model calls at the ceiling, got %d", gw.calls)
	}
	if resp.Message != emptyReplyMessage {
		t.Errorf("Expected the empty-reply fallback at the ceiling, got '%s'", resp.Message)
	}

	// Two identical results per iteration, five iterations, no dedup.
	if resp.Data == nil || len(resp.Data.Products) != 10 {
		t.Fatalf("Expected 10 accumulated products, got %+v", resp.Data)
	}
	for i, p := range resp.Data.Products {
		if p.ID != "p1" {
			t.Errorf("Expected product %d to be p1, got %s", i, p.ID)
		}
	}
	if len(resp.Metadata.ToolsUsed) != 10 {
		t.Errorf("Expected 10 recorded tool uses, got %d", len(resp.Metadata.ToolsUsed))
	}
}

func TestProcess_ModelFailureYieldsApology(t *testing.T) {
	gw := &scriptedGateway{configured: true, err: errors.New("quota exceeded")}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(llm.ToolCall, Identity) any { return nil }})

	resp := o.Process(context.Background(), Request{Message: "hi", ConversationID: "conv_2_1234567"})

	if resp.Message != processingFailMessage {
		t.Errorf("Expected the generic apology, got '%s'", resp.Message)
	}
	if resp.ConversationID != "conv_2_1234567" {
		t.Errorf("Expected conversation id preserved for client retry, got '%s'", resp.ConversationID)
	}
}

func TestProcess_ContextTrimmedToLastTen(t *testing.T) {
	prev := make([]ContextMessage, 15)
	for i := range prev {
		prev[i] = ContextMessage{Role: "user", Content: "old"}
	}
	prev[5].Content = "first-kept"

	gw := &scriptedGateway{configured: true, results: []*llm.Result{textResult("ok", 1)}}
	o := NewOrchestrator(gw, &funcExecutor{fn: func(llm.ToolCall, Identity) any { return nil }})

	o.Process(context.Background(), Request{
		Message: "latest",
		Context: &Context{PreviousMessages: prev},
	})

	// system + 10 prior turns + new user message
	transcript := gw.transcripts[0]
	if len(transcript) != 12 {
		t.Fatalf("Expected 12 transcript messages, got %d", len(transcript))
	}
	if transcript[0].Role != llm.RoleSystem {
		t.Error("Expected system message first")
	}
	if transcript[1].Content != "first-kept" {
		t.Errorf("Expected oldest kept turn to be index 5 of the input, got '%s'", transcript[1].Content)
	}
	if transcript[11].Content != "latest" {
		t.Errorf("Expected the new user message last, got '%s'", transcript[11].Content)
	}
}
