// Package llm wraps the Azure OpenAI chat completion API behind a neutral
// message/tool-call model, so the rest of the service never sees provider
// types.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/xshopai/chat-gateway/internal/config"
	"github.com/xshopai/chat-gateway/internal/observability"
	"github.com/xshopai/chat-gateway/internal/tools"
)

// ErrNotConfigured is returned when the Azure OpenAI endpoint or API key is
// missing. Callers treat this differently from a runtime failure: the chat
// orchestrator short-circuits into degraded mode instead of retrying.
var ErrNotConfigured = errors.New("azure openai is not configured: set AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY")

// Gateway performs single request/response exchanges with the model. The
// underlying client is established lazily on first use, guarded against
// concurrent first-use races.
type Gateway struct {
	cfg *config.Config

	once    sync.Once
	client  *openai.Client
	initErr error
}

// NewGateway creates a model gateway. No connection is made until the first
// Complete call.
func NewGateway(cfg *config.Config) *Gateway {
	return &Gateway{cfg: cfg}
}

// Configured reports whether the provider connection settings are present
func (g *Gateway) Configured() bool {
	return g.cfg.ModelConfigured()
}

func (g *Gateway) init() (*openai.Client, error) {
	g.once.Do(func() {
		if !g.cfg.ModelConfigured() {
			g.initErr = ErrNotConfigured
			return
		}

		providerCfg := openai.DefaultAzureConfig(g.cfg.AzureOpenAIAPIKey, g.cfg.AzureOpenAIEndpoint)
		providerCfg.APIVersion = g.cfg.AzureOpenAIAPIVersion
		g.client = openai.NewClientWithConfig(providerCfg)
	})
	return g.client, g.initErr
}

// Complete sends the transcript and tool catalog to the model and returns the
// mapped result. Provider failures propagate as a single error; no retries
// are performed at this layer.
func (g *Gateway) Complete(ctx context.Context, transcript []Message, catalog []tools.Definition, choice ToolChoice) (*Result, error) {
	client, err := g.init()
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx)
	log.Debug().
		Int("message_count", len(transcript)).
		Int("tool_count", len(catalog)).
		Str("deployment", g.cfg.AzureOpenAIDeployment).
		Msg("Sending chat completion request")

	req := openai.ChatCompletionRequest{
		Model:       g.cfg.AzureOpenAIDeployment,
		Messages:    providerMessages(transcript),
		Tools:       providerTools(catalog),
		Temperature: g.cfg.ModelTemperature,
		MaxTokens:   g.cfg.ModelMaxTokens,
	}
	if len(catalog) > 0 {
		req.ToolChoice = string(choice)
	}

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, req)
	observability.RecordModelCall(start, err)
	if err != nil {
		observability.RecordError("provider", "llm")
		log.Error().Err(err).Msg("Chat completion request failed")
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	result, err := resultFromResponse(resp)
	if err != nil {
		return nil, err
	}

	if result.Usage != nil {
		observability.RecordModelTokens(result.Usage.PromptTokens, result.Usage.CompletionTokens)
	}

	log.Debug().
		Str("finish_reason", result.FinishReason).
		Int("tool_calls", len(result.ToolCalls)).
		Msg("Chat completion response received")

	return result, nil
}

func providerMessages(transcript []Message) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(transcript))
	for _, m := range transcript {
		pm := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			pm.ToolCalls = append(pm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		msgs = append(msgs, pm)
	}
	return msgs
}

func providerTools(catalog []tools.Definition) []openai.Tool {
	if len(catalog) == 0 {
		return nil
	}
	defs := make([]openai.Tool, 0, len(catalog))
	for _, d := range catalog {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(d.Name),
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return defs
}

func resultFromResponse(resp openai.ChatCompletionResponse) (*Result, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}
	choice := resp.Choices[0]

	result := &Result{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		// A tool call without a function name is kept with an empty name; the
		// orchestrator's unknown-tool path produces the error reply.
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return result, nil
}
