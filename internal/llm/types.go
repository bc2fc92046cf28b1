package llm

// Role of a transcript message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured action request emitted by the model. Arguments is
// the raw JSON blob as received; validation happens at dispatch time.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry of the conversation transcript. Assistant messages may
// carry tool calls; tool messages answer one call, correlated by ToolCallID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// Usage is the provider-reported token accounting for one completion
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is one completion exchange with the model: either free-text content,
// a list of requested tool calls, or both.
type Result struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        *Usage
}

// ToolChoice controls how the model selects tools
type ToolChoice string

// ToolChoiceAuto lets the model decide whether to call tools
const ToolChoiceAuto ToolChoice = "auto"
