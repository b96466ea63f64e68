package ai

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a chat message.
type Message struct {
	Role    string
	Content string
	// ToolCalls is set on assistant messages that requested tool
	// invocations.
	ToolCalls []ToolCall
	// ToolCallID is set on tool result messages and matches the
	// originating call.
	ToolCallID string
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// ToolDefinition describes a callable tool exposed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object describing the arguments.
	Parameters map[string]any
}

// ChatRequest is one completion request.
type ChatRequest struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Messages    []Message
	Tools       []ToolDefinition
}

// StepResult is the outcome of one streamed completion. When the model
// requested tools, ToolCalls is non-empty and Content holds any text
// emitted alongside. Otherwise Content is the full answer whose tokens
// were already delivered to the caller's token callback.
type StepResult struct {
	Content   string
	ToolCalls []ToolCall
}

// SystemMessage builds a system role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResultMessage builds a tool result message for a given call.
func ToolResultMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}
