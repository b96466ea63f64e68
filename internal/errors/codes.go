package errors

import (
	"fmt"
)

// ErrorCode identifies a class of chat pipeline failure.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates the per-user rate limit was hit.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeProviderUnavailable indicates the model provider is not reachable.
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// ErrCodeAgentRunFailed indicates the agent run failed.
	ErrCodeAgentRunFailed ErrorCode = "AGENT_RUN_FAILED"
	// ErrCodeIterationLimit indicates the agent hit its reasoning step cap.
	ErrCodeIterationLimit ErrorCode = "ITERATION_LIMIT"
	// ErrCodeConversationNotFound indicates an unknown conversation UID.
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// ChatError is a structured error carried across the chat pipeline.
type ChatError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ChatError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a context value to the error.
func (e *ChatError) WithContext(key string, value interface{}) *ChatError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *ChatError {
	return &ChatError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *ChatError {
	return &ChatError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *ChatError {
	return &ChatError{Code: ErrCodeInvalidArgument, Message: msg}
}

// ProviderUnavailable creates a provider unavailable error.
func ProviderUnavailable(msg string, cause error) *ChatError {
	return &ChatError{Code: ErrCodeProviderUnavailable, Message: msg, Cause: cause}
}

// AgentRunFailed creates an agent run failed error.
func AgentRunFailed(msg string, cause error) *ChatError {
	return &ChatError{Code: ErrCodeAgentRunFailed, Message: msg, Cause: cause}
}

// IterationLimit creates an iteration limit error.
func IterationLimit(limit int) *ChatError {
	return &ChatError{
		Code:    ErrCodeIterationLimit,
		Message: fmt.Sprintf("agent exceeded %d reasoning steps", limit),
	}
}

// ConversationNotFound creates a conversation not found error.
func ConversationNotFound(uid string) *ChatError {
	return &ChatError{
		Code:    ErrCodeConversationNotFound,
		Message: fmt.Sprintf("conversation not found: %s", uid),
	}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *ChatError {
	return &ChatError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *ChatError {
	return &ChatError{Code: ErrCodeTimeout, Message: msg}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *ChatError {
	return &ChatError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks whether an error carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	if cerr, ok := err.(*ChatError); ok {
		return cerr.Code == code
	}
	return false
}

// CodeOf extracts the error code from any error, falling back to
// defaultCode when the error is not a ChatError.
func CodeOf(err error, defaultCode ErrorCode) ErrorCode {
	if cerr, ok := err.(*ChatError); ok {
		return cerr.Code
	}
	return defaultCode
}
