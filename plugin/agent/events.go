package agent

// EventType identifies a stream event kind.
type EventType string

const (
	// EventSession announces the conversation the run belongs to. Sent
	// at most once, before any token.
	EventSession EventType = "session"
	// EventToken carries one streamed answer fragment.
	EventToken EventType = "token"
	// EventDone terminates a successful run.
	EventDone EventType = "done"
	// EventError terminates a failed run.
	EventError EventType = "error"
)

// Event is one element of a chat result stream. Exactly one terminal
// event (done or error) ends every stream.
type Event struct {
	Type EventType `json:"type"`
	// ConversationUID is set on session events.
	ConversationUID string `json:"conversation_uid,omitempty"`
	// Token is set on token events.
	Token string `json:"token,omitempty"`
	// Answer is the full assistant answer, set on done events.
	Answer string `json:"answer,omitempty"`
	// Code and Message are set on error events.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SessionEvent builds a session event.
func SessionEvent(conversationUID string) Event {
	return Event{Type: EventSession, ConversationUID: conversationUID}
}

// TokenEvent builds a token event.
func TokenEvent(token string) Event {
	return Event{Type: EventToken, Token: token}
}

// DoneEvent builds a done event.
func DoneEvent(answer string) Event {
	return Event{Type: EventDone, Answer: answer}
}

// ErrorEvent builds an error event.
func ErrorEvent(code, message string) Event {
	return Event{Type: EventError, Code: code, Message: message}
}
