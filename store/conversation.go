package store

// Conversation is one chat session between a student and the
// assistant.
type Conversation struct {
	ID        int32
	UID       string
	CreatorID int32
	Title     string
	CreatedTs int64
	UpdatedTs int64
}

type FindConversation struct {
	ID        *int32
	UID       *string
	CreatorID *int32
}

type UpdateConversation struct {
	ID        int32
	Title     *string
	UpdatedTs *int64
}

type DeleteConversation struct {
	ID int32
}

// TurnRole distinguishes who produced a turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "USER"
	TurnRoleAssistant TurnRole = "ASSISTANT"
)

// Turn is one message inside a conversation.
type Turn struct {
	ID             int32
	UID            string
	ConversationID int32
	Role           TurnRole
	Content        string
	CreatedTs      int64
}

type FindTurn struct {
	ID             *int32
	ConversationID *int32
	// Last limits the result to the most recent N turns. The returned
	// slice is still in chronological order.
	Last *int
}

type DeleteTurn struct {
	ID             *int32
	ConversationID *int32
}
