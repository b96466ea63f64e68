package store

import (
	"context"
	"database/sql"
)

// Driver is the interface a database backend implements.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Conversation model related methods.
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	// SetConversationTitleIfUnset sets the title only when it is still
	// empty. Returns true when the title was applied.
	SetConversationTitleIfUnset(ctx context.Context, id int32, title string) (bool, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	// Turn model related methods.
	CreateTurn(ctx context.Context, create *Turn) (*Turn, error)
	ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error)
	DeleteTurn(ctx context.Context, delete *DeleteTurn) error

	// Integration credential related methods.
	UpsertIntegrationCredential(ctx context.Context, upsert *IntegrationCredential) (*IntegrationCredential, error)
	ListIntegrationCredentials(ctx context.Context, find *FindIntegrationCredential) ([]*IntegrationCredential, error)
	DeleteIntegrationCredential(ctx context.Context, delete *DeleteIntegrationCredential) error
}
