package store

import (
	"context"

	"github.com/studyhallhq/studyhall/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns the first conversation matching find, or nil
// when none matches.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	list, err := s.driver.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) SetConversationTitleIfUnset(ctx context.Context, id int32, title string) (bool, error) {
	return s.driver.SetConversationTitleIfUnset(ctx, id, title)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}

func (s *Store) CreateTurn(ctx context.Context, create *Turn) (*Turn, error) {
	return s.driver.CreateTurn(ctx, create)
}

func (s *Store) ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error) {
	return s.driver.ListTurns(ctx, find)
}

func (s *Store) DeleteTurn(ctx context.Context, delete *DeleteTurn) error {
	return s.driver.DeleteTurn(ctx, delete)
}

func (s *Store) UpsertIntegrationCredential(ctx context.Context, upsert *IntegrationCredential) (*IntegrationCredential, error) {
	return s.driver.UpsertIntegrationCredential(ctx, upsert)
}

func (s *Store) ListIntegrationCredentials(ctx context.Context, find *FindIntegrationCredential) ([]*IntegrationCredential, error) {
	return s.driver.ListIntegrationCredentials(ctx, find)
}

// GetIntegrationCredential returns the credential for a user and kind,
// or nil when the integration is not connected.
func (s *Store) GetIntegrationCredential(ctx context.Context, userID int32, kind string) (*IntegrationCredential, error) {
	list, err := s.driver.ListIntegrationCredentials(ctx, &FindIntegrationCredential{
		UserID: &userID,
		Kind:   &kind,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteIntegrationCredential(ctx context.Context, delete *DeleteIntegrationCredential) error {
	return s.driver.DeleteIntegrationCredential(ctx, delete)
}
