package store

// IntegrationCredential holds the token material connecting a user to
// one external integration. Written by the OAuth/setup flow; the chat
// pipeline only reads it.
type IntegrationCredential struct {
	ID           int32
	UserID       int32
	Kind         string
	AccessToken  string
	RefreshToken string
	BaseURL      string
	// ExpiresTs is zero when the token does not expire.
	ExpiresTs int64
	CreatedTs int64
	UpdatedTs int64
}

type FindIntegrationCredential struct {
	UserID *int32
	Kind   *string
}

type DeleteIntegrationCredential struct {
	UserID int32
	Kind   string
}
