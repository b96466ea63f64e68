package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/studyhallhq/studyhall/server/integration"
	"github.com/studyhallhq/studyhall/store"
)

// IntegrationResponse describes one integration's connection state for
// the requesting user. Token material is never echoed back.
type IntegrationResponse struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	BaseURL   string `json:"base_url,omitempty"`
	UpdatedTs int64  `json:"updated_ts,omitempty"`
}

// ConnectIntegrationRequest is the body of PUT /api/v1/integrations/:kind.
type ConnectIntegrationRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	BaseURL      string `json:"base_url,omitempty"`
	ExpiresTs    int64  `json:"expires_ts,omitempty"`
}

// ListIntegrations handles GET /api/v1/integrations. All known kinds
// are listed so the client can render connect buttons for the missing
// ones.
func (s *APIV1Service) ListIntegrations(c echo.Context) error {
	userID := currentUserID(c)
	credentials, err := s.Store.ListIntegrationCredentials(c.Request().Context(), &store.FindIntegrationCredential{
		UserID: &userID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list integrations")
	}

	byKind := make(map[string]*store.IntegrationCredential, len(credentials))
	for _, credential := range credentials {
		byKind[credential.Kind] = credential
	}

	resp := make([]IntegrationResponse, 0, len(integration.Kinds()))
	for _, kind := range integration.Kinds() {
		item := IntegrationResponse{
			Kind: string(kind),
			Name: kind.DisplayName(),
		}
		if credential, ok := byKind[string(kind)]; ok {
			item.Connected = true
			item.BaseURL = credential.BaseURL
			item.UpdatedTs = credential.UpdatedTs
		}
		resp = append(resp, item)
	}
	return c.JSON(http.StatusOK, resp)
}

// ConnectIntegration handles PUT /api/v1/integrations/:kind, storing or
// replacing the credential for one integration.
func (s *APIV1Service) ConnectIntegration(c echo.Context) error {
	kind, err := pathKind(c)
	if err != nil {
		return err
	}

	var body ConnectIntegrationRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(body.AccessToken) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "access_token is required")
	}

	credential, err := s.Store.UpsertIntegrationCredential(c.Request().Context(), &store.IntegrationCredential{
		UserID:       currentUserID(c),
		Kind:         string(kind),
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		BaseURL:      body.BaseURL,
		ExpiresTs:    body.ExpiresTs,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store credential")
	}
	return c.JSON(http.StatusOK, IntegrationResponse{
		Kind:      credential.Kind,
		Name:      kind.DisplayName(),
		Connected: true,
		BaseURL:   credential.BaseURL,
		UpdatedTs: credential.UpdatedTs,
	})
}

// DisconnectIntegration handles DELETE /api/v1/integrations/:kind.
func (s *APIV1Service) DisconnectIntegration(c echo.Context) error {
	kind, err := pathKind(c)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteIntegrationCredential(c.Request().Context(), &store.DeleteIntegrationCredential{
		UserID: currentUserID(c),
		Kind:   string(kind),
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete credential")
	}
	return c.NoContent(http.StatusNoContent)
}

func pathKind(c echo.Context) (integration.Kind, error) {
	kind := integration.Kind(c.Param("kind"))
	for _, known := range integration.Kinds() {
		if kind == known {
			return kind, nil
		}
	}
	return "", echo.NewHTTPError(http.StatusBadRequest, "unknown integration kind")
}
