package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyhallhq/studyhall/store"
)

// ConversationResponse is one conversation in a listing.
type ConversationResponse struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	CreatedTs int64  `json:"created_ts"`
	UpdatedTs int64  `json:"updated_ts"`
}

// TurnResponse is one message of a conversation's history.
type TurnResponse struct {
	UID       string `json:"uid"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"created_ts"`
}

// ListConversations handles GET /api/v1/chat/conversations.
func (s *APIV1Service) ListConversations(c echo.Context) error {
	userID := currentUserID(c)
	conversations, err := s.Store.ListConversations(c.Request().Context(), &store.FindConversation{
		CreatorID: &userID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list conversations")
	}

	resp := make([]ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		resp = append(resp, ConversationResponse{
			UID:       conversation.UID,
			Title:     conversation.Title,
			CreatedTs: conversation.CreatedTs,
			UpdatedTs: conversation.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// ListConversationTurns handles GET /api/v1/chat/conversations/:uid/turns.
// Turns are returned oldest first.
func (s *APIV1Service) ListConversationTurns(c echo.Context) error {
	conversation, err := s.ownedConversation(c)
	if err != nil {
		return err
	}

	turns, err := s.Store.ListTurns(c.Request().Context(), &store.FindTurn{
		ConversationID: &conversation.ID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load conversation history")
	}

	resp := make([]TurnResponse, 0, len(turns))
	for _, turn := range turns {
		resp = append(resp, TurnResponse{
			UID:       turn.UID,
			Role:      string(turn.Role),
			Content:   turn.Content,
			CreatedTs: turn.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteConversation handles DELETE /api/v1/chat/conversations/:uid.
// Turns are removed with the conversation.
func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	conversation, err := s.ownedConversation(c)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteConversation(c.Request().Context(), &store.DeleteConversation{ID: conversation.ID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete conversation")
	}
	return c.NoContent(http.StatusNoContent)
}

// ownedConversation resolves the :uid path parameter to a conversation
// owned by the requesting user. Conversations of other users are
// indistinguishable from missing ones.
func (s *APIV1Service) ownedConversation(c echo.Context) (*store.Conversation, error) {
	uid := c.Param("uid")
	userID := currentUserID(c)
	conversation, err := s.Store.GetConversation(c.Request().Context(), &store.FindConversation{
		UID:       &uid,
		CreatorID: &userID,
	})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load conversation")
	}
	if conversation == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	return conversation, nil
}
