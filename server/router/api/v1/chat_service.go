package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/studyhallhq/studyhall/plugin/agent"
	"github.com/studyhallhq/studyhall/server/chat"
	apierrors "github.com/studyhallhq/studyhall/internal/errors"
)

// ChatMessageRequest is the body of both chat endpoints.
type ChatMessageRequest struct {
	Message         string `json:"message"`
	ConversationUID string `json:"conversation_uid,omitempty"`
	// CanvasToken and CanvasBaseURL optionally grant Canvas access for
	// this request only, without storing a credential.
	CanvasToken   string `json:"canvas_token,omitempty"`
	CanvasBaseURL string `json:"canvas_base_url,omitempty"`
}

// ChatMessageResponse is the non-streaming chat reply.
type ChatMessageResponse struct {
	ConversationUID string `json:"conversation_uid"`
	Answer          string `json:"answer"`
}

// StreamChatMessage handles POST /api/v1/chat/messages/stream.
// Events are written as SSE data frames, one JSON event per frame,
// in the order the run produces them. Client disconnect cancels the
// run.
func (s *APIV1Service) StreamChatMessage(c echo.Context) error {
	req, err := bindChatRequest(c)
	if err != nil {
		return err
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	stream := s.Chat.Stream(c.Request().Context(), *req)
	defer stream.Cancel()

	for event := range stream.Events() {
		if err := writeSSEEvent(resp, event); err != nil {
			// Client is gone. Cancel so the run stops and the partial
			// turn is discarded.
			slog.Debug("chat stream client disconnected", "error", err)
			stream.Cancel()
			return nil
		}
	}
	return nil
}

// PostChatMessage handles POST /api/v1/chat/messages. It runs the same
// pipeline as the streaming endpoint and returns the assembled answer.
func (s *APIV1Service) PostChatMessage(c echo.Context) error {
	req, err := bindChatRequest(c)
	if err != nil {
		return err
	}

	conversationUID, answer, err := s.Chat.Message(c.Request().Context(), *req)
	if err != nil {
		return echo.NewHTTPError(chatErrorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ChatMessageResponse{
		ConversationUID: conversationUID,
		Answer:          answer,
	})
}

func bindChatRequest(c echo.Context) (*chat.Request, error) {
	var body ChatMessageRequest
	if err := c.Bind(&body); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(body.Message) == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	return &chat.Request{
		UserID:          currentUserID(c),
		ConversationUID: body.ConversationUID,
		Message:         body.Message,
		CanvasToken:     body.CanvasToken,
		CanvasBaseURL:   body.CanvasBaseURL,
	}, nil
}

func writeSSEEvent(resp *echo.Response, event agent.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
		return err
	}
	resp.Flush()
	return nil
}

func chatErrorStatus(err error) int {
	switch apierrors.CodeOf(err, apierrors.ErrCodeAgentRunFailed) {
	case apierrors.ErrCodeConversationNotFound:
		return http.StatusNotFound
	case apierrors.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case apierrors.ErrCodeProviderUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
