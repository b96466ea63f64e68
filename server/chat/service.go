// Package chat orchestrates one assistant exchange: resolve the user's
// capabilities, compose the prompt, replay recent history, run the
// agent loop, stream the answer, and persist the completed turn pair.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/studyhallhq/studyhall/internal/profile"
	"github.com/studyhallhq/studyhall/plugin/agent"
	"github.com/studyhallhq/studyhall/plugin/ai"
	"github.com/studyhallhq/studyhall/server/integration"
	apierrors "github.com/studyhallhq/studyhall/internal/errors"
	"github.com/studyhallhq/studyhall/internal/observability"
	"github.com/studyhallhq/studyhall/server/prompt"
	"github.com/studyhallhq/studyhall/store"
)

// Request is one incoming chat message.
type Request struct {
	UserID int32
	// ConversationUID continues an existing conversation; empty starts
	// a new one.
	ConversationUID string
	Message         string

	// Inline Canvas access for this request only, overriding the
	// stored credential.
	CanvasToken   string
	CanvasBaseURL string
}

// Service wires the chat pipeline together.
type Service struct {
	profile  *profile.Profile
	store    *store.Store
	registry *integration.Registry
	composer *prompt.Composer
	llm      ai.LLMService
	loop     *agent.Loop
	titles   *TitleGenerator
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService creates the chat service.
func NewService(
	profile *profile.Profile,
	st *store.Store,
	registry *integration.Registry,
	composer *prompt.Composer,
	llm ai.LLMService,
	loop *agent.Loop,
	titles *TitleGenerator,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profile:  profile,
		store:    st,
		registry: registry,
		composer: composer,
		llm:      llm,
		loop:     loop,
		titles:   titles,
		metrics:  observability.GlobalMetrics(),
		logger:   logger,
	}
}

// Stream starts a chat run and returns its event stream. The run is
// tied to ctx; canceling either ctx or the stream abandons it without
// persisting the in-flight turn pair.
func (s *Service) Stream(ctx context.Context, req Request) *Stream {
	runCtx, cancel := context.WithCancel(ctx)
	stream := newStream(cancel)
	go s.run(runCtx, req, stream)
	return stream
}

// Message is the non-streaming variant: it drains the run and returns
// the conversation UID with the full answer.
func (s *Service) Message(ctx context.Context, req Request) (conversationUID, answer string, err error) {
	stream := s.Stream(ctx, req)
	for event := range stream.Events() {
		switch event.Type {
		case agent.EventSession:
			conversationUID = event.ConversationUID
		case agent.EventDone:
			answer = event.Answer
		case agent.EventError:
			err = &apierrors.ChatError{
				Code:    apierrors.ErrorCode(event.Code),
				Message: event.Message,
			}
		}
	}
	return conversationUID, answer, err
}

// run is the stream producer. It emits exactly one terminal event and
// closes the stream.
func (s *Service) run(ctx context.Context, req Request, stream *Stream) {
	defer stream.close()

	reqCtx := observability.NewRequestContext(s.logger, req.UserID, req.ConversationUID)
	ctx = observability.WithRequestContext(ctx, reqCtx)
	s.metrics.RecordRun()

	if strings.TrimSpace(req.Message) == "" {
		s.fail(ctx, stream, reqCtx, apierrors.InvalidArgument("message is empty"))
		return
	}

	conversation, err := s.resolveConversation(ctx, req)
	if err != nil {
		s.fail(ctx, stream, reqCtx, err)
		return
	}
	reqCtx.ConversationUID = conversation.UID

	if err := stream.send(ctx, agent.SessionEvent(conversation.UID)); err != nil {
		reqCtx.Warn("consumer gone before session event")
		return
	}

	capSet, err := s.registry.ResolveWithOptions(ctx, req.UserID, integration.ResolveOptions{
		CanvasToken:   req.CanvasToken,
		CanvasBaseURL: req.CanvasBaseURL,
	})
	if err != nil {
		s.fail(ctx, stream, reqCtx, apierrors.AgentRunFailed("failed to resolve integrations", err))
		return
	}

	stack := s.composer.Compose(capSet)
	history := s.loadHistory(ctx, conversation.ID, reqCtx)

	answer, err := s.loop.Run(ctx, agent.Request{
		SystemPrompt: stack.String(),
		History:      history,
		UserMessage:  req.Message,
		Capabilities: capSet.Registry(),
	}, func(token string) error {
		s.metrics.RecordToken()
		return stream.send(ctx, agent.TokenEvent(token))
	})
	if err != nil {
		s.fail(ctx, stream, reqCtx, err)
		return
	}

	// A canceled run never persists: the student saw at most a partial
	// answer, and history must only contain completed exchanges.
	if ctx.Err() != nil {
		reqCtx.Info("run canceled, discarding partial output")
		return
	}

	firstExchange, err := s.persistTurnPair(ctx, conversation, req.Message, answer)
	if err != nil {
		s.fail(ctx, stream, reqCtx, apierrors.AgentRunFailed("failed to persist turns", err))
		return
	}

	if err := stream.send(ctx, agent.DoneEvent(answer)); err != nil {
		return
	}

	reqCtx.Info("chat run completed",
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		slog.Int("answer_length", len(answer)))

	if firstExchange && conversation.Title == "" && s.titles != nil {
		// Detached from the request so a disconnect right after done
		// does not abort titling.
		s.titles.Generate(context.WithoutCancel(ctx), conversation.ID, req.Message, answer)
	}
}

// fail emits the terminal error event.
func (s *Service) fail(ctx context.Context, stream *Stream, reqCtx *observability.RequestContext, err error) {
	s.metrics.RecordRunFailure()
	code := apierrors.CodeOf(err, apierrors.ErrCodeAgentRunFailed)
	reqCtx.Error("chat run failed", err,
		slog.String(observability.LogFieldErrorCode, string(code)))
	_ = stream.send(ctx, agent.ErrorEvent(string(code), userFacingMessage(err, code)))
}

// userFacingMessage keeps internal detail out of the client error.
func userFacingMessage(err error, code apierrors.ErrorCode) string {
	switch code {
	case apierrors.ErrCodeInvalidArgument:
		return err.Error()
	case apierrors.ErrCodeConversationNotFound:
		return "conversation not found"
	case apierrors.ErrCodeIterationLimit:
		return "the assistant could not finish within its step limit, try a more specific question"
	case apierrors.ErrCodeProviderUnavailable:
		return "the assistant is temporarily unavailable, try again shortly"
	case apierrors.ErrCodeContextCanceled:
		return "request canceled"
	default:
		return "something went wrong handling this message"
	}
}

// resolveConversation loads the target conversation or creates a new
// one.
func (s *Service) resolveConversation(ctx context.Context, req Request) (*store.Conversation, error) {
	if req.ConversationUID != "" {
		conversation, err := s.store.GetConversation(ctx, &store.FindConversation{
			UID:       &req.ConversationUID,
			CreatorID: &req.UserID,
		})
		if err != nil {
			return nil, apierrors.AgentRunFailed("failed to load conversation", err)
		}
		if conversation == nil {
			return nil, apierrors.ConversationNotFound(req.ConversationUID)
		}
		return conversation, nil
	}

	conversation, err := s.store.CreateConversation(ctx, &store.Conversation{
		UID:       shortuuid.New(),
		CreatorID: req.UserID,
	})
	if err != nil {
		return nil, apierrors.AgentRunFailed("failed to create conversation", err)
	}
	return conversation, nil
}

// loadHistory returns the most recent turns in chronological order.
// History is context, not truth: a load failure degrades to an empty
// history instead of failing the run.
func (s *Service) loadHistory(ctx context.Context, conversationID int32, reqCtx *observability.RequestContext) []ai.Message {
	limit := s.profile.HistoryTurns
	if limit <= 0 {
		limit = 20
	}

	turns, err := s.store.ListTurns(ctx, &store.FindTurn{
		ConversationID: &conversationID,
		Last:           &limit,
	})
	if err != nil {
		reqCtx.Warn("failed to load history, continuing without it",
			slog.String("error", err.Error()))
		return nil
	}

	messages := make([]ai.Message, 0, len(turns))
	for _, turn := range turns {
		role := ai.RoleUser
		if turn.Role == store.TurnRoleAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}
	return messages
}

// persistTurnPair writes the completed exchange. Returns whether it
// was the conversation's first one.
func (s *Service) persistTurnPair(ctx context.Context, conversation *store.Conversation, userMessage, answer string) (bool, error) {
	priorTurns, err := s.store.ListTurns(ctx, &store.FindTurn{ConversationID: &conversation.ID})
	if err != nil {
		return false, err
	}

	if _, err := s.store.CreateTurn(ctx, &store.Turn{
		UID:            shortuuid.New(),
		ConversationID: conversation.ID,
		Role:           store.TurnRoleUser,
		Content:        userMessage,
	}); err != nil {
		return false, err
	}
	if _, err := s.store.CreateTurn(ctx, &store.Turn{
		UID:            shortuuid.New(),
		ConversationID: conversation.ID,
		Role:           store.TurnRoleAssistant,
		Content:        answer,
	}); err != nil {
		return false, err
	}

	now := time.Now().Unix()
	if _, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:        conversation.ID,
		UpdatedTs: &now,
	}); err != nil {
		return false, err
	}

	return len(priorTurns) == 0, nil
}
