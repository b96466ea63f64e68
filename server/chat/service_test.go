package chat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studyhallhq/studyhall/internal/lru"
	"github.com/studyhallhq/studyhall/internal/profile"
	"github.com/studyhallhq/studyhall/plugin/agent"
	"github.com/studyhallhq/studyhall/plugin/ai"
	"github.com/studyhallhq/studyhall/server/integration"
	"github.com/studyhallhq/studyhall/server/prompt"
	"github.com/studyhallhq/studyhall/store"
	"github.com/studyhallhq/studyhall/store/db"
)

// fakeLLM streams a scripted answer and records the requests it saw.
type fakeLLM struct {
	mu       sync.Mutex
	tokens   []string
	chatText string
	err      error
	requests []ai.ChatRequest
	// block, when set, makes ChatStep wait for ctx cancellation after
	// the first token.
	block bool
}

func (f *fakeLLM) Chat(ctx context.Context, req ai.ChatRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.chatText, nil
}

func (f *fakeLLM) ChatStep(ctx context.Context, req ai.ChatRequest, onToken func(string) error) (*ai.StepResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	var content string
	for i, token := range f.tokens {
		content += token
		if onToken != nil {
			if err := onToken(token); err != nil {
				return nil, err
			}
		}
		if f.block && i == 0 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
	}
	return &ai.StepResult{Content: content}, nil
}

func (f *fakeLLM) lastRequest() ai.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestService(t *testing.T, llm *fakeLLM) (*Service, *store.Store) {
	t.Helper()
	p := &profile.Profile{
		Mode: "dev",
		DSN:  filepath.Join(t.TempDir(), "studyhall_test.db"),
	}
	p.FromEnv()

	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))

	registry := integration.NewRegistry(st, &integration.DefaultClientFactory{Profile: p}, lru.New[any](8, time.Minute))
	loop := agent.NewLoop(llm, agent.WithMaxSteps(p.MaxAgentSteps),
		agent.WithExecutor(agent.NewExecutor(agent.WithMaxRetries(0), agent.WithRetryDelay(time.Millisecond))))
	titles := NewTitleGenerator(llm, p.TitleModel, st)
	service := NewService(p, st, registry, prompt.NewComposer(prompt.DefaultTemplates()), llm, loop, titles, nil)
	return service, st
}

func collectEvents(stream *Stream) []agent.Event {
	var events []agent.Event
	for event := range stream.Events() {
		events = append(events, event)
	}
	return events
}

func TestStreamHappyPath(t *testing.T) {
	llm := &fakeLLM{tokens: []string{"You have ", "no courses."}, chatText: "Course check"}
	service, st := newTestService(t, llm)

	stream := service.Stream(context.Background(), Request{
		UserID:  1,
		Message: "what courses am I taking?",
	})
	events := collectEvents(stream)

	// session token* done, exactly one terminal event.
	require.Equal(t, agent.EventSession, events[0].Type)
	require.NotEmpty(t, events[0].ConversationUID)
	require.Equal(t, agent.EventDone, events[len(events)-1].Type)
	require.Equal(t, "You have no courses.", events[len(events)-1].Answer)

	var assembled string
	for _, event := range events[1 : len(events)-1] {
		require.Equal(t, agent.EventToken, event.Type)
		assembled += event.Token
	}
	require.Equal(t, "You have no courses.", assembled)

	// The completed exchange is persisted as a user/assistant pair.
	uid := events[0].ConversationUID
	conversation, err := st.GetConversation(context.Background(), &store.FindConversation{UID: &uid})
	require.NoError(t, err)
	require.NotNil(t, conversation)

	turns, err := st.ListTurns(context.Background(), &store.FindTurn{ConversationID: &conversation.ID})
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, store.TurnRoleUser, turns[0].Role)
	require.Equal(t, "what courses am I taking?", turns[0].Content)
	require.Equal(t, store.TurnRoleAssistant, turns[1].Role)
	require.Equal(t, "You have no courses.", turns[1].Content)

	// The first exchange titles the conversation.
	require.Equal(t, "Course check", conversation.Title)
}

func TestStreamPromptReflectsMissingIntegrations(t *testing.T) {
	llm := &fakeLLM{tokens: []string{"ok"}}
	service, _ := newTestService(t, llm)

	stream := service.Stream(context.Background(), Request{UserID: 1, Message: "hi"})
	collectEvents(stream)

	// Nothing is connected, so the system prompt carries the fallback
	// and a suggestion for every integration, and no tools are offered.
	req := llm.lastRequest()
	require.Empty(t, req.Tools)
	system := req.Messages[0]
	require.Equal(t, ai.RoleSystem, system.Role)
	require.Contains(t, system.Content, "has not connected any")
	require.Contains(t, system.Content, "Canvas")
	require.Contains(t, system.Content, "Google Calendar")
	require.Contains(t, system.Content, "Notion")
}

func TestStreamOffersToolsWhenConnected(t *testing.T) {
	llm := &fakeLLM{tokens: []string{"ok"}}
	service, st := newTestService(t, llm)

	_, err := st.UpsertIntegrationCredential(context.Background(), &store.IntegrationCredential{
		UserID: 1, Kind: "canvas", AccessToken: "tok",
	})
	require.NoError(t, err)

	stream := service.Stream(context.Background(), Request{UserID: 1, Message: "what's due?"})
	collectEvents(stream)

	req := llm.lastRequest()
	names := make([]string, 0, len(req.Tools))
	for _, tool := range req.Tools {
		names = append(names, tool.Name)
	}
	require.Contains(t, names, "get_upcoming_assignments")
	require.NotContains(t, names, "list_upcoming_events")
}

func TestMessageContinuesConversationWithHistory(t *testing.T) {
	llm := &fakeLLM{tokens: []string{"answer two"}, chatText: "t"}
	service, _ := newTestService(t, llm)

	// First exchange creates the conversation.
	uid, _, err := service.Message(context.Background(), Request{UserID: 1, Message: "first question"})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	// Second exchange must carry the first as history.
	_, answer, err := service.Message(context.Background(), Request{
		UserID: 1, ConversationUID: uid, Message: "second question",
	})
	require.NoError(t, err)
	require.Equal(t, "answer two", answer)

	req := llm.lastRequest()
	contents := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		contents = append(contents, m.Content)
	}
	require.Contains(t, contents, "first question")
	require.Equal(t, "second question", contents[len(contents)-1])
}

func TestMessageUnknownConversation(t *testing.T) {
	llm := &fakeLLM{tokens: []string{"never"}}
	service, _ := newTestService(t, llm)

	_, _, err := service.Message(context.Background(), Request{
		UserID: 1, ConversationUID: "does-not-exist", Message: "hi",
	})
	require.Error(t, err)
}

func TestStreamProviderFailureEmitsErrorEvent(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection refused")}
	service, st := newTestService(t, llm)

	stream := service.Stream(context.Background(), Request{UserID: 1, Message: "hi"})
	events := collectEvents(stream)

	last := events[len(events)-1]
	require.Equal(t, agent.EventError, last.Type)
	require.Equal(t, "PROVIDER_UNAVAILABLE", last.Code)

	// A failed run persists nothing.
	uid := events[0].ConversationUID
	conversation, err := st.GetConversation(context.Background(), &store.FindConversation{UID: &uid})
	require.NoError(t, err)
	turns, err := st.ListTurns(context.Background(), &store.FindTurn{ConversationID: &conversation.ID})
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestStreamCancellationDiscardsTurnPair(t *testing.T) {
	llm := &fakeLLM{tokens: []string{"partial ", "answer"}, block: true}
	service, st := newTestService(t, llm)

	stream := service.Stream(context.Background(), Request{UserID: 1, Message: "hi"})

	var uid string
	for event := range stream.Events() {
		switch event.Type {
		case agent.EventSession:
			uid = event.ConversationUID
		case agent.EventToken:
			// Disconnect after the first visible token.
			stream.Cancel()
		}
	}

	require.NotEmpty(t, uid)
	conversation, err := st.GetConversation(context.Background(), &store.FindConversation{UID: &uid})
	require.NoError(t, err)
	turns, err := st.ListTurns(context.Background(), &store.FindTurn{ConversationID: &conversation.ID})
	require.NoError(t, err)
	require.Empty(t, turns)

	// The canceled conversation stays untitled.
	require.Empty(t, conversation.Title)
}

func TestStreamEmptyMessageRejected(t *testing.T) {
	llm := &fakeLLM{tokens: []string{"never"}}
	service, _ := newTestService(t, llm)

	stream := service.Stream(context.Background(), Request{UserID: 1, Message: "   "})
	events := collectEvents(stream)

	require.Len(t, events, 1)
	require.Equal(t, agent.EventError, events[0].Type)
	require.Equal(t, "INVALID_ARGUMENT", events[0].Code)
}

func TestTitleFallsBackWhenModelFails(t *testing.T) {
	llm := &fakeLLM{tokens: []string{"the answer"}}
	service, st := newTestService(t, llm)

	// Titling gets no usable text from the model, so the first user
	// message becomes the title.
	uid, _, err := service.Message(context.Background(), Request{UserID: 1, Message: "explain photosynthesis"})
	require.NoError(t, err)

	conversation, err := st.GetConversation(context.Background(), &store.FindConversation{UID: &uid})
	require.NoError(t, err)
	require.Equal(t, "explain photosynthesis", conversation.Title)
}
