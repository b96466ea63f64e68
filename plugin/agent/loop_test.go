package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studyhallhq/studyhall/plugin/ai"
	apierrors "github.com/studyhallhq/studyhall/internal/errors"
)

// scriptedLLM replays a fixed sequence of steps. Each scripted step may
// stream tokens before returning its result.
type scriptedLLM struct {
	mu    sync.Mutex
	steps []scriptedStep
	calls []ai.ChatRequest
}

type scriptedStep struct {
	tokens    []string
	toolCalls []ai.ToolCall
	err       error
}

func (s *scriptedLLM) Chat(ctx context.Context, req ai.ChatRequest) (string, error) {
	result, err := s.ChatStep(ctx, req, nil)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

func (s *scriptedLLM) ChatStep(ctx context.Context, req ai.ChatRequest, onToken func(string) error) (*ai.StepResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return nil, errors.New("script exhausted")
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	s.mu.Unlock()

	if step.err != nil {
		return nil, step.err
	}
	var content string
	for _, token := range step.tokens {
		content += token
		if onToken != nil {
			if err := onToken(token); err != nil {
				return nil, err
			}
		}
	}
	return &ai.StepResult{Content: content, ToolCalls: step.toolCalls}, nil
}

func echoCapability(name string) Capability {
	return NewCapability(name, "echoes its arguments", NoParams(),
		func(_ context.Context, args json.RawMessage) (string, error) {
			return string(args), nil
		})
}

func failingCapability(name string, err error) Capability {
	return NewCapability(name, "always fails", NoParams(),
		func(context.Context, json.RawMessage) (string, error) {
			return "", err
		})
}

func fastExecutor() *Executor {
	return NewExecutor(WithMaxRetries(0), WithRetryDelay(time.Millisecond))
}

func TestLoopRunDirectAnswer(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{tokens: []string{"Hello", ", ", "world"}},
	}}
	loop := NewLoop(llm, WithExecutor(fastExecutor()))

	var streamed []string
	answer, err := loop.Run(context.Background(), Request{
		SystemPrompt: "You are a study assistant.",
		UserMessage:  "hi",
	}, func(token string) error {
		streamed = append(streamed, token)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, "Hello, world", answer)
	require.Equal(t, []string{"Hello", ", ", "world"}, streamed)

	// The first message must be the system prompt, the last the user
	// message.
	require.Len(t, llm.calls, 1)
	messages := llm.calls[0].Messages
	require.Equal(t, ai.RoleSystem, messages[0].Role)
	require.Equal(t, "hi", messages[len(messages)-1].Content)
}

func TestLoopRunToolCycle(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(echoCapability("get_current_courses")))

	llm := &scriptedLLM{steps: []scriptedStep{
		{toolCalls: []ai.ToolCall{{ID: "call-1", Name: "get_current_courses", Arguments: `{}`}}},
		{tokens: []string{"You have 3 courses."}},
	}}
	loop := NewLoop(llm, WithExecutor(fastExecutor()))

	answer, err := loop.Run(context.Background(), Request{
		UserMessage:  "what am I taking?",
		Capabilities: registry,
	}, nil)

	require.NoError(t, err)
	require.Equal(t, "You have 3 courses.", answer)

	// The second call must carry the assistant tool-call message and
	// the tool result, in that order.
	require.Len(t, llm.calls, 2)
	messages := llm.calls[1].Messages
	last, secondLast := messages[len(messages)-1], messages[len(messages)-2]
	require.Equal(t, ai.RoleAssistant, secondLast.Role)
	require.Len(t, secondLast.ToolCalls, 1)
	require.Equal(t, ai.RoleTool, last.Role)
	require.Equal(t, "call-1", last.ToolCallID)
}

func TestLoopRunConcurrentToolsJoinInOrder(t *testing.T) {
	registry := NewRegistry()
	var mu sync.Mutex
	started := 0
	release := make(chan struct{})
	// Both capabilities block until both have started, proving the
	// calls run concurrently, then return distinct payloads so result
	// ordering can be checked.
	slowCapability := func(name, payload string) Capability {
		return NewCapability(name, "blocks until its sibling starts", NoParams(),
			func(ctx context.Context, _ json.RawMessage) (string, error) {
				mu.Lock()
				started++
				if started == 2 {
					close(release)
				}
				mu.Unlock()
				select {
				case <-release:
					return payload, nil
				case <-ctx.Done():
					return "", ctx.Err()
				}
			})
	}
	require.NoError(t, registry.Register(slowCapability("list_upcoming_events", "events")))
	require.NoError(t, registry.Register(slowCapability("search_notes", "notes")))

	llm := &scriptedLLM{steps: []scriptedStep{
		{toolCalls: []ai.ToolCall{
			{ID: "a", Name: "list_upcoming_events", Arguments: `{}`},
			{ID: "b", Name: "search_notes", Arguments: `{}`},
		}},
		{tokens: []string{"done"}},
	}}
	loop := NewLoop(llm, WithExecutor(fastExecutor()))

	answer, err := loop.Run(context.Background(), Request{
		UserMessage:  "plan my week",
		Capabilities: registry,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "done", answer)

	messages := llm.calls[1].Messages
	resultA, resultB := messages[len(messages)-2], messages[len(messages)-1]
	require.Equal(t, "a", resultA.ToolCallID)
	require.Equal(t, "events", resultA.Content)
	require.Equal(t, "b", resultB.ToolCallID)
	require.Equal(t, "notes", resultB.Content)
}

func TestLoopRunToolFailureFedBack(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(failingCapability("get_course_grades", errors.New("canvas returned 403 Forbidden"))))

	llm := &scriptedLLM{steps: []scriptedStep{
		{toolCalls: []ai.ToolCall{{ID: "c1", Name: "get_course_grades", Arguments: `{}`}}},
		{tokens: []string{"I could not reach Canvas."}},
	}}
	loop := NewLoop(llm, WithExecutor(fastExecutor()))

	answer, err := loop.Run(context.Background(), Request{
		UserMessage:  "grades?",
		Capabilities: registry,
	}, nil)

	// Capability failure must not abort the run.
	require.NoError(t, err)
	require.Equal(t, "I could not reach Canvas.", answer)

	messages := llm.calls[1].Messages
	last := messages[len(messages)-1]
	require.Equal(t, ai.RoleTool, last.Role)
	require.Contains(t, last.Content, "Error:")
	require.Contains(t, last.Content, "403")
}

func TestLoopRunUnknownTool(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{toolCalls: []ai.ToolCall{{ID: "x", Name: "delete_everything", Arguments: `{}`}}},
		{tokens: []string{"ok"}},
	}}
	loop := NewLoop(llm, WithExecutor(fastExecutor()))

	_, err := loop.Run(context.Background(), Request{
		UserMessage:  "hi",
		Capabilities: NewRegistry(),
	}, nil)
	require.NoError(t, err)

	messages := llm.calls[1].Messages
	require.Contains(t, messages[len(messages)-1].Content, "unknown tool: delete_everything")
}

func TestLoopRunIterationLimit(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(echoCapability("search_notes")))

	// The model never converges.
	steps := make([]scriptedStep, 0, 4)
	for i := 0; i < 4; i++ {
		steps = append(steps, scriptedStep{
			toolCalls: []ai.ToolCall{{ID: fmt.Sprintf("c%d", i), Name: "search_notes", Arguments: `{}`}},
		})
	}
	llm := &scriptedLLM{steps: steps}
	loop := NewLoop(llm, WithMaxSteps(3), WithExecutor(fastExecutor()))

	_, err := loop.Run(context.Background(), Request{
		UserMessage:  "loop forever",
		Capabilities: registry,
	}, nil)

	require.Error(t, err)
	require.Equal(t, apierrors.ErrCodeIterationLimit, apierrors.CodeOf(err, ""))
	require.Len(t, llm.calls, 3)
}

func TestLoopRunProviderFailure(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{err: errors.New("connection refused")},
	}}
	loop := NewLoop(llm, WithExecutor(fastExecutor()))

	_, err := loop.Run(context.Background(), Request{UserMessage: "hi"}, nil)
	require.Error(t, err)
	require.Equal(t, apierrors.ErrCodeProviderUnavailable, apierrors.CodeOf(err, ""))
}

func TestLoopRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &scriptedLLM{steps: []scriptedStep{{tokens: []string{"never"}}}}
	loop := NewLoop(llm, WithExecutor(fastExecutor()))

	_, err := loop.Run(ctx, Request{UserMessage: "hi"}, nil)
	require.Error(t, err)
	require.Equal(t, apierrors.ErrCodeContextCanceled, apierrors.CodeOf(err, ""))
	require.Empty(t, llm.calls)
}

func TestLoopRunEmitErrorAborts(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{tokens: []string{"a", "b", "c"}},
	}}
	loop := NewLoop(llm, WithExecutor(fastExecutor()))

	consumerGone := errors.New("consumer gone")
	_, err := loop.Run(context.Background(), Request{UserMessage: "hi"}, func(string) error {
		return consumerGone
	})
	require.Error(t, err)
}
