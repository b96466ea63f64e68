package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/studyhallhq/studyhall/plugin/ai"
	apierrors "github.com/studyhallhq/studyhall/internal/errors"
	"github.com/studyhallhq/studyhall/internal/observability"
)

// DefaultMaxSteps bounds the reasoning and invoking cycle.
const DefaultMaxSteps = 8

// Loop runs the reasoning and invoking cycle for one chat request.
type Loop struct {
	llm      ai.LLMService
	executor *Executor
	maxSteps int
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxSteps overrides the reasoning step cap.
func WithMaxSteps(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxSteps = n
		}
	}
}

// WithExecutor overrides the capability executor.
func WithExecutor(e *Executor) LoopOption {
	return func(l *Loop) { l.executor = e }
}

// NewLoop creates a Loop over the given model service.
func NewLoop(llm ai.LLMService, opts ...LoopOption) *Loop {
	l := &Loop{
		llm:      llm,
		executor: NewExecutor(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Request is one agent run.
type Request struct {
	// Model overrides the provider's default chat model when set.
	Model string
	// SystemPrompt is the composed system prompt for this request.
	SystemPrompt string
	// History holds prior turns, oldest first.
	History []ai.Message
	// UserMessage is the new user message.
	UserMessage string
	// Capabilities is the dispatch table for this user's integrations.
	// May be empty.
	Capabilities *Registry
}

// Run drives the cycle until the model produces an answer without tool
// calls. Answer tokens are forwarded to onToken in generation order.
// The returned string is the concatenation of everything forwarded.
//
// Capability failures are fed back to the model in-band as tool results
// and never abort the run. The run fails only when the provider fails,
// the step cap is exceeded, or the context is canceled.
func (l *Loop) Run(ctx context.Context, req Request, onToken func(string) error) (string, error) {
	messages := make([]ai.Message, 0, len(req.History)+2)
	messages = append(messages, ai.SystemMessage(req.SystemPrompt))
	messages = append(messages, req.History...)
	messages = append(messages, ai.UserMessage(req.UserMessage))

	var tools []ai.ToolDefinition
	if req.Capabilities != nil {
		tools = req.Capabilities.Definitions()
	}

	var answer string
	emit := func(token string) error {
		answer += token
		if onToken != nil {
			return onToken(token)
		}
		return nil
	}

	start := time.Now()
	for step := 1; step <= l.maxSteps; step++ {
		if ctx.Err() != nil {
			return "", apierrors.ContextCanceled(ctx.Err())
		}

		result, err := l.llm.ChatStep(ctx, ai.ChatRequest{
			Model:    req.Model,
			Messages: messages,
			Tools:    tools,
		}, emit)
		if err != nil {
			if ctx.Err() != nil {
				return "", apierrors.ContextCanceled(ctx.Err())
			}
			return "", apierrors.ProviderUnavailable(
				fmt.Sprintf("model call failed at step %d", step), err)
		}

		if len(result.ToolCalls) == 0 {
			slog.Debug("agent run finished",
				slog.Int(observability.LogFieldStep, step),
				slog.Int64(observability.LogFieldDuration, time.Since(start).Milliseconds()),
				slog.Int("answer_length", len(answer)))
			return answer, nil
		}

		messages = append(messages, ai.Message{
			Role:      ai.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})
		messages = append(messages, l.invokeAll(ctx, req.Capabilities, result.ToolCalls)...)
	}

	return "", apierrors.IterationLimit(l.maxSteps)
}

// invokeAll executes the step's tool calls concurrently and joins all
// of them before returning their result messages in call order.
func (l *Loop) invokeAll(ctx context.Context, registry *Registry, calls []ai.ToolCall) []ai.Message {
	results := make([]string, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = l.invokeOne(gctx, registry, call)
			return nil
		})
	}
	// invokeOne never returns an error; the join is the point.
	_ = g.Wait()

	messages := make([]ai.Message, len(calls))
	for i, call := range calls {
		messages[i] = ai.ToolResultMessage(call.ID, results[i])
	}
	return messages
}

// invokeOne dispatches a single call, converting every failure into an
// in-band result the model can react to.
func (l *Loop) invokeOne(ctx context.Context, registry *Registry, call ai.ToolCall) string {
	if registry == nil {
		return fmt.Sprintf("Error: unknown tool: %s", call.Name)
	}
	cap, ok := registry.Lookup(call.Name)
	if !ok {
		slog.Warn("model requested unknown capability",
			slog.String(observability.LogFieldCapability, call.Name))
		return fmt.Sprintf("Error: unknown tool: %s", call.Name)
	}

	result, err := l.executor.Execute(ctx, cap, json.RawMessage(call.Arguments))
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}
