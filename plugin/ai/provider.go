package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/studyhallhq/studyhall/internal/lru"
)

// LLMService is the reasoning interface the chat pipeline depends on.
type LLMService interface {
	// Chat performs a plain completion and returns the full answer.
	Chat(ctx context.Context, req ChatRequest) (string, error)
	// ChatStep performs one streamed completion. Content deltas are
	// delivered to onToken as they arrive; tool call deltas are
	// accumulated and returned. onToken may be nil.
	ChatStep(ctx context.Context, req ChatRequest, onToken func(string) error) (*StepResult, error)
}

// Config holds the model provider configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	TitleModel string
	MaxRetries int
	Timeout    time.Duration
	// ClientCacheSize bounds the number of live API clients.
	ClientCacheSize int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://api.openai.com/v1",
		ChatModel:       "gpt-4o-mini",
		MaxRetries:      3,
		Timeout:         60 * time.Second,
		ClientCacheSize: 10,
	}
}

// Provider implements LLMService over the OpenAI-compatible API.
// Clients are held in a bounded LRU keyed by connection identity so
// per-request base URL overrides do not leak connections.
type Provider struct {
	config  *Config
	clients *lru.Cache[*openai.Client]
}

// NewProvider creates a provider. A nil cfg uses defaults.
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.TitleModel == "" {
		cfg.TitleModel = cfg.ChatModel
	}
	if cfg.ClientCacheSize == 0 {
		cfg.ClientCacheSize = 10
	}

	return &Provider{
		config:  cfg,
		clients: lru.New[*openai.Client](cfg.ClientCacheSize, 0),
	}
}

// ChatModel returns the configured chat model name.
func (p *Provider) ChatModel() string { return p.config.ChatModel }

// TitleModel returns the configured title model name.
func (p *Provider) TitleModel() string { return p.config.TitleModel }

// Chat performs a chat completion with retry.
func (p *Provider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	client, err := p.client()
	if err != nil {
		return "", err
	}

	var result string
	err = p.doWithRetry(ctx, func() error {
		resp, err := client.CreateChatCompletion(ctx, p.buildRequest(req, false))
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}
	return result, nil
}

// ChatStep performs one streamed completion, accumulating tool call
// deltas by index and forwarding content deltas to onToken.
func (p *Provider) ChatStep(ctx context.Context, req ChatRequest, onToken func(string) error) (*StepResult, error) {
	client, err := p.client()
	if err != nil {
		return nil, err
	}

	var stream *openai.ChatCompletionStream
	err = p.doWithRetry(ctx, func() error {
		var serr error
		stream, serr = client.CreateChatCompletionStream(ctx, p.buildRequest(req, true))
		return serr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open completion stream: %w", err)
	}
	defer stream.Close()

	var content string
	calls := make(map[int]*ToolCall)
	maxIndex := -1

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("completion stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.Content != "" {
			content += delta.Content
			if onToken != nil {
				if err := onToken(delta.Content); err != nil {
					return nil, err
				}
			}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := calls[idx]
			if !ok {
				call = &ToolCall{}
				calls[idx] = call
				if idx > maxIndex {
					maxIndex = idx
				}
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Name += tc.Function.Name
			}
			call.Arguments += tc.Function.Arguments
		}
	}

	result := &StepResult{Content: content}
	for i := 0; i <= maxIndex; i++ {
		if call, ok := calls[i]; ok {
			result.ToolCalls = append(result.ToolCalls, *call)
		}
	}
	return result, nil
}

// client returns the cached API client for the configured connection.
func (p *Provider) client() (*openai.Client, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("model provider API key is not configured")
	}
	key := clientKey(p.config.BaseURL, p.config.APIKey)
	return p.clients.GetOrCreate(key, func() (*openai.Client, error) {
		clientConfig := openai.DefaultConfig(p.config.APIKey)
		if p.config.BaseURL != "" {
			clientConfig.BaseURL = p.config.BaseURL
		}
		return openai.NewClientWithConfig(clientConfig), nil
	})
}

func (p *Provider) buildRequest(req ChatRequest, stream bool) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.config.ChatModel
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		m := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		messages[i] = m
	}

	var tools []openai.Tool
	for _, def := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    messages,
		Tools:       tools,
		Stream:      stream,
	}
}

// doWithRetry executes a function with exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("model request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

func clientKey(baseURL, apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return baseURL + "|" + hex.EncodeToString(sum[:8])
}
