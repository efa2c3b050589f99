package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Prompts Prompts
}

// Client talks to Yandex GPT through its OpenAI-compatible API.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	prompts Prompts
	log     *zap.Logger
}

// NewClient creates a new client.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generator API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("generator model is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Prompts == nil {
		cfg.Prompts = DefaultPrompts()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		prompts: cfg.Prompts,
		log:     log.Named("ai"),
	}, nil
}

// Generate sends one chat completion. Every call is bounded by the client
// timeout; failures come back as *Error.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	started := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    c.buildMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		mapped := mapError(ctx, err)
		c.log.Warn("generation failed",
			zap.String("prompt_type", req.PromptType),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(mapped))
		return "", mapped
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindEmpty, Err: errors.New("no choices in response")}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &Error{Kind: KindEmpty, Err: errors.New("blank content")}
	}

	c.log.Debug("generated content",
		zap.String("prompt_type", req.PromptType),
		zap.Int("length", len(content)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(started)))
	return content, nil
}

func (c *Client) buildMessages(req Request) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.prompts.System(req.PromptType),
	}}
	if req.AdditionalContext != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.AdditionalContext,
		})
	}
	user := req.UserMessage
	if user == "" {
		user = defaultUserMessage
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})
}

func mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &Error{Kind: KindRateLimited, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &Error{Kind: KindRateLimited, Err: err}
	}
	return &Error{Kind: KindUnavailable, Err: err}
}
