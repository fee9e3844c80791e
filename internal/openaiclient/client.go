// internal/openaiclient/client.go
package openaiclient

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pos-insights/internal/aiquery"
	"pos-insights/internal/common/config"
	apperrors "pos-insights/internal/common/errors"
	"pos-insights/internal/common/logger"
)

const (
	DefaultGenerationTimeout = 15 * time.Second
	DefaultInsightTimeout    = 10 * time.Second
)

// Client adapts the OpenAI chat completion API to the pipeline's
// TextCompleter contract. Per-call deadlines live here, on the caller
// side, so a slow upstream can never stall a request beyond its budget.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

var _ aiquery.TextCompleter = (*Client)(nil)

// New builds a client from configuration. BaseURL overrides exist for
// tests and for API-compatible local inference servers.
func New(cfg config.OpenAIConfig, timeout time.Duration, log logger.Logger) *Client {
	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &Client{
		api:     openai.NewClientWithConfig(apiConfig),
		model:   model,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "openai-client"}),
	}
}

// Complete issues a single chat completion and returns the first
// choice's content. Upstream failures of any kind come back as a single
// retryable error code so callers can treat the service as one opaque
// dependency.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, opts aiquery.CompletionOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("chat completion failed", map[string]interface{}{
			"model":     c.model,
			"error":     err.Error(),
			"elapsedMs": time.Since(start).Milliseconds(),
		})
		return "", apperrors.NewUpstreamGenerationFailureError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewUpstreamGenerationFailureError(errors.New("no completion choices returned"))
	}

	c.logger.Debug("chat completion succeeded", map[string]interface{}{
		"model":     c.model,
		"elapsedMs": time.Since(start).Milliseconds(),
	})
	return resp.Choices[0].Message.Content, nil
}
