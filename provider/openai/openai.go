package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	maxBodyBytes   = 8 << 20
)

// ErrEmptyCompletion is returned when the API answers without any choice.
var ErrEmptyCompletion = errors.New("completion has no choices")

// client implements the provider interface against /chat/completions
type client struct {
	baseURL      string
	apiKey       string
	model        string
	temperature  float64
	maxTokens    int
	maxRetries   int
	retryBackoff time.Duration
	httpClient   *http.Client
	logger       *zap.Logger
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a request to the chat completions API
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a response from the chat completions API
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type Options struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *zap.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(o Options) *client {
	base := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &client{
		baseURL:      base,
		apiKey:       o.APIKey,
		model:        o.Model,
		temperature:  o.Temperature,
		maxTokens:    o.MaxTokens,
		maxRetries:   o.MaxRetries,
		retryBackoff: o.RetryBackoff,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logging.OrNop(o.Logger).Named("llm"),
	}
}

// Complete sends one system and one user message. Transport errors, 429 and
// 5xx responses are retried maxRetries times with a fixed pause; other
// failures return at once.
func (c *client) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(c.retryBackoff)
	if c.maxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.maxRetries))
	} else {
		b = &backoff.StopBackOff{}
	}
	b = backoff.WithContext(b, ctx)

	var out string
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		text, err := c.sendRequest(ctx, messages)
		if err != nil {
			c.logger.Warn("completion failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		out = text
		return nil
	}, b)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (c *client) sendRequest(ctx context.Context, messages []Message) (string, error) {
	requestBody := request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	body, err := helpers.ReadAllAndClose(resp.Body, maxBodyBytes)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API returned status: %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", err
		}
		return "", backoff.Permanent(err)
	}
	c.logger.Debug("completion received", zap.Int("bytes", len(body)))

	var openaiResp response
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}
	if len(openaiResp.Choices) == 0 {
		return "", backoff.Permanent(ErrEmptyCompletion)
	}
	return strings.TrimSpace(openaiResp.Choices[0].Message.Content), nil
}
