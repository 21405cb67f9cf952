package provider

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/config"
	openai_provider "github.com/mohammad-safakhou/pathfinder/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
)

var ErrMissingAPIKey = errors.New("llm api key is empty")

// Provider is a chat-completion backend: one system instruction and one user
// prompt in, the raw assistant text out.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewProvider creates a new LLM client based on the provided configuration.
// Any OpenAI-compatible endpoint works through llm.base_url.
func NewProvider(client Client, cfg config.LLMConfig, logger *zap.Logger) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	switch client {
	case OpenAI, "":
		return openai_provider.NewOpenAIClient(openai_provider.Options{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		}), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
