package web_search

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/pathfinder/tools/web_search/brave"
	"github.com/mohammad-safakhou/pathfinder/tools/web_search/serper"
)

// Searcher is the search backend boundary: a free-text query and a result
// bound in, an ordered list of URLs out.
type Searcher interface {
	Search(ctx context.Context, q string, limit int) ([]string, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported search provider")
	ErrMissingAPIKey       = errors.New("search api key is empty")
)

func NewWebSearcher(provider Provider, apiKey string, timeout time.Duration) (Searcher, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	switch Provider(strings.ToLower(string(provider))) {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, Client: client}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, Client: client}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
