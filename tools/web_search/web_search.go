package web_search

import (
	"context"
	"time"

	"github.com/devscout/devscout/tools/web_search/brave"
	"github.com/devscout/devscout/tools/web_search/linkup"
	"github.com/devscout/devscout/tools/web_search/models"
	"github.com/devscout/devscout/tools/web_search/serper"
)

type WebSearcher interface {
	Search(ctx context.Context, q string, depth models.Depth) (*models.Response, error)
}

type Provider string

const (
	LinkupProvider Provider = "linkup"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

// NewWebSearcher returns the client for the given provider. baseURL is only
// honored by linkup; a zero timeout picks each provider's default.
func NewWebSearcher(provider Provider, apiKey, baseURL string, timeout time.Duration) (WebSearcher, error) {
	switch provider {
	case LinkupProvider:
		return linkup.Search{ApiKey: apiKey, BaseURL: baseURL, Timeout: timeout}, nil
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, Timeout: timeout}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, Timeout: timeout}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
