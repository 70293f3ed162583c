package websearch

import (
	"context"

	"github.com/mohammad-safakhou/sleuth/tools/websearch/brave"
	"github.com/mohammad-safakhou/sleuth/tools/websearch/models"
	"github.com/mohammad-safakhou/sleuth/tools/websearch/serper"
)

// WebSearcher covers broad web queries.
type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

// VerticalSearcher covers domain-specific queries (places, news, lodging).
type VerticalSearcher interface {
	Vertical(ctx context.Context, vertical, q string, k int) ([]models.Result, error)
}

// ImageSearcher covers image-driven queries: text image search plus
// lens-style lookups keyed by an image URL.
type ImageSearcher interface {
	Images(ctx context.Context, q string, k int) ([]models.Result, error)
	Lens(ctx context.Context, imageURL string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

// NewWebSearcher selects the broad-search backend.
func NewWebSearcher(provider Provider, serperKey, braveKey string) (WebSearcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: serperKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: braveKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// NewVerticalSearcher returns the vertical backend. Only serper exposes the
// places/news/lodging verticals.
func NewVerticalSearcher(serperKey string) VerticalSearcher {
	return serper.Search{ApiKey: serperKey}
}

// NewImageSearcher returns the image backend (serper images + lens).
func NewImageSearcher(serperKey string) ImageSearcher {
	return serper.Search{ApiKey: serperKey}
}
