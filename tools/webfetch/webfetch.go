package webfetch

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/sleuth/tools/webfetch/chromedp"
	"github.com/mohammad-safakhou/sleuth/tools/webfetch/models"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
)

// WebFetcher renders a page and extracts its readable content.
type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

// NewWebFetcher returns the headless chromium fetcher.
func NewWebFetcher(timeout time.Duration, maxChars int) WebFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}
	return &chromedp.Fetch{Timeout: timeout, MaxChars: maxChars}
}
