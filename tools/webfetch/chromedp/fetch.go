package chromedp

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/sleuth/tools/webfetch/models"
)

type Fetch struct {
	Timeout  time.Duration
	MaxChars int
}

// Exec renders the page headlessly and reduces it to readable text. Render
// failures come back as a Result with status 599, not an error: a dead page
// is still evidence.
func (f *Fetch) Exec(ctx context.Context, target string) (models.Result, error) {
	if strings.TrimSpace(target) == "" {
		return models.Result{}, errors.New("empty url")
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	html, err := renderHTML(ctx, target)
	if err != nil {
		return models.Result{URL: target, Status: 599, RenderMS: msSince(t0)}, nil
	}

	article, err := readability.FromReader(strings.NewReader(html), parseURL(target))
	if err != nil {
		return models.Result{URL: target, Status: 200, RenderMS: msSince(t0)}, nil
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) > f.MaxChars {
		text = text[:f.MaxChars]
	}
	return models.Result{
		URL:      target,
		Title:    strings.TrimSpace(article.Title),
		Byline:   strings.TrimSpace(article.Byline),
		Text:     text,
		TopImage: article.Image,
		Status:   200,
		RenderMS: msSince(t0),
	}, nil
}

func renderHTML(ctx context.Context, target string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("SleuthResearch/1.0 (+contact@example.com)"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func msSince(t0 time.Time) int {
	return int(time.Since(t0) / time.Millisecond)
}

func parseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
