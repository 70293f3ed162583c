package action

import (
	"context"
	"errors"
	"strconv"

	"github.com/mohammad-safakhou/sleuth/config"
	"github.com/mohammad-safakhou/sleuth/tools/webfetch"
	"github.com/mohammad-safakhou/sleuth/tools/websearch"
	searchmodels "github.com/mohammad-safakhou/sleuth/tools/websearch/models"
)

const defaultResultCount = 8

// NewDefaultRegistry builds the standard catalog with executors wired to the
// configured providers.
func NewDefaultRegistry(cfg *config.Config) (*Registry, error) {
	catalog, err := NewCatalog(DefaultSpecs())
	if err != nil {
		return nil, err
	}

	searcher, err := websearch.NewWebSearcher(
		websearch.Provider(cfg.Search.Provider),
		cfg.Search.SerperAPIKey,
		cfg.Search.BraveAPIKey,
	)
	if err != nil {
		return nil, err
	}
	vertical := websearch.NewVerticalSearcher(cfg.Search.SerperAPIKey)
	images := websearch.NewImageSearcher(cfg.Search.SerperAPIKey)
	fetcher := webfetch.NewWebFetcher(cfg.Fetch.TimeoutMS, cfg.Fetch.MaxChars)

	executors := map[string]Executor{
		WebSearch:        broadExecutor(searcher),
		BingSearch:       broadExecutor(searcher),
		DuckDuckGoSearch: broadExecutor(searcher),

		ImageSearch: ExecutorFunc(func(ctx context.Context, call Call) (Result, error) {
			hits, err := images.Images(ctx, call.Arg("query"), defaultResultCount)
			if err != nil {
				return Result{}, err
			}
			return Result{Records: toRecords(hits)}, nil
		}),
		ReverseImageSearch: lensExecutor(images),
		VisualLensSearch:   lensExecutor(images),

		PlacesSearch:  verticalExecutor(vertical, "places"),
		NewsSearch:    verticalExecutor(vertical, "news"),
		LodgingSearch: verticalExecutor(vertical, "lodging"),

		WebFetch: ExecutorFunc(func(ctx context.Context, call Call) (Result, error) {
			url := call.Arg("url")
			if url == "" {
				return Result{}, errors.New("web_fetch requires a url argument")
			}
			page, err := fetcher.Exec(ctx, url)
			if err != nil {
				return Result{}, err
			}
			text := page.Text
			if text == "" {
				text = "page yielded no readable text (status " + strconv.Itoa(page.Status) + ")"
			}
			return Result{Text: "fetched " + url + ": " + text}, nil
		}),
	}

	return NewRegistry(catalog, executors)
}

// broadExecutor routes every broad search through the configured provider.
// The engine-flavored action names differ only in query phrasing upstream;
// results normalize identically.
func broadExecutor(s websearch.WebSearcher) Executor {
	return ExecutorFunc(func(ctx context.Context, call Call) (Result, error) {
		q := call.Arg("query")
		if q == "" {
			return Result{}, errors.New("search requires a query argument")
		}
		hits, err := s.Discover(ctx, q, defaultResultCount)
		if err != nil {
			return Result{}, err
		}
		return Result{Records: toRecords(hits)}, nil
	})
}

func lensExecutor(images websearch.ImageSearcher) Executor {
	return ExecutorFunc(func(ctx context.Context, call Call) (Result, error) {
		imageURL := call.Arg("url")
		if imageURL == "" {
			return Result{}, errors.New("image lookup requires a url argument")
		}
		hits, err := images.Lens(ctx, imageURL, defaultResultCount)
		if err != nil {
			return Result{}, err
		}
		return Result{Records: toRecords(hits)}, nil
	})
}

func verticalExecutor(v websearch.VerticalSearcher, vertical string) Executor {
	return ExecutorFunc(func(ctx context.Context, call Call) (Result, error) {
		q := call.Arg("query")
		if q == "" {
			return Result{}, errors.New(vertical + " search requires a query argument")
		}
		hits, err := v.Vertical(ctx, vertical, q, defaultResultCount)
		if err != nil {
			return Result{}, err
		}
		return Result{Records: toRecords(hits)}, nil
	})
}

func toRecords(hits []searchmodels.Result) []Record {
	out := make([]Record, 0, len(hits))
	for _, h := range hits {
		out = append(out, Record{Title: h.Title, Link: h.URL, Snippet: h.Snippet})
	}
	return out
}

