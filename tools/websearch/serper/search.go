package serper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/sleuth/tools/websearch/models"
)

const baseURL = "https://google.serper.dev"

type Search struct {
	ApiKey string
}

// Discover runs a broad web search.
func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	raw, err := s.post(ctx, "/search", map[string]any{"q": q, "num": k})
	if err != nil {
		return nil, err
	}
	return collect(raw, "organic", k), nil
}

// Images runs a text query against the image index.
func (s Search) Images(ctx context.Context, q string, k int) ([]models.Result, error) {
	raw, err := s.post(ctx, "/images", map[string]any{"q": q, "num": k})
	if err != nil {
		return nil, err
	}
	var out []models.Result
	if items, ok := raw["images"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, _ := it.(map[string]any)
			out = append(out, models.Result{
				Title:   str(m["title"]),
				URL:     str(m["link"]),
				Snippet: str(m["source"]),
			})
		}
	}
	return out, nil
}

// Lens looks up pages that feature the given image.
func (s Search) Lens(ctx context.Context, imageURL string, k int) ([]models.Result, error) {
	raw, err := s.post(ctx, "/lens", map[string]any{"url": imageURL})
	if err != nil {
		return nil, err
	}
	return collect(raw, "organic", k), nil
}

// Vertical dispatches to the serper vertical endpoints. Lodging has no
// dedicated endpoint; it goes through places with a lodging bias.
func (s Search) Vertical(ctx context.Context, vertical, q string, k int) ([]models.Result, error) {
	switch vertical {
	case "places":
		return s.places(ctx, q, k)
	case "news":
		raw, err := s.post(ctx, "/news", map[string]any{"q": q, "num": k})
		if err != nil {
			return nil, err
		}
		return collect(raw, "news", k), nil
	case "lodging":
		return s.places(ctx, q+" hotel OR lodge OR resort", k)
	default:
		return nil, fmt.Errorf("unknown vertical: %s", vertical)
	}
}

func (s Search) places(ctx context.Context, q string, k int) ([]models.Result, error) {
	raw, err := s.post(ctx, "/places", map[string]any{"q": q, "num": k})
	if err != nil {
		return nil, err
	}
	var out []models.Result
	if items, ok := raw["places"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, _ := it.(map[string]any)
			out = append(out, models.Result{
				Title:   str(m["title"]),
				URL:     str(m["website"]),
				Snippet: strings.TrimSpace(str(m["address"]) + " " + str(m["category"])),
			})
		}
	}
	return out, nil
}

func (s Search) post(ctx context.Context, path string, payload map[string]any) (map[string]any, error) {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.ApiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper %s: status %d", path, resp.StatusCode)
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func collect(raw map[string]any, key string, k int) []models.Result {
	var out []models.Result
	items, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	for i, it := range items {
		if i >= k {
			break
		}
		m, _ := it.(map[string]any)
		out = append(out, models.Result{
			Title:   str(m["title"]),
			URL:     str(m["link"]),
			Snippet: str(m["snippet"]),
		})
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
