package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/sleuth/internal/jsonx"
	"github.com/mohammad-safakhou/sleuth/internal/run"
	"github.com/mohammad-safakhou/sleuth/provider"
)

const topUpSystemPrompt = `You extract candidate answer entities from investigation notes. Given a research brief and raw notes, list entities that could be the answer, with a URL when one appears in the notes.

Respond ONLY with a JSON array:
[{"name": "...", "url": "...", "rationale": "..."}]
Use an empty string for a missing url. Return [] when the notes name no plausible entity. No other text.`

const topUpStrictPrompt = `Respond with EXACTLY one JSON array of the form [{"name": "...", "url": "...", "rationale": "..."}]. No prose, no code fences.`

// LLMTopUp mines unstructured note text for candidates the structural pass
// cannot see.
type LLMTopUp struct {
	llm     provider.LLM
	model   string
	timeout time.Duration
}

func NewLLMTopUp(llm provider.LLM, model string, timeout time.Duration) *LLMTopUp {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMTopUp{llm: llm, model: model, timeout: timeout}
}

func (t *LLMTopUp) Extract(ctx context.Context, brief string, notes []string) ([]run.Candidate, error) {
	if len(notes) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	prompt := fmt.Sprintf("BRIEF:\n%s\n\nNOTES:\n%s", brief, tailNotes(notes, 8000))

	// one attempt, one strict retry, then the caller degrades to the
	// structural candidates alone
	parsed, err := t.attempt(ctx, topUpSystemPrompt, prompt)
	if err != nil {
		parsed, err = t.attempt(ctx, topUpStrictPrompt, prompt)
		if err != nil {
			return nil, fmt.Errorf("top-up: unusable after retry: %w", err)
		}
	}
	var out []run.Candidate
	for _, p := range parsed {
		if p.Name == "" && p.URL == "" {
			continue
		}
		out = append(out, run.Candidate{Name: p.Name, URL: p.URL, Rationale: p.Rationale})
	}
	return out, nil
}

type topUpRow struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Rationale string `json:"rationale"`
}

func (t *LLMTopUp) attempt(ctx context.Context, system, prompt string) ([]topUpRow, error) {
	raw, err := t.llm.Generate(ctx, t.model, system, prompt)
	if err != nil {
		return nil, err
	}
	arr, ok := jsonx.ExtractArray(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON array in reply")
	}
	var parsed []topUpRow
	if err := json.Unmarshal([]byte(arr), &parsed); err != nil {
		return nil, fmt.Errorf("bad JSON: %w", err)
	}
	return parsed, nil
}

func tailNotes(notes []string, maxChars int) string {
	joined := strings.Join(notes, "\n")
	if len(joined) <= maxChars {
		return joined
	}
	return "..." + joined[len(joined)-maxChars:]
}
