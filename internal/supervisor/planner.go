package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/sleuth/internal/action"
	"github.com/mohammad-safakhou/sleuth/internal/jsonx"
	"github.com/mohammad-safakhou/sleuth/provider"
)

// Oracle proposes the next turn's actions. Its output is untrusted and goes
// through sanitation before anything is dispatched.
type Oracle interface {
	Propose(ctx context.Context, brief string, notes []string, budgetRemaining int) (rationale string, calls []action.Call, err error)
}

const plannerSystemPrompt = `You are an investigation planner. Given a research brief, the evidence so far and the remaining action budget, propose the next batch of research actions.

Respond ONLY with valid JSON:
{
  "rationale": "one or two sentences on the plan",
  "actions": [
    {"name": "action_name", "args": {"query": "...", "url": "..."}}
  ]
}
Use "query" for searches and "url" for fetches and image lookups. When the brief is answered and nothing useful remains, propose the single action "research_complete" (no args) or an empty actions list. Do not include any other text.`

const plannerStrictPrompt = `Respond with EXACTLY one JSON object of the form {"rationale": "...", "actions": [{"name": "...", "args": {...}}]}. No prose, no code fences.`

// LLMPlanner asks a model for the next actions, parsing its reply leniently
// and retrying once with a stricter, shorter prompt before giving up.
type LLMPlanner struct {
	llm     provider.LLM
	model   string
	catalog *action.Catalog
	timeout time.Duration
}

func NewLLMPlanner(llm provider.LLM, model string, catalog *action.Catalog, timeout time.Duration) *LLMPlanner {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &LLMPlanner{llm: llm, model: model, catalog: catalog, timeout: timeout}
}

func (p *LLMPlanner) Propose(ctx context.Context, brief string, notes []string, budgetRemaining int) (string, []action.Call, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prompt := p.buildPrompt(brief, notes, budgetRemaining)

	// one attempt with the full prompt, one strict retry; a transport
	// error burns the first attempt the same way a garbled reply does
	raw, err := p.llm.Generate(ctx, p.model, plannerSystemPrompt, prompt)
	if err == nil {
		if rationale, calls, perr := parsePlan(raw); perr == nil {
			return rationale, calls, nil
		}
	}

	raw, err = p.llm.Generate(ctx, p.model, plannerStrictPrompt, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("planner retry: %w", err)
	}
	rationale, calls, perr := parsePlan(raw)
	if perr != nil {
		return "", nil, fmt.Errorf("planner: unparseable after retry: %w", perr)
	}
	return rationale, calls, nil
}

func (p *LLMPlanner) buildPrompt(brief string, notes []string, budgetRemaining int) string {
	var b strings.Builder
	b.WriteString("BRIEF:\n")
	b.WriteString(brief)
	b.WriteString("\n\nAVAILABLE ACTIONS:\n")
	for _, s := range p.catalog.List() {
		b.WriteString(fmt.Sprintf("- %s (%s, cost %d)\n", s.Name, s.Category, s.Cost))
	}
	b.WriteString(fmt.Sprintf("\nREMAINING BUDGET: %d units\n\nEVIDENCE SO FAR:\n", budgetRemaining))
	b.WriteString(tailNotes(notes, 6000))
	return b.String()
}

func tailNotes(notes []string, maxChars int) string {
	joined := strings.Join(notes, "\n")
	if joined == "" {
		return "(none yet)"
	}
	if len(joined) <= maxChars {
		return joined
	}
	return "..." + joined[len(joined)-maxChars:]
}

func parsePlan(raw string) (string, []action.Call, error) {
	obj, ok := jsonx.ExtractObject(raw)
	if !ok {
		return "", nil, fmt.Errorf("no JSON object in plan")
	}
	var parsed struct {
		Rationale string        `json:"rationale"`
		Actions   []action.Call `json:"actions"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return "", nil, fmt.Errorf("bad plan JSON: %w", err)
	}
	return parsed.Rationale, parsed.Actions, nil
}
