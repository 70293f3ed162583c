package judge

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

const evaluatorSystemPrompt = `You are an investigation evaluator. You are given a research brief, the evidence collected so far, and a numbered list of candidate answers. Pick the candidate best supported by the evidence, or declare that none of them is supported.

Respond ONLY with valid JSON in this format:
{
  "winner_name": "exact name of the winning candidate, or null",
  "winner_url": "exact url of the winning candidate, or null",
  "confidence": 0.0,
  "reason": "one sentence"
}
Set both winner fields to null if no candidate is supported. Do not include any other text.`

const strictRetrySuffix = `

Your previous reply was not parseable. Respond with EXACTLY one JSON object in the format above, nothing else: no prose, no code fences.`

// maximum note characters shown to an evaluator; oldest notes are dropped
// first since later evidence tends to be the refined part
const maxNoteChars = 6000

// LLMEvaluator is one committee member backed by a model.
type LLMEvaluator struct {
	model      string
	costWeight float64
	llm        provider.LLM
	timeout    time.Duration
}

// NewLLMEvaluator wires a model name to the committee. costWeight feeds the
// router's cost penalty; larger models should carry larger weights.
func NewLLMEvaluator(llm provider.LLM, model string, costWeight float64, timeout time.Duration) *LLMEvaluator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if costWeight <= 0 {
		costWeight = 1.0
	}
	return &LLMEvaluator{model: model, costWeight: costWeight, llm: llm, timeout: timeout}
}

func (e *LLMEvaluator) Name() string        { return e.model }
func (e *LLMEvaluator) CostWeight() float64 { return e.costWeight }

// Judge presents the candidates in the given order and parses the verdict.
// A malformed reply is retried once with a strict-format instruction; a
// second failure surfaces as an error and the engine drops the vote.
func (e *LLMEvaluator) Judge(ctx context.Context, brief string, candidates []run.Candidate, notes []string) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := buildJudgePrompt(brief, candidates, notes)

	raw, err := e.llm.Generate(ctx, e.model, evaluatorSystemPrompt, prompt)
	if err != nil {
		return Verdict{}, fmt.Errorf("evaluator %s: %w", e.model, err)
	}
	v, perr := parseVerdict(raw)
	if perr == nil {
		return v, nil
	}

	raw, err = e.llm.Generate(ctx, e.model, evaluatorSystemPrompt, prompt+strictRetrySuffix)
	if err != nil {
		return Verdict{}, fmt.Errorf("evaluator %s retry: %w", e.model, err)
	}
	v, perr = parseVerdict(raw)
	if perr != nil {
		return Verdict{}, fmt.Errorf("evaluator %s: unparseable after retry: %w", e.model, perr)
	}
	return v, nil
}

func buildJudgePrompt(brief string, candidates []run.Candidate, notes []string) string {
	var b strings.Builder
	b.WriteString("BRIEF:\n")
	b.WriteString(brief)
	b.WriteString("\n\nEVIDENCE:\n")
	b.WriteString(tailNotes(notes, maxNoteChars))
	b.WriteString("\n\nCANDIDATES:\n")
	for i, c := range candidates {
		b.WriteString(fmt.Sprintf("%d. name: %s", i+1, c.Name))
		if c.URL != "" {
			b.WriteString(fmt.Sprintf("\n   url: %s", c.URL))
		}
		if c.Rationale != "" {
			b.WriteString(fmt.Sprintf("\n   rationale: %s", c.Rationale))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func tailNotes(notes []string, maxChars int) string {
	joined := strings.Join(notes, "\n")
	if len(joined) <= maxChars {
		return joined
	}
	return "..." + joined[len(joined)-maxChars:]
}

func parseVerdict(raw string) (Verdict, error) {
	obj, ok := jsonx.ExtractObject(raw)
	if !ok {
		return Verdict{}, fmt.Errorf("no JSON object in reply")
	}
	var parsed struct {
		WinnerName *string  `json:"winner_name"`
		WinnerURL  *string  `json:"winner_url"`
		Confidence *float64 `json:"confidence"`
		Reason     string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return Verdict{}, fmt.Errorf("bad verdict JSON: %w", err)
	}
	if parsed.Confidence == nil {
		return Verdict{}, fmt.Errorf("verdict missing confidence")
	}
	v := Verdict{Confidence: *parsed.Confidence, Reason: parsed.Reason}
	if parsed.WinnerName != nil {
		v.WinnerName = strings.TrimSpace(*parsed.WinnerName)
	}
	if parsed.WinnerURL != nil {
		v.WinnerURL = strings.TrimSpace(*parsed.WinnerURL)
	}
	if v.WinnerName == "" && v.WinnerURL == "" {
		v.None = true
	}
	return v, nil
}
