package judge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/sleuth/internal/run"
)

// scriptedLLM returns canned replies in order.
type scriptedLLM struct {
	replies []string
	calls   int
	prompts []string
}

func (s *scriptedLLM) Generate(_ context.Context, _, _, user string) (string, error) {
	s.prompts = append(s.prompts, user)
	reply := s.replies[s.calls%len(s.replies)]
	s.calls++
	return reply, nil
}

func TestParseVerdict(t *testing.T) {
	v, err := parseVerdict(`Here is my answer:
{"winner_name": "Alpha", "winner_url": "https://alpha.example", "confidence": 0.8, "reason": "matches"}`)
	if err != nil {
		t.Fatal(err)
	}
	if v.WinnerName != "Alpha" || v.WinnerURL != "https://alpha.example" || v.Confidence != 0.8 {
		t.Fatalf("verdict = %+v", v)
	}

	none, err := parseVerdict(`{"winner_name": null, "winner_url": null, "confidence": 0.3, "reason": "nothing fits"}`)
	if err != nil {
		t.Fatal(err)
	}
	if !none.None {
		t.Fatalf("null winner should be a none verdict: %+v", none)
	}

	if _, err := parseVerdict(`no json at all`); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := parseVerdict(`{"winner_name": "x"}`); err == nil {
		t.Fatal("missing confidence must be a parse error")
	}
}

func TestLLMEvaluatorRetriesOnceThenSucceeds(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"I think the answer is Alpha.",
		`{"winner_name": "Alpha", "winner_url": "", "confidence": 0.75, "reason": "ok"}`,
	}}
	ev := NewLLMEvaluator(llm, "test-model", 1.0, time.Second)
	v, err := ev.Judge(context.Background(), "brief", []run.Candidate{{Name: "Alpha"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.WinnerName != "Alpha" {
		t.Fatalf("verdict = %+v", v)
	}
	if llm.calls != 2 {
		t.Fatalf("calls = %d, want 2", llm.calls)
	}
	if !strings.Contains(llm.prompts[1], "EXACTLY one JSON object") {
		t.Fatal("retry prompt missing the strict instruction")
	}
}

func TestLLMEvaluatorDegradesAfterRetry(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"still prose", "more prose"}}
	ev := NewLLMEvaluator(llm, "test-model", 1.0, time.Second)
	if _, err := ev.Judge(context.Background(), "brief", []run.Candidate{{Name: "A"}}, nil); err == nil {
		t.Fatal("expected error after failed retry")
	}
	if llm.calls != 2 {
		t.Fatalf("calls = %d, want exactly one retry", llm.calls)
	}
}

func TestJudgePromptOrderFollowsPresentation(t *testing.T) {
	p := buildJudgePrompt("b", []run.Candidate{{Name: "Second"}, {Name: "First"}}, []string{"note"})
	if strings.Index(p, "Second") > strings.Index(p, "First") {
		t.Fatal("prompt does not preserve the presented order")
	}
}
