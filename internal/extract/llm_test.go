package extract

import (
	"context"
	"strings"
	"testing"
	"time"
)

type scriptedLLM struct {
	replies []string
	calls   int
	systems []string
}

func (s *scriptedLLM) Generate(_ context.Context, _, system, _ string) (string, error) {
	s.systems = append(s.systems, system)
	reply := s.replies[s.calls%len(s.replies)]
	s.calls++
	return reply, nil
}

func TestTopUpParsesLooseReply(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"Here you go:\n[{\"name\": \"Acme Lodge\", \"url\": \"https://acme.example\", \"rationale\": \"named in the notes\"}]",
	}}
	tu := NewLLMTopUp(llm, "m", time.Second)
	out, err := tu.Extract(context.Background(), "brief", []string{"a note"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Name != "Acme Lodge" || out[0].URL != "https://acme.example" {
		t.Fatalf("candidates = %+v", out)
	}
	if llm.calls != 1 {
		t.Fatalf("model calls = %d, want 1", llm.calls)
	}
}

// A garbled reply earns exactly one retry with the strict format
// instruction before the top-up degrades.
func TestTopUpRetriesWithStrictFormat(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"The notes mention a lodge called Acme.",
		`[{"name": "Acme Lodge", "url": "", "rationale": "second attempt"}]`,
	}}
	tu := NewLLMTopUp(llm, "m", time.Second)
	out, err := tu.Extract(context.Background(), "brief", []string{"a note"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Name != "Acme Lodge" {
		t.Fatalf("candidates = %+v", out)
	}
	if llm.calls != 2 {
		t.Fatalf("model calls = %d, want 2", llm.calls)
	}
	if !strings.Contains(llm.systems[1], "EXACTLY one JSON array") {
		t.Fatal("retry did not use the strict prompt")
	}
}

func TestTopUpDegradesAfterRetry(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"prose", "more prose"}}
	tu := NewLLMTopUp(llm, "m", time.Second)
	if _, err := tu.Extract(context.Background(), "brief", []string{"a note"}); err == nil {
		t.Fatal("expected error after failed retry")
	}
	if llm.calls != 2 {
		t.Fatalf("model calls = %d, want exactly one retry", llm.calls)
	}
}
