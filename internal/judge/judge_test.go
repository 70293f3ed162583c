package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/mohammad-safakhou/sleuth/internal/run"
)

// fixedEvaluator always votes for the candidate with the given name,
// regardless of presented order.
type fixedEvaluator struct {
	name       string
	winnerName string
	winnerURL  string
	confidence float64
	none       bool
	err        error
}

func (f fixedEvaluator) Name() string        { return f.name }
func (f fixedEvaluator) CostWeight() float64 { return 1.0 }

func (f fixedEvaluator) Judge(_ context.Context, _ string, _ []run.Candidate, _ []string) (Verdict, error) {
	if f.err != nil {
		return Verdict{}, f.err
	}
	return Verdict{
		None:       f.none,
		WinnerName: f.winnerName,
		WinnerURL:  f.winnerURL,
		Confidence: f.confidence,
	}, nil
}

// positionalEvaluator always votes for whatever is presented first; it is
// pure position bias.
type positionalEvaluator struct{ name string }

func (p positionalEvaluator) Name() string        { return p.name }
func (p positionalEvaluator) CostWeight() float64 { return 1.0 }

func (p positionalEvaluator) Judge(_ context.Context, _ string, ordered []run.Candidate, _ []string) (Verdict, error) {
	return Verdict{WinnerName: ordered[0].Name, WinnerURL: ordered[0].URL, Confidence: 0.9}, nil
}

func twoCandidates() []run.Candidate {
	return []run.Candidate{
		{Name: "Alpha", URL: "https://alpha.example"},
		{Name: "Beta", URL: "https://beta.example"},
	}
}

func engine(cfg Config, evs ...Evaluator) *Engine {
	cfg.Seed = 7
	return NewEngine(cfg, evs)
}

// Single candidate, unanimous 0.9: winner 0, no pause.
func TestUnanimousSingleCandidate(t *testing.T) {
	e := engine(Config{EnableSwap: true},
		fixedEvaluator{name: "a", winnerName: "Only", confidence: 0.9},
		fixedEvaluator{name: "b", winnerName: "Only", confidence: 0.9},
		fixedEvaluator{name: "c", winnerName: "Only", confidence: 0.9},
	)
	d := e.Adjudicate(context.Background(), "brief", []run.Candidate{{Name: "Only"}}, nil, "relevance")
	if d.WinnerIndex != 0 {
		t.Fatalf("winner = %d, want 0", d.WinnerIndex)
	}
	if d.ShouldPause {
		t.Fatalf("should not pause: %+v", d)
	}
	if d.Confidence < 0.89 || d.Confidence > 0.91 {
		t.Fatalf("confidence = %f", d.Confidence)
	}
}

// Two candidates, committee split 50/50: no winner, pause.
func TestEvenSplitPauses(t *testing.T) {
	e := engine(Config{EnableSwap: true},
		fixedEvaluator{name: "a", winnerURL: "https://alpha.example", confidence: 0.8},
		fixedEvaluator{name: "b", winnerURL: "https://beta.example", confidence: 0.8},
	)
	d := e.Adjudicate(context.Background(), "brief", twoCandidates(), nil, "relevance")
	if d.WinnerIndex != -1 {
		t.Fatalf("winner = %d, want -1 on tie", d.WinnerIndex)
	}
	if !d.ShouldPause {
		t.Fatal("tie must pause")
	}
	if d.HumanQuestion == "" {
		t.Fatal("pause without a question")
	}
}

// The decision is invariant under the order candidates are passed in; only
// the index mapping changes.
func TestVoteSymmetry(t *testing.T) {
	evs := []Evaluator{
		fixedEvaluator{name: "a", winnerURL: "https://beta.example", confidence: 0.85},
		fixedEvaluator{name: "b", winnerURL: "https://beta.example", confidence: 0.85},
		fixedEvaluator{name: "c", winnerURL: "https://alpha.example", confidence: 0.85},
	}
	cands := twoCandidates()
	d1 := engine(Config{EnableSwap: true}, evs...).Adjudicate(context.Background(), "brief", cands, nil, "relevance")

	reversed := []run.Candidate{cands[1], cands[0]}
	d2 := engine(Config{EnableSwap: true}, evs...).Adjudicate(context.Background(), "brief", reversed, nil, "relevance")

	if d1.WinnerIndex != 1 || d2.WinnerIndex != 0 {
		t.Fatalf("winners = %d/%d, want 1/0", d1.WinnerIndex, d2.WinnerIndex)
	}
	if cands[d1.WinnerIndex].URL != reversed[d2.WinnerIndex].URL {
		t.Fatal("winner identity changed with input order")
	}
	if d1.ShouldPause || d2.ShouldPause {
		t.Fatal("clear majority should not pause")
	}
}

// An evaluator that follows presented position flips under the order swap
// and trips the bias alarm.
func TestPositionBiasAlarm(t *testing.T) {
	e := engine(Config{EnableSwap: true, BiasAlarmThreshold: 0.20},
		positionalEvaluator{name: "sycophant"},
	)
	d := e.Adjudicate(context.Background(), "brief", twoCandidates(), nil, "relevance")
	if d.Diagnostics.PositionBiasRate < 0.99 {
		t.Fatalf("bias rate = %f, want 1.0", d.Diagnostics.PositionBiasRate)
	}
	if !d.ShouldPause {
		t.Fatal("full position bias must pause")
	}
}

func TestLowConfidencePauses(t *testing.T) {
	e := engine(Config{EnableSwap: true, PauseThreshold: 0.60},
		fixedEvaluator{name: "a", winnerURL: "https://alpha.example", confidence: 0.4},
		fixedEvaluator{name: "b", winnerURL: "https://alpha.example", confidence: 0.45},
	)
	d := e.Adjudicate(context.Background(), "brief", twoCandidates(), nil, "relevance")
	if d.WinnerIndex != 0 {
		t.Fatalf("winner = %d", d.WinnerIndex)
	}
	if !d.ShouldPause {
		t.Fatal("confidence below threshold must pause")
	}
}

// Failing evaluators degrade to no-vote; the rest of the committee decides.
func TestDegradedEvaluatorDropped(t *testing.T) {
	e := engine(Config{EnableSwap: true},
		fixedEvaluator{name: "dead", err: errors.New("timeout")},
		fixedEvaluator{name: "a", winnerURL: "https://alpha.example", confidence: 0.9},
		fixedEvaluator{name: "b", winnerURL: "https://alpha.example", confidence: 0.9},
	)
	d := e.Adjudicate(context.Background(), "brief", twoCandidates(), nil, "relevance")
	if d.WinnerIndex != 0 {
		t.Fatalf("winner = %d", d.WinnerIndex)
	}
	if d.Diagnostics.DegradedCount == 0 {
		t.Fatal("degraded invocations not counted")
	}
	if d.ShouldPause {
		t.Fatal("healthy majority should carry the decision")
	}
}

// A winner named by something matching no candidate is malformed and drops.
func TestUnknownWinnerIsMalformed(t *testing.T) {
	e := engine(Config{EnableSwap: true},
		fixedEvaluator{name: "confused", winnerName: "Gamma", confidence: 0.9},
	)
	d := e.Adjudicate(context.Background(), "brief", twoCandidates(), nil, "relevance")
	if d.WinnerIndex != -1 {
		t.Fatalf("winner = %d, want -1", d.WinnerIndex)
	}
	if d.Diagnostics.DegradedCount == 0 {
		t.Fatal("unknown winner should count as degraded")
	}
}

// Mapping prefers URL, then falls back to case-insensitive name.
func TestWinnerMapping(t *testing.T) {
	cands := []run.Candidate{
		{Name: "Alpha Lodge", URL: "https://alpha.example"},
		{Name: "Beta Inn"},
	}
	if got := mapWinner(cands, Verdict{WinnerURL: "https://alpha.example", WinnerName: "Beta Inn"}); got != 0 {
		t.Fatalf("URL match should win: %d", got)
	}
	if got := mapWinner(cands, Verdict{WinnerName: "beta inn"}); got != 1 {
		t.Fatalf("case-insensitive name match failed: %d", got)
	}
	if got := mapWinner(cands, Verdict{WinnerName: "nobody"}); got != -1 {
		t.Fatalf("unknown winner should map to -1: %d", got)
	}
}

func TestNoCandidatesPauses(t *testing.T) {
	e := engine(Config{}, fixedEvaluator{name: "a"})
	d := e.Adjudicate(context.Background(), "brief", nil, nil, "relevance")
	if d.WinnerIndex != -1 || !d.ShouldPause {
		t.Fatalf("empty candidate set must pause with no winner: %+v", d)
	}
}

// abstainUnlessFirst votes for its favorite only when it is presented
// first, and abstains otherwise.
type abstainUnlessFirst struct {
	name     string
	favorite string
}

func (a abstainUnlessFirst) Name() string        { return a.name }
func (a abstainUnlessFirst) CostWeight() float64 { return 1.0 }

func (a abstainUnlessFirst) Judge(_ context.Context, _ string, ordered []run.Candidate, _ []string) (Verdict, error) {
	if ordered[0].Name == a.favorite {
		return Verdict{WinnerName: a.favorite, Confidence: 0.9}, nil
	}
	return Verdict{None: true, Confidence: 0.2}, nil
}

// Abstentions carry no weight in the committee confidence: two firm 0.9
// votes next to two zero-confidence abstentions still mean 0.9, not 0.45.
func TestAbstentionConfidenceExcluded(t *testing.T) {
	e := engine(Config{EnableSwap: true},
		fixedEvaluator{name: "firm", winnerURL: "https://alpha.example", confidence: 0.9},
		fixedEvaluator{name: "mute", none: true, confidence: 0.0},
	)
	d := e.Adjudicate(context.Background(), "brief", twoCandidates(), nil, "relevance")
	if d.WinnerIndex != 0 {
		t.Fatalf("winner = %d, want 0", d.WinnerIndex)
	}
	if d.Confidence < 0.89 || d.Confidence > 0.91 {
		t.Fatalf("confidence = %f, want 0.9", d.Confidence)
	}
	if d.ShouldPause {
		t.Fatal("abstentions must not drag a firm committee into a pause")
	}
	if _, ok := d.Diagnostics.Confidences["mute"]; ok {
		t.Fatal("an evaluator with no real votes has no confidence to report")
	}
}

// A pair where one side of the order swap abstained is not comparable and
// must not count toward the position bias rate.
func TestAbstentionExcludedFromBiasPairs(t *testing.T) {
	e := engine(Config{EnableSwap: true},
		abstainUnlessFirst{name: "shy", favorite: "Alpha"},
	)
	d := e.Adjudicate(context.Background(), "brief", twoCandidates(), nil, "relevance")
	if d.Diagnostics.BiasPairs != 0 {
		t.Fatalf("bias pairs = %d, want 0", d.Diagnostics.BiasPairs)
	}
	if d.Diagnostics.PositionBiasRate != 0 {
		t.Fatalf("bias rate = %f, want 0", d.Diagnostics.PositionBiasRate)
	}
	if d.WinnerIndex != 0 {
		t.Fatalf("winner = %d, want 0", d.WinnerIndex)
	}
	if d.ShouldPause {
		t.Fatal("abstentions alone must not trip the bias alarm")
	}
}

func TestNoneVotesYieldNoWinner(t *testing.T) {
	e := engine(Config{EnableSwap: true},
		fixedEvaluator{name: "a", none: true, confidence: 0.7},
		fixedEvaluator{name: "b", none: true, confidence: 0.7},
	)
	d := e.Adjudicate(context.Background(), "brief", twoCandidates(), nil, "relevance")
	if d.WinnerIndex != -1 || !d.ShouldPause {
		t.Fatalf("all-none committee must pause: %+v", d)
	}
}
