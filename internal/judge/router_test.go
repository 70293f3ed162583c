package judge

import (
	"context"
	"testing"

	"github.com/mohammad-safakhou/sleuth/internal/run"
)

type weightedEvaluator struct {
	fixedEvaluator
	cost       float64
	capability float64
}

func (w weightedEvaluator) CostWeight() float64 { return w.cost }
func (w weightedEvaluator) Capability() float64 { return w.capability }

func TestRouterDisabledUsesWholeCommittee(t *testing.T) {
	e := engine(Config{EnableRouter: false, RouterTopK: 1},
		fixedEvaluator{name: "a", winnerName: "X", confidence: 0.9},
		fixedEvaluator{name: "b", winnerName: "X", confidence: 0.9},
		fixedEvaluator{name: "c", winnerName: "X", confidence: 0.9},
	)
	selected := e.route("brief", []run.Candidate{{Name: "X"}}, nil, "relevance")
	if len(selected) != 3 {
		t.Fatalf("disabled router selected %d evaluators, want 3", len(selected))
	}
}

func TestRouterTopKByScore(t *testing.T) {
	cheap := weightedEvaluator{fixedEvaluator: fixedEvaluator{name: "cheap"}, cost: 0.1, capability: 1.0}
	strong := weightedEvaluator{fixedEvaluator: fixedEvaluator{name: "strong"}, cost: 0.5, capability: 2.0}
	pricey := weightedEvaluator{fixedEvaluator: fixedEvaluator{name: "pricey"}, cost: 5.0, capability: 1.0}

	e := engine(Config{EnableRouter: true, RouterTopK: 2, CostCoefficient: 0.1},
		cheap, strong, pricey)

	selected := e.route("some reasonably long brief describing the target", manyCandidates(6), nil, "relevance")
	if len(selected) != 2 {
		t.Fatalf("selected %d, want 2", len(selected))
	}
	names := []string{selected[0].Name(), selected[1].Name()}
	if names[0] != "strong" || names[1] != "cheap" {
		t.Fatalf("selection = %v, want [strong cheap]", names)
	}
}

func TestRouterTieKeepsListedOrder(t *testing.T) {
	a := weightedEvaluator{fixedEvaluator: fixedEvaluator{name: "first"}, cost: 1, capability: 1}
	b := weightedEvaluator{fixedEvaluator: fixedEvaluator{name: "second"}, cost: 1, capability: 1}
	c := weightedEvaluator{fixedEvaluator: fixedEvaluator{name: "third"}, cost: 1, capability: 1}

	e := engine(Config{EnableRouter: true, RouterTopK: 2, CostCoefficient: 0.1}, a, b, c)
	selected := e.route("brief", manyCandidates(3), nil, "relevance")
	if selected[0].Name() != "first" || selected[1].Name() != "second" {
		t.Fatalf("tie broke listed order: %s, %s", selected[0].Name(), selected[1].Name())
	}
}

func TestCalibrationFailureForcesPause(t *testing.T) {
	// the whole committee picks the obviously wrong probe answer
	wrong := fixedEvaluator{name: "wrong", winnerName: "Crimson Peak Hardware", confidence: 0.95}
	e := engine(Config{EnableCalibration: true, EnableSwap: true}, wrong, wrong)

	d := e.Adjudicate(context.Background(), "brief", twoCandidates(), nil, "relevance")
	if !d.Diagnostics.CalibrationFailed {
		t.Fatal("calibration failure not recorded")
	}
	if !d.ShouldPause {
		t.Fatal("calibration failure must force a pause")
	}
}

func TestCaseFeatureMarkers(t *testing.T) {
	f := extractFeatures(
		"proof of the theorem behind the SELECT statement in the clinical trial database, and whether exporting it is illegal",
		manyCandidates(2), "")
	if !f.hasMath {
		t.Error("math marker missed")
	}
	if !f.hasCode {
		t.Error("code marker missed")
	}
	if !f.isSafety {
		t.Error("safety marker missed")
	}
	if !f.isBioHealth {
		t.Error("biomedical marker missed")
	}

	plain := extractFeatures("find the bakery on Elm Street", manyCandidates(2), "")
	if plain.hasMath || plain.hasCode || plain.isSafety || plain.isBioHealth {
		t.Fatalf("markers fired on a plain brief: %+v", plain)
	}
}

// The aspect hint alone flags a safety case even when the brief has no
// safety vocabulary, and a flagged case scores harder.
func TestAspectHintFlagsSafety(t *testing.T) {
	brief := "identify the venue in this photo"
	plain := extractFeatures(brief, manyCandidates(2), "relevance")
	flagged := extractFeatures(brief, manyCandidates(2), "safety")
	if plain.isSafety {
		t.Fatal("relevance hint must not flag safety")
	}
	if !flagged.isSafety {
		t.Fatal("safety hint ignored")
	}
	if caseDifficulty(flagged) <= caseDifficulty(plain) {
		t.Fatalf("safety case not scored harder: %f vs %f", caseDifficulty(flagged), caseDifficulty(plain))
	}
}

func manyCandidates(n int) []run.Candidate {
	out := make([]run.Candidate, n)
	for i := range out {
		out[i] = run.Candidate{Name: string(rune('A' + i))}
	}
	return out
}
