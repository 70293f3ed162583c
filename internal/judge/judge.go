// Package judge arbitrates between candidate answers with a committee of
// evaluators, defending against position bias and single-model noise before
// trusting any verdict.
package judge

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/sleuth/internal/run"
	"github.com/mohammad-safakhou/sleuth/internal/telemetry"
)

// Verdict is one evaluator's answer for one presented ordering. The winner is
// referenced by content, not index, so the engine can map it back to the
// caller's ordering regardless of how the candidates were shuffled.
type Verdict struct {
	None       bool
	WinnerName string
	WinnerURL  string
	Confidence float64
	Reason     string
}

// Evaluator is one committee member.
type Evaluator interface {
	Name() string
	CostWeight() float64
	Judge(ctx context.Context, brief string, candidates []run.Candidate, notes []string) (Verdict, error)
}

// Capability is optionally implemented by evaluators that want the router to
// weigh them above the default 1.0.
type Capability interface {
	Capability() float64
}

// Diagnostics records how the decision was reached.
type Diagnostics struct {
	EvaluatorsUsed    []string           `json:"evaluators_used"`
	Votes             map[string][]int   `json:"votes"` // evaluator -> mapped winner per invocation (-1 none)
	VoteCount         int                `json:"vote_count"`
	DegradedCount     int                `json:"degraded_count"`
	PositionBiasRate  float64            `json:"position_bias_rate"`
	BiasFlips         int                `json:"bias_flips"`
	BiasPairs         int                `json:"bias_pairs"`
	CalibrationFailed bool               `json:"calibration_failed"`
	Tally             map[int]int        `json:"tally"`
	Confidences       map[string]float64 `json:"confidences"`
}

// Decision is the engine's final output for one turn.
type Decision struct {
	Ranking       []int // original indices, most to least voted
	WinnerIndex   int   // -1 when no winner
	Confidence    float64
	ShouldPause   bool
	HumanQuestion string
	Diagnostics   Diagnostics
}

// Config tunes the engine. Zero values are filled with safe defaults.
type Config struct {
	SelfConsistencyRuns int
	EnableSwap          bool
	EnableRouter        bool
	RouterTopK          int
	CostCoefficient     float64
	PauseThreshold      float64
	BiasAlarmThreshold  float64
	EnableCalibration   bool
	Seed                int64
}

type Engine struct {
	cfg        Config
	evaluators []Evaluator
	logger     *log.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewEngine(cfg Config, evaluators []Evaluator) *Engine {
	if cfg.SelfConsistencyRuns < 1 {
		cfg.SelfConsistencyRuns = 2
	}
	if cfg.PauseThreshold == 0 {
		cfg.PauseThreshold = 0.60
	}
	if cfg.BiasAlarmThreshold == 0 {
		cfg.BiasAlarmThreshold = 0.20
	}
	if cfg.RouterTopK < 1 {
		cfg.RouterTopK = len(evaluators)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Engine{
		cfg:        cfg,
		evaluators: evaluators,
		logger:     log.New(log.Writer(), "[JUDGE] ", log.LstdFlags),
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// one evaluator's complete output across its runs
type evaluatorOutcome struct {
	name     string
	votes    []int     // mapped winner per invocation, -1 = none
	confs    []float64 // confidence per invocation, parallel to votes
	flips    int       // base/swap disagreements
	pairs    int       // comparable base/swap pairs
	degraded int       // invocations dropped after retry
}

// Adjudicate runs the committee over the candidates and reduces all votes to
// one decision. Evaluators run concurrently; the reduction is single-threaded
// and pure.
func (e *Engine) Adjudicate(ctx context.Context, brief string, candidates []run.Candidate, notes []string, aspectHint string) Decision {
	if len(candidates) == 0 {
		return Decision{
			WinnerIndex:   -1,
			ShouldPause:   true,
			HumanQuestion: "No candidates were found. Can you provide another lead (a URL, a name, a detail)?",
		}
	}

	selected := e.route(brief, candidates, notes, aspectHint)

	calibrationFailed := false
	if e.cfg.EnableCalibration {
		calibrationFailed = !e.calibrate(ctx, selected)
	}

	outcomes := make([]evaluatorOutcome, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, ev := range selected {
		i, ev := i, ev
		g.Go(func() error {
			outcomes[i] = e.runEvaluator(gctx, ev, brief, candidates, notes)
			return nil
		})
	}
	_ = g.Wait()

	return e.reduce(candidates, selected, outcomes, calibrationFailed)
}

// runEvaluator performs R self-consistency runs, each over a fresh shuffled
// order, plus an order-swapped second invocation per run when enabled.
func (e *Engine) runEvaluator(ctx context.Context, ev Evaluator, brief string, candidates []run.Candidate, notes []string) evaluatorOutcome {
	out := evaluatorOutcome{name: ev.Name()}
	for r := 0; r < e.cfg.SelfConsistencyRuns; r++ {
		perm := e.shuffledOrder(len(candidates))
		baseVote, baseConf, baseOK := e.invoke(ctx, ev, brief, candidates, perm, notes)
		if baseOK {
			out.votes = append(out.votes, baseVote)
			out.confs = append(out.confs, baseConf)
		} else {
			out.degraded++
		}

		if !e.cfg.EnableSwap || len(candidates) < 2 {
			continue
		}
		swapped := make([]int, len(perm))
		copy(swapped, perm)
		swapped[0], swapped[1] = swapped[1], swapped[0]
		swapVote, swapConf, swapOK := e.invoke(ctx, ev, brief, candidates, swapped, notes)
		if swapOK {
			out.votes = append(out.votes, swapVote)
			out.confs = append(out.confs, swapConf)
		} else {
			out.degraded++
		}
		// a pair is comparable only when both invocations resolved to a
		// real candidate; a no-vote on either side says nothing about order
		if baseOK && swapOK && baseVote >= 0 && swapVote >= 0 {
			out.pairs++
			if baseVote != swapVote {
				out.flips++
			}
		}
	}
	return out
}

// invoke presents the candidates in the given order and maps the verdict
// back to the original index. ok is false when the evaluator degraded.
func (e *Engine) invoke(ctx context.Context, ev Evaluator, brief string, candidates []run.Candidate, perm []int, notes []string) (vote int, conf float64, ok bool) {
	ordered := make([]run.Candidate, len(perm))
	for i, p := range perm {
		ordered[i] = candidates[p]
	}
	verdict, err := ev.Judge(ctx, brief, ordered, notes)
	if err != nil {
		e.logger.Printf("evaluator %s degraded: %v", ev.Name(), err)
		return -1, 0, false
	}
	if verdict.None {
		return -1, clamp01(verdict.Confidence), true
	}
	idx := mapWinner(candidates, verdict)
	if idx < 0 {
		// a winner that matches nothing is a malformed answer
		e.logger.Printf("evaluator %s named an unknown winner %q/%q", ev.Name(), verdict.WinnerName, verdict.WinnerURL)
		return -1, 0, false
	}
	return idx, clamp01(verdict.Confidence), true
}

// mapWinner resolves a verdict to an original candidate index: exact URL
// match first, then case-insensitive name.
func mapWinner(candidates []run.Candidate, v Verdict) int {
	if v.WinnerURL != "" {
		for i, c := range candidates {
			if c.URL != "" && c.URL == v.WinnerURL {
				return i
			}
		}
	}
	if v.WinnerName != "" {
		want := strings.ToLower(strings.TrimSpace(v.WinnerName))
		for i, c := range candidates {
			if strings.ToLower(strings.TrimSpace(c.Name)) == want {
				return i
			}
		}
	}
	return -1
}

func (e *Engine) reduce(candidates []run.Candidate, selected []Evaluator, outcomes []evaluatorOutcome, calibrationFailed bool) Decision {
	diag := Diagnostics{
		Votes:             make(map[string][]int, len(outcomes)),
		Confidences:       make(map[string]float64, len(outcomes)),
		Tally:             make(map[int]int),
		CalibrationFailed: calibrationFailed,
	}
	for _, ev := range selected {
		diag.EvaluatorsUsed = append(diag.EvaluatorsUsed, ev.Name())
	}

	var confSum float64
	var confN int
	for _, o := range outcomes {
		diag.Votes[o.name] = o.votes
		diag.VoteCount += len(o.votes)
		diag.DegradedCount += o.degraded
		if o.degraded > 0 {
			telemetry.EvaluatorDegraded.WithLabelValues(o.name).Add(float64(o.degraded))
		}
		diag.BiasFlips += o.flips
		diag.BiasPairs += o.pairs
		var evSum float64
		var evN int
		for i, v := range o.votes {
			if v < 0 {
				// abstentions do not tally and their confidence is noise
				continue
			}
			diag.Tally[v]++
			confSum += o.confs[i]
			evSum += o.confs[i]
			confN++
			evN++
		}
		if evN > 0 {
			diag.Confidences[o.name] = evSum / float64(evN)
		}
	}

	if diag.BiasPairs > 0 {
		diag.PositionBiasRate = float64(diag.BiasFlips) / float64(diag.BiasPairs)
	}

	winner := strictPlurality(diag.Tally)

	confidence := 0.0
	if confN > 0 {
		confidence = confSum / float64(confN)
	}

	d := Decision{
		Ranking:     rankByVotes(len(candidates), diag.Tally),
		WinnerIndex: winner,
		Confidence:  confidence,
		Diagnostics: diag,
	}
	d.ShouldPause = winner < 0 ||
		confidence < e.cfg.PauseThreshold ||
		diag.PositionBiasRate >= e.cfg.BiasAlarmThreshold ||
		calibrationFailed
	if d.ShouldPause {
		d.HumanQuestion = e.composeQuestion(candidates, d)
	}
	e.logger.Printf("decision: winner=%d confidence=%.2f bias=%.2f pause=%v votes=%d degraded=%d",
		d.WinnerIndex, d.Confidence, diag.PositionBiasRate, d.ShouldPause, diag.VoteCount, diag.DegradedCount)
	return d
}

// strictPlurality returns the index with the most votes, or -1 when the top
// count is shared or no real votes exist.
func strictPlurality(tally map[int]int) int {
	best, bestCount, tied := -1, 0, false
	for idx, n := range tally {
		switch {
		case n > bestCount:
			best, bestCount, tied = idx, n, false
		case n == bestCount && n > 0:
			tied = true
		}
	}
	if tied || bestCount == 0 {
		return -1
	}
	return best
}

func rankByVotes(n int, tally map[int]int) []int {
	ranking := make([]int, n)
	for i := range ranking {
		ranking[i] = i
	}
	// stable insertion keeps original order among equals
	for i := 1; i < n; i++ {
		for j := i; j > 0 && tally[ranking[j]] > tally[ranking[j-1]]; j-- {
			ranking[j], ranking[j-1] = ranking[j-1], ranking[j]
		}
	}
	return ranking
}

func (e *Engine) composeQuestion(candidates []run.Candidate, d Decision) string {
	var b strings.Builder
	switch {
	case d.Diagnostics.CalibrationFailed:
		b.WriteString("The evaluators failed a sanity check, so their verdict cannot be trusted. ")
	case d.WinnerIndex < 0:
		b.WriteString("The evaluators could not agree on a single answer. ")
	case d.Diagnostics.PositionBiasRate >= e.cfg.BiasAlarmThreshold:
		b.WriteString("The verdict changed when the options were reordered, which suggests guessing. ")
	default:
		b.WriteString(fmt.Sprintf("Confidence is low (%.0f%%). ", d.Confidence*100))
	}
	b.WriteString("Which of these looks right, if any?\n")
	for i, c := range candidates {
		b.WriteString(fmt.Sprintf("  %d. %s", i+1, c.Name))
		if c.URL != "" {
			b.WriteString(" (" + c.URL + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString("Reply with a number, or \"none\" to reject all of them.")
	return b.String()
}

func (e *Engine) shuffledOrder(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	e.mu.Lock()
	e.rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	e.mu.Unlock()
	return perm
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
