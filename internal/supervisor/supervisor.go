// Package supervisor drives one investigation: it plans a turn with an
// untrusted oracle, sanitizes the plan, dispatches the surviving actions in
// waves, extracts candidates and hands them to the judge.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/sleuth/internal/action"
	"github.com/mohammad-safakhou/sleuth/internal/budget"
	"github.com/mohammad-safakhou/sleuth/internal/extract"
	"github.com/mohammad-safakhou/sleuth/internal/judge"
	"github.com/mohammad-safakhou/sleuth/internal/run"
	"github.com/mohammad-safakhou/sleuth/internal/telemetry"
)

// Outcome is the result of one turn.
type Outcome string

const (
	OutcomeContinue      Outcome = "continue"
	OutcomeAwaitingHuman Outcome = "awaiting_human"
	OutcomeCompleted     Outcome = "completed"
	OutcomeStopped       Outcome = "stopped"
)

type Supervisor struct {
	registry          *action.Registry
	tracker           *budget.Tracker
	extractor         *extract.Extractor
	judge             *judge.Engine
	oracle            Oracle
	actionTimeout     time.Duration
	maxActionsPerTurn int
	logger            *log.Logger
	tracer            trace.Tracer
}

func New(registry *action.Registry, tracker *budget.Tracker, extractor *extract.Extractor, judgeEngine *judge.Engine, oracle Oracle, actionTimeout time.Duration, maxActionsPerTurn int) *Supervisor {
	if actionTimeout <= 0 {
		actionTimeout = 30 * time.Second
	}
	if maxActionsPerTurn <= 0 {
		maxActionsPerTurn = 6
	}
	return &Supervisor{
		registry:          registry,
		tracker:           tracker,
		extractor:         extractor,
		judge:             judgeEngine,
		oracle:            oracle,
		actionTimeout:     actionTimeout,
		maxActionsPerTurn: maxActionsPerTurn,
		logger:            log.New(log.Writer(), "[SUPERVISOR] ", log.LstdFlags),
		tracer:            otel.Tracer("sleuth/supervisor"),
	}
}

// Turn advances the run by one full cycle. It is the single writer of the
// run state; all concurrent work finishes before any mutation.
func (s *Supervisor) Turn(ctx context.Context, state *run.RunState) Outcome {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "supervisor.turn", trace.WithAttributes(
		attribute.String("run.id", state.ID),
		attribute.Int("run.turn", state.TurnCount),
		attribute.Int("run.budget_used", state.BudgetUsed),
	))
	defer span.End()
	defer func() {
		telemetry.TurnsTotal.Inc()
		telemetry.TurnDuration.Observe(time.Since(started).Seconds())
	}()

	state.TurnCount++

	rationale, proposed, err := s.oracle.Propose(ctx, state.Brief, state.Notes, s.tracker.Remaining(state.BudgetUsed))
	if err != nil {
		s.logger.Printf("run %s: planning failed, stopping: %v", state.ID, err)
		state.AppendNote(fmt.Sprintf("[planner] failed: %v", err))
		state.Status = run.StatusStopped
		return OutcomeStopped
	}
	if rationale != "" {
		state.AppendNote("[plan] " + rationale)
	}

	if hasCompletionSignal(proposed) {
		state.AppendNote("[plan] oracle declared the research complete")
		return s.conclude(state)
	}

	calls := s.sanitize(state, proposed)
	span.SetAttributes(
		attribute.Int("turn.proposed", len(proposed)),
		attribute.Int("turn.sanitized", len(calls)),
	)

	// an empty batch means the oracle has nothing left to try
	if len(calls) == 0 {
		s.logger.Printf("run %s: empty action batch, ending", state.ID)
		return s.conclude(state)
	}

	results := s.dispatch(ctx, state, calls)
	turnNotes := make([]string, 0, len(results))
	for _, res := range results {
		note := res.Note()
		state.AppendNote(note)
		turnNotes = append(turnNotes, note)
	}

	if cands := s.extractor.Extract(ctx, state, results); len(cands) > 0 {
		state.Candidates = cands
	}

	if len(state.Candidates) == 0 {
		// nothing to arbitrate; stop when this turn also produced nothing
		// left to chase
		if !hasChaseableURL(state, turnNotes) {
			s.logger.Printf("run %s: no candidates and no URLs to follow, stopping", state.ID)
			state.Status = run.StatusStopped
			return OutcomeStopped
		}
		return OutcomeContinue
	}

	// a confirmed selection ends arbitration; remaining turns only refine
	// the evidence around it
	if state.SelectedCandidate != nil {
		return OutcomeContinue
	}

	decision := s.judge.Adjudicate(ctx, state.Brief, state.Candidates, state.Notes, "relevance")
	telemetry.JudgeConfidence.Observe(decision.Confidence)
	span.SetAttributes(
		attribute.Int("judge.winner", decision.WinnerIndex),
		attribute.Float64("judge.confidence", decision.Confidence),
		attribute.Bool("judge.pause", decision.ShouldPause),
	)

	if decision.ShouldPause {
		telemetry.PausesTotal.WithLabelValues(pauseReason(decision)).Inc()
		state.AwaitingHuman = true
		state.HumanQuestion = decision.HumanQuestion
		state.Status = run.StatusAwaitingHuman
		return OutcomeAwaitingHuman
	}

	// a confident verdict locks the selection but does not end the run:
	// later turns may now run the gated vertical checks against it
	winner := state.Candidates[decision.WinnerIndex]
	state.Select(winner)
	state.AppendNote(fmt.Sprintf("[judge] selected %q (confidence %.2f)", winner.Name, decision.Confidence))
	s.logger.Printf("run %s: selected %q (confidence %.2f), continuing to verify", state.ID, winner.Name, decision.Confidence)
	return OutcomeContinue
}

// conclude ends the run when the planning phase is over: completed when a
// candidate was confirmed, inconclusive when the search petered out first.
func (s *Supervisor) conclude(state *run.RunState) Outcome {
	if state.SelectedCandidate != nil {
		state.Status = run.StatusCompleted
		s.logger.Printf("run %s: completed with %q", state.ID, state.SelectedCandidate.Name)
		return OutcomeCompleted
	}
	state.Status = run.StatusInconclusive
	s.logger.Printf("run %s: ended without a confirmed candidate", state.ID)
	return OutcomeStopped
}

func hasCompletionSignal(calls []action.Call) bool {
	for _, c := range calls {
		if c.Name == action.ResearchComplete {
			return true
		}
	}
	return false
}

// sanitize applies the plan hygiene rules in order: unknown actions out,
// fetches of rejected URLs out, verticals gated on a confirmed selection,
// the per-turn cap, the forced image probe, and finally the budget clip.
func (s *Supervisor) sanitize(state *run.RunState, proposed []action.Call) []action.Call {
	catalog := s.registry.Catalog()

	var kept []action.Call
	for _, c := range proposed {
		if !catalog.Known(c.Name) {
			state.AppendNote(fmt.Sprintf("[plan] dropped unknown action %q", c.Name))
			continue
		}
		cat := catalog.CategoryOf(c.Name)
		if cat == action.CategoryFetch && state.IsRejected(c.Arg("url")) {
			state.AppendNote(fmt.Sprintf("[plan] dropped fetch of rejected url %s", c.Arg("url")))
			continue
		}
		if cat == action.CategoryVertical && state.SelectedCandidate == nil {
			state.AppendNote(fmt.Sprintf("[plan] dropped %s: vertical checks wait for a confirmed candidate", c.Name))
			continue
		}
		kept = append(kept, c)
	}

	kept = s.capPerTurn(kept)

	if state.ImageHint != "" && !state.ImageProbeDone {
		kept = injectImageProbe(kept, state.ImageHint)
	}

	return s.clipToBudget(state, kept)
}

// capPerTurn trims to the per-turn ceiling keeping at most one reflection
// and preferring broad searches over everything else when cutting.
func (s *Supervisor) capPerTurn(calls []action.Call) []action.Call {
	catalog := s.registry.Catalog()

	var reflections []action.Call
	var rest []action.Call
	for _, c := range calls {
		if catalog.CategoryOf(c.Name) == action.CategoryReflect {
			if len(reflections) == 0 {
				reflections = append(reflections, c)
			}
			continue
		}
		rest = append(rest, c)
	}

	merged := append(reflections, rest...)
	if len(merged) <= s.maxActionsPerTurn {
		return merged
	}

	slots := s.maxActionsPerTurn - len(reflections)
	var broad, other []action.Call
	for _, c := range rest {
		if catalog.CategoryOf(c.Name) == action.CategoryBroad {
			broad = append(broad, c)
		} else {
			other = append(other, c)
		}
	}
	picked := make([]action.Call, 0, s.maxActionsPerTurn)
	picked = append(picked, reflections...)
	for _, c := range append(broad, other...) {
		if len(picked)-len(reflections) >= slots {
			break
		}
		picked = append(picked, c)
	}
	return picked
}

// injectImageProbe guarantees the two canonical image lookups run on the
// first qualifying turn, whatever the oracle proposed. They ride the
// reserved sub-budget, so they sit outside the per-turn cap.
func injectImageProbe(calls []action.Call, hint string) []action.Call {
	have := map[string]bool{}
	for _, c := range calls {
		if c.Arg("url") == hint {
			have[c.Name] = true
		}
	}
	var probe []action.Call
	for _, name := range []string{action.ReverseImageSearch, action.VisualLensSearch} {
		if !have[name] {
			probe = append(probe, action.Call{Name: name, Args: map[string]string{"url": hint}})
		}
	}
	return append(probe, calls...)
}

// clipToBudget drops calls the budget cannot cover. Image actions draw from
// the reserved pool first while the probe is pending; everything else draws
// from the general pool.
func (s *Supervisor) clipToBudget(state *run.RunState, calls []action.Call) []action.Call {
	catalog := s.registry.Catalog()
	reserve := state.ImageHint != "" && !state.ImageProbeDone
	imagePool, generalPool := s.tracker.Split(state.BudgetUsed, reserve)

	var out []action.Call
	for _, c := range calls {
		cost := catalog.CostOf(c.Name)
		if cost == 0 {
			out = append(out, c)
			continue
		}
		if catalog.CategoryOf(c.Name) == action.CategoryImage && imagePool >= cost {
			imagePool -= cost
			out = append(out, c)
			continue
		}
		if generalPool >= cost {
			generalPool -= cost
			out = append(out, c)
			continue
		}
		state.AppendNote(fmt.Sprintf("[plan] dropped %s: budget exhausted", c.Name))
	}
	return out
}

// dispatch runs the image wave, latches the probe, then runs everything
// else. Units are charged when a call is attempted, never refunded, and all
// failures come back as result values.
func (s *Supervisor) dispatch(ctx context.Context, state *run.RunState, calls []action.Call) []action.Result {
	catalog := s.registry.Catalog()

	var imageWave, mainWave []action.Call
	for _, c := range calls {
		if catalog.CategoryOf(c.Name) == action.CategoryImage {
			imageWave = append(imageWave, c)
		} else {
			mainWave = append(mainWave, c)
		}
	}

	var results []action.Result
	results = append(results, s.runWave(ctx, state, imageWave)...)
	if len(imageWave) > 0 {
		state.ImageProbeDone = true
	}
	results = append(results, s.runWave(ctx, state, mainWave)...)
	return results
}

// runWave charges and launches one wave. Charging happens sequentially
// before the fan-out so the budget invariant holds regardless of scheduling.
func (s *Supervisor) runWave(ctx context.Context, state *run.RunState, wave []action.Call) []action.Result {
	catalog := s.registry.Catalog()

	var attempted []action.Call
	for _, c := range wave {
		next, err := s.tracker.Charge(state.BudgetUsed, catalog.CostOf(c.Name))
		if err != nil {
			state.AppendNote(fmt.Sprintf("[plan] skipped %s: %v", c.Name, err))
			continue
		}
		if spent := next - state.BudgetUsed; spent > 0 {
			telemetry.BudgetSpent.Add(float64(spent))
		}
		state.BudgetUsed = next
		attempted = append(attempted, c)
	}

	results := make([]action.Result, len(attempted))
	g := new(errgroup.Group)
	for i, c := range attempted {
		i, c := i, c
		g.Go(func() error {
			t0 := time.Now()
			cctx, cancel := context.WithTimeout(ctx, s.actionTimeout)
			defer cancel()
			results[i] = s.registry.Dispatch(cctx, c)
			telemetry.ObserveAction(c.Name, string(catalog.CategoryOf(c.Name)), results[i].Failed(), time.Since(t0))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// hasChaseableURL reports whether this turn's results hold any URL that has
// not been rejected. Only fresh results count: a lead quoted in some earlier
// note was either chased already or abandoned.
func hasChaseableURL(state *run.RunState, turnNotes []string) bool {
	for _, u := range extract.URLsInNotes(turnNotes) {
		if !state.IsRejected(u) {
			return true
		}
	}
	return false
}

func pauseReason(d judge.Decision) string {
	switch {
	case d.Diagnostics.CalibrationFailed:
		return "calibration"
	case d.WinnerIndex < 0:
		return "no_winner"
	case d.Diagnostics.PositionBiasRate > 0:
		return "position_bias"
	default:
		return "low_confidence"
	}
}
