package supervisor

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/sleuth/internal/budget"
	"github.com/mohammad-safakhou/sleuth/internal/run"
	"github.com/mohammad-safakhou/sleuth/internal/telemetry"
	"github.com/mohammad-safakhou/sleuth/provider"
)

// StartRequest is the caller's description of what to investigate.
type StartRequest struct {
	Text      string `json:"text"`
	ImageHint string `json:"image_hint,omitempty"`
}

var imageURLRe = regexp.MustCompile(`(?i)https?://\S+\.(?:jpg|jpeg|png|gif|webp)(?:\?\S*)?`)

const briefSystemPrompt = `You turn a user's investigation request into a short research brief: what entity to identify, the known constraints, and what would count as confirmation. Respond with the brief as plain text, three sentences at most.`

// Controller owns the run lifecycle: it creates runs, drives the turn loop,
// snapshots after every turn and services resume and inspect requests.
type Controller struct {
	sup      *Supervisor
	store    run.Store
	tracker  *budget.Tracker
	maxTurns int

	briefLLM   provider.LLM // optional; raw text is used when nil
	briefModel string

	logger *log.Logger
}

func NewController(sup *Supervisor, store run.Store, tracker *budget.Tracker, maxTurns int, briefLLM provider.LLM, briefModel string) *Controller {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Controller{
		sup:        sup,
		store:      store,
		tracker:    tracker,
		maxTurns:   maxTurns,
		briefLLM:   briefLLM,
		briefModel: briefModel,
		logger:     log.New(log.Writer(), "[CONTROLLER] ", log.LstdFlags),
	}
}

// Start creates a run and drives it until it pauses or terminates.
func (c *Controller) Start(ctx context.Context, req StartRequest) (*run.RunState, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("start request needs text")
	}

	hint := req.ImageHint
	if hint == "" {
		hint = imageURLRe.FindString(req.Text)
	}

	state := &run.RunState{
		ID:        uuid.NewString(),
		Brief:     c.buildBrief(ctx, req.Text),
		ImageHint: hint,
		Status:    run.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.Save(ctx, state); err != nil {
		return nil, err
	}
	c.logger.Printf("run %s started (image hint: %v)", state.ID, hint != "")
	return c.drive(ctx, state)
}

// Resume continues a paused run. selection is the index into the paused
// candidate list; nil means the human rejected all of them.
func (c *Controller) Resume(ctx context.Context, id string, selection *int) (*run.RunState, error) {
	state, err := c.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !state.AwaitingHuman {
		return nil, run.ErrNotAwaiting
	}

	if selection != nil {
		if *selection < 0 || *selection >= len(state.Candidates) {
			return nil, fmt.Errorf("selection %d out of range (have %d candidates)", *selection, len(state.Candidates))
		}
		chosen := state.Candidates[*selection]
		// explicit human choice may replace an earlier selection; the run
		// keeps going so the vertical checks can verify the pick
		state.SelectedCandidate = &chosen
		state.AwaitingHuman = false
		state.HumanQuestion = ""
		state.Status = run.StatusRunning
		state.AppendNote(fmt.Sprintf("[human] confirmed %q", chosen.Name))
		if err := c.store.Save(ctx, state); err != nil {
			return nil, err
		}
		c.logger.Printf("run %s resumed: human confirmed %q, continuing", id, chosen.Name)
		return c.drive(ctx, state)
	}

	// rejection of the whole slate: every proposed URL joins the rejected
	// set so it cannot resurface, and the search continues
	for _, cand := range state.Candidates {
		state.Reject(cand.URL)
	}
	state.Candidates = nil
	state.AwaitingHuman = false
	state.HumanQuestion = ""
	state.Status = run.StatusRunning
	state.AppendNote("[human] rejected all candidates")
	if err := c.store.Save(ctx, state); err != nil {
		return nil, err
	}
	c.logger.Printf("run %s resumed: all candidates rejected, continuing", id)
	return c.drive(ctx, state)
}

// Inspect returns the latest snapshot. Legal at any time, including while
// the run is paused.
func (c *Controller) Inspect(ctx context.Context, id string) (*run.RunState, error) {
	return c.store.Load(ctx, id)
}

// drive loops turns until a pause or a terminal status, snapshotting after
// every turn so a crash resumes from the last completed turn.
func (c *Controller) drive(ctx context.Context, state *run.RunState) (*run.RunState, error) {
	for state.TurnCount < c.maxTurns {
		outcome := c.sup.Turn(ctx, state)
		if err := c.store.Save(ctx, state); err != nil {
			return nil, err
		}
		switch outcome {
		case OutcomeContinue:
			if c.tracker.Remaining(state.BudgetUsed) == 0 {
				if state.SelectedCandidate != nil {
					return c.finish(ctx, state, run.StatusCompleted, "budget exhausted after selection")
				}
				return c.finish(ctx, state, run.StatusInconclusive, "budget exhausted without a verdict")
			}
		case OutcomeAwaitingHuman:
			telemetry.RunsTotal.WithLabelValues(string(run.StatusAwaitingHuman)).Inc()
			return state, nil
		case OutcomeCompleted, OutcomeStopped:
			telemetry.RunsTotal.WithLabelValues(string(state.Status)).Inc()
			return state, nil
		}
	}
	if state.SelectedCandidate != nil {
		return c.finish(ctx, state, run.StatusCompleted, "turn limit reached after selection")
	}
	return c.finish(ctx, state, run.StatusInconclusive, "turn limit reached without a verdict")
}

func (c *Controller) finish(ctx context.Context, state *run.RunState, status run.Status, why string) (*run.RunState, error) {
	state.Status = status
	state.AppendNote("[controller] " + why)
	telemetry.RunsTotal.WithLabelValues(string(status)).Inc()
	if err := c.store.Save(ctx, state); err != nil {
		return nil, err
	}
	c.logger.Printf("run %s finished %s: %s", state.ID, status, why)
	return state, nil
}

func (c *Controller) buildBrief(ctx context.Context, text string) string {
	if c.briefLLM == nil {
		return text
	}
	brief, err := c.briefLLM.Generate(ctx, c.briefModel, briefSystemPrompt, text)
	if err != nil || strings.TrimSpace(brief) == "" {
		c.logger.Printf("brief building failed, using raw text: %v", err)
		return text
	}
	return strings.TrimSpace(brief)
}
