// Package run holds the persistent state of one investigation and the
// snapshot stores it survives restarts through.
package run

import (
	"strings"
	"time"
)

// Status is the lifecycle stage of a run.
type Status string

const (
	StatusRunning       Status = "running"
	StatusAwaitingHuman Status = "awaiting_human"
	StatusCompleted     Status = "completed"
	StatusStopped       Status = "stopped"
	StatusInconclusive  Status = "inconclusive"
)

// Candidate is one possible answer entity surfaced by extraction.
type Candidate struct {
	Name      string `json:"name"`
	URL       string `json:"url,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

// Key is the candidate's identity for dedup and rejection tracking: the URL
// when present, otherwise the lowercased name.
func (c Candidate) Key() string {
	if c.URL != "" {
		return c.URL
	}
	return strings.ToLower(c.Name)
}

// RunState is the complete, flatly serializable state of one investigation.
// Everything needed to resume lives here; nothing is derived lazily.
type RunState struct {
	ID        string `json:"id"`
	Brief     string `json:"brief"`
	ImageHint string `json:"image_hint,omitempty"`

	TurnCount  int `json:"turn_count"`
	BudgetUsed int `json:"budget_used"`

	// Notes is the append-only, ordered evidence log.
	Notes []string `json:"notes"`

	// Candidates is the current turn's deduplicated proposal set; it is
	// replaced wholesale by each turn that produces candidates.
	Candidates []Candidate `json:"candidates"`

	// RejectedURLs only grows; once a URL is rejected it stays rejected.
	RejectedURLs []string `json:"rejected_urls"`

	AwaitingHuman     bool       `json:"awaiting_human"`
	HumanQuestion     string     `json:"human_question,omitempty"`
	SelectedCandidate *Candidate `json:"selected_candidate,omitempty"`

	// ImageProbeDone latches after the first turn that attempts any image
	// action; it never resets.
	ImageProbeDone bool `json:"image_probe_done"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppendNote adds one evidence line to the log.
func (s *RunState) AppendNote(note string) {
	if strings.TrimSpace(note) == "" {
		return
	}
	s.Notes = append(s.Notes, note)
}

// IsRejected reports whether a URL has been rejected by a human.
func (s *RunState) IsRejected(url string) bool {
	if url == "" {
		return false
	}
	for _, r := range s.RejectedURLs {
		if r == url {
			return true
		}
	}
	return false
}

// Reject adds a URL to the rejection set. The set only grows.
func (s *RunState) Reject(url string) {
	if url == "" || s.IsRejected(url) {
		return
	}
	s.RejectedURLs = append(s.RejectedURLs, url)
}

// Select records the human-confirmed answer. A selection is never silently
// replaced: once set it sticks until an explicit resume changes it.
func (s *RunState) Select(c Candidate) {
	if s.SelectedCandidate != nil {
		return
	}
	cc := c
	s.SelectedCandidate = &cc
}
