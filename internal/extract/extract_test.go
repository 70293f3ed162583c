package extract

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mohammad-safakhou/sleuth/internal/action"
	"github.com/mohammad-safakhou/sleuth/internal/run"
)

func results(records ...action.Record) []action.Result {
	return []action.Result{{Call: action.Call{Name: action.WebSearch}, Records: records}}
}

func TestDedupFirstSeenWins(t *testing.T) {
	e := New(nil)
	state := &run.RunState{}
	out := e.Extract(context.Background(), state, results(
		action.Record{Title: "Acme Lodge", Link: "https://acme.example", Snippet: "first sighting"},
		action.Record{Title: "Acme Lodge Again", Link: "https://acme.example", Snippet: "later duplicate"},
		action.Record{Title: "acme lodge"}, // no URL, distinct key
	))
	if len(out) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(out), out)
	}
	if out[0].Rationale != "first sighting" {
		t.Fatalf("first seen did not win: %+v", out[0])
	}
}

// Extracting twice over the same results yields the same set.
func TestDedupIdempotent(t *testing.T) {
	e := New(nil)
	state := &run.RunState{}
	recs := results(
		action.Record{Title: "A", Link: "https://a.example", Snippet: "s"},
		action.Record{Title: "B", Link: "https://b.example", Snippet: "s"},
	)
	first := e.Extract(context.Background(), state, recs)
	second := e.Extract(context.Background(), state, recs)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestRejectedURLsDroppedBeforeDedup(t *testing.T) {
	e := New(nil)
	state := &run.RunState{}
	state.Reject("https://rejected.example")
	out := e.Extract(context.Background(), state, results(
		action.Record{Title: "Rejected One", Link: "https://rejected.example", Snippet: "no"},
		action.Record{Title: "Rejected One", Link: "https://fresh.example", Snippet: "yes"},
	))
	if len(out) != 1 || out[0].URL != "https://fresh.example" {
		t.Fatalf("rejected URL handling wrong: %+v", out)
	}
}

func TestSocialPromotionAndEmailRationale(t *testing.T) {
	e := New(nil)
	state := &run.RunState{}
	out := e.Extract(context.Background(), state, results(
		action.Record{Title: "Plain Result", Link: "https://plain.example", Snippet: "nothing special"},
		action.Record{Title: "Acme on Instagram", Link: "https://www.instagram.com/acme", Snippet: "book at acme@lodge.example"},
	))
	if len(out) != 2 {
		t.Fatalf("got %d candidates", len(out))
	}
	if out[0].URL != "https://www.instagram.com/acme" {
		t.Fatalf("social profile not promoted: %+v", out)
	}
	if want := "book at acme@lodge.example (contact: acme@lodge.example) [social profile]"; out[0].Rationale != want {
		t.Fatalf("rationale = %q", out[0].Rationale)
	}
}

func TestTitleCleaning(t *testing.T) {
	got := cleanTitle("Acme Lodge - Official Site | TripAdvisor")
	if got != "Acme Lodge" {
		t.Fatalf("cleanTitle = %q", got)
	}
}

type fakeTopUp struct {
	cands []run.Candidate
	err   error
}

func (f fakeTopUp) Extract(context.Context, string, []string) ([]run.Candidate, error) {
	return f.cands, f.err
}

func TestTopUpIsAdditiveOnly(t *testing.T) {
	e := New(fakeTopUp{cands: []run.Candidate{
		{Name: "Structural", URL: "https://a.example", Rationale: "would overwrite"},
		{Name: "Novel", URL: "https://novel.example"},
	}})
	state := &run.RunState{}
	out := e.Extract(context.Background(), state, results(
		action.Record{Title: "Structural", Link: "https://a.example", Snippet: "original"},
	))
	if len(out) != 2 {
		t.Fatalf("got %d candidates", len(out))
	}
	if out[0].Rationale != "original" {
		t.Fatalf("top-up replaced a structural candidate: %+v", out[0])
	}
	if out[1].URL != "https://novel.example" {
		t.Fatalf("top-up addition missing: %+v", out)
	}
}

func TestTopUpFailureKeepsStructural(t *testing.T) {
	e := New(fakeTopUp{err: errors.New("model unavailable")})
	state := &run.RunState{}
	out := e.Extract(context.Background(), state, results(
		action.Record{Title: "A", Link: "https://a.example"},
	))
	if len(out) != 1 {
		t.Fatalf("structural candidates lost on top-up failure: %+v", out)
	}
}

func TestURLsInNotes(t *testing.T) {
	urls := URLsInNotes([]string{
		"saw https://a.example/page, also https://b.example.",
		"repeat https://a.example/page",
		"no links here",
	})
	want := []string{"https://a.example/page", "https://b.example"}
	if !reflect.DeepEqual(urls, want) {
		t.Fatalf("URLsInNotes = %v, want %v", urls, want)
	}
}
