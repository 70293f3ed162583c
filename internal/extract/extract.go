// Package extract turns heterogeneous action results into a ranked,
// deduplicated candidate list.
package extract

import (
	"context"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/sleuth/internal/action"
	"github.com/mohammad-safakhou/sleuth/internal/run"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// title suffixes search engines append, stripped before using a title
	// as a candidate name
	titleSepRe = regexp.MustCompile(`\s+[|\-–—]\s+[^|\-–—]{2,40}$`)
)

var socialHosts = []string{
	"instagram.com",
	"facebook.com",
	"linkedin.com",
	"twitter.com",
	"x.com",
	"tiktok.com",
	"youtube.com",
}

// TopUp is an optional oracle that proposes extra candidates from
// unstructured note text. Its output merges through the same dedup as the
// structural pass and can only add, never replace.
type TopUp interface {
	Extract(ctx context.Context, brief string, notes []string) ([]run.Candidate, error)
}

type Extractor struct {
	topUp  TopUp
	logger *log.Logger
}

func New(topUp TopUp) *Extractor {
	return &Extractor{
		topUp:  topUp,
		logger: log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags),
	}
}

// Extract runs the structural pass over the turn's results, then the
// optional top-up, returning the deduplicated candidate set in rank order.
// Rejected URLs are dropped before dedup so they cannot shadow fresh
// candidates with the same name.
func (e *Extractor) Extract(ctx context.Context, state *run.RunState, results []action.Result) []run.Candidate {
	type ranked struct {
		cand  run.Candidate
		score int
	}

	var all []ranked
	for _, res := range results {
		if res.Failed() {
			continue
		}
		for pos, rec := range res.Records {
			c, ok := candidateFromRecord(rec)
			if !ok {
				continue
			}
			if state.IsRejected(c.URL) {
				continue
			}
			score := 100 - pos
			if isSocialURL(c.URL) {
				// profile pages usually identify the entity directly
				score += 50
			}
			all = append(all, ranked{cand: c, score: score})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	seen := make(map[string]bool)
	var out []run.Candidate
	for _, r := range all {
		key := r.cand.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r.cand)
	}

	if e.topUp != nil {
		extra, err := e.topUp.Extract(ctx, state.Brief, state.Notes)
		if err != nil {
			e.logger.Printf("top-up failed, keeping structural candidates: %v", err)
		}
		for _, c := range extra {
			key := c.Key()
			if key == "" || seen[key] || state.IsRejected(c.URL) {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}

func candidateFromRecord(rec action.Record) (run.Candidate, bool) {
	name := cleanTitle(rec.Title)
	if name == "" && rec.Link == "" {
		return run.Candidate{}, false
	}
	rationale := strings.TrimSpace(rec.Snippet)
	if emails := emailRe.FindAllString(rec.Snippet, 3); len(emails) > 0 {
		rationale += " (contact: " + strings.Join(emails, ", ") + ")"
	}
	if isSocialURL(rec.Link) {
		rationale = strings.TrimSpace(rationale + " [social profile]")
	}
	return run.Candidate{Name: name, URL: rec.Link, Rationale: rationale}, true
}

func cleanTitle(title string) string {
	t := strings.TrimSpace(title)
	for i := 0; i < 2; i++ {
		t = strings.TrimSpace(titleSepRe.ReplaceAllString(t, ""))
	}
	return t
}

func isSocialURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, s := range socialHosts {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// URLsInNotes pulls every http(s) URL out of the note log. The supervisor
// uses this for its stop valve: a run with no candidates and no URLs left to
// chase cannot make progress.
var urlRe = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)

func URLsInNotes(notes []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range notes {
		for _, u := range urlRe.FindAllString(n, -1) {
			u = strings.TrimRight(u, ".,;")
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}
