package judge

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/sleuth/internal/run"
)

// Markers that make a case harder or riskier than its length suggests.
var (
	mathMarkers   = regexp.MustCompile(`(?i)integral|matrix|proof|theorem|sum|log|probability|bayes|gradient`)
	codeMarkers   = regexp.MustCompile(`def |class |function |import |SELECT |FROM |WHERE `)
	safetyMarkers = regexp.MustCompile(`(?i)harm|illegal|danger|self-harm|biosecurity|weapon`)
	bioMarkers    = regexp.MustCompile(`(?i)clinical|trial|dosage|oncolog|cardio|symptom|diagnos`)
)

// Per-feature weights for the difficulty score. Math and code markers are
// tracked but currently weightless; safety and biomedical cases get a bump so
// stronger evaluators win the seats.
const (
	weightBriefLen  = 0.0005
	weightNumCands  = 0.03
	weightMath      = 0.0
	weightCode      = 0.0
	weightSafety    = 0.02
	weightBioHealth = 0.02
	routerBias      = -0.05
)

type caseFeatures struct {
	briefLen    int
	numCands    int
	hasMath     bool
	hasCode     bool
	isSafety    bool
	isBioHealth bool
}

func extractFeatures(brief string, candidates []run.Candidate, aspectHint string) caseFeatures {
	return caseFeatures{
		briefLen:    len(brief),
		numCands:    len(candidates),
		hasMath:     mathMarkers.MatchString(brief),
		hasCode:     codeMarkers.MatchString(brief),
		isSafety:    safetyMarkers.MatchString(brief) || strings.EqualFold(aspectHint, "safety"),
		isBioHealth: bioMarkers.MatchString(brief),
	}
}

// caseDifficulty is a linear score over the extracted features.
func caseDifficulty(f caseFeatures) float64 {
	d := weightBriefLen*float64(f.briefLen) + weightNumCands*float64(f.numCands) + routerBias
	if f.hasMath {
		d += weightMath
	}
	if f.hasCode {
		d += weightCode
	}
	if f.isSafety {
		d += weightSafety
	}
	if f.isBioHealth {
		d += weightBioHealth
	}
	return d
}

// route picks which evaluators sit on this decision. Disabled (the default)
// means the whole committee judges. Enabled, each evaluator gets a linear
// score: capability scaled by case difficulty, minus a cost penalty; the top
// K by score are kept, ties resolved by listed order.
func (e *Engine) route(brief string, candidates []run.Candidate, notes []string, aspectHint string) []Evaluator {
	if !e.cfg.EnableRouter || len(e.evaluators) <= e.cfg.RouterTopK {
		return e.evaluators
	}

	difficulty := caseDifficulty(extractFeatures(brief, candidates, aspectHint))

	type scored struct {
		ev    Evaluator
		score float64
		order int
	}
	rows := make([]scored, len(e.evaluators))
	for i, ev := range e.evaluators {
		capability := 1.0
		if c, ok := ev.(Capability); ok {
			capability = c.Capability()
		}
		rows[i] = scored{
			ev:    ev,
			score: capability*difficulty - e.cfg.CostCoefficient*ev.CostWeight(),
			order: i,
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].order < rows[j].order
	})

	out := make([]Evaluator, 0, e.cfg.RouterTopK)
	for _, r := range rows[:e.cfg.RouterTopK] {
		out = append(out, r.ev)
	}
	return out
}

// calibrate asks each selected evaluator an unambiguous control question and
// reports whether a majority got it right. A committee that cannot answer the
// control question forfeits the real decision.
func (e *Engine) calibrate(ctx context.Context, evaluators []Evaluator) bool {
	brief := "Identify the business called Blue Harbor Diner located in Portland."
	probe := []run.Candidate{
		{Name: "Blue Harbor Diner", URL: "https://blueharbordiner.example", Rationale: "diner in Portland, name matches exactly"},
		{Name: "Crimson Peak Hardware", URL: "https://crimsonpeak.example", Rationale: "hardware store, unrelated"},
	}

	correct := 0
	for _, ev := range evaluators {
		verdict, err := ev.Judge(ctx, brief, probe, nil)
		if err != nil || verdict.None {
			continue
		}
		if mapWinner(probe, verdict) == 0 {
			correct++
		}
	}
	pass := correct*2 > len(evaluators)
	if !pass {
		e.logger.Printf("calibration probe failed: %d/%d correct", correct, len(evaluators))
	}
	return pass
}
