// Package chaos scores the fault-injection tier's results and converts them
// into a clause batch for the category aggregator. It illustrates the same
// score-then-gate pattern one level below the overall trust gate.
package chaos

import (
	"fmt"
	"math"
	"time"

	"github.com/sells-group/trustgate/internal/evidence"
	"github.com/sells-group/trustgate/internal/policy"
)

// TierVerdict is the chaos tier's local gate decision.
type TierVerdict string

const (
	VerdictVerified TierVerdict = "verified"
	VerdictRisky    TierVerdict = "risky"
	VerdictUnsafe   TierVerdict = "unsafe"
)

// ScenarioResult is one fault-injection scenario outcome as reported by the
// external chaos runner.
type ScenarioResult struct {
	Name      string    `json:"name"`
	Outcome   string    `json:"outcome"` // passed, failed, skipped
	Injection string    `json:"injection,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	RanAt     time.Time `json:"ran_at,omitempty"`
}

// Coverage summarizes how much of the fault space the run exercised.
// Each dimension is a ratio in [0,1].
type Coverage struct {
	InjectionTypes float64 `json:"injection_types"`
	Scenarios      float64 `json:"scenarios"`
	Behaviors      float64 `json:"behaviors"`
	Overall        float64 `json:"overall"`
}

// Summary is the chaos runner's aggregate input to tier evaluation.
type Summary struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Coverage  Coverage         `json:"coverage"`
}

// TierResult is the evaluated chaos tier: its 0-100 score, local verdict,
// and composed coverage.
type TierResult struct {
	Score    int         `json:"score"`
	Verdict  TierVerdict `json:"verdict"`
	Coverage Coverage    `json:"coverage"`
	Passed   int         `json:"passed"`
	Failed   int         `json:"failed"`
	Skipped  int         `json:"skipped"`
}

// Evaluate scores the chaos tier. Coverage composition weights come from
// policy (defaults 0.3 injection types, 0.5 scenarios, 0.2 behaviors):
//
//	coverage.overall = wi*injectionTypes + ws*scenarios + wb*behaviors
//	score            = round(100 * (passed + 0.5*skipped) / total)
//
// Verdict: verified when nothing failed and score >= 80; unsafe when
// something failed and score < 50; risky otherwise.
func Evaluate(sum Summary, weights policy.ChaosCoverageWeights) TierResult {
	r := TierResult{Coverage: sum.Coverage}
	for _, s := range sum.Scenarios {
		switch s.Outcome {
		case "passed":
			r.Passed++
		case "failed":
			r.Failed++
		default:
			r.Skipped++
		}
	}

	r.Coverage.Overall = weights.InjectionTypes*sum.Coverage.InjectionTypes +
		weights.Scenarios*sum.Coverage.Scenarios +
		weights.Behaviors*sum.Coverage.Behaviors

	total := r.Passed + r.Failed + r.Skipped
	if total > 0 {
		r.Score = int(math.Round(100 * (float64(r.Passed) + 0.5*float64(r.Skipped)) / float64(total)))
	}

	switch {
	case r.Failed == 0 && r.Score >= 80:
		r.Verdict = VerdictVerified
	case r.Failed > 0 && r.Score < 50:
		r.Verdict = VerdictUnsafe
	default:
		r.Verdict = VerdictRisky
	}
	return r
}

// ClauseBatch converts the tier's scenarios into raw clause results for the
// evidence normalizer, all under the chaos category. Passed scenarios map to
// pass, failed to fail, and skipped to partial so they keep the same
// half-credit weight the tier score gives them.
func ClauseBatch(sum Summary, tier TierResult) []evidence.RawResult {
	confidence := int(math.Round(tier.Coverage.Overall * 100))
	out := make([]evidence.RawResult, 0, len(sum.Scenarios))
	for _, s := range sum.Scenarios {
		status := "partial"
		switch s.Outcome {
		case "passed":
			status = "pass"
		case "failed":
			status = "fail"
		}
		msg := s.Detail
		if msg == "" {
			msg = fmt.Sprintf("chaos scenario %s (%s injection): %s", s.Name, s.Injection, s.Outcome)
		}
		out = append(out, evidence.RawResult{
			ID:             "chaos/" + s.Name,
			Category:       "chaos",
			Status:         status,
			Confidence:     &confidence,
			EvidenceSource: "runtime",
			Message:        msg,
		})
	}
	return out
}
