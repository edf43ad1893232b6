// Package verdict maps a composed trust score, category scores, and policy
// thresholds to a final gate decision with human-readable reasons.
package verdict

import (
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/trustgate/internal/model"
	"github.com/sells-group/trustgate/internal/policy"
)

// Input carries everything the decider needs for one run. The decider holds
// no state across runs; every verdict is computed fresh.
type Input struct {
	Score      int
	Categories []model.CategoryScore
	Results    []model.ClauseResult
	Policy     *policy.Config
	Profile    policy.ThresholdProfile
	Metadata   model.RunMetadata
	Now        time.Time
}

// Decide computes the final verdict. Decision rules, in order of severity:
//
//   - NO_SHIP: a category floor is violated, an uncovered error-severity
//     required-evidence rule is unmet, or score < the profile's score floor.
//   - WARN: score is below the profile's min_trust_score (but at or above
//     the floor), an uncovered warning-severity rule is unmet, mean clause
//     confidence is below min_confidence, or the clause count is below
//     min_tests.
//   - SHIP: otherwise.
//
// Every contributing rule appends one reason, so the verdict is explainable
// without re-deriving it. Exceptions downgrade gating for the gaps they
// cover; they never change the score or category breakdown.
func Decide(in Input) model.TrustReport {
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	report := model.TrustReport{
		Score:      in.Score,
		Categories: in.Categories,
	}

	var noShip, warn bool
	reason := func(format string, args ...any) {
		report.Reasons = append(report.Reasons, fmt.Sprintf(format, args...))
	}

	// Category floors.
	for _, cs := range in.Categories {
		floor, ok := in.Policy.Scoring.CategoryFloors[cs.Category]
		if ok && cs.Score < floor {
			noShip = true
			reason("category %s score %d is below its floor %d", cs.Category, cs.Score, floor)
		}
	}

	// Required evidence.
	active := in.Policy.ActiveExceptions(in.Now)
	for _, req := range in.Policy.RequiredEvidence {
		if !requirementApplies(req, in) {
			continue
		}
		missing := missingEvidenceTypes(req, in.Results)
		if len(missing) == 0 {
			continue
		}
		gap := policy.Gap{
			Path:        in.Metadata.ImplFile,
			Behavior:    firstBehaviorMatch(req, in.Results),
			Rule:        req.Description,
			Severity:    req.Severity,
			Description: req.Description,
		}
		if exc := policy.FindCovering(active, gap, in.Now); exc != nil {
			reason("required evidence %v missing but covered by exception %s (expires %s)",
				missing, exc.ID, exc.ExpiresAt)
			continue
		}
		switch req.Severity {
		case policy.SeverityError:
			noShip = true
			reason("required evidence %v missing (severity error): %s", missing, describe(req))
		default:
			warn = true
			reason("required evidence %v missing (severity warning): %s", missing, describe(req))
		}
	}

	// Profile-level evidence requirements.
	breakdown := sourceBreakdown(in.Results)
	if in.Profile.RequireFormal && breakdown[model.SourceFormal] == 0 {
		noShip = true
		reason("profile requires formal evidence but none was supplied")
	}
	if in.Profile.RequireRuntime && breakdown[model.SourceRuntime] == 0 {
		noShip = true
		reason("profile requires runtime evidence but none was supplied")
	}
	if in.Profile.RequirePBT && !hasPBTEvidence(in.Results) {
		warn = true
		reason("profile requires property-based evidence but none was identified")
	}

	// Score thresholds.
	switch {
	case in.Score < in.Profile.ScoreFloor:
		noShip = true
		reason("score %d is below the hard floor %d", in.Score, in.Profile.ScoreFloor)
	case in.Score < in.Profile.MinTrustScore:
		warn = true
		reason("score %d is below the ship threshold %d", in.Score, in.Profile.MinTrustScore)
	}

	// Confidence and volume checks are advisory: confidence never feeds the
	// score formula, only the gate.
	if mc := meanConfidence(in.Results); len(in.Results) > 0 && mc < in.Profile.MinConfidence {
		warn = true
		reason("mean clause confidence %d is below the profile minimum %d", mc, in.Profile.MinConfidence)
	}
	if in.Profile.MinTests > 0 && len(in.Results) < in.Profile.MinTests {
		warn = true
		reason("%d clause results supplied, profile requires at least %d", len(in.Results), in.Profile.MinTests)
	}

	switch {
	case noShip:
		report.Verdict = model.VerdictNoShip
	case warn:
		report.Verdict = model.VerdictWarn
	default:
		report.Verdict = model.VerdictShip
		reason("score %d meets the ship threshold %d with no policy gaps", in.Score, in.Profile.MinTrustScore)
	}

	zap.L().Info("verdict: decided",
		zap.Int("score", report.Score),
		zap.String("verdict", string(report.Verdict)),
		zap.Int("reasons", len(report.Reasons)),
	)
	return report
}

// requirementApplies reports whether a required-evidence rule's context
// matches this run: any context path against the implementation file, or
// any behavior pattern against a clause ID. Tags apply when run metadata
// cannot refute them; a tag-only context always applies.
func requirementApplies(req policy.EvidenceRequirement, in Input) bool {
	for _, p := range req.Context.Paths {
		if in.Metadata.ImplFile != "" && policy.MatchPath(p, in.Metadata.ImplFile) {
			return true
		}
	}
	for _, b := range req.Context.Behaviors {
		re, err := regexp.Compile(b)
		if err != nil {
			continue
		}
		for _, r := range in.Results {
			if re.MatchString(r.ID) {
				return true
			}
		}
	}
	if len(req.Context.Paths) == 0 && len(req.Context.Behaviors) == 0 && len(req.Context.Tags) > 0 {
		return true
	}
	return false
}

// missingEvidenceTypes returns the required types with no supporting
// clause results.
func missingEvidenceTypes(req policy.EvidenceRequirement, results []model.ClauseResult) []string {
	var missing []string
	for _, et := range req.EvidenceTypes {
		if !typeSatisfied(et, results) {
			missing = append(missing, et)
		}
	}
	return missing
}

// typeSatisfied maps the policy's richer evidence-type vocabulary onto the
// canonical sources: formal demands formal-source evidence, chaos demands
// chaos-category evidence, and the remaining executed-test flavors (runtime,
// unit, integration, pbt) are satisfied by runtime-source evidence.
func typeSatisfied(evidenceType string, results []model.ClauseResult) bool {
	for _, r := range results {
		switch evidenceType {
		case "formal":
			if r.EvidenceSource == model.SourceFormal {
				return true
			}
		case "chaos":
			if r.Category == model.CategoryChaos {
				return true
			}
		default:
			if r.EvidenceSource == model.SourceRuntime {
				return true
			}
		}
	}
	return false
}

func firstBehaviorMatch(req policy.EvidenceRequirement, results []model.ClauseResult) string {
	for _, b := range req.Context.Behaviors {
		re, err := regexp.Compile(b)
		if err != nil {
			continue
		}
		for _, r := range results {
			if re.MatchString(r.ID) {
				return r.ID
			}
		}
	}
	return ""
}

func describe(req policy.EvidenceRequirement) string {
	if req.Description != "" {
		return req.Description
	}
	return fmt.Sprintf("context %+v", req.Context)
}

func sourceBreakdown(results []model.ClauseResult) map[model.EvidenceSource]int {
	out := make(map[model.EvidenceSource]int)
	for _, r := range results {
		out[r.EvidenceSource]++
	}
	return out
}

// hasPBTEvidence looks for runtime evidence attributable to property-based
// testing. Producers tag such clauses via their ID or message.
var pbtMarker = regexp.MustCompile(`(?i)\b(pbt|property)`)

func hasPBTEvidence(results []model.ClauseResult) bool {
	for _, r := range results {
		if r.EvidenceSource != model.SourceRuntime {
			continue
		}
		if pbtMarker.MatchString(r.ID) || pbtMarker.MatchString(r.Message) {
			return true
		}
	}
	return false
}

func meanConfidence(results []model.ClauseResult) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / len(results)
}
