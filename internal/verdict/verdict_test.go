package verdict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trustgate/internal/aggregate"
	"github.com/sells-group/trustgate/internal/model"
	"github.com/sells-group/trustgate/internal/policy"
)

var decideNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func runtimeClause(id string, cat model.TrustCategory, status model.ClauseStatus, confidence int) model.ClauseResult {
	return model.ClauseResult{
		ID:             id,
		Category:       cat,
		Status:         status,
		Confidence:     confidence,
		EvidenceSource: model.SourceRuntime,
	}
}

// score runs the aggregation pipeline so verdict tests exercise real
// composed scores rather than hand-picked ones.
func score(t *testing.T, pol *policy.Config, results []model.ClauseResult) (int, []model.CategoryScore) {
	t.Helper()
	scores := aggregate.ScoreCategories(results, pol.Scoring.UnknownPenalty)
	total, weighted := aggregate.Compose(scores, pol.Scoring.CategoryWeights)
	return total, weighted
}

func TestDecide_AllPassShips(t *testing.T) {
	pol := policy.Default()
	results := []model.ClauseResult{
		runtimeClause("inv/balance", model.CategoryInvariants, model.StatusPass, 90),
		runtimeClause("post/persisted", model.CategoryPostconditions, model.StatusPass, 90),
		runtimeClause("pre/validated", model.CategoryPreconditions, model.StatusPass, 90),
	}
	total, weighted := score(t, pol, results)
	require.Equal(t, 100, total)

	report := Decide(Input{
		Score:      total,
		Categories: weighted,
		Results:    results,
		Policy:     pol,
		Profile:    pol.Profiles.Standard,
		Metadata:   model.RunMetadata{ImplFile: "core/ledger.go"},
		Now:        decideNow,
	})
	assert.Equal(t, model.VerdictShip, report.Verdict)
	require.NotEmpty(t, report.Reasons)
	assert.Contains(t, report.Reasons[len(report.Reasons)-1], "meets the ship threshold")
}

func TestDecide_ScoreBetweenFloorAndThresholdWarns(t *testing.T) {
	// Four passing and one failing invariant compose to 80 under the
	// standard profile, which sits between the floor (70) and the ship
	// threshold (85).
	pol := policy.Default()
	results := []model.ClauseResult{
		runtimeClause("inv/a", model.CategoryInvariants, model.StatusPass, 80),
		runtimeClause("inv/b", model.CategoryInvariants, model.StatusPass, 80),
		runtimeClause("inv/c", model.CategoryInvariants, model.StatusPass, 80),
		runtimeClause("inv/d", model.CategoryInvariants, model.StatusPass, 80),
		runtimeClause("inv/e", model.CategoryInvariants, model.StatusFail, 80),
	}
	total, weighted := score(t, pol, results)
	require.Equal(t, 80, total)

	report := Decide(Input{
		Score:      total,
		Categories: weighted,
		Results:    results,
		Policy:     pol,
		Profile:    pol.Profiles.Standard,
		Metadata:   model.RunMetadata{ImplFile: "core/ledger.go"},
		Now:        decideNow,
	})
	assert.Equal(t, model.VerdictWarn, report.Verdict)
	assert.Contains(t, report.Reasons[0], "below the ship threshold 85")
}

func TestDecide_ScoreBelowFloorNoShips(t *testing.T) {
	pol := policy.Default()
	results := []model.ClauseResult{
		runtimeClause("inv/a", model.CategoryInvariants, model.StatusPass, 80),
		runtimeClause("inv/b", model.CategoryInvariants, model.StatusFail, 80),
	}
	total, weighted := score(t, pol, results)
	require.Equal(t, 50, total)

	report := Decide(Input{
		Score:      total,
		Categories: weighted,
		Results:    results,
		Policy:     pol,
		Profile:    pol.Profiles.Standard,
		Metadata:   model.RunMetadata{ImplFile: "core/ledger.go"},
		Now:        decideNow,
	})
	assert.Equal(t, model.VerdictNoShip, report.Verdict)
	assert.Contains(t, report.Reasons[0], "below the hard floor 70")
}

func TestDecide_CategoryFloorViolationNoShips(t *testing.T) {
	pol := policy.Default()
	pol.Scoring.CategoryFloors = map[model.TrustCategory]int{
		model.CategoryInvariants: 90,
	}
	results := []model.ClauseResult{
		runtimeClause("post/a", model.CategoryPostconditions, model.StatusPass, 90),
		runtimeClause("post/b", model.CategoryPostconditions, model.StatusPass, 90),
		runtimeClause("post/c", model.CategoryPostconditions, model.StatusPass, 90),
		runtimeClause("inv/a", model.CategoryInvariants, model.StatusPass, 90),
		runtimeClause("inv/b", model.CategoryInvariants, model.StatusFail, 90),
	}
	total, weighted := score(t, pol, results)

	report := Decide(Input{
		Score:      total,
		Categories: weighted,
		Results:    results,
		Policy:     pol,
		Profile:    pol.Profiles.Lenient,
		Metadata:   model.RunMetadata{ImplFile: "core/ledger.go"},
		Now:        decideNow,
	})
	assert.Equal(t, model.VerdictNoShip, report.Verdict,
		"a category floor violation gates even when the overall score is high")
	assert.Contains(t, report.Reasons[0], "category invariants score 50 is below its floor 90")
}

func TestDecide_MissingRequiredEvidenceNoShips(t *testing.T) {
	// The default policy demands formal evidence on payment paths at
	// severity error; runtime-only evidence is not enough.
	pol := policy.Default()
	results := []model.ClauseResult{
		runtimeClause("post/charged", model.CategoryPostconditions, model.StatusPass, 90),
		runtimeClause("inv/idempotent", model.CategoryInvariants, model.StatusPass, 90),
	}
	total, weighted := score(t, pol, results)
	require.Equal(t, 100, total)

	report := Decide(Input{
		Score:      total,
		Categories: weighted,
		Results:    results,
		Policy:     pol,
		Profile:    pol.Profiles.Standard,
		Metadata:   model.RunMetadata{ImplFile: "services/payments/charge.go"},
		Now:        decideNow,
	})
	assert.Equal(t, model.VerdictNoShip, report.Verdict)
	assert.Contains(t, report.Reasons[0], "severity error")
	assert.Equal(t, 100, report.Score, "gating never rewrites the score")
}

func TestDecide_ExceptionDowngradesGapNotScore(t *testing.T) {
	pol := policy.Default()
	pol.Exceptions = []policy.PolicyException{{
		ID:            "EXC-100",
		Scope:         policy.ExceptionScope{Paths: []string{"services/payments/**"}},
		Justification: "formal proofs land next sprint",
		ExpiresAt:     "2026-06-30",
		Active:        true,
	}}
	results := []model.ClauseResult{
		runtimeClause("post/charged", model.CategoryPostconditions, model.StatusPass, 90),
		runtimeClause("inv/idempotent", model.CategoryInvariants, model.StatusPass, 90),
	}
	total, weighted := score(t, pol, results)

	report := Decide(Input{
		Score:      total,
		Categories: weighted,
		Results:    results,
		Policy:     pol,
		Profile:    pol.Profiles.Standard,
		Metadata:   model.RunMetadata{ImplFile: "services/payments/charge.go"},
		Now:        decideNow,
	})
	assert.Equal(t, model.VerdictShip, report.Verdict)
	assert.Equal(t, 100, report.Score)
	assert.Contains(t, report.Reasons[0], "covered by exception EXC-100")
}

func TestDecide_ExpiredExceptionRestoresEnforcement(t *testing.T) {
	pol := policy.Default()
	pol.Exceptions = []policy.PolicyException{{
		ID:            "EXC-100",
		Scope:         policy.ExceptionScope{Paths: []string{"services/payments/**"}},
		Justification: "formal proofs land next sprint",
		ExpiresAt:     "2026-02-01",
		Active:        true,
	}}
	results := []model.ClauseResult{
		runtimeClause("post/charged", model.CategoryPostconditions, model.StatusPass, 90),
	}
	total, weighted := score(t, pol, results)

	report := Decide(Input{
		Score:      total,
		Categories: weighted,
		Results:    results,
		Policy:     pol,
		Profile:    pol.Profiles.Standard,
		Metadata:   model.RunMetadata{ImplFile: "services/payments/charge.go"},
		Now:        decideNow,
	})
	assert.Equal(t, model.VerdictNoShip, report.Verdict)
}

func TestDecide_ProfileEvidenceRequirements(t *testing.T) {
	pol := policy.Default()
	results := []model.ClauseResult{
		runtimeClause("inv/a", model.CategoryInvariants, model.StatusPass, 90),
	}
	total, weighted := score(t, pol, results)

	report := Decide(Input{
		Score:      total,
		Categories: weighted,
		Results:    results,
		Policy:     pol,
		Profile:    pol.Profiles.Strict,
		Metadata:   model.RunMetadata{ImplFile: "core/ledger.go"},
		Now:        decideNow,
	})
	assert.Equal(t, model.VerdictNoShip, report.Verdict, "strict demands formal evidence")

	joined := ""
	for _, r := range report.Reasons {
		joined += r + "\n"
	}
	assert.Contains(t, joined, "requires formal evidence")
	assert.Contains(t, joined, "property-based evidence")
	assert.Contains(t, joined, "at least 10")
}

func TestDecide_LowConfidenceWarns(t *testing.T) {
	pol := policy.Default()
	results := []model.ClauseResult{
		runtimeClause("inv/a", model.CategoryInvariants, model.StatusPass, 30),
		runtimeClause("inv/b", model.CategoryInvariants, model.StatusPass, 30),
	}
	total, weighted := score(t, pol, results)
	require.Equal(t, 100, total)

	report := Decide(Input{
		Score:      total,
		Categories: weighted,
		Results:    results,
		Policy:     pol,
		Profile:    pol.Profiles.Standard,
		Metadata:   model.RunMetadata{ImplFile: "core/ledger.go"},
		Now:        decideNow,
	})
	assert.Equal(t, model.VerdictWarn, report.Verdict)
	assert.Contains(t, report.Reasons[0], "mean clause confidence 30")
}

func TestRender_ShipVocabularyIsCanonical(t *testing.T) {
	assert.Equal(t, "SHIP", Render(model.VerdictShip, VocabularyShip, 5))
	assert.Equal(t, "WARN", Render(model.VerdictWarn, VocabularyShip, 5))
	assert.Equal(t, "NO_SHIP", Render(model.VerdictNoShip, VocabularyShip, 5))
}

func TestRender_ProofVocabulary(t *testing.T) {
	assert.Equal(t, "PROVEN", Render(model.VerdictShip, VocabularyProof, 5))
	assert.Equal(t, "INCOMPLETE_PROOF", Render(model.VerdictWarn, VocabularyProof, 5))
	assert.Equal(t, "VIOLATED", Render(model.VerdictNoShip, VocabularyProof, 5))
}

func TestRender_NoEvidenceIsUnproven(t *testing.T) {
	assert.Equal(t, "UNPROVEN", Render(model.VerdictNoShip, VocabularyProof, 0))
	assert.Equal(t, "NO_SHIP", Render(model.VerdictNoShip, VocabularyShip, 0),
		"the ship vocabulary has no unproven term")
}
