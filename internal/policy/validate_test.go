package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Version = 99
	cfg.DefaultProfile = "mystery"
	cfg.Profiles.Strict.MinTrustScore = 150
	cfg.Profiles.Lenient.MinConfidence = -1
	cfg.RequiredEvidence = append(cfg.RequiredEvidence, EvidenceRequirement{
		// Empty context, empty types, bad severity: three more errors.
		Severity: "fatal",
	})
	cfg.Exceptions = []PolicyException{
		{Scope: ExceptionScope{Paths: []string{"a/**"}}, ExpiresAt: "not-a-date"},
	}

	err := Validate(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "aggregate validation error expected")

	fields := make(map[string]bool)
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["version"])
	assert.True(t, fields["default_profile"])
	assert.True(t, fields["profiles.strict.min_trust_score"])
	assert.True(t, fields["profiles.lenient.min_confidence"])
	assert.True(t, fields["required_evidence[2].context"])
	assert.True(t, fields["required_evidence[2].evidence_types"])
	assert.True(t, fields["required_evidence[2].severity"])
	assert.True(t, fields["exceptions[0].id"])
	assert.True(t, fields["exceptions[0].justification"])
	assert.True(t, fields["exceptions[0].expires_at"])
	assert.GreaterOrEqual(t, len(verr.Errors), 10, "every problem reported in one pass")
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	cfg := Default()
	cfg.Version = 2
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestValidate_ScoringBounds(t *testing.T) {
	cfg := Default()
	cfg.Scoring.UnknownPenalty = 1.5
	cfg.Scoring.RegressionWindow = 0
	cfg.Scoring.RegressionDelta = -1
	cfg.Scoring.ChaosCoverage.Scenarios = 2

	err := Validate(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make(map[string]bool)
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["scoring.unknown_penalty"])
	assert.True(t, fields["scoring.regression_window"])
	assert.True(t, fields["scoring.regression_delta"])
	assert.True(t, fields["scoring.chaos_coverage.scenarios"])
}

func TestValidate_FloorAboveThreshold(t *testing.T) {
	cfg := Default()
	cfg.Profiles.Standard.ScoreFloor = 90
	cfg.Profiles.Standard.MinTrustScore = 85
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed min_trust_score")
}

func TestValidate_UnknownEvidenceType(t *testing.T) {
	cfg := Default()
	cfg.RequiredEvidence = []EvidenceRequirement{{
		Context:       RequirementContext{Tags: []string{"payments"}},
		EvidenceTypes: []string{"vibes"},
		Severity:      SeverityError,
	}}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown evidence type "vibes"`)
}
