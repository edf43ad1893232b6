package policy

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// FieldError is one policy validation failure, tied to the offending field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every validation failure found in one pass, so
// a user can fix all problems at once instead of replaying fail-fast errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.String()
	}
	return fmt.Sprintf("policy: validation failed with %d error(s): %s",
		len(e.Errors), strings.Join(msgs, "; "))
}

// Validate checks a merged policy against the schema rules. It collects
// every error before failing and returns a *ValidationError if any exist.
func Validate(cfg *Config) error {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Version != SupportedVersion {
		add("version", "unsupported schema version %d (supported: %d)", cfg.Version, SupportedVersion)
	}

	validateProfile(&errs, "profiles.strict", cfg.Profiles.Strict)
	validateProfile(&errs, "profiles.standard", cfg.Profiles.Standard)
	validateProfile(&errs, "profiles.lenient", cfg.Profiles.Lenient)

	switch cfg.DefaultProfile {
	case ProfileStrict, ProfileStandard, ProfileLenient:
	default:
		add("default_profile", "must be one of strict, standard, lenient (got %q)", cfg.DefaultProfile)
	}

	for i, req := range cfg.RequiredEvidence {
		field := fmt.Sprintf("required_evidence[%d]", i)
		if req.Context.Empty() {
			add(field+".context", "must specify at least one of paths, behaviors, tags")
		}
		if len(req.EvidenceTypes) == 0 {
			add(field+".evidence_types", "must be non-empty")
		}
		for _, et := range req.EvidenceTypes {
			if !knownEvidenceType(et) {
				add(field+".evidence_types", "unknown evidence type %q", et)
			}
		}
		if req.Severity != SeverityError && req.Severity != SeverityWarning {
			add(field+".severity", "must be error or warning (got %q)", req.Severity)
		}
	}

	for i, exc := range cfg.Exceptions {
		field := fmt.Sprintf("exceptions[%d]", i)
		if exc.ID == "" {
			add(field+".id", "must be non-empty")
		}
		if strings.TrimSpace(exc.Justification) == "" {
			add(field+".justification", "must be non-empty")
		}
		if exc.ExpiresAt == "" {
			add(field+".expires_at", "must be set")
		} else if _, err := ParseExpiry(exc.ExpiresAt); err != nil {
			add(field+".expires_at", "not a parseable ISO date: %q", exc.ExpiresAt)
		}
	}

	validateScoring(&errs, cfg.Scoring)

	if len(errs) > 0 {
		return eris.Wrap(&ValidationError{Errors: errs}, "policy")
	}
	return nil
}

func validateProfile(errs *[]FieldError, field string, p ThresholdProfile) {
	if p.MinTrustScore < 0 || p.MinTrustScore > 100 {
		*errs = append(*errs, FieldError{
			Field:   field + ".min_trust_score",
			Message: fmt.Sprintf("must be within [0,100] (got %d)", p.MinTrustScore),
		})
	}
	if p.MinConfidence < 0 || p.MinConfidence > 100 {
		*errs = append(*errs, FieldError{
			Field:   field + ".min_confidence",
			Message: fmt.Sprintf("must be within [0,100] (got %d)", p.MinConfidence),
		})
	}
	if p.ScoreFloor < 0 || p.ScoreFloor > 100 {
		*errs = append(*errs, FieldError{
			Field:   field + ".score_floor",
			Message: fmt.Sprintf("must be within [0,100] (got %d)", p.ScoreFloor),
		})
	}
	if p.ScoreFloor > p.MinTrustScore {
		*errs = append(*errs, FieldError{
			Field:   field + ".score_floor",
			Message: fmt.Sprintf("must not exceed min_trust_score (%d > %d)", p.ScoreFloor, p.MinTrustScore),
		})
	}
	if p.MinTests < 0 {
		*errs = append(*errs, FieldError{
			Field:   field + ".min_tests",
			Message: "must be >= 0",
		})
	}
}

func validateScoring(errs *[]FieldError, s ScoringConfig) {
	add := func(field, format string, args ...any) {
		*errs = append(*errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	var sum float64
	for cat, w := range s.CategoryWeights {
		if !cat.Valid() {
			add("scoring.category_weights", "unknown category %q", cat)
		}
		if w < 0 {
			add("scoring.category_weights", "%s weight must be >= 0 (got %g)", cat, w)
		}
		sum += w
	}
	if len(s.CategoryWeights) > 0 && sum <= 0 {
		add("scoring.category_weights", "weights must sum to a positive number")
	}

	for cat, floor := range s.CategoryFloors {
		if !cat.Valid() {
			add("scoring.category_floors", "unknown category %q", cat)
		}
		if floor < 0 || floor > 100 {
			add("scoring.category_floors", "%s floor must be within [0,100] (got %d)", cat, floor)
		}
	}

	if s.UnknownPenalty < 0 || s.UnknownPenalty > 1 {
		add("scoring.unknown_penalty", "must be within [0,1] (got %g)", s.UnknownPenalty)
	}
	cc := s.ChaosCoverage
	for name, w := range map[string]float64{
		"injection_types": cc.InjectionTypes,
		"scenarios":       cc.Scenarios,
		"behaviors":       cc.Behaviors,
	} {
		if w < 0 || w > 1 {
			add("scoring.chaos_coverage."+name, "must be within [0,1] (got %g)", w)
		}
	}
	if s.RegressionWindow <= 0 {
		add("scoring.regression_window", "must be > 0 (got %d)", s.RegressionWindow)
	}
	if s.RegressionDelta < 0 {
		add("scoring.regression_delta", "must be >= 0 (got %g)", s.RegressionDelta)
	}
}

func knownEvidenceType(t string) bool {
	for _, known := range EvidenceTypes {
		if t == known {
			return true
		}
	}
	return false
}
