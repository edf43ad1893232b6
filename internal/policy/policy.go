// Package policy loads, validates, and merges the organization policy
// document that governs verdict gating, and decides exception coverage.
package policy

import (
	"time"

	"github.com/sells-group/trustgate/internal/model"
)

// SupportedVersion is the policy schema version this engine understands.
const SupportedVersion = 1

// Profile names.
const (
	ProfileStrict   = "strict"
	ProfileStandard = "standard"
	ProfileLenient  = "lenient"
)

// Severity of a required-evidence rule.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Recognized evidence types for required-evidence rules.
var EvidenceTypes = []string{"formal", "runtime", "pbt", "unit", "integration", "chaos"}

// ThresholdProfile holds the gating thresholds for one named profile.
// MinTrustScore is the clean ship bar; ScoreFloor is the hard floor below
// which the verdict is NO_SHIP regardless of other signals. Scores between
// the two yield WARN.
type ThresholdProfile struct {
	MinTrustScore  int  `yaml:"min_trust_score" json:"min_trust_score"`
	MinConfidence  int  `yaml:"min_confidence" json:"min_confidence"`
	ScoreFloor     int  `yaml:"score_floor" json:"score_floor"`
	MinTests       int  `yaml:"min_tests,omitempty" json:"min_tests,omitempty"`
	RequireFormal  bool `yaml:"require_formal,omitempty" json:"require_formal,omitempty"`
	RequireRuntime bool `yaml:"require_runtime,omitempty" json:"require_runtime,omitempty"`
	RequirePBT     bool `yaml:"require_pbt,omitempty" json:"require_pbt,omitempty"`
}

// Profiles holds the three named threshold profiles.
type Profiles struct {
	Strict   ThresholdProfile `yaml:"strict" json:"strict"`
	Standard ThresholdProfile `yaml:"standard" json:"standard"`
	Lenient  ThresholdProfile `yaml:"lenient" json:"lenient"`
}

// ByName returns the profile for a valid profile name.
func (p Profiles) ByName(name string) (ThresholdProfile, bool) {
	switch name {
	case ProfileStrict:
		return p.Strict, true
	case ProfileStandard:
		return p.Standard, true
	case ProfileLenient:
		return p.Lenient, true
	}
	return ThresholdProfile{}, false
}

// RequirementContext scopes a required-evidence rule. At least one of the
// three selectors must be non-empty.
type RequirementContext struct {
	Paths     []string `yaml:"paths,omitempty" json:"paths,omitempty"`
	Behaviors []string `yaml:"behaviors,omitempty" json:"behaviors,omitempty"`
	Tags      []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Empty reports whether no selector is set.
func (c RequirementContext) Empty() bool {
	return len(c.Paths) == 0 && len(c.Behaviors) == 0 && len(c.Tags) == 0
}

// EvidenceRequirement demands certain evidence types for matching contexts.
type EvidenceRequirement struct {
	Context       RequirementContext `yaml:"context" json:"context"`
	EvidenceTypes []string           `yaml:"evidence_types" json:"evidence_types"`
	Severity      string             `yaml:"severity" json:"severity"`
	Description   string             `yaml:"description,omitempty" json:"description,omitempty"`
}

// ExceptionScope limits what a policy exception may cover.
type ExceptionScope struct {
	Paths     []string `yaml:"paths,omitempty" json:"paths,omitempty"`
	Behaviors []string `yaml:"behaviors,omitempty" json:"behaviors,omitempty"`
	Rules     []string `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// PolicyException is a time-boxed, justified override for a known gap.
type PolicyException struct {
	ID            string         `yaml:"id" json:"id"`
	Scope         ExceptionScope `yaml:"scope" json:"scope"`
	Justification string         `yaml:"justification" json:"justification"`
	ApprovedBy    string         `yaml:"approved_by,omitempty" json:"approved_by,omitempty"`
	ExpiresAt     string         `yaml:"expires_at" json:"expires_at"`
	CreatedAt     string         `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	Active        bool           `yaml:"active" json:"active"`
}

// ValidAt reports whether the exception is active and unexpired at now.
// An unparseable expiry never grants coverage.
func (e PolicyException) ValidAt(now time.Time) bool {
	if !e.Active {
		return false
	}
	expires, err := ParseExpiry(e.ExpiresAt)
	if err != nil {
		return false
	}
	return now.Before(expires)
}

// ParseExpiry parses an ISO date or RFC 3339 timestamp. Bare dates expire at
// the end of that UTC day.
func ParseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(24 * time.Hour), nil
}

// ChaosCoverageWeights compose the chaos tier's overall coverage figure.
type ChaosCoverageWeights struct {
	InjectionTypes float64 `yaml:"injection_types" json:"injection_types"`
	Scenarios      float64 `yaml:"scenarios" json:"scenarios"`
	Behaviors      float64 `yaml:"behaviors" json:"behaviors"`
}

// ScoringConfig unifies every scoring constant into policy so nothing
// scoring-related hides in code.
type ScoringConfig struct {
	CategoryWeights  map[model.TrustCategory]float64 `yaml:"category_weights" json:"category_weights"`
	CategoryFloors   map[model.TrustCategory]int     `yaml:"category_floors,omitempty" json:"category_floors,omitempty"`
	UnknownPenalty   float64                         `yaml:"unknown_penalty" json:"unknown_penalty"`
	ChaosCoverage    ChaosCoverageWeights            `yaml:"chaos_coverage" json:"chaos_coverage"`
	RegressionWindow int                             `yaml:"regression_window" json:"regression_window"`
	RegressionDelta  float64                         `yaml:"regression_delta" json:"regression_delta"`
}

// Config is the merged, validated organization policy. It is loaded once per
// run and read-only afterwards.
type Config struct {
	Version          int                   `yaml:"version" json:"version"`
	Org              string                `yaml:"org,omitempty" json:"org,omitempty"`
	Profiles         Profiles              `yaml:"profiles" json:"profiles"`
	DefaultProfile   string                `yaml:"default_profile" json:"default_profile"`
	RequiredEvidence []EvidenceRequirement `yaml:"required_evidence" json:"required_evidence"`
	Exceptions       []PolicyException     `yaml:"exceptions" json:"exceptions"`
	Scoring          ScoringConfig         `yaml:"scoring" json:"scoring"`
}

// ActiveExceptions returns the exceptions valid at now.
func (c *Config) ActiveExceptions(now time.Time) []PolicyException {
	var out []PolicyException
	for _, e := range c.Exceptions {
		if e.ValidAt(now) {
			out = append(out, e)
		}
	}
	return out
}
