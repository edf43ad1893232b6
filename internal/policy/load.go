package policy

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/trustgate/internal/model"
)

// Load reads and validates the policy document at path, merged over the
// built-in defaults. An empty path yields the validated defaults. A path
// that was explicitly configured but cannot be read or parsed aborts the
// run: explicit policy intent must never be silently overridden.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "policy: read %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "policy: %s", path)
	}
	zap.L().Info("policy: loaded",
		zap.String("path", path),
		zap.String("org", cfg.Org),
		zap.String("default_profile", cfg.DefaultProfile),
		zap.Int("required_evidence", len(cfg.RequiredEvidence)),
		zap.Int("exceptions", len(cfg.Exceptions)),
	)
	return cfg, nil
}

// Parse decodes a policy document, merges it field-wise over the defaults,
// and validates the result. Sections the document omits keep their default
// values independently: overriding only profiles.strict must not lose the
// default required_evidence rules.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "parse document")
	}

	cfg := merge(Default(), &raw)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// rawConfig mirrors Config with pointer fields so an omitted section or
// field is distinguishable from an explicit zero value.
type rawConfig struct {
	Version          *int                   `yaml:"version"`
	Org              *string                `yaml:"org"`
	Profiles         *rawProfiles           `yaml:"profiles"`
	DefaultProfile   *string                `yaml:"default_profile"`
	RequiredEvidence *[]EvidenceRequirement `yaml:"required_evidence"`
	Exceptions       *[]PolicyException     `yaml:"exceptions"`
	Scoring          *rawScoring            `yaml:"scoring"`
}

type rawProfiles struct {
	Strict   *rawProfile `yaml:"strict"`
	Standard *rawProfile `yaml:"standard"`
	Lenient  *rawProfile `yaml:"lenient"`
}

type rawProfile struct {
	MinTrustScore  *int  `yaml:"min_trust_score"`
	MinConfidence  *int  `yaml:"min_confidence"`
	ScoreFloor     *int  `yaml:"score_floor"`
	MinTests       *int  `yaml:"min_tests"`
	RequireFormal  *bool `yaml:"require_formal"`
	RequireRuntime *bool `yaml:"require_runtime"`
	RequirePBT     *bool `yaml:"require_pbt"`
}

type rawScoring struct {
	CategoryWeights  map[model.TrustCategory]float64 `yaml:"category_weights"`
	CategoryFloors   map[model.TrustCategory]int     `yaml:"category_floors"`
	UnknownPenalty   *float64                        `yaml:"unknown_penalty"`
	ChaosCoverage    *ChaosCoverageWeights           `yaml:"chaos_coverage"`
	RegressionWindow *int                            `yaml:"regression_window"`
	RegressionDelta  *float64                        `yaml:"regression_delta"`
}

func merge(base *Config, raw *rawConfig) *Config {
	cfg := *base

	if raw.Version != nil {
		cfg.Version = *raw.Version
	}
	if raw.Org != nil {
		cfg.Org = *raw.Org
	}
	if raw.DefaultProfile != nil {
		cfg.DefaultProfile = *raw.DefaultProfile
	}
	if raw.RequiredEvidence != nil {
		cfg.RequiredEvidence = *raw.RequiredEvidence
	}
	if raw.Exceptions != nil {
		cfg.Exceptions = *raw.Exceptions
	}
	if raw.Profiles != nil {
		cfg.Profiles.Strict = mergeProfile(cfg.Profiles.Strict, raw.Profiles.Strict)
		cfg.Profiles.Standard = mergeProfile(cfg.Profiles.Standard, raw.Profiles.Standard)
		cfg.Profiles.Lenient = mergeProfile(cfg.Profiles.Lenient, raw.Profiles.Lenient)
	}
	if raw.Scoring != nil {
		cfg.Scoring = mergeScoring(cfg.Scoring, raw.Scoring)
	}
	return &cfg
}

func mergeProfile(base ThresholdProfile, raw *rawProfile) ThresholdProfile {
	if raw == nil {
		return base
	}
	p := base
	if raw.MinTrustScore != nil {
		p.MinTrustScore = *raw.MinTrustScore
	}
	if raw.MinConfidence != nil {
		p.MinConfidence = *raw.MinConfidence
	}
	if raw.ScoreFloor != nil {
		p.ScoreFloor = *raw.ScoreFloor
	}
	if raw.MinTests != nil {
		p.MinTests = *raw.MinTests
	}
	if raw.RequireFormal != nil {
		p.RequireFormal = *raw.RequireFormal
	}
	if raw.RequireRuntime != nil {
		p.RequireRuntime = *raw.RequireRuntime
	}
	if raw.RequirePBT != nil {
		p.RequirePBT = *raw.RequirePBT
	}
	return p
}

func mergeScoring(base ScoringConfig, raw *rawScoring) ScoringConfig {
	s := base
	if raw.CategoryWeights != nil {
		s.CategoryWeights = raw.CategoryWeights
	}
	if raw.CategoryFloors != nil {
		s.CategoryFloors = raw.CategoryFloors
	}
	if raw.UnknownPenalty != nil {
		s.UnknownPenalty = *raw.UnknownPenalty
	}
	if raw.ChaosCoverage != nil {
		s.ChaosCoverage = *raw.ChaosCoverage
	}
	if raw.RegressionWindow != nil {
		s.RegressionWindow = *raw.RegressionWindow
	}
	if raw.RegressionDelta != nil {
		s.RegressionDelta = *raw.RegressionDelta
	}
	return s
}
