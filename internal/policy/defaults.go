package policy

import "github.com/sells-group/trustgate/internal/model"

// Default returns the built-in policy. A run never requires a policy file;
// every section here can be overridden independently.
func Default() *Config {
	return &Config{
		Version:        SupportedVersion,
		Profiles:       DefaultProfiles(),
		DefaultProfile: ProfileStandard,
		RequiredEvidence: []EvidenceRequirement{
			{
				Context:       RequirementContext{Behaviors: []string{"(?i)payment"}, Paths: []string{"**/payments/**"}},
				EvidenceTypes: []string{"formal", "runtime"},
				Severity:      SeverityError,
				Description:   "payment paths require formal proof and runtime evidence",
			},
			{
				Context:       RequirementContext{Behaviors: []string{"(?i)auth"}, Paths: []string{"**/auth/**"}},
				EvidenceTypes: []string{"runtime", "unit"},
				Severity:      SeverityWarning,
				Description:   "auth paths require runtime and unit-test evidence",
			},
		},
		Scoring: DefaultScoring(),
	}
}

// DefaultProfiles returns the built-in strict/standard/lenient thresholds.
func DefaultProfiles() Profiles {
	return Profiles{
		Strict: ThresholdProfile{
			MinTrustScore:  95,
			MinConfidence:  80,
			ScoreFloor:     85,
			MinTests:       10,
			RequireFormal:  true,
			RequireRuntime: true,
			RequirePBT:     true,
		},
		Standard: ThresholdProfile{
			MinTrustScore:  85,
			MinConfidence:  60,
			ScoreFloor:     70,
			RequireRuntime: true,
		},
		Lenient: ThresholdProfile{
			MinTrustScore: 70,
			MinConfidence: 40,
			ScoreFloor:    50,
		},
	}
}

// DefaultScoring returns the built-in scoring constants. Nominal category
// weights sum to 1.0; the composer re-normalizes around categories with no
// evidence.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		CategoryWeights: map[model.TrustCategory]float64{
			model.CategoryPreconditions:  0.20,
			model.CategoryPostconditions: 0.30,
			model.CategoryInvariants:     0.20,
			model.CategoryTemporal:       0.10,
			model.CategoryChaos:          0.10,
			model.CategoryCoverage:       0.10,
		},
		UnknownPenalty: 0.5,
		ChaosCoverage: ChaosCoverageWeights{
			InjectionTypes: 0.3,
			Scenarios:      0.5,
			Behaviors:      0.2,
		},
		RegressionWindow: 10,
		RegressionDelta:  10,
	}
}
