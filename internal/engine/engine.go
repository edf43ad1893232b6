// Package engine orchestrates one gate run: normalize evidence, aggregate
// categories, compose the score, decide the verdict, and record history.
package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trustgate/internal/aggregate"
	"github.com/sells-group/trustgate/internal/evidence"
	"github.com/sells-group/trustgate/internal/history"
	"github.com/sells-group/trustgate/internal/model"
	"github.com/sells-group/trustgate/internal/policy"
	"github.com/sells-group/trustgate/internal/verdict"
)

// Options configure an Engine. Everything is explicit: there is no
// process-wide default history path or profile.
type Options struct {
	Policy  *policy.Config
	Profile string // profile name; empty means the policy's default
	Store   history.Store
	// RecordHistory controls whether the run is appended to history.
	RecordHistory bool
}

// Engine runs the scoring pipeline. The pipeline itself is a pure,
// synchronous computation over in-memory data; the only I/O is the history
// store consulted before (trend) and after (persistence) the run.
type Engine struct {
	policy      *policy.Config
	profile     policy.ThresholdProfile
	profileName string
	store       history.Store
	record      bool
}

// Result is the full outcome of one run.
type Result struct {
	Report      model.TrustReport
	Entry       model.TrustHistoryEntry
	Regression  history.Regression
	PriorRuns   int
	ProfileName string
}

// New validates the options and builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Policy == nil {
		return nil, eris.New("engine: policy is required")
	}
	name := opts.Profile
	if name == "" {
		name = opts.Policy.DefaultProfile
	}
	profile, ok := opts.Policy.Profiles.ByName(name)
	if !ok {
		return nil, eris.Errorf("engine: unknown profile %q", name)
	}
	if opts.RecordHistory && opts.Store == nil {
		return nil, eris.New("engine: history store is required when recording history")
	}
	return &Engine{
		policy:      opts.Policy,
		profile:     profile,
		profileName: name,
		store:       opts.Store,
		record:      opts.RecordHistory,
	}, nil
}

// Run executes the pipeline over already-normalized clause results.
func (e *Engine) Run(ctx context.Context, results []model.ClauseResult, meta model.RunMetadata) (*Result, error) {
	now := meta.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	categories := aggregate.ScoreCategories(results, e.policy.Scoring.UnknownPenalty)
	score, categories := aggregate.Compose(categories, e.policy.Scoring.CategoryWeights)

	report := verdict.Decide(verdict.Input{
		Score:      score,
		Categories: categories,
		Results:    results,
		Policy:     e.policy,
		Profile:    e.profile,
		Metadata:   meta,
		Now:        now,
	})

	res := &Result{
		Report:      report,
		ProfileName: e.profileName,
	}

	categoryScores := make(map[model.TrustCategory]int, len(categories))
	for _, cs := range categories {
		categoryScores[cs.Category] = cs.Score
	}
	res.Entry = model.TrustHistoryEntry{
		Score:             report.Score,
		Verdict:           report.Verdict,
		Timestamp:         now,
		CategoryScores:    categoryScores,
		EvidenceBreakdown: evidence.Breakdown(results),
		Counts:            evidence.CountStatuses(results),
		CommitHash:        meta.CommitHash,
	}

	if e.store != nil {
		fingerprint, err := history.ComputeFingerprint(meta.ProjectRoot)
		if err != nil {
			// History must never block a run.
			zap.L().Warn("engine: fingerprint unavailable, skipping history",
				zap.String("project_root", meta.ProjectRoot),
				zap.Error(err),
			)
			return res, nil
		}
		res.Entry.Fingerprint = fingerprint

		prior, err := e.store.Load(ctx, fingerprint)
		if err != nil {
			zap.L().Warn("engine: history load failed, continuing without trend",
				zap.Error(err),
			)
		}
		res.PriorRuns = len(prior)
		res.Regression = history.DetectRegression(
			prior, report.Score,
			e.policy.Scoring.RegressionWindow,
			e.policy.Scoring.RegressionDelta,
		)

		if e.record {
			if err := e.store.Append(ctx, res.Entry); err != nil {
				zap.L().Warn("engine: history append failed", zap.Error(err))
			}
		}
	}

	return res, nil
}
