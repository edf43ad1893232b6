// Package aggregate groups clause results by category and composes the
// weighted 0-100 trust score.
package aggregate

import (
	"math"

	"github.com/sells-group/trustgate/internal/model"
)

// ScoreCategories computes a per-category score for every category with at
// least one clause. Categories with zero clauses are omitted entirely (never
// scored as zero); Compose re-normalizes weights around the omission.
//
// score = round(100 * (pass + 0.5*partial + (1-unknownPenalty)*unknown) / total)
//
// fail contributes zero. Partial always counts as half credit regardless of
// confidence; confidence is display-only so the formula stays deterministic
// and auditable. unknownPenalty is clamped to [0,1].
func ScoreCategories(results []model.ClauseResult, unknownPenalty float64) []model.CategoryScore {
	unknownPenalty = clamp01(unknownPenalty)

	byCategory := make(map[model.TrustCategory]model.StatusCounts)
	for _, r := range results {
		c := byCategory[r.Category]
		switch r.Status {
		case model.StatusPass:
			c.Pass++
		case model.StatusFail:
			c.Fail++
		case model.StatusPartial:
			c.Partial++
		default:
			c.Unknown++
		}
		byCategory[r.Category] = c
	}

	var scores []model.CategoryScore
	for _, cat := range model.Categories {
		counts, ok := byCategory[cat]
		if !ok || counts.Total() == 0 {
			continue
		}
		credit := float64(counts.Pass) +
			0.5*float64(counts.Partial) +
			(1-unknownPenalty)*float64(counts.Unknown)
		score := int(math.Round(100 * credit / float64(counts.Total())))
		scores = append(scores, model.CategoryScore{
			Category: cat,
			Score:    clampScore(score),
			Counts:   counts,
		})
	}
	return scores
}

// Compose combines category scores into a single 0-100 trust score using the
// given nominal weights. Weights of categories absent from scores are
// redistributed proportionally across the present ones, so effective weights
// always sum to 1.0 and scores stay comparable across projects with
// differing evidence coverage. The returned slice carries the effective
// weight per category.
func Compose(scores []model.CategoryScore, nominal map[model.TrustCategory]float64) (int, []model.CategoryScore) {
	if len(scores) == 0 {
		return 0, nil
	}

	var presentSum float64
	for _, s := range scores {
		presentSum += nominal[s.Category]
	}
	if presentSum <= 0 {
		// No configured weight covers any present category; fall back to
		// equal weighting so evidence is never silently discarded.
		equal := 1.0 / float64(len(scores))
		out := make([]model.CategoryScore, len(scores))
		var total float64
		for i, s := range scores {
			s.Weight = equal
			out[i] = s
			total += equal * float64(s.Score)
		}
		return clampScore(int(math.Round(total))), out
	}

	out := make([]model.CategoryScore, len(scores))
	var total float64
	for i, s := range scores {
		s.Weight = nominal[s.Category] / presentSum
		out[i] = s
		total += s.Weight * float64(s.Score)
	}
	return clampScore(int(math.Round(total))), out
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
