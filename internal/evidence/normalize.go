// Package evidence normalizes producer-specific verification results into
// the canonical ClauseResult shape and collects batches from producers.
//
// This package is the single defensive boundary for malformed payloads:
// downstream aggregation trusts the canonical shape completely and performs
// no shape checks of its own.
package evidence

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/trustgate/internal/model"
)

// DefaultConfidence is assigned when a producer omits confidence. It is
// deliberately conservative: absent confidence must never read as certainty.
const DefaultConfidence = 30

// RawResult is the loosely-typed record a producer reports for one clause.
// Any field may be missing or carry an unrecognized value; Normalize coerces
// every field to a valid canonical value rather than dropping the record.
type RawResult struct {
	ID             string     `json:"id"`
	Category       string     `json:"category"`
	Status         string     `json:"status"`
	Confidence     *int       `json:"confidence,omitempty"`
	EvidenceSource string     `json:"evidence_source"`
	Message        string     `json:"message,omitempty"`
	ProducedAt     *time.Time `json:"produced_at,omitempty"`
}

// Batch is one producer's payload: its raw results plus run metadata.
type Batch struct {
	Producer string            `json:"producer"`
	Metadata model.RunMetadata `json:"metadata"`
	Results  []RawResult       `json:"results"`
}

// Normalize maps raw producer results into canonical ClauseResults.
// Malformed records are coerced, never dropped: a dropped record would be
// indistinguishable from "not evaluated" and would inflate the score once
// categories are counted. fallbackSource is used when a record does not name
// a recognized evidence source.
func Normalize(raw []RawResult, fallbackSource model.EvidenceSource) []model.ClauseResult {
	if !fallbackSource.Valid() {
		fallbackSource = model.SourceHeuristic
	}

	out := make([]model.ClauseResult, 0, len(raw))
	for _, r := range raw {
		cr := model.ClauseResult{
			ID:             r.ID,
			Category:       model.TrustCategory(r.Category),
			Status:         model.ClauseStatus(r.Status),
			EvidenceSource: model.EvidenceSource(r.EvidenceSource),
			Message:        r.Message,
		}

		if cr.ID == "" {
			cr.ID = uuid.New().String()
		}
		if !cr.Category.Valid() {
			if r.Category != "" {
				zap.L().Debug("evidence: unrecognized category coerced",
					zap.String("clause_id", cr.ID),
					zap.String("category", r.Category),
				)
			}
			// Default-safe fallback: postconditions carry the largest nominal
			// weight, so unattributed evidence lands where it counts most
			// conservatively.
			cr.Category = model.CategoryPostconditions
		}
		if !cr.Status.Valid() {
			cr.Status = model.StatusUnknown
		}
		if !cr.EvidenceSource.Valid() {
			cr.EvidenceSource = fallbackSource
		}

		switch {
		case r.Confidence == nil:
			cr.Confidence = DefaultConfidence
		case *r.Confidence < 0:
			cr.Confidence = 0
		case *r.Confidence > 100:
			cr.Confidence = 100
		default:
			cr.Confidence = *r.Confidence
		}

		if r.ProducedAt != nil && !r.ProducedAt.IsZero() {
			cr.ProducedAt = r.ProducedAt.UTC()
		} else {
			cr.ProducedAt = time.Now().UTC()
		}

		out = append(out, cr)
	}
	return out
}

// Breakdown counts normalized clauses per evidence source.
func Breakdown(results []model.ClauseResult) map[model.EvidenceSource]int {
	out := make(map[model.EvidenceSource]int)
	for _, r := range results {
		out[r.EvidenceSource]++
	}
	return out
}

// CountStatuses tallies clause outcomes across all categories.
func CountStatuses(results []model.ClauseResult) model.StatusCounts {
	var c model.StatusCounts
	for _, r := range results {
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
	}
	return c
}
