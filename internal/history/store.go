package history

import (
	"context"
	"math"

	"github.com/sells-group/trustgate/internal/model"
)

// Store is the persistence interface for trust history. All backends share
// the same contract: Append never rewrites or deletes prior entries, and
// Load returns only entries matching the requested fingerprint, ordered
// oldest first.
type Store interface {
	Append(ctx context.Context, entry model.TrustHistoryEntry) error
	Load(ctx context.Context, fingerprint string) ([]model.TrustHistoryEntry, error)
	Close() error
}

// Regression is the outcome of comparing the current score against the
// rolling mean of recent matching-fingerprint entries.
type Regression struct {
	HasRegression bool    `json:"has_regression"`
	CurrentScore  int     `json:"current_score"`
	AverageScore  float64 `json:"average_score"`
	Window        int     `json:"window"`
	Compared      int     `json:"compared"`
}

// DetectRegression computes the mean score over the most recent window
// entries (entries are oldest first) and flags a regression when the
// current score falls more than delta below that mean. With no prior
// entries there is nothing to regress against.
func DetectRegression(entries []model.TrustHistoryEntry, currentScore, window int, delta float64) Regression {
	if window <= 0 {
		window = 10
	}
	r := Regression{CurrentScore: currentScore, Window: window}
	if len(entries) == 0 {
		return r
	}

	start := len(entries) - window
	if start < 0 {
		start = 0
	}
	recent := entries[start:]
	sum := 0
	for _, e := range recent {
		sum += e.Score
	}
	r.Compared = len(recent)
	r.AverageScore = math.Round(float64(sum)/float64(len(recent))*100) / 100
	r.HasRegression = float64(currentScore) < r.AverageScore-delta
	return r
}
