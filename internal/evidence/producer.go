package evidence

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/trustgate/internal/model"
)

// ErrProducerUnavailable marks a producer that could not run at all.
// Callers must treat this as an explicit failure, never as an empty batch.
var ErrProducerUnavailable = eris.New("evidence: producer unavailable")

// Producer is the fixed interface every verification tier implements.
// The engine depends on this structurally; there is no conditional loading
// of tiers, and a tier that cannot run returns ErrProducerUnavailable.
type Producer interface {
	// Name identifies the producer in logs and errors.
	Name() string
	// Source is the evidence source used when a record omits its own.
	Source() model.EvidenceSource
	// Produce returns the raw clause results for this tier.
	Produce(ctx context.Context) ([]RawResult, error)
}

// Collect runs every producer, normalizes each batch, and returns the
// combined canonical results. Producers run concurrently; the downstream
// scoring pipeline stays synchronous. Any producer failure fails the
// collection: a silently missing tier would skew category weights.
func Collect(ctx context.Context, producers ...Producer) ([]model.ClauseResult, error) {
	batches := make([][]model.ClauseResult, len(producers))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range producers {
		g.Go(func() error {
			raw, err := p.Produce(ctx)
			if err != nil {
				return eris.Wrapf(err, "evidence: producer %s", p.Name())
			}
			batches[i] = Normalize(raw, p.Source())
			zap.L().Debug("evidence: producer collected",
				zap.String("producer", p.Name()),
				zap.Int("results", len(batches[i])),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined []model.ClauseResult
	for _, b := range batches {
		combined = append(combined, b...)
	}
	// Stable ordering keeps reports and history deterministic regardless of
	// producer completion order.
	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].Category != combined[j].Category {
			return combined[i].Category < combined[j].Category
		}
		return combined[i].ID < combined[j].ID
	})
	return combined, nil
}
