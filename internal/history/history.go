// Package history is the data-access boundary for the analytics
// engines: price observations, sale outcomes and user transaction
// snapshots. The engines only ever read; writes come from ingestion
// jobs and account bookkeeping outside the analytics core.
package history

import (
	"context"
	"time"

	"github.com/mavuno/sokoscope/internal/model"
)

// PriceReader supplies ordered price observations.
type PriceReader interface {
	// ObservationsSince returns observations for a commodity on or
	// after since, ordered by date ascending. An empty region widens
	// the query to the whole platform. An empty market selects the
	// representative market (the one with the most recorded rows).
	ObservationsSince(ctx context.Context, commodity, region, market string, since time.Time) ([]model.PriceObservation, error)
}

// PriceWriter appends new observations. The corpus is append-only:
// re-ingesting an already recorded commodity x market x day row is a
// no-op, never an update.
type PriceWriter interface {
	Append(ctx context.Context, obs model.PriceObservation) error
}

// OutcomeReader supplies the historical sale-outcome corpus.
type OutcomeReader interface {
	ByCommodity(ctx context.Context, commodity string) ([]model.SaleOutcome, error)
}

// ProfileReader supplies per-user reputation inputs. Unknown users
// yield (nil, nil), not an error; the reputation engine substitutes
// its documented default profile.
type ProfileReader interface {
	ByUser(ctx context.Context, userID string) (*model.ReputationInputs, error)
}
