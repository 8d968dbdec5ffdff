// Package trend derives rising/stable/falling classifications from the
// price-observation corpus. Snapshots are recomputed on demand and
// cached for 30 minutes per commodity+region.
package trend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/mavuno/sokoscope/internal/cache"
	"github.com/mavuno/sokoscope/internal/history"
	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/policy"
)

// Calculator computes trend snapshots. It reads farmgate (wholesale)
// prices: that is the price a farmer's recommendation is anchored on.
type Calculator struct {
	prices history.PriceReader
	cache  cache.Store
	log    zerolog.Logger
	now    func() time.Time
}

// NewCalculator creates a trend calculator.
func NewCalculator(prices history.PriceReader, store cache.Store, log zerolog.Logger) *Calculator {
	return &Calculator{
		prices: prices,
		cache:  store,
		log:    log.With().Str("component", "trend").Logger(),
		now:    time.Now,
	}
}

// Classify maps a week-over-week percent change onto a trend. The
// +/-3% band keeps day-to-day noise from flapping the classification.
func Classify(changePct float64) model.Trend {
	switch {
	case changePct > policy.TrendRisingThresholdPct:
		return model.TrendRising
	case changePct < policy.TrendFallingThresholdPct:
		return model.TrendFalling
	default:
		return model.TrendStable
	}
}

// Snapshot returns the trend for a commodity in a region (empty region
// means the platform-wide scope). Commodities with no recorded history
// fall back to the static baseline price and a STABLE classification;
// an unsupported commodity is the only error case.
func (c *Calculator) Snapshot(ctx context.Context, commodity, region string) (*model.TrendSnapshot, error) {
	baseline, ok := policy.BaselinePrice(commodity)
	if !ok {
		return nil, fmt.Errorf("unsupported commodity %q", commodity)
	}

	scope := region
	if scope == "" {
		scope = policy.DefaultRegion
	}

	key := cache.TrendKey(commodity, scope)
	var cached model.TrendSnapshot
	if hit, err := c.cache.Get(key, &cached); err == nil && hit {
		return &cached, nil
	} else if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed, recomputing")
	}

	snap, err := c.compute(ctx, commodity, region, scope, baseline)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(key, snap, policy.TrendCacheTTL); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return snap, nil
}

func (c *Calculator) compute(ctx context.Context, commodity, region, scope string, baseline float64) (*model.TrendSnapshot, error) {
	queryRegion := region
	if queryRegion == policy.DefaultRegion {
		queryRegion = ""
	}

	now := c.now()
	// A week of slack past the long window so "nearest to 30 days
	// prior" can resolve to a slightly older observation.
	since := now.AddDate(0, 0, -(policy.TrendLongWindowDays + 7))

	obs, err := c.prices.ObservationsSince(ctx, commodity, queryRegion, "", since)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}

	if len(obs) == 0 {
		// Graceful degradation: a plausible default beats an error on
		// this read path.
		return &model.TrendSnapshot{
			Commodity:     commodity,
			Region:        scope,
			CurrentPrice:  baseline,
			WeekAgoPrice:  baseline,
			MonthAgoPrice: baseline,
			Trend:         model.TrendStable,
			PercentChange: 0,
			Observations:  0,
			DataQuality:   model.QualityDefault,
		}, nil
	}

	current := latestOnOrBefore(obs, now)
	weekAgo := nearest(obs, now.AddDate(0, 0, -policy.TrendShortWindowDays))
	monthAgo := nearest(obs, now.AddDate(0, 0, -policy.TrendLongWindowDays))

	change := 0.0
	if weekAgo.Wholesale > 0 {
		change = (current.Wholesale - weekAgo.Wholesale) / weekAgo.Wholesale * 100
	}

	quality := model.QualityComputed
	if len(obs) < 3 {
		quality = model.QualityEstimated
	}

	return &model.TrendSnapshot{
		Commodity:     commodity,
		Region:        scope,
		CurrentPrice:  current.Wholesale,
		WeekAgoPrice:  weekAgo.Wholesale,
		MonthAgoPrice: monthAgo.Wholesale,
		Trend:         Classify(change),
		PercentChange: round2(change),
		Observations:  len(obs),
		DataQuality:   quality,
	}, nil
}

// latestOnOrBefore returns the most recent observation not after
// target. Observations arrive date-ascending.
func latestOnOrBefore(obs []model.PriceObservation, target time.Time) model.PriceObservation {
	for i := len(obs) - 1; i >= 0; i-- {
		if !obs[i].Date.After(target) {
			return obs[i]
		}
	}
	return obs[0]
}

// nearest picks the observation closest in time to target.
// Observations may be missing for any given day, so nearest-available
// wins over exact-date.
func nearest(obs []model.PriceObservation, target time.Time) model.PriceObservation {
	best := obs[0]
	bestDist := absDuration(obs[0].Date.Sub(target))
	for _, o := range obs[1:] {
		if d := absDuration(o.Date.Sub(target)); d < bestDist {
			best = o
			bestDist = d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
