// Package market builds the market-wide sentiment view: per-region
// counts of rising/falling/stable commodities, the hottest and coldest
// movers and a few headline insights. Summaries are cached for 15
// minutes per region.
package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mavuno/sokoscope/internal/cache"
	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/policy"
	"github.com/mavuno/sokoscope/internal/trend"
)

// snapshotWorkers bounds concurrent trend computations per summary.
const snapshotWorkers = 4

// Market sentiment labels.
const (
	SentimentRising  = "rising"
	SentimentFalling = "falling"
	SentimentSteady  = "steady"
)

// Summarizer aggregates trend snapshots across the supported
// commodity set.
type Summarizer struct {
	trends *trend.Calculator
	cache  cache.Store
	log    zerolog.Logger
	now    func() time.Time
}

// NewSummarizer creates a market summarizer.
func NewSummarizer(trends *trend.Calculator, store cache.Store, log zerolog.Logger) *Summarizer {
	return &Summarizer{
		trends: trends,
		cache:  store,
		log:    log.With().Str("component", "market").Logger(),
		now:    time.Now,
	}
}

// Summary returns the sentiment view for a region (empty region means
// the platform-wide scope).
func (s *Summarizer) Summary(ctx context.Context, region string) (*model.MarketSummary, error) {
	scope := region
	if scope == "" {
		scope = policy.DefaultRegion
	}

	key := cache.SummaryKey(scope)
	var cached model.MarketSummary
	if hit, err := s.cache.Get(key, &cached); err == nil && hit {
		return &cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed, recomputing")
	}

	summary, err := s.compute(ctx, region, scope)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(key, summary, policy.SummaryCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return summary, nil
}

func (s *Summarizer) compute(ctx context.Context, region, scope string) (*model.MarketSummary, error) {
	summary := &model.MarketSummary{
		Region:          scope,
		HotCommodities:  []model.CommodityMove{},
		ColdCommodities: []model.CommodityMove{},
		GeneratedAt:     s.now(),
	}

	snaps, err := s.fetchSnapshots(ctx, region)
	if err != nil {
		return nil, err
	}

	var moves []model.CommodityMove
	for _, snap := range snaps {
		switch snap.Trend {
		case model.TrendRising:
			summary.RisingCount++
		case model.TrendFalling:
			summary.FallingCount++
		default:
			summary.StableCount++
		}

		moves = append(moves, model.CommodityMove{
			Commodity:     snap.Commodity,
			PercentChange: snap.PercentChange,
			Trend:         snap.Trend,
		})
	}

	sort.Slice(moves, func(i, j int) bool { return moves[i].PercentChange > moves[j].PercentChange })
	for _, m := range moves {
		if m.Trend == model.TrendRising && len(summary.HotCommodities) < policy.SummaryHotColdLimit {
			summary.HotCommodities = append(summary.HotCommodities, m)
		}
	}
	for i := len(moves) - 1; i >= 0; i-- {
		if moves[i].Trend == model.TrendFalling && len(summary.ColdCommodities) < policy.SummaryHotColdLimit {
			summary.ColdCommodities = append(summary.ColdCommodities, moves[i])
		}
	}

	summary.Sentiment = sentiment(summary.RisingCount, summary.FallingCount)
	summary.Insights = buildInsights(summary)
	return summary, nil
}

// fetchSnapshots computes the per-commodity trend snapshots with a
// small worker pool; each snapshot may hit the database. Results come
// back in commodity order regardless of completion order.
func (s *Summarizer) fetchSnapshots(ctx context.Context, region string) ([]*model.TrendSnapshot, error) {
	commodities := policy.Commodities()
	snaps := make([]*model.TrendSnapshot, len(commodities))
	errs := make([]error, len(commodities))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < snapshotWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				snaps[i], errs[i] = s.trends.Snapshot(ctx, commodities[i], region)
			}
		}()
	}
	for i := range commodities {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("trend for %s: %w", commodities[i], err)
		}
	}
	return snaps, nil
}

func sentiment(rising, falling int) string {
	switch {
	case rising > falling:
		return SentimentRising
	case falling > rising:
		return SentimentFalling
	default:
		return SentimentSteady
	}
}

func buildInsights(s *model.MarketSummary) []string {
	out := []string{}
	add := func(msg string) {
		if len(out) < policy.SummaryMaxInsights {
			out = append(out, msg)
		}
	}

	if len(s.HotCommodities) > 0 {
		top := s.HotCommodities[0]
		add(fmt.Sprintf("%s is the week's top mover, up %.1f%%", top.Commodity, top.PercentChange))
	}
	if len(s.ColdCommodities) > 0 {
		bottom := s.ColdCommodities[0]
		add(fmt.Sprintf("%s is sliding, down %.1f%%", bottom.Commodity, -bottom.PercentChange))
	}
	switch s.Sentiment {
	case SentimentRising:
		add("more commodities rising than falling, a good week to sell")
	case SentimentFalling:
		add("more commodities falling than rising, buyers have the edge")
	default:
		add("most prices holding steady this week")
	}

	return out
}
