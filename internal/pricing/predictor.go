// Package pricing recommends listing prices. The recommendation starts
// from the trend calculator's current market price and applies, in
// order: the grade multiplier, a bulk-quantity discount and a small
// trend nudge. The path is fully deterministic: identical inputs
// against the same data snapshot produce identical output.
package pricing

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/mavuno/sokoscope/internal/cache"
	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/policy"
	"github.com/mavuno/sokoscope/internal/trend"
)

// Predictor computes price recommendations.
type Predictor struct {
	trends *trend.Calculator
	cache  cache.Store
	log    zerolog.Logger
}

// NewPredictor creates a price predictor.
func NewPredictor(trends *trend.Calculator, store cache.Store, log zerolog.Logger) *Predictor {
	return &Predictor{
		trends: trends,
		cache:  store,
		log:    log.With().Str("component", "pricing").Logger(),
	}
}

// Request carries the listing attributes a prediction is made for.
type Request struct {
	Commodity string
	Grade     model.Grade
	Quantity  float64
	Region    string
}

// Predict returns a recommended price, a fair range and a confidence
// value for the given listing attributes. Results are cached for an
// hour per (commodity, grade, quantity bucket, region).
func (p *Predictor) Predict(ctx context.Context, req Request) (*model.PricePrediction, error) {
	if !req.Grade.Valid() {
		return nil, fmt.Errorf("unknown grade %q", req.Grade)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %.2f", req.Quantity)
	}

	scope := req.Region
	if scope == "" {
		scope = policy.DefaultRegion
	}

	bucket := int(req.Quantity / policy.QuantityBucketKg)
	key := cache.PriceKey(req.Commodity, string(req.Grade), bucket, scope)

	var cached model.PricePrediction
	if hit, err := p.cache.Get(key, &cached); err == nil && hit {
		return &cached, nil
	} else if err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("cache read failed, recomputing")
	}

	snap, err := p.trends.Snapshot(ctx, req.Commodity, req.Region)
	if err != nil {
		return nil, err
	}

	pred := p.compute(req, scope, snap)

	if err := p.cache.Put(key, pred, policy.PriceCacheTTL); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return pred, nil
}

func (p *Predictor) compute(req Request, scope string, snap *model.TrendSnapshot) *model.PricePrediction {
	base := snap.CurrentPrice
	reasons := []string{}

	if snap.DataQuality == model.QualityDefault {
		reasons = append(reasons, fmt.Sprintf("no recent market data for %s, using reference baseline", req.Commodity))
	}

	// Grade multiplier.
	price := base * policy.GradeMultiplier(req.Grade)
	switch req.Grade {
	case model.GradePremium:
		reasons = append(reasons, "premium grade commands a premium over market average")
	case model.GradeB:
		reasons = append(reasons, "grade-B produce prices below market average")
	case model.GradeReject:
		reasons = append(reasons, "reject grade sells at a deep discount")
	}

	// Bulk discount: grows with quantity past the threshold, capped,
	// never negative. Only ever lowers or holds the price.
	discountPct := bulkDiscountPct(req.Quantity)
	if discountPct > 0 {
		price *= 1 - discountPct/100
		reasons = append(reasons, fmt.Sprintf("bulk lot of %.0fkg discounted %.1f%% to move faster", req.Quantity, discountPct))
	}

	// Trend nudge. At +/-3% it is far smaller than the 25% gap between
	// adjacent grade multipliers, so it cannot reorder grades.
	demand := "moderate"
	switch snap.Trend {
	case model.TrendRising:
		price *= 1 + policy.TrendNudgePct/100
		demand = "high"
		reasons = append(reasons, fmt.Sprintf("%s is trending up this week (%+.1f%%)", req.Commodity, snap.PercentChange))
	case model.TrendFalling:
		price *= 1 - policy.TrendNudgePct/100
		demand = "low"
		reasons = append(reasons, fmt.Sprintf("%s is trending down this week (%+.1f%%)", req.Commodity, snap.PercentChange))
	}

	confidence := policy.ConfidenceNoData
	if snap.Observations > 0 {
		confidence = math.Min(policy.ConfidenceMax,
			policy.ConfidenceBase+policy.ConfidencePerObs*float64(snap.Observations))
	}

	return &model.PricePrediction{
		Commodity:        req.Commodity,
		Grade:            req.Grade,
		Quantity:         req.Quantity,
		Region:           scope,
		RecommendedPrice: round2(price),
		PriceMin:         round2(price * (1 - policy.FairRangePct/100)),
		PriceMax:         round2(price * (1 + policy.FairRangePct/100)),
		Confidence:       round2(confidence),
		MarketAverage:    round2(base),
		Trend:            snap.Trend,
		DemandLevel:      demand,
		Reasons:          reasons,
		DataQuality:      snap.DataQuality,
	}
}

// bulkDiscountPct is monotone non-decreasing in quantity and capped,
// which keeps the recommended price monotone non-increasing as lots
// grow.
func bulkDiscountPct(quantity float64) float64 {
	if quantity <= policy.BulkThresholdKg {
		return 0
	}
	pct := (quantity - policy.BulkThresholdKg) / policy.BulkStepKg * policy.BulkStepDiscountPct
	return math.Min(pct, policy.BulkMaxDiscountPct)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
