// Package policy collects every tunable heuristic the analytics engines
// use: grade multipliers, trend bands, tier cutoffs, score weights and
// fallback baselines. Keeping them in one table makes the pricing and
// reputation policy auditable and testable in isolation.
package policy

import (
	"sort"
	"time"

	"github.com/mavuno/sokoscope/internal/model"
)

// Trend classification.
const (
	// A week-over-week move inside +/-3% is treated as noise, not a trend.
	TrendRisingThresholdPct  = 3.0
	TrendFallingThresholdPct = -3.0

	TrendShortWindowDays = 7
	TrendLongWindowDays  = 30
)

// Cache TTLs. Entries expire by TTL only; a fresh observation does not
// evict a live entry. Staleness is traded for query cost.
const (
	TrendCacheTTL   = 30 * time.Minute
	PriceCacheTTL   = 1 * time.Hour
	SummaryCacheTTL = 15 * time.Minute
)

// Price prediction.
const (
	// Bulk lots past this size discount the per-unit recommendation.
	// The discount only ever grows with quantity, never shrinks.
	BulkThresholdKg     = 300.0
	BulkStepKg          = 500.0
	BulkStepDiscountPct = 2.0
	BulkMaxDiscountPct  = 10.0

	// Trend nudge, small enough that it can never invert grade ordering
	// (the closest grade multipliers are 25% apart).
	TrendNudgePct = 3.0

	FairRangePct = 10.0

	// Confidence grows with the number of observations behind the trend.
	ConfidenceBase   = 0.50
	ConfidencePerObs = 0.015
	ConfidenceMax    = 0.95
	ConfidenceNoData = 0.30
	QuantityBucketKg = 100.0
)

// Grade multipliers, strictly decreasing by tier.
var gradeMultipliers = map[model.Grade]float64{
	model.GradePremium: 1.30,
	model.GradeA:       1.00,
	model.GradeB:       0.75,
	model.GradeReject:  0.30,
}

// GradeMultiplier returns the price multiplier for a grade. Unknown
// grades map to 1.0; callers validate grades before pricing.
func GradeMultiplier(g model.Grade) float64 {
	if m, ok := gradeMultipliers[g]; ok {
		return m
	}
	return 1.0
}

// Success estimation.
const (
	// A comparable's listed price counts as "close" when it sits within
	// 20% of the candidate's price relative to market average.
	PriceClosenessPct = 20.0
	CloseWeight       = 3.0
	FarWeight         = 1.0

	FastSaleMaxDays        = 5
	SlowSaleMinDays        = 14
	UnlikelyProbabilityMin = 0.20

	// Cold-start defaults when no comparable exists at any stage.
	DefaultEstimatedDays = 10.0
	DefaultProbability   = 0.50

	// Listings this many times larger than the typical comparable lot
	// get a "split the listing" suggestion.
	OversizeLotFactor = 3.0

	SuccessDaysRangePct = 30.0
)

// Reputation weights (must sum to 1.0) and sub-score formulas.
const (
	WeightCompletion   = 0.40
	WeightRating       = 0.25
	WeightAccountAge   = 0.10
	WeightVerification = 0.10
	WeightResponseTime = 0.10
	WeightDisputeRate  = 0.05

	// New users get the benefit of the doubt: undefined metrics score
	// 50, not 0.
	NeutralSubScore = 50.0

	AccountAgeFullScoreDays = 365
	ResponsePenaltyPerHour  = 5.0
	ResponseScoreFloor      = 20.0
	DisputePenaltyFactor    = 2.0
)

// Tier cutoffs. Bands are exact and non-overlapping:
// [90,100] Elite, [75,90) Verified, [60,75) Trusted, [40,60) Basic, [0,40) New.
const (
	TierEliteMin    = 90
	TierVerifiedMin = 75
	TierTrustedMin  = 60
	TierBasicMin    = 40
)

const (
	TierElite    = "Elite"
	TierVerified = "Verified"
	TierTrusted  = "Trusted"
	TierBasic    = "Basic"
	TierNew      = "New"
)

// Badge thresholds.
const (
	BadgeZeroDisputesMinDeals = 5
	BadgeDealMilestoneBronze  = 10
	BadgeDealMilestoneSilver  = 50
	BadgeDealMilestoneGold    = 100
	BadgeTopRatedMinRating    = 4.5
	BadgeTopRatedMinCount     = 10
	BadgeVeteranMinDays       = 365
	BadgeQuickReplyMaxHours   = 2.0
)

// Market summary.
const (
	SummaryHotColdLimit   = 3
	SummaryMaxInsights    = 3
	ReputationMaxInsights = 3
)

// DefaultRegion is the platform-wide scope used when a request carries
// no region.
const DefaultRegion = "nationwide"

// baselineWholesale holds per-kg KES reference averages used when a
// commodity has no recorded history at all. The key set doubles as the
// supported-commodity enumeration.
var baselineWholesale = map[string]float64{
	"tomato":  80,
	"onion":   90,
	"potato":  55,
	"cabbage": 40,
	"kale":    50,
	"spinach": 70,
	"carrot":  60,
	"maize":   45,
	"banana":  65,
	"mango":   85,
	"avocado": 110,
	"orange":  75,
	"pepper":  120,
}

// SupportedCommodity reports whether the platform trades this commodity.
func SupportedCommodity(name string) bool {
	_, ok := baselineWholesale[name]
	return ok
}

// BaselinePrice returns the static reference price for a commodity.
// The second return is false for unsupported commodities.
func BaselinePrice(name string) (float64, bool) {
	p, ok := baselineWholesale[name]
	return p, ok
}

// Commodities returns the supported commodity set in stable order.
func Commodities() []string {
	out := make([]string, 0, len(baselineWholesale))
	for name := range baselineWholesale {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
