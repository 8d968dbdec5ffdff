package model

import "time"

// Grade is the quality tier assigned to a listing.
type Grade string

const (
	GradePremium Grade = "premium"
	GradeA       Grade = "grade-A"
	GradeB       Grade = "grade-B"
	GradeReject  Grade = "reject"
)

// Valid reports whether g is one of the supported quality tiers.
func (g Grade) Valid() bool {
	switch g {
	case GradePremium, GradeA, GradeB, GradeReject:
		return true
	}
	return false
}

// Trend is the directional classification of recent price movement.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendStable  Trend = "stable"
	TrendFalling Trend = "falling"
)

// DataQuality distinguishes results computed from real history from
// fallback defaults returned when the corpus had nothing to offer.
type DataQuality string

const (
	// QualityComputed means the result was derived from actual observations.
	QualityComputed DataQuality = "computed"
	// QualityEstimated means the result was derived from a reduced or
	// indirect data set (e.g. a comparable-search fallback stage).
	QualityEstimated DataQuality = "estimated"
	// QualityDefault means no usable data existed and the documented
	// neutral default was returned instead.
	QualityDefault DataQuality = "default"
)

// PriceObservation is one recorded market price: one row per
// commodity x market x day, append-only. Wholesale never exceeds retail.
type PriceObservation struct {
	Commodity string    `json:"commodity"`
	Region    string    `json:"region"`
	Market    string    `json:"market"`
	Date      time.Time `json:"date"`
	Wholesale float64   `json:"wholesale_price"`
	Retail    float64   `json:"retail_price"`
	Source    string    `json:"source"`
}

// TrendSnapshot is the derived view of recent price movement for a
// commodity+region pair. Recomputed on demand, cached with a TTL.
type TrendSnapshot struct {
	Commodity     string      `json:"commodity"`
	Region        string      `json:"region"`
	CurrentPrice  float64     `json:"current_price"`
	WeekAgoPrice  float64     `json:"week_ago_price"`
	MonthAgoPrice float64     `json:"month_ago_price"`
	Trend         Trend       `json:"trend"`
	PercentChange float64     `json:"percent_change"`
	Observations  int         `json:"observations"`
	DataQuality   DataQuality `json:"data_quality"`
}

// SaleOutcome is one historical listing outcome. DaysToSell is set only
// when Sold is true.
type SaleOutcome struct {
	Commodity   string    `json:"commodity"`
	Grade       Grade     `json:"grade"`
	Quantity    float64   `json:"quantity"`
	Region      string    `json:"region"`
	ListedPrice float64   `json:"listed_price"`
	MarketPrice float64   `json:"market_price"`
	DaysToSell  *int      `json:"days_to_sell,omitempty"`
	Sold        bool      `json:"sold"`
	ListedAt    time.Time `json:"listed_at"`
}

// PricePrediction is the Price Predictor's output value object.
type PricePrediction struct {
	Commodity        string      `json:"commodity"`
	Grade            Grade       `json:"grade"`
	Quantity         float64     `json:"quantity"`
	Region           string      `json:"region"`
	RecommendedPrice float64     `json:"recommended_price"`
	PriceMin         float64     `json:"price_min"`
	PriceMax         float64     `json:"price_max"`
	Confidence       float64     `json:"confidence"`
	MarketAverage    float64     `json:"market_average"`
	Trend            Trend       `json:"trend"`
	DemandLevel      string      `json:"demand_level"`
	Reasons          []string    `json:"reasons"`
	DataQuality      DataQuality `json:"data_quality"`
}

// SuccessPrediction is the Success Estimator's output value object.
type SuccessPrediction struct {
	EstimatedDays float64     `json:"estimated_days"`
	DaysMin       int         `json:"days_min"`
	DaysMax       int         `json:"days_max"`
	Probability   float64     `json:"probability"`
	Category      string      `json:"category"`
	Factors       []string    `json:"factors"`
	Suggestions   []string    `json:"suggestions"`
	Comparables   int         `json:"comparables"`
	DataQuality   DataQuality `json:"data_quality"`
}

// ReputationInputs is the per-user snapshot the Reputation Engine scores.
type ReputationInputs struct {
	UserID           string  `json:"user_id"`
	Completed        int     `json:"completed_transactions"`
	Total            int     `json:"total_transactions"`
	Disputed         int     `json:"disputed_transactions"`
	AverageRating    float64 `json:"average_rating"`
	RatingCount      int     `json:"rating_count"`
	AccountAgeDays   int     `json:"account_age_days"`
	Verified         bool    `json:"is_verified"`
	AvgResponseHours float64 `json:"avg_response_hours"`
}

// ScoreBreakdown holds the six reputation sub-scores, each in [0,100].
type ScoreBreakdown struct {
	CompletionRate float64 `json:"completion_rate"`
	Rating         float64 `json:"rating"`
	AccountAge     float64 `json:"account_age"`
	Verification   float64 `json:"verification"`
	ResponseTime   float64 `json:"response_time"`
	DisputeRate    float64 `json:"dispute_rate"`
}

// TrustScoreResult is the Reputation Engine's full output.
type TrustScoreResult struct {
	UserID      string         `json:"user_id"`
	Score       int            `json:"score"`
	Tier        string         `json:"tier"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Badges      []string       `json:"badges"`
	Insights    []string       `json:"insights"`
	DataQuality DataQuality    `json:"data_quality"`
}

// TrustSummary is the lighter projection used by list/card UI.
type TrustSummary struct {
	UserID      string  `json:"user_id"`
	Score       int     `json:"score"`
	Tier        string  `json:"tier"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
	Verified    bool    `json:"is_verified"`
}

// CommodityMove is one commodity's movement inside a market summary.
type CommodityMove struct {
	Commodity     string  `json:"commodity"`
	PercentChange float64 `json:"percent_change"`
	Trend         Trend   `json:"trend"`
}

// MarketSummary is the market-wide sentiment view for a region.
type MarketSummary struct {
	Region          string          `json:"region"`
	Sentiment       string          `json:"sentiment"`
	RisingCount     int             `json:"rising_count"`
	FallingCount    int             `json:"falling_count"`
	StableCount     int             `json:"stable_count"`
	HotCommodities  []CommodityMove `json:"hot_commodities"`
	ColdCommodities []CommodityMove `json:"cold_commodities"`
	Insights        []string        `json:"insights"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
