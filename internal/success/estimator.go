// Package success estimates how fast a hypothetical listing will sell
// by searching the historical sale-outcome corpus for comparable
// records. The search widens in stages: same region+commodity+grade,
// then commodity+grade anywhere, then the commodity alone, and finally
// a documented neutral default when the corpus has nothing at all.
package success

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/mavuno/sokoscope/internal/history"
	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/policy"
)

// Estimator predicts days-to-sell and sale probability.
type Estimator struct {
	outcomes history.OutcomeReader
	log      zerolog.Logger
}

// NewEstimator creates a success estimator.
func NewEstimator(outcomes history.OutcomeReader, log zerolog.Logger) *Estimator {
	return &Estimator{
		outcomes: outcomes,
		log:      log.With().Str("component", "success").Logger(),
	}
}

// Request describes the hypothetical listing.
type Request struct {
	Commodity   string
	Grade       model.Grade
	ListedPrice float64
	Quantity    float64
	Region      string
}

// Sale categories.
const (
	CategoryFast     = "fast"
	CategoryNormal   = "normal"
	CategorySlow     = "slow"
	CategoryUnlikely = "unlikely"
)

// Estimate returns a success prediction for the listing. A corpus with
// no usable records yields the documented neutral default, never an
// error.
func (e *Estimator) Estimate(ctx context.Context, req Request) (*model.SuccessPrediction, error) {
	if !req.Grade.Valid() {
		return nil, fmt.Errorf("unknown grade %q", req.Grade)
	}
	if !policy.SupportedCommodity(req.Commodity) {
		return nil, fmt.Errorf("unsupported commodity %q", req.Commodity)
	}
	if req.ListedPrice <= 0 {
		return nil, fmt.Errorf("listed price must be positive, got %.2f", req.ListedPrice)
	}

	corpus, err := e.outcomes.ByCommodity(ctx, req.Commodity)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}

	comparables, stage := selectComparables(corpus, req)
	if len(comparables) == 0 {
		return coldStartDefault(req), nil
	}

	return e.estimateFrom(req, comparables, stage), nil
}

// Fallback resolution order for the comparable search.
type stage int

const (
	stageRegionGrade stage = iota // same region + commodity + grade
	stageGrade                    // same commodity + grade, any region
	stageCommodity                // commodity alone
)

func (s stage) describe() string {
	switch s {
	case stageRegionGrade:
		return "same grade sold nearby"
	case stageGrade:
		return "same grade sold in other regions"
	default:
		return "same commodity regardless of grade"
	}
}

// selectComparables resolves the first non-empty stage.
func selectComparables(corpus []model.SaleOutcome, req Request) ([]model.SaleOutcome, stage) {
	if m := matchRegionGrade(corpus, req.Region, req.Grade); len(m) > 0 {
		return m, stageRegionGrade
	}
	if m := matchGrade(corpus, req.Grade); len(m) > 0 {
		return m, stageGrade
	}
	return corpus, stageCommodity
}

func matchRegionGrade(corpus []model.SaleOutcome, region string, grade model.Grade) []model.SaleOutcome {
	if region == "" {
		return nil
	}
	var out []model.SaleOutcome
	for _, o := range corpus {
		if o.Region == region && o.Grade == grade {
			out = append(out, o)
		}
	}
	return out
}

func matchGrade(corpus []model.SaleOutcome, grade model.Grade) []model.SaleOutcome {
	var out []model.SaleOutcome
	for _, o := range corpus {
		if o.Grade == grade {
			out = append(out, o)
		}
	}
	return out
}

func (e *Estimator) estimateFrom(req Request, comparables []model.SaleOutcome, st stage) *model.SuccessPrediction {
	marketAvg := averageMarketPrice(comparables)
	candidateRatio := 1.0
	if marketAvg > 0 {
		candidateRatio = req.ListedPrice / marketAvg
	}

	// Weighted mean of days-to-sell over sold records. Records priced
	// similarly (relative to market) to the candidate weigh more.
	var daysSum, weightSum float64
	soldCount := 0
	for _, o := range comparables {
		if o.Sold {
			soldCount++
		}
		if o.DaysToSell == nil {
			continue
		}
		w := policy.FarWeight
		if priceClose(o, candidateRatio) {
			w = policy.CloseWeight
		}
		daysSum += float64(*o.DaysToSell) * w
		weightSum += w
	}

	probability := float64(soldCount) / float64(len(comparables))

	days := policy.DefaultEstimatedDays
	if weightSum > 0 {
		days = daysSum / weightSum
	}

	quality := model.QualityComputed
	if st != stageRegionGrade {
		quality = model.QualityEstimated
	}

	factors := []string{
		fmt.Sprintf("%d comparable listings (%s)", len(comparables), st.describe()),
		fmt.Sprintf("%.0f%% of comparables sold", probability*100),
	}
	if marketAvg > 0 && candidateRatio > 1+policy.PriceClosenessPct/100 {
		factors = append(factors, "asking price sits above the comparable market average")
	}

	return &model.SuccessPrediction{
		EstimatedDays: round1(days),
		DaysMin:       daysRangeMin(days),
		DaysMax:       daysRangeMax(days),
		Probability:   round2(probability),
		Category:      categorize(days, probability),
		Factors:       factors,
		Suggestions:   suggestions(req, comparables, candidateRatio, probability),
		Comparables:   len(comparables),
		DataQuality:   quality,
	}
}

// priceClose reports whether a record's listed price, relative to the
// market price at its listing time, sits within the closeness band of
// the candidate's relative price.
func priceClose(o model.SaleOutcome, candidateRatio float64) bool {
	if o.MarketPrice <= 0 || candidateRatio <= 0 {
		return false
	}
	recordRatio := o.ListedPrice / o.MarketPrice
	return math.Abs(recordRatio-candidateRatio)/candidateRatio <= policy.PriceClosenessPct/100
}

func categorize(days, probability float64) string {
	switch {
	case probability < policy.UnlikelyProbabilityMin:
		return CategoryUnlikely
	case days <= policy.FastSaleMaxDays:
		return CategoryFast
	case days >= policy.SlowSaleMinDays:
		return CategorySlow
	default:
		return CategoryNormal
	}
}

func suggestions(req Request, comparables []model.SaleOutcome, candidateRatio, probability float64) []string {
	out := []string{}

	if candidateRatio > 1+policy.PriceClosenessPct/100 {
		out = append(out, "listed price is above similar recent sales, consider lowering it")
	}

	if avgQty := averageQuantity(comparables); avgQty > 0 && req.Quantity > policy.OversizeLotFactor*avgQty {
		out = append(out, fmt.Sprintf("lot is much larger than typical %s listings, consider splitting it", req.Commodity))
	}

	if probability < policy.UnlikelyProbabilityMin {
		out = append(out, "similar listings rarely sold, a lower price or a busier market may help")
	}

	return out
}

func coldStartDefault(req Request) *model.SuccessPrediction {
	days := policy.DefaultEstimatedDays
	return &model.SuccessPrediction{
		EstimatedDays: days,
		DaysMin:       daysRangeMin(days),
		DaysMax:       daysRangeMax(days),
		Probability:   policy.DefaultProbability,
		Category:      categorize(days, policy.DefaultProbability),
		Factors:       []string{fmt.Sprintf("no historical sales recorded for %s yet", req.Commodity)},
		Suggestions:   []string{},
		Comparables:   0,
		DataQuality:   model.QualityDefault,
	}
}

func averageMarketPrice(records []model.SaleOutcome) float64 {
	var sum float64
	n := 0
	for _, o := range records {
		if o.MarketPrice > 0 {
			sum += o.MarketPrice
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func averageQuantity(records []model.SaleOutcome) float64 {
	var sum float64
	n := 0
	for _, o := range records {
		if o.Quantity > 0 {
			sum += o.Quantity
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func daysRangeMin(days float64) int {
	min := int(math.Floor(days * (1 - policy.SuccessDaysRangePct/100)))
	if min < 1 {
		min = 1
	}
	return min
}

func daysRangeMax(days float64) int {
	return int(math.Ceil(days * (1 + policy.SuccessDaysRangePct/100)))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
