// Package testutil provides seeded factories for generating test data.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/policy"
)

// TestDataFactory provides methods for generating dynamic test data.
// The same seed always yields the same sequence.
type TestDataFactory struct {
	rand *rand.Rand
}

// NewTestDataFactory creates a new test data factory with a seeded
// random generator.
func NewTestDataFactory(seed int64) *TestDataFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TestDataFactory{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Commodity picks a supported commodity.
func (f *TestDataFactory) Commodity() string {
	all := policy.Commodities()
	return all[f.rand.Intn(len(all))]
}

// Region picks a plausible county.
func (f *TestDataFactory) Region() string {
	regions := []string{"kiambu", "nakuru", "meru", "machakos", "kisumu"}
	return regions[f.rand.Intn(len(regions))]
}

// Market picks a plausible market name.
func (f *TestDataFactory) Market() string {
	markets := []string{"wakulima", "kongowea", "marikiti", "gikomba"}
	return markets[f.rand.Intn(len(markets))]
}

// Grade picks a random quality tier.
func (f *TestDataFactory) Grade() model.Grade {
	grades := []model.Grade{model.GradePremium, model.GradeA, model.GradeB, model.GradeReject}
	return grades[f.rand.Intn(len(grades))]
}

// UserID generates a unique-ish user identifier.
func (f *TestDataFactory) UserID() string {
	return fmt.Sprintf("user-%d", f.rand.Int63())
}

// Date generates a date within the last year.
func (f *TestDataFactory) Date() time.Time {
	days := f.rand.Intn(365)
	return time.Now().AddDate(0, 0, -days)
}

// Observation generates a valid price observation around the
// commodity's baseline price.
func (f *TestDataFactory) Observation() model.PriceObservation {
	commodity := f.Commodity()
	base, _ := policy.BaselinePrice(commodity)
	wholesale := base * (0.8 + f.rand.Float64()*0.4)

	return model.PriceObservation{
		Commodity: commodity,
		Region:    f.Region(),
		Market:    f.Market(),
		Date:      f.Date(),
		Wholesale: wholesale,
		Retail:    wholesale * (1.2 + f.rand.Float64()*0.3),
		Source:    "factory",
	}
}

// Outcome generates a valid sale outcome. Roughly three in four sold.
func (f *TestDataFactory) Outcome() model.SaleOutcome {
	commodity := f.Commodity()
	base, _ := policy.BaselinePrice(commodity)

	out := model.SaleOutcome{
		Commodity:   commodity,
		Grade:       f.Grade(),
		Quantity:    float64(f.rand.Intn(900) + 100),
		Region:      f.Region(),
		ListedPrice: base * (0.8 + f.rand.Float64()*0.6),
		MarketPrice: base,
		Sold:        f.rand.Intn(4) < 3,
		ListedAt:    f.Date(),
	}
	if out.Sold {
		days := f.rand.Intn(20) + 1
		out.DaysToSell = &days
	}
	return out
}

// Profile generates reputation inputs with internally consistent
// counts (completed+disputed never exceed total).
func (f *TestDataFactory) Profile() model.ReputationInputs {
	total := f.rand.Intn(120)
	completed := 0
	if total > 0 {
		completed = f.rand.Intn(total + 1)
	}
	disputed := 0
	if completed > 0 {
		disputed = f.rand.Intn(completed/4 + 1)
	}

	return model.ReputationInputs{
		UserID:           f.UserID(),
		Completed:        completed,
		Total:            total,
		Disputed:         disputed,
		AverageRating:    1 + f.rand.Float64()*4,
		RatingCount:      f.rand.Intn(completed + 1),
		AccountAgeDays:   f.rand.Intn(1000),
		Verified:         f.rand.Intn(2) == 0,
		AvgResponseHours: f.rand.Float64() * 24,
	}
}
