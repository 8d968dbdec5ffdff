package testutil

import (
	"testing"

	"github.com/mavuno/sokoscope/internal/policy"
)

func TestFactory_Deterministic(t *testing.T) {
	a := NewTestDataFactory(42)
	b := NewTestDataFactory(42)

	for i := 0; i < 10; i++ {
		if a.Commodity() != b.Commodity() {
			t.Fatal("Same seed must yield the same commodity sequence")
		}
	}
}

func TestFactory_ObservationIsValid(t *testing.T) {
	f := NewTestDataFactory(7)

	for i := 0; i < 100; i++ {
		obs := f.Observation()
		if !policy.SupportedCommodity(obs.Commodity) {
			t.Errorf("Unsupported commodity %q", obs.Commodity)
		}
		if obs.Wholesale <= 0 || obs.Retail < obs.Wholesale {
			t.Errorf("Invalid prices: wholesale %.2f retail %.2f", obs.Wholesale, obs.Retail)
		}
	}
}

func TestFactory_OutcomeInvariant(t *testing.T) {
	f := NewTestDataFactory(7)

	for i := 0; i < 100; i++ {
		out := f.Outcome()
		if out.Sold && out.DaysToSell == nil {
			t.Error("Sold outcome missing days to sell")
		}
		if !out.Sold && out.DaysToSell != nil {
			t.Error("Unsold outcome carries days to sell")
		}
	}
}

func TestFactory_ProfileCountsConsistent(t *testing.T) {
	f := NewTestDataFactory(7)

	for i := 0; i < 100; i++ {
		p := f.Profile()
		if p.Completed > p.Total {
			t.Errorf("Completed %d exceeds total %d", p.Completed, p.Total)
		}
		if p.Disputed > p.Completed && p.Disputed > 0 {
			t.Errorf("Disputed %d exceeds completed %d", p.Disputed, p.Completed)
		}
		if p.AverageRating < 1 || p.AverageRating > 5 {
			t.Errorf("Rating %.2f outside [1,5]", p.AverageRating)
		}
	}
}
