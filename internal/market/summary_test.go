package market

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mavuno/sokoscope/internal/cache"
	"github.com/mavuno/sokoscope/internal/history"
	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/trend"
)

func seedPair(t *testing.T, store *history.MemoryStore, commodity, region string, weekAgo, current float64) {
	t.Helper()
	now := time.Now().UTC()
	obs := []model.PriceObservation{
		{Commodity: commodity, Region: region, Market: "wakulima", Date: now.AddDate(0, 0, -7),
			Wholesale: weekAgo, Retail: weekAgo * 1.5, Source: "test"},
		{Commodity: commodity, Region: region, Market: "wakulima", Date: now,
			Wholesale: current, Retail: current * 1.5, Source: "test"},
	}
	for _, o := range obs {
		if err := store.Append(context.Background(), o); err != nil {
			t.Fatalf("seed %s: %v", commodity, err)
		}
	}
}

func newTestSummarizer(store *history.MemoryStore) *Summarizer {
	calc := trend.NewCalculator(store, cache.Noop{}, zerolog.Nop())
	return NewSummarizer(calc, cache.NewMemory(), zerolog.Nop())
}

func TestSummary_CountsAndSentimentSteady(t *testing.T) {
	store := history.NewMemoryStore()
	seedPair(t, store, "tomato", "kiambu", 100, 110) // +10%, rising
	seedPair(t, store, "onion", "kiambu", 100, 90)   // -10%, falling
	seedPair(t, store, "potato", "kiambu", 55, 56)   // +1.8%, stable

	summary, err := newTestSummarizer(store).Summary(context.Background(), "kiambu")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if summary.RisingCount != 1 {
		t.Errorf("Expected 1 rising, got %d", summary.RisingCount)
	}
	if summary.FallingCount != 1 {
		t.Errorf("Expected 1 falling, got %d", summary.FallingCount)
	}
	// The rest of the commodity set has no data and defaults to stable.
	if summary.StableCount != 11 {
		t.Errorf("Expected 11 stable, got %d", summary.StableCount)
	}
	if summary.Sentiment != SentimentSteady {
		t.Errorf("One up one down should read steady, got %s", summary.Sentiment)
	}
	if summary.Region != "kiambu" {
		t.Errorf("Expected region kiambu, got %s", summary.Region)
	}
}

func TestSummary_HotMoversOrderedByChange(t *testing.T) {
	store := history.NewMemoryStore()
	seedPair(t, store, "onion", "kiambu", 100, 120)  // +20%
	seedPair(t, store, "tomato", "kiambu", 100, 110) // +10%
	seedPair(t, store, "mango", "kiambu", 100, 108)  // +8%
	seedPair(t, store, "kale", "kiambu", 100, 105)   // +5%

	summary, err := newTestSummarizer(store).Summary(context.Background(), "kiambu")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if summary.Sentiment != SentimentRising {
		t.Errorf("Four risers and no fallers should read rising, got %s", summary.Sentiment)
	}
	want := []string{"onion", "tomato", "mango"}
	if len(summary.HotCommodities) != len(want) {
		t.Fatalf("Expected top %d hot movers, got %d", len(want), len(summary.HotCommodities))
	}
	for i, name := range want {
		if summary.HotCommodities[i].Commodity != name {
			t.Errorf("hot[%d]: expected %s, got %s", i, name, summary.HotCommodities[i].Commodity)
		}
	}
	if len(summary.ColdCommodities) != 0 {
		t.Errorf("Expected no cold movers, got %v", summary.ColdCommodities)
	}
}

func TestSummary_ColdMoversWorstFirst(t *testing.T) {
	store := history.NewMemoryStore()
	seedPair(t, store, "tomato", "kiambu", 100, 80)  // -20%
	seedPair(t, store, "onion", "kiambu", 100, 90)   // -10%
	seedPair(t, store, "potato", "kiambu", 100, 95)  // -5%
	seedPair(t, store, "cabbage", "kiambu", 100, 96) // -4%

	summary, err := newTestSummarizer(store).Summary(context.Background(), "kiambu")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if summary.Sentiment != SentimentFalling {
		t.Errorf("Four fallers should read falling, got %s", summary.Sentiment)
	}
	want := []string{"tomato", "onion", "potato"}
	if len(summary.ColdCommodities) != len(want) {
		t.Fatalf("Expected %d cold movers, got %d", len(want), len(summary.ColdCommodities))
	}
	for i, name := range want {
		if summary.ColdCommodities[i].Commodity != name {
			t.Errorf("cold[%d]: expected %s, got %s", i, name, summary.ColdCommodities[i].Commodity)
		}
	}
}

func TestSummary_InsightsLeadWithTopMover(t *testing.T) {
	store := history.NewMemoryStore()
	seedPair(t, store, "avocado", "kiambu", 100, 115)

	summary, err := newTestSummarizer(store).Summary(context.Background(), "kiambu")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if len(summary.Insights) == 0 {
		t.Fatal("Expected at least one insight")
	}
	if summary.Insights[0] != "avocado is the week's top mover, up 15.0%" {
		t.Errorf("Unexpected lead insight: %q", summary.Insights[0])
	}
	if len(summary.Insights) > 3 {
		t.Errorf("Expected at most 3 insights, got %d", len(summary.Insights))
	}
}

func TestSummary_EmptyRegionUsesPlatformScope(t *testing.T) {
	store := history.NewMemoryStore()
	seedPair(t, store, "tomato", "kiambu", 100, 110)
	seedPair(t, store, "tomato", "nakuru", 100, 112)

	summary, err := newTestSummarizer(store).Summary(context.Background(), "")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Region != "nationwide" {
		t.Errorf("Expected nationwide scope label, got %s", summary.Region)
	}
	if summary.RisingCount != 1 {
		t.Errorf("Platform scope should still see the tomato rise, got %d rising", summary.RisingCount)
	}
}

func TestSummary_CachedWithinTTL(t *testing.T) {
	store := history.NewMemoryStore()
	seedPair(t, store, "tomato", "kiambu", 100, 110)
	s := newTestSummarizer(store)

	first, err := s.Summary(context.Background(), "kiambu")
	if err != nil {
		t.Fatalf("first Summary failed: %v", err)
	}

	// New data within the TTL must not change the served summary.
	seedPair(t, store, "onion", "kiambu", 100, 50)

	second, err := s.Summary(context.Background(), "kiambu")
	if err != nil {
		t.Fatalf("second Summary failed: %v", err)
	}
	if second.FallingCount != first.FallingCount || second.RisingCount != first.RisingCount {
		t.Error("Expected identical counts while the cache entry is live")
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Error("A cache hit must serve the original generation time")
	}
}

func TestSentiment(t *testing.T) {
	tests := []struct {
		rising, falling int
		expected        string
	}{
		{3, 1, SentimentRising},
		{1, 3, SentimentFalling},
		{2, 2, SentimentSteady},
		{0, 0, SentimentSteady},
	}

	for _, tt := range tests {
		if got := sentiment(tt.rising, tt.falling); got != tt.expected {
			t.Errorf("sentiment(%d, %d) = %s, expected %s", tt.rising, tt.falling, got, tt.expected)
		}
	}
}
