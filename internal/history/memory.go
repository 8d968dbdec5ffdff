package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mavuno/sokoscope/internal/model"
)

// MemoryStore is an in-memory corpus with the same semantics as Store.
// Tests seed it directly; it is also handy for demo runs without a
// database file.
type MemoryStore struct {
	mu           sync.RWMutex
	observations []model.PriceObservation
	outcomes     []model.SaleOutcome
	profiles     map[string]model.ReputationInputs
}

// NewMemoryStore creates an empty in-memory corpus.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]model.ReputationInputs)}
}

// Append implements PriceWriter with the same invariants as the
// SQLite store: wholesale <= retail, one row per commodity x market x day.
func (m *MemoryStore) Append(_ context.Context, obs model.PriceObservation) error {
	if obs.Wholesale > obs.Retail {
		return fmt.Errorf("observation %s/%s: wholesale %.2f exceeds retail %.2f",
			obs.Commodity, obs.Market, obs.Wholesale, obs.Retail)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	day := obs.Date.Format(dateLayout)
	for _, existing := range m.observations {
		if existing.Commodity == obs.Commodity && existing.Market == obs.Market &&
			existing.Date.Format(dateLayout) == day {
			return nil
		}
	}
	m.observations = append(m.observations, obs)
	return nil
}

func (m *MemoryStore) ObservationsSince(_ context.Context, commodity, region, market string, since time.Time) ([]model.PriceObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if market == "" {
		market = m.representativeMarket(commodity, region)
		if market == "" {
			return nil, nil
		}
	}

	var out []model.PriceObservation
	for _, obs := range m.observations {
		if obs.Commodity != commodity || obs.Market != market {
			continue
		}
		if region != "" && obs.Region != region {
			continue
		}
		if obs.Date.Before(since) {
			continue
		}
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStore) representativeMarket(commodity, region string) string {
	counts := make(map[string]int)
	for _, obs := range m.observations {
		if obs.Commodity != commodity {
			continue
		}
		if region != "" && obs.Region != region {
			continue
		}
		counts[obs.Market]++
	}

	best := ""
	for market, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && market < best) {
			best = market
		}
	}
	return best
}

// AddOutcome seeds one sale outcome, enforcing days-present-iff-sold.
func (m *MemoryStore) AddOutcome(_ context.Context, o model.SaleOutcome) error {
	if o.Sold && o.DaysToSell == nil {
		return fmt.Errorf("sold outcome for %s missing days_to_sell", o.Commodity)
	}
	if !o.Sold && o.DaysToSell != nil {
		return fmt.Errorf("unsold outcome for %s carries days_to_sell", o.Commodity)
	}
	m.mu.Lock()
	m.outcomes = append(m.outcomes, o)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ByCommodity(_ context.Context, commodity string) ([]model.SaleOutcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.SaleOutcome
	for _, o := range m.outcomes {
		if o.Commodity == commodity {
			out = append(out, o)
		}
	}
	return out, nil
}

// UpsertProfile stores a user's reputation inputs.
func (m *MemoryStore) UpsertProfile(_ context.Context, p model.ReputationInputs) error {
	m.mu.Lock()
	m.profiles[p.UserID] = p
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ByUser(_ context.Context, userID string) (*model.ReputationInputs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
