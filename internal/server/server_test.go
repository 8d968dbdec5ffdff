package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/sokoscope/internal/cache"
	"github.com/mavuno/sokoscope/internal/history"
	"github.com/mavuno/sokoscope/internal/market"
	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/pricing"
	"github.com/mavuno/sokoscope/internal/reputation"
	"github.com/mavuno/sokoscope/internal/success"
	"github.com/mavuno/sokoscope/internal/trend"
)

func newTestServer(t *testing.T) (*Server, *history.MemoryStore) {
	t.Helper()
	store := history.NewMemoryStore()
	log := zerolog.Nop()
	trends := trend.NewCalculator(store, cache.NewMemory(), log)

	srv := New(Config{
		Addr:       ":0",
		Log:        log,
		Trends:     trends,
		Pricing:    pricing.NewPredictor(trends, cache.NewMemory(), log),
		Success:    success.NewEstimator(store, log),
		Reputation: reputation.NewEngine(store, log),
		Market:     market.NewSummarizer(trends, cache.NewMemory(), log),
	})
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPredictPrice(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/predictions/price", map[string]interface{}{
		"commodity": "tomato",
		"grade":     "premium",
		"quantity":  500,
		"region":    "kiambu",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pred model.PricePrediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pred))
	assert.Equal(t, "tomato", pred.Commodity)
	assert.Equal(t, model.GradePremium, pred.Grade)
	assert.Greater(t, pred.RecommendedPrice, 0.0)
	assert.LessOrEqual(t, pred.PriceMin, pred.RecommendedPrice)
	assert.GreaterOrEqual(t, pred.PriceMax, pred.RecommendedPrice)
	// Empty corpus: the engine serves the baseline-backed default.
	assert.Equal(t, model.QualityDefault, pred.DataQuality)
}

func TestPredictPrice_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/predictions/price", map[string]interface{}{
		"commodity": "durian",
		"grade":     "shiny",
		"quantity":  -4,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "commodity")
	assert.Contains(t, body.Fields, "grade")
	assert.Contains(t, body.Fields, "quantity")
}

func TestPredictPrice_MalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/predictions/price", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimateSuccess(t *testing.T) {
	srv, store := newTestServer(t)

	days := 4
	require.NoError(t, store.AddOutcome(context.Background(), model.SaleOutcome{
		Commodity: "tomato", Grade: model.GradeA, Quantity: 200, Region: "kiambu",
		ListedPrice: 95, MarketPrice: 100, DaysToSell: &days, Sold: true,
		ListedAt: time.Now().AddDate(0, -1, 0),
	}))

	rec := doJSON(t, srv, "POST", "/api/predictions/success", map[string]interface{}{
		"commodity":    "tomato",
		"grade":        "grade-A",
		"listed_price": 95,
		"quantity":     100,
		"region":       "kiambu",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pred model.SuccessPrediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pred))
	assert.Equal(t, 1, pred.Comparables)
	assert.Greater(t, pred.Probability, 0.0)
	assert.NotEmpty(t, pred.Category)
}

func TestEstimateSuccess_RequiresPrice(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/predictions/success", map[string]interface{}{
		"commodity": "tomato",
		"grade":     "grade-A",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "listed_price")
}

func TestGetTrend(t *testing.T) {
	srv, store := newTestServer(t)

	now := time.Now().UTC()
	for _, o := range []model.PriceObservation{
		{Commodity: "onion", Region: "nakuru", Market: "main", Date: now.AddDate(0, 0, -7), Wholesale: 100, Retail: 140},
		{Commodity: "onion", Region: "nakuru", Market: "main", Date: now, Wholesale: 110, Retail: 150},
	} {
		require.NoError(t, store.Append(context.Background(), o))
	}

	rec := doJSON(t, srv, "GET", "/api/trends/onion?region=nakuru", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var snap model.TrendSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, model.TrendRising, snap.Trend)
	assert.Equal(t, "nakuru", snap.Region)
}

func TestGetTrend_UnsupportedCommodity(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/api/trends/durian", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketSummary(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/api/market/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary model.MarketSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "nationwide", summary.Region)
	// Empty corpus defaults every commodity to stable.
	assert.Equal(t, 13, summary.StableCount)
	assert.NotEmpty(t, summary.Insights)
}

func TestTrustScore(t *testing.T) {
	srv, store := newTestServer(t)

	require.NoError(t, store.UpsertProfile(context.Background(), model.ReputationInputs{
		UserID: "farmer-1", Completed: 10, Total: 10, AverageRating: 4.8, RatingCount: 9,
		AccountAgeDays: 400, Verified: true, AvgResponseHours: 1,
	}))

	rec := doJSON(t, srv, "GET", "/api/users/farmer-1/trust-score", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result model.TrustScoreResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Elite", result.Tier)
	assert.Contains(t, result.Badges, "Verified ID")
}

func TestTrustScore_UnknownUserStillServed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/api/users/nobody/trust-score", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result model.TrustScoreResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, model.QualityDefault, result.DataQuality)
}

func TestTrustSummary(t *testing.T) {
	srv, store := newTestServer(t)

	require.NoError(t, store.UpsertProfile(context.Background(), model.ReputationInputs{
		UserID: "farmer-2", Completed: 10, Total: 10, AverageRating: 4.2, RatingCount: 6,
		AccountAgeDays: 100, Verified: false, AvgResponseHours: 3,
	}))

	rec := doJSON(t, srv, "GET", "/api/users/farmer-2/trust-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary model.TrustSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "farmer-2", summary.UserID)
	assert.Equal(t, 4.2, summary.Rating)
	assert.False(t, summary.Verified)
}

func TestUnknownRouteIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
