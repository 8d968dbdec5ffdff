package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mavuno/sokoscope/internal/market"
	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/policy"
	"github.com/mavuno/sokoscope/internal/pricing"
	"github.com/mavuno/sokoscope/internal/reputation"
	"github.com/mavuno/sokoscope/internal/success"
	"github.com/mavuno/sokoscope/internal/trend"
)

// HandlerDeps collects the engines the handlers call into.
type HandlerDeps struct {
	Trends     *trend.Calculator
	Pricing    *pricing.Predictor
	Success    *success.Estimator
	Reputation *reputation.Engine
	Market     *market.Summarizer
}

// Handler provides HTTP handlers for all analytics endpoints.
type Handler struct {
	deps HandlerDeps
	log  zerolog.Logger
}

// NewHandler creates the handler set.
func NewHandler(deps HandlerDeps, log zerolog.Logger) *Handler {
	return &Handler{
		deps: deps,
		log:  log.With().Str("component", "handlers").Logger(),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pricePredictionRequest is the POST /api/predictions/price payload.
type pricePredictionRequest struct {
	Commodity string  `json:"commodity"`
	Grade     string  `json:"grade"`
	Quantity  float64 `json:"quantity"`
	Region    string  `json:"region"`
}

// PredictPrice recommends a listing price.
func (h *Handler) PredictPrice(w http.ResponseWriter, r *http.Request) {
	var req pricePredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fields := map[string]string{}
	validateCommodity(fields, req.Commodity)
	validateGrade(fields, req.Grade)
	if req.Quantity <= 0 {
		fields["quantity"] = "must be a positive number of kilograms"
	}
	if len(fields) > 0 {
		h.writeValidationError(w, fields)
		return
	}

	prediction, err := h.deps.Pricing.Predict(r.Context(), pricing.Request{
		Commodity: req.Commodity,
		Grade:     model.Grade(req.Grade),
		Quantity:  req.Quantity,
		Region:    req.Region,
	})
	if err != nil {
		h.log.Error().Err(err).Str("commodity", req.Commodity).Msg("price prediction failed")
		h.writeError(w, http.StatusInternalServerError, "price prediction failed")
		return
	}

	h.writeJSON(w, http.StatusOK, prediction)
}

// successEstimateRequest is the POST /api/predictions/success payload.
type successEstimateRequest struct {
	Commodity   string  `json:"commodity"`
	Grade       string  `json:"grade"`
	ListedPrice float64 `json:"listed_price"`
	Quantity    float64 `json:"quantity"`
	Region      string  `json:"region"`
}

// EstimateSuccess estimates how a hypothetical listing would fare.
func (h *Handler) EstimateSuccess(w http.ResponseWriter, r *http.Request) {
	var req successEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fields := map[string]string{}
	validateCommodity(fields, req.Commodity)
	validateGrade(fields, req.Grade)
	if req.ListedPrice <= 0 {
		fields["listed_price"] = "must be a positive KES amount"
	}
	if len(fields) > 0 {
		h.writeValidationError(w, fields)
		return
	}

	prediction, err := h.deps.Success.Estimate(r.Context(), success.Request{
		Commodity:   req.Commodity,
		Grade:       model.Grade(req.Grade),
		ListedPrice: req.ListedPrice,
		Quantity:    req.Quantity,
		Region:      req.Region,
	})
	if err != nil {
		h.log.Error().Err(err).Str("commodity", req.Commodity).Msg("success estimate failed")
		h.writeError(w, http.StatusInternalServerError, "success estimate failed")
		return
	}

	h.writeJSON(w, http.StatusOK, prediction)
}

// GetTrend serves the trend snapshot for a commodity. Region is an
// optional query parameter; absent means platform-wide.
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	commodity := chi.URLParam(r, "commodity")

	fields := map[string]string{}
	validateCommodity(fields, commodity)
	if len(fields) > 0 {
		h.writeValidationError(w, fields)
		return
	}

	snap, err := h.deps.Trends.Snapshot(r.Context(), commodity, r.URL.Query().Get("region"))
	if err != nil {
		h.log.Error().Err(err).Str("commodity", commodity).Msg("trend snapshot failed")
		h.writeError(w, http.StatusInternalServerError, "trend snapshot failed")
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

// MarketSummary serves the market-wide sentiment view.
func (h *Handler) MarketSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.deps.Market.Summary(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		h.log.Error().Err(err).Msg("market summary failed")
		h.writeError(w, http.StatusInternalServerError, "market summary failed")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// TrustScore serves the full reputation result for a user.
func (h *Handler) TrustScore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeValidationError(w, map[string]string{"user_id": "must not be empty"})
		return
	}

	result, err := h.deps.Reputation.TrustScore(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user", userID).Msg("trust score failed")
		h.writeError(w, http.StatusInternalServerError, "trust score failed")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// TrustSummary serves the lighter reputation projection.
func (h *Handler) TrustSummary(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeValidationError(w, map[string]string{"user_id": "must not be empty"})
		return
	}

	summary, err := h.deps.Reputation.TrustSummary(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user", userID).Msg("trust summary failed")
		h.writeError(w, http.StatusInternalServerError, "trust summary failed")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

func validateCommodity(fields map[string]string, commodity string) {
	if commodity == "" {
		fields["commodity"] = "is required"
		return
	}
	if !policy.SupportedCommodity(commodity) {
		fields["commodity"] = "is not a supported commodity"
	}
}

func validateGrade(fields map[string]string, grade string) {
	if grade == "" {
		fields["grade"] = "is required"
		return
	}
	if !model.Grade(grade).Valid() {
		fields["grade"] = "must be one of premium, grade-A, grade-B, reject"
	}
}

// Helper methods

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeValidationError reports the offending fields alongside the error.
func (h *Handler) writeValidationError(w http.ResponseWriter, fields map[string]string) {
	h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  "validation failed",
		"fields": fields,
	})
}
