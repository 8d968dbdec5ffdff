// Package reputation turns a user's transaction history and account
// metadata into a composite trust score, a tier, badges and narrative
// insights. Six sub-scores are computed independently on a 0-100 scale
// and combined with fixed weights; undefined metrics fall back to a
// neutral 50 so new users start with the benefit of the doubt.
package reputation

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/mavuno/sokoscope/internal/history"
	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/policy"
)

// Engine resolves users to profiles and scores them.
type Engine struct {
	profiles history.ProfileReader
	log      zerolog.Logger
}

// NewEngine creates a reputation engine.
func NewEngine(profiles history.ProfileReader, log zerolog.Logger) *Engine {
	return &Engine{
		profiles: profiles,
		log:      log.With().Str("component", "reputation").Logger(),
	}
}

// TrustScore returns the full reputation result for a user. Unknown
// users score as a brand-new account rather than failing: the consuming
// card UI always needs something to show. The default is flagged via
// DataQuality so callers can tell it apart from a real profile.
func (e *Engine) TrustScore(ctx context.Context, userID string) (*model.TrustScoreResult, error) {
	profile, err := e.profiles.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	quality := model.QualityComputed
	if profile == nil {
		e.log.Debug().Str("user", userID).Msg("unknown user, scoring default profile")
		profile = &model.ReputationInputs{UserID: userID}
		quality = model.QualityDefault
	}

	result := Score(*profile)
	result.DataQuality = quality
	return &result, nil
}

// TrustSummary returns the lighter projection for list/card UI.
func (e *Engine) TrustSummary(ctx context.Context, userID string) (*model.TrustSummary, error) {
	profile, err := e.profiles.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		profile = &model.ReputationInputs{UserID: userID}
	}

	result := Score(*profile)
	return &model.TrustSummary{
		UserID:      userID,
		Score:       result.Score,
		Tier:        result.Tier,
		Rating:      profile.AverageRating,
		RatingCount: profile.RatingCount,
		Verified:    profile.Verified,
	}, nil
}

// Score computes the trust score for a profile snapshot. Pure: no
// randomness, no clock, no I/O.
func Score(in model.ReputationInputs) model.TrustScoreResult {
	b := breakdown(in)

	weighted := b.CompletionRate*policy.WeightCompletion +
		b.Rating*policy.WeightRating +
		b.AccountAge*policy.WeightAccountAge +
		b.Verification*policy.WeightVerification +
		b.ResponseTime*policy.WeightResponseTime +
		b.DisputeRate*policy.WeightDisputeRate

	score := int(math.Round(weighted))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return model.TrustScoreResult{
		UserID:    in.UserID,
		Score:     score,
		Tier:      TierFor(score),
		Breakdown: b,
		Badges:    badges(in),
		Insights:  insights(in, score),
	}
}

func breakdown(in model.ReputationInputs) model.ScoreBreakdown {
	completion := policy.NeutralSubScore
	if in.Total > 0 {
		completion = float64(in.Completed) / float64(in.Total) * 100
	}

	rating := policy.NeutralSubScore
	if in.RatingCount > 0 {
		rating = in.AverageRating / 5 * 100
	}

	age := math.Min(float64(in.AccountAgeDays)/policy.AccountAgeFullScoreDays*100, 100)

	verification := policy.NeutralSubScore
	if in.Verified {
		verification = 100
	}

	response := math.Max(100-in.AvgResponseHours*policy.ResponsePenaltyPerHour, policy.ResponseScoreFloor)

	dispute := math.Max(100-disputeRatePct(in)*policy.DisputePenaltyFactor, 0)

	return model.ScoreBreakdown{
		CompletionRate: round2(completion),
		Rating:         round2(rating),
		AccountAge:     round2(age),
		Verification:   verification,
		ResponseTime:   round2(response),
		DisputeRate:    round2(dispute),
	}
}

func disputeRatePct(in model.ReputationInputs) float64 {
	if in.Total == 0 {
		return 0
	}
	return float64(in.Disputed) / float64(in.Total) * 100
}

// TierFor maps a composite score onto its named band. Bands are exact
// and non-overlapping.
func TierFor(score int) string {
	switch {
	case score >= policy.TierEliteMin:
		return policy.TierElite
	case score >= policy.TierVerifiedMin:
		return policy.TierVerified
	case score >= policy.TierTrustedMin:
		return policy.TierTrusted
	case score >= policy.TierBasicMin:
		return policy.TierBasic
	default:
		return policy.TierNew
	}
}

// badges derives every badge the raw counts support. Predicates are
// independent and additive: a user can hold many at once.
func badges(in model.ReputationInputs) []string {
	out := []string{}

	if in.Disputed == 0 && in.Completed >= policy.BadgeZeroDisputesMinDeals {
		out = append(out, "Zero Disputes")
	}
	if in.Completed >= policy.BadgeDealMilestoneGold {
		out = append(out, "100+ Sales")
	} else if in.Completed >= policy.BadgeDealMilestoneSilver {
		out = append(out, "50+ Sales")
	} else if in.Completed >= policy.BadgeDealMilestoneBronze {
		out = append(out, "10+ Sales")
	}
	if in.AverageRating >= policy.BadgeTopRatedMinRating && in.RatingCount >= policy.BadgeTopRatedMinCount {
		out = append(out, "Top Rated")
	}
	if in.AccountAgeDays >= policy.BadgeVeteranMinDays {
		out = append(out, "Veteran")
	}
	if in.Verified {
		out = append(out, "Verified ID")
	}
	if in.AvgResponseHours > 0 && in.AvgResponseHours <= policy.BadgeQuickReplyMaxHours && in.Completed > 0 {
		out = append(out, "Quick Responder")
	}

	return out
}

// insights runs an ordered rule list and returns at most the first
// three matches.
func insights(in model.ReputationInputs, score int) []string {
	out := []string{}
	add := func(s string) {
		if len(out) < policy.ReputationMaxInsights {
			out = append(out, s)
		}
	}

	if in.Total == 0 {
		add("no transactions yet, complete your first sale to start building trust")
	}
	if rate := disputeRatePct(in); rate > 10 {
		add("your dispute rate is dragging the score down, resolve open issues promptly")
	}
	if in.Total > 0 && float64(in.Completed)/float64(in.Total) < 0.8 {
		add("completing more of your started deals would lift your score")
	}
	if !in.Verified {
		add("verify your identity to unlock a higher trust tier")
	}
	if in.AvgResponseHours > 12 {
		add("replying to buyers faster would improve your response score")
	}
	if in.RatingCount > 0 && in.AverageRating < 3.5 {
		add("recent ratings are low, check what buyers are flagging")
	}
	if score >= policy.TierEliteMin {
		add("top-tier seller, keep it up")
	}

	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
