package growth

import (
	"math"
	"time"

	"covcall/internal/marketdata"

	"go.uber.org/zap"
)

// Strategy is the covered call posture recommended for a position.
type Strategy string

const (
	StrategyAggressive   Strategy = "AGGRESSIVE"   // low growth: maximize income
	StrategyModerate     Strategy = "MODERATE"     // balance income and upside
	StrategyConservative Strategy = "CONSERVATIVE" // high growth: far OTM only
	StrategyProtect      Strategy = "PROTECT"      // very high growth: no calls at all
)

// Score bands separating the strategies.
const (
	aggressiveThreshold   = 25
	moderateThreshold     = 50
	conservativeThreshold = 75
)

// Component weights. Must sum to 1.
const (
	weightMomentum     = 0.25
	weightVolume       = 0.20
	weightVolatility   = 0.20
	weightFundamentals = 0.20
	weightSentiment    = 0.15
)

type ComponentScores struct {
	Momentum     float64 `json:"momentum"`
	Volume       float64 `json:"volume"`
	Volatility   float64 `json:"volatility"`
	Fundamentals float64 `json:"fundamentals"`
	Sentiment    float64 `json:"sentiment"`
}

type Recommendation struct {
	Strategy           Strategy `json:"strategy"`
	Description        string   `json:"description"`
	StrikeGuidance     string   `json:"strike_guidance"`
	ExpirationGuidance string   `json:"expiration_guidance"`
	ProtectionLevel    string   `json:"protection_level"`
}

// Analysis is the growth picture for one symbol. Higher score means higher
// growth potential and therefore more protection from call overwriting.
type Analysis struct {
	Symbol          string          `json:"symbol"`
	TotalScore      int             `json:"total_score"` // 0-100
	Components      ComponentScores `json:"component_scores"`
	Recommendation  Recommendation  `json:"strategy"`
	ProtectPosition bool            `json:"protect_position"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Analyzer scores positions for growth protection before any call is written
// against them.
type Analyzer struct {
	log *zap.Logger
}

func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{log: logger}
}

// Score computes the weighted 0-100 growth score for a quote and maps it to a
// strategy recommendation.
func (a *Analyzer) Score(q marketdata.Quote) Analysis {
	components := ComponentScores{
		Momentum:     momentumScore(q),
		Volume:       volumeScore(q),
		Volatility:   volatilityScore(q),
		Fundamentals: fundamentalsScore(q),
		Sentiment:    sentimentScore(q),
	}

	total := components.Momentum*weightMomentum +
		components.Volume*weightVolume +
		components.Volatility*weightVolatility +
		components.Fundamentals*weightFundamentals +
		components.Sentiment*weightSentiment

	score := int(math.Round(total))
	rec := recommend(score)

	a.log.Debug("scored position",
		zap.String("symbol", q.Symbol),
		zap.Int("score", score),
		zap.String("strategy", string(rec.Strategy)))

	return Analysis{
		Symbol:          q.Symbol,
		TotalScore:      score,
		Components:      components,
		Recommendation:  rec,
		ProtectPosition: score > conservativeThreshold,
		Timestamp:       time.Now(),
	}
}

// momentumScore rates price trend: recent performance, moving average
// alignment and RSI.
func momentumScore(q marketdata.Quote) float64 {
	score := 50.0

	switch {
	case q.PriceChange1M > 20:
		score += 20
	case q.PriceChange1M > 10:
		score += 10
	case q.PriceChange1M < -10:
		score -= 10
	}

	switch {
	case q.Price > q.MA50 && q.MA50 > q.MA200:
		score += 15 // strong uptrend
	case q.Price > q.MA50:
		score += 10
	case q.Price < q.MA50 && q.MA50 < q.MA200:
		score -= 15 // downtrend
	}

	switch {
	case q.RSI > 70:
		score += 10
	case q.RSI < 30:
		score -= 10
	}

	return clampScore(score)
}

// volumeScore rates accumulation via the 10-day/50-day volume ratio.
func volumeScore(q marketdata.Quote) float64 {
	score := 50.0

	if q.AvgVolume50D > 0 {
		ratio := float64(q.AvgVolume10D) / float64(q.AvgVolume50D)
		switch {
		case ratio > 1.5:
			score += 20
		case ratio > 1.2:
			score += 10
		case ratio < 0.7:
			score -= 10
		}
	}

	return clampScore(score)
}

// volatilityScore treats high realized volatility and beta as growth signals.
func volatilityScore(q marketdata.Quote) float64 {
	score := 50.0

	switch {
	case q.Volatility30D > 60:
		score += 20
	case q.Volatility30D > 40:
		score += 10
	case q.Volatility30D < 20:
		score -= 10
	}

	switch {
	case q.Beta > 1.5:
		score += 10
	case q.Beta < 0.8:
		score -= 10
	}

	return clampScore(score)
}

func fundamentalsScore(q marketdata.Quote) float64 {
	score := 50.0

	switch {
	case q.RevenueGrowthYoY > 50:
		score += 20
	case q.RevenueGrowthYoY > 25:
		score += 15
	case q.RevenueGrowthYoY > 10:
		score += 10
	case q.RevenueGrowthYoY < 0:
		score -= 15
	}

	switch {
	case q.EarningsGrowthYoY > 50:
		score += 15
	case q.EarningsGrowthYoY > 25:
		score += 10
	case q.EarningsGrowthYoY < 0:
		score -= 10
	}

	switch {
	case q.AnalystRating >= 4.5:
		score += 10
	case q.AnalystRating <= 2.5:
		score -= 10
	}

	return clampScore(score)
}

func sentimentScore(q marketdata.Quote) float64 {
	score := 50.0

	switch {
	case q.InstitutionalOwnershipChange > 5:
		score += 15
	case q.InstitutionalOwnershipChange < -5:
		score -= 15
	}

	switch q.OptionsSentiment {
	case "very_bullish":
		score += 20
	case "bullish":
		score += 10
	case "bearish":
		score -= 15
	}

	switch {
	case q.SocialSentimentScore > 80:
		score += 10
	case q.SocialSentimentScore < 20:
		score -= 10
	}

	return clampScore(score)
}

func recommend(score int) Recommendation {
	switch {
	case score < aggressiveThreshold:
		return Recommendation{
			Strategy:           StrategyAggressive,
			Description:        "Low growth - maximize income with aggressive strikes",
			StrikeGuidance:     "ATM to 2% OTM",
			ExpirationGuidance: "30-45 DTE",
			ProtectionLevel:    "LOW",
		}
	case score < moderateThreshold:
		return Recommendation{
			Strategy:           StrategyModerate,
			Description:        "Moderate growth - balance income and upside",
			StrikeGuidance:     "3-5% OTM",
			ExpirationGuidance: "30-45 DTE",
			ProtectionLevel:    "MEDIUM",
		}
	case score < conservativeThreshold:
		return Recommendation{
			Strategy:           StrategyConservative,
			Description:        "High growth - protect upside potential",
			StrikeGuidance:     "7-10% OTM minimum",
			ExpirationGuidance: "30 DTE max",
			ProtectionLevel:    "HIGH",
		}
	default:
		return Recommendation{
			Strategy:           StrategyProtect,
			Description:        "Very high growth - do not sell calls",
			StrikeGuidance:     "DO NOT SELL CALLS",
			ExpirationGuidance: "N/A",
			ProtectionLevel:    "MAXIMUM",
		}
	}
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
