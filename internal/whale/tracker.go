package whale

import (
	"sort"

	"covcall/internal/marketdata"

	"go.uber.org/zap"
)

// MarketData is the slice of the market data engine the tracker needs.
type MarketData interface {
	GetWhaleFlows(minPremium float64) []marketdata.WhaleFlow
}

type Conviction string

const (
	ConvictionExtreme  Conviction = "EXTREME"
	ConvictionHigh     Conviction = "HIGH"
	ConvictionModerate Conviction = "MODERATE"
	ConvictionLow      Conviction = "LOW"
)

// Score bands for conviction.
const (
	extremeScore  = 70
	highScore     = 50
	moderateScore = 30
)

// Premium size tiers.
const (
	megaPremium  = 250_000
	largePremium = 100_000
	basePremium  = 50_000
)

// Institutional sizing: orders worked in clean round lots.
var roundLots = map[int]bool{
	1000:  true,
	5000:  true,
	10000: true,
	25000: true,
	50000: true,
}

// ScoredFlow is a whale flow with its institutional-conviction read attached.
type ScoredFlow struct {
	marketdata.WhaleFlow
	Score      int        `json:"score"`
	Conviction Conviction `json:"conviction"`
	Signals    []string   `json:"signals"`
}

// SymbolSentiment aggregates the directional premium for one underlying.
type SymbolSentiment struct {
	Symbol      string  `json:"symbol"`
	CallPremium float64 `json:"call_premium"`
	PutPremium  float64 `json:"put_premium"`
	FlowCount   int     `json:"flow_count"`
	Bias        string  `json:"bias"` // bullish, bearish or mixed
}

// Tracker scores unusual options flow for signs of informed institutional
// positioning: size, urgency, sizing patterns and strike selection.
type Tracker struct {
	market     MarketData
	minPremium float64
	log        *zap.Logger
}

func NewTracker(market MarketData, minPremium float64, logger *zap.Logger) *Tracker {
	if minPremium <= 0 {
		minPremium = basePremium
	}
	return &Tracker{
		market:     market,
		minPremium: minPremium,
		log:        logger,
	}
}

// Scan fetches the current flow batch and returns it scored, highest
// conviction first.
func (t *Tracker) Scan() []ScoredFlow {
	flows := t.market.GetWhaleFlows(t.minPremium)

	out := make([]ScoredFlow, 0, len(flows))
	for _, f := range flows {
		score, signals := scoreFlow(f)
		out = append(out, ScoredFlow{
			WhaleFlow:  f,
			Score:      score,
			Conviction: conviction(score),
			Signals:    signals,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	t.log.Debug("scored whale flows", zap.Int("count", len(out)))
	return out
}

// Sentiment rolls the scored flows up per symbol into a directional premium
// split.
func (t *Tracker) Sentiment(flows []ScoredFlow) map[string]SymbolSentiment {
	out := make(map[string]SymbolSentiment)
	for _, f := range flows {
		s := out[f.Symbol]
		s.Symbol = f.Symbol
		s.FlowCount++
		if f.OptionType == "call" {
			s.CallPremium += f.TotalPremium
		} else {
			s.PutPremium += f.TotalPremium
		}
		out[f.Symbol] = s
	}

	for sym, s := range out {
		switch {
		case s.CallPremium >= s.PutPremium*2:
			s.Bias = "bullish"
		case s.PutPremium >= s.CallPremium*2:
			s.Bias = "bearish"
		default:
			s.Bias = "mixed"
		}
		out[sym] = s
	}
	return out
}

// scoreFlow rates one flow 0-100 and names the patterns it matched.
func scoreFlow(f marketdata.WhaleFlow) (int, []string) {
	score := 0
	var signals []string

	switch {
	case f.TotalPremium >= megaPremium:
		score += 30
		signals = append(signals, "mega premium ($250k+)")
	case f.TotalPremium >= largePremium:
		score += 20
		signals = append(signals, "large premium ($100k+)")
	case f.TotalPremium >= basePremium:
		score += 10
		signals = append(signals, "notable premium ($50k+)")
	}

	// Volume outrunning open interest means the position is being opened, not
	// closed.
	if f.OpenInterest > 0 {
		ratio := float64(f.Contracts) / float64(f.OpenInterest)
		switch {
		case ratio >= 2.0:
			score += 20
			signals = append(signals, "volume 2x open interest (position opening)")
		case ratio >= 1.5:
			score += 15
			signals = append(signals, "volume 1.5x open interest")
		case ratio >= 1.0:
			score += 10
			signals = append(signals, "volume exceeds open interest")
		}
	}

	switch {
	case f.TradeType == "sweep" && f.ExecutionSide == "ask":
		score += 20
		signals = append(signals, "aggressive sweep at the ask")
	case f.TradeType == "sweep":
		score += 10
		signals = append(signals, "multi-exchange sweep")
	case f.ExecutionSide == "ask":
		score += 5
		signals = append(signals, "paid the ask")
	}

	if f.DaysToExp >= 14 && f.DaysToExp <= 35 {
		score += 10
		signals = append(signals, "swing-horizon expiration (14-35d)")
	}

	if f.UnderlyingPrice > 0 {
		otm := (f.Strike - f.UnderlyingPrice) / f.UnderlyingPrice
		if f.OptionType == "put" {
			otm = -otm
		}
		if otm >= 0.07 && otm <= 0.15 {
			score += 10
			signals = append(signals, "conviction OTM strike (7-15%)")
		}
	}

	if roundLots[f.Contracts] {
		score += 5
		signals = append(signals, "round lot sizing")
	}

	if score > 100 {
		score = 100
	}
	return score, signals
}

func conviction(score int) Conviction {
	switch {
	case score >= extremeScore:
		return ConvictionExtreme
	case score >= highScore:
		return ConvictionHigh
	case score >= moderateScore:
		return ConvictionModerate
	default:
		return ConvictionLow
	}
}
