package whale

import (
	"testing"

	"covcall/internal/marketdata"

	"go.uber.org/zap"
)

type stubMarket struct {
	flows []marketdata.WhaleFlow
}

func (s stubMarket) GetWhaleFlows(float64) []marketdata.WhaleFlow { return s.flows }

func hasSignal(signals []string, want string) bool {
	for _, s := range signals {
		if s == want {
			return true
		}
	}
	return false
}

// go test -v --run TestScoreMaximumConvictionFlow
func TestScoreMaximumConvictionFlow(t *testing.T) {
	// Every pattern at once: mega premium, fresh position, sweep at the ask,
	// swing-dated, conviction strike, round lot.
	flow := marketdata.WhaleFlow{
		Symbol:          "NVDA",
		OptionType:      "call",
		TradeType:       "sweep",
		ExecutionSide:   "ask",
		UnderlyingPrice: 100,
		Strike:          110,
		DaysToExp:       21,
		Contracts:       5000,
		OpenInterest:    2000,
		TotalPremium:    600_000,
	}

	score, signals := scoreFlow(flow)
	if score != 95 {
		t.Errorf("score = %d, want 95 (30+20+20+10+10+5)", score)
	}
	if conviction(score) != ConvictionExtreme {
		t.Errorf("conviction = %s, want EXTREME", conviction(score))
	}
	for _, want := range []string{
		"mega premium ($250k+)",
		"volume 2x open interest (position opening)",
		"aggressive sweep at the ask",
		"swing-horizon expiration (14-35d)",
		"conviction OTM strike (7-15%)",
		"round lot sizing",
	} {
		if !hasSignal(signals, want) {
			t.Errorf("missing signal %q in %v", want, signals)
		}
	}
}

// go test -v --run TestScoreQuietFlow
func TestScoreQuietFlow(t *testing.T) {
	// Minimum-size block at the mid, long-dated, odd lot, near the money:
	// nothing beyond the premium floor fires.
	flow := marketdata.WhaleFlow{
		Symbol:          "SOFI",
		OptionType:      "call",
		TradeType:       "block",
		ExecutionSide:   "mid",
		UnderlyingPrice: 100,
		Strike:          102,
		DaysToExp:       42,
		Contracts:       1234,
		OpenInterest:    9000,
		TotalPremium:    55_000,
	}

	score, _ := scoreFlow(flow)
	if score != 10 {
		t.Errorf("score = %d, want 10 (premium floor only)", score)
	}
	if conviction(score) != ConvictionLow {
		t.Errorf("conviction = %s, want LOW", conviction(score))
	}
}

// go test -v --run TestPutStrikeDirectionFlips
func TestPutStrikeDirectionFlips(t *testing.T) {
	// For puts the conviction zone sits below the underlying.
	put := marketdata.WhaleFlow{
		OptionType:      "put",
		UnderlyingPrice: 100,
		Strike:          90,
		TotalPremium:    55_000,
	}
	_, signals := scoreFlow(put)
	if !hasSignal(signals, "conviction OTM strike (7-15%)") {
		t.Errorf("10%% OTM put should match the strike zone, got %v", signals)
	}

	// The same strike on a call is in the money, not conviction OTM.
	put.OptionType = "call"
	_, signals = scoreFlow(put)
	if hasSignal(signals, "conviction OTM strike (7-15%)") {
		t.Errorf("ITM call must not match the strike zone, got %v", signals)
	}
}

// go test -v --run TestScanSortsByScore
func TestScanSortsByScore(t *testing.T) {
	market := stubMarket{flows: []marketdata.WhaleFlow{
		{Symbol: "SOFI", TotalPremium: 55_000, TradeType: "block", ExecutionSide: "mid"},
		{Symbol: "NVDA", TotalPremium: 600_000, TradeType: "sweep", ExecutionSide: "ask",
			UnderlyingPrice: 100, Strike: 110, DaysToExp: 21, Contracts: 5000, OpenInterest: 2000},
	}}

	scored := NewTracker(market, 0, zap.NewNop()).Scan()
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored flows, got %d", len(scored))
	}
	if scored[0].Symbol != "NVDA" {
		t.Errorf("highest conviction flow should sort first, got %s", scored[0].Symbol)
	}
	if scored[0].Score <= scored[1].Score {
		t.Errorf("not sorted by score: %d then %d", scored[0].Score, scored[1].Score)
	}
}

// go test -v --run TestSentimentRollup
func TestSentimentRollup(t *testing.T) {
	tracker := NewTracker(stubMarket{}, 0, zap.NewNop())

	flows := []ScoredFlow{
		{WhaleFlow: marketdata.WhaleFlow{Symbol: "AAPL", OptionType: "call", TotalPremium: 400_000}},
		{WhaleFlow: marketdata.WhaleFlow{Symbol: "AAPL", OptionType: "put", TotalPremium: 100_000}},
		{WhaleFlow: marketdata.WhaleFlow{Symbol: "GME", OptionType: "put", TotalPremium: 300_000}},
		{WhaleFlow: marketdata.WhaleFlow{Symbol: "SPY", OptionType: "call", TotalPremium: 120_000}},
		{WhaleFlow: marketdata.WhaleFlow{Symbol: "SPY", OptionType: "put", TotalPremium: 110_000}},
	}

	sentiment := tracker.Sentiment(flows)

	if s := sentiment["AAPL"]; s.Bias != "bullish" || s.FlowCount != 2 {
		t.Errorf("AAPL: %+v, want bullish with 2 flows", s)
	}
	if s := sentiment["GME"]; s.Bias != "bearish" {
		t.Errorf("GME: %+v, want bearish", s)
	}
	if s := sentiment["SPY"]; s.Bias != "mixed" {
		t.Errorf("SPY: %+v, want mixed", s)
	}
}
