package marketdata

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// WhaleFlow is one large synthetic options trade. Fields are stored once under
// their canonical names; the legacy duplicate keys the display consumers still
// read (volume/contracts, premium/premium_per_contract,
// premium_volume/total_premium) are emitted at the JSON layer.
type WhaleFlow struct {
	Timestamp       time.Time `json:"timestamp"`
	Symbol          string    `json:"symbol"`
	UnderlyingPrice float64   `json:"underlying_price"`
	TradeType       string    `json:"trade_type"`  // sweep, block or split_block
	OptionType      string    `json:"option_type"` // call or put

	Strike     float64 `json:"strike"`
	Expiration string  `json:"expiration"` // YYYY-MM-DD
	DaysToExp  int     `json:"days_to_exp"`

	Contracts    int     `json:"contracts"`
	Premium      float64 `json:"premium"`       // per contract, per share
	TotalPremium float64 `json:"total_premium"` // Premium * Contracts * 100

	AvgVolume     int     `json:"avg_volume"`
	UnusualFactor float64 `json:"unusual_factor"` // Contracts / AvgVolume
	OpenInterest  int     `json:"open_interest"`

	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	ExecutionSide     string  `json:"execution_side"` // ask, bid or mid
	BidAskSpread      float64 `json:"bid_ask_spread"`
}

// Volume is the legacy alias for Contracts.
func (w WhaleFlow) Volume() int { return w.Contracts }

// PremiumPerContract is the legacy alias for Premium.
func (w WhaleFlow) PremiumPerContract() float64 { return w.Premium }

// PremiumVolume is the legacy alias for TotalPremium.
func (w WhaleFlow) PremiumVolume() float64 { return w.TotalPremium }

// MarshalJSON emits the canonical fields plus the legacy duplicate keys.
func (w WhaleFlow) MarshalJSON() ([]byte, error) {
	type alias WhaleFlow // drop methods to avoid recursion
	return json.Marshal(struct {
		alias
		LegacyVolume       int     `json:"volume"`
		LegacyPremium      float64 `json:"premium_per_contract"`
		LegacyTotalPremium float64 `json:"premium_volume"`
	}{
		alias:              alias(w),
		LegacyVolume:       w.Contracts,
		LegacyPremium:      w.Premium,
		LegacyTotalPremium: w.TotalPremium,
	})
}

const minWhalePremium = 50_000 // institutional floor in total premium dollars

var (
	whaleUniverse  = []string{"AAPL", "TSLA", "SPY", "QQQ", "NVDA", "AMD", "PLTR", "GME", "AMC", "SOFI"}
	whaleDTEs      = []int{7, 14, 21, 28, 35, 42}
	optionTypes    = []string{"call", "put"}
	tradeTypes     = []string{"sweep", "block", "split_block"}
	executionSides = []string{"ask", "bid", "mid"}
)

// generateWhaleFlows draws a batch of 5-15 candidate trades and keeps the ones
// clearing the $50k floor, so the returned batch may be smaller than the
// attempt count. Sub-floor candidates are dropped during generation, never
// filtered afterwards. The result is sorted by total premium descending.
func (f *Fetcher) generateWhaleFlows() []WhaleFlow {
	attempts := f.randInt(5, 15)
	flows := make([]WhaleFlow, 0, attempts)

	for i := 0; i < attempts; i++ {
		symbol := f.choice(whaleUniverse)
		quote := f.quote(symbol) // may populate the quote cache as a side effect

		optionType := f.choice(optionTypes)
		tradeType := f.choice(tradeTypes)

		// Directional strike bias: calls struck above the underlying, puts below.
		var strike float64
		if optionType == "call" {
			strike = math.Round(quote.Price * f.unif(1.00, 1.20))
		} else {
			strike = math.Round(quote.Price * f.unif(0.80, 1.00))
		}

		daysOut := whaleDTEs[f.rng.Intn(len(whaleDTEs))]
		expiration := f.now().AddDate(0, 0, daysOut).Format("2006-01-02")

		premium := round2(f.unif(0.10, 2.00))
		contracts := f.randInt(1000, 50000)
		totalPremium := premium * float64(contracts) * 100
		if totalPremium < minWhalePremium {
			continue
		}

		avgVolume := f.randInt(100, 2000)
		bid := round2(premium - 0.05)
		ask := round2(premium + 0.05)

		flows = append(flows, WhaleFlow{
			Timestamp:       f.now(),
			Symbol:          symbol,
			UnderlyingPrice: quote.Price,
			TradeType:       tradeType,
			OptionType:      optionType,

			Strike:     strike,
			Expiration: expiration,
			DaysToExp:  daysOut,

			Contracts:    contracts,
			Premium:      premium,
			TotalPremium: totalPremium,

			AvgVolume:     avgVolume,
			UnusualFactor: round2(float64(contracts) / float64(avgVolume)),
			OpenInterest:  f.randInt(1000, 50000),

			Bid:               bid,
			Ask:               ask,
			ImpliedVolatility: round3(f.unif(0.3, 1.5)),
			ExecutionSide:     f.choice(executionSides),
			BidAskSpread:      round2(ask - bid),
		})
	}

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].TotalPremium > flows[j].TotalPremium
	})
	return flows
}
