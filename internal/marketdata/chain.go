package marketdata

import (
	"math"
	"time"
)

// OptionContract is one call contract within a chain, keyed by its expiration
// date and strike. Pricing and Greeks are best-effort approximations shaped to
// look right (ITM worth more, far OTM worth little, short-dated decaying
// faster), not the output of a closed-form model.
type OptionContract struct {
	Strike     float64 `json:"strike"`
	Expiration string  `json:"expiration"` // YYYY-MM-DD

	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Last float64 `json:"last"`

	Volume       int `json:"volume"`
	OpenInterest int `json:"open_interest"`

	ImpliedVolatility float64 `json:"implied_volatility"`
	Delta             float64 `json:"delta"`
	Gamma             float64 `json:"gamma"`
	Theta             float64 `json:"theta"`
	Vega              float64 `json:"vega"`

	IVRank       float64 `json:"iv_rank"`
	IVPercentile float64 `json:"iv_percentile"`
}

// Chain maps expiration date strings to strike ladders.
type Chain map[string]map[int]OptionContract

const (
	expirationCount  = 8
	minPremiumTick   = 0.05
	fridayCutoffHour = 16 // past the close, roll a Friday landing a full week forward
)

// generateChain builds the full weekly chain for a quote: the next 8
// Friday-aligned expirations, each with strikes spanning roughly +-15% of the
// underlying at the price-tier increment.
func (f *Fetcher) generateChain(quote Quote) Chain {
	now := f.now()
	price := quote.Price
	chain := make(Chain, expirationCount)

	increment := strikeIncrement(price)
	minStrike := int(price*0.85/float64(increment)) * increment
	maxStrike := int(price*1.15/float64(increment)) * increment

	for weeksOut := 1; weeksOut <= expirationCount; weeksOut++ {
		expDate := nextFriday(now.AddDate(0, 0, 7*weeksOut))
		expStr := expDate.Format("2006-01-02")

		dte := int(expDate.Sub(now).Hours() / 24)
		if dte < 1 {
			dte = 1 // an expiration of "today" would zero the theta divisor
		}

		strikes := make(map[int]OptionContract)
		for strike := minStrike; strike <= maxStrike; strike += increment {
			strikes[strike] = f.generateContract(quote, float64(strike), expStr, dte)
		}
		chain[expStr] = strikes
	}

	return chain
}

// strikeIncrement picks the ladder spacing by price tier: $1 strikes for cheap
// underlyings, $5 mid-range, $10 above $200.
func strikeIncrement(price float64) int {
	switch {
	case price < 50:
		return 1
	case price < 200:
		return 5
	default:
		return 10
	}
}

// nextFriday rolls a candidate date forward to the coming Friday. A candidate
// already on a Friday past the cutoff hour rolls a full week.
func nextFriday(t time.Time) time.Time {
	days := (int(time.Friday) - int(t.Weekday()) + 7) % 7
	if days == 0 && t.Hour() > fridayCutoffHour {
		days = 7
	}
	return t.AddDate(0, 0, days)
}

func (f *Fetcher) generateContract(quote Quote, strike float64, expiration string, dte int) OptionContract {
	price := quote.Price
	otmPct := math.Max(0, (strike-price)/price)

	// Premium baseline: scale the underlying by volatility and the square root
	// of time, then adjust for moneyness.
	timeValue := math.Sqrt(float64(dte) / 365)
	basePremium := price * (quote.Volatility30D / 100) * timeValue * 0.4

	var premium float64
	if strike < price {
		intrinsic := price - strike
		premium = intrinsic + basePremium*0.3
	} else {
		premium = basePremium * math.Max(0.1, 1-otmPct*5)
	}
	premium = math.Max(minPremiumTick, round2(premium))

	// Spread narrows for richer contracts: 10% under $1, 5% at or above.
	spreadPct := 0.10
	if premium >= 1 {
		spreadPct = 0.05
	}
	bid := round2(premium * (1 - spreadPct/2))
	ask := round2(premium * (1 + spreadPct/2))
	if bid > premium {
		bid = premium
	}
	if ask < premium {
		ask = premium
	}

	// Liquidity concentrates near the money.
	var volume, openInterest int
	if math.Abs(strike-price)/price < 0.10 {
		volume = f.randInt(10, 5000)
		openInterest = f.randInt(100, 10000)
	} else {
		volume = f.randInt(0, 500)
		openInterest = f.randInt(10, 1000)
	}

	// Moneyness-driven delta stand-in: ~0.5 at the money, rising toward 1 in
	// the money and falling toward 0 out of the money.
	delta := clamp(0.5+(price-strike)/price*2.5, 0.01, 0.99)

	return OptionContract{
		Strike:     strike,
		Expiration: expiration,

		Bid:  bid,
		Ask:  ask,
		Last: premium,

		Volume:       volume,
		OpenInterest: openInterest,

		ImpliedVolatility: round3(quote.Volatility30D / 100 * f.unif(0.8, 1.2)),
		Delta:             round3(delta),
		Gamma:             round3(f.unif(0.001, 0.05)),
		Theta:             round3(-premium / float64(dte) * f.unif(0.5, 1.5)),
		Vega:              round3(f.unif(0.01, 0.1)),

		IVRank:       round1(clamp(quote.IVRank+f.unif(-10, 10), 0, 100)),
		IVPercentile: round1(clamp(quote.IVRank+f.unif(-5, 5), 0, 100)),
	}
}
