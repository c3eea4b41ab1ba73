package marketdata

import "math"

// Quote is a single snapshot of a stock: price and spread, session OHLC,
// volume windows, trend/momentum indicators, volatility, fundamentals, the
// next two forward-looking dates and sentiment readings. Field names follow
// the JSON the dashboard consumers were built against.
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`

	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	PrevClose float64 `json:"prev_close"`

	Volume       int64 `json:"volume"`
	AvgVolume10D int64 `json:"avg_volume_10d"`
	AvgVolume50D int64 `json:"avg_volume_50d"`

	MA50       float64 `json:"ma_50"`
	MA200      float64 `json:"ma_200"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`

	Volatility30D float64 `json:"volatility_30d"` // annualized, percent
	Beta          float64 `json:"beta"`
	IVRank        float64 `json:"iv_rank"`

	PERatio           float64 `json:"pe_ratio"`
	MarketCap         float64 `json:"market_cap"`
	RevenueGrowthYoY  float64 `json:"revenue_growth_yoy"`
	EarningsGrowthYoY float64 `json:"earnings_growth_yoy"`
	AnalystRating     float64 `json:"analyst_rating"` // 1 (sell) .. 5 (strong buy)

	NextEarningsDate string `json:"next_earnings_date"` // YYYY-MM-DD
	ExDividendDate   string `json:"ex_dividend_date"`   // YYYY-MM-DD

	OptionsSentiment             string  `json:"options_sentiment"`
	InstitutionalOwnershipChange float64 `json:"institutional_ownership_change"`
	SocialSentimentScore         float64 `json:"social_sentiment_score"`

	PriceChange1D float64 `json:"price_change_1d"`
	PriceChange1W float64 `json:"price_change_1w"`
	PriceChange1M float64 `json:"price_change_1m"`
}

// basePrices anchors the well-known tickers so their synthetic quotes land in
// a familiar neighborhood. Anything else gets a random baseline in [20, 200].
var basePrices = map[string]float64{
	"AAPL": 195.0,
	"TSLA": 200.0,
	"PLTR": 25.0,
	"MGNI": 15.0,
	"SPY":  450.0,
	"QQQ":  380.0,
}

var sentimentLevels = []string{"very_bullish", "bullish", "neutral", "bearish"}

// generateQuote samples a fresh quote around the symbol's baseline price.
// Trend and momentum fields are not drawn independently: a synthetic close
// history is walked out around the working price and the indicators computed
// from it, so MA/RSI/MACD and the price-change horizons stay consistent with
// each other and with the realized volatility.
func (f *Fetcher) generateQuote(symbol string) Quote {
	base, ok := basePrices[symbol]
	if !ok {
		base = f.unif(20, 200)
	}
	price := round2(base * f.unif(0.95, 1.05))

	vol30 := f.unif(20, 60)
	closes := f.syntheticCloses(price, vol30, historyDays)
	ind := computeIndicators(closes)
	n := len(closes)

	open := round2(price * f.unif(0.99, 1.01))
	high := round2(math.Max(open, price) * f.unif(1.000, 1.015))
	low := round2(math.Min(open, price) * f.unif(0.985, 1.000))

	now := f.now()

	return Quote{
		Symbol: symbol,
		Price:  price,
		Bid:    round2(price - 0.01),
		Ask:    round2(price + 0.01),

		Open:      open,
		High:      high,
		Low:       low,
		PrevClose: round2(closes[n-2]),

		Volume:       int64(f.randInt(1_000_000, 50_000_000)),
		AvgVolume10D: int64(f.randInt(1_000_000, 40_000_000)),
		AvgVolume50D: int64(f.randInt(1_000_000, 35_000_000)),

		MA50:       ind.MA50,
		MA200:      ind.MA200,
		RSI:        ind.RSI,
		MACD:       ind.MACD,
		MACDSignal: ind.MACDSignal,

		Volatility30D: round2(vol30),
		Beta:          round2(f.unif(0.5, 2.0)),
		IVRank:        round1(f.unif(10, 90)),

		PERatio:           round1(f.unif(10, 60)),
		MarketCap:         math.Round(price * f.unif(50_000_000, 5_000_000_000)),
		RevenueGrowthYoY:  round1(f.unif(-20, 100)),
		EarningsGrowthYoY: round1(f.unif(-30, 150)),
		AnalystRating:     round1(f.unif(1, 5)),

		NextEarningsDate: now.AddDate(0, 0, f.randInt(5, 60)).Format("2006-01-02"),
		ExDividendDate:   now.AddDate(0, 0, f.randInt(30, 90)).Format("2006-01-02"),

		OptionsSentiment:             f.choice(sentimentLevels),
		InstitutionalOwnershipChange: round1(f.unif(-10, 10)),
		SocialSentimentScore:         round1(f.unif(10, 90)),

		PriceChange1D: pctChange(price, closes[n-2]),
		PriceChange1W: pctChange(price, closes[n-6]),
		PriceChange1M: pctChange(price, closes[n-23]),
	}
}

func pctChange(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return round2((current - prior) / prior * 100)
}
