package marketdata

import (
	"math"

	"github.com/markcheno/go-talib"
)

// historyDays is the length of the synthetic close series. Long enough for a
// 200-day moving average with headroom for the MACD warmup.
const historyDays = 260

// syntheticCloses walks a daily close series backwards from last, with step
// sizes scaled so the realized volatility of the series roughly matches the
// given annualized volatility percentage. Steps are clamped to +-25% per day
// to keep the series positive and free of absurd gaps.
func (f *Fetcher) syntheticCloses(last, annualVolPct float64, n int) []float64 {
	sigma := annualVolPct / 100 / math.Sqrt(252)

	closes := make([]float64, n)
	closes[n-1] = last
	for i := n - 2; i >= 0; i-- {
		step := 1 + f.rng.NormFloat64()*sigma
		if step < 0.75 {
			step = 0.75
		} else if step > 1.25 {
			step = 1.25
		}
		closes[i] = closes[i+1] / step
	}
	return closes
}

type indicatorSet struct {
	MA50       float64
	MA200      float64
	RSI        float64
	MACD       float64
	MACDSignal float64
}

// computeIndicators derives the quote's trend and momentum fields from a close
// series, the same way a real-data adapter would from downloaded history.
func computeIndicators(closes []float64) indicatorSet {
	sma50 := talib.Sma(closes, 50)
	sma200 := talib.Sma(closes, 200)
	rsi := talib.Rsi(closes, 14)
	macdLine, signalLine, _ := talib.Macd(closes, 12, 26, 9)

	last := len(closes) - 1
	return indicatorSet{
		MA50:       round2(sma50[last]),
		MA200:      round2(sma200[last]),
		RSI:        round2(clamp(rsi[last], 0, 100)),
		MACD:       round3(macdLine[last]),
		MACDSignal: round3(signalLine[last]),
	}
}
