package marketdata

// IVSnapshot is a lightweight volatility picture for a symbol: current implied
// volatility, its rank and percentile, short-window historical volatility and
// the 52-week IV extremes. Snapshots are sampled fresh on every request and
// are intentionally not reconciled with the iv_rank on the symbol's quote.
type IVSnapshot struct {
	Symbol       string  `json:"symbol"`
	CurrentIV    float64 `json:"current_iv"`
	IVRank       float64 `json:"iv_rank"`
	IVPercentile float64 `json:"iv_percentile"`
	HV20         float64 `json:"hv_20"` // 20-day historical volatility, percent
	HV30         float64 `json:"hv_30"` // 30-day historical volatility, percent
	IVHigh52W    float64 `json:"iv_high_52w"`
	IVLow52W     float64 `json:"iv_low_52w"`
}
