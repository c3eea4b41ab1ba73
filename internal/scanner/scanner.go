package scanner

import (
	"math"
	"sort"
	"time"

	"covcall/config"
	"covcall/internal/growth"
	"covcall/internal/marketdata"

	"go.uber.org/zap"
)

// MarketData is the slice of the market data engine the scanner needs.
type MarketData interface {
	GetQuote(symbol string) marketdata.Quote
	GetOptionsChain(symbol string) marketdata.Chain
}

// Opportunity is one covered call candidate that cleared every filter.
type Opportunity struct {
	Symbol          string  `json:"symbol"`
	UnderlyingPrice float64 `json:"underlying_price"`
	Strike          float64 `json:"strike"`
	Expiration      string  `json:"expiration"`
	DaysToExp       int     `json:"days_to_exp"`

	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Premium   float64 `json:"premium"` // mid
	SpreadPct float64 `json:"spread_pct"`

	Volume       int     `json:"volume"`
	OpenInterest int     `json:"open_interest"`
	IVRank       float64 `json:"iv_rank"`
	Delta        float64 `json:"delta"`

	MonthlyYield   float64 `json:"monthly_yield"`    // static return normalized to 30 days
	IfCalledReturn float64 `json:"if_called_return"` // includes upside to the strike, 30-day basis
	WinProbability float64 `json:"win_probability"`  // percent chance of expiring OTM

	GrowthScore int             `json:"growth_score"`
	Strategy    growth.Strategy `json:"strategy"`
	Confidence  float64         `json:"confidence_score"`

	EarningsRisk     bool   `json:"earnings_risk"`
	NextEarningsDate string `json:"next_earnings_date,omitempty"`
}

// strikeWindow bounds the strike as a multiple of the underlying price.
type strikeWindow struct {
	lo, hi float64
}

// Per-strategy strike windows. PROTECT has no window: those symbols are
// skipped entirely.
var strikeWindows = map[growth.Strategy]strikeWindow{
	growth.StrategyAggressive:   {1.00, 1.03},
	growth.StrategyModerate:     {1.02, 1.07},
	growth.StrategyConservative: {1.05, 1.12},
}

const minConfidence = 50.0

// Scanner walks options chains looking for covered call candidates that clear
// the configured liquidity, yield and confidence bars, with strikes chosen
// according to each symbol's growth posture.
type Scanner struct {
	cfg    config.ScannerConfig
	market MarketData
	growth *growth.Analyzer
	now    func() time.Time
	log    *zap.Logger
}

func NewScanner(cfg config.ScannerConfig, market MarketData, analyzer *growth.Analyzer, logger *zap.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		market: market,
		growth: analyzer,
		now:    time.Now,
		log:    logger,
	}
}

// Scan evaluates all symbols and returns the best opportunities sorted by
// confidence, capped at the configured maximum.
func (s *Scanner) Scan(symbols []string) []Opportunity {
	var out []Opportunity
	for _, symbol := range symbols {
		out = append(out, s.scanSymbol(symbol)...)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if s.cfg.MaxResults > 0 && len(out) > s.cfg.MaxResults {
		out = out[:s.cfg.MaxResults]
	}

	s.log.Info("scan complete",
		zap.Int("symbols", len(symbols)),
		zap.Int("opportunities", len(out)))
	return out
}

func (s *Scanner) scanSymbol(symbol string) []Opportunity {
	quote := s.market.GetQuote(symbol)
	analysis := s.growth.Score(quote)

	window, ok := strikeWindows[analysis.Recommendation.Strategy]
	if !ok {
		s.log.Debug("skipping protected position",
			zap.String("symbol", quote.Symbol),
			zap.Int("growth_score", analysis.TotalScore))
		return nil
	}

	if quote.IVRank < s.cfg.MinIVRank {
		return nil
	}

	chain := s.market.GetOptionsChain(symbol)
	now := s.now()

	var out []Opportunity
	for expiration, strikes := range chain {
		expDate, err := time.Parse("2006-01-02", expiration)
		if err != nil {
			continue
		}
		dte := int(expDate.Sub(now).Hours() / 24)
		if dte < s.cfg.TargetDTEMin || dte > s.cfg.TargetDTEMax {
			continue
		}

		for strike, contract := range strikes {
			ratio := float64(strike) / quote.Price
			if ratio < window.lo || ratio > window.hi {
				continue
			}

			opp, ok := s.evaluate(quote, analysis, contract, dte)
			if ok {
				out = append(out, opp)
			}
		}
	}
	return out
}

// evaluate applies the liquidity and yield filters to a single contract and,
// if it survives, scores it.
func (s *Scanner) evaluate(quote marketdata.Quote, analysis growth.Analysis, c marketdata.OptionContract, dte int) (Opportunity, bool) {
	premium := (c.Bid + c.Ask) / 2
	if premium < s.cfg.MinPremium {
		return Opportunity{}, false
	}
	if c.Volume < s.cfg.MinVolume || c.OpenInterest < s.cfg.MinOpenInterest {
		return Opportunity{}, false
	}

	spreadPct := (c.Ask - c.Bid) / premium
	if spreadPct > s.cfg.MaxSpreadPct {
		return Opportunity{}, false
	}

	// Static return on the stock, normalized to a 30-day month.
	monthlyYield := premium / quote.Price * 30 / float64(dte)
	if monthlyYield < s.cfg.MinMonthlyYield {
		return Opportunity{}, false
	}

	// If-called return adds the capital gain up to the strike.
	ifCalled := (premium + math.Max(0, c.Strike-quote.Price)) / quote.Price * 30 / float64(dte)

	winProb := winProbability(quote, c, dte)
	confidence := s.confidence(quote, analysis, c, monthlyYield, winProb)
	if confidence <= minConfidence {
		return Opportunity{}, false
	}

	earningsRisk := false
	if earnings, err := time.Parse("2006-01-02", quote.NextEarningsDate); err == nil {
		if expDate, err := time.Parse("2006-01-02", c.Expiration); err == nil {
			earningsRisk = !earnings.After(expDate)
		}
	}

	return Opportunity{
		Symbol:          quote.Symbol,
		UnderlyingPrice: quote.Price,
		Strike:          c.Strike,
		Expiration:      c.Expiration,
		DaysToExp:       dte,

		Bid:       c.Bid,
		Ask:       c.Ask,
		Premium:   premium,
		SpreadPct: spreadPct,

		Volume:       c.Volume,
		OpenInterest: c.OpenInterest,
		IVRank:       c.IVRank,
		Delta:        c.Delta,

		MonthlyYield:   monthlyYield,
		IfCalledReturn: ifCalled,
		WinProbability: winProb,

		GrowthScore: analysis.TotalScore,
		Strategy:    analysis.Recommendation.Strategy,
		Confidence:  confidence,

		EarningsRisk:     earningsRisk,
		NextEarningsDate: quote.NextEarningsDate,
	}, true
}

// winProbability estimates the chance the call expires worthless. Delta is
// the first choice of proxy; without one, fall back to a lognormal estimate
// of the strike staying above the terminal price, then to coarse
// OTM-distance buckets.
func winProbability(quote marketdata.Quote, c marketdata.OptionContract, dte int) float64 {
	if c.Delta > 0 {
		return clampProb((1 - math.Abs(c.Delta)) * 100)
	}

	if quote.Volatility30D > 0 && dte > 0 && quote.Price > 0 {
		sigma := quote.Volatility30D / 100 * math.Sqrt(float64(dte)/365)
		z := math.Log(c.Strike/quote.Price) / sigma
		return clampProb(0.5 * (1 + math.Erf(z/math.Sqrt2)) * 100)
	}

	otm := (c.Strike - quote.Price) / quote.Price
	switch {
	case otm >= 0.10:
		return 85
	case otm >= 0.05:
		return 75
	case otm >= 0.02:
		return 65
	default:
		return 50
	}
}

// confidence blends volatility richness, win odds, yield, liquidity and the
// inverse growth score into one 0-100 figure.
func (s *Scanner) confidence(quote marketdata.Quote, analysis growth.Analysis, c marketdata.OptionContract, monthlyYield, winProb float64) float64 {
	ivScore := math.Min(quote.IVRank*1.5, 100)
	yieldScore := math.Min(monthlyYield*100*20, 100)
	liquidityScore := math.Min(
		(math.Min(float64(c.Volume)/500, 1)+math.Min(float64(c.OpenInterest)/500, 1))*50, 100)
	growthFit := 100 - float64(analysis.TotalScore)

	return ivScore*0.25 + winProb*0.25 + yieldScore*0.20 + liquidityScore*0.15 + growthFit*0.15
}

func clampProb(v float64) float64 {
	return math.Max(1, math.Min(99, v))
}
