package risk

import (
	"fmt"
	"math"
	"time"

	"covcall/config"
	"covcall/internal/marketdata"

	"go.uber.org/zap"
)

// MarketData is the slice of the market data engine the monitor needs.
type MarketData interface {
	GetQuote(symbol string) marketdata.Quote
	GetOptionsChain(symbol string) marketdata.Chain
}

// OpenCall is a covered call currently sold against a position.
type OpenCall struct {
	Symbol       string  `json:"symbol"`
	Strike       float64 `json:"strike"`
	Expiration   string  `json:"expiration"` // YYYY-MM-DD
	Contracts    int     `json:"contracts"`
	EntryPremium float64 `json:"entry_premium"` // per share, as received
	EntryDate    string  `json:"entry_date"`    // YYYY-MM-DD
	EntryIVRank  float64 `json:"entry_iv_rank"`
}

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Assignment risk bands, from safe to in the money.
const (
	AssignmentNone     = "NONE"
	AssignmentWatch    = "WATCH"    // within 2% of the strike
	AssignmentElevated = "ELEVATED" // within 0.5% of the strike
	AssignmentHigh     = "HIGH"     // at or above the strike
)

// Alert is one actionable finding on an open call.
type Alert struct {
	Symbol   string   `json:"symbol"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Action   string   `json:"action"`
}

// Assessment is the full risk picture for one open call.
type Assessment struct {
	Symbol            string  `json:"symbol"`
	Strike            float64 `json:"strike"`
	Expiration        string  `json:"expiration"`
	DaysToExp         int     `json:"days_to_exp"`
	UnderlyingPrice   float64 `json:"underlying_price"`
	EstimatedPremium  float64 `json:"estimated_premium"`
	ProfitCapturedPct float64 `json:"profit_captured_pct"`
	Delta             float64 `json:"delta"`
	AssignmentRisk    string  `json:"assignment_risk"`
	Alerts            []Alert `json:"alerts"`
}

// Monitor applies the 21-50-7 management rule to open covered calls: close at
// 50% of max profit, manage at 21 days to expiration, act by 7.
type Monitor struct {
	cfg    config.RiskConfig
	market MarketData
	now    func() time.Time
	log    *zap.Logger
}

func NewMonitor(cfg config.RiskConfig, market MarketData, logger *zap.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		market: market,
		now:    time.Now,
		log:    logger,
	}
}

// AssessAll evaluates every open call and returns the assessments in input
// order.
func (m *Monitor) AssessAll(calls []OpenCall) []Assessment {
	out := make([]Assessment, 0, len(calls))
	for _, call := range calls {
		out = append(out, m.Assess(call))
	}
	return out
}

// Assess evaluates one open call against the current market.
func (m *Monitor) Assess(call OpenCall) Assessment {
	quote := m.market.GetQuote(call.Symbol)
	now := m.now()

	dte := 0
	if expDate, err := time.Parse("2006-01-02", call.Expiration); err == nil {
		if d := int(expDate.Sub(now).Hours() / 24); d > 0 {
			dte = d
		}
	}

	estimated := m.estimatePremium(call, dte)
	captured := 0.0
	if call.EntryPremium > 0 {
		captured = (call.EntryPremium - estimated) / call.EntryPremium * 100
	}

	delta := m.lookupDelta(call)

	a := Assessment{
		Symbol:            quote.Symbol,
		Strike:            call.Strike,
		Expiration:        call.Expiration,
		DaysToExp:         dte,
		UnderlyingPrice:   quote.Price,
		EstimatedPremium:  estimated,
		ProfitCapturedPct: round1(captured),
		Delta:             delta,
		AssignmentRisk:    assignmentRisk(quote.Price, call.Strike),
	}

	a.Alerts = m.alerts(call, quote, a)

	m.log.Debug("assessed open call",
		zap.String("symbol", a.Symbol),
		zap.Int("dte", a.DaysToExp),
		zap.Float64("profit_captured_pct", a.ProfitCapturedPct),
		zap.String("assignment_risk", a.AssignmentRisk),
		zap.Int("alerts", len(a.Alerts)))
	return a
}

// estimatePremium approximates what buying the call back would cost now.
// Time value decays toward expiration; roughly 70% of the decay is assumed
// realized pro rata, which understates early decay and is deliberately
// conservative about declaring profit captured.
func (m *Monitor) estimatePremium(call OpenCall, dte int) float64 {
	entry, err := time.Parse("2006-01-02", call.EntryDate)
	if err != nil {
		return call.EntryPremium
	}
	exp, err := time.Parse("2006-01-02", call.Expiration)
	if err != nil {
		return call.EntryPremium
	}

	total := exp.Sub(entry).Hours() / 24
	if total <= 0 {
		return call.EntryPremium
	}

	elapsed := 1 - float64(dte)/total
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > 1 {
		elapsed = 1
	}

	est := call.EntryPremium * (1 - elapsed*0.7)
	return round2(est)
}

// lookupDelta finds the call's current delta in the live chain. A contract
// that has rolled off the chain reads as zero.
func (m *Monitor) lookupDelta(call OpenCall) float64 {
	chain := m.market.GetOptionsChain(call.Symbol)
	strikes, ok := chain[call.Expiration]
	if !ok {
		return 0
	}
	contract, ok := strikes[int(call.Strike)]
	if !ok {
		return 0
	}
	return contract.Delta
}

func assignmentRisk(price, strike float64) string {
	switch {
	case price >= strike:
		return AssignmentHigh
	case price >= strike*0.995:
		return AssignmentElevated
	case price >= strike*0.98:
		return AssignmentWatch
	default:
		return AssignmentNone
	}
}

func (m *Monitor) alerts(call OpenCall, quote marketdata.Quote, a Assessment) []Alert {
	var alerts []Alert

	if a.ProfitCapturedPct >= m.cfg.MaxProfitPct {
		alerts = append(alerts, Alert{
			Symbol:   a.Symbol,
			Rule:     "PROFIT_TARGET",
			Severity: SeverityWarning,
			Message: fmt.Sprintf("%.0f%% of max profit captured (target %.0f%%)",
				a.ProfitCapturedPct, m.cfg.MaxProfitPct),
			Action: "BUY TO CLOSE and redeploy",
		})
	}

	switch {
	case a.DaysToExp <= m.cfg.DTECritical:
		alerts = append(alerts, Alert{
			Symbol:   a.Symbol,
			Rule:     "EXPIRATION",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("%d days to expiration", a.DaysToExp),
			Action:   "close or roll today; gamma risk is at its worst",
		})
	case a.DaysToExp <= m.cfg.DTEWarning:
		alerts = append(alerts, Alert{
			Symbol:   a.Symbol,
			Rule:     "EXPIRATION",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d days to expiration", a.DaysToExp),
			Action:   "plan the close or roll",
		})
	}

	switch a.AssignmentRisk {
	case AssignmentHigh:
		alerts = append(alerts, Alert{
			Symbol:   a.Symbol,
			Rule:     "ASSIGNMENT",
			Severity: SeverityCritical,
			Message: fmt.Sprintf("underlying %.2f at or above the %.2f strike",
				quote.Price, call.Strike),
			Action: "roll up and out, or prepare to deliver shares",
		})
	case AssignmentElevated:
		alerts = append(alerts, Alert{
			Symbol:   a.Symbol,
			Rule:     "ASSIGNMENT",
			Severity: SeverityWarning,
			Message: fmt.Sprintf("underlying %.2f within 0.5%% of the %.2f strike",
				quote.Price, call.Strike),
			Action: "watch closely; decide on the roll before expiration week",
		})
	}

	if a.Delta >= m.cfg.CriticalDelta {
		alerts = append(alerts, Alert{
			Symbol:   a.Symbol,
			Rule:     "DELTA",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("delta %.2f: assignment is the likely outcome", a.Delta),
			Action:   "roll or accept assignment",
		})
	} else if a.Delta >= m.cfg.HighDelta {
		alerts = append(alerts, Alert{
			Symbol:   a.Symbol,
			Rule:     "DELTA",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("delta %.2f: call trading like stock", a.Delta),
			Action:   "consider rolling up",
		})
	}

	if earnings, err := time.Parse("2006-01-02", quote.NextEarningsDate); err == nil {
		if exp, err := time.Parse("2006-01-02", call.Expiration); err == nil && !earnings.After(exp) {
			alerts = append(alerts, Alert{
				Symbol:   a.Symbol,
				Rule:     "EARNINGS",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("earnings %s lands before expiration", quote.NextEarningsDate),
				Action:   "expect a volatility move through the strike",
			})
		}
	}

	// A collapse in IV rank since entry means most of the extrinsic value is
	// gone; buying back early locks in the vol gain.
	if call.EntryIVRank > 0 && quote.IVRank < call.EntryIVRank-20 {
		alerts = append(alerts, Alert{
			Symbol:   a.Symbol,
			Rule:     "IV_CRUSH",
			Severity: SeverityInfo,
			Message: fmt.Sprintf("IV rank fell from %.0f to %.0f since entry",
				call.EntryIVRank, quote.IVRank),
			Action: "premium is cheap to buy back",
		})
	}

	return alerts
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
