package positions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Position is one stock holding eligible for covered call writing.
type Position struct {
	Symbol      string    `json:"symbol"`
	Shares      int       `json:"shares"`
	CostBasis   float64   `json:"cost_basis"` // per share
	AccountType string    `json:"account_type"`
	DateAdded   time.Time `json:"date_added"`
	Notes       string    `json:"notes,omitempty"`
}

// Contracts returns how many covered calls the position can back.
func (p Position) Contracts() int {
	return p.Shares / 100
}

// Manager holds the portfolio and persists it to a JSON file after every
// mutation, matching the layout the dashboard has always stored.
type Manager struct {
	mu        sync.Mutex
	file      string
	positions map[string]Position
	log       *zap.Logger
}

// NewManager loads positions from file. A missing file is not an error; the
// portfolio starts empty and the file is created on the first save.
func NewManager(file string, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		file:      file,
		positions: make(map[string]Position),
		log:       logger,
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read positions file: %w", err)
	}
	if err := json.Unmarshal(raw, &m.positions); err != nil {
		return nil, fmt.Errorf("parse positions file: %w", err)
	}

	logger.Info("loaded positions", zap.Int("count", len(m.positions)))
	return m, nil
}

// Add creates or replaces a position.
func (m *Manager) Add(symbol string, shares int, costBasis float64, accountType, notes string) error {
	if shares <= 0 {
		return fmt.Errorf("shares must be positive, got %d", shares)
	}
	if costBasis <= 0 {
		return fmt.Errorf("cost basis must be positive, got %.2f", costBasis)
	}
	if accountType == "" {
		accountType = "taxable"
	}

	symbol = strings.ToUpper(symbol)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.positions[symbol] = Position{
		Symbol:      symbol,
		Shares:      shares,
		CostBasis:   costBasis,
		AccountType: accountType,
		DateAdded:   time.Now(),
		Notes:       notes,
	}
	m.log.Info("position added",
		zap.String("symbol", symbol),
		zap.Int("shares", shares))
	return m.save()
}

// Update applies the non-nil fields to an existing position.
type Update struct {
	Shares      *int
	CostBasis   *float64
	AccountType *string
	Notes       *string
}

func (m *Manager) Update(symbol string, u Update) error {
	symbol = strings.ToUpper(symbol)

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return fmt.Errorf("position %s not found", symbol)
	}

	if u.Shares != nil {
		pos.Shares = *u.Shares
	}
	if u.CostBasis != nil {
		pos.CostBasis = *u.CostBasis
	}
	if u.AccountType != nil {
		pos.AccountType = *u.AccountType
	}
	if u.Notes != nil {
		pos.Notes = *u.Notes
	}

	m.positions[symbol] = pos
	return m.save()
}

func (m *Manager) Delete(symbol string) error {
	symbol = strings.ToUpper(symbol)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.positions[symbol]; !ok {
		return fmt.Errorf("position %s not found", symbol)
	}
	delete(m.positions, symbol)
	return m.save()
}

func (m *Manager) Get(symbol string) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[strings.ToUpper(symbol)]
	return pos, ok
}

// All returns a copy of the portfolio.
func (m *Manager) All() map[string]Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Position, len(m.positions))
	for sym, pos := range m.positions {
		out[sym] = pos
	}
	return out
}

// Eligible returns positions with at least minShares shares (100 for one
// covered call contract).
func (m *Manager) Eligible(minShares int) map[string]Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Position)
	for sym, pos := range m.positions {
		if pos.Shares >= minShares {
			out[sym] = pos
		}
	}
	return out
}

// ByAccount returns positions held in the given account type.
func (m *Manager) ByAccount(accountType string) map[string]Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Position)
	for sym, pos := range m.positions {
		if pos.AccountType == accountType {
			out[sym] = pos
		}
	}
	return out
}

// Capacity returns how many covered call contracts each position can back.
func (m *Manager) Capacity() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int)
	for sym, pos := range m.positions {
		if contracts := pos.Contracts(); contracts > 0 {
			out[sym] = contracts
		}
	}
	return out
}

// PositionValue is the marked-to-market view of one holding.
type PositionValue struct {
	Shares       int             `json:"shares"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalValue   decimal.Decimal `json:"total_value"`
	GainLoss     decimal.Decimal `json:"gain_loss"`
	GainLossPct  decimal.Decimal `json:"gain_loss_pct"`
}

type Valuation struct {
	Positions        map[string]PositionValue `json:"positions"`
	TotalCost        decimal.Decimal          `json:"total_cost"`
	TotalValue       decimal.Decimal          `json:"total_value"`
	TotalGainLoss    decimal.Decimal          `json:"total_gain_loss"`
	TotalGainLossPct decimal.Decimal          `json:"total_gain_loss_pct"`
}

// Valuation marks the portfolio to the given prices. Positions without a
// price contribute cost but no value rows. Money math runs on decimals; the
// float quotes are converted once at the boundary.
func (m *Manager) Valuation(prices map[string]float64) Valuation {
	m.mu.Lock()
	defer m.mu.Unlock()

	hundred := decimal.NewFromInt(100)
	totalCost := decimal.Zero
	totalValue := decimal.Zero
	values := make(map[string]PositionValue)

	for sym, pos := range m.positions {
		shares := decimal.NewFromInt(int64(pos.Shares))
		basis := decimal.NewFromFloat(pos.CostBasis)
		cost := shares.Mul(basis)
		totalCost = totalCost.Add(cost)

		price, ok := prices[sym]
		if !ok {
			continue
		}

		current := decimal.NewFromFloat(price)
		value := shares.Mul(current)
		totalValue = totalValue.Add(value)

		gain := value.Sub(cost)
		gainPct := decimal.Zero
		if !cost.IsZero() {
			gainPct = gain.Div(cost).Mul(hundred).Round(2)
		}

		values[sym] = PositionValue{
			Shares:       pos.Shares,
			CostBasis:    basis,
			CurrentPrice: current,
			TotalCost:    cost,
			TotalValue:   value,
			GainLoss:     gain,
			GainLossPct:  gainPct,
		}
	}

	totalGain := totalValue.Sub(totalCost)
	totalGainPct := decimal.Zero
	if !totalCost.IsZero() {
		totalGainPct = totalGain.Div(totalCost).Mul(hundred).Round(2)
	}

	return Valuation{
		Positions:        values,
		TotalCost:        totalCost,
		TotalValue:       totalValue,
		TotalGainLoss:    totalGain,
		TotalGainLossPct: totalGainPct,
	}
}

// save writes the portfolio to disk. Caller holds m.mu.
func (m *Manager) save() error {
	if dir := filepath.Dir(m.file); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	raw, err := json.MarshalIndent(m.positions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode positions: %w", err)
	}
	if err := os.WriteFile(m.file, raw, 0644); err != nil {
		return fmt.Errorf("write positions file: %w", err)
	}
	return nil
}
