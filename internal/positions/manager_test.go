package positions

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "positions.json"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

// go test -v --run TestAddAndReload
func TestAddAndReload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "positions.json")

	m, err := NewManager(file, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := m.Add("aapl", 300, 150.50, "taxable", "core holding"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add("TSLA", 150, 210.00, "", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// A fresh manager on the same file sees the persisted portfolio.
	reloaded, err := NewManager(file, zap.NewNop())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	pos, ok := reloaded.Get("AAPL")
	if !ok {
		t.Fatal("AAPL not found after reload")
	}
	if pos.Shares != 300 || pos.CostBasis != 150.50 {
		t.Errorf("unexpected position after reload: %+v", pos)
	}

	tsla, _ := reloaded.Get("tsla")
	if tsla.AccountType != "taxable" {
		t.Errorf("empty account type should default to taxable, got %q", tsla.AccountType)
	}
}

// go test -v --run TestAddValidation
func TestAddValidation(t *testing.T) {
	m := newTestManager(t)

	if err := m.Add("AAPL", 0, 100, "taxable", ""); err == nil {
		t.Error("zero shares should be rejected")
	}
	if err := m.Add("AAPL", 100, -5, "taxable", ""); err == nil {
		t.Error("negative cost basis should be rejected")
	}
	if len(m.All()) != 0 {
		t.Error("rejected adds must not be stored")
	}
}

// go test -v --run TestUpdatePartialFields
func TestUpdatePartialFields(t *testing.T) {
	m := newTestManager(t)
	if err := m.Add("PLTR", 500, 22.00, "ira", "speculative"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	shares := 700
	if err := m.Update("pltr", Update{Shares: &shares}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	pos, _ := m.Get("PLTR")
	if pos.Shares != 700 {
		t.Errorf("shares not updated: %d", pos.Shares)
	}
	if pos.CostBasis != 22.00 || pos.AccountType != "ira" || pos.Notes != "speculative" {
		t.Errorf("untouched fields changed: %+v", pos)
	}

	if err := m.Update("MSFT", Update{Shares: &shares}); err == nil {
		t.Error("updating a missing position should fail")
	}
}

// go test -v --run TestDeletePosition
func TestDeletePosition(t *testing.T) {
	m := newTestManager(t)
	if err := m.Add("SPY", 200, 430, "taxable", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := m.Delete("SPY"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := m.Get("SPY"); ok {
		t.Error("SPY still present after delete")
	}
	if err := m.Delete("SPY"); err == nil {
		t.Error("deleting twice should fail")
	}
}

// go test -v --run TestEligibleAndCapacity
func TestEligibleAndCapacity(t *testing.T) {
	m := newTestManager(t)
	m.Add("AAPL", 250, 150, "taxable", "")
	m.Add("TSLA", 99, 200, "taxable", "") // below one contract
	m.Add("SPY", 100, 430, "ira", "")

	eligible := m.Eligible(100)
	if len(eligible) != 2 {
		t.Fatalf("expected 2 eligible positions, got %d", len(eligible))
	}
	if _, ok := eligible["TSLA"]; ok {
		t.Error("TSLA with 99 shares should not be eligible")
	}

	capacity := m.Capacity()
	if capacity["AAPL"] != 2 {
		t.Errorf("AAPL should back 2 contracts, got %d", capacity["AAPL"])
	}
	if capacity["SPY"] != 1 {
		t.Errorf("SPY should back 1 contract, got %d", capacity["SPY"])
	}
	if _, ok := capacity["TSLA"]; ok {
		t.Error("TSLA has no contract capacity")
	}

	ira := m.ByAccount("ira")
	if len(ira) != 1 {
		t.Errorf("expected 1 ira position, got %d", len(ira))
	}
}

// go test -v --run TestValuation
func TestValuation(t *testing.T) {
	m := newTestManager(t)
	m.Add("AAPL", 100, 150, "taxable", "")
	m.Add("TSLA", 200, 250, "taxable", "")

	v := m.Valuation(map[string]float64{
		"AAPL": 165, // +10%
		"TSLA": 225, // -10%
	})

	wantCost := decimal.NewFromInt(100*150 + 200*250)
	if !v.TotalCost.Equal(wantCost) {
		t.Errorf("total cost %s, want %s", v.TotalCost, wantCost)
	}
	wantValue := decimal.NewFromInt(100*165 + 200*225)
	if !v.TotalValue.Equal(wantValue) {
		t.Errorf("total value %s, want %s", v.TotalValue, wantValue)
	}

	aapl := v.Positions["AAPL"]
	if !aapl.GainLoss.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("AAPL gain %s, want 1500", aapl.GainLoss)
	}
	if !aapl.GainLossPct.Equal(decimal.NewFromInt(10)) {
		t.Errorf("AAPL gain pct %s, want 10", aapl.GainLossPct)
	}

	tsla := v.Positions["TSLA"]
	if !tsla.GainLoss.Equal(decimal.NewFromInt(-5000)) {
		t.Errorf("TSLA gain %s, want -5000", tsla.GainLoss)
	}
}

// go test -v --run TestValuationMissingPrice
func TestValuationMissingPrice(t *testing.T) {
	m := newTestManager(t)
	m.Add("AAPL", 100, 150, "taxable", "")
	m.Add("MGNI", 1000, 15, "taxable", "")

	v := m.Valuation(map[string]float64{"AAPL": 150})

	// MGNI has no quote: it contributes cost but no marked value.
	if _, ok := v.Positions["MGNI"]; ok {
		t.Error("unpriced position should not have a value row")
	}
	wantCost := decimal.NewFromInt(100*150 + 1000*15)
	if !v.TotalCost.Equal(wantCost) {
		t.Errorf("total cost %s, want %s", v.TotalCost, wantCost)
	}
	if !v.TotalValue.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("total value %s, want 15000", v.TotalValue)
	}
}
