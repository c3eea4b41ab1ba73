package dashboard

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"covcall/config"
	"covcall/internal/growth"
	"covcall/internal/marketdata"
	"covcall/internal/positions"
	"covcall/internal/risk"
	"covcall/internal/scanner"
	"covcall/internal/whale"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// stubMarket serves canned data to every component behind the server.
type stubMarket struct {
	quote marketdata.Quote
	chain marketdata.Chain
	flows []marketdata.WhaleFlow
}

func (s stubMarket) GetQuote(string) marketdata.Quote        { return s.quote }
func (s stubMarket) GetOptionsChain(string) marketdata.Chain { return s.chain }
func (s stubMarket) GetWhaleFlows(float64) []marketdata.WhaleFlow {
	return s.flows
}
func (s stubMarket) GetIVData(symbol string) marketdata.IVSnapshot {
	return marketdata.IVSnapshot{Symbol: symbol, CurrentIV: 0.4}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	exp := time.Now().AddDate(0, 0, 32).Format("2006-01-02")
	market := stubMarket{
		quote: marketdata.Quote{
			Symbol:               "TEST",
			Price:                100,
			IVRank:               60,
			MA50:                 100,
			MA200:                105,
			RSI:                  50,
			AvgVolume10D:         1_000_000,
			AvgVolume50D:         1_000_000,
			Volatility30D:        30,
			Beta:                 1.0,
			RevenueGrowthYoY:     5,
			EarningsGrowthYoY:    5,
			AnalystRating:        3.0,
			OptionsSentiment:     "neutral",
			SocialSentimentScore: 50,
			NextEarningsDate:     "2099-01-01",
		},
		chain: marketdata.Chain{
			exp: {107: {
				Strike:       107,
				Expiration:   exp,
				Bid:          2.10,
				Ask:          2.20,
				Last:         2.15,
				Volume:       500,
				OpenInterest: 1000,
				Delta:        0.20,
				IVRank:       55,
			}},
		},
		flows: []marketdata.WhaleFlow{{
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
		}},
	}

	log := zap.NewNop()
	scannerCfg := config.ScannerConfig{
		MinIVRank:       30,
		MinVolume:       10,
		MaxSpreadPct:    0.15,
		MinOpenInterest: 10,
		MinPremium:      0.10,
		TargetDTEMin:    25,
		TargetDTEMax:    45,
		MinMonthlyYield: 0.02,
		MaxResults:      20,
	}
	riskCfg := config.RiskConfig{
		MaxProfitPct:  50,
		DTEWarning:    21,
		DTECritical:   7,
		HighDelta:     0.70,
		CriticalDelta: 0.85,
	}

	pos, err := positions.NewManager(filepath.Join(t.TempDir(), "positions.json"), log)
	if err != nil {
		t.Fatalf("positions manager: %v", err)
	}

	return NewServer(
		config.DashboardConfig{Address: ":0", FlowInterval: 10 * time.Millisecond},
		market,
		scanner.NewScanner(scannerCfg, market, growth.NewAnalyzer(log), log),
		risk.NewMonitor(riskCfg, market, log),
		whale.NewTracker(market, 0, log),
		pos,
		nil, // trade log disabled
		log,
	)
}

// go test -v --run TestQuoteEndpoint
func TestQuoteEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/quote?symbol=TEST")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var q marketdata.Quote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if q.Symbol != "TEST" || q.Price != 100 {
		t.Errorf("unexpected quote: %+v", q)
	}

	missing, err := http.Get(ts.URL + "/api/quote")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusBadRequest {
		t.Errorf("missing symbol status = %d, want 400", missing.StatusCode)
	}
}

// go test -v --run TestOpportunitiesEndpoint
func TestOpportunitiesEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/opportunities?symbols=TEST")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var opps []scanner.Opportunity
	if err := json.NewDecoder(resp.Body).Decode(&opps); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}
	if opps[0].Strike != 107 {
		t.Errorf("strike = %.0f, want 107", opps[0].Strike)
	}

	// No symbols and no positions: empty array, not an error.
	empty, err := http.Get(ts.URL + "/api/opportunities")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer empty.Body.Close()
	if empty.StatusCode != http.StatusOK {
		t.Errorf("empty scan status = %d, want 200", empty.StatusCode)
	}
}

// go test -v --run TestPositionsLifecycle
func TestPositionsLifecycle(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	body, _ := json.Marshal(addPositionRequest{
		Symbol:    "TEST",
		Shares:    200,
		CostBasis: 90,
	})
	resp, err := http.Post(ts.URL+"/api/positions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d, want 201", resp.StatusCode)
	}

	get, err := http.Get(ts.URL + "/api/positions")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer get.Body.Close()

	var v positions.Valuation
	if err := json.NewDecoder(get.Body).Decode(&v); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	pv, ok := v.Positions["TEST"]
	if !ok {
		t.Fatal("TEST missing from valuation")
	}
	// 200 shares at cost 90, quoted 100.
	if pv.GainLoss.String() != "2000" {
		t.Errorf("gain = %s, want 2000", pv.GainLoss)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/positions?symbol=TEST", nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d, want 200", del.StatusCode)
	}
}

// go test -v --run TestAlertsEndpoint
func TestAlertsEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	calls := []risk.OpenCall{{
		Symbol:       "TEST",
		Strike:       110,
		Expiration:   time.Now().AddDate(0, 0, 40).Format("2006-01-02"),
		EntryPremium: 2.00,
		EntryDate:    time.Now().Format("2006-01-02"),
	}}
	body, _ := json.Marshal(calls)

	resp, err := http.Post(ts.URL+"/api/alerts", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	defer resp.Body.Close()

	var assessments []risk.Assessment
	if err := json.NewDecoder(resp.Body).Decode(&assessments); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(assessments) != 1 {
		t.Fatalf("expected 1 assessment, got %d", len(assessments))
	}
	if assessments[0].Symbol != "TEST" {
		t.Errorf("assessment symbol = %s", assessments[0].Symbol)
	}
}

// go test -v --run TestTradesDisabled
func TestTradesDisabled(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/trades")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when the trade log is off", resp.StatusCode)
	}
}

// go test -v --run TestFlowStreamWebsocket
func TestFlowStreamWebsocket(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/flows"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The first batch arrives immediately, the second on the 10ms ticker.
	for i := 0; i < 2; i++ {
		var flows []whale.ScoredFlow
		if err := conn.ReadJSON(&flows); err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if len(flows) != 1 || flows[0].Symbol != "NVDA" {
			t.Fatalf("read %d: unexpected batch %+v", i, flows)
		}
		if flows[0].Conviction != whale.ConvictionExtreme {
			t.Errorf("read %d: conviction = %s, want EXTREME", i, flows[0].Conviction)
		}
	}
}
