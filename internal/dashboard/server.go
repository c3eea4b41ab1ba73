package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"covcall/config"
	"covcall/internal/marketdata"
	"covcall/internal/positions"
	"covcall/internal/risk"
	"covcall/internal/scanner"
	"covcall/internal/whale"
	"covcall/pkg/storage/postgres"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MarketData is the slice of the market data engine the dashboard serves.
type MarketData interface {
	GetQuote(symbol string) marketdata.Quote
	GetOptionsChain(symbol string) marketdata.Chain
	GetWhaleFlows(minPremium float64) []marketdata.WhaleFlow
	GetIVData(symbol string) marketdata.IVSnapshot
}

// Server exposes the engine over a JSON API plus a WebSocket stream of scored
// whale flows.
type Server struct {
	cfg       config.DashboardConfig
	market    MarketData
	scanner   *scanner.Scanner
	monitor   *risk.Monitor
	tracker   *whale.Tracker
	positions *positions.Manager
	trades    *postgres.PostgresClient // nil when the trade log is disabled
	log       *zap.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

func NewServer(
	cfg config.DashboardConfig,
	market MarketData,
	sc *scanner.Scanner,
	monitor *risk.Monitor,
	tracker *whale.Tracker,
	pos *positions.Manager,
	trades *postgres.PostgresClient,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cfg:       cfg,
		market:    market,
		scanner:   sc,
		monitor:   monitor,
		tracker:   tracker,
		positions: pos,
		trades:    trades,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard frontend is served from anywhere during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/quote", s.handleQuote)
	mux.HandleFunc("/api/chain", s.handleChain)
	mux.HandleFunc("/api/iv", s.handleIV)
	mux.HandleFunc("/api/flows", s.handleFlows)
	mux.HandleFunc("/api/opportunities", s.handleOpportunities)
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws/flows", s.handleFlowStream)

	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", zap.String("address", s.cfg.Address))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	writeJSON(w, http.StatusOK, s.market.GetQuote(symbol))
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	writeJSON(w, http.StatusOK, s.market.GetOptionsChain(symbol))
}

func (s *Server) handleIV(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	writeJSON(w, http.StatusOK, s.market.GetIVData(symbol))
}

func (s *Server) handleFlows(w http.ResponseWriter, r *http.Request) {
	scored := s.tracker.Scan()
	writeJSON(w, http.StatusOK, map[string]any{
		"flows":     scored,
		"sentiment": s.tracker.Sentiment(scored),
	})
}

// handleOpportunities scans the requested symbols, defaulting to every
// position holding at least one round lot.
func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		symbols = strings.Split(raw, ",")
	} else {
		for sym := range s.positions.Eligible(100) {
			symbols = append(symbols, sym)
		}
	}
	if len(symbols) == 0 {
		writeJSON(w, http.StatusOK, []scanner.Opportunity{})
		return
	}
	writeJSON(w, http.StatusOK, s.scanner.Scan(symbols))
}

type addPositionRequest struct {
	Symbol      string  `json:"symbol"`
	Shares      int     `json:"shares"`
	CostBasis   float64 `json:"cost_basis"`
	AccountType string  `json:"account_type"`
	Notes       string  `json:"notes"`
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		prices := make(map[string]float64)
		for sym := range s.positions.All() {
			prices[sym] = s.market.GetQuote(sym).Price
		}
		writeJSON(w, http.StatusOK, s.positions.Valuation(prices))

	case http.MethodPost:
		var req addPositionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.positions.Add(req.Symbol, req.Shares, req.CostBasis, req.AccountType, req.Notes); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})

	case http.MethodDelete:
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			writeError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		if err := s.positions.Delete(symbol); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAlerts assesses the open calls posted in the request body.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var calls []risk.OpenCall
	if err := json.NewDecoder(r.Body).Decode(&calls); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.monitor.AssessAll(calls))
}

type recordTradeRequest struct {
	Opportunity scanner.Opportunity `json:"opportunity"`
	Decision    string              `json:"decision"`
	Contracts   int                 `json:"contracts"`
	Reason      string              `json:"reason"`
}

// handleTrades reads and writes the persistent trade decision log.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		writeError(w, http.StatusServiceUnavailable, "trade log is disabled")
		return
	}

	switch r.Method {
	case http.MethodGet:
		open, err := s.trades.ListOpenTrades(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, open)

	case http.MethodPost:
		var req recordTradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Decision != postgres.DecisionTake && req.Decision != postgres.DecisionPass {
			writeError(w, http.StatusBadRequest, "decision must be TAKE or PASS")
			return
		}
		record, err := postgres.ToTradeRecord(req.Opportunity, req.Decision, req.Contracts, req.Reason)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.trades.InsertTrade(r.Context(), record); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, record)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleFlowStream upgrades to WebSocket and pushes the scored flow batch on
// every tick until the client goes away.
func (s *Server) handleFlowStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	interval := s.cfg.FlowInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	// First batch immediately, then on the interval.
	if err := conn.WriteJSON(s.tracker.Scan()); err != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Reader goroutine: we never expect client messages, but reading is what
	// surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.tracker.Scan()); err != nil {
				s.log.Debug("flow stream closed", zap.Error(err))
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
		"code":  strconv.Itoa(status),
	})
}
