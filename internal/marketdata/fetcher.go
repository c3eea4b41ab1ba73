package marketdata

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"covcall/config"

	"go.uber.org/zap"
)

// Fetcher is a synthetic stand-in for a real market data provider. It produces
// internally consistent stock quotes, multi-expiration options chains and
// institutional flow batches, all behind a shared TTL cache. Every random draw
// goes through a single seedable source so tests can pin the output.
type Fetcher struct {
	mu    sync.Mutex
	cache *Cache
	rng   *rand.Rand
	now   func() time.Time
	log   *zap.Logger
}

// NewFetcher creates a fetcher using the wall clock. A zero seed means the
// generator is seeded from the current time; a zero TTL falls back to 30s.
func NewFetcher(cfg config.MarketConfig, logger *zap.Logger) *Fetcher {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return newFetcher(ttl, seed, time.Now, logger)
}

func newFetcher(ttl time.Duration, seed int64, now func() time.Time, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		cache: NewCache(ttl, now),
		rng:   rand.New(rand.NewSource(seed)),
		now:   now,
		log:   logger,
	}
}

// GetQuote returns the current synthetic quote for symbol. Within a TTL window
// repeated calls return the identical record; after expiry the values are
// resampled. Unknown symbols are not an error: they fall back to a random
// baseline price in [20, 200].
func (f *Fetcher) GetQuote(symbol string) Quote {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quote(symbol)
}

// GetOptionsChain returns the call chain for symbol: 8 weekly Friday
// expirations with a strike lattice spanning roughly +-15% of the underlying.
// The chain is derived from the symbol's quote, generating one first if needed.
func (f *Fetcher) GetOptionsChain(symbol string) Chain {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := "options_" + strings.ToUpper(symbol)
	if v, ok := f.cache.Get(key); ok {
		return v.(Chain)
	}

	quote := f.quote(symbol)
	chain := f.generateChain(quote)
	f.cache.Put(key, chain)
	f.log.Debug("generated options chain",
		zap.String("symbol", quote.Symbol),
		zap.Int("expirations", len(chain)))
	return chain
}

// GetWhaleFlows returns the current batch of large synthetic option trades,
// sorted by total premium descending. Batches are generated against the fixed
// $50k institutional floor and cached under a single key, so the minPremium
// argument does not vary the result: within a TTL window every caller sees the
// batch produced by the first call, whatever threshold they pass. The argument
// is kept for API compatibility with downstream consumers.
func (f *Fetcher) GetWhaleFlows(minPremium float64) []WhaleFlow {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v, ok := f.cache.Get(whaleFlowsKey); ok {
		return v.([]WhaleFlow)
	}

	flows := f.generateWhaleFlows()
	f.cache.Put(whaleFlowsKey, flows)
	f.log.Debug("generated whale flows", zap.Int("count", len(flows)))
	return flows
}

// GetIVData returns a lightweight volatility snapshot for symbol. It is
// sampled independently on every call and bypasses the cache entirely, so it
// will not agree with the iv_rank carried by the symbol's quote.
func (f *Fetcher) GetIVData(symbol string) IVSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	currentIV := f.unif(0.2, 0.8)
	return IVSnapshot{
		Symbol:       strings.ToUpper(symbol),
		CurrentIV:    round3(currentIV),
		IVRank:       round1(f.unif(10, 90)),
		IVPercentile: round1(f.unif(10, 90)),
		HV20:         round1(f.unif(15, 70)),
		HV30:         round1(f.unif(15, 70)),
		IVHigh52W:    round3(currentIV * f.unif(1.2, 1.8)),
		IVLow52W:     round3(currentIV * f.unif(0.4, 0.8)),
	}
}

// quote implements GetQuote with f.mu held, so the chain and flow generators
// can reuse it without re-locking.
func (f *Fetcher) quote(symbol string) Quote {
	sym := strings.ToUpper(symbol)
	key := "stock_" + sym
	if v, ok := f.cache.Get(key); ok {
		return v.(Quote)
	}

	quote := f.generateQuote(sym)
	f.cache.Put(key, quote)
	f.log.Debug("generated quote",
		zap.String("symbol", sym),
		zap.Float64("price", quote.Price))
	return quote
}

// Random draw helpers. The rng is guarded by f.mu, which every public entry
// point acquires.

func (f *Fetcher) unif(lo, hi float64) float64 {
	return lo + f.rng.Float64()*(hi-lo)
}

func (f *Fetcher) randInt(lo, hi int) int {
	return lo + f.rng.Intn(hi-lo+1)
}

func (f *Fetcher) choice(options []string) string {
	return options[f.rng.Intn(len(options))]
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

const whaleFlowsKey = "whale_flows"
