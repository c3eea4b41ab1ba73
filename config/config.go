package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Market    MarketConfig    `mapstructure:"market"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Positions PositionsConfig `mapstructure:"positions"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
}

// MarketConfig controls the synthetic market data engine.
type MarketConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // how long quotes/chains/flows stay cached
	Seed     int64         `mapstructure:"seed"`      // random seed; 0 means seed from current time
}

// ScannerConfig holds the minimum criteria for covered call opportunities.
type ScannerConfig struct {
	MinIVRank       float64 `mapstructure:"min_iv_rank"`
	MinVolume       int     `mapstructure:"min_volume"`
	MaxSpreadPct    float64 `mapstructure:"max_spread_pct"`
	MinOpenInterest int     `mapstructure:"min_open_interest"`
	MinPremium      float64 `mapstructure:"min_premium"`
	TargetDTEMin    int     `mapstructure:"target_dte_min"`
	TargetDTEMax    int     `mapstructure:"target_dte_max"`
	MinMonthlyYield float64 `mapstructure:"min_monthly_yield"` // fraction, e.g. 0.02 for 2%/month
	MaxResults      int     `mapstructure:"max_results"`
}

// RiskConfig holds the thresholds for the 21-50-7 rule and assignment monitoring.
type RiskConfig struct {
	MaxProfitPct  float64 `mapstructure:"max_profit_pct"` // close the call once this % of the premium is captured
	DTEWarning    int     `mapstructure:"dte_warning"`
	DTECritical   int     `mapstructure:"dte_critical"`
	HighDelta     float64 `mapstructure:"high_delta"`
	CriticalDelta float64 `mapstructure:"critical_delta"`
}

type PositionsConfig struct {
	File string `mapstructure:"file"` // path to the positions JSON file
}

type DashboardConfig struct {
	Address       string        `mapstructure:"address"`
	FlowInterval  time.Duration `mapstructure:"flow_interval"` // whale flow push interval over WebSocket
	EnableTradeDB bool          `mapstructure:"enable_trade_db"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	// Support environment variables with dot notation (e.g., MARKET_CACHE_TTL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	return &cfg
}

// setDefaults registers fallback values so a sparse config.yaml still works.
func setDefaults(v *viper.Viper) {
	v.SetDefault("market.cache_ttl", 30*time.Second)
	v.SetDefault("market.seed", 0)

	v.SetDefault("scanner.min_iv_rank", 30.0)
	v.SetDefault("scanner.min_volume", 10)
	v.SetDefault("scanner.max_spread_pct", 0.15)
	v.SetDefault("scanner.min_open_interest", 10)
	v.SetDefault("scanner.min_premium", 0.10)
	v.SetDefault("scanner.target_dte_min", 25)
	v.SetDefault("scanner.target_dte_max", 45)
	v.SetDefault("scanner.min_monthly_yield", 0.02)
	v.SetDefault("scanner.max_results", 20)

	v.SetDefault("risk.max_profit_pct", 50.0)
	v.SetDefault("risk.dte_warning", 21)
	v.SetDefault("risk.dte_critical", 7)
	v.SetDefault("risk.high_delta", 0.70)
	v.SetDefault("risk.critical_delta", 0.85)

	v.SetDefault("positions.file", "data/positions.json")

	v.SetDefault("dashboard.address", ":8080")
	v.SetDefault("dashboard.flow_interval", 15*time.Second)
	v.SetDefault("dashboard.enable_trade_db", false)
}
