package postgres

import "time"

// Trade decisions recorded in the log.
const (
	DecisionTake = "TAKE"
	DecisionPass = "PASS"
)

// TradeRecord is one covered call decision stored in the database: the
// contract, the analytics that drove the call, and the eventual outcome once
// the position is closed.
type TradeRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Symbol     string    `gorm:"type:text;not null;index:idx_trade_symbol;index:idx_symbol_strike_expiration,unique"`
	Strike     float64   `gorm:"type:numeric;not null;index:idx_symbol_strike_expiration,unique"`
	Expiration time.Time `gorm:"not null;index:idx_symbol_strike_expiration,unique"`

	Strategy  string `gorm:"type:varchar(20);not null"`
	DaysToExp int    `gorm:"not null"`

	Premium float64 `gorm:"type:numeric;not null"`
	Bid     float64 `gorm:"type:numeric;not null"`
	Ask     float64 `gorm:"type:numeric;not null"`

	Volume       int `gorm:"not null"`
	OpenInterest int `gorm:"not null"`

	IVRank float64 `gorm:"type:numeric;not null"`
	Delta  float64 `gorm:"type:numeric;not null"`

	GrowthScore     int     `gorm:"not null"`
	ConfidenceScore float64 `gorm:"type:numeric;not null"`
	MonthlyYield    float64 `gorm:"type:numeric;not null"`
	WinProbability  float64 `gorm:"type:numeric;not null"`

	Decision  string `gorm:"type:varchar(10);not null;index:idx_trade_decision"`
	Contracts int    `gorm:"not null"`
	Reason    string `gorm:"type:text"`

	DateClosed   *time.Time `gorm:"index:idx_trade_date_closed"`
	ClosingPrice float64    `gorm:"type:numeric"`
	ProfitLoss   float64    `gorm:"type:numeric"`
	Outcome      string     `gorm:"type:varchar(20)"`

	Notes string `gorm:"type:text"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (TradeRecord) TableName() string {
	return "trade_record"
}
