package postgres

import (
	"context"
	"fmt"
	"time"

	"covcall/internal/scanner"

	"gorm.io/gorm/clause"
)

func (p *PostgresClient) InsertTrade(ctx context.Context, record *TradeRecord) error {
	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "strike"},
			{Name: "expiration"},
		},
		DoNothing: true,
	}).Create(record)

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return fmt.Errorf(
			"duplicate trade skipped: symbol=%s strike=%.2f expiration=%s",
			record.Symbol,
			record.Strike,
			record.Expiration.Format("2006-01-02"),
		)
	}

	return nil
}

func (p *PostgresClient) GetTrade(ctx context.Context, symbol string, strike float64, expiration time.Time) (*TradeRecord, error) {
	var trade TradeRecord
	err := p.DB.WithContext(ctx).
		Where("symbol = ? AND strike = ? AND expiration = ?", symbol, strike, expiration).
		First(&trade).Error

	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// ListOpenTrades returns every TAKE decision not yet closed out.
func (p *PostgresClient) ListOpenTrades(ctx context.Context) ([]TradeRecord, error) {
	var trades []TradeRecord
	err := p.DB.WithContext(ctx).
		Where("decision = ? AND date_closed IS NULL", DecisionTake).
		Order("expiration asc").
		Find(&trades).Error

	if err != nil {
		return nil, err
	}
	return trades, nil
}

// CloseTrade stamps the exit on an open trade.
func (p *PostgresClient) CloseTrade(ctx context.Context, id uint, closingPrice, profitLoss float64, outcome string) error {
	now := time.Now()
	return p.DB.WithContext(ctx).
		Model(&TradeRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"date_closed":   &now,
			"closing_price": closingPrice,
			"profit_loss":   profitLoss,
			"outcome":       outcome,
		}).Error
}

func (p *PostgresClient) DeleteOldTrades(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("recorded_at < ?", before).
		Delete(&TradeRecord{}).Error
}

// ToTradeRecord converts a scanned opportunity and the decision made on it
// into a TradeRecord for DB insertion.
func ToTradeRecord(opp scanner.Opportunity, decision string, contracts int, reason string) (*TradeRecord, error) {
	expiration, err := time.Parse("2006-01-02", opp.Expiration)
	if err != nil {
		return nil, fmt.Errorf("parse expiration %q: %w", opp.Expiration, err)
	}

	return &TradeRecord{
		Symbol:     opp.Symbol,
		Strike:     opp.Strike,
		Expiration: expiration,

		Strategy:  string(opp.Strategy),
		DaysToExp: opp.DaysToExp,

		Premium: opp.Premium,
		Bid:     opp.Bid,
		Ask:     opp.Ask,

		Volume:       opp.Volume,
		OpenInterest: opp.OpenInterest,

		IVRank: opp.IVRank,
		Delta:  opp.Delta,

		GrowthScore:     opp.GrowthScore,
		ConfidenceScore: opp.Confidence,
		MonthlyYield:    opp.MonthlyYield,
		WinProbability:  opp.WinProbability,

		Decision:  decision,
		Contracts: contracts,
		Reason:    reason,
	}, nil
}
