package models

import "github.com/shopspring/decimal"

// PositionSnapshot is the valuation of one asset computed from its ledger
// and the latest quote. Money fields are rounded to 2 places, Quantity and
// WeightedAvgCost to 4.
type PositionSnapshot struct {
	AssetID         string          `json:"asset_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	WeightedAvgCost decimal.Decimal `json:"weighted_avg_cost"`
	TotalInvested   decimal.Decimal `json:"total_invested"`
	RealizedGain    decimal.Decimal `json:"realized_gain"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	UnrealizedGain  decimal.Decimal `json:"unrealized_gain"`
	PercentReturn   decimal.Decimal `json:"percent_return"`
	IsQuoteStale    bool            `json:"is_quote_stale"`
}

// PortfolioCard is a position snapshot labelled for display
type PortfolioCard struct {
	PositionSnapshot
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Currency string `json:"currency"`
}
