package domain

import "github.com/shopspring/decimal"

// TransactionType indicates whether an asset transaction is a purchase or a sale.
type TransactionType string

const (
	Buy  TransactionType = "BUY"
	Sell TransactionType = "SELL"
)

// AssetTransaction is one buy or sell of an asset by a household.
// ID is assigned at ingestion and is strictly increasing per household in
// chronological order; ordering is always (Date ASC, ID ASC). Date is an
// ISO-8601 calendar date, so lexicographic order is chronological order.
type AssetTransaction struct {
	ID         int64           `json:"id"`
	TaxpayerID string          `json:"taxpayerID"`
	AssetID    string          `json:"assetID"`
	Date       string          `json:"date"`
	Type       TransactionType `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`  // > 0
	UnitPrice  decimal.Decimal `json:"unitPrice"` // >= 0
}

// Lot is the remaining unsold quantity of a single BUY transaction during FIFO
// matching. Lots live in a per-household arena owned exclusively by the gains
// service; nothing else reads or writes Remaining.
type Lot struct {
	BuyID     int64
	AssetID   string
	UnitPrice decimal.Decimal
	Remaining decimal.Decimal
}

// RealizedGainRecord is the append-only audit row for one FIFO match between a
// sale and a buy lot.
type RealizedGainRecord struct {
	TaxpayerID      string          `json:"taxpayerID"`
	SellID          int64           `json:"sellID"`
	BuyID           int64           `json:"buyID"`
	MatchedQuantity decimal.Decimal `json:"matchedQuantity"`
	GainAmount      decimal.Decimal `json:"gainAmount"`
}

// GainSummary aggregates the outcome of FIFO matching for one household.
type GainSummary struct {
	TaxpayerID         string          `json:"taxpayerID"`
	NetCapitalGain     decimal.Decimal `json:"netCapitalGain"`
	TotalSalesProceeds decimal.Decimal `json:"totalSalesProceeds"`
	TotalCostBasis     decimal.Decimal `json:"totalCostBasis"`
}
