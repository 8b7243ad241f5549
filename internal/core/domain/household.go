package domain

import "github.com/shopspring/decimal"

// StateCode identifies the taxing jurisdiction of a household.
// The set is closed; adding a jurisdiction means adding a constant here and a
// branch to the state resolver.
type StateCode string

const (
	California StateCode = "California"
	Texas      StateCode = "Texas"
)

// Household is the immutable identity record for one taxpayer household.
// It is created once at ingestion and never updated.
type Household struct {
	TaxpayerID  string          `json:"taxpayerID"`
	State       StateCode       `json:"state"`
	W2Income    decimal.Decimal `json:"w2Income"`    // Non-negative
	NumChildren int             `json:"numChildren"` // Non-negative
}

// IncomeHistoryPoint is one prior-year income observation.
// YearOffset runs from -5 (oldest) to -1 (most recent); exactly five points
// exist per household when history is present. Missing offsets smooth as zero.
type IncomeHistoryPoint struct {
	TaxpayerID string          `json:"taxpayerID"`
	YearOffset int             `json:"yearOffset"`
	Amount     decimal.Decimal `json:"amount"`
}

// Donation is a single charitable donation. Order is irrelevant; only the sum
// feeds the federal resolver.
type Donation struct {
	TaxpayerID string          `json:"taxpayerID"`
	Amount     decimal.Decimal `json:"amount"` // Non-negative
}
