package dto

import "github.com/shopspring/decimal"

// AssetTradeInput is one purchase or sale inside an input record.
type AssetTradeInput struct {
	AssetID   string          `json:"asset_id" validate:"required"`
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// HouseholdInput is one line of the newline-delimited JSON input file.
// Amounts arrive as JSON numbers and are decoded straight into decimals so no
// precision is lost before the pipeline runs. Sign constraints on decimal
// fields are enforced in the ingest step; the validate tags cover structure.
type HouseholdInput struct {
	TaxpayerID           string            `json:"taxpayer_id" validate:"required"`
	State                string            `json:"state" validate:"required"`
	W2Income             decimal.Decimal   `json:"w2_income"`
	NumChildren          int               `json:"num_children" validate:"gte=0"`
	PriorFiveYearsIncome []decimal.Decimal `json:"prior_five_years_income" validate:"omitempty,len=5"`
	Purchases            []AssetTradeInput `json:"purchases" validate:"omitempty,dive"`
	Sales                []AssetTradeInput `json:"sales" validate:"omitempty,dive"`
	CharitableDonations  []decimal.Decimal `json:"charitable_donations"`
}
