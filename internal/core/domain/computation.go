package domain

import "github.com/shopspring/decimal"

// DeductionMethod records which federal deduction path was applied.
type DeductionMethod string

const (
	Standard DeductionMethod = "STANDARD"
	Itemized DeductionMethod = "ITEMIZED"
)

// ComputationStatus is the per-household pipeline state.
// PENDING transitions to COMPLETED on success or ERROR on any stage failure;
// an ERROR household stays ERROR until the whole batch is rerun.
type ComputationStatus string

const (
	StatusPending   ComputationStatus = "PENDING"
	StatusCompleted ComputationStatus = "COMPLETED"
	StatusError     ComputationStatus = "ERROR"
)

// TaxComputation is the full per-household result, written atomically exactly
// once per run (replace semantics on recomputation). Intermediate amounts keep
// full decimal precision; FederalTaxDue and StateTaxDue are the half-up-rounded
// whole-currency figures emitted in the report.
type TaxComputation struct {
	TaxpayerID        string          `json:"taxpayerID"`
	GrossIncome       decimal.Decimal `json:"grossIncome"`
	SmoothedIncome    decimal.Decimal `json:"smoothedIncome"`
	FederalSurcharge  decimal.Decimal `json:"federalSurcharge"`
	StandardDeduction decimal.Decimal `json:"standardDeduction"`
	ItemizedDeduction decimal.Decimal `json:"itemizedDeduction"`
	DeductionMethod   DeductionMethod `json:"deductionMethod"`
	TaxableIncome     decimal.Decimal `json:"taxableIncome"`
	BracketTax        decimal.Decimal `json:"bracketTax"`
	TotalFederalTax   decimal.Decimal `json:"totalFederalTax"`
	StateBasis        decimal.Decimal `json:"stateBasis"`
	StateSurcharge    decimal.Decimal `json:"stateSurcharge"`
	TotalStateTax     decimal.Decimal `json:"totalStateTax"`
	FederalTaxDue     int64           `json:"federalTaxDue"`
	StateTaxDue       int64           `json:"stateTaxDue"`
}

// DeductionUsed returns the deduction amount that was actually applied.
func (t TaxComputation) DeductionUsed() decimal.Decimal {
	if t.DeductionMethod == Itemized {
		return t.ItemizedDeduction
	}
	return t.StandardDeduction
}

// HouseholdInputs is the consistent snapshot of raw data the pipeline reads
// for one household before computing. All fields are immutable.
type HouseholdInputs struct {
	Household     Household
	IncomeHistory []IncomeHistoryPoint
	Transactions  []AssetTransaction // ordered (Date ASC, ID ASC)
	Donations     []Donation
}
