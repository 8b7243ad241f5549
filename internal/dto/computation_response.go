package dto

import (
	"github.com/avalonfin/taxengine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// HouseholdResponse is the API shape of a staged household.
type HouseholdResponse struct {
	TaxpayerID  string          `json:"taxpayerID"`
	State       string          `json:"state"`
	W2Income    decimal.Decimal `json:"w2Income"`
	NumChildren int             `json:"numChildren"`
}

// ComputationResponse is the API shape of a persisted tax computation,
// including the pipeline status.
type ComputationResponse struct {
	TaxpayerID        string          `json:"taxpayerID"`
	Status            string          `json:"status"`
	GrossIncome       decimal.Decimal `json:"grossIncome"`
	SmoothedIncome    decimal.Decimal `json:"smoothedIncome"`
	FederalSurcharge  decimal.Decimal `json:"federalSurcharge"`
	StandardDeduction decimal.Decimal `json:"standardDeduction"`
	ItemizedDeduction decimal.Decimal `json:"itemizedDeduction"`
	DeductionMethod   string          `json:"deductionMethod"`
	TaxableIncome     decimal.Decimal `json:"taxableIncome"`
	BracketTax        decimal.Decimal `json:"bracketTax"`
	TotalFederalTax   decimal.Decimal `json:"totalFederalTax"`
	StateBasis        decimal.Decimal `json:"stateBasis"`
	StateSurcharge    decimal.Decimal `json:"stateSurcharge"`
	TotalStateTax     decimal.Decimal `json:"totalStateTax"`
	FederalTaxDue     int64           `json:"federalTaxDue"`
	StateTaxDue       int64           `json:"stateTaxDue"`
}

// ListHouseholdsResponse is one page of staged households. NextToken is an
// opaque cursor for the following page, empty on the last one.
type ListHouseholdsResponse struct {
	Households []HouseholdResponse `json:"households"`
	NextToken  string              `json:"nextToken,omitempty"`
}

// ToHouseholdResponse maps a domain household to its API shape.
func ToHouseholdResponse(h domain.Household) HouseholdResponse {
	return HouseholdResponse{
		TaxpayerID:  h.TaxpayerID,
		State:       string(h.State),
		W2Income:    h.W2Income,
		NumChildren: h.NumChildren,
	}
}

// ToComputationResponse maps a domain computation and status to the API shape.
func ToComputationResponse(c domain.TaxComputation, status domain.ComputationStatus) ComputationResponse {
	return ComputationResponse{
		TaxpayerID:        c.TaxpayerID,
		Status:            string(status),
		GrossIncome:       c.GrossIncome,
		SmoothedIncome:    c.SmoothedIncome,
		FederalSurcharge:  c.FederalSurcharge,
		StandardDeduction: c.StandardDeduction,
		ItemizedDeduction: c.ItemizedDeduction,
		DeductionMethod:   string(c.DeductionMethod),
		TaxableIncome:     c.TaxableIncome,
		BracketTax:        c.BracketTax,
		TotalFederalTax:   c.TotalFederalTax,
		StateBasis:        c.StateBasis,
		StateSurcharge:    c.StateSurcharge,
		TotalStateTax:     c.TotalStateTax,
		FederalTaxDue:     c.FederalTaxDue,
		StateTaxDue:       c.StateTaxDue,
	}
}
