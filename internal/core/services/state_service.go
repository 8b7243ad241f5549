package services

import (
	"fmt"

	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	portssvc "github.com/avalonfin/taxengine/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

var (
	caWageRate           = decimal.NewFromFloat(0.04)
	caGainRate           = decimal.NewFromFloat(0.06)
	caSurchargeFactor    = decimal.NewFromFloat(1.05)
	txDiscountFactor     = decimal.NewFromFloat(0.99)
	txDeductionThreshold = decimal.NewFromInt(15000)
)

// texasBrackets apply marginally to the federal taxable income.
var texasBrackets = []taxBracket{
	{width: decimal.NewFromInt(90000), rate: decimal.NewFromFloat(0.03)},
	{width: decimal.NewFromInt(110000), rate: decimal.NewFromFloat(0.05)},
	{width: decimal.Decimal{}, rate: decimal.NewFromFloat(0.07), unbounded: true},
}

// stateService resolves the state side of a household's tax liability.
// Jurisdictions form a small closed set resolved by switching on the state
// code; an unknown code fails the household rather than defaulting to zero tax.
type stateService struct{}

// NewStateService creates a new state tax resolver.
func NewStateService() portssvc.StateResolverSvc {
	return &stateService{}
}

var _ portssvc.StateResolverSvc = (*stateService)(nil)

// ResolveState fills the state fields of the computation.
//
// California taxes 4% of wage income plus 6% of positive net capital gain, and
// adds a 5% state surcharge whenever the federal surcharge applied. Texas taxes
// the federal taxable income through its own marginal brackets and discounts
// the result by 1% when the federal deduction actually used exceeds 15000.
func (s *stateService) ResolveState(household domain.Household, netCapitalGain decimal.Decimal, computation domain.TaxComputation) (domain.TaxComputation, error) {
	switch household.State {
	case domain.California:
		base := caWageRate.Mul(household.W2Income).
			Add(caGainRate.Mul(decimal.Max(decimal.Zero, netCapitalGain)))
		computation.StateBasis = base
		computation.StateSurcharge = decimal.Zero
		computation.TotalStateTax = base
		if computation.FederalSurcharge.Sign() > 0 {
			computation.TotalStateTax = base.Mul(caSurchargeFactor)
			computation.StateSurcharge = computation.TotalStateTax.Sub(base)
		}
		return computation, nil

	case domain.Texas:
		computation.StateBasis = computation.TaxableIncome
		computation.StateSurcharge = decimal.Zero
		tax := applyBrackets(computation.TaxableIncome, texasBrackets)
		if computation.DeductionUsed().GreaterThan(txDeductionThreshold) {
			tax = tax.Mul(txDiscountFactor)
		}
		computation.TotalStateTax = tax
		return computation, nil

	default:
		return computation, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedJurisdiction, household.State)
	}
}
