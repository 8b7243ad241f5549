package services

import (
	"github.com/avalonfin/taxengine/internal/core/domain"
	portssvc "github.com/avalonfin/taxengine/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

var (
	standardDeduction  = decimal.NewFromInt(10000)
	surchargeThreshold = decimal.NewFromInt(1000000)
	surchargeRate      = decimal.NewFromFloat(0.02)
	childRatePerChild  = decimal.NewFromFloat(0.01)
	childRateCap       = decimal.NewFromFloat(0.10)
)

// federalBrackets are the marginal federal brackets: each band taxes only the
// portion of taxable income within it. A nil upper bound means unbounded.
var federalBrackets = []taxBracket{
	{width: decimal.NewFromInt(100000), rate: decimal.NewFromFloat(0.05)},
	{width: decimal.NewFromInt(100000), rate: decimal.NewFromFloat(0.10)},
	{width: decimal.NewFromInt(100000), rate: decimal.NewFromFloat(0.15)},
	{width: decimal.Decimal{}, rate: decimal.NewFromFloat(0.20), unbounded: true},
}

type taxBracket struct {
	width     decimal.Decimal
	rate      decimal.Decimal
	unbounded bool
}

// applyBrackets computes marginal bracket tax over the given income.
func applyBrackets(income decimal.Decimal, brackets []taxBracket) decimal.Decimal {
	tax := decimal.Zero
	remaining := income
	for _, b := range brackets {
		if remaining.Sign() <= 0 {
			break
		}
		chunk := remaining
		if !b.unbounded {
			chunk = decimal.Min(remaining, b.width)
		}
		tax = tax.Add(chunk.Mul(b.rate))
		remaining = remaining.Sub(chunk)
	}
	return tax
}

// federalService resolves the federal side of a household's tax liability.
type federalService struct{}

// NewFederalService creates a new federal tax resolver.
func NewFederalService() portssvc.FederalResolverSvc {
	return &federalService{}
}

var _ portssvc.FederalResolverSvc = (*federalService)(nil)

// ResolveFederal computes gross income, deduction selection, taxable income,
// marginal bracket tax and the high-income surcharge.
//
// The child deduction base (gross income minus charitable donations) is
// computed unconditionally, before the itemized/standard comparison; whether
// the itemized path wins does not change it. A tie at the standard deduction
// resolves to STANDARD. Excess deduction beyond gross income is discarded,
// never negative or carried forward. The surcharge applies to gross income
// when smoothed income strictly exceeds the threshold and is additive to the
// bracket tax, never itself bracketed.
func (s *federalService) ResolveFederal(household domain.Household, netCapitalGain decimal.Decimal, smoothedIncome decimal.Decimal, donations []domain.Donation) domain.TaxComputation {
	grossIncome := household.W2Income.Add(netCapitalGain)

	charitable := decimal.Zero
	for _, d := range donations {
		charitable = charitable.Add(d.Amount)
	}

	childRate := decimal.Min(childRatePerChild.Mul(decimal.NewFromInt(int64(household.NumChildren))), childRateCap)
	childBase := decimal.Max(decimal.Zero, grossIncome.Sub(charitable))
	childDeduction := childBase.Mul(childRate)

	itemized := charitable.Add(childDeduction)

	method := domain.Standard
	deduction := standardDeduction
	if itemized.GreaterThan(standardDeduction) {
		method = domain.Itemized
		deduction = itemized
	}

	taxableIncome := decimal.Max(decimal.Zero, grossIncome.Sub(deduction))
	bracketTax := applyBrackets(taxableIncome, federalBrackets)

	surcharge := decimal.Zero
	if smoothedIncome.GreaterThan(surchargeThreshold) {
		surcharge = grossIncome.Mul(surchargeRate)
	}

	return domain.TaxComputation{
		TaxpayerID:        household.TaxpayerID,
		GrossIncome:       grossIncome,
		SmoothedIncome:    smoothedIncome,
		FederalSurcharge:  surcharge,
		StandardDeduction: standardDeduction,
		ItemizedDeduction: itemized,
		DeductionMethod:   method,
		TaxableIncome:     taxableIncome,
		BracketTax:        bracketTax,
		TotalFederalTax:   bracketTax.Add(surcharge),
	}
}
