package services

import (
	"context"

	"github.com/avalonfin/taxengine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CapitalGainsSvc computes realized capital gains by FIFO lot matching.
type CapitalGainsSvc interface {
	// MatchGains consumes a household's transactions ordered (date ASC, id ASC)
	// and returns the gain summary plus one audit record per FIFO match.
	// Overselling truncates matching for that sale; it is logged, not fatal.
	MatchGains(ctx context.Context, taxpayerID string, txns []domain.AssetTransaction) (domain.GainSummary, []domain.RealizedGainRecord)
}

// IncomeSmoothingSvc produces the smoothed prior income figure used to gate
// the high-income surcharge.
type IncomeSmoothingSvc interface {
	// SmoothIncome computes the EWMA over the five prior-year income points.
	// Missing offsets contribute zero.
	SmoothIncome(points []domain.IncomeHistoryPoint) decimal.Decimal
}

// FederalResolverSvc computes the federal side of a household's liability.
type FederalResolverSvc interface {
	// ResolveFederal fills the federal fields of a TaxComputation from income,
	// realized gains, smoothed income, children and donations.
	ResolveFederal(household domain.Household, netCapitalGain decimal.Decimal, smoothedIncome decimal.Decimal, donations []domain.Donation) domain.TaxComputation
}

// StateResolverSvc computes the state side of a household's liability.
type StateResolverSvc interface {
	// ResolveState fills the state fields of the computation. It fails with
	// apperrors.ErrUnsupportedJurisdiction for unknown states.
	ResolveState(household domain.Household, netCapitalGain decimal.Decimal, computation domain.TaxComputation) (domain.TaxComputation, error)
}

// PipelineSvcFacade runs the full four-stage computation.
type PipelineSvcFacade interface {
	// ComputeHousehold runs matcher, smoother, federal and state resolvers for
	// one household and persists the result atomically.
	ComputeHousehold(ctx context.Context, taxpayerID string) error

	// ComputeBatch runs ComputeHousehold for every given household,
	// sequentially or across a worker pool depending on configuration.
	// Household-scoped failures are recorded in status and do not stop the
	// batch; only store-scoped failures abort it.
	ComputeBatch(ctx context.Context, taxpayerIDs []string) error
}
