package repositories

import (
	"context"

	"github.com/avalonfin/taxengine/internal/core/domain"
)

// LedgerReader defines read operations over staged household data.
type LedgerReader interface {
	// FindHouseholdByID retrieves a household by its taxpayer ID.
	FindHouseholdByID(ctx context.Context, taxpayerID string) (*domain.Household, error)

	// FindOrderedTransactions retrieves a household's asset transactions
	// ordered by (date ASC, id ASC).
	FindOrderedTransactions(ctx context.Context, taxpayerID string) ([]domain.AssetTransaction, error)

	// LoadHouseholdInputs retrieves the full input snapshot for one household
	// as a single consistent read: identity, income history, ordered
	// transactions and donations.
	LoadHouseholdInputs(ctx context.Context, taxpayerID string) (*domain.HouseholdInputs, error)

	// ListTaxpayerIDs returns the taxpayer IDs of all staged households in
	// ingestion order.
	ListTaxpayerIDs(ctx context.Context) ([]string, error)

	// ListHouseholds returns up to limit households in ingestion order,
	// starting after afterTaxpayerID (empty string starts from the beginning).
	ListHouseholds(ctx context.Context, afterTaxpayerID string, limit int) ([]domain.Household, error)
}

// LedgerWriter defines staging writes performed during ingestion.
type LedgerWriter interface {
	// SaveHousehold persists a household identity record. Re-staging the same
	// taxpayer replaces the identity and clears its previously staged income
	// history, transactions and donations, so reruns over un-mutated input
	// rebuild the same staged state instead of accumulating rows.
	SaveHousehold(ctx context.Context, household domain.Household) error

	// AppendTransactions appends asset transactions for a household.
	AppendTransactions(ctx context.Context, txns []domain.AssetTransaction) error

	// AppendDonations appends donation rows for a household.
	AppendDonations(ctx context.Context, donations []domain.Donation) error

	// SaveIncomeHistory persists the five prior-year income points.
	SaveIncomeHistory(ctx context.Context, points []domain.IncomeHistoryPoint) error
}

// ResultReader defines read access to computed results.
type ResultReader interface {
	// FindComputation retrieves the persisted computation for a household.
	FindComputation(ctx context.Context, taxpayerID string) (*domain.TaxComputation, error)

	// FindStatus retrieves the pipeline status for a household.
	FindStatus(ctx context.Context, taxpayerID string) (domain.ComputationStatus, error)
}

// ResultWriter defines result persistence for the pipeline.
// SaveComputation must be atomic from any reader's perspective: the summary,
// the audit rows, the computation and the COMPLETED status land together or
// not at all.
type ResultWriter interface {
	SaveComputation(ctx context.Context, computation domain.TaxComputation, summary domain.GainSummary, matches []domain.RealizedGainRecord) error

	// MarkStatus records the pipeline status for a household.
	MarkStatus(ctx context.Context, taxpayerID string, status domain.ComputationStatus) error
}

// LedgerRepositoryFacade combines all ledger store interfaces.
// Any keyed store honoring these read/write/order guarantees is acceptable.
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
	ResultReader
	ResultWriter
}
