package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
)

// MemoryLedgerRepository is an in-process ledger store keyed by taxpayer ID.
// It is the default store for batch runs without a configured database and the
// store used by tests. A single mutex serializes access: readers take a
// consistent snapshot, writers land all rows of one operation atomically.
type MemoryLedgerRepository struct {
	mu            sync.RWMutex
	order         []string // taxpayer IDs in ingestion order
	households    map[string]domain.Household
	history       map[string][]domain.IncomeHistoryPoint
	transactions  map[string][]domain.AssetTransaction
	donations     map[string][]domain.Donation
	computations  map[string]domain.TaxComputation
	gainSummaries map[string]domain.GainSummary
	gainRecords   map[string][]domain.RealizedGainRecord
	statuses      map[string]domain.ComputationStatus
}

// NewMemoryLedgerRepository creates an empty in-memory ledger store.
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		households:    make(map[string]domain.Household),
		history:       make(map[string][]domain.IncomeHistoryPoint),
		transactions:  make(map[string][]domain.AssetTransaction),
		donations:     make(map[string][]domain.Donation),
		computations:  make(map[string]domain.TaxComputation),
		gainSummaries: make(map[string]domain.GainSummary),
		gainRecords:   make(map[string][]domain.RealizedGainRecord),
		statuses:      make(map[string]domain.ComputationStatus),
	}
}

var _ portsrepo.LedgerRepositoryFacade = (*MemoryLedgerRepository)(nil)

// SaveHousehold persists a household identity record. Re-staging replaces the
// identity and clears the household's previously staged rows; its position in
// the ingestion order is kept.
func (r *MemoryLedgerRepository) SaveHousehold(_ context.Context, household domain.Household) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.households[household.TaxpayerID]; !exists {
		r.order = append(r.order, household.TaxpayerID)
	}
	r.households[household.TaxpayerID] = household
	delete(r.history, household.TaxpayerID)
	delete(r.transactions, household.TaxpayerID)
	delete(r.donations, household.TaxpayerID)
	return nil
}

// AppendTransactions appends asset transactions for a household.
func (r *MemoryLedgerRepository) AppendTransactions(_ context.Context, txns []domain.AssetTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, txn := range txns {
		r.transactions[txn.TaxpayerID] = append(r.transactions[txn.TaxpayerID], txn)
	}
	return nil
}

// AppendDonations appends donation rows for a household.
func (r *MemoryLedgerRepository) AppendDonations(_ context.Context, donations []domain.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range donations {
		r.donations[d.TaxpayerID] = append(r.donations[d.TaxpayerID], d)
	}
	return nil
}

// SaveIncomeHistory persists the prior-year income points for a household.
func (r *MemoryLedgerRepository) SaveIncomeHistory(_ context.Context, points []domain.IncomeHistoryPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range points {
		r.history[p.TaxpayerID] = append(r.history[p.TaxpayerID], p)
	}
	return nil
}

// FindHouseholdByID retrieves a household by its taxpayer ID.
func (r *MemoryLedgerRepository) FindHouseholdByID(_ context.Context, taxpayerID string) (*domain.Household, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	household, ok := r.households[taxpayerID]
	if !ok {
		return nil, fmt.Errorf("household %s: %w", taxpayerID, apperrors.ErrNotFound)
	}
	return &household, nil
}

// FindOrderedTransactions retrieves a household's transactions ordered
// (date ASC, id ASC).
func (r *MemoryLedgerRepository) FindOrderedTransactions(_ context.Context, taxpayerID string) ([]domain.AssetTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return orderedTransactions(r.transactions[taxpayerID]), nil
}

// LoadHouseholdInputs retrieves the full input snapshot for one household
// under a single lock acquisition.
func (r *MemoryLedgerRepository) LoadHouseholdInputs(_ context.Context, taxpayerID string) (*domain.HouseholdInputs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	household, ok := r.households[taxpayerID]
	if !ok {
		return nil, fmt.Errorf("household %s: %w", taxpayerID, apperrors.ErrNotFound)
	}

	inputs := &domain.HouseholdInputs{
		Household:     household,
		IncomeHistory: append([]domain.IncomeHistoryPoint(nil), r.history[taxpayerID]...),
		Transactions:  orderedTransactions(r.transactions[taxpayerID]),
		Donations:     append([]domain.Donation(nil), r.donations[taxpayerID]...),
	}
	return inputs, nil
}

// ListTaxpayerIDs returns taxpayer IDs in ingestion order.
func (r *MemoryLedgerRepository) ListTaxpayerIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...), nil
}

// ListHouseholds returns up to limit households in ingestion order, starting
// after afterTaxpayerID. An unknown cursor yields an empty page rather than an
// error, matching keyset semantics.
func (r *MemoryLedgerRepository) ListHouseholds(_ context.Context, afterTaxpayerID string, limit int) ([]domain.Household, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if afterTaxpayerID != "" {
		start = len(r.order)
		for i, id := range r.order {
			if id == afterTaxpayerID {
				start = i + 1
				break
			}
		}
	}

	households := make([]domain.Household, 0, limit)
	for _, id := range r.order[start:] {
		if len(households) == limit {
			break
		}
		households = append(households, r.households[id])
	}
	return households, nil
}

// SaveComputation persists the computation, gain summary, audit rows and the
// COMPLETED status as one atomic unit (replace semantics on recomputation).
func (r *MemoryLedgerRepository) SaveComputation(_ context.Context, computation domain.TaxComputation, summary domain.GainSummary, matches []domain.RealizedGainRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.computations[computation.TaxpayerID] = computation
	r.gainSummaries[computation.TaxpayerID] = summary
	r.gainRecords[computation.TaxpayerID] = append([]domain.RealizedGainRecord(nil), matches...)
	r.statuses[computation.TaxpayerID] = domain.StatusCompleted
	return nil
}

// MarkStatus records the pipeline status for a household.
func (r *MemoryLedgerRepository) MarkStatus(_ context.Context, taxpayerID string, status domain.ComputationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[taxpayerID] = status
	return nil
}

// FindComputation retrieves the persisted computation for a household.
func (r *MemoryLedgerRepository) FindComputation(_ context.Context, taxpayerID string) (*domain.TaxComputation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	computation, ok := r.computations[taxpayerID]
	if !ok {
		return nil, fmt.Errorf("computation for %s: %w", taxpayerID, apperrors.ErrNotFound)
	}
	return &computation, nil
}

// FindStatus retrieves the pipeline status for a household.
func (r *MemoryLedgerRepository) FindStatus(_ context.Context, taxpayerID string) (domain.ComputationStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.statuses[taxpayerID]
	if !ok {
		return "", fmt.Errorf("status for %s: %w", taxpayerID, apperrors.ErrNotFound)
	}
	return status, nil
}

// FindRealizedGains retrieves the audit rows written for a household.
func (r *MemoryLedgerRepository) FindRealizedGains(_ context.Context, taxpayerID string) ([]domain.RealizedGainRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.RealizedGainRecord(nil), r.gainRecords[taxpayerID]...), nil
}

// orderedTransactions returns a copy sorted by (date ASC, id ASC).
// Dates are ISO-8601 strings, so string comparison is chronological.
func orderedTransactions(txns []domain.AssetTransaction) []domain.AssetTransaction {
	out := append([]domain.AssetTransaction(nil), txns...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}
