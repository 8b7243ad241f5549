package memory_test

import (
	"context"
	"testing"

	"github.com/avalonfin/taxengine/internal/adapters/database/memory"
	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(id int64, taxpayerID, assetID, date string, txnType domain.TransactionType) domain.AssetTransaction {
	return domain.AssetTransaction{
		ID:         id,
		TaxpayerID: taxpayerID,
		AssetID:    assetID,
		Date:       date,
		Type:       txnType,
		Quantity:   decimal.NewFromInt(1),
		UnitPrice:  decimal.NewFromInt(10),
	}
}

func TestMemoryLedgerRepository_ListTaxpayerIDsKeepsIngestionOrder(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()

	for _, id := range []string{"TP-C", "TP-A", "TP-B"} {
		require.NoError(t, repo.SaveHousehold(ctx, domain.Household{TaxpayerID: id, State: domain.Texas}))
	}
	// Re-saving must not produce a duplicate position.
	require.NoError(t, repo.SaveHousehold(ctx, domain.Household{TaxpayerID: "TP-A", State: domain.California}))

	ids, err := repo.ListTaxpayerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"TP-C", "TP-A", "TP-B"}, ids)

	household, err := repo.FindHouseholdByID(ctx, "TP-A")
	require.NoError(t, err)
	assert.Equal(t, domain.California, household.State)
}

func TestMemoryLedgerRepository_SaveHouseholdReplacesStagedRows(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()

	require.NoError(t, repo.SaveHousehold(ctx, domain.Household{TaxpayerID: "TP-1", State: domain.Texas}))
	require.NoError(t, repo.AppendTransactions(ctx, []domain.AssetTransaction{
		txn(1, "TP-1", "AAPL", "2025-01-15", domain.Buy),
	}))
	require.NoError(t, repo.AppendDonations(ctx, []domain.Donation{
		{TaxpayerID: "TP-1", Amount: decimal.NewFromInt(500)},
	}))
	require.NoError(t, repo.SaveIncomeHistory(ctx, []domain.IncomeHistoryPoint{
		{TaxpayerID: "TP-1", YearOffset: -5, Amount: decimal.NewFromInt(10000)},
	}))

	// Re-staging the same taxpayer starts from a clean slate, as a rerun over
	// the same input does.
	require.NoError(t, repo.SaveHousehold(ctx, domain.Household{TaxpayerID: "TP-1", State: domain.Texas}))

	inputs, err := repo.LoadHouseholdInputs(ctx, "TP-1")
	require.NoError(t, err)
	assert.Empty(t, inputs.Transactions)
	assert.Empty(t, inputs.Donations)
	assert.Empty(t, inputs.IncomeHistory)

	// And the replacement rows land alone, not alongside the old ones.
	require.NoError(t, repo.AppendTransactions(ctx, []domain.AssetTransaction{
		txn(1, "TP-1", "AAPL", "2025-01-15", domain.Buy),
	}))
	inputs, err = repo.LoadHouseholdInputs(ctx, "TP-1")
	require.NoError(t, err)
	assert.Len(t, inputs.Transactions, 1)
}

func TestMemoryLedgerRepository_OrdersTransactionsByDateThenID(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()

	require.NoError(t, repo.SaveHousehold(ctx, domain.Household{TaxpayerID: "TP-1", State: domain.Texas}))
	require.NoError(t, repo.AppendTransactions(ctx, []domain.AssetTransaction{
		txn(3, "TP-1", "AAPL", "2025-03-01", domain.Sell),
		txn(1, "TP-1", "AAPL", "2025-01-15", domain.Buy),
		txn(2, "TP-1", "AAPL", "2025-01-15", domain.Buy),
	}))

	txns, err := repo.FindOrderedTransactions(ctx, "TP-1")
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.EqualValues(t, 1, txns[0].ID)
	assert.EqualValues(t, 2, txns[1].ID)
	assert.EqualValues(t, 3, txns[2].ID)

	inputs, err := repo.LoadHouseholdInputs(ctx, "TP-1")
	require.NoError(t, err)
	assert.Equal(t, txns, inputs.Transactions)
}

func TestMemoryLedgerRepository_LoadHouseholdInputsUnknownHousehold(t *testing.T) {
	repo := memory.NewMemoryLedgerRepository()
	_, err := repo.LoadHouseholdInputs(context.Background(), "TP-missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryLedgerRepository_SaveComputationReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()

	require.NoError(t, repo.SaveHousehold(ctx, domain.Household{TaxpayerID: "TP-1", State: domain.Texas}))
	require.NoError(t, repo.MarkStatus(ctx, "TP-1", domain.StatusPending))

	first := domain.TaxComputation{TaxpayerID: "TP-1", FederalTaxDue: 100}
	require.NoError(t, repo.SaveComputation(ctx, first,
		domain.GainSummary{NetCapitalGain: decimal.NewFromInt(500)},
		[]domain.RealizedGainRecord{{SellID: 3, BuyID: 1, MatchedQuantity: decimal.NewFromInt(1), GainAmount: decimal.NewFromInt(500)}},
	))

	status, err := repo.FindStatus(ctx, "TP-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)

	// Recomputation replaces the previous rows rather than accumulating.
	second := domain.TaxComputation{TaxpayerID: "TP-1", FederalTaxDue: 250}
	require.NoError(t, repo.SaveComputation(ctx, second, domain.GainSummary{}, nil))

	computation, err := repo.FindComputation(ctx, "TP-1")
	require.NoError(t, err)
	assert.EqualValues(t, 250, computation.FederalTaxDue)

	records, err := repo.FindRealizedGains(ctx, "TP-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryLedgerRepository_ListHouseholdsPaginates(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()

	for _, id := range []string{"TP-1", "TP-2", "TP-3", "TP-4", "TP-5"} {
		require.NoError(t, repo.SaveHousehold(ctx, domain.Household{TaxpayerID: id, State: domain.Texas}))
	}

	page, err := repo.ListHouseholds(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "TP-1", page[0].TaxpayerID)
	assert.Equal(t, "TP-2", page[1].TaxpayerID)

	page, err = repo.ListHouseholds(ctx, "TP-2", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "TP-3", page[0].TaxpayerID)
	assert.Equal(t, "TP-4", page[1].TaxpayerID)

	// Short final page, then an empty one past the end.
	page, err = repo.ListHouseholds(ctx, "TP-4", 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "TP-5", page[0].TaxpayerID)

	page, err = repo.ListHouseholds(ctx, "TP-5", 2)
	require.NoError(t, err)
	assert.Empty(t, page)

	// Unknown cursors behave like the end of the list.
	page, err = repo.ListHouseholds(ctx, "TP-unknown", 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryLedgerRepository_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()

	_, err := repo.FindStatus(ctx, "TP-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.MarkStatus(ctx, "TP-1", domain.StatusPending))
	status, err := repo.FindStatus(ctx, "TP-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, status)

	require.NoError(t, repo.MarkStatus(ctx, "TP-1", domain.StatusError))
	status, err = repo.FindStatus(ctx, "TP-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, status)

	_, err = repo.FindComputation(ctx, "TP-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
