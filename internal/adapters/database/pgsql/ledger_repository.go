package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxLedgerRepository is the PostgreSQL implementation of the ledger store.
// Staging writes use pgx batching; the computation write runs inside one DB
// transaction so the summary, audit rows, computation and status land
// atomically. Connection-level failures are surfaced as ErrStoreUnavailable,
// which aborts the whole batch.
type PgxLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewPgxLedgerRepository creates a new repository over the given pool.
func NewPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{pool: pool}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

// SaveHousehold persists a household identity record, replacing any previous
// staging of the same taxpayer: the identity is upserted (keeping its original
// ingestion position) and previously staged income history, transactions and
// donations are cleared in the same transaction. A rerun over un-mutated input
// therefore rebuilds identical staged state instead of colliding with the
// asset_transactions primary key or doubling appended rows.
func (r *PgxLedgerRepository) SaveHousehold(ctx context.Context, household domain.Household) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning staging for %s: %v", apperrors.ErrStoreUnavailable, household.TaxpayerID, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO households (taxpayer_id, state, w2_income, num_children, ingested_seq)
		VALUES ($1, $2, $3, $4, nextval('households_ingest_seq'))
		ON CONFLICT (taxpayer_id) DO UPDATE
		SET state = EXCLUDED.state, w2_income = EXCLUDED.w2_income, num_children = EXCLUDED.num_children;
	`,
		household.TaxpayerID,
		household.State,
		household.W2Income,
		household.NumChildren,
	)
	if err != nil {
		return fmt.Errorf("%w: saving household %s: %v", apperrors.ErrStoreUnavailable, household.TaxpayerID, err)
	}

	for _, table := range []string{"income_history", "asset_transactions", "donations"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE taxpayer_id = $1;`, table), household.TaxpayerID); err != nil {
			return fmt.Errorf("%w: clearing staged %s for %s: %v", apperrors.ErrStoreUnavailable, table, household.TaxpayerID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing staging for %s: %v", apperrors.ErrStoreUnavailable, household.TaxpayerID, err)
	}
	return nil
}

// AppendTransactions appends asset transactions using a single batch.
func (r *PgxLedgerRepository) AppendTransactions(ctx context.Context, txns []domain.AssetTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO asset_transactions (taxpayer_id, id, asset_id, txn_date, txn_type, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	for _, txn := range txns {
		batch.Queue(query, txn.TaxpayerID, txn.ID, txn.AssetID, txn.Date, txn.Type, txn.Quantity, txn.UnitPrice)
	}
	br := r.pool.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("%w: appending %d transactions: %v", apperrors.ErrStoreUnavailable, len(txns), err)
	}
	return nil
}

// AppendDonations appends donation rows using a single batch.
func (r *PgxLedgerRepository) AppendDonations(ctx context.Context, donations []domain.Donation) error {
	if len(donations) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `INSERT INTO donations (taxpayer_id, amount) VALUES ($1, $2);`
	for _, d := range donations {
		batch.Queue(query, d.TaxpayerID, d.Amount)
	}
	br := r.pool.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("%w: appending %d donations: %v", apperrors.ErrStoreUnavailable, len(donations), err)
	}
	return nil
}

// SaveIncomeHistory persists the prior-year income points for a household.
func (r *PgxLedgerRepository) SaveIncomeHistory(ctx context.Context, points []domain.IncomeHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `INSERT INTO income_history (taxpayer_id, year_offset, amount) VALUES ($1, $2, $3);`
	for _, p := range points {
		batch.Queue(query, p.TaxpayerID, p.YearOffset, p.Amount)
	}
	br := r.pool.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("%w: saving income history: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// FindHouseholdByID retrieves a household by its taxpayer ID.
func (r *PgxLedgerRepository) FindHouseholdByID(ctx context.Context, taxpayerID string) (*domain.Household, error) {
	query := `
		SELECT taxpayer_id, state, w2_income, num_children
		FROM households
		WHERE taxpayer_id = $1;
	`
	var household domain.Household
	err := r.pool.QueryRow(ctx, query, taxpayerID).Scan(
		&household.TaxpayerID,
		&household.State,
		&household.W2Income,
		&household.NumChildren,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding household %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	return &household, nil
}

// FindOrderedTransactions retrieves a household's transactions ordered
// (date ASC, id ASC).
func (r *PgxLedgerRepository) FindOrderedTransactions(ctx context.Context, taxpayerID string) ([]domain.AssetTransaction, error) {
	rows, err := r.pool.Query(ctx, orderedTransactionsQuery, taxpayerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying transactions for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	defer rows.Close()
	return scanTransactions(rows, taxpayerID)
}

const orderedTransactionsQuery = `
	SELECT taxpayer_id, id, asset_id, txn_date, txn_type, quantity, unit_price
	FROM asset_transactions
	WHERE taxpayer_id = $1
	ORDER BY txn_date ASC, id ASC;
`

func scanTransactions(rows pgx.Rows, taxpayerID string) ([]domain.AssetTransaction, error) {
	var txns []domain.AssetTransaction
	for rows.Next() {
		var txn domain.AssetTransaction
		if err := rows.Scan(
			&txn.TaxpayerID,
			&txn.ID,
			&txn.AssetID,
			&txn.Date,
			&txn.Type,
			&txn.Quantity,
			&txn.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row for %s: %w", taxpayerID, err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating transaction rows for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	return txns, nil
}

// LoadHouseholdInputs reads the full input snapshot for one household inside a
// single repeatable-read transaction, so the pipeline never observes a
// partially staged household.
func (r *PgxLedgerRepository) LoadHouseholdInputs(ctx context.Context, taxpayerID string) (*domain.HouseholdInputs, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("%w: beginning snapshot read for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	inputs := &domain.HouseholdInputs{}

	err = tx.QueryRow(ctx, `
		SELECT taxpayer_id, state, w2_income, num_children
		FROM households WHERE taxpayer_id = $1;
	`, taxpayerID).Scan(
		&inputs.Household.TaxpayerID,
		&inputs.Household.State,
		&inputs.Household.W2Income,
		&inputs.Household.NumChildren,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: loading household %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}

	historyRows, err := tx.Query(ctx, `
		SELECT taxpayer_id, year_offset, amount
		FROM income_history WHERE taxpayer_id = $1
		ORDER BY year_offset ASC;
	`, taxpayerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying income history for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	for historyRows.Next() {
		var p domain.IncomeHistoryPoint
		if err := historyRows.Scan(&p.TaxpayerID, &p.YearOffset, &p.Amount); err != nil {
			historyRows.Close()
			return nil, fmt.Errorf("failed to scan income history row for %s: %w", taxpayerID, err)
		}
		inputs.IncomeHistory = append(inputs.IncomeHistory, p)
	}
	if err := historyRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating income history for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}

	txnRows, err := tx.Query(ctx, orderedTransactionsQuery, taxpayerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying transactions for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	inputs.Transactions, err = scanTransactions(txnRows, taxpayerID)
	txnRows.Close()
	if err != nil {
		return nil, err
	}

	donationRows, err := tx.Query(ctx, `
		SELECT taxpayer_id, amount FROM donations WHERE taxpayer_id = $1;
	`, taxpayerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying donations for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	for donationRows.Next() {
		var d domain.Donation
		if err := donationRows.Scan(&d.TaxpayerID, &d.Amount); err != nil {
			donationRows.Close()
			return nil, fmt.Errorf("failed to scan donation row for %s: %w", taxpayerID, err)
		}
		inputs.Donations = append(inputs.Donations, d)
	}
	if err := donationRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating donations for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: committing snapshot read for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	return inputs, nil
}

// ListTaxpayerIDs returns taxpayer IDs in ingestion order.
func (r *PgxLedgerRepository) ListTaxpayerIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT taxpayer_id FROM households ORDER BY ingested_seq ASC;`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing taxpayer IDs: %v", apperrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan taxpayer ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating taxpayer IDs: %v", apperrors.ErrStoreUnavailable, err)
	}
	return ids, nil
}

// ListHouseholds returns up to limit households in ingestion order using
// keyset pagination on ingested_seq. An empty afterTaxpayerID starts from the
// beginning; an unknown cursor yields an empty page.
func (r *PgxLedgerRepository) ListHouseholds(ctx context.Context, afterTaxpayerID string, limit int) ([]domain.Household, error) {
	query := `
		SELECT taxpayer_id, state, w2_income, num_children
		FROM households
		WHERE ($1 = '' OR ingested_seq > (SELECT ingested_seq FROM households WHERE taxpayer_id = $1))
		ORDER BY ingested_seq ASC
		LIMIT $2;
	`
	rows, err := r.pool.Query(ctx, query, afterTaxpayerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listing households: %v", apperrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var households []domain.Household
	for rows.Next() {
		var h domain.Household
		if err := rows.Scan(&h.TaxpayerID, &h.State, &h.W2Income, &h.NumChildren); err != nil {
			return nil, fmt.Errorf("failed to scan household row: %w", err)
		}
		households = append(households, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating household rows: %v", apperrors.ErrStoreUnavailable, err)
	}
	return households, nil
}

// SaveComputation writes the gain summary, audit rows, computation and
// COMPLETED status within one DB transaction. Previous rows for the household
// are replaced; no reader ever observes a partial write.
func (r *PgxLedgerRepository) SaveComputation(ctx context.Context, computation domain.TaxComputation, summary domain.GainSummary, matches []domain.RealizedGainRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning result write for %s: %v", apperrors.ErrStoreUnavailable, computation.TaxpayerID, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO gain_summaries (taxpayer_id, net_capital_gain, total_sales_proceeds, total_cost_basis)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (taxpayer_id) DO UPDATE
		SET net_capital_gain = EXCLUDED.net_capital_gain,
		    total_sales_proceeds = EXCLUDED.total_sales_proceeds,
		    total_cost_basis = EXCLUDED.total_cost_basis;
	`, summary.TaxpayerID, summary.NetCapitalGain, summary.TotalSalesProceeds, summary.TotalCostBasis)
	if err != nil {
		return fmt.Errorf("failed to upsert gain summary for %s: %w", summary.TaxpayerID, err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM realized_gains WHERE taxpayer_id = $1;`, computation.TaxpayerID); err != nil {
		return fmt.Errorf("failed to clear realized gains for %s: %w", computation.TaxpayerID, err)
	}
	batch := &pgx.Batch{}
	for _, m := range matches {
		batch.Queue(`
			INSERT INTO realized_gains (taxpayer_id, sell_id, buy_id, matched_quantity, gain_amount)
			VALUES ($1, $2, $3, $4, $5);
		`, m.TaxpayerID, m.SellID, m.BuyID, m.MatchedQuantity, m.GainAmount)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to insert realized gains for %s: %w", computation.TaxpayerID, err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tax_computations (
			taxpayer_id, gross_income, smoothed_income, federal_surcharge,
			standard_deduction, itemized_deduction, deduction_method,
			taxable_income, bracket_tax, total_federal_tax,
			state_basis, state_surcharge, total_state_tax,
			federal_tax_due, state_tax_due
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (taxpayer_id) DO UPDATE
		SET gross_income = EXCLUDED.gross_income,
		    smoothed_income = EXCLUDED.smoothed_income,
		    federal_surcharge = EXCLUDED.federal_surcharge,
		    standard_deduction = EXCLUDED.standard_deduction,
		    itemized_deduction = EXCLUDED.itemized_deduction,
		    deduction_method = EXCLUDED.deduction_method,
		    taxable_income = EXCLUDED.taxable_income,
		    bracket_tax = EXCLUDED.bracket_tax,
		    total_federal_tax = EXCLUDED.total_federal_tax,
		    state_basis = EXCLUDED.state_basis,
		    state_surcharge = EXCLUDED.state_surcharge,
		    total_state_tax = EXCLUDED.total_state_tax,
		    federal_tax_due = EXCLUDED.federal_tax_due,
		    state_tax_due = EXCLUDED.state_tax_due;
	`,
		computation.TaxpayerID,
		computation.GrossIncome,
		computation.SmoothedIncome,
		computation.FederalSurcharge,
		computation.StandardDeduction,
		computation.ItemizedDeduction,
		computation.DeductionMethod,
		computation.TaxableIncome,
		computation.BracketTax,
		computation.TotalFederalTax,
		computation.StateBasis,
		computation.StateSurcharge,
		computation.TotalStateTax,
		computation.FederalTaxDue,
		computation.StateTaxDue,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert computation for %s: %w", computation.TaxpayerID, err)
	}

	if err := upsertStatus(ctx, tx, computation.TaxpayerID, domain.StatusCompleted); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing result write for %s: %v", apperrors.ErrStoreUnavailable, computation.TaxpayerID, err)
	}
	return nil
}

// MarkStatus records the pipeline status for a household.
func (r *PgxLedgerRepository) MarkStatus(ctx context.Context, taxpayerID string, status domain.ComputationStatus) error {
	_, err := r.pool.Exec(ctx, statusUpsertQuery, taxpayerID, status)
	if err != nil {
		return fmt.Errorf("%w: marking status for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	return nil
}

const statusUpsertQuery = `
	INSERT INTO computation_statuses (taxpayer_id, status)
	VALUES ($1, $2)
	ON CONFLICT (taxpayer_id) DO UPDATE SET status = EXCLUDED.status;
`

func upsertStatus(ctx context.Context, tx pgx.Tx, taxpayerID string, status domain.ComputationStatus) error {
	if _, err := tx.Exec(ctx, statusUpsertQuery, taxpayerID, status); err != nil {
		return fmt.Errorf("failed to upsert status for %s: %w", taxpayerID, err)
	}
	return nil
}

// FindComputation retrieves the persisted computation for a household.
func (r *PgxLedgerRepository) FindComputation(ctx context.Context, taxpayerID string) (*domain.TaxComputation, error) {
	query := `
		SELECT taxpayer_id, gross_income, smoothed_income, federal_surcharge,
		       standard_deduction, itemized_deduction, deduction_method,
		       taxable_income, bracket_tax, total_federal_tax,
		       state_basis, state_surcharge, total_state_tax,
		       federal_tax_due, state_tax_due
		FROM tax_computations
		WHERE taxpayer_id = $1;
	`
	var c domain.TaxComputation
	err := r.pool.QueryRow(ctx, query, taxpayerID).Scan(
		&c.TaxpayerID,
		&c.GrossIncome,
		&c.SmoothedIncome,
		&c.FederalSurcharge,
		&c.StandardDeduction,
		&c.ItemizedDeduction,
		&c.DeductionMethod,
		&c.TaxableIncome,
		&c.BracketTax,
		&c.TotalFederalTax,
		&c.StateBasis,
		&c.StateSurcharge,
		&c.TotalStateTax,
		&c.FederalTaxDue,
		&c.StateTaxDue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding computation for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	return &c, nil
}

// FindStatus retrieves the pipeline status for a household.
func (r *PgxLedgerRepository) FindStatus(ctx context.Context, taxpayerID string) (domain.ComputationStatus, error) {
	var status domain.ComputationStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM computation_statuses WHERE taxpayer_id = $1;`, taxpayerID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("%w: finding status for %s: %v", apperrors.ErrStoreUnavailable, taxpayerID, err)
	}
	return status, nil
}
