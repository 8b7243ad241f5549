package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
	"github.com/avalonfin/taxengine/internal/dto"
	"github.com/avalonfin/taxengine/internal/middleware"
	"github.com/go-playground/validator/v10"
)

// maxLineBytes bounds a single input line. Households with very large
// transaction histories still fit comfortably.
const maxLineBytes = 4 * 1024 * 1024

// Reader stages NDJSON household records into the ledger store.
// Malformed or invalid lines are logged and skipped; they never abort the
// batch.
type Reader struct {
	ledgerRepo portsrepo.LedgerWriter
	validate   *validator.Validate
}

// NewReader creates an ingest reader over the given ledger store.
func NewReader(ledgerRepo portsrepo.LedgerWriter) *Reader {
	return &Reader{
		ledgerRepo: ledgerRepo,
		validate:   validator.New(),
	}
}

// IngestFile ingests a file and returns the taxpayer IDs in input order.
func (r *Reader) IngestFile(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file %s: %w", path, err)
	}
	defer f.Close()
	return r.Ingest(ctx, f)
}

// Ingest reads NDJSON household records from in and stages them.
// The returned slice holds the taxpayer ID of every accepted record in the
// order its line appeared; the report preserves this order.
func (r *Reader) Ingest(ctx context.Context, in io.Reader) ([]string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var taxpayerIDs []string
	seen := make(map[string]bool)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record dto.HouseholdInput
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			logger.Warn("Skipping malformed input line",
				slog.Int("line", lineNum),
				slog.String("error", fmt.Errorf("%w: %v", apperrors.ErrMalformedInput, err).Error()))
			continue
		}
		if err := r.validateRecord(record); err != nil {
			logger.Warn("Skipping invalid input line",
				slog.Int("line", lineNum),
				slog.String("error", fmt.Errorf("%w: %v", apperrors.ErrMalformedInput, err).Error()))
			continue
		}

		if err := r.stage(ctx, record); err != nil {
			return nil, fmt.Errorf("staging record for %s (line %d): %w", record.TaxpayerID, lineNum, err)
		}

		if !seen[record.TaxpayerID] {
			seen[record.TaxpayerID] = true
			taxpayerIDs = append(taxpayerIDs, record.TaxpayerID)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	logger.Info("Ingestion complete",
		slog.Int("lines_read", lineNum), slog.Int("households", len(taxpayerIDs)))
	return taxpayerIDs, nil
}

// validateRecord checks structure via tags, then the sign constraints the tags
// cannot express on decimal fields.
func (r *Reader) validateRecord(record dto.HouseholdInput) error {
	if err := r.validate.Struct(record); err != nil {
		return err
	}
	if record.W2Income.Sign() < 0 {
		return fmt.Errorf("w2_income must be non-negative")
	}
	for i, trade := range record.Purchases {
		if err := validateTrade(trade); err != nil {
			return fmt.Errorf("purchases[%d]: %w", i, err)
		}
	}
	for i, trade := range record.Sales {
		if err := validateTrade(trade); err != nil {
			return fmt.Errorf("sales[%d]: %w", i, err)
		}
	}
	for i, amount := range record.CharitableDonations {
		if amount.Sign() < 0 {
			return fmt.Errorf("charitable_donations[%d] must be non-negative", i)
		}
	}
	return nil
}

func validateTrade(trade dto.AssetTradeInput) error {
	if trade.Quantity.Sign() <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if trade.UnitPrice.Sign() < 0 {
		return fmt.Errorf("unit_price must be non-negative")
	}
	return nil
}

// stage persists one record's rows. Transaction IDs are assigned here,
// strictly increasing per household: purchases in array order, then sales.
func (r *Reader) stage(ctx context.Context, record dto.HouseholdInput) error {
	household := domain.Household{
		TaxpayerID:  record.TaxpayerID,
		State:       domain.StateCode(record.State),
		W2Income:    record.W2Income,
		NumChildren: record.NumChildren,
	}
	if err := r.ledgerRepo.SaveHousehold(ctx, household); err != nil {
		return err
	}

	if len(record.PriorFiveYearsIncome) == 5 {
		points := make([]domain.IncomeHistoryPoint, 0, 5)
		for i, amount := range record.PriorFiveYearsIncome {
			points = append(points, domain.IncomeHistoryPoint{
				TaxpayerID: record.TaxpayerID,
				YearOffset: i - 5, // oldest first: index 0 is year -5
				Amount:     amount,
			})
		}
		if err := r.ledgerRepo.SaveIncomeHistory(ctx, points); err != nil {
			return err
		}
	}

	var txns []domain.AssetTransaction
	nextID := int64(1)
	appendTrades := func(trades []dto.AssetTradeInput, txnType domain.TransactionType) {
		for _, trade := range trades {
			txns = append(txns, domain.AssetTransaction{
				ID:         nextID,
				TaxpayerID: record.TaxpayerID,
				AssetID:    trade.AssetID,
				Date:       trade.Date,
				Type:       txnType,
				Quantity:   trade.Quantity,
				UnitPrice:  trade.UnitPrice,
			})
			nextID++
		}
	}
	appendTrades(record.Purchases, domain.Buy)
	appendTrades(record.Sales, domain.Sell)
	if err := r.ledgerRepo.AppendTransactions(ctx, txns); err != nil {
		return err
	}

	donations := make([]domain.Donation, 0, len(record.CharitableDonations))
	for _, amount := range record.CharitableDonations {
		donations = append(donations, domain.Donation{
			TaxpayerID: record.TaxpayerID,
			Amount:     amount,
		})
	}
	return r.ledgerRepo.AppendDonations(ctx, donations)
}
