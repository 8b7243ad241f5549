package report

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
	"github.com/avalonfin/taxengine/internal/dto"
	"github.com/avalonfin/taxengine/internal/middleware"
)

// Writer emits the NDJSON report of computed liabilities.
// Output lines follow the input line order exactly, no matter in which order
// the pipeline completed households. Households without a COMPLETED
// computation are omitted, never zero-filled.
type Writer struct {
	resultRepo portsrepo.ResultReader
}

// NewWriter creates a report writer over the given result store.
func NewWriter(resultRepo portsrepo.ResultReader) *Writer {
	return &Writer{resultRepo: resultRepo}
}

// WriteFile writes the report for the given taxpayer IDs (input order) to path.
func (w *Writer) WriteFile(ctx context.Context, taxpayerIDs []string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", path, err)
	}
	if err := w.Write(ctx, taxpayerIDs, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write streams one JSON line per successfully computed household to out.
func (w *Writer) Write(ctx context.Context, taxpayerIDs []string, out io.Writer) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	buffered := bufio.NewWriter(out)
	written := 0
	for _, taxpayerID := range taxpayerIDs {
		computation, err := w.resultRepo.FindComputation(ctx, taxpayerID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				logger.Warn("No computation for household; omitting from report",
					slog.String("taxpayer_id", taxpayerID))
				continue
			}
			return fmt.Errorf("fetching computation for %s: %w", taxpayerID, err)
		}

		status, err := w.resultRepo.FindStatus(ctx, taxpayerID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("fetching status for %s: %w", taxpayerID, err)
		}
		if status != domain.StatusCompleted {
			logger.Warn("Household not completed; omitting from report",
				slog.String("taxpayer_id", taxpayerID), slog.String("status", string(status)))
			continue
		}

		line, err := json.Marshal(dto.ReportLine{
			TaxpayerID: computation.TaxpayerID,
			FederalTax: computation.FederalTaxDue,
			StateTax:   computation.StateTaxDue,
		})
		if err != nil {
			return fmt.Errorf("marshalling report line for %s: %w", taxpayerID, err)
		}
		if _, err := buffered.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("writing report line for %s: %w", taxpayerID, err)
		}
		written++
	}

	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	logger.Info("Report complete", slog.Int("households_written", written))
	return nil
}
