package report_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/avalonfin/taxengine/internal/adapters/database/memory"
	"github.com/avalonfin/taxengine/internal/core/domain"
	"github.com/avalonfin/taxengine/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completed(t *testing.T, repo *memory.MemoryLedgerRepository, taxpayerID string, federal, state int64) {
	t.Helper()
	err := repo.SaveComputation(context.Background(), domain.TaxComputation{
		TaxpayerID:    taxpayerID,
		FederalTaxDue: federal,
		StateTaxDue:   state,
	}, domain.GainSummary{}, nil)
	require.NoError(t, err)
}

func TestWriter_PreservesInputOrder(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()

	// Completed in a different order than the input.
	completed(t, repo, "TP-B", 200, 20)
	completed(t, repo, "TP-A", 100, 10)
	completed(t, repo, "TP-C", 300, 30)

	var out bytes.Buffer
	writer := report.NewWriter(repo)
	require.NoError(t, writer.Write(ctx, []string{"TP-A", "TP-B", "TP-C"}, &out))

	want := `{"taxpayer_id":"TP-A","federal_tax":100,"state_tax":10}` + "\n" +
		`{"taxpayer_id":"TP-B","federal_tax":200,"state_tax":20}` + "\n" +
		`{"taxpayer_id":"TP-C","federal_tax":300,"state_tax":30}` + "\n"
	assert.Equal(t, want, out.String())
}

func TestWriter_OmitsMissingAndErroredHouseholds(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()

	completed(t, repo, "TP-1", 100, 10)
	// TP-2 never produced a computation.
	require.NoError(t, repo.MarkStatus(ctx, "TP-2", domain.StatusError))
	// TP-3 has a stale computation but its latest run errored.
	completed(t, repo, "TP-3", 300, 30)
	require.NoError(t, repo.MarkStatus(ctx, "TP-3", domain.StatusError))
	completed(t, repo, "TP-4", 400, 40)

	var out bytes.Buffer
	writer := report.NewWriter(repo)
	require.NoError(t, writer.Write(ctx, []string{"TP-1", "TP-2", "TP-3", "TP-4"}, &out))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"TP-1"`)
	assert.Contains(t, lines[1], `"TP-4"`)
}

func TestWriter_EmptyBatchWritesNothing(t *testing.T) {
	repo := memory.NewMemoryLedgerRepository()

	var out bytes.Buffer
	writer := report.NewWriter(repo)
	require.NoError(t, writer.Write(context.Background(), nil, &out))
	assert.Zero(t, out.Len())
}

func TestWriter_IsDeterministic(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()
	completed(t, repo, "TP-1", 22500, 11700)
	completed(t, repo, "TP-2", 0, 5)

	writer := report.NewWriter(repo)
	var first, second bytes.Buffer
	require.NoError(t, writer.Write(ctx, []string{"TP-1", "TP-2"}, &first))
	require.NoError(t, writer.Write(ctx, []string{"TP-1", "TP-2"}, &second))
	assert.Equal(t, first.String(), second.String())
}
