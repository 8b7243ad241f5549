package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/avalonfin/taxengine/internal/adapters/database/memory"
	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	"github.com/avalonfin/taxengine/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryService_ListHouseholdsPagesInIngestionOrder(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryLedgerRepository()
	for i := range 5 {
		require.NoError(t, repo.SaveHousehold(ctx, domain.Household{
			TaxpayerID: fmt.Sprintf("TP-%d", i+1),
			State:      domain.Texas,
		}))
	}

	qs := services.NewQueryService(repo)

	var collected []string
	token := ""
	for {
		page, nextToken, err := qs.ListHouseholds(ctx, 2, token)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, h := range page {
			collected = append(collected, h.TaxpayerID)
		}
		if nextToken == "" {
			break
		}
		token = nextToken
	}

	assert.Equal(t, []string{"TP-1", "TP-2", "TP-3", "TP-4", "TP-5"}, collected)
}

func TestQueryService_ListHouseholdsRejectsBadToken(t *testing.T) {
	qs := services.NewQueryService(memory.NewMemoryLedgerRepository())
	_, _, err := qs.ListHouseholds(context.Background(), 10, "not a valid token!")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
