package services

import (
	"context"

	"github.com/avalonfin/taxengine/internal/core/domain"
)

// ResultQuerySvc exposes read access to staged households and computed results.
// It backs the HTTP API; the batch report goes through the same operations.
type ResultQuerySvc interface {
	// GetHousehold retrieves a staged household by taxpayer ID.
	GetHousehold(ctx context.Context, taxpayerID string) (*domain.Household, error)

	// GetComputation retrieves the persisted computation for a household.
	GetComputation(ctx context.Context, taxpayerID string) (*domain.TaxComputation, error)

	// GetStatus retrieves the pipeline status for a household.
	GetStatus(ctx context.Context, taxpayerID string) (domain.ComputationStatus, error)

	// ListHouseholds returns one page of staged households in ingestion order.
	// nextToken is an opaque cursor from a previous page; the returned token is
	// empty when no further pages exist.
	ListHouseholds(ctx context.Context, limit int, nextToken string) ([]domain.Household, string, error)
}
