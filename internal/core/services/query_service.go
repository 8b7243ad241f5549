package services

import (
	"context"
	"fmt"

	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
	portssvc "github.com/avalonfin/taxengine/internal/core/ports/services"
	"github.com/avalonfin/taxengine/internal/utils/pagination"
)

// queryService provides read access over the ledger store.
type queryService struct {
	ledgerRepo portsrepo.LedgerRepositoryFacade
}

// NewQueryService creates a new result query service.
func NewQueryService(ledgerRepo portsrepo.LedgerRepositoryFacade) portssvc.ResultQuerySvc {
	return &queryService{ledgerRepo: ledgerRepo}
}

var _ portssvc.ResultQuerySvc = (*queryService)(nil)

func (s *queryService) GetHousehold(ctx context.Context, taxpayerID string) (*domain.Household, error) {
	household, err := s.ledgerRepo.FindHouseholdByID(ctx, taxpayerID)
	if err != nil {
		return nil, fmt.Errorf("fetching household %s: %w", taxpayerID, err)
	}
	return household, nil
}

func (s *queryService) GetComputation(ctx context.Context, taxpayerID string) (*domain.TaxComputation, error) {
	computation, err := s.ledgerRepo.FindComputation(ctx, taxpayerID)
	if err != nil {
		return nil, fmt.Errorf("fetching computation for %s: %w", taxpayerID, err)
	}
	return computation, nil
}

func (s *queryService) GetStatus(ctx context.Context, taxpayerID string) (domain.ComputationStatus, error) {
	status, err := s.ledgerRepo.FindStatus(ctx, taxpayerID)
	if err != nil {
		return "", fmt.Errorf("fetching status for %s: %w", taxpayerID, err)
	}
	return status, nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ListHouseholds pages through staged households in ingestion order. The
// cursor encodes the last taxpayer ID of the previous page; a full page
// always carries a token even when it is the final one, so callers stop on
// the first empty page.
func (s *queryService) ListHouseholds(ctx context.Context, limit int, nextToken string) ([]domain.Household, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	afterTaxpayerID := ""
	if nextToken != "" {
		decoded, err := pagination.DecodeToken(nextToken)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		afterTaxpayerID = decoded
	}

	households, err := s.ledgerRepo.ListHouseholds(ctx, afterTaxpayerID, limit)
	if err != nil {
		return nil, "", fmt.Errorf("listing households: %w", err)
	}

	token := ""
	if len(households) == limit {
		token = pagination.EncodeToken(households[len(households)-1].TaxpayerID)
	}
	return households, token, nil
}
