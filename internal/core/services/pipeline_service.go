package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
	portssvc "github.com/avalonfin/taxengine/internal/core/ports/services"
	"github.com/avalonfin/taxengine/internal/middleware"
)

// pipelineService sequences matcher, smoother, federal and state resolvers per
// household and persists the result. Households are independent: each one is
// computed from a private input snapshot, and a failure is recorded in that
// household's status without touching the rest of the batch.
type pipelineService struct {
	ledgerRepo portsrepo.LedgerRepositoryFacade
	gainsSvc   portssvc.CapitalGainsSvc
	smoothSvc  portssvc.IncomeSmoothingSvc
	federalSvc portssvc.FederalResolverSvc
	stateSvc   portssvc.StateResolverSvc
	numWorkers int
}

// NewPipelineService creates the pipeline orchestrator. numWorkers <= 1 runs
// households sequentially; larger values run a worker pool pulling taxpayer
// IDs from a shared queue.
func NewPipelineService(
	ledgerRepo portsrepo.LedgerRepositoryFacade,
	gainsSvc portssvc.CapitalGainsSvc,
	smoothSvc portssvc.IncomeSmoothingSvc,
	federalSvc portssvc.FederalResolverSvc,
	stateSvc portssvc.StateResolverSvc,
	numWorkers int,
) portssvc.PipelineSvcFacade {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &pipelineService{
		ledgerRepo: ledgerRepo,
		gainsSvc:   gainsSvc,
		smoothSvc:  smoothSvc,
		federalSvc: federalSvc,
		stateSvc:   stateSvc,
		numWorkers: numWorkers,
	}
}

var _ portssvc.PipelineSvcFacade = (*pipelineService)(nil)

// ComputeHousehold runs the four-stage pipeline for one household.
//
// The store is touched exactly twice: one snapshot read of all inputs before
// computing, and one atomic write of the computation, gain summary, audit rows
// and COMPLETED status after. Computation itself holds no lock and shares no
// state with other households. Household-scoped failures (including panics in
// any stage) are recorded as ERROR status and returned wrapped in
// apperrors.ErrComputationFailure; store-scoped failures are returned as-is so
// the caller can abort the batch.
func (s *pipelineService) ComputeHousehold(ctx context.Context, taxpayerID string) error {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("taxpayer_id", taxpayerID))
	ctx = middleware.WithLogger(ctx, logger)

	if err := s.ledgerRepo.MarkStatus(ctx, taxpayerID, domain.StatusPending); err != nil {
		return fmt.Errorf("marking household %s pending: %w", taxpayerID, err)
	}

	computation, summary, matches, err := s.compute(ctx, taxpayerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrStoreUnavailable) {
			return err
		}
		logger.Warn("Household computation failed", slog.String("error", err.Error()))
		if markErr := s.ledgerRepo.MarkStatus(ctx, taxpayerID, domain.StatusError); markErr != nil {
			return fmt.Errorf("marking household %s errored: %w", taxpayerID, markErr)
		}
		if errors.Is(err, apperrors.ErrComputationFailure) || errors.Is(err, apperrors.ErrUnsupportedJurisdiction) {
			return err
		}
		return fmt.Errorf("%w: %v", apperrors.ErrComputationFailure, err)
	}

	if err := s.ledgerRepo.SaveComputation(ctx, *computation, *summary, matches); err != nil {
		return fmt.Errorf("persisting computation for %s: %w", taxpayerID, err)
	}
	return nil
}

// compute runs the pure computation stages against a fresh input snapshot.
// Any panic in a stage is converted into ErrComputationFailure.
func (s *pipelineService) compute(ctx context.Context, taxpayerID string) (computation *domain.TaxComputation, summary *domain.GainSummary, matches []domain.RealizedGainRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			computation, summary, matches = nil, nil, nil
			err = fmt.Errorf("%w: panic: %v", apperrors.ErrComputationFailure, r)
		}
	}()

	inputs, err := s.ledgerRepo.LoadHouseholdInputs(ctx, taxpayerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading inputs for %s: %w", taxpayerID, err)
	}

	gainSummary, gainMatches := s.gainsSvc.MatchGains(ctx, taxpayerID, inputs.Transactions)
	smoothed := s.smoothSvc.SmoothIncome(inputs.IncomeHistory)
	result := s.federalSvc.ResolveFederal(inputs.Household, gainSummary.NetCapitalGain, smoothed, inputs.Donations)
	result, err = s.stateSvc.ResolveState(inputs.Household, gainSummary.NetCapitalGain, result)
	if err != nil {
		return nil, nil, nil, err
	}

	// Final rounding happens only here, at the boundary. Half-up to the
	// nearest whole currency unit; all intermediate fields keep full precision.
	result.FederalTaxDue = result.TotalFederalTax.Round(0).IntPart()
	result.StateTaxDue = result.TotalStateTax.Round(0).IntPart()

	return &result, &gainSummary, gainMatches, nil
}

// ComputeBatch computes every given household. Household failures are isolated;
// the batch aborts only when the ledger store itself becomes unavailable.
func (s *pipelineService) ComputeBatch(ctx context.Context, taxpayerIDs []string) error {
	if s.numWorkers <= 1 {
		for _, taxpayerID := range taxpayerIDs {
			if err := s.computeIsolated(ctx, taxpayerID); err != nil {
				return err
			}
		}
		return nil
	}

	// Worker-pool model: N workers drain a shared FIFO queue of taxpayer IDs,
	// each performing the full four-stage computation independently.
	queue := make(chan string)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)

	for range s.numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for taxpayerID := range queue {
				if err := s.computeIsolated(ctx, taxpayerID); err != nil {
					mu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					mu.Unlock()
					cancel()
					return
				}
			}
		}()
	}

feed:
	for _, taxpayerID := range taxpayerIDs {
		select {
		case queue <- taxpayerID:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return fatalErr
}

// computeIsolated runs one household and swallows household-scoped errors,
// which ComputeHousehold has already logged and recorded in status. Only
// batch-scoped errors propagate.
func (s *pipelineService) computeIsolated(ctx context.Context, taxpayerID string) error {
	err := s.ComputeHousehold(ctx, taxpayerID)
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrComputationFailure) || errors.Is(err, apperrors.ErrUnsupportedJurisdiction) {
		return nil
	}
	return err
}
