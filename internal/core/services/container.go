package services

import (
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
	portssvc "github.com/avalonfin/taxengine/internal/core/ports/services"
)

// NewContainer creates a new service container with properly initialized dependencies
func NewContainer(repos *portsrepo.RepositoryProvider, numWorkers int) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{
		Gains:     NewGainsService(),
		Smoothing: NewSmoothingService(),
		Federal:   NewFederalService(),
		State:     NewStateService(),
		Query:     NewQueryService(repos.LedgerRepo),
	}

	container.Pipeline = NewPipelineService(
		repos.LedgerRepo,
		container.Gains,
		container.Smoothing,
		container.Federal,
		container.State,
		numWorkers,
	)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.CapitalGainsSvc    = (*gainsService)(nil)
	_ portssvc.IncomeSmoothingSvc = (*smoothingService)(nil)
	_ portssvc.FederalResolverSvc = (*federalService)(nil)
	_ portssvc.StateResolverSvc   = (*stateService)(nil)
	_ portssvc.PipelineSvcFacade  = (*pipelineService)(nil)
	_ portssvc.ResultQuerySvc     = (*queryService)(nil)
)
