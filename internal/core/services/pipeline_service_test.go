package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/avalonfin/taxengine/internal/adapters/database/memory"
	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	portsrepo "github.com/avalonfin/taxengine/internal/core/ports/repositories"
	portssvc "github.com/avalonfin/taxengine/internal/core/ports/services"
	"github.com/avalonfin/taxengine/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite over the in-memory ledger store ---

type PipelineServiceTestSuite struct {
	suite.Suite
	repo *memory.MemoryLedgerRepository
}

func (s *PipelineServiceTestSuite) SetupTest() {
	s.repo = memory.NewMemoryLedgerRepository()
}

func (s *PipelineServiceTestSuite) newPipeline(numWorkers int) portssvc.PipelineSvcFacade {
	container := services.NewContainer(&portsrepo.RepositoryProvider{LedgerRepo: s.repo}, numWorkers)
	return container.Pipeline
}

func (s *PipelineServiceTestSuite) stageHousehold(taxpayerID string, state domain.StateCode, w2 int64) {
	ctx := context.Background()
	s.Require().NoError(s.repo.SaveHousehold(ctx, domain.Household{
		TaxpayerID: taxpayerID,
		State:      state,
		W2Income:   decimal.NewFromInt(w2),
	}))
}

func (s *PipelineServiceTestSuite) TestComputeHousehold_TexasEndToEnd() {
	ctx := context.Background()
	s.stageHousehold("TP-1", domain.Texas, 260000)

	pipeline := s.newPipeline(1)
	s.Require().NoError(pipeline.ComputeHousehold(ctx, "TP-1"))

	computation, err := s.repo.FindComputation(ctx, "TP-1")
	s.Require().NoError(err)

	// gross 260000, standard deduction, taxable 250000.
	s.True(computation.TaxableIncome.Equal(decimal.NewFromInt(250000)))
	s.Equal(domain.Standard, computation.DeductionMethod)
	// Federal: 5000 + 10000 + 7500 = 22500.
	s.EqualValues(22500, computation.FederalTaxDue)
	// Texas: 2700 + 5500 + 3500 = 11700, no discount at a 10000 deduction.
	s.EqualValues(11700, computation.StateTaxDue)

	status, err := s.repo.FindStatus(ctx, "TP-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusCompleted, status)
}

func (s *PipelineServiceTestSuite) TestComputeHousehold_RoundsHalfUpAtBoundary() {
	ctx := context.Background()
	s.Require().NoError(s.repo.SaveHousehold(ctx, domain.Household{
		TaxpayerID: "TP-1",
		State:      domain.California,
		W2Income:   decimal.RequireFromString("112.50"),
	}))

	pipeline := s.newPipeline(1)
	s.Require().NoError(pipeline.ComputeHousehold(ctx, "TP-1"))

	computation, err := s.repo.FindComputation(ctx, "TP-1")
	s.Require().NoError(err)

	// CA base = 0.04 * 112.50 = 4.5 exactly; rounding at the boundary is
	// half-up, so 5 is due, while the stored decimal keeps full precision.
	s.True(computation.TotalStateTax.Equal(decimal.RequireFromString("4.5")))
	s.EqualValues(5, computation.StateTaxDue)
	s.EqualValues(0, computation.FederalTaxDue)
}

func (s *PipelineServiceTestSuite) TestComputeBatch_IsolatesFailures() {
	ctx := context.Background()
	s.stageHousehold("TP-1", domain.Texas, 50000)
	s.stageHousehold("TP-2", domain.StateCode("Nevada"), 50000)
	s.stageHousehold("TP-3", domain.California, 50000)

	pipeline := s.newPipeline(1)
	s.Require().NoError(pipeline.ComputeBatch(ctx, []string{"TP-1", "TP-2", "TP-3"}))

	status, err := s.repo.FindStatus(ctx, "TP-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusCompleted, status)

	status, err = s.repo.FindStatus(ctx, "TP-2")
	s.Require().NoError(err)
	s.Equal(domain.StatusError, status)
	_, err = s.repo.FindComputation(ctx, "TP-2")
	s.ErrorIs(err, apperrors.ErrNotFound)

	status, err = s.repo.FindStatus(ctx, "TP-3")
	s.Require().NoError(err)
	s.Equal(domain.StatusCompleted, status)
}

func (s *PipelineServiceTestSuite) TestComputeBatch_RerunIsIdempotent() {
	ctx := context.Background()
	s.stageHousehold("TP-1", domain.Texas, 260000)
	s.stageHousehold("TP-2", domain.California, 90000)

	pipeline := s.newPipeline(1)
	ids := []string{"TP-1", "TP-2"}
	s.Require().NoError(pipeline.ComputeBatch(ctx, ids))

	first := make(map[string]domain.TaxComputation)
	for _, id := range ids {
		computation, err := s.repo.FindComputation(ctx, id)
		s.Require().NoError(err)
		first[id] = *computation
	}

	s.Require().NoError(pipeline.ComputeBatch(ctx, ids))
	for _, id := range ids {
		computation, err := s.repo.FindComputation(ctx, id)
		s.Require().NoError(err)
		s.Equal(first[id], *computation)
	}
}

func (s *PipelineServiceTestSuite) TestComputeBatch_ParallelMatchesSequential() {
	ctx := context.Background()

	var ids []string
	for i := range 20 {
		id := fmt.Sprintf("TP-%02d", i)
		state := domain.Texas
		if i%2 == 0 {
			state = domain.California
		}
		s.stageHousehold(id, state, int64(40000+i*17500))
		ids = append(ids, id)
	}

	sequential := s.newPipeline(1)
	s.Require().NoError(sequential.ComputeBatch(ctx, ids))
	want := make(map[string]domain.TaxComputation)
	for _, id := range ids {
		computation, err := s.repo.FindComputation(ctx, id)
		s.Require().NoError(err)
		want[id] = *computation
	}

	parallel := s.newPipeline(4)
	s.Require().NoError(parallel.ComputeBatch(ctx, ids))
	for _, id := range ids {
		computation, err := s.repo.FindComputation(ctx, id)
		s.Require().NoError(err)
		s.Equal(want[id], *computation, "household %s diverged under the worker pool", id)

		status, err := s.repo.FindStatus(ctx, id)
		s.Require().NoError(err)
		s.Equal(domain.StatusCompleted, status)
	}
}

func TestPipelineService(t *testing.T) {
	suite.Run(t, new(PipelineServiceTestSuite))
}

// --- Mock ledger store for batch-abort behavior ---

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) FindHouseholdByID(ctx context.Context, taxpayerID string) (*domain.Household, error) {
	args := m.Called(ctx, taxpayerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Household), args.Error(1)
}

func (m *MockLedgerRepository) FindOrderedTransactions(ctx context.Context, taxpayerID string) ([]domain.AssetTransaction, error) {
	args := m.Called(ctx, taxpayerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AssetTransaction), args.Error(1)
}

func (m *MockLedgerRepository) LoadHouseholdInputs(ctx context.Context, taxpayerID string) (*domain.HouseholdInputs, error) {
	args := m.Called(ctx, taxpayerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HouseholdInputs), args.Error(1)
}

func (m *MockLedgerRepository) ListTaxpayerIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedgerRepository) ListHouseholds(ctx context.Context, afterTaxpayerID string, limit int) ([]domain.Household, error) {
	args := m.Called(ctx, afterTaxpayerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Household), args.Error(1)
}

func (m *MockLedgerRepository) SaveHousehold(ctx context.Context, household domain.Household) error {
	return m.Called(ctx, household).Error(0)
}

func (m *MockLedgerRepository) AppendTransactions(ctx context.Context, txns []domain.AssetTransaction) error {
	return m.Called(ctx, txns).Error(0)
}

func (m *MockLedgerRepository) AppendDonations(ctx context.Context, donations []domain.Donation) error {
	return m.Called(ctx, donations).Error(0)
}

func (m *MockLedgerRepository) SaveIncomeHistory(ctx context.Context, points []domain.IncomeHistoryPoint) error {
	return m.Called(ctx, points).Error(0)
}

func (m *MockLedgerRepository) FindComputation(ctx context.Context, taxpayerID string) (*domain.TaxComputation, error) {
	args := m.Called(ctx, taxpayerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaxComputation), args.Error(1)
}

func (m *MockLedgerRepository) FindStatus(ctx context.Context, taxpayerID string) (domain.ComputationStatus, error) {
	args := m.Called(ctx, taxpayerID)
	return args.Get(0).(domain.ComputationStatus), args.Error(1)
}

func (m *MockLedgerRepository) SaveComputation(ctx context.Context, computation domain.TaxComputation, summary domain.GainSummary, matches []domain.RealizedGainRecord) error {
	return m.Called(ctx, computation, summary, matches).Error(0)
}

func (m *MockLedgerRepository) MarkStatus(ctx context.Context, taxpayerID string, status domain.ComputationStatus) error {
	return m.Called(ctx, taxpayerID, status).Error(0)
}

func TestComputeBatch_StoreUnavailableAborts(t *testing.T) {
	mockRepo := new(MockLedgerRepository)
	container := services.NewContainer(&portsrepo.RepositoryProvider{LedgerRepo: mockRepo}, 1)

	storeErr := fmt.Errorf("%w: connection refused", apperrors.ErrStoreUnavailable)
	mockRepo.On("MarkStatus", mock.Anything, "TP-1", domain.StatusPending).Return(nil).Once()
	mockRepo.On("LoadHouseholdInputs", mock.Anything, "TP-1").Return(nil, storeErr).Once()

	err := container.Pipeline.ComputeBatch(context.Background(), []string{"TP-1", "TP-2"})

	if err == nil {
		t.Fatal("expected a batch-scoped error")
	}
	if !mockRepo.AssertExpectations(t) {
		t.Fatal("unexpected store interactions")
	}
	// TP-2 must never have been attempted.
	mockRepo.AssertNotCalled(t, "LoadHouseholdInputs", mock.Anything, "TP-2")
}
