package services

import (
	"github.com/avalonfin/taxengine/internal/core/domain"
	portssvc "github.com/avalonfin/taxengine/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// smoothingAlpha is the EWMA weight applied to the newer observation.
var smoothingAlpha = decimal.NewFromFloat(0.6)

// smoothingService computes the exponentially weighted moving average of the
// five prior-year income values.
type smoothingService struct{}

// NewSmoothingService creates a new income smoothing service.
func NewSmoothingService() portssvc.IncomeSmoothingSvc {
	return &smoothingService{}
}

var _ portssvc.IncomeSmoothingSvc = (*smoothingService)(nil)

// SmoothIncome seeds the average with the oldest year (offset -5) and folds in
// offsets -4 through -1 with E_k = alpha*Y + (1-alpha)*E_{k-1}. Missing
// offsets contribute zero. Pure function, no side effects.
func (s *smoothingService) SmoothIncome(points []domain.IncomeHistoryPoint) decimal.Decimal {
	byOffset := make(map[int]decimal.Decimal, len(points))
	for _, p := range points {
		byOffset[p.YearOffset] = p.Amount
	}

	oneMinusAlpha := decimal.NewFromInt(1).Sub(smoothingAlpha)

	smoothed := byOffset[-5]
	for _, offset := range []int{-4, -3, -2, -1} {
		smoothed = smoothingAlpha.Mul(byOffset[offset]).Add(oneMinusAlpha.Mul(smoothed))
	}
	return smoothed
}
