package services

import (
	"context"
	"log/slog"

	"github.com/avalonfin/taxengine/internal/apperrors"
	"github.com/avalonfin/taxengine/internal/core/domain"
	portssvc "github.com/avalonfin/taxengine/internal/core/ports/services"
	"github.com/avalonfin/taxengine/internal/middleware"
	"github.com/shopspring/decimal"
)

// gainsService implements FIFO capital-gains matching.
type gainsService struct{}

// NewGainsService creates a new capital-gains matching service.
func NewGainsService() portssvc.CapitalGainsSvc {
	return &gainsService{}
}

var _ portssvc.CapitalGainsSvc = (*gainsService)(nil)

// MatchGains matches every SELL against the earliest open BUY lots of the same
// asset and accumulates realized gain.
//
// The lot arena is private to this call: BUY rows are copied into fresh
// domain.Lot values, so concurrent computations for other households never
// share mutable state. The input must already be ordered (date ASC, id ASC);
// lots keep that order per asset and sales are processed in that order.
//
// A sale larger than the open lots of its asset is a data-integrity violation:
// the unmatched remainder is logged and dropped (it contributes no cost basis
// and no further gain), and the household computation continues.
func (s *gainsService) MatchGains(ctx context.Context, taxpayerID string, txns []domain.AssetTransaction) (domain.GainSummary, []domain.RealizedGainRecord) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// Build the per-asset lot arena from all BUYs, preserving input order.
	lotsByAsset := make(map[string][]*domain.Lot)
	var sales []domain.AssetTransaction
	for _, txn := range txns {
		switch txn.Type {
		case domain.Buy:
			lotsByAsset[txn.AssetID] = append(lotsByAsset[txn.AssetID], &domain.Lot{
				BuyID:     txn.ID,
				AssetID:   txn.AssetID,
				UnitPrice: txn.UnitPrice,
				Remaining: txn.Quantity,
			})
		case domain.Sell:
			sales = append(sales, txn)
		}
	}

	summary := domain.GainSummary{
		TaxpayerID:         taxpayerID,
		NetCapitalGain:     decimal.Zero,
		TotalSalesProceeds: decimal.Zero,
		TotalCostBasis:     decimal.Zero,
	}
	var matches []domain.RealizedGainRecord

	for _, sale := range sales {
		remaining := sale.Quantity
		proceeds := sale.Quantity.Mul(sale.UnitPrice)
		costBasis := decimal.Zero

		for _, lot := range lotsByAsset[sale.AssetID] {
			if remaining.Sign() <= 0 {
				break
			}
			if lot.Remaining.Sign() <= 0 {
				continue
			}

			matched := decimal.Min(remaining, lot.Remaining)
			gain := matched.Mul(sale.UnitPrice.Sub(lot.UnitPrice))

			matches = append(matches, domain.RealizedGainRecord{
				TaxpayerID:      taxpayerID,
				SellID:          sale.ID,
				BuyID:           lot.BuyID,
				MatchedQuantity: matched,
				GainAmount:      gain,
			})

			lot.Remaining = lot.Remaining.Sub(matched)
			remaining = remaining.Sub(matched)
			costBasis = costBasis.Add(matched.Mul(lot.UnitPrice))
			summary.NetCapitalGain = summary.NetCapitalGain.Add(gain)
		}

		if remaining.Sign() > 0 {
			logger.Warn("Sale exceeds open lots; truncating match",
				slog.String("error", apperrors.ErrOversell.Error()),
				slog.String("taxpayer_id", taxpayerID),
				slog.Int64("sell_id", sale.ID),
				slog.String("asset_id", sale.AssetID),
				slog.String("unmatched_quantity", remaining.String()),
			)
			// Unmatched shares carry no cost basis. Proceeds still count in
			// the audit summary, matching the gain already accumulated.
			proceeds = sale.Quantity.Sub(remaining).Mul(sale.UnitPrice)
		}

		summary.TotalSalesProceeds = summary.TotalSalesProceeds.Add(proceeds)
		summary.TotalCostBasis = summary.TotalCostBasis.Add(costBasis)
	}

	return summary, matches
}
