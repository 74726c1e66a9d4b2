package service

import (
	"context"

	"github.com/rl1809/asset-ledger/internal/core/domain"
)

// PortfolioValue aggregates the holder's positions across the supplied asset
// ids into a summary. The list is bounded by MaxPortfolioAssets and may
// contain duplicates or unregistered ids; duplicates count once per entry and
// unregistered ids contribute zero-value holdings. All arithmetic is integer
// floor division. The call reads the registry and ledger only.
func (l *Ledger) PortfolioValue(ctx context.Context, holder string, assetIDs []uint64) (*domain.PortfolioSummary, error) {
	if len(assetIDs) > MaxPortfolioAssets {
		return nil, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	summary := domain.PortfolioSummary{
		Holder:     holder,
		Holdings:   make([]domain.Holding, 0, len(assetIDs)),
		AssetCount: uint64(len(assetIDs)),
	}

	var positiveCount uint64
	var haveSmallest bool

	for _, assetID := range assetIDs {
		holding := domain.Holding{AssetID: assetID}

		asset, err := l.store.GetAsset(ctx, assetID)
		if err != nil {
			return nil, err
		}
		if asset != nil {
			balance, err := l.store.GetBalance(ctx, assetID, holder)
			if err != nil {
				return nil, err
			}
			holding.Balance = balance
			holding.OwnershipBps = balance * 10000 / asset.TotalSupply
			holding.EstimatedValue = balance * asset.Valuation / asset.TotalSupply
			holding.PropertyType = asset.PropertyType
			holding.Verified = asset.Verified
		}

		summary.Holdings = append(summary.Holdings, holding)
		summary.TotalValue += holding.EstimatedValue

		if holding.EstimatedValue > summary.LargestHolding {
			summary.LargestHolding = holding.EstimatedValue
		}
		if holding.EstimatedValue > 0 {
			positiveCount++
			// Smallest tracks positive values only: the smallest *active*
			// holding, not the usual zero.
			if !haveSmallest || holding.EstimatedValue < summary.SmallestHolding {
				summary.SmallestHolding = holding.EstimatedValue
				haveSmallest = true
			}
		}
	}

	if summary.AssetCount > 0 {
		summary.AverageValue = summary.TotalValue / summary.AssetCount
		summary.Diversity = positiveCount * 100 / summary.AssetCount
	}

	return &summary, nil
}
