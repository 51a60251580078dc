package ledger

import (
	"skyfuel-backend/internal/models"

	"github.com/shopspring/decimal"
)

// AllocatedTotal sums the allocation list. The stored aggregate on the batch
// is only a cache of this value.
func AllocatedTotal(allocs []models.BatchAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.Volume)
	}
	return total
}

// DeriveStatus is the pure status rule over the recomputed aggregates.
// delivered is terminal and survives recomputation.
func DeriveStatus(allocated, available decimal.Decimal, current models.BatchStatus) models.BatchStatus {
	if current == models.BatchDelivered {
		return models.BatchDelivered
	}
	switch {
	case allocated.IsZero():
		return models.BatchAvailable
	case available.Sign() <= 0:
		return models.BatchFullyAllocated
	default:
		return models.BatchPartiallyAllocated
	}
}

// Recompute rederives AllocatedVolume, AvailableVolume and Status from the
// allocation list. Always called from scratch; incremental state is never
// trusted.
func Recompute(batch *models.ProductionBatch, allocs []models.BatchAllocation) {
	batch.AllocatedVolume = AllocatedTotal(allocs)
	batch.AvailableVolume = batch.Volume.Sub(batch.AllocatedVolume)
	batch.Status = DeriveStatus(batch.AllocatedVolume, batch.AvailableVolume, batch.Status)
}
