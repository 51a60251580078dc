package ledger

import (
	"context"
	"testing"
	"time"

	"skyfuel-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedgerTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ProductionBatch{}, &models.BatchAllocation{},
		&models.Contract{}, &models.AuditEvent{},
	))
	return &Service{DB: db}, db
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func seedBatch(t *testing.T, svc *Service, volume string) *models.ProductionBatch {
	batch, err := svc.LogBatch(context.Background(), LogBatchInput{
		PlantID:      uuid.New(),
		BatchNumber:  "B-001",
		Volume:       d(volume),
		VolumeUnit:   "t",
		GHGReduction: d("72"),
		ComplianceFlags: map[string]bool{
			"iscc_eu": true,
			"corsia":  true,
		},
		ProducedAt: time.Now(),
	})
	require.NoError(t, err)
	return batch
}

func seedContract(t *testing.T, db *gorm.DB) uuid.UUID {
	contract := &models.Contract{
		BidID:          uuid.New(),
		QuoteRequestID: uuid.New(),
		BuyerOrgID:     uuid.New(),
		ProducerOrgID:  uuid.New(),
		TotalVolume:    d("100000"),
		VolumeUnit:     "t",
		Currency:       "USD",
		PricingType:    "fixed",
		UnitPrice:      d("1800"),
		TolerancePct:   d("10"),
		Status:         models.ContractActive,
	}
	require.NoError(t, db.Create(contract).Error)
	return contract.ContractID
}

func TestAllocate_PartialThenFullThenOver(t *testing.T) {
	svc, db := setupLedgerTest(t)
	batch := seedBatch(t, svc, "5000")
	contractA := seedContract(t, db)
	contractB := seedContract(t, db)
	ctx := context.Background()

	got, err := svc.Allocate(ctx, batch.BatchID, contractA, d("3000"))
	require.NoError(t, err)
	assert.True(t, got.AvailableVolume.Equal(d("2000")), "available = %s", got.AvailableVolume)
	assert.Equal(t, models.BatchPartiallyAllocated, got.Status)

	got, err = svc.Allocate(ctx, batch.BatchID, contractB, d("2000"))
	require.NoError(t, err)
	assert.True(t, got.AvailableVolume.IsZero())
	assert.Equal(t, models.BatchFullyAllocated, got.Status)

	_, err = svc.Allocate(ctx, batch.BatchID, contractA, d("1"))
	require.Error(t, err)
	assert.Equal(t, ErrInsufficientCapacity, err)

	// Failed allocation leaves state unchanged.
	reloaded, err := svc.GetBatch(ctx, batch.BatchID)
	require.NoError(t, err)
	assert.True(t, reloaded.AvailableVolume.IsZero())
	assert.Equal(t, models.BatchFullyAllocated, reloaded.Status)
	assert.Len(t, reloaded.Allocations, 2)
}

func TestAllocate_ConservationHolds(t *testing.T) {
	svc, db := setupLedgerTest(t)
	batch := seedBatch(t, svc, "10000")
	contract := seedContract(t, db)
	ctx := context.Background()

	volumes := []string{"1200.5", "300", "4000.25", "999.125"}
	for _, v := range volumes {
		got, err := svc.Allocate(ctx, batch.BatchID, contract, d(v))
		require.NoError(t, err)
		assert.True(t, got.AllocatedVolume.Add(got.AvailableVolume).Equal(batch.Volume),
			"allocated %s + available %s != volume %s", got.AllocatedVolume, got.AvailableVolume, batch.Volume)
	}

	got, err := svc.Deallocate(ctx, batch.BatchID, contract, d("300"))
	require.NoError(t, err)
	assert.True(t, got.AllocatedVolume.Add(got.AvailableVolume).Equal(batch.Volume))
}

func TestAllocate_RecomputeMatchesIncremental(t *testing.T) {
	svc, db := setupLedgerTest(t)
	batch := seedBatch(t, svc, "8000")
	contract := seedContract(t, db)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, batch.BatchID, contract, d("2500"))
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, batch.BatchID, contract, d("1500"))
	require.NoError(t, err)

	stored, err := svc.GetBatch(ctx, batch.BatchID)
	require.NoError(t, err)

	// Rederive from the allocation list alone and compare with the stored
	// aggregates.
	fresh := models.ProductionBatch{Volume: stored.Volume, Status: models.BatchAvailable}
	Recompute(&fresh, stored.Allocations)
	assert.True(t, fresh.AllocatedVolume.Equal(stored.AllocatedVolume))
	assert.True(t, fresh.AvailableVolume.Equal(stored.AvailableVolume))
	assert.Equal(t, fresh.Status, stored.Status)
	_ = db
}

func TestDeallocate(t *testing.T) {
	svc, db := setupLedgerTest(t)
	batch := seedBatch(t, svc, "5000")
	contractA := seedContract(t, db)
	contractB := seedContract(t, db)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, batch.BatchID, contractA, d("3000"))
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, batch.BatchID, contractB, d("1000"))
	require.NoError(t, err)

	// Unknown contract.
	_, err = svc.Deallocate(ctx, batch.BatchID, uuid.New(), d("100"))
	assert.Equal(t, ErrAllocationNotFound, err)

	// No single entry of sufficient size for contract B.
	_, err = svc.Deallocate(ctx, batch.BatchID, contractB, d("1500"))
	assert.Equal(t, ErrAllocationNotFound, err)

	// Partial release reduces the entry.
	got, err := svc.Deallocate(ctx, batch.BatchID, contractA, d("500"))
	require.NoError(t, err)
	assert.True(t, got.AllocatedVolume.Equal(d("3500")))
	assert.Equal(t, models.BatchPartiallyAllocated, got.Status)

	// Full release removes the entry.
	got, err = svc.Deallocate(ctx, batch.BatchID, contractB, d("1000"))
	require.NoError(t, err)
	assert.Len(t, got.Allocations, 1)

	// Releasing everything returns the batch to available.
	got, err = svc.Deallocate(ctx, batch.BatchID, contractA, d("2500"))
	require.NoError(t, err)
	assert.Equal(t, models.BatchAvailable, got.Status)
	assert.True(t, got.AvailableVolume.Equal(d("5000")))
}

func TestAllocate_Validation(t *testing.T) {
	svc, db := setupLedgerTest(t)
	batch := seedBatch(t, svc, "5000")
	contract := seedContract(t, db)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, uuid.New(), contract, d("10"))
	assert.Equal(t, ErrBatchNotFound, err)

	_, err = svc.Allocate(ctx, batch.BatchID, uuid.New(), d("10"))
	assert.Equal(t, ErrContractNotFound, err)

	_, err = svc.Allocate(ctx, batch.BatchID, contract, d("0"))
	assert.Equal(t, ErrNonPositiveVolume, err)

	_, err = svc.Allocate(ctx, batch.BatchID, contract, d("-5"))
	assert.Equal(t, ErrNonPositiveVolume, err)
}

func TestMarkDelivered(t *testing.T) {
	svc, db := setupLedgerTest(t)
	batch := seedBatch(t, svc, "1000")
	contract := seedContract(t, db)
	ctx := context.Background()

	// Not fully allocated yet.
	_, err := svc.MarkDelivered(ctx, batch.BatchID)
	assert.Equal(t, ErrBatchNotFullyAllocated, err)

	_, err = svc.Allocate(ctx, batch.BatchID, contract, d("1000"))
	require.NoError(t, err)
	got, err := svc.MarkDelivered(ctx, batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchDelivered, got.Status)

	// Delivered batches are frozen.
	_, err = svc.Allocate(ctx, batch.BatchID, contract, d("1"))
	assert.Equal(t, ErrBatchDelivered, err)
	_, err = svc.Deallocate(ctx, batch.BatchID, contract, d("1000"))
	assert.Equal(t, ErrBatchDelivered, err)
}

func TestAllocate_WritesAuditTrail(t *testing.T) {
	svc, db := setupLedgerTest(t)
	batch := seedBatch(t, svc, "5000")
	contract := seedContract(t, db)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, batch.BatchID, contract, d("2000"))
	require.NoError(t, err)
	_, err = svc.Deallocate(ctx, batch.BatchID, contract, d("500"))
	require.NoError(t, err)

	var events []models.AuditEvent
	require.NoError(t, db.Where("entity_id = ?", batch.BatchID).Order("created_at").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, "ALLOCATED", events[0].EventType)
	assert.Equal(t, "DEALLOCATED", events[1].EventType)
}

func TestSaveBatchAggregates_ConcurrentUpdateDetected(t *testing.T) {
	svc, db := setupLedgerTest(t)
	batch := seedBatch(t, svc, "5000")
	contract := seedContract(t, db)
	ctx := context.Background()

	got, err := svc.Allocate(ctx, batch.BatchID, contract, d("100"))
	require.NoError(t, err)

	// A writer holding a stale lock_version must not win.
	stale := *got
	stale.LockVersion = got.LockVersion - 1
	err = svc.saveBatchAggregates(db, &stale)
	assert.Equal(t, ErrConcurrentUpdate, err)
}
