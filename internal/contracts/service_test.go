package contracts

import (
	"context"
	"testing"
	"time"

	"skyfuel-backend/internal/ledger"
	"skyfuel-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupContractTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.QuoteRequest{}, &models.Bid{}, &models.PlantAllocation{},
		&models.Contract{}, &models.Delivery{},
		&models.ProductionBatch{}, &models.BatchAllocation{},
		&models.AuditEvent{},
	))
	svc := &Service{
		DB:                  db,
		Ledger:              &ledger.Service{DB: db},
		DefaultTolerancePct: d("10"),
	}
	return svc, db
}

func seedWonBid(t *testing.T, db *gorm.DB, volumes ...string) *models.Bid {
	rfq := &models.QuoteRequest{
		BuyerOrgID:       uuid.New(),
		Title:            "SAF offtake",
		TotalVolume:      d("100000"),
		VolumeUnit:       "t",
		FuelType:         "HEFA-SPK",
		PricingType:      "fixed",
		Currency:         "USD",
		ResponseDeadline: time.Now().Add(24 * time.Hour),
		Status:           models.QuoteRequestAwarded,
	}
	require.NoError(t, db.Create(rfq).Error)

	allocs := make([]models.PlantAllocation, 0, len(volumes))
	for i, v := range volumes {
		allocs = append(allocs, models.PlantAllocation{
			PlantID:      uuid.New(),
			Year:         2027 + i,
			Volume:       d(v),
			GHGReduction: d("70"),
		})
	}
	bid := &models.Bid{
		QuoteRequestID: rfq.QuoteRequestID,
		ProducerOrgID:  uuid.New(),
		Version:        1,
		Allocations:    allocs,
		OfferUnitPrice: d("1800"),
		Currency:       "USD",
		PricingType:    "fixed",
		Status:         models.BidWon,
	}
	require.NoError(t, db.Create(bid).Error)
	return bid
}

func seedBatch(t *testing.T, svc *Service, volume string) *models.ProductionBatch {
	batch, err := svc.Ledger.LogBatch(context.Background(), ledger.LogBatchInput{
		PlantID:      uuid.New(),
		BatchNumber:  "B-100",
		Volume:       d(volume),
		VolumeUnit:   "t",
		GHGReduction: d("70"),
		ProducedAt:   time.Now(),
	})
	require.NoError(t, err)
	return batch
}

func TestMaterialize(t *testing.T) {
	svc, db := setupContractTest(t)
	ctx := context.Background()
	bid := seedWonBid(t, db, "1000", "2000")

	contract, err := svc.Materialize(ctx, bid.BidID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractScheduled, contract.Status)
	assert.True(t, contract.TotalVolume.Equal(d("3000")), "total = %s", contract.TotalVolume)
	assert.True(t, contract.UnitPrice.Equal(d("1800")))
	assert.True(t, contract.TolerancePct.Equal(d("10")))
	require.Len(t, contract.Deliveries, 2)
	for i, delivery := range contract.Deliveries {
		assert.Equal(t, models.DeliveryScheduled, delivery.Status)
		assert.Equal(t, 2027+i, delivery.Year)
	}

	_, err = svc.Materialize(ctx, bid.BidID)
	assert.ErrorIs(t, err, ErrContractExists)
}

func TestMaterialize_Guards(t *testing.T) {
	svc, db := setupContractTest(t)
	ctx := context.Background()

	_, err := svc.Materialize(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrBidNotFound)

	bid := seedWonBid(t, db, "1000")
	require.NoError(t, db.Model(&models.Bid{}).Where("bid_id = ?", bid.BidID).Update("status", models.BidDraft).Error)
	_, err = svc.Materialize(ctx, bid.BidID)
	assert.ErrorIs(t, err, ErrBidNotWon)
}

func TestLogDelivery_ToleranceBoundary(t *testing.T) {
	ctx := context.Background()

	logWith := func(t *testing.T, actual string) (*models.Contract, error) {
		svc, db := setupContractTest(t)
		bid := seedWonBid(t, db, "1000")
		contract, err := svc.Materialize(ctx, bid.BidID)
		require.NoError(t, err)
		batch := seedBatch(t, svc, "2000")
		return svc.LogDelivery(ctx, contract.ContractID, contract.Deliveries[0].DeliveryID,
			time.Now(), d(actual), []BatchRef{{BatchID: batch.BatchID, Volume: d(actual)}})
	}

	t.Run("at tolerance limit", func(t *testing.T) {
		contract, err := logWith(t, "1100")
		require.NoError(t, err)
		assert.True(t, contract.DeliveredVolume.Equal(d("1100")))
	})

	t.Run("one unit beyond", func(t *testing.T) {
		_, err := logWith(t, "1101")
		assert.ErrorIs(t, err, ErrVolumeOutOfTolerance)
	})
}

func TestLogDelivery_TwoDeliveriesOneBatch(t *testing.T) {
	svc, db := setupContractTest(t)
	ctx := context.Background()
	bid := seedWonBid(t, db, "1000", "2000")
	contract, err := svc.Materialize(ctx, bid.BidID)
	require.NoError(t, err)
	batch := seedBatch(t, svc, "3000")

	for i, volume := range []string{"1000", "2000"} {
		_, err := svc.LogDelivery(ctx, contract.ContractID, contract.Deliveries[i].DeliveryID,
			time.Now(), d(volume), []BatchRef{{BatchID: batch.BatchID, Volume: d(volume)}})
		require.NoError(t, err)
	}

	got, err := svc.Ledger.GetBatch(ctx, batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchFullyAllocated, got.Status)
	assert.True(t, got.AvailableVolume.IsZero())

	final, err := svc.GetContract(ctx, contract.ContractID)
	require.NoError(t, err)
	assert.True(t, final.DeliveredVolume.Equal(d("3000")))
	assert.Equal(t, models.ContractActive, final.Status)
}

func TestLogDelivery_MultiBatchRollback(t *testing.T) {
	svc, db := setupContractTest(t)
	ctx := context.Background()
	bid := seedWonBid(t, db, "1000")
	contract, err := svc.Materialize(ctx, bid.BidID)
	require.NoError(t, err)

	batchA := seedBatch(t, svc, "600")
	batchB := seedBatch(t, svc, "300")

	// Second ref exceeds batch B; the allocation into batch A must unwind too.
	_, err = svc.LogDelivery(ctx, contract.ContractID, contract.Deliveries[0].DeliveryID,
		time.Now(), d("1000"), []BatchRef{
			{BatchID: batchA.BatchID, Volume: d("600")},
			{BatchID: batchB.BatchID, Volume: d("400")},
		})
	assert.ErrorIs(t, err, ledger.ErrInsufficientCapacity)

	gotA, err := svc.Ledger.GetBatch(ctx, batchA.BatchID)
	require.NoError(t, err)
	assert.True(t, gotA.AvailableVolume.Equal(d("600")), "batch A available = %s", gotA.AvailableVolume)
	assert.Equal(t, models.BatchAvailable, gotA.Status)

	reloaded, err := svc.GetContract(ctx, contract.ContractID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryScheduled, reloaded.Deliveries[0].Status)
	assert.True(t, reloaded.DeliveredVolume.IsZero())
}

func TestDeliveryChain_ForwardOnly(t *testing.T) {
	svc, db := setupContractTest(t)
	ctx := context.Background()
	bid := seedWonBid(t, db, "1000")
	contract, err := svc.Materialize(ctx, bid.BidID)
	require.NoError(t, err)
	deliveryID := contract.Deliveries[0].DeliveryID
	batch := seedBatch(t, svc, "1000")

	// Paying or invoicing before delivery is illegal.
	_, err = svc.MarkPaid(ctx, contract.ContractID, deliveryID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = svc.MarkInvoiced(ctx, contract.ContractID, deliveryID)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = svc.LogDelivery(ctx, contract.ContractID, deliveryID, time.Now(), d("1000"),
		[]BatchRef{{BatchID: batch.BatchID, Volume: d("1000")}})
	require.NoError(t, err)

	// Logging the same delivery twice is illegal.
	_, err = svc.LogDelivery(ctx, contract.ContractID, deliveryID, time.Now(), d("1000"), nil)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	invoiced, err := svc.MarkInvoiced(ctx, contract.ContractID, deliveryID)
	require.NoError(t, err)
	assert.True(t, invoiced.OutstandingInvoices.Equal(d("1800000")), "outstanding = %s", invoiced.OutstandingInvoices)

	paid, err := svc.MarkPaid(ctx, contract.ContractID, deliveryID)
	require.NoError(t, err)
	assert.True(t, paid.OutstandingInvoices.IsZero())
	assert.Equal(t, models.ContractCompleted, paid.Status)

	_, err = svc.MarkPaid(ctx, contract.ContractID, deliveryID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestLogDelivery_NotFound(t *testing.T) {
	svc, db := setupContractTest(t)
	ctx := context.Background()

	_, err := svc.LogDelivery(ctx, uuid.New(), uuid.New(), time.Now(), d("1"), nil)
	assert.ErrorIs(t, err, ErrContractNotFound)

	bid := seedWonBid(t, db, "1000")
	contract, err := svc.Materialize(ctx, bid.BidID)
	require.NoError(t, err)
	_, err = svc.LogDelivery(ctx, contract.ContractID, uuid.New(), time.Now(), d("1"), nil)
	assert.ErrorIs(t, err, ErrDeliveryNotFound)
}

func TestLogDelivery_AuditTrail(t *testing.T) {
	svc, db := setupContractTest(t)
	ctx := context.Background()
	bid := seedWonBid(t, db, "1000")
	contract, err := svc.Materialize(ctx, bid.BidID)
	require.NoError(t, err)
	batch := seedBatch(t, svc, "1000")

	_, err = svc.LogDelivery(ctx, contract.ContractID, contract.Deliveries[0].DeliveryID,
		time.Now(), d("1000"), []BatchRef{{BatchID: batch.BatchID, Volume: d("1000")}})
	require.NoError(t, err)

	var events []models.AuditEvent
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", "contract", contract.ContractID).
		Order("created_at").Find(&events).Error)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, "MATERIALIZED")
	assert.Contains(t, types, "DELIVERY_LOGGED")
}
