package ledger

import (
	"context"
	"encoding/json"
	"time"

	"skyfuel-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxRetries bounds the optimistic-lock retry loop on a contended batch.
const maxRetries = 3

type Service struct {
	DB *gorm.DB
}

type LogBatchInput struct {
	PlantID         uuid.UUID
	BatchNumber     string
	Volume          decimal.Decimal
	VolumeUnit      string
	GHGReduction    decimal.Decimal
	ComplianceFlags map[string]bool
	ProducedAt      time.Time
}

// LogBatch records a production batch as fully available.
func (s *Service) LogBatch(ctx context.Context, in LogBatchInput) (*models.ProductionBatch, error) {
	if in.Volume.Sign() <= 0 {
		return nil, ErrNonPositiveVolume
	}
	flags, err := json.Marshal(in.ComplianceFlags)
	if err != nil {
		return nil, err
	}
	batch := &models.ProductionBatch{
		PlantID:         in.PlantID,
		BatchNumber:     in.BatchNumber,
		Volume:          in.Volume,
		VolumeUnit:      in.VolumeUnit,
		GHGReduction:    in.GHGReduction,
		ComplianceFlags: datatypes.JSON(flags),
		AllocatedVolume: decimal.Zero,
		AvailableVolume: in.Volume,
		Status:          models.BatchAvailable,
		ProducedAt:      in.ProducedAt,
	}
	if err := s.DB.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

// GetBatch loads a batch with its allocation list.
func (s *Service) GetBatch(ctx context.Context, batchID uuid.UUID) (*models.ProductionBatch, error) {
	var batch models.ProductionBatch
	if err := s.DB.WithContext(ctx).Preload("Allocations").Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// Allocate consumes batch capacity for a contract. Retries on a lost
// conditional update so two concurrent writers cannot both spend the same
// availability.
func (s *Service) Allocate(ctx context.Context, batchID, contractID uuid.UUID, volume decimal.Decimal) (*models.ProductionBatch, error) {
	var batch *models.ProductionBatch
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			b, txErr := s.AllocateTx(tx, batchID, contractID, volume)
			if txErr != nil {
				return txErr
			}
			batch = b
			return nil
		})
		if err != ErrConcurrentUpdate {
			break
		}
		log.Debug().Str("batch_id", batchID.String()).Int("attempt", attempt+1).Msg("allocation retry after concurrent update")
	}
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// AllocateTx performs one allocation inside the caller's transaction. Used by
// the delivery tracker so multi-batch allocations commit or roll back as one.
// A lost conditional update surfaces as ErrConcurrentUpdate; the caller owns
// the retry.
func (s *Service) AllocateTx(tx *gorm.DB, batchID, contractID uuid.UUID, volume decimal.Decimal) (*models.ProductionBatch, error) {
	if volume.Sign() <= 0 {
		return nil, ErrNonPositiveVolume
	}

	var batch models.ProductionBatch
	if err := tx.Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	if batch.Status == models.BatchDelivered {
		return nil, ErrBatchDelivered
	}

	var contractCount int64
	if err := tx.Model(&models.Contract{}).Where("contract_id = ?", contractID).Count(&contractCount).Error; err != nil {
		return nil, err
	}
	if contractCount == 0 {
		return nil, ErrContractNotFound
	}

	var allocs []models.BatchAllocation
	if err := tx.Where("batch_id = ?", batchID).Find(&allocs).Error; err != nil {
		return nil, err
	}
	available := batch.Volume.Sub(AllocatedTotal(allocs))
	if volume.GreaterThan(available) {
		return nil, ErrInsufficientCapacity
	}

	alloc := models.BatchAllocation{
		BatchID:    batchID,
		ContractID: contractID,
		Volume:     volume,
	}
	if err := tx.Create(&alloc).Error; err != nil {
		return nil, err
	}
	allocs = append(allocs, alloc)
	Recompute(&batch, allocs)

	if err := s.saveBatchAggregates(tx, &batch); err != nil {
		return nil, err
	}
	if err := writeAudit(tx, batch.BatchID, "ALLOCATED", map[string]interface{}{
		"contract_id":      contractID,
		"volume":           volume,
		"available_volume": batch.AvailableVolume,
	}); err != nil {
		return nil, err
	}
	batch.Allocations = allocs
	return &batch, nil
}

// Deallocate releases capacity previously allocated to a contract. The
// smallest allocation entry that covers the requested volume is reduced or
// removed.
func (s *Service) Deallocate(ctx context.Context, batchID, contractID uuid.UUID, volume decimal.Decimal) (*models.ProductionBatch, error) {
	var batch *models.ProductionBatch
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			b, txErr := s.deallocateTx(tx, batchID, contractID, volume)
			if txErr != nil {
				return txErr
			}
			batch = b
			return nil
		})
		if err != ErrConcurrentUpdate {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *Service) deallocateTx(tx *gorm.DB, batchID, contractID uuid.UUID, volume decimal.Decimal) (*models.ProductionBatch, error) {
	if volume.Sign() <= 0 {
		return nil, ErrNonPositiveVolume
	}

	var batch models.ProductionBatch
	if err := tx.Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	if batch.Status == models.BatchDelivered {
		return nil, ErrBatchDelivered
	}

	var allocs []models.BatchAllocation
	if err := tx.Where("batch_id = ?", batchID).Find(&allocs).Error; err != nil {
		return nil, err
	}

	// Smallest covering entry keeps large allocations intact.
	targetIdx := -1
	for i, a := range allocs {
		if a.ContractID != contractID || a.Volume.LessThan(volume) {
			continue
		}
		if targetIdx == -1 || a.Volume.LessThan(allocs[targetIdx].Volume) {
			targetIdx = i
		}
	}
	if targetIdx == -1 {
		return nil, ErrAllocationNotFound
	}

	target := &allocs[targetIdx]
	target.Volume = target.Volume.Sub(volume)
	if target.Volume.IsZero() {
		if err := tx.Delete(&models.BatchAllocation{}, "id = ?", target.ID).Error; err != nil {
			return nil, err
		}
		allocs = append(allocs[:targetIdx], allocs[targetIdx+1:]...)
	} else {
		if err := tx.Model(&models.BatchAllocation{}).Where("id = ?", target.ID).Update("volume", target.Volume).Error; err != nil {
			return nil, err
		}
	}

	Recompute(&batch, allocs)
	if err := s.saveBatchAggregates(tx, &batch); err != nil {
		return nil, err
	}
	if err := writeAudit(tx, batch.BatchID, "DEALLOCATED", map[string]interface{}{
		"contract_id":      contractID,
		"volume":           volume,
		"available_volume": batch.AvailableVolume,
	}); err != nil {
		return nil, err
	}
	batch.Allocations = allocs
	return &batch, nil
}

// MarkDelivered freezes a fully allocated batch once its physical volume has
// shipped.
func (s *Service) MarkDelivered(ctx context.Context, batchID uuid.UUID) (*models.ProductionBatch, error) {
	var batch models.ProductionBatch
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrBatchNotFound
			}
			return err
		}
		if batch.Status == models.BatchDelivered {
			return nil
		}
		if batch.Status != models.BatchFullyAllocated {
			return ErrBatchNotFullyAllocated
		}
		batch.Status = models.BatchDelivered
		if err := s.saveBatchAggregates(tx, &batch); err != nil {
			return err
		}
		return writeAudit(tx, batch.BatchID, "DELIVERED", nil)
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// saveBatchAggregates writes the recomputed cache fields with a conditional
// update on lock_version. Zero rows affected means another writer got there
// first.
func (s *Service) saveBatchAggregates(tx *gorm.DB, batch *models.ProductionBatch) error {
	res := tx.Model(&models.ProductionBatch{}).
		Where("batch_id = ? AND lock_version = ?", batch.BatchID, batch.LockVersion).
		Updates(map[string]interface{}{
			"allocated_volume": batch.AllocatedVolume,
			"available_volume": batch.AvailableVolume,
			"status":           batch.Status,
			"lock_version":     batch.LockVersion + 1,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	batch.LockVersion++
	return nil
}

func writeAudit(tx *gorm.DB, batchID uuid.UUID, eventType string, payload map[string]interface{}) error {
	data, _ := json.Marshal(payload)
	return tx.Create(&models.AuditEvent{
		EntityType: "production_batch",
		EntityID:   batchID,
		EventType:  eventType,
		EventData:  datatypes.JSON(data),
	}).Error
}
