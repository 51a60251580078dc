package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BatchStatus enumerates production-batch allocation states.
type BatchStatus string

const (
	BatchAvailable          BatchStatus = "available"
	BatchPartiallyAllocated BatchStatus = "partially_allocated"
	BatchFullyAllocated     BatchStatus = "fully_allocated"
	BatchDelivered          BatchStatus = "delivered"
)

// ProductionBatch is a logged lot of produced fuel. AllocatedVolume and
// AvailableVolume are caches over the allocation list; the ledger recomputes
// them from scratch on every mutation. LockVersion backs the conditional
// update that keeps concurrent allocations against the same batch from both
// observing stale availability.
type ProductionBatch struct {
	BatchID         uuid.UUID         `gorm:"column:batch_id;type:uuid;primaryKey" json:"batch_id"`
	PlantID         uuid.UUID         `gorm:"column:plant_id;type:uuid;not null;index" json:"plant_id"`
	BatchNumber     string            `gorm:"column:batch_number;not null" json:"batch_number"`
	Volume          decimal.Decimal   `gorm:"column:volume;type:decimal(18,3);not null" json:"volume"`
	VolumeUnit      string            `gorm:"column:volume_unit;not null" json:"volume_unit"`
	GHGReduction    decimal.Decimal   `gorm:"column:ghg_reduction;type:decimal(5,2)" json:"ghg_reduction"`
	ComplianceFlags datatypes.JSON    `gorm:"column:compliance_flags;type:json" json:"compliance_flags"`
	Allocations     []BatchAllocation `gorm:"foreignKey:BatchID;references:BatchID" json:"allocations"`
	AllocatedVolume decimal.Decimal   `gorm:"column:allocated_volume;type:decimal(18,3)" json:"allocated_volume"`
	AvailableVolume decimal.Decimal   `gorm:"column:available_volume;type:decimal(18,3)" json:"available_volume"`
	Status          BatchStatus       `gorm:"column:status;type:varchar(20);default:'available'" json:"status"`
	LockVersion     int64             `gorm:"column:lock_version;not null;default:0" json:"-"`
	ProducedAt      time.Time         `gorm:"column:produced_at;not null" json:"produced_at"`
	CreatedAt       time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (ProductionBatch) TableName() string {
	return "production_batches"
}

// BeforeCreate sets batch_id if not already set.
func (b *ProductionBatch) BeforeCreate(tx *gorm.DB) error {
	if b.BatchID == uuid.Nil {
		b.BatchID = uuid.New()
	}
	return nil
}

// BatchAllocation consumes a slice of batch capacity for a contract. The
// batch owns its allocation list; the contract is only referenced, its
// lifecycle is independent of the batch's.
type BatchAllocation struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BatchID    uuid.UUID       `gorm:"column:batch_id;type:uuid;not null;index" json:"batch_id"`
	ContractID uuid.UUID       `gorm:"column:contract_id;type:uuid;not null;index" json:"contract_id"`
	Volume     decimal.Decimal `gorm:"column:volume;type:decimal(18,3);not null" json:"volume"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (BatchAllocation) TableName() string {
	return "batch_allocations"
}

func (a *BatchAllocation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
