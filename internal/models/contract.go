package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContractStatus enumerates the contract lifecycle.
type ContractStatus string

const (
	ContractDraft     ContractStatus = "draft"
	ContractScheduled ContractStatus = "scheduled"
	ContractActive    ContractStatus = "active"
	ContractCompleted ContractStatus = "completed"
	ContractCancelled ContractStatus = "cancelled"
)

// DeliveryStatus enumerates per-delivery states. "late" is a derived overlay
// on a scheduled delivery whose date has passed, not a terminal state.
type DeliveryStatus string

const (
	DeliveryScheduled DeliveryStatus = "scheduled"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryInvoiced  DeliveryStatus = "invoiced"
	DeliveryPaid      DeliveryStatus = "paid"
	DeliveryLate      DeliveryStatus = "late"
)

// Contract is the materialization of a won bid. DeliveredVolume, OnTrack and
// OutstandingInvoices are caches recomputed from the delivery list on every
// mutation, never independently settable.
type Contract struct {
	ContractID          uuid.UUID       `gorm:"column:contract_id;type:uuid;primaryKey" json:"contract_id"`
	BidID               uuid.UUID       `gorm:"column:bid_id;type:uuid;not null;index" json:"bid_id"`
	QuoteRequestID      uuid.UUID       `gorm:"column:quote_request_id;type:uuid;not null;index" json:"quote_request_id"`
	BuyerOrgID          uuid.UUID       `gorm:"column:buyer_org_id;type:uuid;not null" json:"buyer_org_id"`
	ProducerOrgID       uuid.UUID       `gorm:"column:producer_org_id;type:uuid;not null" json:"producer_org_id"`
	TotalVolume         decimal.Decimal `gorm:"column:total_volume;type:decimal(18,3);not null" json:"total_volume"`
	VolumeUnit          string          `gorm:"column:volume_unit;not null" json:"volume_unit"`
	Currency            string          `gorm:"column:currency;not null" json:"currency"`
	PricingType         string          `gorm:"column:pricing_type;not null" json:"pricing_type"`
	UnitPrice           decimal.Decimal `gorm:"column:unit_price;type:decimal(18,4);not null" json:"unit_price"`
	TolerancePct        decimal.Decimal `gorm:"column:tolerance_pct;type:decimal(5,2);not null" json:"tolerance_pct"`
	Deliveries          []Delivery      `gorm:"foreignKey:ContractID;references:ContractID" json:"deliveries"`
	DeliveredVolume     decimal.Decimal `gorm:"column:delivered_volume;type:decimal(18,3)" json:"delivered_volume"`
	OnTrack             bool            `gorm:"column:on_track;not null;default:true" json:"on_track"`
	OutstandingInvoices decimal.Decimal `gorm:"column:outstanding_invoices;type:decimal(18,4)" json:"outstanding_invoices"`
	Status              ContractStatus  `gorm:"column:status;type:varchar(20);default:'draft'" json:"status"`
	CreatedAt           time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Contract) TableName() string {
	return "contracts"
}

// BeforeCreate sets contract_id if not already set.
func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.ContractID == uuid.Nil {
		c.ContractID = uuid.New()
	}
	return nil
}

// Delivery is one scheduled shipment inside a contract. The contract
// exclusively owns its delivery list. BatchRefs records the production
// batches whose capacity was consumed to fulfill it, as a JSON array of
// {batch_id, volume}.
type Delivery struct {
	DeliveryID      uuid.UUID        `gorm:"column:delivery_id;type:uuid;primaryKey" json:"delivery_id"`
	ContractID      uuid.UUID        `gorm:"column:contract_id;type:uuid;not null;index" json:"contract_id"`
	PlantID         uuid.UUID        `gorm:"column:plant_id;type:uuid" json:"plant_id"`
	Year            int              `gorm:"column:year;not null" json:"year"`
	ScheduledDate   time.Time        `gorm:"column:scheduled_date;not null" json:"scheduled_date"`
	ScheduledVolume decimal.Decimal  `gorm:"column:scheduled_volume;type:decimal(18,3);not null" json:"scheduled_volume"`
	ActualDate      *time.Time       `gorm:"column:actual_date" json:"actual_date"`
	ActualVolume    *decimal.Decimal `gorm:"column:actual_volume;type:decimal(18,3)" json:"actual_volume"`
	BatchRefs       datatypes.JSON   `gorm:"column:batch_refs;type:json" json:"batch_refs"`
	Status          DeliveryStatus   `gorm:"column:status;type:varchar(12);default:'scheduled'" json:"status"`
	CreatedAt       time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (Delivery) TableName() string {
	return "deliveries"
}

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.DeliveryID == uuid.Nil {
		d.DeliveryID = uuid.New()
	}
	return nil
}
