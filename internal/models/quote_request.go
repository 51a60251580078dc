package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuoteRequestStatus enumerates the RFQ lifecycle.
type QuoteRequestStatus string

const (
	QuoteRequestOpen     QuoteRequestStatus = "open"
	QuoteRequestWatching QuoteRequestStatus = "watching"
	QuoteRequestClosed   QuoteRequestStatus = "closed"
	QuoteRequestAwarded  QuoteRequestStatus = "awarded"
)

// VolumeBreakdownEntry is one row of an RFQ's year/location volume split,
// stored as a JSON array on the quote request.
type VolumeBreakdownEntry struct {
	Year     int             `json:"year"`
	Location string          `json:"location"`
	Volume   decimal.Decimal `json:"volume"`
}

// QuoteRequest is a buyer-posted request for quote (RFQ).
type QuoteRequest struct {
	QuoteRequestID   uuid.UUID          `gorm:"column:quote_request_id;type:uuid;primaryKey" json:"quote_request_id"`
	BuyerOrgID       uuid.UUID          `gorm:"column:buyer_org_id;type:uuid;not null" json:"buyer_org_id"`
	Title            string             `gorm:"column:title;not null" json:"title"`
	TotalVolume      decimal.Decimal    `gorm:"column:total_volume;type:decimal(18,3);not null" json:"total_volume"`
	VolumeUnit       string             `gorm:"column:volume_unit;not null" json:"volume_unit"`
	VolumeBreakdown  datatypes.JSON     `gorm:"column:volume_breakdown;type:json" json:"volume_breakdown"`
	FuelType         string             `gorm:"column:fuel_type;not null" json:"fuel_type"`
	Feedstock        string             `gorm:"column:feedstock" json:"feedstock"`
	MinGHGReduction  decimal.Decimal    `gorm:"column:min_ghg_reduction;type:decimal(5,2)" json:"min_ghg_reduction"`
	PricingType      string             `gorm:"column:pricing_type;not null" json:"pricing_type"`
	Currency         string             `gorm:"column:currency;not null" json:"currency"`
	Incoterms        string             `gorm:"column:incoterms" json:"incoterms"`
	ResponseDeadline time.Time          `gorm:"column:response_deadline;not null" json:"response_deadline"`
	Status           QuoteRequestStatus `gorm:"column:status;type:varchar(20);default:'open'" json:"status"`
	CreatedAt        time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

func (QuoteRequest) TableName() string {
	return "quote_requests"
}

// BeforeCreate sets quote_request_id if not already set (DBs without default uuid).
func (q *QuoteRequest) BeforeCreate(tx *gorm.DB) error {
	if q.QuoteRequestID == uuid.Nil {
		q.QuoteRequestID = uuid.New()
	}
	return nil
}
