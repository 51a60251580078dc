package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlantCertification is the rollup of a plant's certificate statuses.
type PlantCertification string

const (
	PlantFullyCertified      PlantCertification = "fully_certified"
	PlantCertificateExpiring PlantCertification = "certificate_expiring"
	PlantPartiallyCertified  PlantCertification = "partially_certified"
	PlantNotCertified        PlantCertification = "not_certified"
)

// Plant is a production facility.
type Plant struct {
	PlantID             uuid.UUID          `gorm:"column:plant_id;type:uuid;primaryKey" json:"plant_id"`
	OrgID               uuid.UUID          `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	Name                string             `gorm:"column:name;not null" json:"name"`
	LocationCity        string             `gorm:"column:location_city" json:"location_city"`
	LocationCountry     string             `gorm:"column:location_country;not null" json:"location_country"`
	FuelType            string             `gorm:"column:fuel_type;not null" json:"fuel_type"`
	Feedstock           string             `gorm:"column:feedstock" json:"feedstock"`
	GHGReduction        decimal.Decimal    `gorm:"column:ghg_reduction;type:decimal(5,2)" json:"ghg_reduction"`
	CertificationStatus PlantCertification `gorm:"column:certification_status;type:varchar(24);default:'not_certified'" json:"certification_status"`
	CreatedAt           time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

func (Plant) TableName() string {
	return "plants"
}

// BeforeCreate sets plant_id if not already set.
func (p *Plant) BeforeCreate(tx *gorm.DB) error {
	if p.PlantID == uuid.Nil {
		p.PlantID = uuid.New()
	}
	return nil
}

// PlantCapacity is the declared available capacity of a plant for one year.
// Bid-edit validation checks planned allocations against it; the volume
// ledger is not involved until the bid is won.
type PlantCapacity struct {
	ID      uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PlantID uuid.UUID       `gorm:"column:plant_id;type:uuid;not null;index" json:"plant_id"`
	Year    int             `gorm:"column:year;not null" json:"year"`
	Volume  decimal.Decimal `gorm:"column:volume;type:decimal(18,3);not null" json:"volume"`
}

func (PlantCapacity) TableName() string {
	return "plant_capacities"
}

func (p *PlantCapacity) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProducerCapability is an organization's declared capability band used by
// the fit scorer. Advisory only; it never blocks bid creation.
type ProducerCapability struct {
	OrgID           uuid.UUID       `gorm:"column:org_id;type:uuid;primaryKey" json:"org_id"`
	MaxAnnualVolume decimal.Decimal `gorm:"column:max_annual_volume;type:decimal(18,3);not null" json:"max_annual_volume"`
	VolumeUnit      string          `gorm:"column:volume_unit;not null" json:"volume_unit"`
	MaxGHGReduction decimal.Decimal `gorm:"column:max_ghg_reduction;type:decimal(5,2);not null" json:"max_ghg_reduction"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (ProducerCapability) TableName() string {
	return "producer_capabilities"
}
