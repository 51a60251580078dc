package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CertificateStatus is derived from the expiry date, never set by a caller.
type CertificateStatus string

const (
	CertificateValid    CertificateStatus = "valid"
	CertificateExpiring CertificateStatus = "expiring"
	CertificateExpired  CertificateStatus = "expired"
)

// Certificate is a regulatory certificate (e.g. ISCC, RSB) covering one plant
// or the entire organization. Scope lists covered products as a JSON array.
type Certificate struct {
	CertificateID     uuid.UUID         `gorm:"column:certificate_id;type:uuid;primaryKey" json:"certificate_id"`
	OrgID             uuid.UUID         `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	PlantID           *uuid.UUID        `gorm:"column:plant_id;type:uuid;index" json:"plant_id"`
	OrgWide           bool              `gorm:"column:org_wide;not null;default:false" json:"org_wide"`
	IssuingBody       string            `gorm:"column:issuing_body;not null" json:"issuing_body"`
	CertificateNumber string            `gorm:"column:certificate_number;not null" json:"certificate_number"`
	Scheme            string            `gorm:"column:scheme;not null" json:"scheme"`
	Scope             datatypes.JSON    `gorm:"column:scope;type:json" json:"scope"`
	IssueDate         time.Time         `gorm:"column:issue_date;not null" json:"issue_date"`
	ExpiryDate        time.Time         `gorm:"column:expiry_date;not null" json:"expiry_date"`
	Status            CertificateStatus `gorm:"column:status;type:varchar(10);default:'valid'" json:"status"`
	CreatedAt         time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// BeforeCreate sets certificate_id if not already set.
func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.CertificateID == uuid.Nil {
		c.CertificateID = uuid.New()
	}
	return nil
}
