package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BidStatus enumerates the bid approval/submission lifecycle.
type BidStatus string

const (
	BidDraft           BidStatus = "draft"
	BidPendingApproval BidStatus = "pending_approval"
	BidSubmitted       BidStatus = "submitted"
	BidWon             BidStatus = "won"
	BidLost            BidStatus = "lost"
	BidWithdrawn       BidStatus = "withdrawn"
)

// ApprovalMode controls how approver decisions are aggregated.
type ApprovalMode string

const (
	ApprovalSequential ApprovalMode = "sequential"
	ApprovalParallel   ApprovalMode = "parallel"
)

// ApproverDecision is one approver's recorded decision.
type ApproverDecision string

const (
	DecisionPending  ApproverDecision = "pending"
	DecisionApproved ApproverDecision = "approved"
	DecisionRejected ApproverDecision = "rejected"
)

// Bid is a producer's versioned offer against a quote request. A resubmission
// creates a new version; the prior version is flagged superseded and stays
// immutable.
type Bid struct {
	BidID               uuid.UUID         `gorm:"column:bid_id;type:uuid;primaryKey" json:"bid_id"`
	QuoteRequestID      uuid.UUID         `gorm:"column:quote_request_id;type:uuid;not null;index" json:"quote_request_id"`
	ProducerOrgID       uuid.UUID         `gorm:"column:producer_org_id;type:uuid;not null" json:"producer_org_id"`
	Version             int               `gorm:"column:version;not null;default:1" json:"version"`
	Superseded          bool              `gorm:"column:superseded;not null;default:false" json:"superseded"`
	Allocations         []PlantAllocation `gorm:"foreignKey:BidID;references:BidID" json:"allocations"`
	BlendedGHGReduction decimal.Decimal   `gorm:"column:blended_ghg_reduction;type:decimal(5,2)" json:"blended_ghg_reduction"`
	OfferUnitPrice      decimal.Decimal   `gorm:"column:offer_unit_price;type:decimal(18,4);not null" json:"offer_unit_price"`
	Currency            string            `gorm:"column:currency;not null" json:"currency"`
	PricingType         string            `gorm:"column:pricing_type;not null" json:"pricing_type"`
	ApprovalMode        ApprovalMode      `gorm:"column:approval_mode;type:varchar(12)" json:"approval_mode"`
	Approvers           []Approver        `gorm:"foreignKey:BidID;references:BidID" json:"approvers"`
	Status              BidStatus         `gorm:"column:status;type:varchar(20);default:'draft'" json:"status"`
	CreatedAt           time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Bid) TableName() string {
	return "bids"
}

// BeforeCreate sets bid_id if not already set.
func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.BidID == uuid.Nil {
		b.BidID = uuid.New()
	}
	return nil
}

// TotalVolume sums the bid's planned allocation volumes.
func (b *Bid) TotalVolume() decimal.Decimal {
	total := decimal.Zero
	for _, a := range b.Allocations {
		total = total.Add(a.Volume)
	}
	return total
}

// PlantAllocation is a planned (not yet consumed) slice of a plant's yearly
// capacity inside a bid. The volume ledger is only consulted once the bid is
// won and deliveries are logged.
type PlantAllocation struct {
	AllocationID uuid.UUID       `gorm:"column:allocation_id;type:uuid;primaryKey" json:"allocation_id"`
	BidID        uuid.UUID       `gorm:"column:bid_id;type:uuid;not null;index" json:"bid_id"`
	PlantID      uuid.UUID       `gorm:"column:plant_id;type:uuid;not null" json:"plant_id"`
	Year         int             `gorm:"column:year;not null" json:"year"`
	Volume       decimal.Decimal `gorm:"column:volume;type:decimal(18,3);not null" json:"volume"`
	GHGReduction decimal.Decimal `gorm:"column:ghg_reduction;type:decimal(5,2)" json:"ghg_reduction"`
}

func (PlantAllocation) TableName() string {
	return "plant_allocations"
}

func (p *PlantAllocation) BeforeCreate(tx *gorm.DB) error {
	if p.AllocationID == uuid.Nil {
		p.AllocationID = uuid.New()
	}
	return nil
}

// Approver is one entry in a bid's approver set. Position orders the chain in
// sequential mode and is ignored in parallel mode.
type Approver struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BidID      uuid.UUID        `gorm:"column:bid_id;type:uuid;not null;index" json:"bid_id"`
	ApproverID uuid.UUID        `gorm:"column:approver_id;type:uuid;not null" json:"approver_id"`
	Role       string           `gorm:"column:role;not null" json:"role"`
	Position   int              `gorm:"column:position;not null" json:"position"`
	Decision   ApproverDecision `gorm:"column:decision;type:varchar(10);default:'pending'" json:"decision"`
	Reason     *string          `gorm:"column:reason" json:"reason"`
	DecidedAt  *time.Time       `gorm:"column:decided_at" json:"decided_at"`
}

func (Approver) TableName() string {
	return "bid_approvers"
}

func (a *Approver) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// OrgApprover is an organization's standing approver roster, consulted when a
// bid crosses an approval threshold.
type OrgApprover struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrgID    uuid.UUID `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	UserID   uuid.UUID `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Role     string    `gorm:"column:role;not null" json:"role"`
	Position int       `gorm:"column:position;not null" json:"position"`
}

func (OrgApprover) TableName() string {
	return "org_approvers"
}

func (o *OrgApprover) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
