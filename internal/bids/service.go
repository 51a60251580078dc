package bids

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

type Service struct {
	DB    *gorm.DB
	Rules Rules
}

type AllocationInput struct {
	PlantID      uuid.UUID
	Year         int
	Volume       decimal.Decimal
	GHGReduction decimal.Decimal
}

type CreateBidInput struct {
	QuoteRequestID uuid.UUID
	ProducerOrgID  uuid.UUID
	OfferUnitPrice decimal.Decimal
	Currency       string
	PricingType    string
	Allocations    []AllocationInput
}

// CreateBid creates a draft bid against an open quote request. Planned
// allocations are validated against declared plant capacity; the volume
// ledger is untouched until the bid is won.
func (s *Service) CreateBid(ctx context.Context, in CreateBidInput) (*models.Bid, error) {
	var bid *models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rfq models.QuoteRequest
		if err := tx.Where("quote_request_id = ?", in.QuoteRequestID).First(&rfq).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrQuoteRequestNotFound
			}
			return err
		}
		if rfq.Status != models.QuoteRequestOpen && rfq.Status != models.QuoteRequestWatching {
			return ErrQuoteRequestClosed
		}
		if err := validatePlannedCapacity(tx, in.Allocations); err != nil {
			return err
		}

		allocs := make([]models.PlantAllocation, 0, len(in.Allocations))
		for _, a := range in.Allocations {
			allocs = append(allocs, models.PlantAllocation{
				PlantID:      a.PlantID,
				Year:         a.Year,
				Volume:       a.Volume,
				GHGReduction: a.GHGReduction,
			})
		}
		bid = &models.Bid{
			QuoteRequestID:      in.QuoteRequestID,
			ProducerOrgID:       in.ProducerOrgID,
			Version:             1,
			Allocations:         allocs,
			BlendedGHGReduction: BlendedGHGReduction(allocs),
			OfferUnitPrice:      in.OfferUnitPrice,
			Currency:            in.Currency,
			PricingType:         in.PricingType,
			Status:              models.BidDraft,
		}
		return tx.Create(bid).Error
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// UpdateDraft replaces a draft bid's allocations and offer. Submitted bids
// are immutable; revision goes through Revise.
func (s *Service) UpdateDraft(ctx context.Context, bidID uuid.UUID, offerUnitPrice decimal.Decimal, allocations []AllocationInput) (*models.Bid, error) {
	var bid *models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := loadBid(tx, bidID)
		if err != nil {
			return err
		}
		if b.Status != models.BidDraft {
			return ErrIllegalTransition
		}
		if err := validatePlannedCapacity(tx, allocations); err != nil {
			return err
		}
		if err := tx.Delete(&models.PlantAllocation{}, "bid_id = ?", bidID).Error; err != nil {
			return err
		}
		allocs := make([]models.PlantAllocation, 0, len(allocations))
		for _, a := range allocations {
			alloc := models.PlantAllocation{
				BidID:        bidID,
				PlantID:      a.PlantID,
				Year:         a.Year,
				Volume:       a.Volume,
				GHGReduction: a.GHGReduction,
			}
			if err := tx.Create(&alloc).Error; err != nil {
				return err
			}
			allocs = append(allocs, alloc)
		}
		b.Allocations = allocs
		b.OfferUnitPrice = offerUnitPrice
		b.BlendedGHGReduction = BlendedGHGReduction(allocs)
		if err := tx.Model(&models.Bid{}).Where("bid_id = ?", bidID).Updates(map[string]interface{}{
			"offer_unit_price":      b.OfferUnitPrice,
			"blended_ghg_reduction": b.BlendedGHGReduction,
		}).Error; err != nil {
			return err
		}
		bid = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// RequestApproval moves a draft bid into pending_approval and attaches the
// approver set from the producer's roster. Fails with ErrApprovalNotRequired
// when no configured rule fires; the caller should Submit directly.
func (s *Service) RequestApproval(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	var bid *models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := loadBid(tx, bidID)
		if err != nil {
			return err
		}
		if b.Status != models.BidDraft {
			return ErrIllegalTransition
		}
		if !RequiresApproval(b, s.Rules) {
			return ErrApprovalNotRequired
		}
		if err := transition(b, models.BidPendingApproval); err != nil {
			return err
		}

		var roster []models.OrgApprover
		if err := tx.Where("org_id = ?", b.ProducerOrgID).Order("position").Find(&roster).Error; err != nil {
			return err
		}
		if len(roster) == 0 {
			return ErrNoApproverRoster
		}
		// A prior rejected round may have left approver rows behind.
		if err := tx.Delete(&models.Approver{}, "bid_id = ?", bidID).Error; err != nil {
			return err
		}
		approvers := DetermineApprovers(b, roster)
		for i := range approvers {
			if err := tx.Create(&approvers[i]).Error; err != nil {
				return err
			}
		}
		b.Approvers = approvers
		b.ApprovalMode = s.Rules.Mode
		if err := tx.Model(&models.Bid{}).Where("bid_id = ?", bidID).Updates(map[string]interface{}{
			"status":        b.Status,
			"approval_mode": b.ApprovalMode,
		}).Error; err != nil {
			return err
		}
		bid = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// RecordDecision registers one approver's decision and aggregates. A single
// rejection resets every approver to pending and returns the bid to draft; in
// sequential mode approvers must decide in position order.
func (s *Service) RecordDecision(ctx context.Context, bidID, approverID uuid.UUID, decision models.ApproverDecision, reason *string) (*models.Bid, error) {
	var bid *models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := loadBid(tx, bidID)
		if err != nil {
			return err
		}
		if b.Status != models.BidPendingApproval {
			return ErrIllegalTransition
		}

		idx := -1
		for i, a := range b.Approvers {
			if a.ApproverID == approverID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return ErrUnknownApprover
		}
		target := &b.Approvers[idx]
		if target.Decision != models.DecisionPending {
			return ErrAlreadyDecided
		}
		if b.ApprovalMode == models.ApprovalSequential {
			for _, a := range b.Approvers {
				if a.Position < target.Position && a.Decision != models.DecisionApproved {
					return ErrOutOfOrder
				}
			}
		}

		now := time.Now()
		target.Decision = decision
		target.Reason = reason
		target.DecidedAt = &now
		if err := tx.Model(&models.Approver{}).Where("id = ?", target.ID).Updates(map[string]interface{}{
			"decision":   target.Decision,
			"reason":     target.Reason,
			"decided_at": target.DecidedAt,
		}).Error; err != nil {
			return err
		}

		switch decision {
		case models.DecisionRejected:
			// Rejection-with-revision: everyone resets, bid returns to draft.
			if err := tx.Model(&models.Approver{}).Where("bid_id = ?", bidID).Updates(map[string]interface{}{
				"decision":   models.DecisionPending,
				"decided_at": nil,
			}).Error; err != nil {
				return err
			}
			for i := range b.Approvers {
				b.Approvers[i].Decision = models.DecisionPending
				b.Approvers[i].DecidedAt = nil
			}
			if err := transition(b, models.BidDraft); err != nil {
				return err
			}
			if err := tx.Model(&models.Bid{}).Where("bid_id = ?", bidID).Update("status", b.Status).Error; err != nil {
				return err
			}
			if err := writeBidAudit(tx, bidID, "APPROVAL_REJECTED", map[string]interface{}{
				"approver_id": approverID,
				"role":        target.Role,
				"reason":      reason,
			}); err != nil {
				return err
			}
		case models.DecisionApproved:
			if err := writeBidAudit(tx, bidID, "APPROVAL_GRANTED", map[string]interface{}{
				"approver_id":  approverID,
				"role":         target.Role,
				"all_approved": allApproved(b.Approvers),
			}); err != nil {
				return err
			}
		}
		bid = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("bid_id", bidID.String()).Str("decision", string(decision)).Msg("approval decision recorded")
	return bid, nil
}

// Submit moves the bid to submitted. Legal only when no approval rule fires
// or every approver has approved.
func (s *Service) Submit(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	var bid *models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := loadBid(tx, bidID)
		if err != nil {
			return err
		}
		switch b.Status {
		case models.BidDraft:
			if RequiresApproval(b, s.Rules) {
				return ErrApprovalIncomplete
			}
		case models.BidPendingApproval:
			if !allApproved(b.Approvers) {
				return ErrApprovalIncomplete
			}
		default:
			return ErrIllegalTransition
		}
		if err := transition(b, models.BidSubmitted); err != nil {
			return err
		}
		if err := tx.Model(&models.Bid{}).Where("bid_id = ?", bidID).Update("status", b.Status).Error; err != nil {
			return err
		}
		bid = b
		return writeBidAudit(tx, bidID, "SUBMITTED", map[string]interface{}{"version": b.Version})
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// Decide records the commercial outcome of a submitted bid. A win supersedes
// every other bid against the same quote request and awards the RFQ; contract
// materialization is a separate call into the delivery tracker.
func (s *Service) Decide(ctx context.Context, bidID uuid.UUID, outcome models.BidStatus) (*models.Bid, error) {
	if outcome != models.BidWon && outcome != models.BidLost {
		return nil, ErrIllegalTransition
	}
	var bid *models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := loadBid(tx, bidID)
		if err != nil {
			return err
		}
		if b.Status != models.BidSubmitted {
			return ErrIllegalTransition
		}
		if err := transition(b, outcome); err != nil {
			return err
		}
		if err := tx.Model(&models.Bid{}).Where("bid_id = ?", bidID).Update("status", b.Status).Error; err != nil {
			return err
		}

		if outcome == models.BidWon {
			// Everything else against this RFQ is implicitly superseded.
			if err := tx.Model(&models.Bid{}).
				Where("quote_request_id = ? AND bid_id <> ? AND status IN ?", b.QuoteRequestID, bidID,
					[]models.BidStatus{models.BidDraft, models.BidPendingApproval, models.BidSubmitted}).
				Updates(map[string]interface{}{"status": models.BidLost, "superseded": true}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.QuoteRequest{}).
				Where("quote_request_id = ?", b.QuoteRequestID).
				Update("status", models.QuoteRequestAwarded).Error; err != nil {
				return err
			}
		}
		bid = b
		return writeBidAudit(tx, bidID, "DECIDED", map[string]interface{}{"outcome": outcome})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("bid_id", bidID.String()).Str("outcome", string(outcome)).Msg("bid decided")
	return bid, nil
}

// Withdraw pulls a bid at any pre-decision stage.
func (s *Service) Withdraw(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	var bid *models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := loadBid(tx, bidID)
		if err != nil {
			return err
		}
		if err := transition(b, models.BidWithdrawn); err != nil {
			return err
		}
		if err := tx.Model(&models.Bid{}).Where("bid_id = ?", bidID).Update("status", b.Status).Error; err != nil {
			return err
		}
		bid = b
		return writeBidAudit(tx, bidID, "WITHDRAWN", nil)
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// Revise creates version n+1 from a submitted bid. The prior version keeps
// its submitted status but is flagged superseded and refuses further
// mutation.
func (s *Service) Revise(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	var revision *models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := loadBid(tx, bidID)
		if err != nil {
			return err
		}
		if b.Status != models.BidSubmitted {
			return ErrIllegalTransition
		}

		allocs := make([]models.PlantAllocation, 0, len(b.Allocations))
		for _, a := range b.Allocations {
			allocs = append(allocs, models.PlantAllocation{
				PlantID:      a.PlantID,
				Year:         a.Year,
				Volume:       a.Volume,
				GHGReduction: a.GHGReduction,
			})
		}
		revision = &models.Bid{
			QuoteRequestID:      b.QuoteRequestID,
			ProducerOrgID:       b.ProducerOrgID,
			Version:             b.Version + 1,
			Allocations:         allocs,
			BlendedGHGReduction: b.BlendedGHGReduction,
			OfferUnitPrice:      b.OfferUnitPrice,
			Currency:            b.Currency,
			PricingType:         b.PricingType,
			Status:              models.BidDraft,
		}
		if err := tx.Create(revision).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Bid{}).Where("bid_id = ?", bidID).Update("superseded", true).Error; err != nil {
			return err
		}
		return writeBidAudit(tx, revision.BidID, "REVISED_FROM", map[string]interface{}{
			"previous_bid_id": bidID,
			"version":         revision.Version,
		})
	})
	if err != nil {
		return nil, err
	}
	return revision, nil
}

// GetBid loads a bid with allocations and approvers.
func (s *Service) GetBid(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	return loadBid(s.DB.WithContext(ctx), bidID)
}

func loadBid(tx *gorm.DB, bidID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := tx.Preload("Allocations").
		Preload("Approvers", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("bid_id = ?", bidID).First(&bid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	if bid.Superseded {
		return &bid, ErrBidSuperseded
	}
	return &bid, nil
}

// validatePlannedCapacity checks the bid-edit invariant: per plant/year, the
// bid's planned volume must fit the declared capacity.
func validatePlannedCapacity(tx *gorm.DB, allocations []AllocationInput) error {
	type key struct {
		plant uuid.UUID
		year  int
	}
	planned := make(map[key]decimal.Decimal)
	for _, a := range allocations {
		if a.Volume.Sign() <= 0 {
			return ErrPlannedOverCapacity
		}
		k := key{a.PlantID, a.Year}
		planned[k] = planned[k].Add(a.Volume)
	}
	for k, volume := range planned {
		var capacity models.PlantCapacity
		if err := tx.Where("plant_id = ? AND year = ?", k.plant, k.year).First(&capacity).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrPlannedOverCapacity
			}
			return err
		}
		if volume.GreaterThan(capacity.Volume) {
			return ErrPlannedOverCapacity
		}
	}
	return nil
}

func writeBidAudit(tx *gorm.DB, bidID uuid.UUID, eventType string, payload map[string]interface{}) error {
	data, _ := json.Marshal(payload)
	return tx.Create(&models.AuditEvent{
		EntityType: "bid",
		EntityID:   bidID,
		EventType:  eventType,
		EventData:  datatypes.JSON(data),
	}).Error
}
