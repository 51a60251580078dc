package contracts

import (
	"context"
	"encoding/json"
	"time"

	"skyfuel-backend/internal/ledger"
	"skyfuel-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxRetries = 3

type Service struct {
	DB     *gorm.DB
	Ledger *ledger.Service
	// DefaultTolerancePct is applied to contracts materialized from bids.
	DefaultTolerancePct decimal.Decimal
}

// BatchRef names a production batch and the volume drawn from it to fulfill
// a delivery. Stored on the delivery as a JSON array.
type BatchRef struct {
	BatchID uuid.UUID       `json:"batch_id"`
	Volume  decimal.Decimal `json:"volume"`
}

// Materialize builds a contract from a won bid: one scheduled delivery per
// plant allocation, volume and price copied from the bid. Called explicitly
// after the bid decision, never implicitly.
func (s *Service) Materialize(ctx context.Context, bidID uuid.UUID) (*models.Contract, error) {
	var contract *models.Contract
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bid models.Bid
		if err := tx.Preload("Allocations").Where("bid_id = ?", bidID).First(&bid).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrBidNotFound
			}
			return err
		}
		if bid.Status != models.BidWon {
			return ErrBidNotWon
		}
		var existing int64
		if err := tx.Model(&models.Contract{}).Where("bid_id = ?", bidID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrContractExists
		}

		var rfq models.QuoteRequest
		if err := tx.Where("quote_request_id = ?", bid.QuoteRequestID).First(&rfq).Error; err != nil {
			return err
		}

		deliveries := make([]models.Delivery, 0, len(bid.Allocations))
		for _, alloc := range bid.Allocations {
			deliveries = append(deliveries, models.Delivery{
				PlantID:         alloc.PlantID,
				Year:            alloc.Year,
				ScheduledDate:   time.Date(alloc.Year, time.December, 31, 0, 0, 0, 0, time.UTC),
				ScheduledVolume: alloc.Volume,
				Status:          models.DeliveryScheduled,
			})
		}
		contract = &models.Contract{
			BidID:          bidID,
			QuoteRequestID: bid.QuoteRequestID,
			BuyerOrgID:     rfq.BuyerOrgID,
			ProducerOrgID:  bid.ProducerOrgID,
			TotalVolume:    bid.TotalVolume(),
			VolumeUnit:     rfq.VolumeUnit,
			Currency:       bid.Currency,
			PricingType:    bid.PricingType,
			UnitPrice:      bid.OfferUnitPrice,
			TolerancePct:   s.DefaultTolerancePct,
			Deliveries:     deliveries,
			OnTrack:        true,
			Status:         models.ContractScheduled,
		}
		if err := tx.Create(contract).Error; err != nil {
			return err
		}
		return writeContractAudit(tx, contract.ContractID, "MATERIALIZED", map[string]interface{}{
			"bid_id":     bidID,
			"deliveries": len(deliveries),
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("contract_id", contract.ContractID.String()).Str("bid_id", bidID.String()).Msg("contract materialized")
	return contract, nil
}

// GetContract loads a contract with its delivery list and the on-track and
// invoice figures rederived against the current clock.
func (s *Service) GetContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.loadContract(s.DB.WithContext(ctx), contractID)
	if err != nil {
		return nil, err
	}
	Recompute(contract, contract.Deliveries, time.Now())
	return contract, nil
}

// LogDelivery records the physical fulfillment of a scheduled delivery and
// consumes batch capacity for every referenced batch. Allocation across
// batches is all-or-nothing: if any batch rejects, the whole operation rolls
// back and the delivery stays scheduled.
func (s *Service) LogDelivery(ctx context.Context, contractID, deliveryID uuid.UUID, actualDate time.Time, actualVolume decimal.Decimal, batchRefs []BatchRef) (*models.Contract, error) {
	var contract *models.Contract
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			c, txErr := s.logDeliveryTx(tx, contractID, deliveryID, actualDate, actualVolume, batchRefs)
			if txErr != nil {
				return txErr
			}
			contract = c
			return nil
		})
		if err != ledger.ErrConcurrentUpdate {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *Service) logDeliveryTx(tx *gorm.DB, contractID, deliveryID uuid.UUID, actualDate time.Time, actualVolume decimal.Decimal, batchRefs []BatchRef) (*models.Contract, error) {
	contract, err := s.loadContract(tx, contractID)
	if err != nil {
		return nil, err
	}
	delivery := findDelivery(contract.Deliveries, deliveryID)
	if delivery == nil {
		return nil, ErrDeliveryNotFound
	}
	if delivery.Status != models.DeliveryScheduled {
		return nil, ErrIllegalTransition
	}
	if !WithinTolerance(delivery.ScheduledVolume, actualVolume, contract.TolerancePct) {
		return nil, ErrVolumeOutOfTolerance
	}
	// The contract-level ceiling uses the same tolerance band: delivered
	// volume may not exceed totalVolume * (1 + tolerancePct/100).
	ceiling := contract.TotalVolume.Mul(decimal.NewFromInt(100).Add(contract.TolerancePct)).Div(decimal.NewFromInt(100))
	if DeliveredVolume(contract.Deliveries).Add(actualVolume).GreaterThan(ceiling) {
		return nil, ErrVolumeOutOfTolerance
	}

	for _, ref := range batchRefs {
		if _, err := s.Ledger.AllocateTx(tx, ref.BatchID, contractID, ref.Volume); err != nil {
			return nil, err
		}
	}

	refsJSON, _ := json.Marshal(batchRefs)
	delivery.ActualDate = &actualDate
	delivery.ActualVolume = &actualVolume
	delivery.BatchRefs = datatypes.JSON(refsJSON)
	delivery.Status = models.DeliveryDelivered
	if err := tx.Model(&models.Delivery{}).Where("delivery_id = ?", deliveryID).Updates(map[string]interface{}{
		"actual_date":   delivery.ActualDate,
		"actual_volume": delivery.ActualVolume,
		"batch_refs":    delivery.BatchRefs,
		"status":        delivery.Status,
	}).Error; err != nil {
		return nil, err
	}

	if err := s.saveRecomputed(tx, contract, time.Now()); err != nil {
		return nil, err
	}
	if err := writeContractAudit(tx, contractID, "DELIVERY_LOGGED", map[string]interface{}{
		"delivery_id":   deliveryID,
		"actual_volume": actualVolume,
		"batch_refs":    batchRefs,
	}); err != nil {
		return nil, err
	}
	return contract, nil
}

// MarkInvoiced moves a delivered delivery to invoiced.
func (s *Service) MarkInvoiced(ctx context.Context, contractID, deliveryID uuid.UUID) (*models.Contract, error) {
	return s.advanceDelivery(ctx, contractID, deliveryID, models.DeliveryDelivered, models.DeliveryInvoiced, "DELIVERY_INVOICED")
}

// MarkPaid moves an invoiced delivery to paid.
func (s *Service) MarkPaid(ctx context.Context, contractID, deliveryID uuid.UUID) (*models.Contract, error) {
	return s.advanceDelivery(ctx, contractID, deliveryID, models.DeliveryInvoiced, models.DeliveryPaid, "DELIVERY_PAID")
}

// advanceDelivery enforces the strictly forward scheduled -> delivered ->
// invoiced -> paid chain.
func (s *Service) advanceDelivery(ctx context.Context, contractID, deliveryID uuid.UUID, from, to models.DeliveryStatus, eventType string) (*models.Contract, error) {
	var contract *models.Contract
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.loadContract(tx, contractID)
		if err != nil {
			return err
		}
		delivery := findDelivery(c.Deliveries, deliveryID)
		if delivery == nil {
			return ErrDeliveryNotFound
		}
		if delivery.Status != from {
			return ErrIllegalTransition
		}
		delivery.Status = to
		if err := tx.Model(&models.Delivery{}).Where("delivery_id = ?", deliveryID).Update("status", to).Error; err != nil {
			return err
		}
		if err := s.saveRecomputed(tx, c, time.Now()); err != nil {
			return err
		}
		contract = c
		return writeContractAudit(tx, contractID, eventType, map[string]interface{}{"delivery_id": deliveryID})
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// Cancel marks a contract cancelled. Deliveries already fulfilled keep their
// status; the ledger is not unwound here.
func (s *Service) Cancel(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	var contract *models.Contract
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.loadContract(tx, contractID)
		if err != nil {
			return err
		}
		c.Status = models.ContractCancelled
		if err := tx.Model(&models.Contract{}).Where("contract_id = ?", contractID).Update("status", c.Status).Error; err != nil {
			return err
		}
		contract = c
		return writeContractAudit(tx, contractID, "CANCELLED", nil)
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *Service) loadContract(tx *gorm.DB, contractID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := tx.Preload("Deliveries", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_date") }).
		Where("contract_id = ?", contractID).First(&contract).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return &contract, nil
}

// saveRecomputed rederives the cached contract fields from the in-memory
// delivery list and persists them.
func (s *Service) saveRecomputed(tx *gorm.DB, contract *models.Contract, now time.Time) error {
	Recompute(contract, contract.Deliveries, now)
	return tx.Model(&models.Contract{}).Where("contract_id = ?", contract.ContractID).Updates(map[string]interface{}{
		"delivered_volume":     contract.DeliveredVolume,
		"on_track":             contract.OnTrack,
		"outstanding_invoices": contract.OutstandingInvoices,
		"status":               contract.Status,
		"updated_at":           now,
	}).Error
}

func findDelivery(deliveries []models.Delivery, deliveryID uuid.UUID) *models.Delivery {
	for i := range deliveries {
		if deliveries[i].DeliveryID == deliveryID {
			return &deliveries[i]
		}
	}
	return nil
}

func writeContractAudit(tx *gorm.DB, contractID uuid.UUID, eventType string, payload map[string]interface{}) error {
	data, _ := json.Marshal(payload)
	return tx.Create(&models.AuditEvent{
		EntityType: "contract",
		EntityID:   contractID,
		EventType:  eventType,
		EventData:  datatypes.JSON(data),
	}).Error
}
