package quotes

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
	DB *gorm.DB
}

type CreateQuoteRequestInput struct {
	BuyerOrgID       uuid.UUID
	Title            string
	TotalVolume      decimal.Decimal
	VolumeUnit       string
	VolumeBreakdown  []models.VolumeBreakdownEntry
	FuelType         string
	Feedstock        string
	MinGHGReduction  decimal.Decimal
	PricingType      string
	Currency         string
	Incoterms        string
	ResponseDeadline time.Time
}

// Create posts a new RFQ. When a year/location breakdown is supplied it must
// sum to the total volume.
func (s *Service) Create(ctx context.Context, in CreateQuoteRequestInput) (*models.QuoteRequest, error) {
	if in.ResponseDeadline.Before(time.Now()) {
		return nil, ErrDeadlinePassed
	}
	if len(in.VolumeBreakdown) > 0 {
		sum := decimal.Zero
		for _, entry := range in.VolumeBreakdown {
			sum = sum.Add(entry.Volume)
		}
		if !sum.Equal(in.TotalVolume) {
			return nil, ErrBreakdownMismatch
		}
	}

	breakdown, err := json.Marshal(in.VolumeBreakdown)
	if err != nil {
		return nil, err
	}
	rfq := &models.QuoteRequest{
		BuyerOrgID:       in.BuyerOrgID,
		Title:            in.Title,
		TotalVolume:      in.TotalVolume,
		VolumeUnit:       in.VolumeUnit,
		VolumeBreakdown:  datatypes.JSON(breakdown),
		FuelType:         in.FuelType,
		Feedstock:        in.Feedstock,
		MinGHGReduction:  in.MinGHGReduction,
		PricingType:      in.PricingType,
		Currency:         in.Currency,
		Incoterms:        in.Incoterms,
		ResponseDeadline: in.ResponseDeadline,
		Status:           models.QuoteRequestOpen,
	}
	if err := s.DB.WithContext(ctx).Create(rfq).Error; err != nil {
		return nil, err
	}
	return rfq, nil
}

// Get loads one quote request.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	var rfq models.QuoteRequest
	if err := s.DB.WithContext(ctx).Where("quote_request_id = ?", id).First(&rfq).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrQuoteRequestNotFound
		}
		return nil, err
	}
	return &rfq, nil
}

// List returns quote requests, newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *models.QuoteRequestStatus) ([]models.QuoteRequest, error) {
	query := s.DB.WithContext(ctx).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rfqs []models.QuoteRequest
	if err := query.Find(&rfqs).Error; err != nil {
		return nil, err
	}
	return rfqs, nil
}

// Watch moves an open RFQ to watching, marking active buyer interest in the
// incoming bids.
func (s *Service) Watch(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	return s.setStatus(ctx, id, models.QuoteRequestWatching, []models.QuoteRequestStatus{models.QuoteRequestOpen})
}

// Close closes an RFQ to further bidding. Legal from open or watching;
// awarded and closed RFQs are immutable.
func (s *Service) Close(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	return s.setStatus(ctx, id, models.QuoteRequestClosed,
		[]models.QuoteRequestStatus{models.QuoteRequestOpen, models.QuoteRequestWatching})
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, to models.QuoteRequestStatus, legalFrom []models.QuoteRequestStatus) (*models.QuoteRequest, error) {
	var rfq *models.QuoteRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.QuoteRequest
		if err := tx.Where("quote_request_id = ?", id).First(&current).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrQuoteRequestNotFound
			}
			return err
		}
		legal := false
		for _, from := range legalFrom {
			if current.Status == from {
				legal = true
				break
			}
		}
		if !legal {
			if current.Status == models.QuoteRequestClosed || current.Status == models.QuoteRequestAwarded {
				return ErrQuoteRequestClosed
			}
			return ErrIllegalTransition
		}
		current.Status = to
		if err := tx.Model(&models.QuoteRequest{}).Where("quote_request_id = ?", id).Update("status", to).Error; err != nil {
			return err
		}
		rfq = &current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rfq, nil
}

// SweepDeadlines closes every open or watching RFQ whose response deadline
// has passed. The clock is injected so the sweep is deterministic under test.
func (s *Service) SweepDeadlines(ctx context.Context, now time.Time) (int, error) {
	res := s.DB.WithContext(ctx).Model(&models.QuoteRequest{}).
		Where("status IN ? AND response_deadline < ?",
			[]models.QuoteRequestStatus{models.QuoteRequestOpen, models.QuoteRequestWatching}, now).
		Update("status", models.QuoteRequestClosed)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Info().Int64("closed", res.RowsAffected).Msg("quote request deadline sweep")
	}
	return int(res.RowsAffected), nil
}
