package fitscore

import (
	"context"
	"fmt"
	"time"

	"skyfuel-backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const cacheTTL = 15 * time.Minute

type Service struct {
	DB    *gorm.DB
	Rdb   *redis.Client // optional verdict cache
	Bands Bands
}

func cacheKey(rfqID, orgID uuid.UUID) string {
	return fmt.Sprintf("fit:%s:%s", rfqID, orgID)
}

// ScoreRequest scores a producer against an RFQ. Verdicts are cached per
// (rfq, producer) until the producer's capability changes.
func (s *Service) ScoreRequest(ctx context.Context, rfqID, producerOrgID uuid.UUID) (Verdict, error) {
	if s.Rdb != nil {
		if cached, err := s.Rdb.Get(ctx, cacheKey(rfqID, producerOrgID)).Result(); err == nil && cached != "" {
			return Verdict(cached), nil
		}
	}

	var rfq models.QuoteRequest
	if err := s.DB.WithContext(ctx).Where("quote_request_id = ?", rfqID).First(&rfq).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrQuoteRequestNotFound
		}
		return "", err
	}
	var capability models.ProducerCapability
	if err := s.DB.WithContext(ctx).Where("org_id = ?", producerOrgID).First(&capability).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrCapabilityNotDeclared
		}
		return "", err
	}

	verdict := Score(
		Requirements{Volume: rfq.TotalVolume, MinGHGReduction: rfq.MinGHGReduction},
		Capability{MaxAnnualVolume: capability.MaxAnnualVolume, MaxGHGReduction: capability.MaxGHGReduction},
		s.bands(),
	)

	if s.Rdb != nil {
		if err := s.Rdb.Set(ctx, cacheKey(rfqID, producerOrgID), string(verdict), cacheTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("fit verdict cache write failed")
		}
	}
	return verdict, nil
}

// DeclareCapability stores a producer's capability band and drops any cached
// verdicts for that producer.
func (s *Service) DeclareCapability(ctx context.Context, orgID uuid.UUID, maxVolume, maxGHG decimal.Decimal, unit string) (*models.ProducerCapability, error) {
	capability := &models.ProducerCapability{
		OrgID:           orgID,
		MaxAnnualVolume: maxVolume,
		VolumeUnit:      unit,
		MaxGHGReduction: maxGHG,
	}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(capability).Error; err != nil {
		return nil, err
	}
	if s.Rdb != nil {
		iter := s.Rdb.Scan(ctx, 0, fmt.Sprintf("fit:*:%s", orgID), 0).Iterator()
		for iter.Next(ctx) {
			s.Rdb.Del(ctx, iter.Val())
		}
	}
	return capability, nil
}

func (s *Service) bands() Bands {
	b := s.Bands
	if b.VolumeComfortRatio.IsZero() && b.GHGMarginPts.IsZero() {
		return DefaultBands()
	}
	return b
}
