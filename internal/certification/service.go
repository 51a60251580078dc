package certification

import (
	"context"
	"time"

	"skyfuel-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB *gorm.DB
	// ExpiryWindow is how close to expiry a certificate counts as expiring.
	// Zero means DefaultExpiryWindow.
	ExpiryWindow time.Duration
}

func (s *Service) window() time.Duration {
	if s.ExpiryWindow > 0 {
		return s.ExpiryWindow
	}
	return DefaultExpiryWindow
}

// RefreshPlant reclassifies every certificate covering the plant (direct or
// org-wide) and saves the derived statuses plus the plant rollup.
func (s *Service) RefreshPlant(ctx context.Context, plantID uuid.UUID, now time.Time) (*models.Plant, error) {
	var plant models.Plant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plant_id = ?", plantID).First(&plant).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrPlantNotFound
			}
			return err
		}

		var certs []models.Certificate
		if err := tx.Where("plant_id = ? OR (org_id = ? AND org_wide = ?)", plantID, plant.OrgID, true).
			Find(&certs).Error; err != nil {
			return err
		}

		statuses := make([]models.CertificateStatus, 0, len(certs))
		for i := range certs {
			status := Classify(certs[i].ExpiryDate, now, s.window())
			statuses = append(statuses, status)
			if certs[i].Status != status {
				certs[i].Status = status
				if err := tx.Save(&certs[i]).Error; err != nil {
					return err
				}
			}
		}

		rollup := Aggregate(statuses)
		if plant.CertificationStatus != rollup {
			plant.CertificationStatus = rollup
			if err := tx.Save(&plant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("plant_id", plantID.String()).Str("certification", string(plant.CertificationStatus)).Msg("plant certification refreshed")
	return &plant, nil
}

// WhatIf classifies a set of certificates against an explicit clock without
// touching persistence. Used by callers that want "what would status be".
func (s *Service) WhatIf(certs []models.Certificate, now time.Time) models.PlantCertification {
	statuses := make([]models.CertificateStatus, 0, len(certs))
	for _, c := range certs {
		statuses = append(statuses, Classify(c.ExpiryDate, now, s.window()))
	}
	return Aggregate(statuses)
}

// UpsertCertificate stores a certificate with its derived status and returns
// it. Status is always recomputed, never taken from the caller.
func (s *Service) UpsertCertificate(ctx context.Context, cert *models.Certificate, now time.Time) (*models.Certificate, error) {
	cert.Status = Classify(cert.ExpiryDate, now, s.window())
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(cert).Error; err != nil {
		return nil, err
	}
	return cert, nil
}

// SweepCertificates reclassifies all certificates and the plants they cover.
// Called with an explicit clock so the reclassification is reproducible.
func (s *Service) SweepCertificates(ctx context.Context, now time.Time) (int, error) {
	var plantIDs []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&models.Plant{}).Pluck("plant_id", &plantIDs).Error; err != nil {
		return 0, err
	}
	refreshed := 0
	for _, id := range plantIDs {
		if _, err := s.RefreshPlant(ctx, id, now); err != nil {
			return refreshed, err
		}
		refreshed++
	}
	return refreshed, nil
}
