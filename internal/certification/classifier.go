package certification

import (
	"time"

	"skyfuel-backend/internal/models"
)

// DefaultExpiryWindow is how long before expiry a certificate is flagged
// expiring. Overridable via config (CERT_EXPIRY_WINDOW_DAYS).
const DefaultExpiryWindow = 30 * 24 * time.Hour

// Classify derives a certificate's validity from its expiry date and an
// explicit clock. Pure: callers inject now so the result is deterministic.
func Classify(expiryDate, now time.Time, window time.Duration) models.CertificateStatus {
	if expiryDate.Before(now) {
		return models.CertificateExpired
	}
	if expiryDate.Before(now.Add(window)) {
		return models.CertificateExpiring
	}
	return models.CertificateValid
}

// Aggregate rolls certificate statuses up into a facility-level status.
//
// Empty list means the plant holds no certificates at all. A mix that
// includes an expired certificate alongside live ones is reported as
// partially_certified rather than not_certified; the plant still holds
// coverage for part of its scope.
func Aggregate(statuses []models.CertificateStatus) models.PlantCertification {
	if len(statuses) == 0 {
		return models.PlantNotCertified
	}
	allValid := true
	anyExpired := false
	for _, s := range statuses {
		if s != models.CertificateValid {
			allValid = false
		}
		if s == models.CertificateExpired {
			anyExpired = true
		}
	}
	switch {
	case allValid:
		return models.PlantFullyCertified
	case !anyExpired:
		return models.PlantCertificateExpiring
	default:
		return models.PlantPartiallyCertified
	}
}
