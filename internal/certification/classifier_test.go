package certification

import (
	"testing"
	"time"

	"skyfuel-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		expiry time.Time
		want   models.CertificateStatus
	}{
		{"expired yesterday", testNow.AddDate(0, 0, -1), models.CertificateExpired},
		{"expiring in 10 days", testNow.AddDate(0, 0, 10), models.CertificateExpiring},
		{"valid in 31 days", testNow.AddDate(0, 0, 31), models.CertificateValid},
		{"expiring at window edge minus a second", testNow.Add(DefaultExpiryWindow - time.Second), models.CertificateExpiring},
		{"valid exactly at window edge", testNow.Add(DefaultExpiryWindow), models.CertificateValid},
		{"expiring right now", testNow, models.CertificateExpiring},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.expiry, testNow, DefaultExpiryWindow))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	// Same certificate, different clocks: 10 days out is expiring, rewound a
	// month it is valid, advanced past expiry it is expired.
	expiry := testNow.AddDate(0, 0, 10)
	assert.Equal(t, models.CertificateExpiring, Classify(expiry, testNow, DefaultExpiryWindow))
	assert.Equal(t, models.CertificateValid, Classify(expiry, testNow.AddDate(0, -1, 0), DefaultExpiryWindow))
	assert.Equal(t, models.CertificateExpired, Classify(expiry, testNow.AddDate(0, 0, 11), DefaultExpiryWindow))
}

func TestAggregate(t *testing.T) {
	valid := models.CertificateValid
	expiring := models.CertificateExpiring
	expired := models.CertificateExpired

	cases := []struct {
		name     string
		statuses []models.CertificateStatus
		want     models.PlantCertification
	}{
		{"no certificates", nil, models.PlantNotCertified},
		{"all valid", []models.CertificateStatus{valid, valid}, models.PlantFullyCertified},
		{"one expiring no expired", []models.CertificateStatus{valid, expiring}, models.PlantCertificateExpiring},
		{"all expiring", []models.CertificateStatus{expiring, expiring}, models.PlantCertificateExpiring},
		{"expired beside valid", []models.CertificateStatus{expired, valid}, models.PlantPartiallyCertified},
		{"expired beside expiring", []models.CertificateStatus{expired, expiring}, models.PlantPartiallyCertified},
		{"all expired", []models.CertificateStatus{expired, expired}, models.PlantPartiallyCertified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Aggregate(tc.statuses))
		})
	}
}
