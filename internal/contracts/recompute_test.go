package contracts

import (
	"testing"
	"time"

	"skyfuel-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	dec := decimal.RequireFromString(v)
	return &dec
}

var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestWithinTolerance(t *testing.T) {
	cases := []struct {
		name      string
		scheduled string
		actual    string
		tolerance string
		want      bool
	}{
		{"exact", "1000", "1000", "10", true},
		{"at upper boundary", "1000", "1100", "10", true},
		{"one over", "1000", "1101", "10", false},
		{"at lower boundary", "1000", "900", "10", true},
		{"one under", "1000", "899", "10", false},
		{"zero tolerance exact only", "1000", "1000", "0", true},
		{"zero tolerance off by fraction", "1000", "1000.001", "0", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WithinTolerance(d(tc.scheduled), d(tc.actual), d(tc.tolerance))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEffectiveStatus_LateOverlay(t *testing.T) {
	past := testNow.Add(-24 * time.Hour)
	future := testNow.Add(24 * time.Hour)

	scheduledPast := &models.Delivery{Status: models.DeliveryScheduled, ScheduledDate: past}
	assert.Equal(t, models.DeliveryLate, EffectiveStatus(scheduledPast, testNow))
	// The stored status is untouched.
	assert.Equal(t, models.DeliveryScheduled, scheduledPast.Status)

	scheduledFuture := &models.Delivery{Status: models.DeliveryScheduled, ScheduledDate: future}
	assert.Equal(t, models.DeliveryScheduled, EffectiveStatus(scheduledFuture, testNow))

	deliveredPast := &models.Delivery{Status: models.DeliveryDelivered, ScheduledDate: past}
	assert.Equal(t, models.DeliveryDelivered, EffectiveStatus(deliveredPast, testNow))
}

func TestRecompute(t *testing.T) {
	future := testNow.Add(30 * 24 * time.Hour)
	deliveries := []models.Delivery{
		{Status: models.DeliveryDelivered, ScheduledDate: future, ScheduledVolume: d("1000"), ActualVolume: dp("1050")},
		{Status: models.DeliveryInvoiced, ScheduledDate: future, ScheduledVolume: d("1000"), ActualVolume: dp("980")},
		{Status: models.DeliveryScheduled, ScheduledDate: future, ScheduledVolume: d("1000")},
	}
	contract := &models.Contract{
		TotalVolume: d("3000"),
		UnitPrice:   d("1800"),
		Status:      models.ContractActive,
	}
	Recompute(contract, deliveries, testNow)

	assert.True(t, contract.DeliveredVolume.Equal(d("2030")), "delivered = %s", contract.DeliveredVolume)
	assert.True(t, contract.OnTrack)
	assert.True(t, contract.OutstandingInvoices.Equal(d("1764000")), "outstanding = %s", contract.OutstandingInvoices)
	assert.Equal(t, models.ContractActive, contract.Status)
}

func TestRecompute_LateDeliveryFlagsOffTrack(t *testing.T) {
	deliveries := []models.Delivery{
		{Status: models.DeliveryScheduled, ScheduledDate: testNow.Add(-48 * time.Hour), ScheduledVolume: d("1000")},
	}
	contract := &models.Contract{TotalVolume: d("1000"), UnitPrice: d("1800"), Status: models.ContractScheduled}
	Recompute(contract, deliveries, testNow)
	assert.False(t, contract.OnTrack)
}

func TestRecompute_AllPaidCompletesContract(t *testing.T) {
	deliveries := []models.Delivery{
		{Status: models.DeliveryPaid, ScheduledDate: testNow, ScheduledVolume: d("1000"), ActualVolume: dp("1000")},
		{Status: models.DeliveryPaid, ScheduledDate: testNow, ScheduledVolume: d("500"), ActualVolume: dp("500")},
	}
	contract := &models.Contract{TotalVolume: d("1500"), UnitPrice: d("1800"), Status: models.ContractActive}
	Recompute(contract, deliveries, testNow)

	assert.Equal(t, models.ContractCompleted, contract.Status)
	assert.True(t, contract.DeliveredVolume.Equal(d("1500")))
	assert.True(t, contract.OutstandingInvoices.IsZero())
}

func TestRecompute_CancelledIsSticky(t *testing.T) {
	deliveries := []models.Delivery{
		{Status: models.DeliveryPaid, ScheduledDate: testNow, ScheduledVolume: d("1000"), ActualVolume: dp("1000")},
	}
	contract := &models.Contract{TotalVolume: d("1000"), UnitPrice: d("1800"), Status: models.ContractCancelled}
	Recompute(contract, deliveries, testNow)
	assert.Equal(t, models.ContractCancelled, contract.Status)
}
