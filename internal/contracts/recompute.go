package contracts

import (
	"time"

	"skyfuel-backend/internal/models"

	"github.com/shopspring/decimal"
)

// fulfilled reports whether a delivery's actual volume counts toward the
// contract's delivered total.
func fulfilled(status models.DeliveryStatus) bool {
	return status == models.DeliveryDelivered || status == models.DeliveryInvoiced || status == models.DeliveryPaid
}

// EffectiveStatus applies the lateness overlay: a scheduled delivery whose
// date has passed reads as late. The stored status stays scheduled; late is
// derived, never persisted.
func EffectiveStatus(d *models.Delivery, now time.Time) models.DeliveryStatus {
	if d.Status == models.DeliveryScheduled && d.ScheduledDate.Before(now) {
		return models.DeliveryLate
	}
	return d.Status
}

// DeliveredVolume sums actual volumes of fulfilled deliveries.
func DeliveredVolume(deliveries []models.Delivery) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deliveries {
		if fulfilled(d.Status) && d.ActualVolume != nil {
			total = total.Add(*d.ActualVolume)
		}
	}
	return total
}

// OnTrack reports whether no scheduled delivery is past its date.
func OnTrack(deliveries []models.Delivery, now time.Time) bool {
	for i := range deliveries {
		if EffectiveStatus(&deliveries[i], now) == models.DeliveryLate {
			return false
		}
	}
	return true
}

// OutstandingInvoices sums actualVolume x unitPrice over invoiced deliveries.
func OutstandingInvoices(deliveries []models.Delivery, unitPrice decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deliveries {
		if d.Status == models.DeliveryInvoiced && d.ActualVolume != nil {
			total = total.Add(d.ActualVolume.Mul(unitPrice))
		}
	}
	return total
}

// Recompute rederives the contract's cached fields and status from its
// delivery list. The stored values are caches only; this function is the
// single source of truth for them.
func Recompute(contract *models.Contract, deliveries []models.Delivery, now time.Time) {
	contract.DeliveredVolume = DeliveredVolume(deliveries)
	contract.OnTrack = OnTrack(deliveries, now)
	contract.OutstandingInvoices = OutstandingInvoices(deliveries, contract.UnitPrice)
	contract.Status = deriveContractStatus(contract.Status, deliveries)
}

// deriveContractStatus walks the delivery list: scheduled until the first
// fulfillment, active while any delivery remains unpaid, completed when every
// delivery is paid. Cancelled and draft are caller-set and never derived.
func deriveContractStatus(current models.ContractStatus, deliveries []models.Delivery) models.ContractStatus {
	if current == models.ContractCancelled || current == models.ContractDraft {
		return current
	}
	if len(deliveries) == 0 {
		return models.ContractScheduled
	}
	anyFulfilled := false
	allPaid := true
	for _, d := range deliveries {
		if fulfilled(d.Status) {
			anyFulfilled = true
		}
		if d.Status != models.DeliveryPaid {
			allPaid = false
		}
	}
	switch {
	case allPaid:
		return models.ContractCompleted
	case anyFulfilled:
		return models.ContractActive
	default:
		return models.ContractScheduled
	}
}

// WithinTolerance checks the symmetric tolerance band, boundary inclusive:
// |actual - scheduled| <= scheduled * tolerancePct / 100.
func WithinTolerance(scheduled, actual, tolerancePct decimal.Decimal) bool {
	band := scheduled.Mul(tolerancePct).Div(decimal.NewFromInt(100))
	return actual.Sub(scheduled).Abs().LessThanOrEqual(band)
}
