package bids

import (
	"sort"

	"skyfuel-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Rules are the configured commercial-risk thresholds that gate submission.
// Zero thresholds disable the corresponding rule.
type Rules struct {
	Mode models.ApprovalMode
	// MinUnitPrice: offers priced below this require approval (margin below
	// target).
	MinUnitPrice decimal.Decimal
	// MaxContractValue: bids worth more than this require approval.
	MaxContractValue decimal.Decimal
}

// RequiresApproval is a pure predicate over the bid and the configured rules.
func RequiresApproval(bid *models.Bid, rules Rules) bool {
	if rules.MinUnitPrice.Sign() > 0 && bid.OfferUnitPrice.LessThan(rules.MinUnitPrice) {
		return true
	}
	if rules.MaxContractValue.Sign() > 0 {
		value := bid.TotalVolume().Mul(bid.OfferUnitPrice)
		if value.GreaterThan(rules.MaxContractValue) {
			return true
		}
	}
	return false
}

// DetermineApprovers builds the bid's approver set from the organization
// roster, each initialized to pending. Position orders the chain in
// sequential mode; parallel mode ignores it.
func DetermineApprovers(bid *models.Bid, roster []models.OrgApprover) []models.Approver {
	sorted := make([]models.OrgApprover, len(roster))
	copy(sorted, roster)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	approvers := make([]models.Approver, 0, len(sorted))
	for i, entry := range sorted {
		approvers = append(approvers, models.Approver{
			BidID:      bid.BidID,
			ApproverID: entry.UserID,
			Role:       entry.Role,
			Position:   i,
			Decision:   models.DecisionPending,
		})
	}
	return approvers
}

// allApproved reports whether every approver has approved.
func allApproved(approvers []models.Approver) bool {
	if len(approvers) == 0 {
		return false
	}
	for _, a := range approvers {
		if a.Decision != models.DecisionApproved {
			return false
		}
	}
	return true
}

// BlendedGHGReduction is the volume-weighted average emissions reduction of
// the bid's plant allocations, rounded to two places.
func BlendedGHGReduction(allocs []models.PlantAllocation) decimal.Decimal {
	totalVolume := decimal.Zero
	weighted := decimal.Zero
	for _, a := range allocs {
		totalVolume = totalVolume.Add(a.Volume)
		weighted = weighted.Add(a.Volume.Mul(a.GHGReduction))
	}
	if totalVolume.IsZero() {
		return decimal.Zero
	}
	return weighted.Div(totalVolume).Round(2)
}
