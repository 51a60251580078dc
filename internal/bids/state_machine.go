package bids

import "skyfuel-backend/internal/models"

// allowedTransitions is the legal edge set of the bid lifecycle.
// pending_approval -> draft happens only through rejection-with-revision in
// RecordDecision; it is part of the legal edge set here because it is a real
// edge, the workflow just owns when it fires.
var allowedTransitions = map[models.BidStatus][]models.BidStatus{
	models.BidDraft:           {models.BidPendingApproval, models.BidSubmitted, models.BidWithdrawn},
	models.BidPendingApproval: {models.BidSubmitted, models.BidDraft, models.BidWithdrawn},
	models.BidSubmitted:       {models.BidWon, models.BidLost, models.BidWithdrawn},
	models.BidWon:             {},
	models.BidLost:            {},
	models.BidWithdrawn:       {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.BidStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transition moves the bid or fails with ErrIllegalTransition.
func transition(bid *models.Bid, to models.BidStatus) error {
	if !CanTransition(bid.Status, to) {
		return ErrIllegalTransition
	}
	bid.Status = to
	return nil
}
