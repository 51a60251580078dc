package bids

import "errors"

var (
	ErrBidNotFound          = errors.New("Bid not found")
	ErrQuoteRequestNotFound = errors.New("Quote request not found")
	ErrQuoteRequestClosed   = errors.New("Quote request is no longer open for bidding")
	ErrUnknownApprover      = errors.New("Approver is not part of this bid's approval set")
	ErrAlreadyDecided       = errors.New("Approver has already recorded a decision")
	ErrOutOfOrder           = errors.New("A prior approver in the sequence has not decided yet")
	ErrApprovalIncomplete   = errors.New("Bid cannot be submitted before approval is complete")
	ErrApprovalNotRequired  = errors.New("Bid does not require approval")
	ErrIllegalTransition    = errors.New("Illegal bid status transition")
	ErrPlannedOverCapacity  = errors.New("Planned allocations exceed declared plant capacity for that year")
	ErrNoApproverRoster     = errors.New("Producer organization has no approver roster")
	ErrBidSuperseded        = errors.New("Bid has been superseded by a newer version")
)
