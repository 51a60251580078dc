package quotes

import "errors"

var (
	ErrQuoteRequestNotFound = errors.New("Quote request not found")
	ErrQuoteRequestClosed   = errors.New("Quote request is closed and immutable")
	ErrIllegalTransition    = errors.New("Illegal quote request status transition")
	ErrBreakdownMismatch    = errors.New("Volume breakdown does not sum to the total volume")
	ErrDeadlinePassed       = errors.New("Response deadline is in the past")
)
