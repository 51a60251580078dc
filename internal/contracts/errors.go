package contracts

import "errors"

var (
	ErrContractNotFound     = errors.New("Contract not found")
	ErrDeliveryNotFound     = errors.New("Delivery not found on this contract")
	ErrVolumeOutOfTolerance = errors.New("Actual volume outside the contract tolerance band")
	ErrIllegalTransition    = errors.New("Illegal delivery status transition")
	ErrBidNotFound          = errors.New("Bid not found")
	ErrBidNotWon            = errors.New("Only a won bid can be materialized into a contract")
	ErrContractExists       = errors.New("Bid has already been materialized into a contract")
)
