package ledger

import "errors"

var (
	ErrInsufficientCapacity = errors.New("Insufficient batch capacity for allocation")
	ErrAllocationNotFound   = errors.New("No matching allocation of sufficient size for that contract")
	ErrBatchNotFound        = errors.New("Production batch not found")
	ErrContractNotFound     = errors.New("Contract not found")
	ErrBatchDelivered       = errors.New("Batch already delivered; allocations are frozen")
	ErrBatchNotFullyAllocated = errors.New("Batch must be fully allocated before it can be marked delivered")
	ErrNonPositiveVolume    = errors.New("Volume must be positive")

	// ErrConcurrentUpdate signals a lost conditional update on the batch row.
	// Allocate/Deallocate retry internally; it only escapes when a batch
	// stays contended past the retry budget.
	ErrConcurrentUpdate = errors.New("Batch was modified concurrently")
)
