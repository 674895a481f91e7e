package desk

import "errors"

// Every operation either fully commits or fails with one of these kinds and
// leaves no partial state behind. The desk never retries a failed collaborator
// call; retry policy belongs to the caller.
var (
	// ErrNotSeller is returned when a non-seller attempts an administrative op.
	ErrNotSeller = errors.New("caller is not the seller")

	// ErrBookFull is returned when adding an order beyond the MaxOrders cap.
	ErrBookFull = errors.New("order book at capacity")

	// ErrNoSuchOrder is returned for an order id outside the live range.
	ErrNoSuchOrder = errors.New("no such order")

	// ErrTransferFailed wraps a token or payment ledger transfer failure.
	ErrTransferFailed = errors.New("ledger transfer failed")

	// ErrOverflow is returned when a guarded add or multiply would overflow.
	ErrOverflow = errors.New("arithmetic overflow")
)
