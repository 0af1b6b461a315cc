package model

import "errors"

var (
	// ErrNotFound is returned for an unknown party, transaction or listing id.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds is returned when a balance or available-funds
	// precondition fails.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidRepayment is returned when a repayment amount is not positive
	// or exceeds the outstanding loan.
	ErrInvalidRepayment = errors.New("invalid repayment")

	// ErrInvalidOperation is returned for malformed input such as a
	// non-positive quantity or a party of the wrong kind.
	ErrInvalidOperation = errors.New("invalid operation")
)
