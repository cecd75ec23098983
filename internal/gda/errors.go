package gda

import "errors"

// Validation errors. All are returned before any accumulator mutation.
var (
	// ErrNoNegativeFlowRate rejects a negative requested flow rate.
	ErrNoNegativeFlowRate = errors.New("requested flow rate must not be negative")

	// ErrNotPool is returned when the target is not a registered pool for
	// the given token.
	ErrNotPool = errors.New("not a registered pool for token")

	// ErrDistributeForOthersNotAllowed is returned when an operator tries
	// to distribute from another account without delegated permission.
	ErrDistributeForOthersNotAllowed = errors.New("operator lacks permission to distribute for account")

	// ErrPoolAdminOnly guards admin-scoped pool operations.
	ErrPoolAdminOnly = errors.New("operation restricted to pool admin")

	// ErrInsufficientBalance is returned when the distributor's current or
	// projected balance cannot support the computed amount or rate.
	ErrInsufficientBalance = errors.New("insufficient balance for distribution")

	// ErrArithmeticOverflow marks an intermediate computation exceeding the
	// signed 64-bit range. Fatal to the single call, never saturated.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)
