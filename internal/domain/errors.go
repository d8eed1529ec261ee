package domain

import "errors"

// Configuration errors. These are fatal for the computation that surfaces
// them and never produce partial state.
var (
	// ErrEmptyTargetAllocations is returned when a rebalance is requested
	// against an empty target. "Sell everything" must be expressed as an
	// explicit 100%-BTC target instead.
	ErrEmptyTargetAllocations = errors.New("target allocations cannot be empty")

	// ErrZeroWeightSum is returned when allocation weights sum to zero,
	// which would make the percentage denominator undefined.
	ErrZeroWeightSum = errors.New("allocation weights must sum to a positive number")

	// ErrZeroPortfolioValue is returned when held assets value to zero,
	// which would make current-allocation percentages undefined.
	ErrZeroPortfolioValue = errors.New("portfolio value must be positive")

	// ErrNonPositivePrice is returned when a price source reports a zero or
	// negative price for a symbol involved in a computation.
	ErrNonPositivePrice = errors.New("coin price must be positive")

	// ErrUnknownIndexType is returned for a target index type that is
	// neither market-cap nor custom.
	ErrUnknownIndexType = errors.New("unknown target index type")

	// ErrMissingUnits is returned by executors refusing a trade whose
	// shortfall must first be covered by a cold-storage transfer.
	ErrMissingUnits = errors.New("trade has missing units pending cold storage transfer")

	// ErrSettingsNotFound is returned when no settings record has been
	// stored yet.
	ErrSettingsNotFound = errors.New("settings not found")
)
