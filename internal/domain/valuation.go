package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValuationSnapshot records the total portfolio value at a point in time,
// in USD and in BTC. Snapshots form an append-only history used for
// tracking performance between rebalances.
type ValuationSnapshot struct {
	ID            uuid.UUID
	Date          time.Time
	TotalValueUsd decimal.Decimal
	TotalValueBtc decimal.Decimal
}
