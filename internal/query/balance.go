package query

import (
	"github.com/google/uuid"
)

// BalanceResponse represents an account's settled balance for API queries.
type BalanceResponse struct {
	Account uuid.UUID `json:"account"`
	Token   string    `json:"token"`

	// Settled ledger balance (from journal entries). Does NOT include
	// unclaimed pool accruals; those are per-pool and served by the
	// member-state query.
	Balance int64 `json:"balance"`

	// Metadata
	AsOfSequence int64 `json:"as_of_sequence"` // last applied event sequence
}

// PoolBufferResponse represents a pool's buffer account balance.
type PoolBufferResponse struct {
	PoolID       uuid.UUID `json:"pool_id"`
	Token        string    `json:"token"`
	Buffer       int64     `json:"buffer"`
	AsOfSequence int64     `json:"as_of_sequence"`
}
