package pool

import "github.com/google/uuid"

// Member is the per-member ledger entry of a distribution pool. It is never
// updated eagerly on distributions — only at explicit sync points (units
// change, connect/disconnect, claim). Real-time balances are derived from the
// pool-level accumulators and the values captured here at the last sync.
type Member struct {
	Account uuid.UUID

	// Units is the member's share weight; denominator contributions to
	// every proportional split.
	Units uint64

	// Pool accumulator values at this member's last sync point.
	SyncedSettledValuePerUnit int64
	SyncedFlowRatePerUnit     int64

	// SyncedBalance is the member's accrued balance as of the last sync,
	// net of amounts already claimed.
	SyncedBalance int64

	// Connected controls whether the token transfer system treats accrued
	// balance as auto-delivered or claim-required. Accrual itself is
	// identical either way.
	Connected bool
}

// MemberState is the serializable form of a Member, used by snapshots.
type MemberState struct {
	Account                   string `json:"account"`
	Units                     uint64 `json:"units"`
	SyncedSettledValuePerUnit int64  `json:"synced_settled_value_per_unit"`
	SyncedFlowRatePerUnit     int64  `json:"synced_flow_rate_per_unit"`
	SyncedBalance             int64  `json:"synced_balance"`
	Connected                 bool   `json:"connected"`
}

func (m *Member) state() MemberState {
	return MemberState{
		Account:                   m.Account.String(),
		Units:                     m.Units,
		SyncedSettledValuePerUnit: m.SyncedSettledValuePerUnit,
		SyncedFlowRatePerUnit:     m.SyncedFlowRatePerUnit,
		SyncedBalance:             m.SyncedBalance,
		Connected:                 m.Connected,
	}
}
