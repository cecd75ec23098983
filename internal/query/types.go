package query

import "github.com/google/uuid"

// PoolStateResponse represents a pool's aggregate state for API queries.
type PoolStateResponse struct {
	PoolID                 uuid.UUID `json:"pool_id"`
	Token                  string    `json:"token"`
	Admin                  uuid.UUID `json:"admin"`
	TotalUnits             uint64    `json:"total_units"`
	ConnectedUnits         uint64    `json:"connected_units"`
	DisconnectedUnits      uint64    `json:"disconnected_units"`
	FlowRatePerUnit        int64     `json:"flow_rate_per_unit"`
	TotalRequestedFlowRate int64     `json:"total_requested_flow_rate"`
	AdjustmentRecipient    uuid.UUID `json:"adjustment_recipient"`
	AdjustmentFlowRate     int64     `json:"adjustment_flow_rate"`
	LastUpdate             int64     `json:"last_update"`
	AsOfSequence           int64     `json:"as_of_sequence"`
}

// MemberStateResponse represents one member's view of a pool.
type MemberStateResponse struct {
	PoolID       uuid.UUID `json:"pool_id"`
	Member       uuid.UUID `json:"member"`
	Units        uint64    `json:"units"`
	Connected    bool      `json:"connected"`
	Claimable    int64     `json:"claimable"`
	FlowRate     int64     `json:"flow_rate"`
	AsOfSequence int64     `json:"as_of_sequence"`
}

// NetFlowResponse represents an account's aggregate flow position.
type NetFlowResponse struct {
	Account      uuid.UUID `json:"account"`
	Token        string    `json:"token"`
	NetFlowRate  int64     `json:"net_flow_rate"`
	AsOfSequence int64     `json:"as_of_sequence"`
}

// DistributionHistoryResponse represents one value movement for API queries.
type DistributionHistoryResponse struct {
	Sequence     int64  `json:"sequence"`
	EventType    string `json:"event_type"`
	PoolID       string `json:"pool_id"`
	AccountPath  string `json:"account_path"`
	TokenID      uint16 `json:"token_id"`
	Amount       int64  `json:"amount"`
	Timestamp    int64  `json:"timestamp"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// JournalHistoryEntry represents a journal entry for API queries.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	EventRef      string `json:"event_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	TokenID       uint16 `json:"token_id"`
	Amount        int64  `json:"amount"`
	JournalType   int32  `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy        bool              `json:"is_healthy"`
	HashChainBreaks  []int64           `json:"hash_chain_breaks,omitempty"`
	UnbalancedTokens []UnbalancedToken `json:"unbalanced_tokens,omitempty"`
}

// UnbalancedToken represents a token with non-zero global balance sum.
type UnbalancedToken struct {
	TokenID   uint16 `json:"token_id"`
	Imbalance int64  `json:"imbalance"`
}
