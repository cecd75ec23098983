package projection

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// distributionEventTypes are the event types that land in the queryable
// distribution feed. Structural events (pool create, connect, units) move no
// value and are skipped.
var distributionEventTypes = map[string]bool{
	"InstantDistribute": true,
	"FlowDistribute":    true,
	"Claim":             true,
	"FlowsLiquidated":   true,
}

// updateDistributionHistory appends one row per value-moving journal of a
// distribution event. The account column holds the non-pool side of the
// transfer; for claims that is the member, for distributions the distributor.
func (pw *ProjectionWorker) updateDistributionHistory(ctx context.Context, tx *sql.Tx, output ProjectionOutput) error {
	if !distributionEventTypes[output.EventType] || output.PoolID == nil {
		return nil
	}

	for _, j := range output.JournalEntries {
		account := j.CreditAccount
		if pathIsPool(j.CreditAccount) {
			account = j.DebitAccount
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.distribution_history
				(sequence, event_type, pool_id, account_path, token_id, amount, journal_type, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (sequence, account_path) DO NOTHING
		`, output.Sequence, output.EventType, *output.PoolID,
			account, j.TokenID, j.Amount, j.JournalType, output.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

func pathIsPool(accountPath string) bool {
	return len(accountPath) > 5 && accountPath[:5] == "pool:"
}

// DistributionHistoryEntry represents one value movement through a pool.
type DistributionHistoryEntry struct {
	Sequence  int64
	EventType string
	PoolID    uuid.UUID
	Account   uuid.UUID
	TokenID   uint16
	Amount    int64
	Timestamp int64
}

// DistributionHistoryProjection maintains an in-memory distribution feed for
// tests and for serving recent history without a DB round trip.
type DistributionHistoryProjection struct {
	entries []DistributionHistoryEntry
}

func NewDistributionHistoryProjection() *DistributionHistoryProjection {
	return &DistributionHistoryProjection{
		entries: make([]DistributionHistoryEntry, 0),
	}
}

// AddEntry records a distribution movement.
func (p *DistributionHistoryProjection) AddEntry(entry DistributionHistoryEntry) {
	p.entries = append(p.entries, entry)
}

// QueryByAccount returns the most recent movements involving the account.
func (p *DistributionHistoryProjection) QueryByAccount(account uuid.UUID, limit int) []DistributionHistoryEntry {
	result := make([]DistributionHistoryEntry, 0)

	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if p.entries[i].Account == account {
			result = append(result, p.entries[i])
		}
	}

	return result
}

// QueryByPool returns the most recent movements through the pool.
func (p *DistributionHistoryProjection) QueryByPool(poolID uuid.UUID, limit int) []DistributionHistoryEntry {
	result := make([]DistributionHistoryEntry, 0)

	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if p.entries[i].PoolID == poolID {
			result = append(result, p.entries[i])
		}
	}

	return result
}
