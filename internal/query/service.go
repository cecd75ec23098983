package query

import (
	"context"
	"database/sql"
	"fmt"

	"FlowLedger/internal/gda"
	"FlowLedger/internal/ledger"

	"github.com/google/uuid"
)

// CoreReader exposes read-only access to the live core state. Pool and
// member queries read this directly for consistency; history and balance
// queries read the projection tables.
type CoreReader interface {
	GetSequence() int64
	Adjudicator() *gda.Adjudicator
}

// QueryService serves read-only queries from PostgreSQL projection tables
// and the live core. All responses include as_of_sequence for freshness
// semantics.
type QueryService struct {
	db   *sql.DB
	core CoreReader
}

func NewQueryService(db *sql.DB, core CoreReader) *QueryService {
	return &QueryService{db: db, core: core}
}

// GetBalance returns an account's settled balance for a token, read from
// the balance projection.
func (qs *QueryService) GetBalance(
	ctx context.Context,
	account uuid.UUID,
	token string,
) (*BalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	tokenID, ok := ledger.GetTokenID(token)
	if !ok {
		return nil, fmt.Errorf("unknown token: %s", token)
	}

	accountPath := ledger.NewUserAccountKey(account, tokenID).AccountPath()
	balance, err := qs.getProjectedBalance(ctx, accountPath, tokenID)
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{
		Account:      account,
		Token:        token,
		Balance:      balance,
		AsOfSequence: asOfSeq,
	}, nil
}

// GetPoolBuffer returns a pool's buffer balance: value already settled away
// from distributors but not yet claimed by members.
func (qs *QueryService) GetPoolBuffer(
	ctx context.Context,
	poolID uuid.UUID,
	token string,
) (*PoolBufferResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	tokenID, ok := ledger.GetTokenID(token)
	if !ok {
		return nil, fmt.Errorf("unknown token: %s", token)
	}

	bufferPath := ledger.NewPoolAccountKey(poolID, tokenID).AccountPath()
	buffer, err := qs.getProjectedBalance(ctx, bufferPath, tokenID)
	if err != nil {
		return nil, err
	}

	return &PoolBufferResponse{
		PoolID:       poolID,
		Token:        token,
		Buffer:       buffer,
		AsOfSequence: asOfSeq,
	}, nil
}

// GetPoolState returns a pool's aggregate state from the live core.
func (qs *QueryService) GetPoolState(
	ctx context.Context,
	poolID uuid.UUID,
) (*PoolStateResponse, error) {
	p, ok := qs.core.Adjudicator().Pool(poolID)
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", poolID, gda.ErrNotPool)
	}

	recipient, adjRate := p.AdjustmentFlow()
	return &PoolStateResponse{
		PoolID:                 p.ID,
		Token:                  p.Token,
		Admin:                  p.Admin,
		TotalUnits:             p.TotalUnits(),
		ConnectedUnits:         p.ConnectedUnits(),
		DisconnectedUnits:      p.DisconnectedUnits(),
		FlowRatePerUnit:        p.FlowRatePerUnit(),
		TotalRequestedFlowRate: p.TotalRequestedFlowRate(),
		AdjustmentRecipient:    recipient,
		AdjustmentFlowRate:     adjRate,
		LastUpdate:             p.LastUpdate(),
		AsOfSequence:           qs.core.GetSequence(),
	}, nil
}

// GetMemberState returns one member's view of a pool as of the given time:
// units, connection status, real-time claimable balance, and current inflow
// rate.
func (qs *QueryService) GetMemberState(
	ctx context.Context,
	poolID uuid.UUID,
	member uuid.UUID,
	asOf int64,
) (*MemberStateResponse, error) {
	adj := qs.core.Adjudicator()
	p, ok := adj.Pool(poolID)
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", poolID, gda.ErrNotPool)
	}

	claimable, err := adj.ClaimableBalance(poolID, member, asOf)
	if err != nil {
		return nil, err
	}
	flowRate, err := p.MemberFlowRate(member)
	if err != nil {
		return nil, err
	}

	return &MemberStateResponse{
		PoolID:       poolID,
		Member:       member,
		Units:        p.MemberUnits(member),
		Connected:    p.IsMemberConnected(member),
		Claimable:    claimable,
		FlowRate:     flowRate,
		AsOfSequence: qs.core.GetSequence(),
	}, nil
}

// GetNetFlowRate returns the account's aggregate flow position for a token:
// connected member inflows plus adjustment inflows minus distributor
// outflows.
func (qs *QueryService) GetNetFlowRate(
	ctx context.Context,
	account uuid.UUID,
	token string,
) (*NetFlowResponse, error) {
	net, err := qs.core.Adjudicator().NetFlowRate(token, account)
	if err != nil {
		return nil, err
	}
	return &NetFlowResponse{
		Account:      account,
		Token:        token,
		NetFlowRate:  net,
		AsOfSequence: qs.core.GetSequence(),
	}, nil
}

// GetDistributionHistory returns the distribution feed, optionally scoped to
// a pool, with cursor-based pagination on sequence.
func (qs *QueryService) GetDistributionHistory(
	ctx context.Context,
	account uuid.UUID,
	poolID *uuid.UUID,
	limit int,
	afterSequence *int64,
) ([]DistributionHistoryResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	accountPrefix := fmt.Sprintf("account:%s:%%", account)
	query := `
		SELECT sequence, event_type, pool_id, account_path, token_id, amount, timestamp
		FROM projections.distribution_history
		WHERE account_path LIKE $1
	`
	args := []interface{}{accountPrefix}
	argIdx := 2

	if poolID != nil {
		query += fmt.Sprintf(" AND pool_id = $%d", argIdx)
		args = append(args, poolID.String())
		argIdx++
	}

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []DistributionHistoryResponse
	for rows.Next() {
		var h DistributionHistoryResponse
		h.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&h.Sequence, &h.EventType, &h.PoolID, &h.AccountPath,
			&h.TokenID, &h.Amount, &h.Timestamp,
		); err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// GetJournalHistory returns journal entries touching the account with
// cursor-based pagination.
func (qs *QueryService) GetJournalHistory(
	ctx context.Context,
	account uuid.UUID,
	limit int,
	afterSequence *int64,
) ([]JournalHistoryEntry, error) {
	accountPrefix := fmt.Sprintf("account:%s:%%", account)

	query := `
		SELECT journal_id, batch_id, event_ref, sequence,
		       debit_account, credit_account, token_id, amount, journal_type, timestamp
		FROM event_log.journal
		WHERE debit_account LIKE $1 OR credit_account LIKE $1
	`
	args := []interface{}{accountPrefix}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.EventRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.TokenID, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain and global balance invariants.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	// Check hash chain continuity
	rows, err := qs.db.QueryContext(ctx, `
		SELECT e1.sequence, e1.prev_hash, e2.state_hash
		FROM event_log.events e1
		LEFT JOIN event_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.sequence > 0 AND e1.prev_hash != COALESCE(e2.state_hash, e1.prev_hash)
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		var prevHash, expectedHash []byte
		if err := rows.Scan(&seq, &prevHash, &expectedHash); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}

	// Check global balance (should sum to zero across all accounts per token)
	balanceRows, err := qs.db.QueryContext(ctx, `
		SELECT token_id, SUM(balance) as total
		FROM projections.balances
		GROUP BY token_id
		HAVING SUM(balance) != 0
	`)
	if err != nil {
		return nil, err
	}
	defer balanceRows.Close()

	for balanceRows.Next() {
		var tokenID uint16
		var total int64
		if err := balanceRows.Scan(&tokenID, &total); err != nil {
			return nil, err
		}
		report.UnbalancedTokens = append(report.UnbalancedTokens, UnbalancedToken{
			TokenID:   tokenID,
			Imbalance: total,
		})
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.UnbalancedTokens) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func (qs *QueryService) getProjectedBalance(ctx context.Context, accountPath string, tokenID ledger.TokenID) (int64, error) {
	var balance int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(balance, 0) FROM projections.balances
		WHERE account_path = $1 AND token_id = $2
	`, accountPath, tokenID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}
