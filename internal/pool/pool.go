package pool

import (
	"fmt"
	"sort"

	fpmath "FlowLedger/internal/math"

	"github.com/google/uuid"
)

// Pool is the aggregate distribution engine for one token. All distribution
// state lives in pool-level accumulators; members are settled lazily so every
// mutating operation is O(1) in the number of members.
//
// The central identity, for any member m at time t:
//
//	balance(m, t) = m.SyncedBalance
//	              + (settledValuePerUnit(t) - m.SyncedSettledValuePerUnit) * m.Units
//
// where settledValuePerUnit(t) projects the current flow rate over the time
// elapsed since the pool's last checkpoint. This is never computed by
// iterating members.
type Pool struct {
	ID    uuid.UUID
	Token string
	Admin uuid.UUID

	totalUnits             uint64
	totalConnectedUnits    uint64
	totalDisconnectedUnits uint64

	// Cumulative settled (instant + accrued-flow) value per unit, and the
	// current per-unit flow rate. flowRatePerUnit changes only on flow
	// distributions and unit changes, never continuously.
	settledValuePerUnit int64
	flowRatePerUnit     int64
	lastUpdate          int64 // unix seconds of the last accumulator update

	// Sum of all distributors' requested flow rates into this pool.
	totalRequestedFlowRate int64

	// The adjustment flow absorbs the floor-division remainder so the
	// distributors' committed outflow matches their requests exactly.
	// At most one exists per pool; the recipient defaults to the admin.
	adjustmentRecipient uuid.UUID
	adjustmentFlowRate  int64

	// Aggregate value owed to disconnected members that has not yet been
	// folded into their individual synced balances. Settled lazily on
	// member sync (connect/claim/units change), never per-distribution.
	disconnectedCarry int64

	// Cumulative instant-distribution bookkeeping. Requested totals advance
	// even when totalUnits == 0 and nothing is transferred.
	totalInstantRequested int64
	totalInstantActual    int64

	members          map[uuid.UUID]*Member
	distributorFlows map[uuid.UUID]*FlowRecord
}

// FlowRecord is a distributor's single outgoing flow into this pool.
type FlowRecord struct {
	FlowRate      int64 // requested rate, value per second
	SettledAmount int64 // cumulative streamed value realized so far
	LastUpdate    int64 // unix seconds
}

// FlowDistribution is the outcome of AppendFlowDistribution.
type FlowDistribution struct {
	// ActualFlowRate is the floor-split of this distributor's requested
	// rate — what members collectively receive from this request.
	ActualFlowRate int64

	// AdjustmentFlowRate is the pool-wide remainder after re-splitting the
	// pool's total requested rate.
	AdjustmentFlowRate int64

	// SettledAccrual is the value streamed by this distributor since its
	// flow record was last settled; the caller realizes it in the token
	// ledger (distributor -> pool).
	SettledAccrual int64
}

// DistributorAccrual is one distributor's newly settled streamed value.
type DistributorAccrual struct {
	Account uuid.UUID
	Amount  int64
}

func New(id uuid.UUID, token string, admin uuid.UUID, createdAt int64) *Pool {
	return &Pool{
		ID:                  id,
		Token:               token,
		Admin:               admin,
		lastUpdate:          createdAt,
		adjustmentRecipient: admin,
		members:             make(map[uuid.UUID]*Member),
		distributorFlows:    make(map[uuid.UUID]*FlowRecord),
	}
}

// settle folds elapsed time at the current flow rate into the settled
// accumulator and advances the checkpoint. It changes no observable balance
// (the claimable formula projects identically before and after), so a later
// error in the same operation leaves consistent state.
func (p *Pool) settle(now int64) error {
	if now <= p.lastUpdate {
		return nil
	}

	delta, err := fpmath.AccrueFlow(p.flowRatePerUnit, now-p.lastUpdate)
	if err != nil {
		return fmt.Errorf("settle pool %s: %w", p.ID, err)
	}
	carryDelta, err := fpmath.MulUnits(delta, p.totalDisconnectedUnits)
	if err != nil {
		return fmt.Errorf("settle pool %s carry: %w", p.ID, err)
	}
	settled, err := fpmath.AddChecked(p.settledValuePerUnit, delta)
	if err != nil {
		return fmt.Errorf("settle pool %s: %w", p.ID, err)
	}
	carry, err := fpmath.AddChecked(p.disconnectedCarry, carryDelta)
	if err != nil {
		return fmt.Errorf("settle pool %s carry: %w", p.ID, err)
	}

	p.settledValuePerUnit = settled
	p.disconnectedCarry = carry
	p.lastUpdate = now
	return nil
}

// claimableAt computes a member's real-time balance without mutating state.
func (p *Pool) claimableAt(m *Member, asOf int64) (int64, error) {
	projected := p.settledValuePerUnit
	if asOf > p.lastUpdate {
		accrual, err := fpmath.AccrueFlow(p.flowRatePerUnit, asOf-p.lastUpdate)
		if err != nil {
			return 0, err
		}
		projected, err = fpmath.AddChecked(projected, accrual)
		if err != nil {
			return 0, err
		}
	}

	deltaPerUnit, err := fpmath.SubChecked(projected, m.SyncedSettledValuePerUnit)
	if err != nil {
		return 0, err
	}
	owed, err := fpmath.MulUnits(deltaPerUnit, m.Units)
	if err != nil {
		return 0, err
	}
	return fpmath.AddChecked(m.SyncedBalance, owed)
}

// syncMember settles the pool, freezes the member's accrued balance into
// SyncedBalance, and re-anchors their sync point to the current accumulators.
// Must run before any change to the member's units or connection status.
func (p *Pool) syncMember(m *Member, now int64) error {
	if err := p.settle(now); err != nil {
		return err
	}

	balance, err := p.claimableAt(m, now)
	if err != nil {
		return fmt.Errorf("sync member %s: %w", m.Account, err)
	}

	if !m.Connected {
		// The delta moving into the member's synced balance is no longer
		// part of the aggregate carry.
		p.disconnectedCarry -= balance - m.SyncedBalance
	}

	m.SyncedBalance = balance
	m.SyncedSettledValuePerUnit = p.settledValuePerUnit
	m.SyncedFlowRatePerUnit = p.flowRatePerUnit
	return nil
}

// getOrCreateMember returns the member record, creating one anchored at the
// current accumulators. The pool must already be settled to now.
func (p *Pool) getOrCreateMember(account uuid.UUID) *Member {
	if m, ok := p.members[account]; ok {
		return m
	}
	m := &Member{
		Account:                   account,
		SyncedSettledValuePerUnit: p.settledValuePerUnit,
		SyncedFlowRatePerUnit:     p.flowRatePerUnit,
	}
	p.members[account] = m
	return m
}

// rebalanceFlow re-splits the pool's total requested flow rate across the
// current totalUnits. Called after every totalUnits change and every flow
// distribution so the adjustment remainder stays in [0, totalUnits).
// When totalUnits == 0 the entire requested rate routes to the adjustment
// recipient.
func (p *Pool) rebalanceFlow() error {
	perUnit, actual, err := fpmath.SplitFlowRate(p.totalRequestedFlowRate, p.totalUnits)
	if err != nil {
		return fmt.Errorf("rebalance pool %s: %w", p.ID, err)
	}
	p.flowRatePerUnit = perUnit
	p.adjustmentFlowRate = fpmath.AdjustmentFlowRate(p.totalRequestedFlowRate, actual)
	return nil
}

// UpdateMemberUnits settles the member, then moves totalUnits and the
// connected/disconnected partition by the delta, then re-splits the pool's
// flow across the new denominator. Settlement MUST precede the units change
// or historical accrual attribution is corrupted.
func (p *Pool) UpdateMemberUnits(account uuid.UUID, newUnits uint64, now int64) error {
	if err := p.settle(now); err != nil {
		return err
	}
	m := p.getOrCreateMember(account)
	if err := p.syncMember(m, now); err != nil {
		return err
	}

	oldUnits := m.Units
	p.totalUnits = p.totalUnits - oldUnits + newUnits
	if m.Connected {
		p.totalConnectedUnits = p.totalConnectedUnits - oldUnits + newUnits
	} else {
		p.totalDisconnectedUnits = p.totalDisconnectedUnits - oldUnits + newUnits
	}
	m.Units = newUnits

	return p.rebalanceFlow()
}

// AppendInstantDistribution advances settledValuePerUnit by the floor-split
// per-unit amount — a single O(1) update regardless of member count — and
// returns the actual amount for the caller to debit from the distributor.
// With totalUnits == 0 nothing is transferred; only the requested bookkeeping
// advances.
func (p *Pool) AppendInstantDistribution(distributor uuid.UUID, requested int64, now int64) (int64, error) {
	if err := p.settle(now); err != nil {
		return 0, err
	}

	perUnit, actual, err := fpmath.SplitAmount(requested, p.totalUnits)
	if err != nil {
		return 0, fmt.Errorf("instant distribution on pool %s: %w", p.ID, err)
	}

	newSettled, err := fpmath.AddChecked(p.settledValuePerUnit, perUnit)
	if err != nil {
		return 0, fmt.Errorf("instant distribution on pool %s: %w", p.ID, err)
	}
	carryDelta, err := fpmath.MulUnits(perUnit, p.totalDisconnectedUnits)
	if err != nil {
		return 0, fmt.Errorf("instant distribution on pool %s carry: %w", p.ID, err)
	}
	newCarry, err := fpmath.AddChecked(p.disconnectedCarry, carryDelta)
	if err != nil {
		return 0, fmt.Errorf("instant distribution on pool %s carry: %w", p.ID, err)
	}

	p.settledValuePerUnit = newSettled
	p.disconnectedCarry = newCarry
	p.totalInstantRequested += requested
	p.totalInstantActual += actual
	return actual, nil
}

// AppendFlowDistribution replaces the distributor's requested flow rate,
// settling the pool and the distributor's own record first, then re-splits
// the pool's total requested rate into the member-facing per-unit rate plus
// the adjustment remainder.
func (p *Pool) AppendFlowDistribution(distributor uuid.UUID, requested int64, now int64) (*FlowDistribution, error) {
	if requested < 0 {
		return nil, fpmath.ErrNegativeRate
	}
	if err := p.settle(now); err != nil {
		return nil, err
	}

	fr, ok := p.distributorFlows[distributor]
	if !ok {
		fr = &FlowRecord{LastUpdate: now}
	}

	accrued, err := fpmath.AccrueFlow(fr.FlowRate, now-fr.LastUpdate)
	if err != nil {
		return nil, fmt.Errorf("settle distributor %s on pool %s: %w", distributor, p.ID, err)
	}

	newTotal, err := fpmath.AddChecked(p.totalRequestedFlowRate-fr.FlowRate, requested)
	if err != nil {
		return nil, fmt.Errorf("flow distribution on pool %s: %w", p.ID, err)
	}

	// This distributor's floor-split is the caller-visible actual rate;
	// the pool-level per-unit rate splits the aggregate of all distributors.
	_, actual, err := fpmath.SplitFlowRate(requested, p.totalUnits)
	if err != nil {
		return nil, fmt.Errorf("flow distribution on pool %s: %w", p.ID, err)
	}

	p.distributorFlows[distributor] = fr
	fr.SettledAmount += accrued
	fr.LastUpdate = now
	fr.FlowRate = requested
	p.totalRequestedFlowRate = newTotal

	if err := p.rebalanceFlow(); err != nil {
		return nil, err
	}

	return &FlowDistribution{
		ActualFlowRate:     actual,
		AdjustmentFlowRate: p.adjustmentFlowRate,
		SettledAccrual:     accrued,
	}, nil
}

// SettleDistributors settles every distributor flow record to now and returns
// the newly streamed value per distributor, sorted by account for
// deterministic journal generation.
func (p *Pool) SettleDistributors(now int64) ([]DistributorAccrual, error) {
	if err := p.settle(now); err != nil {
		return nil, err
	}

	accruals := make([]DistributorAccrual, 0, len(p.distributorFlows))
	for account, fr := range p.distributorFlows {
		accrued, err := fpmath.AccrueFlow(fr.FlowRate, now-fr.LastUpdate)
		if err != nil {
			return nil, fmt.Errorf("settle distributor %s on pool %s: %w", account, p.ID, err)
		}
		fr.SettledAmount += accrued
		fr.LastUpdate = now
		if accrued != 0 {
			accruals = append(accruals, DistributorAccrual{Account: account, Amount: accrued})
		}
	}

	sort.Slice(accruals, func(i, j int) bool {
		for k := 0; k < 16; k++ {
			if accruals[i].Account[k] != accruals[j].Account[k] {
				return accruals[i].Account[k] < accruals[j].Account[k]
			}
		}
		return false
	})
	return accruals, nil
}

// ClaimableBalance is a pure read of a member's real-time balance as of the
// given time. Unknown members have a zero balance.
func (p *Pool) ClaimableBalance(account uuid.UUID, asOf int64) (int64, error) {
	m, ok := p.members[account]
	if !ok {
		return 0, nil
	}
	return p.claimableAt(m, asOf)
}

// ClaimAll settles the member and returns their full accrued balance, zeroing
// the synced balance. The caller realizes the transfer in the token ledger.
func (p *Pool) ClaimAll(account uuid.UUID, now int64) (int64, error) {
	m, ok := p.members[account]
	if !ok {
		return 0, nil
	}
	if err := p.syncMember(m, now); err != nil {
		return 0, err
	}
	amount := m.SyncedBalance
	m.SyncedBalance = 0
	return amount, nil
}

// ConnectMember settles the member and moves their units into the connected
// partition. Connecting an already-connected member is a no-op.
func (p *Pool) ConnectMember(account uuid.UUID, now int64) error {
	if err := p.settle(now); err != nil {
		return err
	}
	m := p.getOrCreateMember(account)
	if m.Connected {
		return nil
	}
	if err := p.syncMember(m, now); err != nil {
		return err
	}
	p.totalDisconnectedUnits -= m.Units
	p.totalConnectedUnits += m.Units
	m.Connected = true
	return nil
}

// DisconnectMember is the inverse of ConnectMember. Balances keep accruing
// identically afterwards; only the delivery mode changes.
func (p *Pool) DisconnectMember(account uuid.UUID, now int64) error {
	if err := p.settle(now); err != nil {
		return err
	}
	m := p.getOrCreateMember(account)
	if !m.Connected {
		return nil
	}
	if err := p.syncMember(m, now); err != nil {
		return err
	}
	p.totalConnectedUnits -= m.Units
	p.totalDisconnectedUnits += m.Units
	m.Connected = false
	return nil
}

// CheckUnitPartition verifies the structural invariants:
// totalConnectedUnits + totalDisconnectedUnits == totalUnits == Σ member units.
func (p *Pool) CheckUnitPartition() error {
	if p.totalConnectedUnits+p.totalDisconnectedUnits != p.totalUnits {
		return fmt.Errorf("pool %s unit partition mismatch: connected=%d disconnected=%d total=%d",
			p.ID, p.totalConnectedUnits, p.totalDisconnectedUnits, p.totalUnits)
	}
	var sum uint64
	for _, m := range p.members {
		sum += m.Units
	}
	if sum != p.totalUnits {
		return fmt.Errorf("pool %s member units sum mismatch: sum=%d total=%d", p.ID, sum, p.totalUnits)
	}
	return nil
}

// --- Read-only accessors ---

func (p *Pool) TotalUnits() uint64              { return p.totalUnits }
func (p *Pool) ConnectedUnits() uint64          { return p.totalConnectedUnits }
func (p *Pool) DisconnectedUnits() uint64       { return p.totalDisconnectedUnits }
func (p *Pool) SettledValuePerUnit() int64      { return p.settledValuePerUnit }
func (p *Pool) FlowRatePerUnit() int64          { return p.flowRatePerUnit }
func (p *Pool) LastUpdate() int64               { return p.lastUpdate }
func (p *Pool) TotalRequestedFlowRate() int64   { return p.totalRequestedFlowRate }
func (p *Pool) DisconnectedBalanceCarry() int64 { return p.disconnectedCarry }
func (p *Pool) TotalInstantRequested() int64    { return p.totalInstantRequested }

// AdjustmentFlow returns the adjustment flow recipient and current rate.
func (p *Pool) AdjustmentFlow() (uuid.UUID, int64) {
	return p.adjustmentRecipient, p.adjustmentFlowRate
}

// MemberUnits returns a member's units (zero for unknown members).
func (p *Pool) MemberUnits(account uuid.UUID) uint64 {
	if m, ok := p.members[account]; ok {
		return m.Units
	}
	return 0
}

// IsMemberConnected reports whether the account is a connected member.
func (p *Pool) IsMemberConnected(account uuid.UUID) bool {
	if m, ok := p.members[account]; ok {
		return m.Connected
	}
	return false
}

// MemberFlowRate returns the member's current inflow rate from this pool
// (units * per-unit rate), regardless of connection status.
func (p *Pool) MemberFlowRate(account uuid.UUID) (int64, error) {
	m, ok := p.members[account]
	if !ok {
		return 0, nil
	}
	return fpmath.MulUnits(p.flowRatePerUnit, m.Units)
}

// DistributorFlowRate returns the distributor's current requested rate into
// this pool (zero if they have no flow record).
func (p *Pool) DistributorFlowRate(account uuid.UUID) int64 {
	if fr, ok := p.distributorFlows[account]; ok {
		return fr.FlowRate
	}
	return 0
}

// DistributorUnsettledAccrual returns the value the distributor's flow has
// streamed into this pool since its record last settled. The record is not
// touched; a later settlement journals the same amount.
func (p *Pool) DistributorUnsettledAccrual(account uuid.UUID, now int64) (int64, error) {
	fr, ok := p.distributorFlows[account]
	if !ok {
		return 0, nil
	}
	return fpmath.AccrueFlow(fr.FlowRate, now-fr.LastUpdate)
}

// HasDistributorFlow reports whether the distributor has an active (non-zero)
// flow into this pool.
func (p *Pool) HasDistributorFlow(account uuid.UUID) bool {
	fr, ok := p.distributorFlows[account]
	return ok && fr.FlowRate != 0
}
