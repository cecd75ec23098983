package gda

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	fpmath "FlowLedger/internal/math"
	"FlowLedger/internal/pool"

	"github.com/google/uuid"
)

// Adjudicator arbitrates all distribution operations across pools. It owns
// pool registration, permission and solvency validation, and the account
// indexes needed to answer net-flow queries without scanning every pool.
//
// The adjudicator never reads the wall clock and never moves token value:
// every operation receives `now` from the caller's versioned event timestamp
// and returns settled amounts for the caller to journal.
type Adjudicator struct {
	ledger      TokenLedger
	permissions PermissionHost

	// bufferSeconds is the solvency horizon: a new flow rate is accepted
	// only if the distributor's balance covers the projected net drain for
	// this long.
	bufferSeconds int64

	pools        map[uuid.UUID]*pool.Pool
	poolsByToken map[string]map[uuid.UUID]struct{}

	// Per-account reverse indexes. A net-flow query touches only the pools
	// an account actually participates in.
	distributorPools map[uuid.UUID]map[uuid.UUID]struct{}
	memberPools      map[uuid.UUID]map[uuid.UUID]struct{}
	adjustmentPools  map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewAdjudicator(ledger TokenLedger, permissions PermissionHost, bufferSeconds int64) *Adjudicator {
	return &Adjudicator{
		ledger:           ledger,
		permissions:      permissions,
		bufferSeconds:    bufferSeconds,
		pools:            make(map[uuid.UUID]*pool.Pool),
		poolsByToken:     make(map[string]map[uuid.UUID]struct{}),
		distributorPools: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		memberPools:      make(map[uuid.UUID]map[uuid.UUID]struct{}),
		adjustmentPools:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// FlowLiquidation records one distributor flow zeroed by a liquidation sweep.
type FlowLiquidation struct {
	PoolID             uuid.UUID
	Token              string
	PreviousFlowRate   int64
	SettledAccrual     int64
	AdjustmentFlowRate int64
}

func addIndex(idx map[uuid.UUID]map[uuid.UUID]struct{}, account, poolID uuid.UUID) {
	set, ok := idx[account]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		idx[account] = set
	}
	set[poolID] = struct{}{}
}

func removeIndex(idx map[uuid.UUID]map[uuid.UUID]struct{}, account, poolID uuid.UUID) {
	if set, ok := idx[account]; ok {
		delete(set, poolID)
		if len(set) == 0 {
			delete(idx, account)
		}
	}
}

// poolFor resolves a pool registered against the token.
func (a *Adjudicator) poolFor(token string, poolID uuid.UUID) (*pool.Pool, error) {
	p, ok := a.pools[poolID]
	if !ok || p.Token != token {
		return nil, fmt.Errorf("pool %s for token %s: %w", poolID, token, ErrNotPool)
	}
	return p, nil
}

// mapMathErr translates arithmetic sentinels into the adjudicator's taxonomy.
func mapMathErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fpmath.ErrOverflow):
		return fmt.Errorf("%w: %s", ErrArithmeticOverflow, err)
	case errors.Is(err, fpmath.ErrNegativeRate):
		return fmt.Errorf("%w: %s", ErrNoNegativeFlowRate, err)
	default:
		return err
	}
}

// CreatePool allocates and registers a fresh distribution pool. The pool ID
// arrives from the triggering event so replay rebuilds identical state.
func (a *Adjudicator) CreatePool(poolID uuid.UUID, token string, admin uuid.UUID, now int64) (*pool.Pool, error) {
	if _, ok := a.pools[poolID]; ok {
		return nil, fmt.Errorf("pool %s already exists", poolID)
	}

	p := pool.New(poolID, token, admin, now)
	a.pools[poolID] = p
	if _, ok := a.poolsByToken[token]; !ok {
		a.poolsByToken[token] = make(map[uuid.UUID]struct{})
	}
	a.poolsByToken[token][poolID] = struct{}{}

	recipient, _ := p.AdjustmentFlow()
	addIndex(a.adjustmentPools, recipient, poolID)
	return p, nil
}

// Distribute pushes an instant distribution into a pool. The actual amount is
// computed speculatively first so the balance check rejects before any
// accumulator moves.
func (a *Adjudicator) Distribute(token string, operator, from uuid.UUID, poolID uuid.UUID, requested int64, now int64) (int64, error) {
	p, err := a.poolFor(token, poolID)
	if err != nil {
		return 0, err
	}
	if operator != from && !a.permissions.HasDistributePermission(operator, from, poolID) {
		return 0, ErrDistributeForOthersNotAllowed
	}

	_, actual, err := fpmath.SplitAmount(requested, p.TotalUnits())
	if err != nil {
		return 0, mapMathErr(err)
	}
	if actual > 0 {
		available, err := a.realTimeBalance(token, from, now)
		if err != nil {
			return 0, err
		}
		if available < actual {
			return 0, fmt.Errorf("distribute %d from %s: %w", actual, from, ErrInsufficientBalance)
		}
	}

	applied, err := p.AppendInstantDistribution(from, requested, now)
	if err != nil {
		return 0, mapMathErr(err)
	}
	return applied, nil
}

// DistributeFlow replaces the distributor's flow rate into a pool. The
// distributor's committed outflow equals the requested rate exactly; the
// floor-division remainder becomes the pool's adjustment flow.
func (a *Adjudicator) DistributeFlow(token string, operator, from uuid.UUID, poolID uuid.UUID, requested int64, now int64) (*pool.FlowDistribution, error) {
	if requested < 0 {
		return nil, ErrNoNegativeFlowRate
	}
	p, err := a.poolFor(token, poolID)
	if err != nil {
		return nil, err
	}
	if operator != from && !a.permissions.HasDistributePermission(operator, from, poolID) {
		return nil, ErrDistributeForOthersNotAllowed
	}

	oldRate := p.DistributorFlowRate(from)
	if requested > oldRate {
		if err := a.checkFlowSolvency(token, from, oldRate, requested); err != nil {
			return nil, err
		}
	}

	fd, err := p.AppendFlowDistribution(from, requested, now)
	if err != nil {
		return nil, mapMathErr(err)
	}

	if requested > 0 {
		addIndex(a.distributorPools, from, poolID)
	} else {
		removeIndex(a.distributorPools, from, poolID)
	}
	return fd, nil
}

// realTimeBalance is the distributor's settled ledger balance minus the value
// their open flows have streamed since each record last settled. The settled
// balance alone overstates what is spendable: streamed value belongs to the
// pools and is journaled at the next settlement.
func (a *Adjudicator) realTimeBalance(token string, account uuid.UUID, now int64) (int64, error) {
	balance := a.ledger.BalanceOf(token, account)
	for id := range a.distributorPools[account] {
		p := a.pools[id]
		if p.Token != token {
			continue
		}
		accrued, err := p.DistributorUnsettledAccrual(account, now)
		if err != nil {
			return 0, mapMathErr(err)
		}
		balance, err = fpmath.SubChecked(balance, accrued)
		if err != nil {
			return 0, mapMathErr(err)
		}
	}
	return balance, nil
}

// checkFlowSolvency projects the distributor's balance over the buffer
// horizon under the prospective net flow rate.
func (a *Adjudicator) checkFlowSolvency(token string, from uuid.UUID, oldRate, newRate int64) error {
	if a.ledger.IsCriticalOrInsolvent(token, from) {
		return fmt.Errorf("account %s is critical for %s: %w", from, token, ErrInsufficientBalance)
	}

	net, err := a.NetFlowRate(token, from)
	if err != nil {
		return err
	}
	withOld, err := fpmath.AddChecked(net, oldRate)
	if err != nil {
		return mapMathErr(err)
	}
	prospective, err := fpmath.SubChecked(withOld, newRate)
	if err != nil {
		return mapMathErr(err)
	}
	if prospective >= 0 {
		return nil
	}

	drain, err := fpmath.AccrueFlow(-prospective, a.bufferSeconds)
	if err != nil {
		return mapMathErr(err)
	}
	if a.ledger.BalanceOf(token, from) < drain {
		return fmt.Errorf("net drain %d over %ds buffer exceeds balance of %s: %w",
			drain, a.bufferSeconds, from, ErrInsufficientBalance)
	}
	return nil
}

// ConnectPool connects the caller as a member of the pool.
func (a *Adjudicator) ConnectPool(member uuid.UUID, poolID uuid.UUID, now int64) error {
	p, ok := a.pools[poolID]
	if !ok {
		return fmt.Errorf("pool %s: %w", poolID, ErrNotPool)
	}
	if err := p.ConnectMember(member, now); err != nil {
		return mapMathErr(err)
	}
	addIndex(a.memberPools, member, poolID)
	return nil
}

// DisconnectPool disconnects the caller from the pool. Their balance keeps
// accruing; only delivery switches to claim-required.
func (a *Adjudicator) DisconnectPool(member uuid.UUID, poolID uuid.UUID, now int64) error {
	p, ok := a.pools[poolID]
	if !ok {
		return fmt.Errorf("pool %s: %w", poolID, ErrNotPool)
	}
	if err := p.DisconnectMember(member, now); err != nil {
		return mapMathErr(err)
	}
	if p.MemberUnits(member) == 0 {
		removeIndex(a.memberPools, member, poolID)
	}
	return nil
}

// UpdateMemberUnits changes a member's share weight. Admin-only.
func (a *Adjudicator) UpdateMemberUnits(operator uuid.UUID, poolID uuid.UUID, member uuid.UUID, newUnits uint64, now int64) error {
	p, ok := a.pools[poolID]
	if !ok {
		return fmt.Errorf("pool %s: %w", poolID, ErrNotPool)
	}
	if operator != p.Admin {
		return fmt.Errorf("operator %s on pool %s: %w", operator, poolID, ErrPoolAdminOnly)
	}
	if err := p.UpdateMemberUnits(member, newUnits, now); err != nil {
		return mapMathErr(err)
	}

	if newUnits > 0 {
		addIndex(a.memberPools, member, poolID)
	} else if !p.IsMemberConnected(member) {
		removeIndex(a.memberPools, member, poolID)
	}
	return nil
}

// ClaimAll settles and returns a member's full accrued balance. Distributor
// flows are settled first so the returned accruals fund the pool buffer the
// claim draws from; the caller journals both in order.
func (a *Adjudicator) ClaimAll(member uuid.UUID, poolID uuid.UUID, now int64) (int64, []pool.DistributorAccrual, error) {
	p, ok := a.pools[poolID]
	if !ok {
		return 0, nil, fmt.Errorf("pool %s: %w", poolID, ErrNotPool)
	}

	accruals, err := p.SettleDistributors(now)
	if err != nil {
		return 0, nil, mapMathErr(err)
	}
	amount, err := p.ClaimAll(member, now)
	if err != nil {
		return 0, nil, mapMathErr(err)
	}
	return amount, accruals, nil
}

// ZeroOutFlows zeroes every flow the distributor has open, in one atomic
// sweep ordered by pool ID. Accrual up to now is settled first, so nothing
// streamed before liquidation is lost. Calling it again is a no-op.
func (a *Adjudicator) ZeroOutFlows(distributor uuid.UUID, now int64) ([]FlowLiquidation, error) {
	set := a.distributorPools[distributor]
	if len(set) == 0 {
		return nil, nil
	}

	poolIDs := make([]uuid.UUID, 0, len(set))
	for id := range set {
		poolIDs = append(poolIDs, id)
	}
	sort.Slice(poolIDs, func(i, j int) bool {
		return bytes.Compare(poolIDs[i][:], poolIDs[j][:]) < 0
	})

	liquidations := make([]FlowLiquidation, 0, len(poolIDs))
	for _, id := range poolIDs {
		p := a.pools[id]
		prev := p.DistributorFlowRate(distributor)
		fd, err := p.AppendFlowDistribution(distributor, 0, now)
		if err != nil {
			return nil, mapMathErr(err)
		}
		removeIndex(a.distributorPools, distributor, id)
		liquidations = append(liquidations, FlowLiquidation{
			PoolID:             id,
			Token:              p.Token,
			PreviousFlowRate:   prev,
			SettledAccrual:     fd.SettledAccrual,
			AdjustmentFlowRate: fd.AdjustmentFlowRate,
		})
	}
	return liquidations, nil
}

// Pool returns a registered pool regardless of token.
func (a *Adjudicator) Pool(poolID uuid.UUID) (*pool.Pool, bool) {
	p, ok := a.pools[poolID]
	return p, ok
}
