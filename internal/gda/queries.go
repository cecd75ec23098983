package gda

import (
	fpmath "FlowLedger/internal/math"

	"github.com/google/uuid"
)

// NetFlowRate sums the account's flow components for one token: inflows as a
// connected pool member, inflows as an adjustment recipient, and outflows as
// a distributor. Used by the solvency check and the external liquidation
// monitor.
func (a *Adjudicator) NetFlowRate(token string, account uuid.UUID) (int64, error) {
	var net int64
	var err error

	for poolID := range a.memberPools[account] {
		p := a.pools[poolID]
		if p.Token != token || !p.IsMemberConnected(account) {
			continue
		}
		rate, rerr := p.MemberFlowRate(account)
		if rerr != nil {
			return 0, mapMathErr(rerr)
		}
		net, err = fpmath.AddChecked(net, rate)
		if err != nil {
			return 0, mapMathErr(err)
		}
	}

	for poolID := range a.adjustmentPools[account] {
		p := a.pools[poolID]
		if p.Token != token {
			continue
		}
		_, rate := p.AdjustmentFlow()
		net, err = fpmath.AddChecked(net, rate)
		if err != nil {
			return 0, mapMathErr(err)
		}
	}

	for poolID := range a.distributorPools[account] {
		p := a.pools[poolID]
		if p.Token != token {
			continue
		}
		net, err = fpmath.SubChecked(net, p.DistributorFlowRate(account))
		if err != nil {
			return 0, mapMathErr(err)
		}
	}

	return net, nil
}

// FlowRate returns the distributor's requested rate into a pool, zero when
// either the pool or the flow does not exist.
func (a *Adjudicator) FlowRate(from uuid.UUID, poolID uuid.UUID) int64 {
	p, ok := a.pools[poolID]
	if !ok {
		return 0
	}
	return p.DistributorFlowRate(from)
}

// EstimateFlowDistributionActualFlowRate previews the actual rate a flow
// distribution would commit, using the same split the mutating path uses.
func (a *Adjudicator) EstimateFlowDistributionActualFlowRate(token string, poolID uuid.UUID, requested int64) (int64, error) {
	p, err := a.poolFor(token, poolID)
	if err != nil {
		return 0, err
	}
	_, actual, err := fpmath.SplitFlowRate(requested, p.TotalUnits())
	if err != nil {
		return 0, mapMathErr(err)
	}
	return actual, nil
}

// EstimateDistributionActualAmount previews the actual amount an instant
// distribution would move, using the same split the mutating path uses.
func (a *Adjudicator) EstimateDistributionActualAmount(token string, poolID uuid.UUID, requested int64) (int64, error) {
	p, err := a.poolFor(token, poolID)
	if err != nil {
		return 0, err
	}
	_, actual, err := fpmath.SplitAmount(requested, p.TotalUnits())
	if err != nil {
		return 0, mapMathErr(err)
	}
	return actual, nil
}

// PoolAdjustmentFlowRate returns the pool's current adjustment flow rate,
// zero for unknown pools.
func (a *Adjudicator) PoolAdjustmentFlowRate(poolID uuid.UUID) int64 {
	p, ok := a.pools[poolID]
	if !ok {
		return 0
	}
	_, rate := p.AdjustmentFlow()
	return rate
}

// PoolAdjustmentFlowInfo returns the adjustment flow recipient and rate.
func (a *Adjudicator) PoolAdjustmentFlowInfo(poolID uuid.UUID) (recipient uuid.UUID, rate int64, ok bool) {
	p, found := a.pools[poolID]
	if !found {
		return uuid.Nil, 0, false
	}
	recipient, rate = p.AdjustmentFlow()
	return recipient, rate, true
}

// IsPool reports whether the ID is a registered pool for the token.
func (a *Adjudicator) IsPool(token string, poolID uuid.UUID) bool {
	p, ok := a.pools[poolID]
	return ok && p.Token == token
}

// IsMemberConnected reports a member's connection status on a pool.
func (a *Adjudicator) IsMemberConnected(poolID uuid.UUID, member uuid.UUID) bool {
	p, ok := a.pools[poolID]
	if !ok {
		return false
	}
	return p.IsMemberConnected(member)
}

// ClaimableBalance is a pure read of a member's real-time balance.
func (a *Adjudicator) ClaimableBalance(poolID uuid.UUID, member uuid.UUID, asOf int64) (int64, error) {
	p, ok := a.pools[poolID]
	if !ok {
		return 0, nil
	}
	balance, err := p.ClaimableBalance(member, asOf)
	if err != nil {
		return 0, mapMathErr(err)
	}
	return balance, nil
}
