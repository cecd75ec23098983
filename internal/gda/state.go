package gda

import (
	"bytes"
	"fmt"
	"sort"

	"FlowLedger/internal/pool"

	"github.com/google/uuid"
)

// State captures every pool, sorted by pool ID for deterministic snapshots
// and state digests.
func (a *Adjudicator) State() []pool.PoolState {
	states := make([]pool.PoolState, 0, len(a.pools))
	for _, p := range a.pools {
		states = append(states, p.State())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// Restore replaces the adjudicator's pools from a snapshot and rebuilds the
// account indexes from pool contents.
func (a *Adjudicator) Restore(states []pool.PoolState) error {
	pools := make(map[uuid.UUID]*pool.Pool, len(states))
	for _, st := range states {
		p, err := pool.FromState(st)
		if err != nil {
			return fmt.Errorf("restore adjudicator: %w", err)
		}
		if _, dup := pools[p.ID]; dup {
			return fmt.Errorf("restore adjudicator: duplicate pool %s", p.ID)
		}
		pools[p.ID] = p
	}

	a.pools = pools
	a.poolsByToken = make(map[string]map[uuid.UUID]struct{})
	a.distributorPools = make(map[uuid.UUID]map[uuid.UUID]struct{})
	a.memberPools = make(map[uuid.UUID]map[uuid.UUID]struct{})
	a.adjustmentPools = make(map[uuid.UUID]map[uuid.UUID]struct{})

	for _, st := range states {
		p := pools[uuid.MustParse(st.ID)]

		if _, ok := a.poolsByToken[p.Token]; !ok {
			a.poolsByToken[p.Token] = make(map[uuid.UUID]struct{})
		}
		a.poolsByToken[p.Token][p.ID] = struct{}{}

		recipient, _ := p.AdjustmentFlow()
		addIndex(a.adjustmentPools, recipient, p.ID)

		for _, ms := range st.Members {
			if ms.Units == 0 && !ms.Connected {
				continue
			}
			account, err := uuid.Parse(ms.Account)
			if err != nil {
				return fmt.Errorf("restore adjudicator member: %w", err)
			}
			addIndex(a.memberPools, account, p.ID)
		}

		for _, fs := range st.DistributorFlows {
			if fs.FlowRate == 0 {
				continue
			}
			account, err := uuid.Parse(fs.Account)
			if err != nil {
				return fmt.Errorf("restore adjudicator distributor: %w", err)
			}
			addIndex(a.distributorPools, account, p.ID)
		}
	}

	return nil
}

// PoolIDs lists registered pool IDs in deterministic byte order.
func (a *Adjudicator) PoolIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(a.pools))
	for id := range a.pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}
