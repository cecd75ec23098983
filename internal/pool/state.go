package pool

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// PoolState is the serializable form of a Pool, used by snapshots and the
// state digest. Members and flows are sorted by account for determinism.
type PoolState struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Admin string `json:"admin"`

	TotalUnits             uint64 `json:"total_units"`
	TotalConnectedUnits    uint64 `json:"total_connected_units"`
	TotalDisconnectedUnits uint64 `json:"total_disconnected_units"`

	SettledValuePerUnit int64 `json:"settled_value_per_unit"`
	FlowRatePerUnit     int64 `json:"flow_rate_per_unit"`
	LastUpdate          int64 `json:"last_update"`

	TotalRequestedFlowRate int64  `json:"total_requested_flow_rate"`
	AdjustmentRecipient    string `json:"adjustment_recipient"`
	AdjustmentFlowRate     int64  `json:"adjustment_flow_rate"`

	DisconnectedCarry     int64 `json:"disconnected_carry"`
	TotalInstantRequested int64 `json:"total_instant_requested"`
	TotalInstantActual    int64 `json:"total_instant_actual"`

	Members          []MemberState     `json:"members"`
	DistributorFlows []FlowRecordState `json:"distributor_flows"`
}

// FlowRecordState is the serializable form of a distributor flow record.
type FlowRecordState struct {
	Account       string `json:"account"`
	FlowRate      int64  `json:"flow_rate"`
	SettledAmount int64  `json:"settled_amount"`
	LastUpdate    int64  `json:"last_update"`
}

// State captures the pool's full state.
func (p *Pool) State() PoolState {
	st := PoolState{
		ID:                     p.ID.String(),
		Token:                  p.Token,
		Admin:                  p.Admin.String(),
		TotalUnits:             p.totalUnits,
		TotalConnectedUnits:    p.totalConnectedUnits,
		TotalDisconnectedUnits: p.totalDisconnectedUnits,
		SettledValuePerUnit:    p.settledValuePerUnit,
		FlowRatePerUnit:        p.flowRatePerUnit,
		LastUpdate:             p.lastUpdate,
		TotalRequestedFlowRate: p.totalRequestedFlowRate,
		AdjustmentRecipient:    p.adjustmentRecipient.String(),
		AdjustmentFlowRate:     p.adjustmentFlowRate,
		DisconnectedCarry:      p.disconnectedCarry,
		TotalInstantRequested:  p.totalInstantRequested,
		TotalInstantActual:     p.totalInstantActual,
	}

	for _, m := range p.members {
		st.Members = append(st.Members, m.state())
	}
	sort.Slice(st.Members, func(i, j int) bool { return st.Members[i].Account < st.Members[j].Account })

	for account, fr := range p.distributorFlows {
		st.DistributorFlows = append(st.DistributorFlows, FlowRecordState{
			Account:       account.String(),
			FlowRate:      fr.FlowRate,
			SettledAmount: fr.SettledAmount,
			LastUpdate:    fr.LastUpdate,
		})
	}
	sort.Slice(st.DistributorFlows, func(i, j int) bool {
		return st.DistributorFlows[i].Account < st.DistributorFlows[j].Account
	})

	return st
}

// FromState reconstructs a Pool from a snapshot.
func FromState(st PoolState) (*Pool, error) {
	id, err := uuid.Parse(st.ID)
	if err != nil {
		return nil, fmt.Errorf("restore pool id: %w", err)
	}
	admin, err := uuid.Parse(st.Admin)
	if err != nil {
		return nil, fmt.Errorf("restore pool admin: %w", err)
	}
	recipient, err := uuid.Parse(st.AdjustmentRecipient)
	if err != nil {
		return nil, fmt.Errorf("restore adjustment recipient: %w", err)
	}

	p := New(id, st.Token, admin, st.LastUpdate)
	p.totalUnits = st.TotalUnits
	p.totalConnectedUnits = st.TotalConnectedUnits
	p.totalDisconnectedUnits = st.TotalDisconnectedUnits
	p.settledValuePerUnit = st.SettledValuePerUnit
	p.flowRatePerUnit = st.FlowRatePerUnit
	p.totalRequestedFlowRate = st.TotalRequestedFlowRate
	p.adjustmentRecipient = recipient
	p.adjustmentFlowRate = st.AdjustmentFlowRate
	p.disconnectedCarry = st.DisconnectedCarry
	p.totalInstantRequested = st.TotalInstantRequested
	p.totalInstantActual = st.TotalInstantActual

	for _, ms := range st.Members {
		account, err := uuid.Parse(ms.Account)
		if err != nil {
			return nil, fmt.Errorf("restore member account: %w", err)
		}
		p.members[account] = &Member{
			Account:                   account,
			Units:                     ms.Units,
			SyncedSettledValuePerUnit: ms.SyncedSettledValuePerUnit,
			SyncedFlowRatePerUnit:     ms.SyncedFlowRatePerUnit,
			SyncedBalance:             ms.SyncedBalance,
			Connected:                 ms.Connected,
		}
	}

	for _, fs := range st.DistributorFlows {
		account, err := uuid.Parse(fs.Account)
		if err != nil {
			return nil, fmt.Errorf("restore distributor account: %w", err)
		}
		p.distributorFlows[account] = &FlowRecord{
			FlowRate:      fs.FlowRate,
			SettledAmount: fs.SettledAmount,
			LastUpdate:    fs.LastUpdate,
		}
	}

	return p, nil
}
