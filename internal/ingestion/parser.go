package ingestion

import (
	"FlowLedger/internal/event"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type string) into a
// typed event.Event. The ingestion shell validates, parses, and converts raw
// events before sending to the deterministic core.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "PoolCreate":
		return parsePoolCreate(raw.Data)
	case "MemberUnitsUpdate":
		return parseMemberUnitsUpdate(raw.Data)
	case "InstantDistribute":
		return parseInstantDistribute(raw.Data)
	case "FlowDistribute":
		return parseFlowDistribute(raw.Data)
	case "PoolConnect":
		return parsePoolConnect(raw.Data)
	case "PoolDisconnect":
		return parsePoolDisconnect(raw.Data)
	case "Claim":
		return parseClaim(raw.Data)
	case "Deposit":
		return parseDeposit(raw.Data)
	case "Withdrawal":
		return parseWithdrawal(raw.Data)
	case "SolvencyStatusUpdate":
		return parseSolvencyStatusUpdate(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers; timestamps are
// unix seconds.

type poolCreateJSON struct {
	OpID      string `json:"op_id"`
	Pool      string `json:"pool"`
	Token     string `json:"token"`
	Admin     string `json:"admin"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parsePoolCreate(data []byte) (*event.PoolCreate, error) {
	var j poolCreateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PoolCreate: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	poolID, err := uuid.Parse(j.Pool)
	if err != nil {
		return nil, fmt.Errorf("parse pool: %w", err)
	}
	admin, err := uuid.Parse(j.Admin)
	if err != nil {
		return nil, fmt.Errorf("parse admin: %w", err)
	}
	return &event.PoolCreate{
		OpID:      opID,
		Pool:      poolID,
		Token:     j.Token,
		Admin:     admin,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

type memberUnitsUpdateJSON struct {
	OpID      string `json:"op_id"`
	Pool      string `json:"pool"`
	Operator  string `json:"operator"`
	Member    string `json:"member"`
	NewUnits  uint64 `json:"new_units"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseMemberUnitsUpdate(data []byte) (*event.MemberUnitsUpdate, error) {
	var j memberUnitsUpdateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse MemberUnitsUpdate: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	poolID, err := uuid.Parse(j.Pool)
	if err != nil {
		return nil, fmt.Errorf("parse pool: %w", err)
	}
	operator, err := uuid.Parse(j.Operator)
	if err != nil {
		return nil, fmt.Errorf("parse operator: %w", err)
	}
	member, err := uuid.Parse(j.Member)
	if err != nil {
		return nil, fmt.Errorf("parse member: %w", err)
	}
	return &event.MemberUnitsUpdate{
		OpID:      opID,
		Pool:      poolID,
		Operator:  operator,
		Member:    member,
		NewUnits:  j.NewUnits,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

type instantDistributeJSON struct {
	OpID            string `json:"op_id"`
	Pool            string `json:"pool"`
	Token           string `json:"token"`
	Operator        string `json:"operator"`
	From            string `json:"from"`
	RequestedAmount int64  `json:"requested_amount"`
	Sequence        int64  `json:"sequence"`
	Timestamp       int64  `json:"timestamp"`
}

func parseInstantDistribute(data []byte) (*event.InstantDistribute, error) {
	var j instantDistributeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse InstantDistribute: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	poolID, err := uuid.Parse(j.Pool)
	if err != nil {
		return nil, fmt.Errorf("parse pool: %w", err)
	}
	operator, err := uuid.Parse(j.Operator)
	if err != nil {
		return nil, fmt.Errorf("parse operator: %w", err)
	}
	from, err := uuid.Parse(j.From)
	if err != nil {
		return nil, fmt.Errorf("parse from: %w", err)
	}
	return &event.InstantDistribute{
		OpID:            opID,
		Pool:            poolID,
		Token:           j.Token,
		Operator:        operator,
		From:            from,
		RequestedAmount: j.RequestedAmount,
		Sequence:        j.Sequence,
		Timestamp:       j.Timestamp,
	}, nil
}

type flowDistributeJSON struct {
	OpID              string `json:"op_id"`
	Pool              string `json:"pool"`
	Token             string `json:"token"`
	Operator          string `json:"operator"`
	From              string `json:"from"`
	RequestedFlowRate int64  `json:"requested_flow_rate"`
	Sequence          int64  `json:"sequence"`
	Timestamp         int64  `json:"timestamp"`
}

func parseFlowDistribute(data []byte) (*event.FlowDistribute, error) {
	var j flowDistributeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse FlowDistribute: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	poolID, err := uuid.Parse(j.Pool)
	if err != nil {
		return nil, fmt.Errorf("parse pool: %w", err)
	}
	operator, err := uuid.Parse(j.Operator)
	if err != nil {
		return nil, fmt.Errorf("parse operator: %w", err)
	}
	from, err := uuid.Parse(j.From)
	if err != nil {
		return nil, fmt.Errorf("parse from: %w", err)
	}
	return &event.FlowDistribute{
		OpID:              opID,
		Pool:              poolID,
		Token:             j.Token,
		Operator:          operator,
		From:              from,
		RequestedFlowRate: j.RequestedFlowRate,
		Sequence:          j.Sequence,
		Timestamp:         j.Timestamp,
	}, nil
}

type memberOpJSON struct {
	OpID      string `json:"op_id"`
	Pool      string `json:"pool"`
	Member    string `json:"member"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func (j *memberOpJSON) ids() (opID, poolID, member uuid.UUID, err error) {
	opID, err = uuid.Parse(j.OpID)
	if err != nil {
		return opID, poolID, member, fmt.Errorf("parse op_id: %w", err)
	}
	poolID, err = uuid.Parse(j.Pool)
	if err != nil {
		return opID, poolID, member, fmt.Errorf("parse pool: %w", err)
	}
	member, err = uuid.Parse(j.Member)
	if err != nil {
		return opID, poolID, member, fmt.Errorf("parse member: %w", err)
	}
	return opID, poolID, member, nil
}

func parsePoolConnect(data []byte) (*event.PoolConnect, error) {
	var j memberOpJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PoolConnect: %w", err)
	}
	opID, poolID, member, err := j.ids()
	if err != nil {
		return nil, err
	}
	return &event.PoolConnect{
		OpID:      opID,
		Pool:      poolID,
		Member:    member,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

func parsePoolDisconnect(data []byte) (*event.PoolDisconnect, error) {
	var j memberOpJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PoolDisconnect: %w", err)
	}
	opID, poolID, member, err := j.ids()
	if err != nil {
		return nil, err
	}
	return &event.PoolDisconnect{
		OpID:      opID,
		Pool:      poolID,
		Member:    member,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

func parseClaim(data []byte) (*event.Claim, error) {
	var j memberOpJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Claim: %w", err)
	}
	opID, poolID, member, err := j.ids()
	if err != nil {
		return nil, err
	}
	return &event.Claim{
		OpID:      opID,
		Pool:      poolID,
		Member:    member,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

type depositJSON struct {
	DepositID string `json:"deposit_id"`
	Account   string `json:"account"`
	Token     string `json:"token"`
	Amount    int64  `json:"amount"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseDeposit(data []byte) (*event.Deposit, error) {
	var j depositJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Deposit: %w", err)
	}
	depositID, err := uuid.Parse(j.DepositID)
	if err != nil {
		return nil, fmt.Errorf("parse deposit_id: %w", err)
	}
	account, err := uuid.Parse(j.Account)
	if err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	return &event.Deposit{
		DepositID: depositID,
		Account:   account,
		Token:     j.Token,
		Amount:    j.Amount,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

type withdrawalJSON struct {
	WithdrawalID string `json:"withdrawal_id"`
	Account      string `json:"account"`
	Token        string `json:"token"`
	Amount       int64  `json:"amount"`
	Sequence     int64  `json:"sequence"`
	Timestamp    int64  `json:"timestamp"`
}

func parseWithdrawal(data []byte) (*event.Withdrawal, error) {
	var j withdrawalJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Withdrawal: %w", err)
	}
	wdID, err := uuid.Parse(j.WithdrawalID)
	if err != nil {
		return nil, fmt.Errorf("parse withdrawal_id: %w", err)
	}
	account, err := uuid.Parse(j.Account)
	if err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	return &event.Withdrawal{
		WithdrawalID: wdID,
		Account:      account,
		Token:        j.Token,
		Amount:       j.Amount,
		Sequence:     j.Sequence,
		Timestamp:    j.Timestamp,
	}, nil
}

type solvencyStatusJSON struct {
	UpdateID  string `json:"update_id"`
	Account   string `json:"account"`
	Token     string `json:"token"`
	Critical  bool   `json:"critical"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseSolvencyStatusUpdate(data []byte) (*event.SolvencyStatusUpdate, error) {
	var j solvencyStatusJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse SolvencyStatusUpdate: %w", err)
	}
	updateID, err := uuid.Parse(j.UpdateID)
	if err != nil {
		return nil, fmt.Errorf("parse update_id: %w", err)
	}
	account, err := uuid.Parse(j.Account)
	if err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	return &event.SolvencyStatusUpdate{
		UpdateID:  updateID,
		Account:   account,
		Token:     j.Token,
		Critical:  j.Critical,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}
