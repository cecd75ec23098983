package event

import "github.com/google/uuid"

// InstantDistribute pushes a one-shot proportional distribution into a pool.
type InstantDistribute struct {
	OpID            uuid.UUID `json:"op_id"`
	Pool            uuid.UUID `json:"pool"`
	Token           string    `json:"token"`
	Operator        uuid.UUID `json:"operator"`
	From            uuid.UUID `json:"from"`
	RequestedAmount int64     `json:"requested_amount"`
	Sequence        int64     `json:"sequence"`
	Timestamp       int64     `json:"timestamp"`
}

func (e *InstantDistribute) IdempotencyKey() string {
	return e.OpID.String()
}

func (e *InstantDistribute) EventType() EventType {
	return EventTypeInstantDistribute
}

func (e *InstantDistribute) PoolID() *string {
	p := e.Pool.String()
	return &p
}

func (e *InstantDistribute) SourceSequence() int64 {
	return e.Sequence
}

// FlowDistribute sets the distributor's flow rate into a pool. A zero rate
// closes the flow.
type FlowDistribute struct {
	OpID              uuid.UUID `json:"op_id"`
	Pool              uuid.UUID `json:"pool"`
	Token             string    `json:"token"`
	Operator          uuid.UUID `json:"operator"`
	From              uuid.UUID `json:"from"`
	RequestedFlowRate int64     `json:"requested_flow_rate"`
	Sequence          int64     `json:"sequence"`
	Timestamp         int64     `json:"timestamp"`
}

func (e *FlowDistribute) IdempotencyKey() string {
	return e.OpID.String()
}

func (e *FlowDistribute) EventType() EventType {
	return EventTypeFlowDistribute
}

func (e *FlowDistribute) PoolID() *string {
	p := e.Pool.String()
	return &p
}

func (e *FlowDistribute) SourceSequence() int64 {
	return e.Sequence
}
