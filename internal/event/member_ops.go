package event

import "github.com/google/uuid"

// PoolConnect connects the member to a pool (auto-delivery mode).
type PoolConnect struct {
	OpID      uuid.UUID `json:"op_id"`
	Pool      uuid.UUID `json:"pool"`
	Member    uuid.UUID `json:"member"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp"`
}

func (e *PoolConnect) IdempotencyKey() string {
	return e.OpID.String()
}

func (e *PoolConnect) EventType() EventType {
	return EventTypePoolConnect
}

func (e *PoolConnect) PoolID() *string {
	p := e.Pool.String()
	return &p
}

func (e *PoolConnect) SourceSequence() int64 {
	return e.Sequence
}

// PoolDisconnect switches the member back to claim-required delivery.
type PoolDisconnect struct {
	OpID      uuid.UUID `json:"op_id"`
	Pool      uuid.UUID `json:"pool"`
	Member    uuid.UUID `json:"member"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp"`
}

func (e *PoolDisconnect) IdempotencyKey() string {
	return e.OpID.String()
}

func (e *PoolDisconnect) EventType() EventType {
	return EventTypePoolDisconnect
}

func (e *PoolDisconnect) PoolID() *string {
	p := e.Pool.String()
	return &p
}

func (e *PoolDisconnect) SourceSequence() int64 {
	return e.Sequence
}

// Claim realizes the member's full accrued balance from a pool.
type Claim struct {
	OpID      uuid.UUID `json:"op_id"`
	Pool      uuid.UUID `json:"pool"`
	Member    uuid.UUID `json:"member"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp"`
}

func (e *Claim) IdempotencyKey() string {
	return e.OpID.String()
}

func (e *Claim) EventType() EventType {
	return EventTypeClaim
}

func (e *Claim) PoolID() *string {
	p := e.Pool.String()
	return &p
}

func (e *Claim) SourceSequence() int64 {
	return e.Sequence
}
