package event

import "github.com/google/uuid"

// PoolCreate registers a new distribution pool for a token.
// Idempotency key: op_id (UUID assigned upstream).
type PoolCreate struct {
	OpID      uuid.UUID `json:"op_id"`
	Pool      uuid.UUID `json:"pool"`
	Token     string    `json:"token"`
	Admin     uuid.UUID `json:"admin"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp"`
}

func (e *PoolCreate) IdempotencyKey() string {
	return e.OpID.String()
}

func (e *PoolCreate) EventType() EventType {
	return EventTypePoolCreate
}

func (e *PoolCreate) PoolID() *string {
	p := e.Pool.String()
	return &p
}

func (e *PoolCreate) SourceSequence() int64 {
	return e.Sequence
}

// MemberUnitsUpdate changes a member's share weight. Admin-only; the
// adjudicator enforces the operator check.
type MemberUnitsUpdate struct {
	OpID      uuid.UUID `json:"op_id"`
	Pool      uuid.UUID `json:"pool"`
	Operator  uuid.UUID `json:"operator"`
	Member    uuid.UUID `json:"member"`
	NewUnits  uint64    `json:"new_units"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp"`
}

func (e *MemberUnitsUpdate) IdempotencyKey() string {
	return e.OpID.String()
}

func (e *MemberUnitsUpdate) EventType() EventType {
	return EventTypeMemberUnitsUpdate
}

func (e *MemberUnitsUpdate) PoolID() *string {
	p := e.Pool.String()
	return &p
}

func (e *MemberUnitsUpdate) SourceSequence() int64 {
	return e.Sequence
}
