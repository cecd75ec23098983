package event

import "github.com/google/uuid"

// SolvencyStatusUpdate carries the external liquidation monitor's verdict on
// an account. A critical verdict triggers the zero-out sweep over the
// account's open flows.
type SolvencyStatusUpdate struct {
	UpdateID  uuid.UUID `json:"update_id"`
	Account   uuid.UUID `json:"account"`
	Token     string    `json:"token"`
	Critical  bool      `json:"critical"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp"`
}

func (e *SolvencyStatusUpdate) IdempotencyKey() string {
	return e.UpdateID.String()
}

func (e *SolvencyStatusUpdate) EventType() EventType {
	return EventTypeSolvencyStatusUpdate
}

func (e *SolvencyStatusUpdate) PoolID() *string {
	return nil // Global event
}

func (e *SolvencyStatusUpdate) SourceSequence() int64 {
	return e.Sequence
}
