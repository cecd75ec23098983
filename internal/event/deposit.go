package event

import "github.com/google/uuid"

// Deposit credits an account from the external settlement layer.
// Idempotency key: deposit_id.
type Deposit struct {
	DepositID uuid.UUID `json:"deposit_id"`
	Account   uuid.UUID `json:"account"`
	Token     string    `json:"token"`
	Amount    int64     `json:"amount"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp"`
}

func (e *Deposit) IdempotencyKey() string {
	return e.DepositID.String()
}

func (e *Deposit) EventType() EventType {
	return EventTypeDeposit
}

func (e *Deposit) PoolID() *string {
	return nil // Global event
}

func (e *Deposit) SourceSequence() int64 {
	return e.Sequence
}

// Withdrawal debits an account back to the external settlement layer.
type Withdrawal struct {
	WithdrawalID uuid.UUID `json:"withdrawal_id"`
	Account      uuid.UUID `json:"account"`
	Token        string    `json:"token"`
	Amount       int64     `json:"amount"`
	Sequence     int64     `json:"sequence"`
	Timestamp    int64     `json:"timestamp"`
}

func (e *Withdrawal) IdempotencyKey() string {
	return e.WithdrawalID.String()
}

func (e *Withdrawal) EventType() EventType {
	return EventTypeWithdrawal
}

func (e *Withdrawal) PoolID() *string {
	return nil
}

func (e *Withdrawal) SourceSequence() int64 {
	return e.Sequence
}
