package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// InvariantValidator checks ledger invariants
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{
		tracker: tracker,
	}
}

// ValidateBatchBalance verifies batch is well-formed and balanced
func (v *InvariantValidator) ValidateBatchBalance(batch *Batch) error {
	return batch.Validate()
}

// ValidatePoolBufferNonNegative checks a pool never owes more than it holds.
// Buffer balance dips below zero only if claims exceed distributed value.
func (v *InvariantValidator) ValidatePoolBufferNonNegative(poolID uuid.UUID, tokenID TokenID) error {
	key := NewPoolAccountKey(poolID, tokenID)
	balance := v.tracker.GetBalance(key)

	if balance < 0 {
		return fmt.Errorf("pool buffer for %s has negative balance: %d", poolID, balance)
	}

	return nil
}

// ValidateGlobalBalance verifies system is zero-sum
func (v *InvariantValidator) ValidateGlobalBalance() error {
	totals := v.tracker.ComputeGlobalBalance()

	for tokenID, total := range totals {
		if total != 0 {
			tokenName, _ := GetTokenName(tokenID)
			return fmt.Errorf("global balance for %s is non-zero: %d", tokenName, total)
		}
	}

	return nil
}
