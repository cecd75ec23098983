package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalGenerator creates balanced journal batches for ledger operations
type JournalGenerator struct {
	sequence       int64
	balanceTracker *BalanceTracker // for pre-checks
}

func NewJournalGenerator(startSequence int64, tracker *BalanceTracker) *JournalGenerator {
	return &JournalGenerator{
		sequence:       startSequence,
		balanceTracker: tracker,
	}
}

// SetSequence aligns the generator with the core sequence after restore.
func (jg *JournalGenerator) SetSequence(seq int64) {
	jg.sequence = seq
}

// GenerateDeposit creates journals for an external deposit.
// Moves funds: external:deposits → account:balance
func (jg *JournalGenerator) GenerateDeposit(
	account uuid.UUID,
	depositID uuid.UUID,
	amount int64,
	tokenID TokenID,
	timestamp int64,
) (*Batch, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive: %d", amount)
	}

	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  depositID.String(),
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals: []Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			EventRef:      depositID.String(),
			Sequence:      jg.sequence,
			DebitAccount:  NewUserAccountKey(account, tokenID),
			CreditAccount: NewExternalAccountKey(SubTypeExternalDeposits, tokenID),
			TokenID:       tokenID,
			Amount:        amount,
			JournalType:   JournalTypeDeposit,
			Timestamp:     timestamp,
		}},
	}

	jg.sequence++
	return batch, nil
}

// GenerateWithdrawal creates journals for an external withdrawal.
// Pre-check: the account must be able to cover the debit.
func (jg *JournalGenerator) GenerateWithdrawal(
	account uuid.UUID,
	withdrawalID uuid.UUID,
	amount int64,
	tokenID TokenID,
	timestamp int64,
) (*Batch, error) {
	if err := jg.balanceTracker.ValidateSufficientBalance(tokenID, account, amount); err != nil {
		return nil, fmt.Errorf("withdrawal pre-check failed: %w", err)
	}

	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  withdrawalID.String(),
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals: []Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			EventRef:      withdrawalID.String(),
			Sequence:      jg.sequence,
			DebitAccount:  NewExternalAccountKey(SubTypeExternalWithdrawals, tokenID),
			CreditAccount: NewUserAccountKey(account, tokenID),
			TokenID:       tokenID,
			Amount:        amount,
			JournalType:   JournalTypeWithdrawal,
			Timestamp:     timestamp,
		}},
	}

	jg.sequence++
	return batch, nil
}

// GenerateInstantDistribution moves the actual distributed amount from the
// distributor to the pool's buffer account. A zero actual amount (empty pool)
// produces an empty batch — nothing to journal.
func (jg *JournalGenerator) GenerateInstantDistribution(
	distributor uuid.UUID,
	poolID uuid.UUID,
	eventRef string,
	actualAmount int64,
	tokenID TokenID,
	timestamp int64,
) (*Batch, error) {
	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  eventRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, 1),
	}

	if actualAmount > 0 {
		if err := jg.balanceTracker.ValidateSufficientBalance(tokenID, distributor, actualAmount); err != nil {
			return nil, fmt.Errorf("instant distribution pre-check failed: %w", err)
		}
		batch.Journals = append(batch.Journals, Journal{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			EventRef:      eventRef,
			Sequence:      jg.sequence,
			DebitAccount:  NewPoolAccountKey(poolID, tokenID),
			CreditAccount: NewUserAccountKey(distributor, tokenID),
			TokenID:       tokenID,
			Amount:        actualAmount,
			JournalType:   JournalTypeInstantDistribution,
			Timestamp:     timestamp,
		})
	}

	jg.sequence++
	return batch, nil
}

// FlowSettlement is one distributor's streamed value being realized.
type FlowSettlement struct {
	Account uuid.UUID
	Amount  int64
}

// GenerateFlowSettlements realizes streamed value in the ledger: one entry
// per distributor, each moving the newly settled accrual into the pool's
// buffer account. Callers pass settlements in deterministic order.
func (jg *JournalGenerator) GenerateFlowSettlements(
	poolID uuid.UUID,
	eventRef string,
	settlements []FlowSettlement,
	tokenID TokenID,
	timestamp int64,
) (*Batch, error) {
	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  eventRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, len(settlements)),
	}

	for _, s := range settlements {
		if s.Amount <= 0 {
			continue
		}
		batch.Journals = append(batch.Journals, Journal{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			EventRef:      eventRef,
			Sequence:      jg.sequence,
			DebitAccount:  NewPoolAccountKey(poolID, tokenID),
			CreditAccount: NewUserAccountKey(s.Account, tokenID),
			TokenID:       tokenID,
			Amount:        s.Amount,
			JournalType:   JournalTypeFlowSettlement,
			Timestamp:     timestamp,
		})
	}

	jg.sequence++
	return batch, nil
}

// GenerateClaim moves a member's claimed balance out of the pool buffer.
func (jg *JournalGenerator) GenerateClaim(
	member uuid.UUID,
	poolID uuid.UUID,
	eventRef string,
	amount int64,
	tokenID TokenID,
	timestamp int64,
) (*Batch, error) {
	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  eventRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, 1),
	}

	if amount > 0 {
		batch.Journals = append(batch.Journals, Journal{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			EventRef:      eventRef,
			Sequence:      jg.sequence,
			DebitAccount:  NewUserAccountKey(member, tokenID),
			CreditAccount: NewPoolAccountKey(poolID, tokenID),
			TokenID:       tokenID,
			Amount:        amount,
			JournalType:   JournalTypeClaim,
			Timestamp:     timestamp,
		})
	}

	jg.sequence++
	return batch, nil
}
