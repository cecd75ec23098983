package core

import (
	"FlowLedger/internal/event"
	"FlowLedger/internal/gda"
	"FlowLedger/internal/ledger"
	"FlowLedger/internal/observability"
	"FlowLedger/internal/pool"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Solvency buffer: a new flow rate must be coverable for this long.
const DefaultBufferSeconds = 4 * 3600

// DeterministicCore is the single-threaded event processor. It owns the token
// ledger, the pool adjudicator, and the event pipeline: dedup, sequence
// validation, dispatch, journal application, state hashing, emission.
type DeterministicCore struct {
	sequence          int64
	hasher            *StateHasher
	balanceTracker    *ledger.BalanceTracker
	journalGen        *ledger.JournalGenerator
	validator         *ledger.InvariantValidator
	adjudicator       *gda.Adjudicator
	solvency          *solvencyView
	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics

	// replayMode rebuilds state from the event log: tier-2 dedup is skipped
	// (the log itself is the replay source) and outputs are not re-emitted
	// (every replayed event is already persisted).
	replayMode bool

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

type CoreOutput struct {
	Envelope   *event.EventEnvelope
	Batch      *ledger.Batch
	StateDelta []byte
}

// solvencyView adapts the balance tracker into the adjudicator's read-only
// token ledger, layering the external monitor's critical flags on top of the
// negative-balance check.
type solvencyView struct {
	tracker  *ledger.BalanceTracker
	critical map[string]map[uuid.UUID]bool // token -> accounts flagged critical
}

func newSolvencyView(tracker *ledger.BalanceTracker) *solvencyView {
	return &solvencyView{
		tracker:  tracker,
		critical: make(map[string]map[uuid.UUID]bool),
	}
}

func (s *solvencyView) BalanceOf(token string, account uuid.UUID) int64 {
	tokenID, ok := ledger.GetTokenID(token)
	if !ok {
		return 0
	}
	return s.tracker.BalanceOf(tokenID, account)
}

func (s *solvencyView) IsCriticalOrInsolvent(token string, account uuid.UUID) bool {
	if s.critical[token][account] {
		return true
	}
	tokenID, ok := ledger.GetTokenID(token)
	if !ok {
		return false
	}
	return s.tracker.IsCriticalOrInsolvent(tokenID, account)
}

func (s *solvencyView) setCritical(token string, account uuid.UUID, critical bool) {
	if critical {
		if _, ok := s.critical[token]; !ok {
			s.critical[token] = make(map[uuid.UUID]bool)
		}
		s.critical[token][account] = true
		return
	}
	delete(s.critical[token], account)
}

func NewDeterministicCore(
	startSequence int64,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *DeterministicCore {
	balanceTracker := ledger.NewBalanceTracker()
	validator := ledger.NewInvariantValidator(balanceTracker)
	journalGen := ledger.NewJournalGenerator(startSequence, balanceTracker)
	solvency := newSolvencyView(balanceTracker)
	adjudicator := gda.NewAdjudicator(solvency, gda.SelfOnlyPermissions{}, DefaultBufferSeconds)

	// 1M entries keeps roughly a day of events in the hot tier.
	idempotencyChecker := NewIdempotencyChecker(1_000_000, dbChecker)

	return &DeterministicCore{
		sequence:          startSequence,
		hasher:            NewStateHasher(),
		balanceTracker:    balanceTracker,
		journalGen:        journalGen,
		validator:         validator,
		adjudicator:       adjudicator,
		solvency:          solvency,
		idempotency:       idempotencyChecker,
		sequenceValidator: NewSequenceValidator(),
		metrics:           metrics,
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}
}

// ProcessEvent is the main processing pipeline
func (c *DeterministicCore) ProcessEvent(evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	idempotencyKey := evt.IdempotencyKey()

	// Step 1: Idempotency check. Two-tier on the live path; LRU-only during
	// replay, where the cold tier reads the same log the events come from.
	var isDuplicate bool
	if c.replayMode {
		isDuplicate = c.idempotency.IsDuplicateLocal(eventType, idempotencyKey)
	} else {
		isDuplicate = c.idempotency.IsDuplicate(eventType, idempotencyKey)
	}

	// Step 2: Sequence validation
	partition := c.getPartition(evt)
	if err := c.sequenceValidator.ValidateSequence(partition, evt.SourceSequence(), isDuplicate); err != nil {
		return fmt.Errorf("sequence validation failed: %w", err)
	}

	if isDuplicate {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "duplicate").Inc()
		}
		return nil
	}

	// Step 3: Dispatch — adjudicate and generate journal batches
	batches, err := c.dispatchEvent(evt)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "rejected").Inc()
		}
		return fmt.Errorf("dispatch failed: %w", err)
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	// Steps 4-8: validate, apply, hash, envelope (one output per batch)
	outputs := make([]CoreOutput, 0, len(batches))
	for _, batch := range batches {
		// State-only events (pool create, connect, units change) produce no
		// journals but still need an envelope in the event log.
		if len(batch.Journals) > 0 {
			if err := c.validator.ValidateBatchBalance(batch); err != nil {
				panic(fmt.Sprintf("FATAL: unbalanced batch: %v", err))
			}
			if err := c.balanceTracker.ApplyBatch(batch); err != nil {
				return fmt.Errorf("apply batch failed: %w", err)
			}
		}

		stateDigest := c.computeStateDigest(evt, batch)
		prevHash := c.hasher.GetPrevHash()
		stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)

		outputs = append(outputs, CoreOutput{
			Envelope: &event.EventEnvelope{
				Sequence:       c.sequence,
				IdempotencyKey: idempotencyKey,
				EventType:      evt.EventType(),
				PoolID:         evt.PoolID(),
				Timestamp:      c.getEventTimestamp(evt),
				SourceSequence: evt.SourceSequence(),
				Payload:        payload,
				StateHash:      stateHash,
				PrevHash:       prevHash,
			},
			Batch:      batch,
			StateDelta: stateDigest,
		})
		c.sequence++
	}

	// Step 9: Post-checks
	if err := c.postCheckInvariants(evt); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 10: Emit. Persist channel uses a BLOCKING send (backpressure);
	// projection channel uses a NON-BLOCKING send with silent drop —
	// projections rebuild from the event log if they fall behind. Replayed
	// events are already in the log and are not re-emitted.
	if !c.replayMode {
		for _, output := range outputs {
			c.persistChan <- output

			select {
			case c.projectionChan <- output:
			default:
			}
		}
	}

	// Step 11: Mark as processed
	c.idempotency.MarkProcessed(eventType, idempotencyKey)

	if c.metrics != nil {
		c.metrics.CoreEventsApplied.WithLabelValues(eventType).Inc()
		c.metrics.CoreEventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
	}

	return nil
}

// getPartition determines partition key for sequence validation
func (c *DeterministicCore) getPartition(evt event.Event) string {
	if poolID := evt.PoolID(); poolID != nil {
		return fmt.Sprintf("pool:%s", *poolID)
	}
	return "global"
}

// getEventTimestamp extracts the versioned timestamp from the event. The core
// MUST NOT call time.Now() for anything that affects state.
func (c *DeterministicCore) getEventTimestamp(evt event.Event) int64 {
	switch e := evt.(type) {
	case *event.PoolCreate:
		return e.Timestamp
	case *event.MemberUnitsUpdate:
		return e.Timestamp
	case *event.InstantDistribute:
		return e.Timestamp
	case *event.FlowDistribute:
		return e.Timestamp
	case *event.PoolConnect:
		return e.Timestamp
	case *event.PoolDisconnect:
		return e.Timestamp
	case *event.Claim:
		return e.Timestamp
	case *event.Deposit:
		return e.Timestamp
	case *event.Withdrawal:
		return e.Timestamp
	case *event.SolvencyStatusUpdate:
		return e.Timestamp
	default:
		panic(fmt.Sprintf("FATAL: getEventTimestamp called with unhandled event type %T, deterministic core cannot use wall-clock time", evt))
	}
}

// computeStateDigest creates canonical bytes for the state hash: affected
// account balances plus the affected pool's aggregates.
func (c *DeterministicCore) computeStateDigest(evt event.Event, batch *ledger.Batch) []byte {
	affectedAccounts := make(map[ledger.AccountKey]bool)
	if batch != nil {
		for _, j := range batch.Journals {
			affectedAccounts[j.DebitAccount] = true
			affectedAccounts[j.CreditAccount] = true
		}
	}

	accounts := make([]ledger.AccountKey, 0, len(affectedAccounts))
	for key := range affectedAccounts {
		accounts = append(accounts, key)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	digest := make([]byte, 0, len(accounts)*64)
	for _, key := range accounts {
		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)
		digest = appendInt64LE(digest, c.balanceTracker.GetBalance(key))
	}

	if poolID := evt.PoolID(); poolID != nil {
		if p, ok := c.adjudicator.Pool(uuid.MustParse(*poolID)); ok {
			digest = append(digest, []byte(*poolID)...)
			digest = appendInt64LE(digest, int64(p.TotalUnits()))
			digest = appendInt64LE(digest, p.SettledValuePerUnit())
			digest = appendInt64LE(digest, p.FlowRatePerUnit())
			digest = appendInt64LE(digest, p.TotalRequestedFlowRate())
			digest = appendInt64LE(digest, c.adjudicator.PoolAdjustmentFlowRate(p.ID))
			digest = appendInt64LE(digest, p.LastUpdate())
		}
	}

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// postCheckInvariants validates structural invariants after batch application
func (c *DeterministicCore) postCheckInvariants(evt event.Event) error {
	if poolID := evt.PoolID(); poolID != nil {
		p, ok := c.adjudicator.Pool(uuid.MustParse(*poolID))
		if ok {
			// Unit partition must always balance
			if err := p.CheckUnitPartition(); err != nil {
				return err
			}
			tokenID, known := ledger.GetTokenID(p.Token)
			if known {
				if err := c.validator.ValidatePoolBufferNonNegative(p.ID, tokenID); err != nil {
					return err
				}
			}
		}
	}

	// Periodic global zero-sum check
	if c.sequence > 0 && c.sequence%1000 == 0 {
		if err := c.validator.ValidateGlobalBalance(); err != nil {
			return fmt.Errorf("at seq %d: %w", c.sequence, err)
		}
	}

	return nil
}

func (c *DeterministicCore) emptyBatch(eventRef string, timestamp int64) *ledger.Batch {
	return &ledger.Batch{
		BatchID:   uuid.New(),
		EventRef:  eventRef,
		Sequence:  c.sequence,
		Timestamp: timestamp,
		Journals:  []ledger.Journal{},
	}
}

func (c *DeterministicCore) handleDeposit(evt *event.Deposit) ([]*ledger.Batch, error) {
	tokenID, ok := ledger.GetTokenID(evt.Token)
	if !ok {
		return nil, fmt.Errorf("unknown token: %s", evt.Token)
	}

	batch, err := c.journalGen.GenerateDeposit(evt.Account, evt.DepositID, evt.Amount, tokenID, evt.Timestamp)
	if err != nil {
		return nil, err
	}
	return []*ledger.Batch{batch}, nil
}

func (c *DeterministicCore) handleWithdrawal(evt *event.Withdrawal) ([]*ledger.Batch, error) {
	tokenID, ok := ledger.GetTokenID(evt.Token)
	if !ok {
		return nil, fmt.Errorf("unknown token: %s", evt.Token)
	}

	batch, err := c.journalGen.GenerateWithdrawal(evt.Account, evt.WithdrawalID, evt.Amount, tokenID, evt.Timestamp)
	if err != nil {
		return nil, err
	}
	return []*ledger.Batch{batch}, nil
}

func (c *DeterministicCore) handlePoolCreate(evt *event.PoolCreate) ([]*ledger.Batch, error) {
	if _, ok := ledger.GetTokenID(evt.Token); !ok {
		return nil, fmt.Errorf("unknown token: %s", evt.Token)
	}
	if _, err := c.adjudicator.CreatePool(evt.Pool, evt.Token, evt.Admin, evt.Timestamp); err != nil {
		return nil, err
	}
	// Registration only — no journals
	return []*ledger.Batch{c.emptyBatch(evt.IdempotencyKey(), evt.Timestamp)}, nil
}

func (c *DeterministicCore) handleMemberUnitsUpdate(evt *event.MemberUnitsUpdate) ([]*ledger.Batch, error) {
	if err := c.adjudicator.UpdateMemberUnits(evt.Operator, evt.Pool, evt.Member, evt.NewUnits, evt.Timestamp); err != nil {
		return nil, err
	}
	return []*ledger.Batch{c.emptyBatch(evt.IdempotencyKey(), evt.Timestamp)}, nil
}

func (c *DeterministicCore) handleInstantDistribute(evt *event.InstantDistribute) ([]*ledger.Batch, error) {
	tokenID, ok := ledger.GetTokenID(evt.Token)
	if !ok {
		return nil, fmt.Errorf("unknown token: %s", evt.Token)
	}

	actual, err := c.adjudicator.Distribute(evt.Token, evt.Operator, evt.From, evt.Pool, evt.RequestedAmount, evt.Timestamp)
	if err != nil {
		return nil, err
	}

	batch, err := c.journalGen.GenerateInstantDistribution(evt.From, evt.Pool, evt.IdempotencyKey(), actual, tokenID, evt.Timestamp)
	if err != nil {
		return nil, err
	}
	return []*ledger.Batch{batch}, nil
}

func (c *DeterministicCore) handleFlowDistribute(evt *event.FlowDistribute) ([]*ledger.Batch, error) {
	tokenID, ok := ledger.GetTokenID(evt.Token)
	if !ok {
		return nil, fmt.Errorf("unknown token: %s", evt.Token)
	}

	fd, err := c.adjudicator.DistributeFlow(evt.Token, evt.Operator, evt.From, evt.Pool, evt.RequestedFlowRate, evt.Timestamp)
	if err != nil {
		return nil, err
	}

	// Realize the value streamed under the previous rate before the new rate
	// takes over.
	batch, err := c.journalGen.GenerateFlowSettlements(
		evt.Pool,
		evt.IdempotencyKey(),
		[]ledger.FlowSettlement{{Account: evt.From, Amount: fd.SettledAccrual}},
		tokenID,
		evt.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return []*ledger.Batch{batch}, nil
}

func (c *DeterministicCore) handlePoolConnect(evt *event.PoolConnect) ([]*ledger.Batch, error) {
	if err := c.adjudicator.ConnectPool(evt.Member, evt.Pool, evt.Timestamp); err != nil {
		return nil, err
	}
	return []*ledger.Batch{c.emptyBatch(evt.IdempotencyKey(), evt.Timestamp)}, nil
}

func (c *DeterministicCore) handlePoolDisconnect(evt *event.PoolDisconnect) ([]*ledger.Batch, error) {
	if err := c.adjudicator.DisconnectPool(evt.Member, evt.Pool, evt.Timestamp); err != nil {
		return nil, err
	}
	return []*ledger.Batch{c.emptyBatch(evt.IdempotencyKey(), evt.Timestamp)}, nil
}

// handleClaim returns two batches: the distributor settlements funding the
// pool buffer, then the member's claim draining it. ProcessEvent applies them
// in order through the standard pipeline.
func (c *DeterministicCore) handleClaim(evt *event.Claim) ([]*ledger.Batch, error) {
	p, ok := c.adjudicator.Pool(evt.Pool)
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", evt.Pool, gda.ErrNotPool)
	}
	tokenID, ok := ledger.GetTokenID(p.Token)
	if !ok {
		return nil, fmt.Errorf("unknown token: %s", p.Token)
	}

	amount, accruals, err := c.adjudicator.ClaimAll(evt.Member, evt.Pool, evt.Timestamp)
	if err != nil {
		return nil, err
	}

	settlements := make([]ledger.FlowSettlement, 0, len(accruals))
	for _, a := range accruals {
		settlements = append(settlements, ledger.FlowSettlement{Account: a.Account, Amount: a.Amount})
	}

	settleBatch, err := c.journalGen.GenerateFlowSettlements(evt.Pool, evt.IdempotencyKey(), settlements, tokenID, evt.Timestamp)
	if err != nil {
		return nil, err
	}
	claimBatch, err := c.journalGen.GenerateClaim(evt.Member, evt.Pool, evt.IdempotencyKey(), amount, tokenID, evt.Timestamp)
	if err != nil {
		return nil, err
	}
	return []*ledger.Batch{settleBatch, claimBatch}, nil
}

// handleSolvencyStatusUpdate records the monitor's verdict; a critical
// verdict triggers the zero-out sweep over the account's open flows. One
// settlement batch per liquidated pool, then a derived FlowsLiquidated event.
func (c *DeterministicCore) handleSolvencyStatusUpdate(evt *event.SolvencyStatusUpdate) ([]*ledger.Batch, error) {
	c.solvency.setCritical(evt.Token, evt.Account, evt.Critical)

	if !evt.Critical {
		return []*ledger.Batch{c.emptyBatch(evt.IdempotencyKey(), evt.Timestamp)}, nil
	}

	liquidations, err := c.adjudicator.ZeroOutFlows(evt.Account, evt.Timestamp)
	if err != nil {
		return nil, err
	}

	batches := make([]*ledger.Batch, 0, len(liquidations)+1)
	for _, liq := range liquidations {
		tokenID, ok := ledger.GetTokenID(liq.Token)
		if !ok {
			return nil, fmt.Errorf("unknown token: %s", liq.Token)
		}
		batch, err := c.journalGen.GenerateFlowSettlements(
			liq.PoolID,
			fmt.Sprintf("%s:%s", evt.IdempotencyKey(), liq.PoolID),
			[]ledger.FlowSettlement{{Account: evt.Account, Amount: liq.SettledAccrual}},
			tokenID,
			evt.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	if len(batches) == 0 {
		batches = append(batches, c.emptyBatch(evt.IdempotencyKey(), evt.Timestamp))
	}

	if len(liquidations) > 0 {
		c.emitFlowsLiquidated(evt, liquidations)
	}

	return batches, nil
}

// emitFlowsLiquidated publishes a derived event recording the sweep outcome.
// Recorded in the event log with its own sequence, like any state transition.
func (c *DeterministicCore) emitFlowsLiquidated(evt *event.SolvencyStatusUpdate, liquidations []gda.FlowLiquidation) {
	liqSeq := c.sequence
	c.sequence++

	payload, err := json.Marshal(liquidations)
	if err != nil {
		panic(fmt.Sprintf("FATAL: encode liquidation payload: %v", err))
	}

	stateDigest := c.computeStateDigest(evt, nil)
	prevHash := c.hasher.GetPrevHash()
	stateHash := c.hasher.ComputeHash(liqSeq, stateDigest)

	output := CoreOutput{
		Envelope: &event.EventEnvelope{
			Sequence:       liqSeq,
			IdempotencyKey: fmt.Sprintf("%s:liquidated", evt.IdempotencyKey()),
			EventType:      event.EventTypeFlowsLiquidated,
			Timestamp:      evt.Timestamp,
			Payload:        payload,
			StateHash:      stateHash,
			PrevHash:       prevHash,
		},
		StateDelta: stateDigest,
	}

	// Blocking persist send, non-blocking projection send, same as the
	// main pipeline. Sequence and hash always advance so replay walks the
	// same chain; only the emission is suppressed.
	if c.replayMode {
		return
	}
	c.persistChan <- output
	select {
	case c.projectionChan <- output:
	default:
	}
}

func (c *DeterministicCore) dispatchEvent(evt event.Event) ([]*ledger.Batch, error) {
	switch e := evt.(type) {
	case *event.Deposit:
		return c.handleDeposit(e)
	case *event.Withdrawal:
		return c.handleWithdrawal(e)
	case *event.PoolCreate:
		return c.handlePoolCreate(e)
	case *event.MemberUnitsUpdate:
		return c.handleMemberUnitsUpdate(e)
	case *event.InstantDistribute:
		return c.handleInstantDistribute(e)
	case *event.FlowDistribute:
		return c.handleFlowDistribute(e)
	case *event.PoolConnect:
		return c.handlePoolConnect(e)
	case *event.PoolDisconnect:
		return c.handlePoolDisconnect(e)
	case *event.Claim:
		return c.handleClaim(e)
	case *event.SolvencyStatusUpdate:
		return c.handleSolvencyStatusUpdate(e)
	default:
		return nil, fmt.Errorf("unknown event type: %T", evt)
	}
}

// SetReplayMode toggles log-replay processing. Enable before feeding logged
// events back through ProcessEvent, disable before serving live traffic.
func (c *DeterministicCore) SetReplayMode(enabled bool) {
	c.replayMode = enabled
}

// --- Queries (read-only, used by the query service and tests) ---

// GetSequence returns the current global sequence number.
func (c *DeterministicCore) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (c *DeterministicCore) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}

// Adjudicator exposes the pool engine for read-only queries.
func (c *DeterministicCore) Adjudicator() *gda.Adjudicator {
	return c.adjudicator
}

// BalanceOf returns an account's settled token balance.
func (c *DeterministicCore) BalanceOf(token string, account uuid.UUID) int64 {
	return c.solvency.BalanceOf(token, account)
}

// --- Snapshot create & restore ---

// SnapshotState holds the serializable in-memory state for restore.
type SnapshotState struct {
	Sequence        int64
	StateHash       [32]byte
	Balances        map[ledger.AccountKey]int64
	Pools           []pool.PoolState
	CriticalFlags   map[string][]uuid.UUID // token -> flagged accounts
	SequenceState   map[string]int64
	IdempotencyKeys []string
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *DeterministicCore) CreateSnapshotState() *SnapshotState {
	flags := make(map[string][]uuid.UUID)
	for token, accounts := range c.solvency.critical {
		for account, critical := range accounts {
			if critical {
				flags[token] = append(flags[token], account)
			}
		}
		sort.Slice(flags[token], func(i, j int) bool {
			return flags[token][i].String() < flags[token][j].String()
		})
	}

	return &SnapshotState{
		Sequence:        c.sequence - 1, // Last processed sequence
		StateHash:       c.hasher.GetPrevHash(),
		Balances:        c.balanceTracker.Snapshot(),
		Pools:           c.adjudicator.State(),
		CriticalFlags:   flags,
		SequenceState:   c.sequenceValidator.Partitions(),
		IdempotencyKeys: c.idempotency.Keys(),
	}
}

// RestoreFromSnapshot restores the core's in-memory state. On warm restart
// the caller loads the latest snapshot then replays newer events on top.
func (c *DeterministicCore) RestoreFromSnapshot(snap *SnapshotState) error {
	c.sequence = snap.Sequence + 1 // Next sequence to assign
	c.hasher.SetPrevHash(snap.StateHash)

	for key, balance := range snap.Balances {
		c.balanceTracker.SetBalance(key, balance)
	}
	if err := c.adjudicator.Restore(snap.Pools); err != nil {
		return err
	}
	for token, accounts := range snap.CriticalFlags {
		for _, account := range accounts {
			c.solvency.setCritical(token, account, true)
		}
	}
	for partition, nextSeq := range snap.SequenceState {
		c.sequenceValidator.SetExpectedSequence(partition, nextSeq)
	}
	c.journalGen.SetSequence(snap.Sequence + 1)
	c.idempotency.Warm(snap.IdempotencyKeys)
	return nil
}
