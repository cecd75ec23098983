package pool_test

import (
	"encoding/json"
	"errors"
	"testing"

	fpmath "FlowLedger/internal/math"
	"FlowLedger/internal/pool"

	"github.com/google/uuid"
)

const t0 = int64(1_700_000_000)

// newTestPool returns a USDX pool with members A (1 unit) and B (2 units),
// both connected.
func newTestPool(t *testing.T) (*pool.Pool, uuid.UUID, uuid.UUID, uuid.UUID) {
	t.Helper()
	admin := uuid.New()
	memberA := uuid.New()
	memberB := uuid.New()
	p := pool.New(uuid.New(), "USDX", admin, t0)

	if err := p.UpdateMemberUnits(memberA, 1, t0); err != nil {
		t.Fatalf("UpdateMemberUnits A failed: %v", err)
	}
	if err := p.UpdateMemberUnits(memberB, 2, t0); err != nil {
		t.Fatalf("UpdateMemberUnits B failed: %v", err)
	}
	if err := p.ConnectMember(memberA, t0); err != nil {
		t.Fatalf("ConnectMember A failed: %v", err)
	}
	if err := p.ConnectMember(memberB, t0); err != nil {
		t.Fatalf("ConnectMember B failed: %v", err)
	}
	return p, admin, memberA, memberB
}

func mustClaimable(t *testing.T, p *pool.Pool, account uuid.UUID, asOf int64) int64 {
	t.Helper()
	got, err := p.ClaimableBalance(account, asOf)
	if err != nil {
		t.Fatalf("ClaimableBalance failed: %v", err)
	}
	return got
}

// ============================================================================
// Test: Instant distributions
// ============================================================================

func TestInstantDistribution_FloorSplit(t *testing.T) {
	p, _, memberA, memberB := newTestPool(t)
	distributor := uuid.New()

	actual, err := p.AppendInstantDistribution(distributor, 10, t0)
	if err != nil {
		t.Fatalf("AppendInstantDistribution failed: %v", err)
	}
	if actual != 9 {
		t.Errorf("actual: got %d, want 9", actual)
	}
	if got := mustClaimable(t, p, memberA, t0); got != 3 {
		t.Errorf("member A claimable: got %d, want 3", got)
	}
	if got := mustClaimable(t, p, memberB, t0); got != 6 {
		t.Errorf("member B claimable: got %d, want 6", got)
	}
}

func TestInstantDistribution_EmptyPool_BookkeepingOnly(t *testing.T) {
	p := pool.New(uuid.New(), "USDX", uuid.New(), t0)

	actual, err := p.AppendInstantDistribution(uuid.New(), 10, t0)
	if err != nil {
		t.Fatalf("AppendInstantDistribution failed: %v", err)
	}
	if actual != 0 {
		t.Errorf("empty pool must transfer nothing, got actual=%d", actual)
	}
	if got := p.TotalInstantRequested(); got != 10 {
		t.Errorf("requested bookkeeping must still advance: got %d, want 10", got)
	}
	if got := p.SettledValuePerUnit(); got != 0 {
		t.Errorf("settledValuePerUnit must not move: got %d", got)
	}
}

func TestInstantDistribution_Negative_Fails(t *testing.T) {
	p, _, _, _ := newTestPool(t)

	_, err := p.AppendInstantDistribution(uuid.New(), -1, t0)
	if !errors.Is(err, fpmath.ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

// ============================================================================
// Test: Flow distributions
// ============================================================================

func TestFlowDistribution_SplitAndAccrual(t *testing.T) {
	p, admin, memberA, memberB := newTestPool(t)
	distributor := uuid.New()

	fd, err := p.AppendFlowDistribution(distributor, 10, t0)
	if err != nil {
		t.Fatalf("AppendFlowDistribution failed: %v", err)
	}
	if fd.ActualFlowRate != 9 {
		t.Errorf("actual rate: got %d, want 9", fd.ActualFlowRate)
	}
	if fd.AdjustmentFlowRate != 1 {
		t.Errorf("adjustment rate: got %d, want 1", fd.AdjustmentFlowRate)
	}

	recipient, rate := p.AdjustmentFlow()
	if recipient != admin || rate != 1 {
		t.Errorf("adjustment flow: got (%s, %d), want (admin, 1)", recipient, rate)
	}

	if got := mustClaimable(t, p, memberA, t0+100); got != 300 {
		t.Errorf("member A at t0+100: got %d, want 300", got)
	}
	if got := mustClaimable(t, p, memberB, t0+100); got != 600 {
		t.Errorf("member B at t0+100: got %d, want 600", got)
	}
}

func TestFlowDistribution_RateChange_SettlesAccrual(t *testing.T) {
	p, _, memberA, _ := newTestPool(t)
	distributor := uuid.New()

	if _, err := p.AppendFlowDistribution(distributor, 10, t0); err != nil {
		t.Fatalf("AppendFlowDistribution failed: %v", err)
	}

	fd, err := p.AppendFlowDistribution(distributor, 20, t0+100)
	if err != nil {
		t.Fatalf("rate change failed: %v", err)
	}
	if fd.SettledAccrual != 1000 {
		t.Errorf("settled accrual: got %d, want 1000", fd.SettledAccrual)
	}
	if fd.ActualFlowRate != 18 {
		t.Errorf("new actual rate: got %d, want 18", fd.ActualFlowRate)
	}

	// 100s at 3/s, then 100s at 6/s.
	if got := mustClaimable(t, p, memberA, t0+200); got != 900 {
		t.Errorf("member A at t0+200: got %d, want 900", got)
	}
}

func TestFlowDistribution_EmptyPool_AllToAdjustment(t *testing.T) {
	admin := uuid.New()
	p := pool.New(uuid.New(), "USDX", admin, t0)

	fd, err := p.AppendFlowDistribution(uuid.New(), 10, t0)
	if err != nil {
		t.Fatalf("AppendFlowDistribution failed: %v", err)
	}
	if fd.ActualFlowRate != 0 || fd.AdjustmentFlowRate != 10 {
		t.Errorf("got (%d, %d), want (0, 10)", fd.ActualFlowRate, fd.AdjustmentFlowRate)
	}
}

func TestFlowDistribution_Negative_Fails(t *testing.T) {
	p, _, _, _ := newTestPool(t)

	_, err := p.AppendFlowDistribution(uuid.New(), -5, t0)
	if !errors.Is(err, fpmath.ErrNegativeRate) {
		t.Errorf("expected ErrNegativeRate, got %v", err)
	}
	if got := p.TotalRequestedFlowRate(); got != 0 {
		t.Errorf("rejected flow must not mutate: got total %d", got)
	}
}

func TestFlowDistribution_MultipleDistributors_AggregateSplit(t *testing.T) {
	p, _, memberA, _ := newTestPool(t)
	d1 := uuid.New()
	d2 := uuid.New()

	if _, err := p.AppendFlowDistribution(d1, 4, t0); err != nil {
		t.Fatalf("d1 flow failed: %v", err)
	}
	if _, err := p.AppendFlowDistribution(d2, 5, t0); err != nil {
		t.Fatalf("d2 flow failed: %v", err)
	}

	// Aggregate 9 over 3 units: per-unit 3, no remainder.
	if got := p.FlowRatePerUnit(); got != 3 {
		t.Errorf("per-unit rate: got %d, want 3", got)
	}
	if _, rate := p.AdjustmentFlow(); rate != 0 {
		t.Errorf("adjustment rate: got %d, want 0", rate)
	}
	if got := mustClaimable(t, p, memberA, t0+10); got != 30 {
		t.Errorf("member A at t0+10: got %d, want 30", got)
	}
}

// ============================================================================
// Test: Unit changes under an active flow
// ============================================================================

func TestUpdateMemberUnits_RebalancesFlow(t *testing.T) {
	p, _, memberA, memberB := newTestPool(t)
	distributor := uuid.New()

	if _, err := p.AppendFlowDistribution(distributor, 10, t0); err != nil {
		t.Fatalf("AppendFlowDistribution failed: %v", err)
	}

	// A goes from 1 to 3 units at t0+100: total 5, per-unit 2, no remainder.
	if err := p.UpdateMemberUnits(memberA, 3, t0+100); err != nil {
		t.Fatalf("UpdateMemberUnits failed: %v", err)
	}
	if got := p.FlowRatePerUnit(); got != 2 {
		t.Errorf("per-unit rate: got %d, want 2", got)
	}
	if _, rate := p.AdjustmentFlow(); rate != 0 {
		t.Errorf("adjustment rate: got %d, want 0", rate)
	}

	// A: 100s at 3/s on 1 unit, then 100s at 2/s on 3 units.
	if got := mustClaimable(t, p, memberA, t0+200); got != 900 {
		t.Errorf("member A at t0+200: got %d, want 900", got)
	}
	// B: 100s at 6/s, then 100s at 4/s.
	if got := mustClaimable(t, p, memberB, t0+200); got != 1000 {
		t.Errorf("member B at t0+200: got %d, want 1000", got)
	}
}

func TestUpdateMemberUnits_ToZero_DropsFromSplit(t *testing.T) {
	p, _, _, memberB := newTestPool(t)
	distributor := uuid.New()

	if _, err := p.AppendFlowDistribution(distributor, 10, t0); err != nil {
		t.Fatalf("AppendFlowDistribution failed: %v", err)
	}
	if err := p.UpdateMemberUnits(memberB, 0, t0+100); err != nil {
		t.Fatalf("UpdateMemberUnits failed: %v", err)
	}

	// Total 1 unit: all 10/s to A, no remainder.
	if got := p.FlowRatePerUnit(); got != 10 {
		t.Errorf("per-unit rate: got %d, want 10", got)
	}
	// B keeps what accrued before the change and nothing after.
	if got := mustClaimable(t, p, memberB, t0+200); got != 600 {
		t.Errorf("member B at t0+200: got %d, want 600", got)
	}
	if err := p.CheckUnitPartition(); err != nil {
		t.Errorf("unit partition broken: %v", err)
	}
}

// ============================================================================
// Test: Connection status
// ============================================================================

func TestDisconnect_BalanceKeepsAccruing(t *testing.T) {
	p, _, memberA, _ := newTestPool(t)
	distributor := uuid.New()

	if _, err := p.AppendFlowDistribution(distributor, 10, t0); err != nil {
		t.Fatalf("AppendFlowDistribution failed: %v", err)
	}

	before := mustClaimable(t, p, memberA, t0+100)
	if err := p.DisconnectMember(memberA, t0+100); err != nil {
		t.Fatalf("DisconnectMember failed: %v", err)
	}
	after := mustClaimable(t, p, memberA, t0+100)
	if before != after {
		t.Errorf("disconnect changed claimable: %d -> %d", before, after)
	}

	// Accrual continues at the same rate while disconnected.
	if got := mustClaimable(t, p, memberA, t0+200); got != 600 {
		t.Errorf("member A at t0+200: got %d, want 600", got)
	}

	if err := p.ConnectMember(memberA, t0+200); err != nil {
		t.Fatalf("ConnectMember failed: %v", err)
	}
	if got := mustClaimable(t, p, memberA, t0+200); got != 600 {
		t.Errorf("reconnect changed claimable: got %d, want 600", got)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	p, _, memberA, _ := newTestPool(t)

	if err := p.DisconnectMember(memberA, t0); err != nil {
		t.Fatalf("DisconnectMember failed: %v", err)
	}
	if err := p.DisconnectMember(memberA, t0+10); err != nil {
		t.Fatalf("second DisconnectMember failed: %v", err)
	}
	if got := p.DisconnectedUnits(); got != 1 {
		t.Errorf("disconnected units: got %d, want 1", got)
	}
	if err := p.CheckUnitPartition(); err != nil {
		t.Errorf("unit partition broken: %v", err)
	}
}

func TestDisconnectedCarry_Bookkeeping(t *testing.T) {
	p, _, memberA, _ := newTestPool(t)
	distributor := uuid.New()

	if err := p.DisconnectMember(memberA, t0); err != nil {
		t.Fatalf("DisconnectMember failed: %v", err)
	}

	// Instant 9 over 3 units: A's 3 are owed but not yet synced.
	if _, err := p.AppendInstantDistribution(distributor, 9, t0); err != nil {
		t.Fatalf("AppendInstantDistribution failed: %v", err)
	}
	if got := p.DisconnectedBalanceCarry(); got != 3 {
		t.Errorf("carry after instant: got %d, want 3", got)
	}

	// Syncing A (via connect) folds the carry into their balance.
	if err := p.ConnectMember(memberA, t0); err != nil {
		t.Fatalf("ConnectMember failed: %v", err)
	}
	if got := p.DisconnectedBalanceCarry(); got != 0 {
		t.Errorf("carry after sync: got %d, want 0", got)
	}
	if got := mustClaimable(t, p, memberA, t0); got != 3 {
		t.Errorf("member A claimable: got %d, want 3", got)
	}
}

// ============================================================================
// Test: Claims
// ============================================================================

func TestClaimAll_ZeroesBalance(t *testing.T) {
	p, _, memberA, _ := newTestPool(t)
	distributor := uuid.New()

	if _, err := p.AppendFlowDistribution(distributor, 10, t0); err != nil {
		t.Fatalf("AppendFlowDistribution failed: %v", err)
	}

	amount, err := p.ClaimAll(memberA, t0+100)
	if err != nil {
		t.Fatalf("ClaimAll failed: %v", err)
	}
	if amount != 300 {
		t.Errorf("claimed: got %d, want 300", amount)
	}
	if got := mustClaimable(t, p, memberA, t0+100); got != 0 {
		t.Errorf("claimable after claim: got %d, want 0", got)
	}
	// Accrual resumes from zero.
	if got := mustClaimable(t, p, memberA, t0+200); got != 300 {
		t.Errorf("claimable at t0+200: got %d, want 300", got)
	}
}

func TestClaimAll_UnknownMember_Zero(t *testing.T) {
	p, _, _, _ := newTestPool(t)

	amount, err := p.ClaimAll(uuid.New(), t0)
	if err != nil || amount != 0 {
		t.Errorf("got (%d, %v), want (0, nil)", amount, err)
	}
}

// ============================================================================
// Test: Distributor settlement
// ============================================================================

func TestSettleDistributors_SortedAndSkipsZero(t *testing.T) {
	p, _, _, _ := newTestPool(t)
	d1 := uuid.New()
	d2 := uuid.New()
	idle := uuid.New()

	if _, err := p.AppendFlowDistribution(d1, 10, t0); err != nil {
		t.Fatalf("d1 flow failed: %v", err)
	}
	if _, err := p.AppendFlowDistribution(d2, 5, t0); err != nil {
		t.Fatalf("d2 flow failed: %v", err)
	}
	if _, err := p.AppendFlowDistribution(idle, 0, t0); err != nil {
		t.Fatalf("idle flow failed: %v", err)
	}

	accruals, err := p.SettleDistributors(t0 + 100)
	if err != nil {
		t.Fatalf("SettleDistributors failed: %v", err)
	}
	if len(accruals) != 2 {
		t.Fatalf("expected 2 accruals, got %d", len(accruals))
	}
	total := accruals[0].Amount + accruals[1].Amount
	if total != 1500 {
		t.Errorf("total accrued: got %d, want 1500", total)
	}
	for i := 1; i < len(accruals); i++ {
		a, b := accruals[i-1].Account, accruals[i].Account
		for k := 0; k < 16; k++ {
			if a[k] != b[k] {
				if a[k] > b[k] {
					t.Error("accruals not sorted by account")
				}
				break
			}
		}
	}

	// Immediate re-settle streams nothing further.
	again, err := p.SettleDistributors(t0 + 100)
	if err != nil {
		t.Fatalf("second SettleDistributors failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no new accruals, got %d", len(again))
	}
}

// ============================================================================
// Test: State round-trip
// ============================================================================

func TestState_RoundTrip(t *testing.T) {
	p, _, memberA, _ := newTestPool(t)
	distributor := uuid.New()

	if _, err := p.AppendFlowDistribution(distributor, 10, t0); err != nil {
		t.Fatalf("AppendFlowDistribution failed: %v", err)
	}
	if _, err := p.AppendInstantDistribution(distributor, 10, t0+50); err != nil {
		t.Fatalf("AppendInstantDistribution failed: %v", err)
	}

	restored, err := pool.FromState(p.State())
	if err != nil {
		t.Fatalf("FromState failed: %v", err)
	}

	orig, _ := json.Marshal(p.State())
	round, _ := json.Marshal(restored.State())
	if string(orig) != string(round) {
		t.Errorf("state mismatch:\n%s\n%s", orig, round)
	}

	a1 := mustClaimable(t, p, memberA, t0+100)
	a2 := mustClaimable(t, restored, memberA, t0+100)
	if a1 != a2 {
		t.Errorf("claimable diverged after restore: %d vs %d", a1, a2)
	}
}
