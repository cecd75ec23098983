package gda_test

import (
	"encoding/json"
	"errors"
	"testing"

	"FlowLedger/internal/gda"

	"github.com/google/uuid"
)

const t0 = int64(1_700_000_000)

// fakeLedger is a settled-balance stub for adjudicator tests.
type fakeLedger struct {
	balances map[uuid.UUID]int64
	critical map[uuid.UUID]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[uuid.UUID]int64),
		critical: make(map[uuid.UUID]bool),
	}
}

func (f *fakeLedger) BalanceOf(_ string, account uuid.UUID) int64 {
	return f.balances[account]
}

func (f *fakeLedger) IsCriticalOrInsolvent(_ string, account uuid.UUID) bool {
	return f.critical[account]
}

func newTestAdjudicator(ledger *fakeLedger) *gda.Adjudicator {
	return gda.NewAdjudicator(ledger, gda.SelfOnlyPermissions{}, 3600)
}

// threeUnitPool builds the canonical scenario fixture: member A with 1 unit
// and member B with 2 units, both connected.
func threeUnitPool(t *testing.T, a *gda.Adjudicator, admin uuid.UUID) (poolID, memberA, memberB uuid.UUID) {
	t.Helper()
	poolID = uuid.New()
	memberA = uuid.New()
	memberB = uuid.New()

	if _, err := a.CreatePool(poolID, "USDX", admin, t0); err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if err := a.UpdateMemberUnits(admin, poolID, memberA, 1, t0); err != nil {
		t.Fatalf("UpdateMemberUnits(A) failed: %v", err)
	}
	if err := a.UpdateMemberUnits(admin, poolID, memberB, 2, t0); err != nil {
		t.Fatalf("UpdateMemberUnits(B) failed: %v", err)
	}
	if err := a.ConnectPool(memberA, poolID, t0); err != nil {
		t.Fatalf("ConnectPool(A) failed: %v", err)
	}
	if err := a.ConnectPool(memberB, poolID, t0); err != nil {
		t.Fatalf("ConnectPool(B) failed: %v", err)
	}
	return poolID, memberA, memberB
}

func claimable(t *testing.T, a *gda.Adjudicator, poolID, member uuid.UUID, asOf int64) int64 {
	t.Helper()
	balance, err := a.ClaimableBalance(poolID, member, asOf)
	if err != nil {
		t.Fatalf("ClaimableBalance failed: %v", err)
	}
	return balance
}

// ============================================================================
// Test: Pool registration
// ============================================================================

func TestCreatePool_Registers(t *testing.T) {
	a := newTestAdjudicator(newFakeLedger())
	admin := uuid.New()
	poolID := uuid.New()

	if _, err := a.CreatePool(poolID, "USDX", admin, t0); err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	if !a.IsPool("USDX", poolID) {
		t.Error("pool should resolve for its token")
	}
	if a.IsPool("STRM", poolID) {
		t.Error("pool should not resolve for another token")
	}
	if a.IsPool("USDX", uuid.New()) {
		t.Error("unknown ID should not resolve")
	}
}

func TestCreatePool_DuplicateID_Fails(t *testing.T) {
	a := newTestAdjudicator(newFakeLedger())
	poolID := uuid.New()

	if _, err := a.CreatePool(poolID, "USDX", uuid.New(), t0); err != nil {
		t.Fatalf("first CreatePool failed: %v", err)
	}
	if _, err := a.CreatePool(poolID, "USDX", uuid.New(), t0); err == nil {
		t.Error("duplicate pool ID should fail")
	}
}

func TestUpdateMemberUnits_AdminOnly(t *testing.T) {
	a := newTestAdjudicator(newFakeLedger())
	admin := uuid.New()
	poolID := uuid.New()
	if _, err := a.CreatePool(poolID, "USDX", admin, t0); err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	err := a.UpdateMemberUnits(uuid.New(), poolID, uuid.New(), 5, t0)
	if !errors.Is(err, gda.ErrPoolAdminOnly) {
		t.Errorf("expected ErrPoolAdminOnly, got %v", err)
	}
}

// ============================================================================
// Test: Instant distribution
// ============================================================================

// Ten split over three units: per-unit 3, actual 9, remainder 1 stays with
// the distributor. A (1 unit) ends at 3, B (2 units) at 6.
func TestDistribute_TenOverThreeUnits(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, memberA, memberB := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000

	actual, err := a.Distribute("USDX", distributor, distributor, poolID, 10, t0)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if actual != 9 {
		t.Errorf("actual: got %d, want 9", actual)
	}

	if got := claimable(t, a, poolID, memberA, t0); got != 3 {
		t.Errorf("A claimable: got %d, want 3", got)
	}
	if got := claimable(t, a, poolID, memberB, t0); got != 6 {
		t.Errorf("B claimable: got %d, want 6", got)
	}
}

func TestDistribute_EmptyPool_NoTransfer(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID := uuid.New()
	if _, err := a.CreatePool(poolID, "USDX", admin, t0); err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	distributor := uuid.New()
	// Zero balance is fine: nothing is transferred.
	actual, err := a.Distribute("USDX", distributor, distributor, poolID, 10, t0)
	if err != nil {
		t.Fatalf("Distribute on empty pool failed: %v", err)
	}
	if actual != 0 {
		t.Errorf("actual: got %d, want 0", actual)
	}

	p, _ := a.Pool(poolID)
	if p.SettledValuePerUnit() != 0 {
		t.Error("accumulators should be unchanged on empty pool")
	}
	if p.TotalInstantRequested() != 10 {
		t.Errorf("requested bookkeeping should advance: got %d, want 10", p.TotalInstantRequested())
	}
}

func TestDistribute_WrongToken_NotPool(t *testing.T) {
	a := newTestAdjudicator(newFakeLedger())
	poolID := uuid.New()
	if _, err := a.CreatePool(poolID, "USDX", uuid.New(), t0); err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	from := uuid.New()
	_, err := a.Distribute("STRM", from, from, poolID, 10, t0)
	if !errors.Is(err, gda.ErrNotPool) {
		t.Errorf("expected ErrNotPool, got %v", err)
	}
}

func TestDistribute_InsufficientBalance(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 8 // actual would be 9

	_, err := a.Distribute("USDX", distributor, distributor, poolID, 10, t0)
	if !errors.Is(err, gda.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

// The balance check must net out value already streamed into open flows but
// not yet journaled by a settlement, or a long-running flow lets the
// distributor instant-spend the same funds twice.
func TestDistribute_CountsUnsettledFlowAccrual(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 144_000

	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 1, t0); err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}

	// After 100000s the flow has streamed 100000; only 44000 is spendable
	// even though no settlement has journaled the accrual yet.
	later := t0 + 100_000
	_, err := a.Distribute("USDX", distributor, distributor, poolID, 143_999, later)
	if !errors.Is(err, gda.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	if _, err := a.Distribute("USDX", distributor, distributor, poolID, 44_000, later); err != nil {
		t.Errorf("distribute within real-time balance failed: %v", err)
	}
}

func TestDistribute_ForOthers_Denied(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)

	from := uuid.New()
	ledger.balances[from] = 1_000

	_, err := a.Distribute("USDX", uuid.New(), from, poolID, 10, t0)
	if !errors.Is(err, gda.ErrDistributeForOthersNotAllowed) {
		t.Errorf("expected ErrDistributeForOthersNotAllowed, got %v", err)
	}
}

// ============================================================================
// Test: Flow distribution
// ============================================================================

// Rate 10 over three units: per-unit 3, actual 9, adjustment 1 to the admin.
// After 100 seconds A accrued 300 and B 600.
func TestDistributeFlow_SplitAndAccrual(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, memberA, memberB := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000

	fd, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0)
	if err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}
	if fd.ActualFlowRate != 9 {
		t.Errorf("actual rate: got %d, want 9", fd.ActualFlowRate)
	}
	if fd.AdjustmentFlowRate != 1 {
		t.Errorf("adjustment rate: got %d, want 1", fd.AdjustmentFlowRate)
	}

	recipient, rate, ok := a.PoolAdjustmentFlowInfo(poolID)
	if !ok || recipient != admin || rate != 1 {
		t.Errorf("adjustment flow info: got (%s, %d, %v), want (%s, 1, true)", recipient, rate, ok, admin)
	}

	if got := claimable(t, a, poolID, memberA, t0+100); got != 300 {
		t.Errorf("A accrued: got %d, want 300", got)
	}
	if got := claimable(t, a, poolID, memberB, t0+100); got != 600 {
		t.Errorf("B accrued: got %d, want 600", got)
	}
}

func TestDistributeFlow_NegativeRate_MutatesNothing(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)
	before, _ := json.Marshal(a.State())

	from := uuid.New()
	_, err := a.DistributeFlow("USDX", from, from, poolID, -5, t0)
	if !errors.Is(err, gda.ErrNoNegativeFlowRate) {
		t.Fatalf("expected ErrNoNegativeFlowRate, got %v", err)
	}

	after, _ := json.Marshal(a.State())
	if string(before) != string(after) {
		t.Error("rejected operation must not mutate state")
	}
}

func TestDistributeFlow_EmptyPool_AllToAdjustment(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID := uuid.New()
	if _, err := a.CreatePool(poolID, "USDX", admin, t0); err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000

	fd, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0)
	if err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}
	if fd.ActualFlowRate != 0 {
		t.Errorf("actual rate: got %d, want 0", fd.ActualFlowRate)
	}
	if fd.AdjustmentFlowRate != 10 {
		t.Errorf("adjustment rate: got %d, want 10", fd.AdjustmentFlowRate)
	}
}

func TestDistributeFlow_ProjectedInsolvency(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 100 // rate 10 over 3600s buffer needs 36_000

	_, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0)
	if !errors.Is(err, gda.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestDistributeFlow_CriticalAccount_Denied(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000
	ledger.critical[distributor] = true

	_, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0)
	if !errors.Is(err, gda.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance for critical account, got %v", err)
	}
}

func TestDistributeFlow_LoweringRate_AlwaysAllowed(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	// Enough to cover the 300/s rate over the 3600s solvency buffer.
	ledger.balances[distributor] = 2_000_000

	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 300, t0); err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}

	// Draining the balance must not block a rate decrease.
	ledger.balances[distributor] = 0
	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 3, t0+10); err != nil {
		t.Errorf("lowering the rate should pass solvency: %v", err)
	}
}

// ============================================================================
// Test: Net flow rate
// ============================================================================

func TestNetFlowRate_ComponentsSum(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, memberA, memberB := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000

	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0); err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}

	cases := []struct {
		name    string
		account uuid.UUID
		want    int64
	}{
		{"distributor outflow", distributor, -10},
		{"member A inflow", memberA, 3},
		{"member B inflow", memberB, 6},
		{"admin adjustment inflow", admin, 1},
	}
	var sum int64
	for _, tc := range cases {
		got, err := a.NetFlowRate("USDX", tc.account)
		if err != nil {
			t.Fatalf("NetFlowRate(%s) failed: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
		sum += got
	}
	if sum != 0 {
		t.Errorf("net flow rates must sum to zero, got %d", sum)
	}
}

func TestNetFlowRate_DisconnectedMember_NoInflow(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, memberA, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000
	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0); err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}

	if err := a.DisconnectPool(memberA, poolID, t0+5); err != nil {
		t.Fatalf("DisconnectPool failed: %v", err)
	}

	got, err := a.NetFlowRate("USDX", memberA)
	if err != nil {
		t.Fatalf("NetFlowRate failed: %v", err)
	}
	if got != 0 {
		t.Errorf("disconnected member net flow: got %d, want 0", got)
	}
}

// ============================================================================
// Test: Estimates
// ============================================================================

func TestEstimateDistribution_MatchesApplied(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000

	estimated, err := a.EstimateDistributionActualAmount("USDX", poolID, 10)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	applied, err := a.Distribute("USDX", distributor, distributor, poolID, 10, t0)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if estimated != applied {
		t.Errorf("estimate %d != applied %d", estimated, applied)
	}
}

func TestEstimateFlowDistribution_MatchesApplied(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000

	estimated, err := a.EstimateFlowDistributionActualFlowRate("USDX", poolID, 10)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	fd, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0)
	if err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}
	if estimated != fd.ActualFlowRate {
		t.Errorf("estimate %d != applied %d", estimated, fd.ActualFlowRate)
	}
}

// ============================================================================
// Test: Connect / disconnect
// ============================================================================

func TestDisconnectReconnect_BalanceUnchanged(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, memberA, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000
	if _, err := a.Distribute("USDX", distributor, distributor, poolID, 10, t0); err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	before := claimable(t, a, poolID, memberA, t0+50)
	if err := a.DisconnectPool(memberA, poolID, t0+50); err != nil {
		t.Fatalf("DisconnectPool failed: %v", err)
	}
	if err := a.ConnectPool(memberA, poolID, t0+50); err != nil {
		t.Fatalf("ConnectPool failed: %v", err)
	}
	after := claimable(t, a, poolID, memberA, t0+50)

	if before != after {
		t.Errorf("claimable changed across disconnect/reconnect: %d -> %d", before, after)
	}
}

func TestDisconnectedMember_StillAccrues(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, memberA, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000
	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0); err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}

	if err := a.DisconnectPool(memberA, poolID, t0); err != nil {
		t.Fatalf("DisconnectPool failed: %v", err)
	}

	// Accrual formula is identical for disconnected members.
	if got := claimable(t, a, poolID, memberA, t0+100); got != 300 {
		t.Errorf("disconnected accrual: got %d, want 300", got)
	}
}

// ============================================================================
// Test: ClaimAll
// ============================================================================

func TestClaimAll_ReturnsAccruedAndZeroes(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, memberA, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000
	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0); err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}

	amount, accruals, err := a.ClaimAll(memberA, poolID, t0+100)
	if err != nil {
		t.Fatalf("ClaimAll failed: %v", err)
	}
	if amount != 300 {
		t.Errorf("claimed: got %d, want 300", amount)
	}
	// The distributor streamed 10/s for 100s into the pool.
	if len(accruals) != 1 || accruals[0].Account != distributor || accruals[0].Amount != 1_000 {
		t.Errorf("accruals: got %+v, want [{%s 1000}]", accruals, distributor)
	}

	if got := claimable(t, a, poolID, memberA, t0+100); got != 0 {
		t.Errorf("claimable after claim: got %d, want 0", got)
	}
}

// ============================================================================
// Test: ZeroOutFlows
// ============================================================================

func TestZeroOutFlows_SettlesAndStops(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, memberA, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000
	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0); err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}

	liquidations, err := a.ZeroOutFlows(distributor, t0+100)
	if err != nil {
		t.Fatalf("ZeroOutFlows failed: %v", err)
	}
	if len(liquidations) != 1 {
		t.Fatalf("expected 1 liquidation, got %d", len(liquidations))
	}
	liq := liquidations[0]
	if liq.PoolID != poolID || liq.PreviousFlowRate != 10 || liq.SettledAccrual != 1_000 {
		t.Errorf("liquidation: got %+v", liq)
	}

	// Flow stopped: no additional accrual after the sweep.
	at := claimable(t, a, poolID, memberA, t0+100)
	later := claimable(t, a, poolID, memberA, t0+200)
	if at != later {
		t.Errorf("accrual continued after liquidation: %d -> %d", at, later)
	}

	net, err := a.NetFlowRate("USDX", distributor)
	if err != nil {
		t.Fatalf("NetFlowRate failed: %v", err)
	}
	if net != 0 {
		t.Errorf("distributor net flow after liquidation: got %d, want 0", net)
	}
}

func TestZeroOutFlows_Idempotent(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, _, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000
	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0); err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}

	if _, err := a.ZeroOutFlows(distributor, t0+100); err != nil {
		t.Fatalf("first ZeroOutFlows failed: %v", err)
	}
	afterFirst, _ := json.Marshal(a.State())

	second, err := a.ZeroOutFlows(distributor, t0+100)
	if err != nil {
		t.Fatalf("second ZeroOutFlows failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second sweep should be empty, got %d liquidations", len(second))
	}
	afterSecond, _ := json.Marshal(a.State())

	if string(afterFirst) != string(afterSecond) {
		t.Error("second sweep must not change state")
	}
}

// ============================================================================
// Test: Snapshot restore
// ============================================================================

func TestRestore_RoundTrip(t *testing.T) {
	ledger := newFakeLedger()
	a := newTestAdjudicator(ledger)
	admin := uuid.New()
	poolID, memberA, _ := threeUnitPool(t, a, admin)

	distributor := uuid.New()
	ledger.balances[distributor] = 1_000_000
	if _, err := a.DistributeFlow("USDX", distributor, distributor, poolID, 10, t0); err != nil {
		t.Fatalf("DistributeFlow failed: %v", err)
	}

	restored := newTestAdjudicator(ledger)
	if err := restored.Restore(a.State()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	origJSON, _ := json.Marshal(a.State())
	restJSON, _ := json.Marshal(restored.State())
	if string(origJSON) != string(restJSON) {
		t.Error("restored state differs from original")
	}

	// Indexes are rebuilt: net flow and accrual behave identically.
	net, err := restored.NetFlowRate("USDX", distributor)
	if err != nil {
		t.Fatalf("NetFlowRate failed: %v", err)
	}
	if net != -10 {
		t.Errorf("restored distributor net flow: got %d, want -10", net)
	}
	if got := claimable(t, restored, poolID, memberA, t0+100); got != 300 {
		t.Errorf("restored accrual: got %d, want 300", got)
	}
}
