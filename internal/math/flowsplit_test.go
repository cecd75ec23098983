package math_test

import (
	"errors"
	stdmath "math"
	"testing"

	fpmath "FlowLedger/internal/math"
)

// ============================================================================
// Test: SplitAmount
// ============================================================================

func TestSplitAmount_FloorDivision(t *testing.T) {
	perUnit, actual, err := fpmath.SplitAmount(10, 3)
	if err != nil {
		t.Fatalf("SplitAmount failed: %v", err)
	}
	if perUnit != 3 || actual != 9 {
		t.Errorf("got perUnit=%d actual=%d, want 3, 9", perUnit, actual)
	}
}

func TestSplitAmount_ExactDivision(t *testing.T) {
	perUnit, actual, err := fpmath.SplitAmount(12, 3)
	if err != nil {
		t.Fatalf("SplitAmount failed: %v", err)
	}
	if perUnit != 4 || actual != 12 {
		t.Errorf("got perUnit=%d actual=%d, want 4, 12", perUnit, actual)
	}
}

func TestSplitAmount_ZeroUnits(t *testing.T) {
	perUnit, actual, err := fpmath.SplitAmount(100, 0)
	if err != nil {
		t.Fatalf("SplitAmount failed: %v", err)
	}
	if perUnit != 0 || actual != 0 {
		t.Errorf("empty pool must transfer nothing, got perUnit=%d actual=%d", perUnit, actual)
	}
}

func TestSplitAmount_RequestSmallerThanUnits(t *testing.T) {
	perUnit, actual, err := fpmath.SplitAmount(2, 5)
	if err != nil {
		t.Fatalf("SplitAmount failed: %v", err)
	}
	if perUnit != 0 || actual != 0 {
		t.Errorf("got perUnit=%d actual=%d, want 0, 0", perUnit, actual)
	}
}

func TestSplitAmount_Negative_Fails(t *testing.T) {
	_, _, err := fpmath.SplitAmount(-1, 3)
	if !errors.Is(err, fpmath.ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestSplitAmount_MaxInt64(t *testing.T) {
	perUnit, actual, err := fpmath.SplitAmount(stdmath.MaxInt64, 7)
	if err != nil {
		t.Fatalf("SplitAmount failed: %v", err)
	}
	if actual > stdmath.MaxInt64 || perUnit*7 != actual {
		t.Errorf("recomposition broken: perUnit=%d actual=%d", perUnit, actual)
	}
}

// ============================================================================
// Test: SplitFlowRate and AdjustmentFlowRate
// ============================================================================

func TestSplitFlowRate_RemainderToAdjustment(t *testing.T) {
	perUnit, actual, err := fpmath.SplitFlowRate(10, 3)
	if err != nil {
		t.Fatalf("SplitFlowRate failed: %v", err)
	}
	if perUnit != 3 || actual != 9 {
		t.Errorf("got perUnit=%d actual=%d, want 3, 9", perUnit, actual)
	}
	if adj := fpmath.AdjustmentFlowRate(10, actual); adj != 1 {
		t.Errorf("adjustment: got %d, want 1", adj)
	}
}

func TestSplitFlowRate_ZeroUnits_AllToAdjustment(t *testing.T) {
	_, actual, err := fpmath.SplitFlowRate(10, 0)
	if err != nil {
		t.Fatalf("SplitFlowRate failed: %v", err)
	}
	if adj := fpmath.AdjustmentFlowRate(10, actual); adj != 10 {
		t.Errorf("empty pool adjustment: got %d, want 10", adj)
	}
}

func TestSplitFlowRate_Negative_Fails(t *testing.T) {
	_, _, err := fpmath.SplitFlowRate(-5, 3)
	if !errors.Is(err, fpmath.ErrNegativeRate) {
		t.Errorf("expected ErrNegativeRate, got %v", err)
	}
}

// ============================================================================
// Test: MulUnits and AccrueFlow
// ============================================================================

func TestMulUnits_Basic(t *testing.T) {
	got, err := fpmath.MulUnits(3, 100)
	if err != nil || got != 300 {
		t.Errorf("got %d, %v, want 300, nil", got, err)
	}
}

func TestMulUnits_Negative(t *testing.T) {
	got, err := fpmath.MulUnits(-3, 100)
	if err != nil || got != -300 {
		t.Errorf("got %d, %v, want -300, nil", got, err)
	}
}

func TestMulUnits_Overflow(t *testing.T) {
	_, err := fpmath.MulUnits(stdmath.MaxInt64, 2)
	if !errors.Is(err, fpmath.ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestMulUnits_MinInt64Boundary(t *testing.T) {
	got, err := fpmath.MulUnits(stdmath.MinInt64, 1)
	if err != nil || got != stdmath.MinInt64 {
		t.Errorf("got %d, %v, want MinInt64, nil", got, err)
	}
	if _, err := fpmath.MulUnits(stdmath.MinInt64, 2); !errors.Is(err, fpmath.ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestAccrueFlow_PreservesSign(t *testing.T) {
	got, err := fpmath.AccrueFlow(-10, 100)
	if err != nil || got != -1000 {
		t.Errorf("got %d, %v, want -1000, nil", got, err)
	}
}

func TestAccrueFlow_NegativeElapsed_Fails(t *testing.T) {
	if _, err := fpmath.AccrueFlow(10, -1); !errors.Is(err, fpmath.ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

// ============================================================================
// Test: Checked add/sub
// ============================================================================

func TestAddChecked(t *testing.T) {
	if got, err := fpmath.AddChecked(1, 2); err != nil || got != 3 {
		t.Errorf("got %d, %v", got, err)
	}
	if _, err := fpmath.AddChecked(stdmath.MaxInt64, 1); !errors.Is(err, fpmath.ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestSubChecked(t *testing.T) {
	if got, err := fpmath.SubChecked(1, 2); err != nil || got != -1 {
		t.Errorf("got %d, %v", got, err)
	}
	if _, err := fpmath.SubChecked(stdmath.MinInt64, 1); !errors.Is(err, fpmath.ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}
