package math

import (
	"errors"
	stdmath "math"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when an intermediate computation exceeds int64 range.
	// Never silently saturated — the whole operation must be rejected.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrNegativeRate is returned when a negative flow rate reaches the split math.
	ErrNegativeRate = errors.New("negative flow rate")

	// ErrNegativeAmount is returned when a negative amount reaches the split math.
	ErrNegativeAmount = errors.New("negative amount")
)

// SplitAmount divides a requested instant-distribution amount evenly across
// totalUnits using floor division.
//
//	perUnit = requested / totalUnits
//	actual  = perUnit * totalUnits
//
// totalUnits == 0 is a deliberate no-op, not an error: the distribution
// succeeds but transfers nothing (actual = 0).
func SplitAmount(requested int64, totalUnits uint64) (perUnit, actual int64, err error) {
	if requested < 0 {
		return 0, 0, ErrNegativeAmount
	}
	if totalUnits == 0 || requested == 0 {
		return 0, 0, nil
	}

	// 256-bit intermediate: floor quotient then exact recomposition.
	// actual <= requested by construction, so neither result can overflow.
	q := new(uint256.Int).Div(
		uint256.NewInt(uint64(requested)),
		uint256.NewInt(totalUnits),
	)
	perUnit = int64(q.Uint64())
	actual = int64(new(uint256.Int).Mul(q, uint256.NewInt(totalUnits)).Uint64())
	return perUnit, actual, nil
}

// SplitFlowRate divides a requested flow rate evenly across totalUnits.
// Same floor-division shape as SplitAmount; negative rates are rejected
// before any state is touched.
func SplitFlowRate(requested int64, totalUnits uint64) (perUnit, actual int64, err error) {
	if requested < 0 {
		return 0, 0, ErrNegativeRate
	}
	if totalUnits == 0 || requested == 0 {
		return 0, 0, nil
	}

	q := new(uint256.Int).Div(
		uint256.NewInt(uint64(requested)),
		uint256.NewInt(totalUnits),
	)
	perUnit = int64(q.Uint64())
	actual = int64(new(uint256.Int).Mul(q, uint256.NewInt(totalUnits)).Uint64())
	return perUnit, actual, nil
}

// AdjustmentFlowRate returns the remainder lost to floor division. It is
// routed to the pool's adjustment recipient so the distributor's committed
// outflow equals exactly what was requested.
func AdjustmentFlowRate(requested, actual int64) int64 {
	return requested - actual
}

// MulUnits computes value * units with a 256-bit intermediate, rejecting
// results outside int64 range. value may be negative.
func MulUnits(value int64, units uint64) (int64, error) {
	if value == 0 || units == 0 {
		return 0, nil
	}

	neg := value < 0
	abs := uint64(value)
	if neg {
		abs = uint64(-value)
	}

	prod := new(uint256.Int).Mul(uint256.NewInt(abs), uint256.NewInt(units))
	if !prod.IsUint64() {
		return 0, ErrOverflow
	}
	p := prod.Uint64()

	if neg {
		if p > uint64(stdmath.MaxInt64)+1 {
			return 0, ErrOverflow
		}
		if p == uint64(stdmath.MaxInt64)+1 {
			return stdmath.MinInt64, nil
		}
		return -int64(p), nil
	}
	if p > uint64(stdmath.MaxInt64) {
		return 0, ErrOverflow
	}
	return int64(p), nil
}

// AccrueFlow computes rate * elapsedSeconds with overflow checking,
// preserving the sign of rate. elapsedSeconds must be non-negative
// (clocks are monotonic inputs here).
func AccrueFlow(rate int64, elapsedSeconds int64) (int64, error) {
	if elapsedSeconds < 0 {
		return 0, ErrOverflow
	}
	return MulUnits(rate, uint64(elapsedSeconds))
}

// AddChecked returns a + b, rejecting int64 overflow.
func AddChecked(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrOverflow
	}
	return sum, nil
}

// SubChecked returns a - b, rejecting int64 overflow.
func SubChecked(a, b int64) (int64, error) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, ErrOverflow
	}
	return diff, nil
}
