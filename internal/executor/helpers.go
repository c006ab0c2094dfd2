package executor

import (
	"math"
	"strconv"

	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/dst"
)

// parseInt parses a command argument as a base-10 int64, returning
// ErrNotInteger (not a Go error) on overflow or malformed input, matching
// spec.md §4.1's checked-arithmetic requirement.
func parseInt(b []byte) (int64, *command.RedisError) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, command.ErrNotInteger
	}
	return n, nil
}

// parseFloat parses a command argument as a float64, rejecting NaN/Inf at
// the boundary since INCRBYFLOAT must never let one into a stored value.
func parseFloat(b []byte) (float64, *command.RedisError) {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, command.ErrNotFloat
	}
	return f, nil
}

// addChecked adds delta to base, returning ErrNotInteger on signed-overflow
// instead of silently wrapping.
func addChecked(base, delta int64) (int64, *command.RedisError) {
	sum := base + delta
	if (delta > 0 && sum < base) || (delta < 0 && sum > base) {
		return 0, command.ErrNotInteger
	}
	return sum, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// deadlineFromTTL converts a relative TTL (in the given unit) into an
// absolute virtual-time deadline. A non-positive TTL signals immediate
// deletion, per spec.md §4.1.
func deadlineFromTTL(now dst.VirtualTime, amount int64, millis bool) (deadline dst.VirtualTime, deleteNow bool) {
	if amount <= 0 {
		return 0, true
	}
	ms := amount
	if !millis {
		ms *= 1000
	}
	return now.Add(uint64(ms)), false
}
