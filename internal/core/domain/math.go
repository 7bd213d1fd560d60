package domain

import "math"

// AddUint64 returns a+b and false if the sum does not fit in a uint64.
func AddUint64(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// SubUint64 returns a-b and false if b is greater than a.
func SubUint64(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}
