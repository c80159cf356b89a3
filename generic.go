package shapefile

import "golang.org/x/exp/constraints"

// maxOf returns the larger of a and b, used where a plain comparison would
// otherwise be duplicated across every ordered numeric type a caller might
// reasonably pass (record counts, coordinate ordinates, block indices).
func maxOf[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// minOf returns the smaller of a and b.
func minOf[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}
