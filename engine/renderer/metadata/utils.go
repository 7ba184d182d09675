package metadata

import "golang.org/x/exp/constraints"

// GetAligned rounds operand up to the next multiple of granularity, which must
// be a power of two.
func GetAligned[T constraints.Unsigned](operand, granularity T) T {
	return (operand + (granularity - 1)) &^ (granularity - 1)
}

// RangesOverlap reports whether the closed ranges [aBegin,aEnd] and
// [bBegin,bEnd] share at least one value.
func RangesOverlap[T constraints.Integer](aBegin, aEnd, bBegin, bEnd T) bool {
	return aBegin <= bEnd && bBegin <= aEnd
}
