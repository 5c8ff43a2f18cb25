package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SignExtend interprets the low bits of v as a two's complement number.
func SignExtend[T constraints.Unsigned](v T, bits uint) int32 {
	if bits == 0 || bits > 32 {
		return int32(v)
	}
	u := uint32(v) & (1<<bits - 1)
	if u&(1<<(bits-1)) != 0 {
		return int32(u) - int32(1<<bits)
	}
	return int32(u)
}
