package gigue

import (
	"math"
	"math/rand"
)

// align rounds value down to the nearest multiple of alignment. alignment
// must be a positive power of two's multiple (1, 2, 4, or 8 in practice).
func align(value int, alignment int) int {
	if alignment <= 1 {
		return value
	}
	return value - (value % alignment)
}

// alignU64 is align for 4-byte address alignment on uint64 values.
func alignU64(value uint64, alignment uint64) uint64 {
	if alignment <= 1 {
		return value
	}
	return value - (value % alignment)
}

// flattenMethods concatenates the method slices held at each call-depth
// bucket that is strictly smaller than callDepth into one candidate pool.
func flattenMethods(depthIndex map[int][]*Method, callDepth int) []*Method {
	var out []*Method
	for depth, methods := range depthIndex {
		if depth < callDepth {
			out = append(out, methods...)
		}
	}
	return out
}

// generateTruncNorm draws from a normal distribution with the given mean
// (used here as "variance" per the original's naming, i.e. the mean of
// the truncated-normal draw) and standard deviation, rejecting draws
// outside [lowerBound, higherBound]. Mirrors generate_trunc_norm in the
// original generator's helpers module.
func generateTruncNorm(r *rand.Rand, mean, stdDev, lowerBound, higherBound float64) float64 {
	if stdDev <= 0 {
		if mean < lowerBound {
			return lowerBound
		}
		if mean > higherBound {
			return higherBound
		}
		return mean
	}
	for i := 0; i < 10000; i++ {
		v := r.NormFloat64()*stdDev + mean
		if v >= lowerBound && v <= higherBound {
			return v
		}
	}
	// Fallback: clamp rather than loop forever on a pathological config.
	return math.Max(lowerBound, math.Min(higherBound, mean))
}

// generatePoisson draws a single sample from a Poisson distribution with
// the given mean (Knuth's algorithm). mean == 0 always returns 0.
func generatePoisson(r *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		k++
		p *= r.Float64()
		if p <= l {
			return k - 1
		}
	}
}

// bytesToInt reinterprets a little-endian byte slice as an unsigned
// integer. Nothing in this module calls it.
func bytesToInt(b []byte) uint64 {
	var v uint64
	for i, by := range b {
		v |= uint64(by) << (8 * uint(i))
	}
	return v
}

// sext sign-extends the low `bits` bits of v.
func sext(v int64, bits uint) int64 {
	shift := 64 - bits
	return (v << shift) >> shift
}
