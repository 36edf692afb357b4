package clocks

import (
	"math"
	"strconv"
)

// Hertz is a clock frequency in cycles per second.
type Hertz uint32

// Frequency units
const (
	Hz  Hertz = 1
	KHz Hertz = 1000 * Hz
	MHz Hertz = 1000 * KHz
)

// Mul scales f by k. Overflow panics.
func (f Hertz) Mul(k uint32) Hertz {
	r := uint64(f) * uint64(k)
	if r > math.MaxUint32 {
		panic("clocks: frequency overflow in Mul")
	}
	return Hertz(r)
}

// Div divides f by d, truncating. Division by zero panics.
func (f Hertz) Div(d uint32) Hertz {
	if d == 0 {
		panic("clocks: frequency divided by zero")
	}
	return f / Hertz(d)
}

// MulDiv computes f*m/d with a 64-bit intermediate so that PLL maths
// (VCO in the GHz range) never wraps. The result must fit in 32 bits.
func (f Hertz) MulDiv(m, d uint32) Hertz {
	if d == 0 {
		panic("clocks: frequency divided by zero")
	}
	r := uint64(f) * uint64(m) / uint64(d)
	if r > math.MaxUint32 {
		panic("clocks: frequency overflow in MulDiv")
	}
	return Hertz(r)
}

// Within reports whether f is no more than ppm parts-per-million away from
// target.
func (f Hertz) Within(target Hertz, ppm uint32) bool {
	diff := uint64(f) - uint64(target)
	if f < target {
		diff = uint64(target) - uint64(f)
	}
	return diff*1_000_000 <= uint64(target)*uint64(ppm)
}

// String formats f with the largest unit that divides it exactly.
func (f Hertz) String() string {
	switch {
	case f != 0 && f%MHz == 0:
		return strconv.FormatUint(uint64(f/MHz), 10) + " MHz"
	case f != 0 && f%KHz == 0:
		return strconv.FormatUint(uint64(f/KHz), 10) + " kHz"
	default:
		return strconv.FormatUint(uint64(f), 10) + " Hz"
	}
}
