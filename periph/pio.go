package periph

import "picoclock/clocks"

// PIODivider is a state machine CLKDIV value: clk_sys / (Whole + Frac/256).
type PIODivider struct {
	Whole uint16
	Frac  uint8
}

// Rate is the state machine cycle rate the divider produces from sys.
func (d PIODivider) Rate(sys clocks.Hertz) clocks.Hertz {
	div := uint64(d.Whole)*256 + uint64(d.Frac)
	if div == 0 {
		return 0
	}
	return clocks.Hertz(uint64(sys) * 256 / div)
}

// PIOClockDivider computes the divider that runs a PIO state machine at
// freq cycles per second from clk_sys.
func PIOClockDivider(sys clocks.ClockSource, freq clocks.Hertz) (PIODivider, error) {
	f := sys.Frequency()
	if f == 0 {
		return PIODivider{}, ErrClockStopped
	}
	if freq == 0 || freq > f {
		return PIODivider{}, ErrOutOfRange
	}
	whole, frac, err := clkDivFromFrequency(uint32(freq), uint32(f))
	if err != nil {
		return PIODivider{}, ErrOutOfRange
	}
	return PIODivider{Whole: whole, Frac: frac}, nil
}
