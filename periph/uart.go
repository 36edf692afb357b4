package periph

import "picoclock/clocks"

// UARTDivisors computes the PL011 integer and fractional baud divisors for
// clk_peri, and the baud rate they actually produce.
func UARTDivisors(peri clocks.ClockSource, baud uint32) (ibrd, fbrd, actual uint32, err error) {
	freq := uint32(peri.Frequency())
	if freq == 0 {
		return 0, 0, 0, ErrClockStopped
	}
	if baud == 0 {
		return 0, 0, 0, ErrOutOfRange
	}

	// Divisor in 1/128ths of the 16x oversampled rate.
	div := uint64(freq) * 8 / uint64(baud)
	ibrd = uint32(div >> 7)
	switch {
	case ibrd == 0:
		ibrd, fbrd = 1, 0
	case ibrd >= 65535:
		ibrd, fbrd = 65535, 0
	default:
		fbrd = uint32((div&0x7f)+1) / 2
	}

	// baud = 4 * clk / (64 * ibrd + fbrd)
	actual = uint32(uint64(freq) * 4 / (64*uint64(ibrd) + uint64(fbrd)))
	return ibrd, fbrd, actual, nil
}
