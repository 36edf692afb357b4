//go:build !rp2040 && !rp2350

package periph

// Host builds cannot import rp2-pio, which needs the machine package. This
// is the same 24.8 fixed point split.
func clkDivFromFrequency(freq, cpuFreq uint32) (uint16, uint8, error) {
	div := 256 * uint64(cpuFreq) / uint64(freq)
	if div < 256 || div > 256*0xffff {
		return 0, 0, ErrOutOfRange
	}
	return uint16(div / 256), uint8(div % 256), nil
}
