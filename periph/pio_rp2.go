//go:build rp2040 || rp2350

package periph

import rp2pio "github.com/tinygo-org/pio/rp2-pio"

func clkDivFromFrequency(freq, cpuFreq uint32) (uint16, uint8, error) {
	return rp2pio.ClkDivFromFrequency(freq, cpuFreq)
}
