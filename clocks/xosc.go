package clocks

import "fmt"

// Crystal oscillator limits and register encodings
const (
	XoscMinFrequency = 1 * MHz
	XoscMaxFrequency = 50 * MHz

	xoscRange1To15   = 0xaa0
	xoscRange10To30  = 0xaa1
	xoscRange25To60  = 0xaa2
	xoscStartupScale = 256 // STARTUP.DELAY counts units of 256 reference cycles
)

// xoscFreqRange returns the FREQ_RANGE value for a crystal frequency.
func xoscFreqRange(f Hertz) uint32 {
	switch {
	case f <= 15*MHz:
		return xoscRange1To15
	case f <= 30*MHz:
		return xoscRange10To30
	default:
		return xoscRange25To60
	}
}

// xoscStartupDelay returns a STARTUP.DELAY covering roughly 1 ms.
func xoscStartupDelay(f Hertz) uint32 {
	return (uint32(f/KHz) + xoscStartupScale/2) / xoscStartupScale
}

// CrystalOscillator is an enabled crystal oscillator that has not reported
// stable yet. It has no Frequency method.
type CrystalOscillator struct {
	hw       XoscHardware
	freq     Hertz
	consumed bool
}

// EnableCrystalOscillator programs the frequency range and startup delay and
// starts the crystal. freq is the crystal's drive frequency.
func EnableCrystalOscillator(hw XoscHardware, freq Hertz) (*CrystalOscillator, error) {
	if freq < XoscMinFrequency || freq > XoscMaxFrequency {
		return nil, fmt.Errorf("xosc %s: %w", freq, ErrFrequencyRange)
	}
	hw.Start(xoscFreqRange(freq), xoscStartupDelay(freq))
	return &CrystalOscillator{hw: hw, freq: freq}, nil
}

// WaitStable polls the STABLE bit up to limit times. On success the handle
// is consumed.
func (x *CrystalOscillator) WaitStable(limit int) (*StableCrystalOscillator, error) {
	if x.consumed {
		panic("clocks: xosc handle already consumed")
	}
	if !pollUntil(limit, x.hw.Stable) {
		return nil, fmt.Errorf("xosc: %w", ErrNotStable)
	}
	x.consumed = true
	debugln("[clocks] xosc stable at " + x.freq.String())
	return &StableCrystalOscillator{freq: x.freq}, nil
}

// StableCrystalOscillator is a running crystal oscillator.
type StableCrystalOscillator struct {
	freq Hertz
}

// AdoptCrystalOscillator wraps a crystal the boot code already started.
// It fails if the oscillator is not reporting stable.
func AdoptCrystalOscillator(hw XoscHardware, freq Hertz) (*StableCrystalOscillator, error) {
	if freq < XoscMinFrequency || freq > XoscMaxFrequency {
		return nil, fmt.Errorf("xosc %s: %w", freq, ErrFrequencyRange)
	}
	if !hw.Stable() {
		return nil, fmt.Errorf("xosc: %w", ErrNotStable)
	}
	return &StableCrystalOscillator{freq: freq}, nil
}

func (x *StableCrystalOscillator) Frequency() Hertz   { return x.freq }
func (x *StableCrystalOscillator) SourceID() SourceID { return SourceXOSC }
