package clocks

import "fmt"

// RingOscillatorNominal is the typical ROSC output at reset. The real value
// varies with process, voltage and temperature by tens of percent.
const RingOscillatorNominal = 11 * MHz

// RingOscillator is a disabled ring oscillator.
type RingOscillator struct {
	hw       RoscHardware
	nominal  Hertz
	consumed bool
}

// NewRingOscillator wraps the ROSC. A zero nominal uses
// RingOscillatorNominal.
func NewRingOscillator(hw RoscHardware, nominal Hertz) *RingOscillator {
	if nominal == 0 {
		nominal = RingOscillatorNominal
	}
	return &RingOscillator{hw: hw, nominal: nominal}
}

// Enable starts the oscillator and waits up to limit polls for STABLE.
// On success the handle is consumed.
func (r *RingOscillator) Enable(limit int) (*EnabledRingOscillator, error) {
	if r.consumed {
		panic("clocks: rosc handle already consumed")
	}
	r.hw.Start()
	if !pollUntil(limit, r.hw.Stable) {
		return nil, fmt.Errorf("rosc: %w", ErrNotStable)
	}
	r.consumed = true
	return &EnabledRingOscillator{freq: r.nominal}, nil
}

// EnabledRingOscillator is a running ring oscillator. Its frequency is the
// nominal value it was created with, not a measurement.
type EnabledRingOscillator struct {
	freq Hertz
}

// AdoptRingOscillator wraps the ROSC left running by the boot ROM.
func AdoptRingOscillator(hw RoscHardware, nominal Hertz) (*EnabledRingOscillator, error) {
	if nominal == 0 {
		nominal = RingOscillatorNominal
	}
	if !hw.Stable() {
		return nil, fmt.Errorf("rosc: %w", ErrNotStable)
	}
	return &EnabledRingOscillator{freq: nominal}, nil
}

func (r *EnabledRingOscillator) Frequency() Hertz   { return r.freq }
func (r *EnabledRingOscillator) SourceID() SourceID { return SourceROSC }
