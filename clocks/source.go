package clocks

import "strconv"

// ClockSource is anything that produces a clock with a known frequency.
//
// Frequency must be pure: it returns the value established when the source
// became ready (or was last configured), not a live hardware measurement.
// Correctness relies on the physical frequency not drifting between
// configurations.
type ClockSource interface {
	Frequency() Hertz
}

// Source is a ClockSource with a hardware identity. The Manager uses the
// identity to check that a source is legal for a derived clock, since some
// inputs share a Go type (both PLLs, both GPIN pins).
type Source interface {
	ClockSource
	SourceID() SourceID
}

// SourceID identifies one physical clock input or derived clock.
type SourceID uint8

const (
	SourceNone SourceID = iota
	SourcePLLSys
	SourcePLLUSB
	SourceXOSC
	SourceROSC
	SourceLPOSC
	SourceGPIN0
	SourceGPIN1
	SourceClkGPOut0
	SourceClkGPOut1
	SourceClkGPOut2
	SourceClkGPOut3
	SourceClkRef
	SourceClkSys
	SourceClkPeri
	SourceClkHSTX
	SourceClkUSB
	SourceClkADC
	numSources
)

var sourceNames = [numSources]string{
	SourceNone:      "none",
	SourcePLLSys:    "pll_sys",
	SourcePLLUSB:    "pll_usb",
	SourceXOSC:      "xosc",
	SourceROSC:      "rosc",
	SourceLPOSC:     "lposc",
	SourceGPIN0:     "gpin0",
	SourceGPIN1:     "gpin1",
	SourceClkGPOut0: "clk_gpout0",
	SourceClkGPOut1: "clk_gpout1",
	SourceClkGPOut2: "clk_gpout2",
	SourceClkGPOut3: "clk_gpout3",
	SourceClkRef:    "clk_ref",
	SourceClkSys:    "clk_sys",
	SourceClkPeri:   "clk_peri",
	SourceClkHSTX:   "clk_hstx",
	SourceClkUSB:    "clk_usb",
	SourceClkADC:    "clk_adc",
}

func (s SourceID) String() string {
	if s < numSources {
		return sourceNames[s]
	}
	return "source(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s names a real source.
func (s SourceID) Valid() bool {
	return s > SourceNone && s < numSources
}

// ParseSourceID maps a name such as "pll_sys" or "clk_ref" back to its ID.
// Derived clocks may also be given by their short clock name ("ref").
func ParseSourceID(name string) (SourceID, bool) {
	for i, n := range sourceNames {
		if n == name && SourceID(i) != SourceNone {
			return SourceID(i), true
		}
	}
	if id, ok := ParseClockID(name); ok {
		return id.SourceID(), true
	}
	return SourceNone, false
}

// LowPowerOscillator is the always-on 32.768 kHz class oscillator. It has no
// state machine worth tracking and is always a valid source.
type LowPowerOscillator struct{}

// LowPowerFrequency is the nominal LPOSC output.
const LowPowerFrequency = 32768 * Hz

func (LowPowerOscillator) Frequency() Hertz   { return LowPowerFrequency }
func (LowPowerOscillator) SourceID() SourceID { return SourceLPOSC }

// ExternalInput is a clock supplied on a GPIN pin. Software cannot measure
// it, so the frequency given at construction is trusted verbatim: a wrong
// value propagates silently to every clock derived from it.
type ExternalInput struct {
	id   SourceID
	freq Hertz
}

// NewGPIn0 wraps an external clock on GPIN0 running at freq.
func NewGPIn0(freq Hertz) *ExternalInput {
	return &ExternalInput{id: SourceGPIN0, freq: freq}
}

// NewGPIn1 wraps an external clock on GPIN1 running at freq.
func NewGPIn1(freq Hertz) *ExternalInput {
	return &ExternalInput{id: SourceGPIN1, freq: freq}
}

func (g *ExternalInput) Frequency() Hertz   { return g.freq }
func (g *ExternalInput) SourceID() SourceID { return g.id }
