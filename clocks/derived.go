package clocks

import (
	"strconv"
	"sync/atomic"
)

// ClockID identifies a derived clock. Values follow the RP2350 CLOCKS
// register slice order.
type ClockID uint8

const (
	ClkGPOut0 ClockID = iota // GPIO clock output 0
	ClkGPOut1                // GPIO clock output 1
	ClkGPOut2                // GPIO clock output 2
	ClkGPOut3                // GPIO clock output 3
	ClkRef                   // Watchdog and timers reference clock
	ClkSys                   // Processors, bus fabric, memory
	ClkPeri                  // UART and SPI
	ClkHSTX                  // High speed serial transmit
	ClkUSB                   // USB controller, 48 MHz
	ClkADC                   // ADC, 48 MHz
	NumClocks
)

func (id ClockID) String() string {
	if id < NumClocks {
		return descriptors[id].name
	}
	return "clock(" + strconv.Itoa(int(id)) + ")"
}

// SourceID returns the identity this clock has when used as an input to
// another derived clock.
func (id ClockID) SourceID() SourceID {
	if id >= NumClocks {
		return SourceNone
	}
	return SourceClkGPOut0 + SourceID(id)
}

// ParseClockID accepts "sys" as well as "clk_sys".
func ParseClockID(name string) (ClockID, bool) {
	if len(name) > 4 && name[:4] == "clk_" {
		name = name[4:]
	}
	for i := ClockID(0); i < NumClocks; i++ {
		if descriptors[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// muxInput is one legal input of a slice and how to select it.
type muxInput struct {
	source SourceID
	src    uint8 // glitchless SRC value; only meaningful on glitchless slices
	aux    uint8 // AUXSRC value when viaAux
	viaAux bool
}

type descriptor struct {
	name       string
	glitchless bool
	auxSrc     uint8 // SRC value that routes the aux mux through the glitchless mux
	divBits    uint8 // width of DIV.INT
	max        Hertz // rated maximum output
	inputs     []muxInput
}

func direct(s SourceID, src uint8) muxInput { return muxInput{source: s, src: src} }
func aux(s SourceID, v uint8) muxInput      { return muxInput{source: s, aux: v, viaAux: true} }

var gpoutInputs = []muxInput{
	aux(SourcePLLSys, 0),
	aux(SourceGPIN0, 1),
	aux(SourceGPIN1, 2),
	aux(SourcePLLUSB, 3),
	aux(SourceROSC, 5),
	aux(SourceXOSC, 6),
	aux(SourceLPOSC, 7),
	aux(SourceClkSys, 8),
	aux(SourceClkUSB, 9),
	aux(SourceClkADC, 10),
	aux(SourceClkRef, 11),
	aux(SourceClkPeri, 12),
	aux(SourceClkHSTX, 13),
}

var usbADCInputs = []muxInput{
	aux(SourcePLLUSB, 0),
	aux(SourcePLLSys, 1),
	aux(SourceROSC, 2),
	aux(SourceXOSC, 3),
	aux(SourceGPIN0, 4),
	aux(SourceGPIN1, 5),
}

var descriptors = [NumClocks]descriptor{
	ClkGPOut0: {name: "gpout0", divBits: 16, max: 50 * MHz, inputs: gpoutInputs},
	ClkGPOut1: {name: "gpout1", divBits: 16, max: 50 * MHz, inputs: gpoutInputs},
	ClkGPOut2: {name: "gpout2", divBits: 16, max: 50 * MHz, inputs: gpoutInputs},
	ClkGPOut3: {name: "gpout3", divBits: 16, max: 50 * MHz, inputs: gpoutInputs},
	ClkRef: {
		name: "ref", glitchless: true, auxSrc: 1, divBits: 8, max: 50 * MHz,
		inputs: []muxInput{
			direct(SourceROSC, 0),
			direct(SourceXOSC, 2),
			direct(SourceLPOSC, 3),
			aux(SourcePLLUSB, 0),
			aux(SourceGPIN0, 1),
			aux(SourceGPIN1, 2),
		},
	},
	ClkSys: {
		name: "sys", glitchless: true, auxSrc: 1, divBits: 16, max: 150 * MHz,
		inputs: []muxInput{
			direct(SourceClkRef, 0),
			aux(SourcePLLSys, 0),
			aux(SourcePLLUSB, 1),
			aux(SourceROSC, 2),
			aux(SourceXOSC, 3),
			aux(SourceGPIN0, 4),
			aux(SourceGPIN1, 5),
		},
	},
	ClkPeri: {
		name: "peri", divBits: 2, max: 150 * MHz,
		inputs: []muxInput{
			aux(SourceClkSys, 0),
			aux(SourcePLLSys, 1),
			aux(SourcePLLUSB, 2),
			aux(SourceROSC, 3),
			aux(SourceXOSC, 4),
			aux(SourceGPIN0, 5),
			aux(SourceGPIN1, 6),
		},
	},
	ClkHSTX: {
		name: "hstx", divBits: 2, max: 150 * MHz,
		inputs: []muxInput{
			aux(SourceClkSys, 0),
			aux(SourcePLLSys, 1),
			aux(SourcePLLUSB, 2),
			aux(SourceGPIN0, 3),
			aux(SourceGPIN1, 4),
		},
	},
	ClkUSB: {name: "usb", divBits: 4, max: 48 * MHz, inputs: usbADCInputs},
	ClkADC: {name: "adc", divBits: 4, max: 48 * MHz, inputs: usbADCInputs},
}

func (d *descriptor) input(s SourceID) (muxInput, bool) {
	for _, in := range d.inputs {
		if in.source == s {
			return in, true
		}
	}
	return muxInput{}, false
}

// maxDivider is the largest integer divider the slice can express. The
// hardware encodes it as INT=0.
func (d *descriptor) maxDivider() uint32 {
	return 1 << d.divBits
}

// encodeDivider returns the DIV register value for an integer divider.
func (d *descriptor) encodeDivider(div uint32) uint32 {
	return (div & (d.maxDivider() - 1)) << 16
}

// decodeDivider returns the integer part of a DIV register value.
func (d *descriptor) decodeDivider(raw uint32) uint32 {
	v := (raw >> 16) & (d.maxDivider() - 1)
	if v == 0 {
		return d.maxDivider()
	}
	return v
}

// Candidates lists the sources a clock may legally select.
func Candidates(id ClockID) []SourceID {
	if id >= NumClocks {
		return nil
	}
	out := make([]SourceID, len(descriptors[id].inputs))
	for i, in := range descriptors[id].inputs {
		out[i] = in.source
	}
	return out
}

// DividerRange returns the smallest and largest integer divider of a clock.
func DividerRange(id ClockID) (min, max uint32) {
	if id >= NumClocks {
		return 0, 0
	}
	return 1, descriptors[id].maxDivider()
}

// MaxFrequency is the rated maximum output of a clock.
func MaxFrequency(id ClockID) Hertz {
	if id >= NumClocks {
		return 0
	}
	return descriptors[id].max
}

// State is the lifecycle state of a derived clock.
type State uint8

const (
	StateUnconfigured State = iota
	StateConfigured
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateFaulted:
		return "faulted"
	default:
		return "unconfigured"
	}
}

// DerivedClock is one named clock of the tree. It is only mutated through
// Manager.Configure; every reader sees either the previous or the new
// configuration as a whole, never a mix.
type DerivedClock struct {
	id   ClockID
	desc *descriptor

	// freq<<32 | state<<30 | source<<24 | divider
	packed atomic.Uint64
}

func packConfig(freq Hertz, st State, src SourceID, div uint32) uint64 {
	return uint64(freq)<<32 | uint64(st)<<30 | uint64(src&0x3f)<<24 | uint64(div&0xffffff)
}

func (c *DerivedClock) publish(freq Hertz, st State, src SourceID, div uint32) {
	c.packed.Store(packConfig(freq, st, src, div))
}

// ID returns the clock identity.
func (c *DerivedClock) ID() ClockID { return c.id }

// SourceID lets a derived clock feed another derived clock.
func (c *DerivedClock) SourceID() SourceID { return c.id.SourceID() }

// Frequency returns the frequency cached at the last successful Configure.
// Unconfigured and faulted clocks report 0.
func (c *DerivedClock) Frequency() Hertz {
	return Hertz(c.packed.Load() >> 32)
}

// Source returns the currently selected input.
func (c *DerivedClock) Source() SourceID {
	return SourceID(c.packed.Load() >> 24 & 0x3f)
}

// Divider returns the currently programmed integer divider (0 when
// unconfigured).
func (c *DerivedClock) Divider() uint32 {
	return uint32(c.packed.Load() & 0xffffff)
}

// State returns the lifecycle state.
func (c *DerivedClock) State() State {
	return State(c.packed.Load() >> 30 & 0x3)
}

// Status is a point-in-time view of one derived clock.
type Status struct {
	Clock     ClockID  `yaml:"-"`
	Name      string   `yaml:"clock"`
	State     State    `yaml:"-"`
	StateName string   `yaml:"state"`
	Source    SourceID `yaml:"-"`
	From      string   `yaml:"source"`
	Divider   uint32   `yaml:"divider"`
	Frequency Hertz    `yaml:"frequency_hz"`
}

// Status reads all fields with a single load.
func (c *DerivedClock) Status() Status {
	v := c.packed.Load()
	st := State(v >> 30 & 0x3)
	src := SourceID(v >> 24 & 0x3f)
	return Status{
		Clock:     c.id,
		Name:      c.id.String(),
		State:     st,
		StateName: st.String(),
		Source:    src,
		From:      src.String(),
		Divider:   uint32(v & 0xffffff),
		Frequency: Hertz(v >> 32),
	}
}
