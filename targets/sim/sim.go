// Package sim is a register-level model of the RP2350 clock generator,
// crystal and ring oscillators and PLLs. It implements the clocks hardware
// interfaces so the whole clock tree can run on the host.
package sim

import (
	"sync"

	"picoclock/clocks"
)

// Config sets the physical behaviour of the simulated chip.
type Config struct {
	XOSC clocks.Hertz    // crystal fitted to the board
	ROSC clocks.Hertz    // actual ring oscillator output
	GPIn [2]clocks.Hertz // signals driven onto GPIN0/GPIN1

	StartupPolls int // Stable() calls before XOSC reports stable
	LockPolls    int // Locked() calls before a PLL reports lock
}

// DefaultConfig is a Pico 2 board: 12 MHz crystal, nothing on GPIN.
func DefaultConfig() Config {
	return Config{
		XOSC:         12 * clocks.MHz,
		ROSC:         clocks.RingOscillatorNominal,
		StartupPolls: 3,
		LockPolls:    5,
	}
}

// OpKind identifies a journaled clock generator write.
type OpKind uint8

const (
	OpDivider OpKind = iota
	OpAuxSource
	OpSource
	OpEnable
	OpDisable
	OpSettle
)

func (k OpKind) String() string {
	switch k {
	case OpDivider:
		return "div"
	case OpAuxSource:
		return "auxsrc"
	case OpSource:
		return "src"
	case OpEnable:
		return "enable"
	case OpDisable:
		return "disable"
	case OpSettle:
		return "settle"
	}
	return "?"
}

// Op is one journaled write.
type Op struct {
	Clock clocks.ClockID
	Kind  OpKind
	Value uint32
}

type slice struct {
	src      uint8
	aux      uint8
	enabled  bool
	div      uint32
	stuck    bool  // SELECTED no longer follows SRC
	selected uint8 // SRC value SELECTED reports
}

// Machine is the simulated chip.
type Machine struct {
	cfg Config

	mu      sync.Mutex
	slices  [clocks.NumClocks]slice
	journal []Op

	xosc Xosc
	rosc Rosc
	pll  [2]PLL
}

// New returns a machine in the state the boot ROM leaves it in: ROSC
// running, clk_ref on ROSC, clk_sys on clk_ref, everything else stopped.
func New(cfg Config) *Machine {
	m := &Machine{cfg: cfg}
	for i := range m.slices {
		m.slices[i].div = 1 << 16
	}
	m.slices[clocks.ClkRef].enabled = true
	m.slices[clocks.ClkSys].enabled = true
	m.xosc.startupPolls = cfg.StartupPolls
	m.rosc.running = true
	for i := range m.pll {
		m.pll[i].lockPolls = cfg.LockPolls
	}
	return m
}

func (m *Machine) Clocks() clocks.ClockHardware { return m }
func (m *Machine) XOSC() clocks.XoscHardware    { return &m.xosc }
func (m *Machine) ROSC() clocks.RoscHardware    { return &m.rosc }

func (m *Machine) PLL(instance clocks.PLLInstance) clocks.PLLHardware {
	return &m.pll[instance]
}

// XoscBlock exposes the crystal model for assertions and fault injection.
func (m *Machine) XoscBlock() *Xosc { return &m.xosc }

// RoscBlock exposes the ring oscillator model.
func (m *Machine) RoscBlock() *Rosc { return &m.rosc }

// PLLBlock exposes one PLL model.
func (m *Machine) PLLBlock(instance clocks.PLLInstance) *PLL { return &m.pll[instance] }

// StickMux freezes SELECTED on a glitchless slice: it keeps reporting the
// input selected at the time of the call.
func (m *Machine) StickMux(id clocks.ClockID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slices[id].stuck = true
}

// Journal returns a copy of every clock generator write so far.
func (m *Machine) Journal() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Op(nil), m.journal...)
}

// ResetJournal discards the journal.
func (m *Machine) ResetJournal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = m.journal[:0]
}

func (m *Machine) record(id clocks.ClockID, k OpKind, v uint32) {
	m.journal = append(m.journal, Op{Clock: id, Kind: k, Value: v})
}

// ClockHardware

func (m *Machine) Divider(id clocks.ClockID) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slices[id].div
}

func (m *Machine) SetDivider(id clocks.ClockID, raw uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slices[id].div = raw
	m.record(id, OpDivider, raw)
}

func (m *Machine) SetAuxSource(id clocks.ClockID, aux uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slices[id].aux = aux
	m.record(id, OpAuxSource, uint32(aux))
}

func (m *Machine) SetSource(id clocks.ClockID, src uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &m.slices[id]
	s.src = src
	if !s.stuck {
		s.selected = src
	}
	m.record(id, OpSource, uint32(src))
}

func (m *Machine) Selected(id clocks.ClockID) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !glitchless(id) {
		return 1
	}
	return 1 << m.slices[id].selected
}

func (m *Machine) SetEnabled(id clocks.ClockID, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if glitchless(id) {
		return
	}
	m.slices[id].enabled = enabled
	if enabled {
		m.record(id, OpEnable, 1)
	} else {
		m.record(id, OpDisable, 0)
	}
}

func (m *Machine) Settle(cycles uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(clocks.NumClocks, OpSettle, cycles)
}

func glitchless(id clocks.ClockID) bool {
	return id == clocks.ClkRef || id == clocks.ClkSys
}

// Xosc models the crystal oscillator.
type Xosc struct {
	enabled      bool
	neverStable  bool
	freqRange    uint32
	startupDelay uint32
	startupPolls int
	polls        int
}

func (x *Xosc) Start(freqRange, startupDelay uint32) {
	x.enabled = true
	x.freqRange = freqRange
	x.startupDelay = startupDelay
	x.polls = 0
}

func (x *Xosc) Stable() bool {
	if !x.enabled || x.neverStable {
		return false
	}
	x.polls++
	return x.polls > x.startupPolls
}

// Fail makes the crystal never report stable.
func (x *Xosc) Fail() { x.neverStable = true }

// Enabled reports whether Start was called.
func (x *Xosc) Enabled() bool { return x.enabled }

// Programming returns the FREQ_RANGE and STARTUP.DELAY values written.
func (x *Xosc) Programming() (freqRange, startupDelay uint32) {
	return x.freqRange, x.startupDelay
}

// Rosc models the ring oscillator.
type Rosc struct {
	running bool
	dead    bool
}

func (r *Rosc) Start()       { r.running = true }
func (r *Rosc) Stable() bool { return r.running && !r.dead }

// Stop halts the ring oscillator.
func (r *Rosc) Stop() { r.running = false }

// Fail makes the ring oscillator never report stable.
func (r *Rosc) Fail() { r.dead = true }

// PLL models one PLL block.
type PLL struct {
	powered    bool
	refdiv     uint32
	fbdiv      uint32
	postdiv1   uint32
	postdiv2   uint32
	postOn     bool
	lockPolls  int
	polls      int
	neverLock  bool
	programmed int
}

func (p *PLL) PowerDown() {
	p.powered = false
	p.postOn = false
	p.polls = 0
}

func (p *PLL) Program(refdiv, fbdiv uint32) {
	p.refdiv = refdiv
	p.fbdiv = fbdiv
	p.powered = true
	p.polls = 0
	p.programmed++
}

func (p *PLL) Locked() bool {
	if !p.powered || p.neverLock {
		return false
	}
	p.polls++
	return p.polls > p.lockPolls
}

func (p *PLL) StartPostDividers(postdiv1, postdiv2 uint32) {
	p.postdiv1 = postdiv1
	p.postdiv2 = postdiv2
	p.postOn = true
}

func (p *PLL) Settings() (refdiv, fbdiv, postdiv1, postdiv2 uint32) {
	return p.refdiv, p.fbdiv, p.postdiv1, p.postdiv2
}

// Fail makes the PLL never lock.
func (p *PLL) Fail() { p.neverLock = true }

// ProgramCount is how many times Program was called.
func (p *PLL) ProgramCount() int { return p.programmed }

// Preload leaves the PLL locked with the given settings, as a bootloader
// would.
func (p *PLL) Preload(cfg clocks.PLLConfig) {
	p.refdiv, p.fbdiv = cfg.RefDiv, cfg.FBDiv
	p.postdiv1, p.postdiv2 = cfg.PostDiv1, cfg.PostDiv2
	p.powered, p.postOn = true, true
	p.polls = p.lockPolls
}
