package clocks

import (
	"sync"
)

// Config tunes the Manager. The zero value is not useful; start from
// DefaultConfig.
type Config struct {
	// TolerancePPM bounds how far a solved frequency may be from the
	// requested target.
	TolerancePPM uint32

	// PollLimit bounds every spin-wait on SELECTED. The silicon settles in
	// a few cycles of the slower input; the bound only exists so a dead
	// input is reported instead of hanging.
	PollLimit int

	// MaxFrequency overrides the rated maximum output per clock. Zero
	// entries keep the rated value.
	MaxFrequency [NumClocks]Hertz
}

// DefaultConfig returns a 0.5% tolerance and a 100k iteration poll bound.
func DefaultConfig() Config {
	return Config{
		TolerancePPM: 5000,
		PollLimit:    100_000,
	}
}

// DividerPolicy says how Configure picks the divider: an explicit integer
// or the divider that lands closest to a target frequency.
type DividerPolicy struct {
	explicit bool
	divider  uint32
	target   Hertz
}

// Divide selects an explicit integer divider.
func Divide(n uint32) DividerPolicy {
	return DividerPolicy{explicit: true, divider: n}
}

// Target asks Configure to solve for the divider closest to f.
func Target(f Hertz) DividerPolicy {
	return DividerPolicy{target: f}
}

// Manager owns the derived clocks and is the only thing that mutates them.
//
// There is one Manager per clock generator. It never takes ownership of a
// source: it reads the frequency during Configure and records the source
// identity. Callers keep sources alive for the life of the system.
type Manager struct {
	mu      sync.Mutex
	hw      ClockHardware
	cfg     Config
	clocks  [NumClocks]DerivedClock
	history switchHistory
}

// NewManager wraps the clock generator. Every derived clock starts
// unconfigured, whatever the boot code left in the registers.
func NewManager(hw ClockHardware, cfg Config) *Manager {
	if cfg.PollLimit <= 0 {
		cfg.PollLimit = DefaultConfig().PollLimit
	}
	m := &Manager{hw: hw, cfg: cfg}
	for i := range m.clocks {
		m.clocks[i].id = ClockID(i)
		m.clocks[i].desc = &descriptors[i]
	}
	return m
}

// Clock returns the derived clock with the given ID, or nil.
func (m *Manager) Clock(id ClockID) *DerivedClock {
	if id >= NumClocks {
		return nil
	}
	return &m.clocks[id]
}

func (m *Manager) Ref() *DerivedClock  { return &m.clocks[ClkRef] }
func (m *Manager) Sys() *DerivedClock  { return &m.clocks[ClkSys] }
func (m *Manager) Peri() *DerivedClock { return &m.clocks[ClkPeri] }
func (m *Manager) HSTX() *DerivedClock { return &m.clocks[ClkHSTX] }
func (m *Manager) USB() *DerivedClock  { return &m.clocks[ClkUSB] }
func (m *Manager) ADC() *DerivedClock  { return &m.clocks[ClkADC] }

// GPOut returns GPIO clock output n (0..3), or nil.
func (m *Manager) GPOut(n int) *DerivedClock {
	if n < 0 || n > 3 {
		return nil
	}
	return &m.clocks[ClkGPOut0+ClockID(n)]
}

// MaxFrequency returns the effective output limit of a clock.
func (m *Manager) MaxFrequency(id ClockID) Hertz {
	if id >= NumClocks {
		return 0
	}
	if f := m.cfg.MaxFrequency[id]; f != 0 {
		return f
	}
	return descriptors[id].max
}

// Snapshot returns the status of every derived clock.
func (m *Manager) Snapshot() []Status {
	out := make([]Status, NumClocks)
	for i := range m.clocks {
		out[i] = m.clocks[i].Status()
	}
	return out
}

// ConfigureFrequency is Configure with a Target policy.
func (m *Manager) ConfigureFrequency(id ClockID, src Source, target Hertz) error {
	return m.Configure(id, src, Target(target))
}

// Configure switches a derived clock to src with the divider chosen by
// policy.
//
// Validation happens before any register is written; on a validation error
// the previous configuration stays in place. Once the switch starts it runs
// to completion with interrupts masked.
//
// Ref and sys switch through their glitchless mux. Every other clock has
// only an aux mux, so the switch stops the output for a few cycles of the
// old frequency: no dependent operation may be in flight on those clocks.
//
// If the mux fails to confirm the new input within Config.PollLimit polls
// the clock becomes faulted: it reports 0 Hz and rejects further
// configuration.
func (m *Manager) Configure(id ClockID, src Source, policy DividerPolicy) error {
	if id >= NumClocks {
		return &ConfigError{Clock: id, Err: ErrUnknownClock}
	}
	if src == nil {
		return &ConfigError{Clock: id, Err: ErrInvalidSource}
	}

	srcFreq := src.Frequency()
	sid := src.SourceID()

	m.mu.Lock()
	defer m.mu.Unlock()

	clk := &m.clocks[id]
	prev := clk.Status()
	if prev.State == StateFaulted {
		return &ConfigError{Clock: id, Source: sid, Err: ErrClockFaulted}
	}

	in, ok := clk.desc.input(sid)
	if !ok {
		return &ConfigError{Clock: id, Source: sid, Err: ErrInvalidSource}
	}

	div, freq, err := m.resolveDivider(id, srcFreq, policy)
	if err != nil {
		return &ConfigError{Clock: id, Source: sid, Err: err}
	}

	if err := m.switchSource(clk, in, div, prev.Frequency); err != nil {
		clk.publish(0, StateFaulted, sid, div)
		m.recordSwitch(SwitchEvent{Clock: id, From: prev.Source, To: sid, Divider: div, Failed: true})
		return &ConfigError{Clock: id, Source: sid, Err: err}
	}

	clk.publish(freq, StateConfigured, sid, div)
	m.recordSwitch(SwitchEvent{Clock: id, From: prev.Source, To: sid, Divider: div, Freq: freq})
	return nil
}

// resolveDivider picks the divider and the resulting output frequency.
func (m *Manager) resolveDivider(id ClockID, srcFreq Hertz, p DividerPolicy) (uint32, Hertz, error) {
	d := &descriptors[id]
	limit := m.MaxFrequency(id)

	if p.explicit {
		if p.divider < 1 || p.divider > d.maxDivider() {
			return 0, 0, ErrDividerRange
		}
		out := srcFreq.Div(p.divider)
		if srcFreq == 0 || out == 0 || out > limit {
			return 0, 0, ErrUnachievableFrequency
		}
		return p.divider, out, nil
	}

	if srcFreq == 0 || p.target == 0 || p.target > limit {
		return 0, 0, ErrUnachievableFrequency
	}

	// Nearest integer divider, then its neighbours, since rounding can
	// land just above the limit.
	guess := (uint64(srcFreq) + uint64(p.target)/2) / uint64(p.target)
	var (
		bestDiv  uint32
		bestFreq Hertz
		bestErr  uint64
	)
	for _, c := range [...]uint64{guess, guess + 1, guess - 1} {
		if c < 1 || c > uint64(d.maxDivider()) {
			continue
		}
		out := srcFreq.Div(uint32(c))
		if out > limit {
			continue
		}
		e := absDiff(out, p.target)
		if bestDiv == 0 || e < bestErr {
			bestDiv, bestFreq, bestErr = uint32(c), out, e
		}
	}
	if bestDiv == 0 || !bestFreq.Within(p.target, m.cfg.TolerancePPM) {
		return 0, 0, ErrUnachievableFrequency
	}
	return bestDiv, bestFreq, nil
}

func absDiff(a, b Hertz) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}

// switchSource runs the register sequence. It must not be interrupted or
// cancelled once started: stopping half way leaves the mux in an undefined
// state.
func (m *Manager) switchSource(c *DerivedClock, in muxInput, div uint32, prevFreq Hertz) error {
	hw := m.hw
	id := c.id
	d := c.desc
	raw := d.encodeDivider(div)

	state := disableInterrupts()
	defer restoreInterrupts(state)

	// Raise the divider before the source so moving to a faster input
	// never overspeeds the output, even momentarily.
	if div > d.decodeDivider(hw.Divider(id)) {
		hw.SetDivider(id, raw)
	}

	if d.glitchless {
		if in.viaAux {
			// Park on the non-aux input while the aux mux changes.
			// Assumes input 0 is running (clk_ref for sys, ROSC for ref).
			hw.SetSource(id, 0)
			if !m.waitSelected(id, 0) {
				return ErrSwitchTimeout
			}
		}
	} else {
		hw.SetEnabled(id, false)
		hw.Settle(m.stopCycles(prevFreq))
	}

	if in.viaAux {
		hw.SetAuxSource(id, in.aux)
	}

	if d.glitchless {
		src := in.src
		if in.viaAux {
			src = d.auxSrc
		}
		hw.SetSource(id, src)
		if !m.waitSelected(id, src) {
			return ErrSwitchTimeout
		}
	} else {
		hw.SetEnabled(id, true)
	}

	hw.SetDivider(id, raw)
	return nil
}

func (m *Manager) waitSelected(id ClockID, src uint8) bool {
	mask := uint32(1) << src
	for i := 0; i < m.cfg.PollLimit; i++ {
		if m.hw.Selected(id)&mask != 0 {
			return true
		}
	}
	return false
}

// stopCycles is how long, in clk_sys cycles, to hold ENABLE low so the
// disable propagates: three cycles of the old output. Unknown frequencies
// assume the worst case (fast sys, LPOSC-slow output).
func (m *Manager) stopCycles(prevFreq Hertz) uint32 {
	sys := m.clocks[ClkSys].Frequency()
	if sys == 0 {
		sys = m.MaxFrequency(ClkSys)
	}
	if prevFreq == 0 {
		prevFreq = LowPowerFrequency
	}
	return 3 * (uint32(sys/prevFreq) + 1)
}
