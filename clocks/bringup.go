package clocks

import "fmt"

// Tree is a Manager together with the ready sources that feed it.
type Tree struct {
	Manager *Manager

	XOSC   *StableCrystalOscillator
	ROSC   *EnabledRingOscillator
	LPOSC  LowPowerOscillator
	PLLSys *LockedPLL
	PLLUSB *LockedPLL
	GPIn   [2]*ExternalInput
}

// NewTree wraps a manager with no ready sources yet.
func NewTree(m *Manager) *Tree {
	return &Tree{Manager: m}
}

// Source resolves a source identity to the ready source behind it. Derived
// clocks are always resolvable; oscillators, PLLs and GPIN pins only once
// they are set on the tree.
func (t *Tree) Source(id SourceID) (Source, bool) {
	switch id {
	case SourceXOSC:
		return t.XOSC, t.XOSC != nil
	case SourceROSC:
		return t.ROSC, t.ROSC != nil
	case SourceLPOSC:
		return t.LPOSC, true
	case SourcePLLSys:
		return t.PLLSys, t.PLLSys != nil
	case SourcePLLUSB:
		return t.PLLUSB, t.PLLUSB != nil
	case SourceGPIN0:
		return t.GPIn[0], t.GPIn[0] != nil
	case SourceGPIN1:
		return t.GPIn[1], t.GPIn[1] != nil
	}
	if id >= SourceClkGPOut0 && id < numSources {
		return t.Manager.Clock(ClockID(id - SourceClkGPOut0)), true
	}
	return nil, false
}

// AddExternal registers a GPIN input so it can be looked up by Source.
func (t *Tree) AddExternal(in *ExternalInput) {
	switch in.SourceID() {
	case SourceGPIN0:
		t.GPIn[0] = in
	case SourceGPIN1:
		t.GPIn[1] = in
	}
}

// Configure resolves src on the tree and configures clock id from it.
func (t *Tree) Configure(id ClockID, src SourceID, policy DividerPolicy) error {
	s, ok := t.Source(src)
	if !ok {
		return &ConfigError{Clock: id, Source: src, Err: ErrInvalidSource}
	}
	return t.Manager.Configure(id, s, policy)
}

// Default clock plan
const (
	DefaultSysFrequency = 150 * MHz
	DefaultUSBFrequency = 48 * MHz
)

// InitClocksAndPLLs brings the clock tree up the way the SDK does at boot:
// crystal on, clk_ref from the crystal, both PLLs locked, clk_sys at
// 150 MHz, clk_usb and clk_adc at 48 MHz, clk_peri and clk_hstx from
// clk_sys.
//
// With a 12 MHz crystal the stock PLL presets are used; other crystals
// solve for the nearest legal settings.
func InitClocksAndPLLs(hw Hardware, xoscFreq Hertz, cfg Config) (*Tree, error) {
	m := NewManager(hw.Clocks(), cfg)
	t := NewTree(m)
	limit := m.cfg.PollLimit

	// clk_ref parks on ROSC during aux switches, so it has to be running.
	rosc, err := AdoptRingOscillator(hw.ROSC(), 0)
	if err != nil {
		debugln("[clocks] rosc not running, starting it")
		rosc, err = NewRingOscillator(hw.ROSC(), 0).Enable(limit)
	}
	if err != nil {
		return nil, err
	}
	t.ROSC = rosc

	x, err := EnableCrystalOscillator(hw.XOSC(), xoscFreq)
	if err != nil {
		return nil, err
	}
	if t.XOSC, err = x.WaitStable(limit); err != nil {
		return nil, err
	}

	// Move everything that can run from a PLL onto safe sources before the
	// PLLs are reprogrammed.
	if err := m.Configure(ClkRef, t.XOSC, Divide(1)); err != nil {
		return nil, err
	}
	if err := m.Configure(ClkSys, m.Ref(), Divide(1)); err != nil {
		return nil, err
	}

	sysCfg, usbCfg := PLLSys150MHz, PLLUSB48MHz
	if xoscFreq != 12*MHz {
		if sysCfg, err = SolvePLL(xoscFreq, DefaultSysFrequency); err != nil {
			return nil, fmt.Errorf("pll_sys: %w", err)
		}
		if usbCfg, err = SolvePLL(xoscFreq, DefaultUSBFrequency); err != nil {
			return nil, fmt.Errorf("pll_usb: %w", err)
		}
	}
	if t.PLLSys, err = NewPLL(PLLSys, hw.PLL(PLLSys)).Lock(t.XOSC, sysCfg, limit); err != nil {
		return nil, err
	}
	if t.PLLUSB, err = NewPLL(PLLUSB, hw.PLL(PLLUSB)).Lock(t.XOSC, usbCfg, limit); err != nil {
		return nil, err
	}

	steps := []struct {
		clock  ClockID
		source Source
		target Hertz
	}{
		{ClkSys, t.PLLSys, DefaultSysFrequency},
		{ClkUSB, t.PLLUSB, DefaultUSBFrequency},
		{ClkADC, t.PLLUSB, DefaultUSBFrequency},
		{ClkPeri, m.Sys(), DefaultSysFrequency},
		{ClkHSTX, m.Sys(), DefaultSysFrequency},
	}
	for _, s := range steps {
		if err := m.ConfigureFrequency(s.clock, s.source, s.target); err != nil {
			return nil, err
		}
	}
	return t, nil
}
