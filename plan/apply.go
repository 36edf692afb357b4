package plan

import (
	"fmt"

	"picoclock/clocks"
)

// Apply brings up the sources the plan names and then runs its clock steps
// in order. ROSC is adopted if it is already running.
//
// When the plan locks a PLL, clk_ref and clk_sys are first parked on the
// crystal so nothing runs from a PLL while it is reprogrammed.
func (p *Plan) Apply(hw clocks.Hardware, cfg clocks.Config) (*clocks.Tree, error) {
	m := clocks.NewManager(hw.Clocks(), cfg)
	t := clocks.NewTree(m)
	limit := cfg.PollLimit

	if p.ROSC.enabled() {
		nominal := p.ROSC.Frequency.Hertz()
		rosc, err := clocks.AdoptRingOscillator(hw.ROSC(), nominal)
		if err != nil {
			rosc, err = clocks.NewRingOscillator(hw.ROSC(), nominal).Enable(limit)
		}
		if err != nil {
			return nil, err
		}
		t.ROSC = rosc
	}

	if f := p.XOSC.Frequency.Hertz(); f != 0 {
		x, err := clocks.EnableCrystalOscillator(hw.XOSC(), f)
		if err != nil {
			return nil, err
		}
		if t.XOSC, err = x.WaitStable(limit); err != nil {
			return nil, err
		}
	}

	if f := p.GPIn.GPIn0.Hertz(); f != 0 {
		t.AddExternal(clocks.NewGPIn0(f))
	}
	if f := p.GPIn.GPIn1.Hertz(); f != 0 {
		t.AddExternal(clocks.NewGPIn1(f))
	}

	if p.PLL.Sys != nil || p.PLL.USB != nil {
		if t.XOSC == nil {
			return nil, ErrPLLNeedsXOSC
		}
		if err := m.Configure(clocks.ClkRef, t.XOSC, clocks.Divide(1)); err != nil {
			return nil, err
		}
		if err := m.Configure(clocks.ClkSys, m.Ref(), clocks.Divide(1)); err != nil {
			return nil, err
		}
	}
	if p.PLL.Sys != nil {
		locked, err := lockPLL(hw, t.XOSC, clocks.PLLSys, p.PLL.Sys, limit)
		if err != nil {
			return nil, err
		}
		t.PLLSys = locked
	}
	if p.PLL.USB != nil {
		locked, err := lockPLL(hw, t.XOSC, clocks.PLLUSB, p.PLL.USB, limit)
		if err != nil {
			return nil, err
		}
		t.PLLUSB = locked
	}

	for i, step := range p.Clocks {
		id, src, policy, err := step.resolve()
		if err == nil {
			err = t.Configure(id, src, policy)
		}
		if err != nil {
			return t, fmt.Errorf("clock[%d]: %w", i, err)
		}
	}
	return t, nil
}

func lockPLL(hw clocks.Hardware, ref *clocks.StableCrystalOscillator, inst clocks.PLLInstance, sec *PLLSection, limit int) (*clocks.LockedPLL, error) {
	cfg, err := sec.Settings(ref.Frequency())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inst, err)
	}
	return clocks.NewPLL(inst, hw.PLL(inst)).Lock(ref, cfg, limit)
}

// Default is the stock bring-up for a board with the given crystal: both
// PLLs from the crystal, clk_sys at 150 MHz, USB and ADC at 48 MHz, the
// peripheral clocks from clk_sys.
func Default(xosc clocks.Hertz) *Plan {
	return &Plan{
		XOSC: XOSCSection{Frequency: Frequency(xosc)},
		PLL: PLLSections{
			Sys: &PLLSection{Frequency: Frequency(clocks.DefaultSysFrequency)},
			USB: &PLLSection{Frequency: Frequency(clocks.DefaultUSBFrequency)},
		},
		Clocks: []ClockStep{
			{Name: "ref", Source: "xosc", Divider: 1},
			{Name: "sys", Source: "pll_sys", Divider: 1},
			{Name: "usb", Source: "pll_usb", Divider: 1},
			{Name: "adc", Source: "pll_usb", Divider: 1},
			{Name: "peri", Source: "clk_sys", Divider: 1},
			{Name: "hstx", Source: "clk_sys", Divider: 1},
		},
	}
}
