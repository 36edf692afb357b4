package clocks

import "fmt"

// PLLInstance selects one of the two PLL blocks.
type PLLInstance uint8

const (
	PLLSys PLLInstance = iota
	PLLUSB
)

func (p PLLInstance) String() string {
	if p == PLLUSB {
		return "pll_usb"
	}
	return "pll_sys"
}

// SourceID returns the identity the PLL output has as a clock input.
func (p PLLInstance) SourceID() SourceID {
	if p == PLLUSB {
		return SourcePLLUSB
	}
	return SourcePLLSys
}

// PLL limits (RP2350 datasheet, section 8.6)
const (
	PLLMinRefDiv   = 1
	PLLMaxRefDiv   = 63
	PLLMinFBDiv    = 16
	PLLMaxFBDiv    = 320
	PLLMinPostDiv  = 1
	PLLMaxPostDiv  = 7
	PLLMinVCO      = 750 * MHz
	PLLMaxVCO      = 1600 * MHz
	PLLMinRefInput = 5 * MHz
)

// PLLConfig holds the divider settings of one PLL.
type PLLConfig struct {
	RefDiv   uint32 `toml:"refdiv"`
	FBDiv    uint32 `toml:"fbdiv"`
	PostDiv1 uint32 `toml:"postdiv1"`
	PostDiv2 uint32 `toml:"postdiv2"`
}

// Presets for a 12 MHz crystal.
var (
	PLLSys150MHz = PLLConfig{RefDiv: 1, FBDiv: 125, PostDiv1: 5, PostDiv2: 2} // VCO 1500 MHz
	PLLSys125MHz = PLLConfig{RefDiv: 1, FBDiv: 125, PostDiv1: 6, PostDiv2: 2} // VCO 1500 MHz
	PLLUSB48MHz  = PLLConfig{RefDiv: 1, FBDiv: 120, PostDiv1: 6, PostDiv2: 5} // VCO 1440 MHz
)

// VCO returns the oscillator frequency for the given reference.
func (c PLLConfig) VCO(ref Hertz) Hertz {
	return ref.MulDiv(c.FBDiv, c.RefDiv)
}

// Output returns the post-divided PLL output for the given reference.
func (c PLLConfig) Output(ref Hertz) Hertz {
	return c.VCO(ref).Div(c.PostDiv1 * c.PostDiv2)
}

// Validate checks every divider and the resulting VCO frequency against the
// hardware limits.
func (c PLLConfig) Validate(ref Hertz) error {
	switch {
	case c.RefDiv < PLLMinRefDiv || c.RefDiv > PLLMaxRefDiv:
		return fmt.Errorf("%w: refdiv %d not in %d..%d", ErrInvalidPLLConfig, c.RefDiv, PLLMinRefDiv, PLLMaxRefDiv)
	case c.FBDiv < PLLMinFBDiv || c.FBDiv > PLLMaxFBDiv:
		return fmt.Errorf("%w: fbdiv %d not in %d..%d", ErrInvalidPLLConfig, c.FBDiv, PLLMinFBDiv, PLLMaxFBDiv)
	case c.PostDiv1 < PLLMinPostDiv || c.PostDiv1 > PLLMaxPostDiv:
		return fmt.Errorf("%w: postdiv1 %d not in %d..%d", ErrInvalidPLLConfig, c.PostDiv1, PLLMinPostDiv, PLLMaxPostDiv)
	case c.PostDiv2 < PLLMinPostDiv || c.PostDiv2 > PLLMaxPostDiv:
		return fmt.Errorf("%w: postdiv2 %d not in %d..%d", ErrInvalidPLLConfig, c.PostDiv2, PLLMinPostDiv, PLLMaxPostDiv)
	}
	if ref.Div(c.RefDiv) < PLLMinRefInput {
		return fmt.Errorf("%w: reference %s / %d below %s", ErrInvalidPLLConfig, ref, c.RefDiv, PLLMinRefInput)
	}
	if vco := c.VCO(ref); vco < PLLMinVCO || vco > PLLMaxVCO {
		return fmt.Errorf("%w: vco %s outside %s..%s", ErrInvalidPLLConfig, vco, PLLMinVCO, PLLMaxVCO)
	}
	return nil
}

const pllSolveTolerancePPM = 5000

// SolvePLL searches for the legal configuration whose output is closest to
// target. Only postdiv1 >= postdiv2 is tried; ties go to the higher VCO.
func SolvePLL(ref, target Hertz) (PLLConfig, error) {
	if ref == 0 || target == 0 {
		return PLLConfig{}, ErrUnachievableFrequency
	}
	var (
		best    PLLConfig
		bestVCO Hertz
		bestErr uint64 = ^uint64(0)
	)
	for refdiv := uint32(PLLMinRefDiv); refdiv <= PLLMaxRefDiv; refdiv++ {
		if ref.Div(refdiv) < PLLMinRefInput {
			break
		}
		for fbdiv := uint32(PLLMinFBDiv); fbdiv <= PLLMaxFBDiv; fbdiv++ {
			vco := uint64(ref) * uint64(fbdiv) / uint64(refdiv)
			if vco < uint64(PLLMinVCO) || vco > uint64(PLLMaxVCO) {
				continue
			}
			for pd1 := uint32(PLLMaxPostDiv); pd1 >= PLLMinPostDiv; pd1-- {
				for pd2 := pd1; pd2 >= PLLMinPostDiv; pd2-- {
					out := vco / uint64(pd1*pd2)
					e := out - uint64(target)
					if out < uint64(target) {
						e = uint64(target) - out
					}
					if e < bestErr || (e == bestErr && Hertz(vco) > bestVCO) {
						best = PLLConfig{RefDiv: refdiv, FBDiv: fbdiv, PostDiv1: pd1, PostDiv2: pd2}
						bestVCO, bestErr = Hertz(vco), e
					}
				}
			}
		}
	}
	if bestErr == ^uint64(0) || !best.Output(ref).Within(target, pllSolveTolerancePPM) {
		return PLLConfig{}, fmt.Errorf("%w: no pll setting reaches %s from %s", ErrUnachievableFrequency, target, ref)
	}
	return best, nil
}

// PhaseLockedLoop is a PLL that has not locked yet. It has no Frequency
// method.
type PhaseLockedLoop struct {
	instance PLLInstance
	hw       PLLHardware
	consumed bool
}

// NewPLL wraps an unlocked PLL block.
func NewPLL(instance PLLInstance, hw PLLHardware) *PhaseLockedLoop {
	return &PhaseLockedLoop{instance: instance, hw: hw}
}

// Instance returns which PLL this is.
func (p *PhaseLockedLoop) Instance() PLLInstance { return p.instance }

// Lock programs the PLL from ref and waits up to limit polls for lock.
//
// A PLL that is already locked with identical settings is left alone, so
// the PLL currently feeding clk_sys can be wrapped without a glitch.
//
// On success the handle is consumed; using it again panics. On error it
// stays usable.
func (p *PhaseLockedLoop) Lock(ref ClockSource, cfg PLLConfig, limit int) (*LockedPLL, error) {
	if p.consumed {
		panic("clocks: pll handle already consumed")
	}
	refFreq := ref.Frequency()
	if err := cfg.Validate(refFreq); err != nil {
		return nil, fmt.Errorf("%s: %w", p.instance, err)
	}

	if !p.hw.Locked() || !sameSettings(p.hw, cfg) {
		p.hw.PowerDown()
		p.hw.Program(cfg.RefDiv, cfg.FBDiv)
		if !pollUntil(limit, p.hw.Locked) {
			return nil, fmt.Errorf("%s: %w", p.instance, ErrNotLocked)
		}
		p.hw.StartPostDividers(cfg.PostDiv1, cfg.PostDiv2)
	}

	p.consumed = true
	debugln("[clocks] " + p.instance.String() + " locked at " + cfg.Output(refFreq).String())
	return &LockedPLL{instance: p.instance, cfg: cfg, ref: refFreq, freq: cfg.Output(refFreq)}, nil
}

func sameSettings(hw PLLHardware, cfg PLLConfig) bool {
	refdiv, fbdiv, pd1, pd2 := hw.Settings()
	return refdiv == cfg.RefDiv && fbdiv == cfg.FBDiv && pd1 == cfg.PostDiv1 && pd2 == cfg.PostDiv2
}

// LockedPLL is a PLL whose output is running.
type LockedPLL struct {
	instance PLLInstance
	cfg      PLLConfig
	ref      Hertz
	freq     Hertz
}

// AdoptPLL wraps a PLL the boot code already locked. The dividers are read
// back from the hardware; ref must be the reference it was locked from.
func AdoptPLL(instance PLLInstance, hw PLLHardware, ref ClockSource) (*LockedPLL, error) {
	if !hw.Locked() {
		return nil, fmt.Errorf("%s: %w", instance, ErrNotLocked)
	}
	var cfg PLLConfig
	cfg.RefDiv, cfg.FBDiv, cfg.PostDiv1, cfg.PostDiv2 = hw.Settings()
	refFreq := ref.Frequency()
	if err := cfg.Validate(refFreq); err != nil {
		return nil, fmt.Errorf("%s: %w", instance, err)
	}
	return &LockedPLL{instance: instance, cfg: cfg, ref: refFreq, freq: cfg.Output(refFreq)}, nil
}

func (l *LockedPLL) Frequency() Hertz          { return l.freq }
func (l *LockedPLL) SourceID() SourceID        { return l.instance.SourceID() }
func (l *LockedPLL) Instance() PLLInstance     { return l.instance }
func (l *LockedPLL) Config() PLLConfig         { return l.cfg }
func (l *LockedPLL) VCO() Hertz                { return l.cfg.VCO(l.ref) }
func (l *LockedPLL) ReferenceFrequency() Hertz { return l.ref }
