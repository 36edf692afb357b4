// Package plan reads a clock plan from TOML and applies it to a clock
// generator: which oscillators to start, how to program the PLLs and which
// source and divider every derived clock should end up on.
//
//	[xosc]
//	frequency = "12 MHz"
//
//	[pll.sys]
//	frequency = "150 MHz"
//
//	[[clock]]
//	name = "sys"
//	source = "pll_sys"
//	divider = 1
package plan

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"picoclock/clocks"
)

var (
	ErrUnknownKey    = errors.New("unknown key")
	ErrPLLNeedsXOSC  = errors.New("pll requires a crystal reference")
	ErrAmbiguousStep = errors.New("exactly one of divider and frequency must be set")
)

// Plan is the decoded plan file.
type Plan struct {
	XOSC   XOSCSection `toml:"xosc"`
	ROSC   ROSCSection `toml:"rosc"`
	PLL    PLLSections `toml:"pll"`
	GPIn   GPInSection `toml:"gpin"`
	Clocks []ClockStep `toml:"clock"`
}

type XOSCSection struct {
	Frequency Frequency `toml:"frequency,omitzero"`
}

// ROSCSection describes the ring oscillator. It is left running unless
// enable is explicitly false.
type ROSCSection struct {
	Enable    *bool     `toml:"enable,omitempty"`
	Frequency Frequency `toml:"frequency,omitzero"`
}

func (r ROSCSection) enabled() bool { return r.Enable == nil || *r.Enable }

type PLLSections struct {
	Sys *PLLSection `toml:"sys,omitempty"`
	USB *PLLSection `toml:"usb,omitempty"`
}

// PLLSection gives the PLL dividers directly or a frequency to solve for.
type PLLSection struct {
	RefDiv    uint32    `toml:"refdiv,omitzero"`
	FBDiv     uint32    `toml:"fbdiv,omitzero"`
	PostDiv1  uint32    `toml:"postdiv1,omitzero"`
	PostDiv2  uint32    `toml:"postdiv2,omitzero"`
	Frequency Frequency `toml:"frequency,omitzero"`
}

func (s *PLLSection) explicit() bool {
	return s.RefDiv != 0 || s.FBDiv != 0 || s.PostDiv1 != 0 || s.PostDiv2 != 0
}

// Settings resolves the section against the crystal frequency.
func (s *PLLSection) Settings(ref clocks.Hertz) (clocks.PLLConfig, error) {
	switch {
	case s.explicit() && s.Frequency != 0:
		return clocks.PLLConfig{}, ErrAmbiguousStep
	case s.explicit():
		cfg := clocks.PLLConfig{RefDiv: s.RefDiv, FBDiv: s.FBDiv, PostDiv1: s.PostDiv1, PostDiv2: s.PostDiv2}
		return cfg, cfg.Validate(ref)
	case s.Frequency != 0:
		return clocks.SolvePLL(ref, s.Frequency.Hertz())
	}
	return clocks.PLLConfig{}, ErrAmbiguousStep
}

type GPInSection struct {
	GPIn0 Frequency `toml:"gpin0,omitzero"`
	GPIn1 Frequency `toml:"gpin1,omitzero"`
}

// ClockStep configures one derived clock. Steps run in file order.
type ClockStep struct {
	Name      string    `toml:"name"`
	Source    string    `toml:"source"`
	Divider   uint32    `toml:"divider,omitzero"`
	Frequency Frequency `toml:"frequency,omitzero"`
}

func (c ClockStep) resolve() (clocks.ClockID, clocks.SourceID, clocks.DividerPolicy, error) {
	id, ok := clocks.ParseClockID(c.Name)
	if !ok {
		return 0, 0, clocks.DividerPolicy{}, clocks.ErrUnknownClock
	}
	src, ok := clocks.ParseSourceID(c.Source)
	if !ok {
		return 0, 0, clocks.DividerPolicy{}, clocks.ErrInvalidSource
	}
	switch {
	case (c.Divider != 0) == (c.Frequency != 0):
		return 0, 0, clocks.DividerPolicy{}, ErrAmbiguousStep
	case c.Divider != 0:
		return id, src, clocks.Divide(c.Divider), nil
	default:
		return id, src, clocks.Target(c.Frequency.Hertz()), nil
	}
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("plan load failed (%s): %w", path, err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return p, nil
}

// Decode parses a plan and rejects keys it does not know.
func Decode(r io.Reader) (*Plan, error) {
	var p Plan
	meta, err := toml.NewDecoder(r).Decode(&p)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode writes p as TOML.
func (p *Plan) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(p)
}

// Validate checks everything that can be checked without hardware: names,
// PLL settings against the crystal, candidate sources and explicit divider
// ranges. All problems are reported together.
func (p *Plan) Validate() error {
	var errs []error
	xosc := p.XOSC.Frequency.Hertz()
	if xosc != 0 && (xosc < clocks.XoscMinFrequency || xosc > clocks.XoscMaxFrequency) {
		errs = append(errs, fmt.Errorf("xosc %s: %w", xosc, clocks.ErrFrequencyRange))
	}

	for _, pll := range []struct {
		name string
		sec  *PLLSection
	}{{"pll.sys", p.PLL.Sys}, {"pll.usb", p.PLL.USB}} {
		if pll.sec == nil {
			continue
		}
		if xosc == 0 {
			errs = append(errs, fmt.Errorf("%s: %w", pll.name, ErrPLLNeedsXOSC))
			continue
		}
		if _, err := pll.sec.Settings(xosc); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pll.name, err))
		}
	}

	for i, step := range p.Clocks {
		id, src, _, err := step.resolve()
		if err == nil && !isCandidate(id, src) {
			err = clocks.ErrInvalidSource
		}
		if err == nil && step.Divider != 0 {
			if min, max := clocks.DividerRange(id); step.Divider < min || step.Divider > max {
				err = clocks.ErrDividerRange
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("clock[%d] %s <- %s: %w", i, step.Name, step.Source, err))
		}
	}
	return errors.Join(errs...)
}

func isCandidate(id clocks.ClockID, src clocks.SourceID) bool {
	for _, c := range clocks.Candidates(id) {
		if c == src {
			return true
		}
	}
	return false
}
