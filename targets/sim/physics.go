package sim

import "picoclock/clocks"

// Mux wiring as laid out in the CLOCKS register description. Index is the
// SRC or AUXSRC field value.
var (
	refSrc = []clocks.SourceID{clocks.SourceROSC, auxInput, clocks.SourceXOSC, clocks.SourceLPOSC}
	refAux = []clocks.SourceID{clocks.SourcePLLUSB, clocks.SourceGPIN0, clocks.SourceGPIN1}
	sysSrc = []clocks.SourceID{clocks.SourceClkRef, auxInput}
	sysAux = []clocks.SourceID{
		clocks.SourcePLLSys, clocks.SourcePLLUSB, clocks.SourceROSC,
		clocks.SourceXOSC, clocks.SourceGPIN0, clocks.SourceGPIN1,
	}
	periAux = []clocks.SourceID{
		clocks.SourceClkSys, clocks.SourcePLLSys, clocks.SourcePLLUSB, clocks.SourceROSC,
		clocks.SourceXOSC, clocks.SourceGPIN0, clocks.SourceGPIN1,
	}
	hstxAux = []clocks.SourceID{
		clocks.SourceClkSys, clocks.SourcePLLSys, clocks.SourcePLLUSB,
		clocks.SourceGPIN0, clocks.SourceGPIN1,
	}
	usbAux = []clocks.SourceID{
		clocks.SourcePLLUSB, clocks.SourcePLLSys, clocks.SourceROSC,
		clocks.SourceXOSC, clocks.SourceGPIN0, clocks.SourceGPIN1,
	}
	gpoutAux = []clocks.SourceID{
		clocks.SourcePLLSys, clocks.SourceGPIN0, clocks.SourceGPIN1, clocks.SourcePLLUSB,
		clocks.SourceNone, // pll_usb_primary_ref_opcg
		clocks.SourceROSC, clocks.SourceXOSC, clocks.SourceLPOSC,
		clocks.SourceClkSys, clocks.SourceClkUSB, clocks.SourceClkADC,
		clocks.SourceClkRef, clocks.SourceClkPeri, clocks.SourceClkHSTX,
	}
)

// auxInput marks the SRC value that routes the aux mux through.
const auxInput = clocks.SourceNone

func pick(table []clocks.SourceID, v uint8) clocks.SourceID {
	if int(v) < len(table) {
		return table[v]
	}
	return clocks.SourceNone
}

// Input returns the source physically selected by a slice's mux.
func (m *Machine) Input(id clocks.ClockID) clocks.SourceID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input(id)
}

func (m *Machine) input(id clocks.ClockID) clocks.SourceID {
	s := &m.slices[id]
	switch id {
	case clocks.ClkRef:
		if s.src == 1 {
			return pick(refAux, s.aux)
		}
		return pick(refSrc, s.src)
	case clocks.ClkSys:
		if s.src == 1 {
			return pick(sysAux, s.aux)
		}
		return pick(sysSrc, s.src)
	case clocks.ClkPeri:
		return pick(periAux, s.aux)
	case clocks.ClkHSTX:
		return pick(hstxAux, s.aux)
	case clocks.ClkUSB, clocks.ClkADC:
		return pick(usbAux, s.aux)
	default:
		return pick(gpoutAux, s.aux)
	}
}

// Frequency is the frequency actually coming out of a slice, derived from
// the register state rather than anything the clocks package cached.
func (m *Machine) Frequency(id clocks.ClockID) clocks.Hertz {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output(id)
}

func (m *Machine) output(id clocks.ClockID) clocks.Hertz {
	s := &m.slices[id]
	if !s.enabled {
		return 0
	}
	_, max := clocks.DividerRange(id)
	div := (s.div >> 16) & (max - 1)
	if div == 0 {
		div = max
	}
	return m.sourceFrequency(m.input(id)).Div(div)
}

func (m *Machine) sourceFrequency(src clocks.SourceID) clocks.Hertz {
	switch src {
	case clocks.SourceXOSC:
		if m.xosc.enabled && !m.xosc.neverStable {
			return m.cfg.XOSC
		}
		return 0
	case clocks.SourceROSC:
		if m.rosc.Stable() {
			return m.cfg.ROSC
		}
		return 0
	case clocks.SourceLPOSC:
		return clocks.LowPowerFrequency
	case clocks.SourceGPIN0:
		return m.cfg.GPIn[0]
	case clocks.SourceGPIN1:
		return m.cfg.GPIn[1]
	case clocks.SourcePLLSys, clocks.SourcePLLUSB:
		p := &m.pll[clocks.PLLSys]
		if src == clocks.SourcePLLUSB {
			p = &m.pll[clocks.PLLUSB]
		}
		return p.output(m.sourceFrequency(clocks.SourceXOSC))
	case clocks.SourceNone:
		return 0
	}
	return m.output(clocks.ClockID(src - clocks.SourceClkGPOut0))
}

func (p *PLL) output(ref clocks.Hertz) clocks.Hertz {
	if !p.powered || !p.postOn || p.neverLock || p.refdiv == 0 || ref == 0 {
		return 0
	}
	return clocks.PLLConfig{RefDiv: p.refdiv, FBDiv: p.fbdiv, PostDiv1: p.postdiv1, PostDiv2: p.postdiv2}.Output(ref)
}
