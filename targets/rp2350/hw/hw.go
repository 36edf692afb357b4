//go:build rp2350

// Package hw drives the RP2350 CLOCKS, XOSC, ROSC and PLL blocks through
// their memory mapped registers.
package hw

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"

	"picoclock/clocks"
)

// RP2350 clock generator memory map
//
// CLOCKS has one 12 byte slice per clock, in ClockID order:
// CTRL @ 0x00, DIV @ 0x04, SELECTED @ 0x08.
const (
	clocksBase  = 0x40010000
	sliceStride = 0x0c

	xoscBase   = 0x40048000
	roscBase   = 0x400e8000
	pllSysBase = 0x40050000
	pllUSBBase = 0x40058000
)

// CTRL fields
const (
	ctrlEnable     = 1 << 11
	ctrlAuxShift   = 5
	ctrlAuxMask    = 0x7 << ctrlAuxShift
	ctrlGPOutMask  = 0xf << ctrlAuxShift // gpout AUXSRC is one bit wider
	ctrlRefSrcMask = 0x3
	ctrlSysSrcMask = 0x1
)

type slice struct {
	ctrl     volatile.Register32
	div      volatile.Register32
	selected volatile.Register32
}

// clockGen implements clocks.ClockHardware on the CLOCKS block.
type clockGen struct{}

func (clockGen) slice(id clocks.ClockID) *slice {
	return (*slice)(unsafe.Pointer(uintptr(clocksBase + sliceStride*uintptr(id))))
}

func (g clockGen) Divider(id clocks.ClockID) uint32 {
	return g.slice(id).div.Get()
}

func (g clockGen) SetDivider(id clocks.ClockID, raw uint32) {
	g.slice(id).div.Set(raw)
}

func (g clockGen) SetAuxSource(id clocks.ClockID, aux uint8) {
	mask := uint32(ctrlAuxMask)
	if id <= clocks.ClkGPOut3 {
		mask = ctrlGPOutMask
	}
	g.slice(id).ctrl.ReplaceBits(uint32(aux), mask>>ctrlAuxShift, ctrlAuxShift)
}

func (g clockGen) SetSource(id clocks.ClockID, src uint8) {
	mask := uint32(ctrlSysSrcMask)
	if id == clocks.ClkRef {
		mask = ctrlRefSrcMask
	}
	g.slice(id).ctrl.ReplaceBits(uint32(src), mask, 0)
}

func (g clockGen) Selected(id clocks.ClockID) uint32 {
	if id != clocks.ClkRef && id != clocks.ClkSys {
		return 1
	}
	return g.slice(id).selected.Get()
}

func (g clockGen) SetEnabled(id clocks.ClockID, enabled bool) {
	if id == clocks.ClkRef || id == clocks.ClkSys {
		return
	}
	if enabled {
		g.slice(id).ctrl.SetBits(ctrlEnable)
	} else {
		g.slice(id).ctrl.ClearBits(ctrlEnable)
	}
}

func (clockGen) Settle(cycles uint32) {
	for i := uint32(0); i < cycles; i++ {
		arm.Asm("nop")
	}
}

// XOSC
// CTRL @ 0x00 (FREQ_RANGE 11:0, ENABLE 23:12), STATUS @ 0x04 (STABLE 31),
// STARTUP @ 0x0c (DELAY 13:0)
type xoscRegs struct {
	ctrl    volatile.Register32
	status  volatile.Register32
	dormant volatile.Register32
	startup volatile.Register32
}

const (
	enableMagic  = 0xfab
	enableShift  = 12
	statusStable = 1 << 31
)

type xosc struct{ regs *xoscRegs }

func (x xosc) Start(freqRange, startupDelay uint32) {
	x.regs.ctrl.ReplaceBits(freqRange, 0xfff, 0)
	x.regs.startup.ReplaceBits(startupDelay, 0x3fff, 0)
	x.regs.ctrl.ReplaceBits(enableMagic, 0xfff, enableShift)
}

func (x xosc) Stable() bool { return x.regs.status.HasBits(statusStable) }

// ROSC: CTRL (ENABLE 23:12), STATUS (STABLE 31). Offsets in regs.go.
type rosc struct {
	ctrl   *volatile.Register32
	status *volatile.Register32
}

func (r rosc) Start()       { r.ctrl.ReplaceBits(enableMagic, 0xfff, enableShift) }
func (r rosc) Stable() bool { return r.status.HasBits(statusStable) }

// PLL
// CS @ 0x00 (REFDIV 5:0, LOCK 31), PWR @ 0x04, FBDIV_INT @ 0x08,
// PRIM @ 0x0c (POSTDIV1 18:16, POSTDIV2 14:12)
type pllRegs struct {
	cs    volatile.Register32
	pwr   volatile.Register32
	fbdiv volatile.Register32
	prim  volatile.Register32
}

const (
	pllLock        = 1 << 31
	pwrPD          = 1 << 0
	pwrDSMPD       = 1 << 2
	pwrPostDivPD   = 1 << 3
	pwrVCOPD       = 1 << 5
	primPostDiv1At = 16
	primPostDiv2At = 12
)

type pll struct{ regs *pllRegs }

func (p pll) PowerDown() {
	p.regs.pwr.Set(pwrPD | pwrDSMPD | pwrPostDivPD | pwrVCOPD)
}

func (p pll) Program(refdiv, fbdiv uint32) {
	p.regs.cs.Set(refdiv)
	p.regs.fbdiv.Set(fbdiv)
	p.regs.pwr.ClearBits(pwrPD | pwrVCOPD)
}

func (p pll) Locked() bool { return p.regs.cs.HasBits(pllLock) }

func (p pll) StartPostDividers(postdiv1, postdiv2 uint32) {
	p.regs.prim.Set(postdiv1<<primPostDiv1At | postdiv2<<primPostDiv2At)
	p.regs.pwr.ClearBits(pwrPostDivPD)
}

func (p pll) Settings() (refdiv, fbdiv, postdiv1, postdiv2 uint32) {
	prim := p.regs.prim.Get()
	return p.regs.cs.Get() & 0x3f, p.regs.fbdiv.Get() & 0xfff,
		prim >> primPostDiv1At & 0x7, prim >> primPostDiv2At & 0x7
}

// Hardware bundles the register backends for clocks.InitClocksAndPLLs.
type Hardware struct {
	pll [2]pll
}

func New() *Hardware {
	return &Hardware{pll: [2]pll{
		{regs: (*pllRegs)(unsafe.Pointer(uintptr(pllSysBase)))},
		{regs: (*pllRegs)(unsafe.Pointer(uintptr(pllUSBBase)))},
	}}
}

func (h *Hardware) Clocks() clocks.ClockHardware { return clockGen{} }

func (h *Hardware) XOSC() clocks.XoscHardware {
	return xosc{regs: (*xoscRegs)(unsafe.Pointer(uintptr(xoscBase)))}
}

func (h *Hardware) ROSC() clocks.RoscHardware {
	return rosc{
		ctrl:   (*volatile.Register32)(unsafe.Pointer(uintptr(roscBase + roscCtrl))),
		status: (*volatile.Register32)(unsafe.Pointer(uintptr(roscBase + roscStatus))),
	}
}

func (h *Hardware) PLL(instance clocks.PLLInstance) clocks.PLLHardware {
	return h.pll[instance]
}
