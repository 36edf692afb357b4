//go:build rp2350

package main

import (
	"runtime/volatile"
	"unsafe"

	"picoclock/clocks"
	"picoclock/periph"
)

// RP2350 tick generators
//
// TICKS has one generator per consumer, 12 bytes each:
// CTRL @ 0x00 (ENABLE 0), CYCLES @ 0x04, COUNT @ 0x08.
// Order: PROC0, PROC1, TIMER0, TIMER1, WATCHDOG, RISCV.
const (
	ticksBase    = 0x40108000
	tickStride   = 0x0c
	tickTimer0   = 2
	tickTimer1   = 3
	tickWatchdog = 4
)

type tickGen struct {
	ctrl   volatile.Register32
	cycles volatile.Register32
	count  volatile.Register32
}

func tick(index uintptr) *tickGen {
	return (*tickGen)(unsafe.Pointer(uintptr(ticksBase + tickStride*index)))
}

// InitClock programs the timer and watchdog tick generators for a 1 MHz
// tick from clk_ref. The timers count microseconds only if clk_ref divides
// down to exactly 1 MHz.
func InitClock(tree *clocks.Tree) {
	cycles, err := periph.TickCycles(tree.Manager.Ref(), 1_000_000)
	if err != nil {
		DebugPrintln("tick: clk_ref " + tree.Manager.Ref().Frequency().String() + ": " + err.Error())
		return
	}
	for _, i := range []uintptr{tickTimer0, tickTimer1, tickWatchdog} {
		t := tick(i)
		t.ctrl.ClearBits(1)
		t.cycles.Set(cycles)
		t.ctrl.SetBits(1)
	}
}
