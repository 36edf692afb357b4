package periph

import "picoclock/clocks"

// TickMaxCycles is the widest CYCLES value of a tick generator.
const TickMaxCycles = 511

// TickCycles returns the CYCLES value that makes a tick generator fed by
// clk_ref emit ticks at rate. The division must be exact: timers built on
// the tick would otherwise drift.
func TickCycles(ref clocks.ClockSource, rate uint32) (uint32, error) {
	freq := uint32(ref.Frequency())
	if freq == 0 {
		return 0, ErrClockStopped
	}
	if rate == 0 || freq%rate != 0 {
		return 0, ErrOutOfRange
	}
	cycles := freq / rate
	if cycles > TickMaxCycles {
		return 0, ErrOutOfRange
	}
	return cycles, nil
}
