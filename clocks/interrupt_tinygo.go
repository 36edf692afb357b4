//go:build tinygo

package clocks

import "runtime/interrupt"

type interruptState = interrupt.State

// disableInterrupts masks interrupts for the duration of a mux switch so no
// handler runs from a clock that is mid-transition.
func disableInterrupts() interruptState {
	return interrupt.Disable()
}

func restoreInterrupts(state interruptState) {
	interrupt.Restore(state)
}
