//go:build !tinygo

package clocks

// interruptState stands in for runtime/interrupt.State on hosted builds.
type interruptState uintptr

// disableInterrupts is a no-op outside TinyGo; the simulator has no ISRs.
func disableInterrupts() interruptState {
	return 0
}

func restoreInterrupts(interruptState) {}
