// Package periph turns derived clock frequencies into the divider values
// peripheral drivers program. Every helper takes the clock as a
// clocks.ClockSource and reads it once, so a driver always programs its
// divider against the frequency the clock tree currently publishes.
package periph

import "errors"

var (
	ErrClockStopped = errors.New("clock is not running")
	ErrOutOfRange   = errors.New("rate not reachable from this clock")
)
