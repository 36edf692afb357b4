package clocks

import "errors"

var (
	// Configuration errors: detected before any register is touched.
	ErrInvalidSource         = errors.New("source is not a candidate for this clock")
	ErrUnachievableFrequency = errors.New("no legal divider reaches the requested frequency")
	ErrDividerRange          = errors.New("divider out of range")
	ErrUnknownClock          = errors.New("unknown clock")

	// Hardware faults.
	ErrSwitchTimeout = errors.New("clock mux did not confirm the new source")
	ErrClockFaulted  = errors.New("clock is faulted")

	// Oscillator and PLL bring-up.
	ErrNotStable        = errors.New("oscillator did not stabilise")
	ErrNotLocked        = errors.New("pll did not lock")
	ErrInvalidPLLConfig = errors.New("invalid pll configuration")
	ErrFrequencyRange   = errors.New("frequency out of supported range")
)

// ConfigError reports which derived clock and which source a failed
// Configure call was about.
type ConfigError struct {
	Clock  ClockID
	Source SourceID
	Err    error
}

func (e *ConfigError) Error() string {
	return "configure " + e.Clock.String() + " from " + e.Source.String() + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }
