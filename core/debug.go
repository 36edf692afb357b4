package core

import "picoclock/clocks"

// DebugWriter receives one line of debug output.
type DebugWriter = clocks.DebugWriter

var (
	debugPrintln DebugWriter = func(string) {}
	debugEnabled bool
)

// SetDebugWriter redirects debug output for both the command layer and the
// clock engine.
func SetDebugWriter(w DebugWriter) {
	if w == nil {
		w = func(string) {}
	}
	debugPrintln = w
	clocks.SetDebugWriter(w)
}

// SetDebugEnabled turns debug output on or off for both layers.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
	clocks.SetDebugEnabled(enabled)
}

func IsDebugEnabled() bool { return debugEnabled }

func debugln(msg string) {
	if debugEnabled {
		debugPrintln(msg)
	}
}
