package hw

// ROSC register offsets. RP2350 adds RANDOM at 0x0c, which moves every
// later register one word up from the RP2040 layout.
const (
	roscCtrl    = 0x00
	roscFreqA   = 0x04
	roscFreqB   = 0x08
	roscRandom  = 0x0c
	roscDormant = 0x10
	roscDiv     = 0x14
	roscPhase   = 0x18
	roscStatus  = 0x1c
)
