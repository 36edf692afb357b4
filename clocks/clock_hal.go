package clocks

// ClockHardware is the register-level view of the clock generator slices
// that the Manager drives. Platform code (targets/rp2350, targets/sim)
// supplies the implementation.
type ClockHardware interface {
	// Divider returns the raw DIV register of the slice.
	Divider(id ClockID) uint32

	// SetDivider writes the raw DIV register of the slice.
	SetDivider(id ClockID, raw uint32)

	// SetAuxSource writes the AUXSRC field of CTRL.
	SetAuxSource(id ClockID, aux uint8)

	// SetSource writes the glitchless SRC field of CTRL. Only called for
	// slices that have a glitchless mux.
	SetSource(id ClockID, src uint8)

	// Selected returns the one-hot SELECTED register. Slices without a
	// glitchless mux always read 1.
	Selected(id ClockID) uint32

	// SetEnabled sets or clears the ENABLE bit. Has no effect on slices
	// without one (ref, sys).
	SetEnabled(id ClockID, enabled bool)

	// Settle busy-waits for roughly the given number of clk_sys cycles.
	Settle(cycles uint32)
}

// XoscHardware drives the crystal oscillator block.
type XoscHardware interface {
	// Start programs the frequency range and startup delay and sets ENABLE.
	Start(freqRange, startupDelay uint32)
	Stable() bool
}

// RoscHardware drives the ring oscillator block.
type RoscHardware interface {
	Start()
	Stable() bool
}

// PLLHardware drives one PLL block.
type PLLHardware interface {
	// PowerDown turns off the VCO, post dividers and the whole PLL.
	PowerDown()

	// Program sets REFDIV and FBDIV_INT and powers up the PLL and its VCO.
	Program(refdiv, fbdiv uint32)

	Locked() bool

	// StartPostDividers sets POSTDIV1/POSTDIV2 and powers them up.
	StartPostDividers(postdiv1, postdiv2 uint32)

	// Settings reads back REFDIV, FBDIV_INT, POSTDIV1 and POSTDIV2.
	Settings() (refdiv, fbdiv, postdiv1, postdiv2 uint32)
}

// Hardware bundles every block a full bring-up touches.
type Hardware interface {
	Clocks() ClockHardware
	XOSC() XoscHardware
	ROSC() RoscHardware
	PLL(instance PLLInstance) PLLHardware
}

// pollUntil calls cond up to limit times and reports whether it became true.
func pollUntil(limit int, cond func() bool) bool {
	for i := 0; i < limit; i++ {
		if cond() {
			return true
		}
	}
	return false
}
