package periph

import "picoclock/clocks"

// ADCConversionCycles is the length of one conversion in clk_adc cycles.
const ADCConversionCycles = 96

// ADCDivider returns the DIV register INT and FRAC fields that pace
// free-running conversions at rate samples per second. The sample period
// is 1 + INT + FRAC/256 cycles; INT 0 means back to back conversions.
func ADCDivider(adc clocks.ClockSource, rate uint32) (intPart uint16, frac uint8, err error) {
	freq := uint64(adc.Frequency())
	if freq == 0 {
		return 0, 0, ErrClockStopped
	}
	if rate == 0 || freq < uint64(rate)*ADCConversionCycles {
		return 0, 0, ErrOutOfRange
	}

	period := freq * 256 / uint64(rate) // in 1/256 cycles
	if period == ADCConversionCycles*256 {
		return 0, 0, nil
	}
	period -= 256
	if period>>8 > 0xffff {
		return 0, 0, ErrOutOfRange
	}
	return uint16(period >> 8), uint8(period), nil
}

// ADCSampleRate is the inverse of ADCDivider.
func ADCSampleRate(adc clocks.ClockSource, intPart uint16, frac uint8) uint32 {
	freq := uint64(adc.Frequency())
	if intPart == 0 {
		return uint32(freq / ADCConversionCycles)
	}
	period := (uint64(intPart)+1)*256 + uint64(frac)
	return uint32(freq * 256 / period)
}
