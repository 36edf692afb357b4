//go:build rp2350

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"picoclock/clocks"
	"picoclock/periph"
)

// Reference square wave for checking clk_sys with a scope or counter.
const (
	probePin       = machine.GPIO2
	probeFrequency = 10 * clocks.KHz
)

// probeProgram toggles the set pin every state machine cycle.
func probeProgram() []uint16 {
	return []uint16{
		rp2pio.EncodeSet(rp2pio.SrcDestPins, 1),
		rp2pio.EncodeSet(rp2pio.SrcDestPins, 0),
		// .wrap
	}
}

// startProbe runs the probe on PIO0. The output is exact only if clk_sys
// divides to twice the probe frequency.
func startProbe(sys *clocks.DerivedClock) error {
	div, err := periph.PIOClockDivider(sys, probeFrequency*2)
	if err != nil {
		return err
	}

	sm, err := rp2pio.PIO0.ClaimStateMachine()
	if err != nil {
		return err
	}
	offset, err := sm.PIO().AddProgram(probeProgram(), -1)
	if err != nil {
		sm.Unclaim()
		return err
	}

	probePin.Configure(machine.PinConfig{Mode: sm.PIO().PinMode()})
	sm.SetPindirsConsecutive(probePin, 1, true)

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(probePin, 1)
	cfg.SetWrap(offset, offset+1)
	cfg.SetClkDivIntFrac(div.Whole, div.Frac)
	sm.Init(offset, cfg)
	sm.SetEnabled(true)

	DebugPrintf("probe: gpio2 %s, clkdiv=%d+%d/256\r\n",
		div.Rate(sys.Frequency()).Div(2).String(), int(div.Whole), int(div.Frac))
	return nil
}
