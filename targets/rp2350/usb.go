//go:build rp2350

package main

import (
	"machine"
)

// InitUSB configures the USB CDC-ACM port the host talks to. TinyGo's
// runtime owns the descriptors; clk_usb must already be at 48 MHz.
func InitUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

func USBAvailable() int { return machine.Serial.Buffered() }

func USBRead() (byte, error) { return machine.Serial.ReadByte() }

// USBWriteBytes may write fewer bytes than given.
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
