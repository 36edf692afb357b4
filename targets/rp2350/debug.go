//go:build rp2350

package main

import (
	"machine"
)

var (
	debugUART    *machine.UART
	debugEnabled bool
)

// InitDebugUART starts UART1 on GPIO4 (TX) / GPIO5 (RX) at 115200 baud.
// The clock engine's debug lines are routed here.
func InitDebugUART() {
	debugUART = machine.UART1
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO4,
		RX:       machine.GPIO5,
	})
	debugEnabled = err == nil
	DebugPrintln("=== picoclock RP2350 ===")
}

// DebugPrintln writes a string to the debug UART with newline
func DebugPrintln(s string) {
	if !debugEnabled || debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}

// DebugPrintf supports %s and %d only.
func DebugPrintf(format string, args ...interface{}) {
	if !debugEnabled || debugUART == nil {
		return
	}

	result := make([]byte, 0, 128)
	argIndex := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) || argIndex >= len(args) {
			result = append(result, format[i])
			continue
		}
		switch v := args[argIndex].(type) {
		case string:
			result = append(result, v...)
		case int:
			result = append(result, itoa(v)...)
		}
		argIndex++
		i++
	}
	debugUART.Write(result)
}
