//go:build rp2350

package main

import (
	"machine"
	"time"

	"picoclock/clocks"
	"picoclock/core"
	"picoclock/periph"
	"picoclock/protocol"
	"picoclock/targets/rp2350/hw"
)

// Pico 2 crystal
const xoscFrequency = 12 * clocks.MHz

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	// Debug counters
	messagesReceived         uint32
	messagesSent             uint32
	msgerrors                uint32
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

// ledBlink blinks the LED a specific number of times for diagnostics
func ledBlink(count int) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < count; i++ {
		led.High()
		time.Sleep(150 * time.Millisecond)
		led.Low()
		time.Sleep(150 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)
}

func main() {
	InitDebugUART()
	core.SetDebugWriter(DebugPrintln)
	core.SetDebugEnabled(debugEnabled)

	// The PLLs are already running with the stock settings, so bring-up
	// only re-muxes the derived clocks and records their frequencies.
	tree, err := clocks.InitClocksAndPLLs(hw.New(), xoscFrequency, clocks.DefaultConfig())
	if err != nil {
		DebugPrintln("clock bring-up failed: " + err.Error())
		for {
			ledBlink(3)
		}
	}
	reportTree(tree)

	InitUSB()

	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}
	InitClock(tree)
	if err := startProbe(tree.Manager.Sys()); err != nil {
		DebugPrintln("probe: " + err.Error())
	}

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	server := core.NewServer(tree, outputBuffer)
	transport = server.Transport()
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	// ACKs go out before any reply
	transport.SetFlushCallback(writeUSB)

	go usbReaderLoop()

	ledBlink(1)

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			if inputBuffer.Available() > 0 {
				transport.Receive(inputBuffer)
				messagesReceived++
			}

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
				messagesSent++
			}
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// reportTree prints the clock tree and the peripheral dividers derived
// from it on the debug UART.
func reportTree(tree *clocks.Tree) {
	if !debugEnabled {
		return
	}
	for _, st := range tree.Manager.Snapshot() {
		DebugPrintln(st.Name + " <- " + st.From + " /" + itoa(int(st.Divider)) + " = " + st.Frequency.String())
	}
	if ibrd, fbrd, baud, err := periph.UARTDivisors(tree.Manager.Peri(), 115200); err == nil {
		DebugPrintf("uart 115200: ibrd=%d fbrd=%d actual=%d\r\n", int(ibrd), int(fbrd), int(baud))
	}
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// Reconnected: start from a clean link state
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				messagesReceived = 0
				messagesSent = 0
				consecutiveWriteFailures = 0
			}

			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// itoa converts int to string without importing strconv (for embedded)
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}

// writeUSB writes available data from output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Likely a disconnect. After several failures drop stale data.
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
