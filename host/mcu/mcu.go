package mcu

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"picoclock/clocks"
	"picoclock/core"
	"picoclock/host/serial"
	"picoclock/protocol"
)

// ErrNotConnected is returned when a command is issued before Connect.
var ErrNotConnected = errors.New("not connected to MCU")

// DefaultResponseTimeout bounds the wait for each reply message.
const DefaultResponseTimeout = time.Second

// MCU is a connection to a board running the clock firmware.
type MCU struct {
	transport *protocol.HostTransport
	log       zerolog.Logger

	// ResponseTimeout applies to each clock_state/clock_error reply.
	ResponseTimeout time.Duration
}

// NewMCU creates an MCU that is not yet connected.
func NewMCU(log zerolog.Logger) *MCU {
	return &MCU{log: log, ResponseTimeout: DefaultResponseTimeout}
}

// Connect opens device with the default serial settings.
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens a serial port with a custom config.
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	// Replies left over from an earlier session would be mistaken for ours.
	if err := port.Flush(); err != nil {
		m.log.Warn().Err(err).Msg("flush failed")
	}
	m.Attach(port)
	m.log.Debug().Str("device", cfg.Device).Int("baud", cfg.Baud).Msg("connected")
	return nil
}

// Attach runs the protocol over an already open link.
func (m *MCU) Attach(port io.ReadWriteCloser) {
	m.transport = protocol.NewHostTransport(port)
}

// Close closes the connection to the MCU.
func (m *MCU) Close() error {
	if m.transport == nil {
		return nil
	}
	err := m.transport.Close()
	m.transport = nil
	return err
}

func (m *MCU) IsConnected() bool { return m.transport != nil }

// GetClocks asks for the state of every derived clock.
func (m *MCU) GetClocks() ([]clocks.Status, error) {
	if m.transport == nil {
		return nil, ErrNotConnected
	}
	if err := m.transport.SendCommand(protocol.MsgGetClocks, nil); err != nil {
		return nil, fmt.Errorf("get_clocks: %w", err)
	}

	out := make([]clocks.Status, clocks.NumClocks)
	seen := 0
	for seen < int(clocks.NumClocks) {
		st, cerr, err := m.nextReply()
		if err != nil {
			return nil, fmt.Errorf("get_clocks: %w", err)
		}
		if cerr != nil || int(st.Clock) >= len(out) {
			m.log.Debug().Msg("ignoring unexpected reply to get_clocks")
			continue
		}
		if out[st.Clock].Name == "" {
			seen++
		}
		out[st.Clock] = toStatus(st)
	}
	return out, nil
}

// ConfigureClock switches one clock. A divider of 0 asks the firmware to
// solve for target instead.
func (m *MCU) ConfigureClock(id clocks.ClockID, src clocks.SourceID, divider uint32, target clocks.Hertz) (clocks.Status, error) {
	if m.transport == nil {
		return clocks.Status{}, ErrNotConnected
	}
	req := protocol.ConfigureClock{
		Clock:    uint8(id),
		Source:   uint8(src),
		Divider:  divider,
		TargetHz: uint32(target),
	}
	m.log.Debug().Stringer("clock", id).Stringer("source", src).
		Uint32("divider", divider).Stringer("target", target).Msg("configure_clock")
	if err := m.transport.SendCommand(protocol.MsgConfigureClock, req.Encode); err != nil {
		return clocks.Status{}, fmt.Errorf("configure_clock: %w", err)
	}

	for {
		st, cerr, err := m.nextReply()
		if err != nil {
			return clocks.Status{}, fmt.Errorf("configure_clock: %w", err)
		}
		switch {
		case cerr != nil && cerr.Clock == req.Clock:
			return clocks.Status{}, &clocks.ConfigError{
				Clock:  id,
				Source: src,
				Err:    core.ErrorFromCode(cerr.Code),
			}
		case cerr == nil && st.Clock == req.Clock:
			return toStatus(st), nil
		}
	}
}

// nextReply waits for the next clock_state or clock_error message.
func (m *MCU) nextReply() (protocol.ClockState, *protocol.ClockError, error) {
	for {
		resp, err := m.transport.ReceiveResponse(m.ResponseTimeout)
		if err != nil {
			return protocol.ClockState{}, nil, err
		}
		data := resp.Payload
		id, err := protocol.DecodeVLQUint(&data)
		if err != nil {
			return protocol.ClockState{}, nil, err
		}
		switch uint16(id) {
		case protocol.MsgClockState:
			st, err := protocol.DecodeClockState(&data)
			return st, nil, err
		case protocol.MsgClockError:
			ce, err := protocol.DecodeClockError(&data)
			if err != nil {
				return protocol.ClockState{}, nil, err
			}
			return protocol.ClockState{}, &ce, nil
		default:
			m.log.Debug().Uint32("id", id).Msg("skipping message")
		}
	}
}

func toStatus(st protocol.ClockState) clocks.Status {
	id := clocks.ClockID(st.Clock)
	state := clocks.State(st.State)
	src := clocks.SourceID(st.Source)
	return clocks.Status{
		Clock:     id,
		Name:      id.String(),
		State:     state,
		StateName: state.String(),
		Source:    src,
		From:      src.String(),
		Divider:   st.Divider,
		Frequency: clocks.Hertz(st.Freq),
	}
}
