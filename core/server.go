package core

import (
	"errors"
	"strconv"

	"picoclock/clocks"
	"picoclock/protocol"
)

// invalidClock is reported in clock_error when the requested clock does not
// fit the wire field.
const invalidClock = 0xff

// Server answers clock commands from the host against one clock tree.
type Server struct {
	tree      *clocks.Tree
	registry  *CommandRegistry
	transport *protocol.Transport
}

// NewServer wires a command registry and a transport writing to output.
func NewServer(tree *clocks.Tree, output protocol.OutputBuffer) *Server {
	s := &Server{tree: tree, registry: NewCommandRegistry()}
	s.registry.Register(protocol.MsgGetClocks, "get_clocks", "", s.handleGetClocks)
	s.registry.Register(protocol.MsgConfigureClock, "configure_clock",
		"clock=%c source=%c divider=%u target_hz=%u", s.handleConfigureClock)
	s.registry.RegisterResponse(protocol.MsgClockState, "clock_state",
		"clock=%c source=%c state=%c divider=%u freq=%u")
	s.registry.RegisterResponse(protocol.MsgClockError, "clock_error", "clock=%c code=%c")
	s.transport = protocol.NewTransport(output, s.dispatch)
	return s
}

// Transport returns the link the platform feeds received bytes into.
func (s *Server) Transport() *protocol.Transport { return s.transport }

// Registry exposes the message dictionary.
func (s *Server) Registry() *CommandRegistry { return s.registry }

func (s *Server) dispatch(cmdID uint16, data *[]byte) error {
	err := s.registry.Dispatch(cmdID, data)
	if errors.Is(err, ErrUnknownCommand) {
		debugln("[core] unknown command " + strconv.Itoa(int(cmdID)))
	}
	return err
}

func (s *Server) handleGetClocks(data *[]byte) error {
	for id := clocks.ClockID(0); id < clocks.NumClocks; id++ {
		s.sendState(id)
	}
	return nil
}

func (s *Server) handleConfigureClock(data *[]byte) error {
	req, err := protocol.DecodeConfigureClock(data)
	if errors.Is(err, protocol.ErrArgRange) {
		s.sendError(invalidClock, protocol.ErrCodeUnknown)
		return nil
	}
	if err != nil {
		return err
	}

	id := clocks.ClockID(req.Clock)
	src := clocks.SourceID(req.Source)
	if id >= clocks.NumClocks || !src.Valid() {
		s.sendError(req.Clock, protocol.ErrCodeUnknown)
		return nil
	}

	policy := clocks.Divide(req.Divider)
	if req.Divider == 0 {
		policy = clocks.Target(clocks.Hertz(req.TargetHz))
	}
	if err := s.tree.Configure(id, src, policy); err != nil {
		debugln("[core] " + err.Error())
		s.sendError(req.Clock, ErrorCode(err))
		return nil
	}
	s.sendState(id)
	return nil
}

func (s *Server) sendState(id clocks.ClockID) {
	st := s.tree.Manager.Clock(id).Status()
	s.transport.SendCommand(protocol.MsgClockState, protocol.ClockState{
		Clock:   uint8(id),
		Source:  uint8(st.Source),
		State:   uint8(st.State),
		Divider: st.Divider,
		Freq:    uint32(st.Frequency),
	}.Encode)
}

func (s *Server) sendError(clock, code uint8) {
	s.transport.SendCommand(protocol.MsgClockError, protocol.ClockError{Clock: clock, Code: code}.Encode)
}

// ErrorCode maps a clock engine error to its wire code.
func ErrorCode(err error) uint8 {
	switch {
	case err == nil:
		return protocol.ErrCodeNone
	case errors.Is(err, clocks.ErrInvalidSource):
		return protocol.ErrCodeInvalidSource
	case errors.Is(err, clocks.ErrUnachievableFrequency):
		return protocol.ErrCodeUnachievable
	case errors.Is(err, clocks.ErrDividerRange):
		return protocol.ErrCodeDividerRange
	case errors.Is(err, clocks.ErrSwitchTimeout):
		return protocol.ErrCodeSwitchTimeout
	case errors.Is(err, clocks.ErrClockFaulted):
		return protocol.ErrCodeFaulted
	default:
		return protocol.ErrCodeUnknown
	}
}

// ErrorFromCode is the inverse of ErrorCode, for the host side.
func ErrorFromCode(code uint8) error {
	switch code {
	case protocol.ErrCodeNone:
		return nil
	case protocol.ErrCodeInvalidSource:
		return clocks.ErrInvalidSource
	case protocol.ErrCodeUnachievable:
		return clocks.ErrUnachievableFrequency
	case protocol.ErrCodeDividerRange:
		return clocks.ErrDividerRange
	case protocol.ErrCodeSwitchTimeout:
		return clocks.ErrSwitchTimeout
	case protocol.ErrCodeFaulted:
		return clocks.ErrClockFaulted
	default:
		return clocks.ErrUnknownClock
	}
}
