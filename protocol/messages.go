package protocol

// Message IDs
const (
	MsgGetClocks      uint16 = 1 // host -> firmware: no args
	MsgConfigureClock uint16 = 2 // host -> firmware: clock source divider target_hz
	MsgClockState     uint16 = 3 // firmware -> host: clock source state divider freq
	MsgClockError     uint16 = 4 // firmware -> host: clock code
)

// Error codes carried by clock_error
const (
	ErrCodeNone uint8 = iota
	ErrCodeInvalidSource
	ErrCodeUnachievable
	ErrCodeDividerRange
	ErrCodeSwitchTimeout
	ErrCodeFaulted
	ErrCodeUnknown
)

var errCodeNames = [...]string{
	ErrCodeNone:          "ok",
	ErrCodeInvalidSource: "invalid source",
	ErrCodeUnachievable:  "unachievable frequency",
	ErrCodeDividerRange:  "divider out of range",
	ErrCodeSwitchTimeout: "switch timeout",
	ErrCodeFaulted:       "clock faulted",
	ErrCodeUnknown:       "unknown clock or source",
}

// ErrCodeString names an error code.
func ErrCodeString(code uint8) string {
	if int(code) < len(errCodeNames) {
		return errCodeNames[code]
	}
	return "unknown error"
}

// ConfigureClock asks the firmware to switch one clock. Divider 0 means
// solve for TargetHz.
type ConfigureClock struct {
	Clock    uint8
	Source   uint8
	Divider  uint32
	TargetHz uint32
}

func (c ConfigureClock) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(c.Clock))
	EncodeVLQUint(out, uint32(c.Source))
	EncodeVLQUint(out, c.Divider)
	EncodeVLQUint(out, c.TargetHz)
}

func DecodeConfigureClock(data *[]byte) (ConfigureClock, error) {
	var clock, source uint32
	var c ConfigureClock
	if err := decodeArgs(data, &clock, &source, &c.Divider, &c.TargetHz); err != nil {
		return ConfigureClock{}, err
	}
	// All four arguments are consumed before the range check so the next
	// message in the frame still decodes.
	if clock > 0xff || source > 0xff {
		return ConfigureClock{}, ErrArgRange
	}
	c.Clock, c.Source = uint8(clock), uint8(source)
	return c, nil
}

// ClockState reports one derived clock.
type ClockState struct {
	Clock   uint8
	Source  uint8
	State   uint8
	Divider uint32
	Freq    uint32
}

func (s ClockState) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(s.Clock))
	EncodeVLQUint(out, uint32(s.Source))
	EncodeVLQUint(out, uint32(s.State))
	EncodeVLQUint(out, s.Divider)
	EncodeVLQUint(out, s.Freq)
}

func DecodeClockState(data *[]byte) (ClockState, error) {
	var clock, source, state uint32
	var s ClockState
	if err := decodeArgs(data, &clock, &source, &state, &s.Divider, &s.Freq); err != nil {
		return ClockState{}, err
	}
	s.Clock, s.Source, s.State = uint8(clock), uint8(source), uint8(state)
	return s, nil
}

// ClockError reports a rejected or failed configure_clock.
type ClockError struct {
	Clock uint8
	Code  uint8
}

func (e ClockError) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(e.Clock))
	EncodeVLQUint(out, uint32(e.Code))
}

func DecodeClockError(data *[]byte) (ClockError, error) {
	var clock, code uint32
	if err := decodeArgs(data, &clock, &code); err != nil {
		return ClockError{}, err
	}
	return ClockError{Clock: uint8(clock), Code: uint8(code)}, nil
}
