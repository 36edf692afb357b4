package clocks

import "strconv"

// DebugWriter receives one line of debug output.
type DebugWriter func(string)

// SwitchEvent records one completed (or failed) source switch for
// post-mortem inspection.
type SwitchEvent struct {
	Clock   ClockID
	From    SourceID
	To      SourceID
	Divider uint32
	Freq    Hertz
	Failed  bool
}

const switchRingSize = 16

var (
	debugPrintln DebugWriter = func(string) {}
	debugEnabled bool
)

// switchHistory is a fixed ring of the last switches of one Manager.
type switchHistory struct {
	ring [switchRingSize]SwitchEvent
	head uint8
	n    uint8
}

// SetDebugWriter redirects debug output (UART, USB, a host logger).
func SetDebugWriter(w DebugWriter) {
	if w == nil {
		w = func(string) {}
	}
	debugPrintln = w
}

// SetDebugEnabled turns debug output on or off. Off by default.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func debugln(msg string) {
	if debugEnabled {
		debugPrintln(msg)
	}
}

// recordSwitch is called with the manager lock held.
func (m *Manager) recordSwitch(ev SwitchEvent) {
	h := &m.history
	h.ring[h.head] = ev
	h.head = (h.head + 1) % switchRingSize
	if h.n < switchRingSize {
		h.n++
	}

	line := "[clocks] " + ev.Clock.String() + " " + ev.From.String() + " -> " + ev.To.String() +
		" div=" + strconv.FormatUint(uint64(ev.Divider), 10)
	if ev.Failed {
		line += " FAILED"
	} else {
		line += " freq=" + ev.Freq.String()
	}
	debugln(line)
}

// RecentSwitches returns this manager's switch history, oldest first.
func (m *Manager) RecentSwitches() []SwitchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := &m.history
	out := make([]SwitchEvent, 0, h.n)
	start := (h.head + switchRingSize - h.n) % switchRingSize
	for i := uint8(0); i < h.n; i++ {
		out = append(out, h.ring[(start+i)%switchRingSize])
	}
	return out
}

// ClearSwitchHistory empties the switch history.
func (m *Manager) ClearSwitchHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = switchHistory{}
}
