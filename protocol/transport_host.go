package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrAckTimeout      = errors.New("ack timeout")
	ErrResponseTimeout = errors.New("response timeout")
	ErrTransportClosed = errors.New("transport closed")
)

// DefaultAckTimeout bounds how long SendCommand waits for the ack.
const DefaultAckTimeout = 2 * time.Second

// ResponseHandler is called from the read goroutine for every non-ack
// frame, once per message in it.
type ResponseHandler func(cmdID uint16, data *[]byte) error

// HostTransport is the host end of the link. A background goroutine reads
// the port and sorts frames into acks and responses.
type HostTransport struct {
	port io.ReadWriteCloser

	writeMu sync.Mutex
	seq     uint8

	reader    *FrameReader
	acks      chan *Message
	responses chan *Message
	handler   ResponseHandler

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:      port,
		seq:       MessageDest,
		reader:    NewFrameReader(),
		acks:      make(chan *Message, 1),
		responses: make(chan *Message, 32),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SetResponseHandler installs an asynchronous response callback. Responses
// are still queued for ReceiveResponse.
func (t *HostTransport) SetResponseHandler(h ResponseHandler) {
	t.handler = h
}

// SendCommand frames one message, writes it and waits for the ack.
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultAckTimeout)
}

func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	payload := NewScratchOutput()
	EncodeVLQUint(payload, uint32(cmdID))
	if args != nil {
		args(payload)
	}
	frame, err := AppendFrame(nil, t.seq, payload.Result())
	if err != nil {
		return fmt.Errorf("command %d: %w", cmdID, err)
	}

	n, err := t.port.Write(frame)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("short write: %d/%d bytes", n, len(frame))
	}

	want := nextSeq(t.seq)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ack := <-t.acks:
		// A nak carries the sequence the firmware expects instead.
		if ack.Sequence != want {
			t.seq = ack.Sequence
			return fmt.Errorf("nak: firmware expects sequence 0x%02x", ack.Sequence)
		}
		t.seq = want
		return nil
	case <-timer.C:
		return fmt.Errorf("command %d: %w after %v", cmdID, ErrAckTimeout, timeout)
	case <-t.stop:
		return ErrTransportClosed
	}
}

// ReceiveResponse returns the next response frame.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m := <-t.responses:
		return m, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrResponseTimeout, timeout)
	case <-t.stop:
		return nil, ErrTransportClosed
	}
}

func (t *HostTransport) readLoop() {
	defer close(t.done)
	buf := make([]byte, 256)
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			t.reader.Feed(buf[:n])
			for m := t.reader.Next(); m != nil; m = t.reader.Next() {
				t.dispatch(m)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (t *HostTransport) dispatch(m *Message) {
	if m.IsAck() {
		select {
		case t.acks <- m:
		default:
		}
		return
	}

	if t.handler != nil {
		data := m.Payload
		for len(data) > 0 {
			id, err := DecodeVLQUint(&data)
			if err != nil || t.handler(uint16(id), &data) != nil {
				break
			}
		}
	}

	select {
	case t.responses <- m:
	default:
		// Full: drop the oldest.
		select {
		case <-t.responses:
		default:
		}
		t.responses <- m
	}
}

// Close stops the read goroutine and closes the port.
func (t *HostTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.stop)
		err = t.port.Close()
		<-t.done
	})
	return err
}
