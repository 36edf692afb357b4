package protocol

import "sync/atomic"

// CommandHandler handles one decoded message. It must consume its
// arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware end of the link. It validates incoming frames,
// tracks the host's sequence number, acks every frame and encodes replies.
type Transport struct {
	synced  atomic.Bool
	nextSeq atomic.Uint32 // sequence expected from the host, 0x10..0x1F

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func()
	flushCallback func()
}

func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{output: output, handler: handler}
	t.synced.Store(true)
	t.nextSeq.Store(MessageDest)
	return t
}

// Receive parses as many complete frames as input holds and pops them.
// Frames are dispatched only when their sequence is the expected one; every
// frame is answered with an ack carrying the next expected sequence.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.synced.Load() {
			rest, ok := resync(data)
			data = rest
			if ok {
				t.synced.Store(true)
				t.encodeAck()
			}
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		n, res := scanFrame(data, true)
		if res == scanNeedMore {
			break
		}
		if res == scanBad {
			t.synced.Store(false)
			continue
		}

		seq := data[MessagePositionSeq]
		frame := data[MessageHeaderSize : n-MessageTrailerSize]
		data = data[n:]

		expected := uint8(t.nextSeq.Load())
		if seq == MessageDest && expected != MessageDest {
			// Host restarted its sequence.
			t.nextSeq.Store(MessageDest)
			expected = MessageDest
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}
		if seq == expected {
			t.nextSeq.Store(uint32(nextSeq(seq)))
			_ = t.dispatch(frame)
		}
		t.encodeAck()
	}

	if consumed := input.Available() - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) dispatch(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.synced.Store(false)
		}
	}()
	for len(frame) > 0 {
		id, err := DecodeVLQUint(&frame)
		if err != nil {
			t.synced.Store(false)
			return err
		}
		if t.handler == nil {
			return nil
		}
		if err := t.handler(uint16(id), &frame); err != nil {
			return err
		}
	}
	return nil
}

// encodeAck sends an empty frame. It is flushed immediately so the host
// sees the ack before any reply.
func (t *Transport) encodeAck() {
	encodeFrame(t.output, uint8(t.nextSeq.Load()), nil)
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// SendCommand encodes one message as its own frame.
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	encodeFrame(t.output, uint8(t.nextSeq.Load()), func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(cmdID))
		if args != nil {
			args(out)
		}
	})
}

// Reset returns to the power-on state.
func (t *Transport) Reset() {
	t.synced.Store(true)
	t.nextSeq.Store(MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback is called whenever the host restarts its sequence.
func (t *Transport) SetResetCallback(cb func()) { t.resetCallback = cb }

// SetFlushCallback is called after every ack.
func (t *Transport) SetFlushCallback(cb func()) { t.flushCallback = cb }
