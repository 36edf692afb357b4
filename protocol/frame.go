package protocol

import "errors"

// ErrFrameTooLong is returned when a payload does not fit in one frame.
var ErrFrameTooLong = errors.New("frame exceeds maximum length")

type scanResult uint8

const (
	scanNeedMore scanResult = iota
	scanBad
	scanOK
)

// scanFrame checks whether data starts with a complete, valid frame.
// A bad result means the receiver has lost sync and must hunt for the next
// sync byte. requireDest rejects frames whose sequence byte lacks the
// destination bits.
func scanFrame(data []byte, requireDest bool) (int, scanResult) {
	if len(data) < MessageLengthMin {
		return 0, scanNeedMore
	}
	n := int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return 0, scanBad
	}
	if requireDest && data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
		return 0, scanBad
	}
	if len(data) < n {
		return 0, scanNeedMore
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return 0, scanBad
	}
	crc := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
	if crc != CRC16(data[:n-MessageTrailerSize]) {
		return 0, scanBad
	}
	return n, scanOK
}

// resync drops everything up to and including the next sync byte. ok is
// false when there is none.
func resync(data []byte) (rest []byte, ok bool) {
	for i, b := range data {
		if b == MessageValueSync {
			return data[i+1:], true
		}
	}
	return nil, false
}

// AppendFrame appends one complete frame carrying payload.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	n := MessageHeaderSize + len(payload) + MessageTrailerSize
	if n > MessageLengthMax {
		return dst, ErrFrameTooLong
	}
	start := len(dst)
	dst = append(dst, uint8(n), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), MessageValueSync), nil
}

// encodeFrame builds a frame in place in output around whatever body
// writes.
func encodeFrame(output OutputBuffer, seq uint8, body func(OutputBuffer)) {
	cursor := output.CurPosition()
	output.Output([]byte{0, seq})
	if body != nil {
		body(output)
	}
	output.Update(cursor, uint8(len(output.DataSince(cursor))+MessageTrailerSize))
	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}

// FrameReader extracts frames from a byte stream, resynchronising on the
// sync byte after corruption.
type FrameReader struct {
	buf    []byte
	synced bool
}

func NewFrameReader() *FrameReader {
	return &FrameReader{synced: true}
}

// Feed appends received bytes.
func (r *FrameReader) Feed(data []byte) {
	r.buf = append(r.buf, data...)
}

// Next returns the next complete frame, or nil when more bytes are needed.
func (r *FrameReader) Next() *Message {
	for len(r.buf) > 0 {
		if !r.synced {
			rest, ok := resync(r.buf)
			r.buf = rest
			r.synced = ok
			continue
		}
		if r.buf[0] == MessageValueSync {
			r.buf = r.buf[1:]
			continue
		}
		n, res := scanFrame(r.buf, false)
		switch res {
		case scanNeedMore:
			r.compact()
			return nil
		case scanBad:
			r.synced = false
			continue
		}
		msg := &Message{
			Length:   r.buf[MessagePositionLen],
			Sequence: r.buf[MessagePositionSeq],
			Payload:  append([]byte(nil), r.buf[MessageHeaderSize:n-MessageTrailerSize]...),
			CRC:      uint16(r.buf[n-MessageTrailerCRC])<<8 | uint16(r.buf[n-MessageTrailerCRC+1]),
		}
		r.buf = r.buf[n:]
		return msg
	}
	r.buf = r.buf[:0]
	return nil
}

// Reset drops buffered bytes.
func (r *FrameReader) Reset() {
	r.buf = r.buf[:0]
	r.synced = true
}

func (r *FrameReader) compact() {
	if cap(r.buf) > 4*MessageLengthMax && len(r.buf) < MessageLengthMax {
		r.buf = append([]byte(nil), r.buf...)
	}
}
