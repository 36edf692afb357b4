package protocol

import (
	"bytes"
	"testing"
)

func TestAppendFrame(t *testing.T) {
	frame, err := AppendFrame(nil, MessageDest, []byte{byte(MsgGetClocks)})
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	want := []byte{0x06, 0x10, 0x01, 0x6b, 0xf2, 0x7e}
	if !bytes.Equal(frame, want) {
		t.Errorf("AppendFrame = % x, want % x", frame, want)
	}

	if _, err := AppendFrame(nil, MessageDest, make([]byte, MessageLengthMax)); err != ErrFrameTooLong {
		t.Errorf("Expected ErrFrameTooLong, got %v", err)
	}
}

func TestFrameReaderSplitInput(t *testing.T) {
	frame, _ := AppendFrame(nil, 0x13, []byte{3, 5, 13, 0})
	r := NewFrameReader()

	r.Feed(frame[:3])
	if m := r.Next(); m != nil {
		t.Fatalf("Expected no frame from a partial read, got %+v", m)
	}
	r.Feed(frame[3:])
	m := r.Next()
	if m == nil {
		t.Fatal("Expected a frame once complete")
	}
	if m.Sequence != 0x13 || !bytes.Equal(m.Payload, []byte{3, 5, 13, 0}) {
		t.Errorf("Unexpected frame %+v", m)
	}
	if r.Next() != nil {
		t.Error("Expected the reader to be drained")
	}
}

func TestFrameReaderResync(t *testing.T) {
	good, _ := AppendFrame(nil, 0x11, []byte{1})
	corrupt := append([]byte(nil), good...)
	corrupt[2] ^= 0xFF

	r := NewFrameReader()
	r.Feed([]byte{0x00, 0x42})
	r.Feed(corrupt)
	r.Feed(good)

	m := r.Next()
	if m == nil {
		t.Fatal("Expected the reader to recover the good frame")
	}
	if !bytes.Equal(m.Payload, []byte{1}) {
		t.Errorf("Recovered wrong frame: %+v", m)
	}
}

func TestFrameReaderAck(t *testing.T) {
	ack, _ := AppendFrame(nil, 0x11, nil)
	r := NewFrameReader()
	r.Feed(ack)
	m := r.Next()
	if m == nil || !m.IsAck() || m.Sequence != 0x11 {
		t.Errorf("Expected an ack with sequence 0x11, got %+v", m)
	}
}

func TestScanFrameResults(t *testing.T) {
	frame, _ := AppendFrame(nil, MessageDest, []byte{byte(MsgGetClocks)})

	if n, res := scanFrame(frame, true); res != scanOK || n != len(frame) {
		t.Errorf("scanFrame(valid) = %d, %d; want %d, scanOK", n, res, len(frame))
	}
	if _, res := scanFrame(frame[:4], true); res != scanNeedMore {
		t.Errorf("scanFrame(partial) = %d, want scanNeedMore", res)
	}

	corrupt := append([]byte(nil), frame...)
	corrupt[len(corrupt)-2] ^= 0xff
	if _, res := scanFrame(corrupt, true); res != scanBad {
		t.Errorf("scanFrame(bad crc) = %d, want scanBad", res)
	}

	noDest, _ := AppendFrame(nil, 0x01, []byte{byte(MsgGetClocks)})
	if _, res := scanFrame(noDest, true); res != scanBad {
		t.Errorf("scanFrame(no dest) = %d, want scanBad", res)
	}
	if _, res := scanFrame(noDest, false); res != scanOK {
		t.Errorf("scanFrame(no dest, reader) = %d, want scanOK", res)
	}
}
