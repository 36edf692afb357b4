// Package protocol implements the framed command protocol spoken between the
// clock controller firmware and clockctl on the host.
//
// A frame is [len][seq][payload...][crc_hi][crc_lo][0x7E]. The payload is a
// run of messages, each a VLQ message ID followed by VLQ arguments.
package protocol

// Version of the wire protocol. Bumped whenever a message layout changes.
const Version = "1"

// Frame layout
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F

	// MessageMax is the size of a scratch output buffer; it holds several
	// frames queued for one USB write.
	MessageMax = 512
)

// Message is one decoded frame.
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte
	CRC      uint16
}

// IsAck reports whether the frame carries no messages, which is how the
// receiver acknowledges (or, with an unexpected sequence, naks) a frame.
func (m *Message) IsAck() bool {
	return len(m.Payload) == 0
}

// nextSeq advances a sequence number within the 0x10..0x1F window.
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
