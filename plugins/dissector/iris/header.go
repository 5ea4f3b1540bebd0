package iris

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderSize is the packed size of Header on the wire.
	HeaderSize = 18
	// MessageSize is HeaderSize plus the first block descriptor.
	MessageSize = HeaderSize + 8
)

var (
	ErrInsufficientData        = errors.New("iris: payload shorter than header")
	ErrUnrecognizedMessageType = errors.New("iris: unrecognized message type")
)

// Header is the fixed prefix of every IRIS message. Fields are packed with no
// padding and stored little-endian:
//
//	offset  0  message_length  u32
//	offset  4  count           u32
//	offset  8  id              u32
//	offset 12  message_type    u16
//	offset 14  error           u32
type Header struct {
	MessageLength uint32
	Count         uint32
	ID            uint32
	MessageType   MessageType
	Error         uint32
}

// DecodeHeader reads the first HeaderSize bytes of payload. Bytes past the
// header are never read, whatever MessageLength claims.
func DecodeHeader(payload []byte) (Header, error) {
	if len(payload) < HeaderSize {
		return Header{}, ErrInsufficientData
	}
	b := payload[:HeaderSize]
	return Header{
		MessageLength: binary.LittleEndian.Uint32(b[0:4]),
		Count:         binary.LittleEndian.Uint32(b[4:8]),
		ID:            binary.LittleEndian.Uint32(b[8:12]),
		MessageType:   MessageType(binary.LittleEndian.Uint16(b[12:14])),
		Error:         binary.LittleEndian.Uint32(b[14:18]),
	}, nil
}

// Message is a header followed by its first block descriptor. Classification
// only needs the header; Message is for tooling that wants to look further.
type Message struct {
	Header
	BlockLength uint16
	BlockType   uint16
	BlockFlags  uint32
}

// DecodeMessage reads the first MessageSize bytes of payload.
func DecodeMessage(payload []byte) (Message, error) {
	if len(payload) < MessageSize {
		return Message{}, ErrInsufficientData
	}
	hdr, err := DecodeHeader(payload)
	if err != nil {
		return Message{}, err
	}
	b := payload[HeaderSize:MessageSize]
	return Message{
		Header:      hdr,
		BlockLength: binary.LittleEndian.Uint16(b[0:2]),
		BlockType:   binary.LittleEndian.Uint16(b[2:4]),
		BlockFlags:  binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}
