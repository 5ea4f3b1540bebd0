// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawPacket is one frame read from a packet source.
type RawPacket struct {
	Data       []byte    // Raw frame data, not retained past the call
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Actual captured length
	OrigLen    uint32    // Original frame length
}

// DecodedPacket is the result of L2-L4 protocol stack decoding.
type DecodedPacket struct {
	Timestamp  time.Time
	IP         IPHeader
	Transport  TransportHeader
	Payload    []byte // Application layer payload, zero-copy slice
	CaptureLen uint32
	OrigLen    uint32
}
