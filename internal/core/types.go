// Package core defines core types with zero external dependencies.
package core

import "net/netip"

// IP protocol numbers the engine cares about.
const (
	ProtocolTCP uint8 = 6
	ProtocolUDP uint8 = 17
)

// IPHeader represents the L3 fields the engine keys flows on.
type IPHeader struct {
	Version  uint8 // 4 or 6
	SrcIP    netip.Addr
	DstIP    netip.Addr
	Protocol uint8 // TCP=6, UDP=17
	TTL      uint8
}

// TransportHeader represents L4 transport layer header (TCP/UDP).
type TransportHeader struct {
	Protocol uint8
	SrcPort  uint16
	DstPort  uint16
	SeqNum   uint32 // TCP only
	AckNum   uint32 // TCP only
	Flags    uint8  // TCP only, FIN=0x01 SYN=0x02 RST=0x04 PSH=0x08 ACK=0x10
}

// TCP flag bits as carried in TransportHeader.Flags.
const (
	TCPFlagFIN uint8 = 0x01
	TCPFlagSYN uint8 = 0x02
	TCPFlagRST uint8 = 0x04
	TCPFlagPSH uint8 = 0x08
	TCPFlagACK uint8 = 0x10
)

// HasFlag reports whether all bits of f are set.
func (t TransportHeader) HasFlag(f uint8) bool {
	return t.Flags&f == f
}
