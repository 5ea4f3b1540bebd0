// Package decoder turns captured frames into L3/L4 packets.
package decoder

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/otusdpi/internal/core"
)

// Decoder decodes frames of one link type. It reuses its layer buffers, so a
// Decoder must not be shared between goroutines and a DecodedPacket is only
// valid until the next Decode call.
type Decoder struct {
	linkType layers.LinkType
	parsers  map[gopacket.LayerType]*gopacket.DecodingLayerParser

	eth     layers.Ethernet
	sll     layers.LinuxSLL
	loop    layers.Loopback
	dot1q   layers.Dot1Q
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	payload gopacket.Payload

	decoded []gopacket.LayerType

	statistics
}

type statistics struct {
	ipv4Count uint64
	ipv6Count uint64
	tcpCount  uint64
	udpCount  uint64
}

// Stats is a snapshot of per-layer counters.
type Stats struct {
	IPv4 uint64
	IPv6 uint64
	TCP  uint64
	UDP  uint64
}

// New creates a decoder for frames of linkType.
func New(linkType layers.LinkType) (*Decoder, error) {
	d := &Decoder{
		linkType: linkType,
		parsers:  make(map[gopacket.LayerType]*gopacket.DecodingLayerParser),
		decoded:  make([]gopacket.LayerType, 0, 8),
	}

	var first []gopacket.LayerType
	switch linkType {
	case layers.LinkTypeEthernet:
		first = []gopacket.LayerType{layers.LayerTypeEthernet}
	case layers.LinkTypeLinuxSLL:
		first = []gopacket.LayerType{layers.LayerTypeLinuxSLL}
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		first = []gopacket.LayerType{layers.LayerTypeLoopback}
	case layers.LinkTypeRaw, layers.LinkTypeIPv4, layers.LinkTypeIPv6:
		first = []gopacket.LayerType{layers.LayerTypeIPv4, layers.LayerTypeIPv6}
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedLinkType, linkType)
	}

	for _, lt := range first {
		p := gopacket.NewDecodingLayerParser(lt,
			&d.eth, &d.sll, &d.loop, &d.dot1q,
			&d.ip4, &d.ip6,
			&d.tcp, &d.udp,
			&d.payload,
		)
		p.IgnoreUnsupported = true
		d.parsers[lt] = p
	}
	return d, nil
}

// LinkType returns the link type this decoder was built for.
func (d *Decoder) LinkType() layers.LinkType {
	return d.linkType
}

// Decode decodes one frame. Frames that carry neither IPv4 nor IPv6 with TCP
// or UDP return core.ErrUnsupportedProto; truncated headers return
// core.ErrPacketTooShort.
func (d *Decoder) Decode(data []byte, ci gopacket.CaptureInfo) (*core.DecodedPacket, error) {
	parser, err := d.parserFor(data)
	if err != nil {
		return nil, err
	}

	d.decoded = d.decoded[:0]
	decodeErr := parser.DecodeLayers(data, &d.decoded)

	pkt := &core.DecodedPacket{
		Timestamp:  ci.Timestamp,
		CaptureLen: uint32(ci.CaptureLength),
		OrigLen:    uint32(ci.Length),
	}
	if pkt.Timestamp.IsZero() {
		pkt.Timestamp = time.Now()
	}

	var haveIP, haveL4 bool
	for _, layerType := range d.decoded {
		switch layerType {
		case layers.LayerTypeIPv4:
			d.ipv4Count++
			haveIP = true
			pkt.IP = core.IPHeader{
				Version:  4,
				SrcIP:    addrFrom(d.ip4.SrcIP),
				DstIP:    addrFrom(d.ip4.DstIP),
				Protocol: uint8(d.ip4.Protocol),
				TTL:      d.ip4.TTL,
			}
		case layers.LayerTypeIPv6:
			d.ipv6Count++
			haveIP = true
			pkt.IP = core.IPHeader{
				Version:  6,
				SrcIP:    addrFrom(d.ip6.SrcIP),
				DstIP:    addrFrom(d.ip6.DstIP),
				Protocol: uint8(d.ip6.NextHeader),
				TTL:      d.ip6.HopLimit,
			}
		case layers.LayerTypeTCP:
			d.tcpCount++
			haveL4 = true
			pkt.Transport = core.TransportHeader{
				Protocol: core.ProtocolTCP,
				SrcPort:  uint16(d.tcp.SrcPort),
				DstPort:  uint16(d.tcp.DstPort),
				SeqNum:   d.tcp.Seq,
				AckNum:   d.tcp.Ack,
				Flags:    tcpFlags(&d.tcp),
			}
			pkt.Payload = d.tcp.LayerPayload()
		case layers.LayerTypeUDP:
			d.udpCount++
			haveL4 = true
			pkt.Transport = core.TransportHeader{
				Protocol: core.ProtocolUDP,
				SrcPort:  uint16(d.udp.SrcPort),
				DstPort:  uint16(d.udp.DstPort),
			}
			pkt.Payload = d.udp.LayerPayload()
		}
	}

	if !haveIP {
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrPacketTooShort, decodeErr)
		}
		return nil, core.ErrUnsupportedProto
	}
	if !haveL4 {
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrPacketTooShort, decodeErr)
		}
		return nil, fmt.Errorf("%w: ip protocol %d", core.ErrUnsupportedProto, pkt.IP.Protocol)
	}
	return pkt, nil
}

// Stats returns the layer counters.
func (d *Decoder) Stats() Stats {
	return Stats{IPv4: d.ipv4Count, IPv6: d.ipv6Count, TCP: d.tcpCount, UDP: d.udpCount}
}

func (d *Decoder) parserFor(data []byte) (*gopacket.DecodingLayerParser, error) {
	if len(d.parsers) == 1 {
		for _, p := range d.parsers {
			return p, nil
		}
	}
	// Raw IP: pick the parser from the version nibble.
	if len(data) == 0 {
		return nil, core.ErrPacketTooShort
	}
	switch data[0] >> 4 {
	case 4:
		return d.parsers[layers.LayerTypeIPv4], nil
	case 6:
		return d.parsers[layers.LayerTypeIPv6], nil
	default:
		return nil, fmt.Errorf("%w: ip version %d", core.ErrUnsupportedProto, data[0]>>4)
	}
}

func addrFrom(ip []byte) netip.Addr {
	addr, _ := netip.AddrFromSlice(ip)
	return addr.Unmap()
}

func tcpFlags(tcp *layers.TCP) uint8 {
	var f uint8
	if tcp.FIN {
		f |= core.TCPFlagFIN
	}
	if tcp.SYN {
		f |= core.TCPFlagSYN
	}
	if tcp.RST {
		f |= core.TCPFlagRST
	}
	if tcp.PSH {
		f |= core.TCPFlagPSH
	}
	if tcp.ACK {
		f |= core.TCPFlagACK
	}
	return f
}
