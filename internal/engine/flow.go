package engine

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"firestige.xyz/otusdpi/internal/core"
	"firestige.xyz/otusdpi/pkg/dissector"
)

// FlowKey identifies a bidirectional flow. Both directions of a conversation
// map to the same key: the lower (address, port) endpoint is always A.
type FlowKey struct {
	AddrA netip.Addr
	AddrB netip.Addr
	PortA uint16
	PortB uint16
	Proto uint8
}

// NewFlowKey builds the canonical key for pkt.
func NewFlowKey(pkt *core.DecodedPacket) FlowKey {
	src := netip.AddrPortFrom(pkt.IP.SrcIP, pkt.Transport.SrcPort)
	dst := netip.AddrPortFrom(pkt.IP.DstIP, pkt.Transport.DstPort)
	if src.Compare(dst) > 0 {
		src, dst = dst, src
	}
	return FlowKey{
		AddrA: src.Addr(),
		AddrB: dst.Addr(),
		PortA: src.Port(),
		PortB: dst.Port(),
		Proto: pkt.Transport.Protocol,
	}
}

// Hash returns a 64-bit hash of the key.
func (k FlowKey) Hash() uint64 {
	var buf [37]byte
	a := k.AddrA.As16()
	b := k.AddrB.As16()
	copy(buf[0:16], a[:])
	copy(buf[16:32], b[:])
	binary.BigEndian.PutUint16(buf[32:34], k.PortA)
	binary.BigEndian.PutUint16(buf[34:36], k.PortB)
	buf[36] = k.Proto
	return xxhash.Sum64(buf[:])
}

func (k FlowKey) String() string {
	return fmt.Sprintf("%s <-> %s/%s",
		netip.AddrPortFrom(k.AddrA, k.PortA),
		netip.AddrPortFrom(k.AddrB, k.PortB),
		protoName(k.Proto))
}

func protoName(p uint8) string {
	switch p {
	case core.ProtocolTCP:
		return "tcp"
	case core.ProtocolUDP:
		return "udp"
	default:
		return fmt.Sprintf("ip-%d", p)
	}
}

// Flow is the host-side state of one conversation. All fields are guarded by
// mu; the engine holds it for the whole of one packet's processing, so
// dissectors never run concurrently on the same flow.
type Flow struct {
	mu sync.Mutex

	key       FlowKey
	initiator netip.AddrPort

	detected   dissector.ProtocolID
	confidence dissector.Confidence
	detectedAt time.Time
	excluded   []dissector.ProtocolID

	// next expected sequence number per direction, 0 = from initiator
	nextSeq  [2]uint32
	seqValid [2]bool

	packets   uint64
	bytes     uint64
	firstSeen time.Time
	lastSeen  time.Time
}

func newFlow(key FlowKey, pkt *core.DecodedPacket) *Flow {
	return &Flow{
		key:       key,
		initiator: netip.AddrPortFrom(pkt.IP.SrcIP, pkt.Transport.SrcPort),
		firstSeen: pkt.Timestamp,
		lastSeen:  pkt.Timestamp,
	}
}

// observe accounts pkt against the flow and returns the attributes the
// scheduler matches selections against.
func (f *Flow) observe(pkt *core.DecodedPacket) dissector.Attributes {
	f.packets++
	f.bytes += uint64(len(pkt.Payload))
	if pkt.Timestamp.After(f.lastSeen) {
		f.lastSeen = pkt.Timestamp
	}

	var attrs dissector.Attributes
	switch pkt.IP.Version {
	case 4:
		attrs |= dissector.AttrIPv4
	case 6:
		attrs |= dissector.AttrIPv6
	}
	switch pkt.Transport.Protocol {
	case core.ProtocolTCP:
		attrs |= dissector.AttrTCP
		if f.trackSequence(pkt) {
			attrs |= dissector.AttrRetransmission
		}
	case core.ProtocolUDP:
		attrs |= dissector.AttrUDP
	}
	if len(pkt.Payload) > 0 {
		attrs |= dissector.AttrPayload
	}
	return attrs
}

// trackSequence advances the expected sequence number for the packet's
// direction and reports whether the segment carries only data already seen.
func (f *Flow) trackSequence(pkt *core.DecodedPacket) bool {
	dir := 1
	if netip.AddrPortFrom(pkt.IP.SrcIP, pkt.Transport.SrcPort) == f.initiator {
		dir = 0
	}

	seq := pkt.Transport.SeqNum
	end := seq + uint32(len(pkt.Payload))
	if pkt.Transport.HasFlag(core.TCPFlagSYN) {
		end++
	}
	if pkt.Transport.HasFlag(core.TCPFlagFIN) {
		end++
	}

	if !f.seqValid[dir] {
		f.seqValid[dir] = true
		f.nextSeq[dir] = end
		return false
	}

	retrans := len(pkt.Payload) > 0 && !seqAfter(end, f.nextSeq[dir])
	if seqAfter(end, f.nextSeq[dir]) {
		f.nextSeq[dir] = end
	}
	return retrans
}

// seqAfter reports a > b in 32-bit serial number arithmetic.
func seqAfter(a, b uint32) bool {
	return int32(a-b) > 0
}

func (f *Flow) isExcluded(id dissector.ProtocolID) bool {
	for _, e := range f.excluded {
		if e == id {
			return true
		}
	}
	return false
}

// flowContext is the view of a flow handed to one dissector invocation.
type flowContext struct {
	flow *Flow
	id   dissector.ProtocolID
	now  time.Time
}

func (c *flowContext) Confirm(id dissector.ProtocolID, confidence dissector.Confidence) {
	if c.flow.detected != dissector.ProtocolUnknown {
		return
	}
	c.flow.detected = id
	c.flow.confidence = confidence
	c.flow.detectedAt = c.now
}

func (c *flowContext) Exclude() {
	if !c.flow.isExcluded(c.id) {
		c.flow.excluded = append(c.flow.excluded, c.id)
	}
}

func (c *flowContext) CurrentProtocol() dissector.ProtocolID {
	return c.flow.detected
}

// FlowSummary is a point-in-time copy of a flow's classification.
type FlowSummary struct {
	Key        FlowKey
	Protocol   string
	ProtocolID dissector.ProtocolID
	Confidence dissector.Confidence
	Excluded   []string
	Packets    uint64
	Bytes      uint64
	FirstSeen  time.Time
	LastSeen   time.Time
	DetectedAt time.Time
}

func (f *Flow) summary(names func(dissector.ProtocolID) string) FlowSummary {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := FlowSummary{
		Key:        f.key,
		Protocol:   names(f.detected),
		ProtocolID: f.detected,
		Confidence: f.confidence,
		Packets:    f.packets,
		Bytes:      f.bytes,
		FirstSeen:  f.firstSeen,
		LastSeen:   f.lastSeen,
		DetectedAt: f.detectedAt,
	}
	for _, id := range f.excluded {
		s.Excluded = append(s.Excluded, names(id))
	}
	return s
}
