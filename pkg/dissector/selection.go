package dissector

import "strings"

// Attributes describes one packet as seen by the scheduler.
type Attributes uint8

const (
	AttrIPv4 Attributes = 1 << iota
	AttrIPv6
	AttrTCP
	AttrUDP
	AttrPayload
	AttrRetransmission
)

// Selection is the packet filter a dissector declares at registration.
type Selection uint8

const (
	SelectIPv4 Selection = 1 << iota
	SelectIPv6
	SelectTCP
	SelectUDP
	SelectPayload
	SelectNoRetransmission
)

// Common selections.
const (
	SelectionV4V6TCPWithPayloadNoRetransmission = SelectIPv4 | SelectIPv6 | SelectTCP | SelectPayload | SelectNoRetransmission
	SelectionV4V6UDPWithPayload                 = SelectIPv4 | SelectIPv6 | SelectUDP | SelectPayload
)

// Matches reports whether a packet with attributes a should be handed to a
// dissector that registered selection s. At least one IP version and one
// transport bit of s must be present in a.
func (s Selection) Matches(a Attributes) bool {
	ipWant := Attributes(s) & (AttrIPv4 | AttrIPv6)
	if ipWant == 0 || a&ipWant == 0 {
		return false
	}
	l4Want := Attributes(s) & (AttrTCP | AttrUDP)
	if l4Want == 0 || a&l4Want == 0 {
		return false
	}
	if s&SelectPayload != 0 && a&AttrPayload == 0 {
		return false
	}
	if s&SelectNoRetransmission != 0 && a&AttrRetransmission != 0 {
		return false
	}
	return true
}

func (s Selection) String() string {
	var parts []string
	for _, bit := range []struct {
		sel  Selection
		name string
	}{
		{SelectIPv4, "ipv4"},
		{SelectIPv6, "ipv6"},
		{SelectTCP, "tcp"},
		{SelectUDP, "udp"},
		{SelectPayload, "payload"},
		{SelectNoRetransmission, "no-retransmission"},
	} {
		if s&bit.sel != 0 {
			parts = append(parts, bit.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
