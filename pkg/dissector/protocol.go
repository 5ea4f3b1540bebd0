// Package dissector defines the contract between the DPI engine and the
// protocol dissectors it schedules.
package dissector

// ProtocolID identifies a registered protocol. The host owns id assignment.
type ProtocolID uint16

// ProtocolUnknown is the state of every flow before a dissector confirms it.
const ProtocolUnknown ProtocolID = 0

// Confidence rates how a protocol match was obtained, weakest first.
type Confidence uint8

const (
	ConfidenceUnknown Confidence = iota
	ConfidenceMatchByPort
	ConfidenceMatchByIP
	ConfidenceDPIPartial
	ConfidenceDPICache
	// ConfidenceDPI is a content-based match and the strongest tier.
	ConfidenceDPI
)

var confidenceNames = map[Confidence]string{
	ConfidenceUnknown:     "unknown",
	ConfidenceMatchByPort: "match-by-port",
	ConfidenceMatchByIP:   "match-by-ip",
	ConfidenceDPIPartial:  "dpi-partial",
	ConfidenceDPICache:    "dpi-cache",
	ConfidenceDPI:         "dpi",
}

func (c Confidence) String() string {
	if name, ok := confidenceNames[c]; ok {
		return name
	}
	return "invalid"
}
