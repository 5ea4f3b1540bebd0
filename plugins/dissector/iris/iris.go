// Package iris recognises the InterSystems IRIS database wire protocol.
//
// Every IRIS message starts with an 18-byte header whose message type is one
// of a closed set of operation codes. A TCP flow is confirmed as IRIS when the
// header of its current payload carries a known code, and excluded when the
// payload is too short to hold a header or the code is unknown. Each call is
// judged on its own bytes; no evidence is carried between segments.
package iris

import (
	"fmt"

	"firestige.xyz/otusdpi/internal/log"
	"firestige.xyz/otusdpi/pkg/dissector"
)

// Name is the protocol name registered with the engine.
const Name = "IRIS"

// Outcome is the decision taken for one payload.
type Outcome uint8

const (
	// OutcomeNoOp means the header matched but another protocol was already
	// recorded for the flow.
	OutcomeNoOp Outcome = iota
	OutcomeConfirm
	OutcomeExclude
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirm:
		return "confirm"
	case OutcomeExclude:
		return "exclude"
	default:
		return "noop"
	}
}

// Init registers the dissector under id and returns the next free id.
func Init(reg dissector.Registry, id dissector.ProtocolID) (dissector.ProtocolID, error) {
	err := reg.Register(dissector.Registration{
		Name:      Name,
		ID:        id,
		Search:    searcher(id),
		Selection: dissector.SelectionV4V6TCPWithPayloadNoRetransmission,
	})
	if err != nil {
		return id, fmt.Errorf("register %s: %w", Name, err)
	}
	return id + 1, nil
}

func searcher(id dissector.ProtocolID) dissector.Func {
	return func(flow dissector.FlowContext, payload []byte) {
		Search(flow, id, payload)
	}
}

// Search classifies payload and reports the result through flow, confirming
// it as protocol id. The returned Outcome mirrors what was reported.
func Search(flow dissector.FlowContext, id dissector.ProtocolID, payload []byte) Outcome {
	hdr, err := DecodeHeader(payload)
	if err == nil && !hdr.MessageType.Known() {
		err = ErrUnrecognizedMessageType
	}

	outcome := Classify(err, flow.CurrentProtocol())
	switch outcome {
	case OutcomeConfirm:
		flow.Confirm(id, dissector.ConfidenceDPI)
	case OutcomeExclude:
		if logger := log.GetLogger(); logger.IsDebugEnabled() {
			logger.WithError(err).WithFields(map[string]interface{}{
				"payload_len":  len(payload),
				"message_type": uint16(hdr.MessageType),
			}).Debug("IRIS excluded")
		}
		flow.Exclude()
	}
	return outcome
}

// Classify maps a header decoding result and the flow's current protocol to
// an outcome. err is nil when the header decoded and its type is known.
func Classify(err error, current dissector.ProtocolID) Outcome {
	if err != nil {
		return OutcomeExclude
	}
	if current != dissector.ProtocolUnknown {
		return OutcomeNoOp
	}
	return OutcomeConfirm
}
