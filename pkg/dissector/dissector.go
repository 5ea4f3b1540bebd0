package dissector

// FlowContext is the capability a dissector receives for one flow. It exposes
// the flow's classification cell and nothing else.
type FlowContext interface {
	// Confirm records that the flow carries protocol id. It has no effect if
	// another protocol is already recorded for the flow.
	Confirm(id ProtocolID, confidence Confidence)
	// Exclude records that the flow is definitively not the calling
	// dissector's protocol. The host stops invoking that dissector.
	Exclude()
	// CurrentProtocol returns the recorded protocol, or ProtocolUnknown.
	CurrentProtocol() ProtocolID
}

// Func inspects the current payload of a flow and reports through flow.
type Func func(flow FlowContext, payload []byte)

// Registration is what a dissector declares to the host.
type Registration struct {
	Name      string
	ID        ProtocolID
	Search    Func
	Selection Selection
}

// Registry accepts dissector registrations.
type Registry interface {
	Register(reg Registration) error
}

// InitFunc registers one dissector under id and returns the next free id.
type InitFunc func(reg Registry, id ProtocolID) (ProtocolID, error)
