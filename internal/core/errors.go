// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared across the engine, decoder and sources.
var (
	// Packet decoding errors
	ErrPacketTooShort      = errors.New("otusdpi: packet too short")
	ErrUnsupportedProto    = errors.New("otusdpi: unsupported protocol")
	ErrUnsupportedLinkType = errors.New("otusdpi: unsupported link type")

	// Engine errors
	ErrDissectorExists  = errors.New("otusdpi: dissector already registered")
	ErrInvalidProtocol  = errors.New("otusdpi: invalid protocol id")
	ErrFlowTableFull    = errors.New("otusdpi: flow table full")
	ErrUnknownDissector = errors.New("otusdpi: unknown dissector")

	// Source errors
	ErrSourceClosed        = errors.New("otusdpi: source closed")
	ErrUnsupportedPlatform = errors.New("otusdpi: unsupported platform")

	// Configuration errors
	ErrConfigInvalid = errors.New("otusdpi: invalid configuration")
)
