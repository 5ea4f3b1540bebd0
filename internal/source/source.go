// Package source defines where raw frames come from.
package source

import (
	"context"

	"github.com/google/gopacket/layers"

	"firestige.xyz/otusdpi/internal/core"
)

// Source yields raw frames from a capture file or a live interface.
type Source interface {
	// ReadPacket returns the next frame. It returns io.EOF when a finite
	// source is exhausted and ctx.Err() once ctx is cancelled. Data may be
	// reused by the next call.
	ReadPacket(ctx context.Context) (core.RawPacket, error)
	// LinkType is the link layer of every frame the source yields.
	LinkType() layers.LinkType
	// Name identifies the source in logs and reports.
	Name() string
	Close() error
}
