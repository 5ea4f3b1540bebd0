//go:build !linux

package afpacket

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/gopacket/layers"

	"firestige.xyz/otusdpi/internal/config"
	"firestige.xyz/otusdpi/internal/core"
)

// Source is unavailable outside Linux.
type Source struct{}

// Open always fails with core.ErrUnsupportedPlatform.
func Open(cfg config.CaptureConfig) (*Source, error) {
	return nil, fmt.Errorf("afpacket on %s: %w", runtime.GOOS, core.ErrUnsupportedPlatform)
}

func (s *Source) ReadPacket(ctx context.Context) (core.RawPacket, error) {
	return core.RawPacket{}, core.ErrUnsupportedPlatform
}

func (s *Source) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (s *Source) Name() string { return "" }

func (s *Source) Stats() (received, dropped uint64) { return 0, 0 }

func (s *Source) Close() error { return nil }
