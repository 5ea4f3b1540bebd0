//go:build linux

// Package afpacket captures frames from a live interface with AF_PACKET v3.
package afpacket

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/otusdpi/internal/config"
	"firestige.xyz/otusdpi/internal/core"
	"firestige.xyz/otusdpi/internal/log"
)

// Source reads frames from one interface through a TPACKET_V3 ring.
type Source struct {
	handle *afpacket.TPacket
	iface  string
	logger log.Logger

	received atomic.Uint64
	dropped  atomic.Uint64
}

// Open binds a capture ring to cfg.Interface. Only TCP and UDP over IPv4 or
// IPv6 reach user space; everything else is dropped by a socket filter.
func Open(cfg config.CaptureConfig) (*Source, error) {
	if cfg.Interface == "" {
		return nil, fmt.Errorf("%w: capture interface is required", core.ErrConfigInvalid)
	}

	frameSize, blockSize, numBlocks, err := ringSize(cfg.BufferSizeMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(timeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("open afpacket on %s: %w", cfg.Interface, err)
	}

	s := &Source{
		handle: tp,
		iface:  cfg.Interface,
		logger: log.GetLogger().WithField("interface", cfg.Interface),
	}

	if cfg.FanoutID > 0 {
		if err := tp.SetFanout(afpacket.FanoutHashWithDefrag, cfg.FanoutID); err != nil {
			tp.Close()
			return nil, fmt.Errorf("set fanout %d on %s: %w", cfg.FanoutID, cfg.Interface, err)
		}
	}

	filter, err := assembleFilter(cfg.SnapLen)
	if err == nil {
		err = tp.SetBPF(filter)
	}
	if err != nil {
		tp.Close()
		return nil, fmt.Errorf("set socket filter on %s: %w", cfg.Interface, err)
	}

	if err := tp.InitSocketStats(); err != nil {
		s.logger.WithError(err).Warn("failed to init socket stats")
	}

	s.logger.WithFields(map[string]interface{}{
		"frame_size": frameSize,
		"block_size": blockSize,
		"num_blocks": numBlocks,
		"fanout_id":  cfg.FanoutID,
	}).Info("afpacket capture opened")
	return s, nil
}

// ReadPacket blocks until a frame arrives or ctx is cancelled. The returned
// data points into the ring and is valid until the next call.
func (s *Source) ReadPacket(ctx context.Context) (core.RawPacket, error) {
	for {
		if err := ctx.Err(); err != nil {
			return core.RawPacket{}, err
		}
		if s.handle == nil {
			return core.RawPacket{}, core.ErrSourceClosed
		}

		data, ci, err := s.handle.ZeroCopyReadPacketData()
		if err != nil {
			if errors.Is(err, afpacket.ErrTimeout) || errors.Is(err, afpacket.ErrPoll) {
				continue
			}
			return core.RawPacket{}, fmt.Errorf("read from %s: %w", s.iface, err)
		}

		s.received.Add(1)
		return core.RawPacket{
			Data:       data,
			Timestamp:  ci.Timestamp,
			CaptureLen: uint32(ci.CaptureLength),
			OrigLen:    uint32(ci.Length),
		}, nil
	}
}

func (s *Source) LinkType() layers.LinkType {
	return layers.LinkTypeEthernet
}

func (s *Source) Name() string {
	return s.iface
}

// Stats returns frames received and frames the kernel dropped.
func (s *Source) Stats() (received, dropped uint64) {
	if s.handle != nil {
		if _, v3, err := s.handle.SocketStats(); err == nil {
			s.dropped.Store(uint64(v3.Drops()))
		}
	}
	return s.received.Load(), s.dropped.Load()
}

// Close releases the ring. It must not race with ReadPacket; callers stop
// reading first.
func (s *Source) Close() error {
	if s.handle == nil {
		return nil
	}
	s.handle.Close()
	s.handle = nil
	s.logger.Info("afpacket capture closed")
	return nil
}
