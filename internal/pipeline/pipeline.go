// Package pipeline drives frames from one source through decoding and
// classification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"

	"firestige.xyz/otusdpi/internal/core"
	"firestige.xyz/otusdpi/internal/decoder"
	"firestige.xyz/otusdpi/internal/engine"
	"firestige.xyz/otusdpi/internal/log"
	"firestige.xyz/otusdpi/internal/metrics"
	"firestige.xyz/otusdpi/internal/source"
)

// DefaultExpireInterval is how often idle flows are swept.
const DefaultExpireInterval = 10 * time.Second

// Config contains pipeline configuration.
type Config struct {
	Source source.Source
	Engine *engine.Engine
	// ExpireInterval is the sweep period for idle flows, 0 disables it.
	ExpireInterval time.Duration
	// WallClock sweeps with time.Now on a ticker. Otherwise sweeps follow
	// packet timestamps, which keeps offline runs deterministic.
	WallClock bool
}

// Pipeline is a single-threaded read, decode and classify loop over one
// source. Several pipelines may share one Engine.
type Pipeline struct {
	src     source.Source
	decoder *decoder.Decoder
	engine  *engine.Engine
	metrics *Metrics
	cfg     Config
	logger  log.Logger

	lastSweep time.Time
}

// New creates a pipeline. The decoder is chosen from the source's link type.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil || cfg.Engine == nil {
		return nil, errors.New("pipeline requires a source and an engine")
	}
	dec, err := decoder.New(cfg.Source.LinkType())
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", cfg.Source.Name(), err)
	}
	return &Pipeline{
		src:     cfg.Source,
		decoder: dec,
		engine:  cfg.Engine,
		metrics: NewMetrics(cfg.Source.Name()),
		cfg:     cfg,
		logger:  log.GetLogger().WithField("source", cfg.Source.Name()),
	}, nil
}

// Run reads until the source is exhausted or ctx is cancelled. Both are a
// normal stop and return a nil error; a failing source returns its error.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	p.logger.Info("pipeline starting")
	start := time.Now()

	var wg sync.WaitGroup
	if p.cfg.WallClock && p.cfg.ExpireInterval > 0 {
		tickCtx, cancel := context.WithCancel(ctx)
		defer func() {
			cancel()
			wg.Wait()
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.sweepLoop(tickCtx)
		}()
	}

	var runErr error
	for {
		raw, err := p.src.ReadPacket(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				runErr = err
			}
			break
		}
		p.metrics.Received.Add(1)
		metrics.PacketsTotal.WithLabelValues(metrics.StageRead).Inc()

		if err := p.processPacket(raw); err != nil {
			p.logger.WithError(err).Trace("packet not classified")
		}
	}

	stats := p.Stats()
	fields := map[string]interface{}{
		"received":   stats.Received,
		"classified": stats.Classified,
		"elapsed":    time.Since(start).String(),
	}
	if runErr != nil {
		p.logger.WithFields(fields).WithError(runErr).Error("pipeline stopped on error")
	} else {
		p.logger.WithFields(fields).Info("pipeline stopped")
	}
	return stats, runErr
}

func (p *Pipeline) processPacket(raw core.RawPacket) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     raw.Timestamp,
		CaptureLength: int(raw.CaptureLen),
		Length:        int(raw.OrigLen),
	}
	decoded, err := p.decoder.Decode(raw.Data, ci)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedProto) {
			p.metrics.Skipped.Add(1)
			return nil
		}
		p.metrics.DecodeErrors.Add(1)
		metrics.PacketsTotal.WithLabelValues(metrics.StageDecodeError).Inc()
		return fmt.Errorf("decode failed: %w", err)
	}
	p.metrics.Decoded.Add(1)
	metrics.PacketsTotal.WithLabelValues(metrics.StageDecoded).Inc()
	p.metrics.observeTimestamp(decoded.Timestamp)

	res, err := p.engine.Process(decoded)
	if err != nil {
		if errors.Is(err, core.ErrFlowTableFull) {
			p.metrics.Dropped.Add(1)
		}
		return err
	}
	p.metrics.Processed.Add(1)
	if res.Detected {
		p.metrics.Classified.Add(1)
	}

	if !p.cfg.WallClock {
		p.sweepAt(decoded.Timestamp)
	}
	return nil
}

// sweepAt expires idle flows once per interval of packet time.
func (p *Pipeline) sweepAt(now time.Time) {
	if p.cfg.ExpireInterval <= 0 {
		return
	}
	if p.lastSweep.IsZero() {
		p.lastSweep = now
		return
	}
	if now.Sub(p.lastSweep) < p.cfg.ExpireInterval {
		return
	}
	p.lastSweep = now
	p.metrics.Expired.Add(uint64(p.engine.Expire(now)))
}

func (p *Pipeline) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.ExpireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.metrics.Expired.Add(uint64(p.engine.Expire(now)))
		}
	}
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Source:       p.metrics.Source,
		Received:     p.metrics.Received.Load(),
		Decoded:      p.metrics.Decoded.Load(),
		DecodeErrors: p.metrics.DecodeErrors.Load(),
		Skipped:      p.metrics.Skipped.Load(),
		Processed:    p.metrics.Processed.Load(),
		Dropped:      p.metrics.Dropped.Load(),
		Classified:   p.metrics.Classified.Load(),
		Expired:      p.metrics.Expired.Load(),
		Layers:       p.decoder.Stats(),
	}
	if n := p.metrics.firstPacket.Load(); n != 0 {
		s.FirstPacket = time.Unix(0, n)
	}
	if n := p.metrics.lastPacket.Load(); n != 0 {
		s.LastPacket = time.Unix(0, n)
	}
	return s
}

// Stats represents pipeline statistics.
type Stats struct {
	Source       string
	Received     uint64
	Decoded      uint64
	DecodeErrors uint64
	Skipped      uint64
	Processed    uint64
	Dropped      uint64
	Classified   uint64
	Expired      uint64
	Layers       decoder.Stats
	FirstPacket  time.Time
	LastPacket   time.Time
}
