// Package engine tracks flows and schedules dissectors over their packets.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"firestige.xyz/otusdpi/internal/config"
	"firestige.xyz/otusdpi/internal/core"
	"firestige.xyz/otusdpi/internal/log"
	"firestige.xyz/otusdpi/internal/metrics"
	"firestige.xyz/otusdpi/pkg/dissector"
)

// Options configures an Engine.
type Options struct {
	Shards      int
	MaxFlows    int           // 0 = unbounded
	IdleTimeout time.Duration // 0 = flows never expire
	// OnExpire, if set, receives a summary of every flow removed by Expire.
	OnExpire func(FlowSummary)
}

// OptionsFromConfig maps the engine section of the configuration to Options.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		Shards:      cfg.Shards,
		MaxFlows:    cfg.MaxFlows,
		IdleTimeout: cfg.IdleTimeoutDuration(),
	}
}

// Result reports what processing one packet did to its flow.
type Result struct {
	Key      FlowKey
	Protocol dissector.ProtocolID
	// Detected is true only for the packet that classified the flow.
	Detected bool
	// Invoked is the number of dissectors that saw the packet.
	Invoked int
}

// Engine owns the flow table and runs registered dissectors over each
// packet until a flow is classified or every dissector has excluded it.
// Process is safe for concurrent use.
type Engine struct {
	registry   *Registry
	dissectors []dissector.Registration
	table      *flowTable
	opts       Options
	logger     log.Logger
}

// New creates an engine over the dissectors currently in registry.
// Registrations made after New are not scheduled.
func New(registry *Registry, opts Options) *Engine {
	return &Engine{
		registry:   registry,
		dissectors: registry.List(),
		table:      newFlowTable(opts.Shards, opts.MaxFlows),
		opts:       opts,
		logger:     log.GetLogger().WithField("component", "engine"),
	}
}

// Registry returns the registry the engine resolves protocol names from.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Process accounts pkt to its flow and, while the flow is unclassified,
// offers the payload to every dissector whose selection matches and which
// has not excluded the flow.
func (e *Engine) Process(pkt *core.DecodedPacket) (Result, error) {
	switch pkt.Transport.Protocol {
	case core.ProtocolTCP, core.ProtocolUDP:
	default:
		return Result{}, core.ErrUnsupportedProto
	}

	key := NewFlowKey(pkt)
	flow, created, err := e.table.getOrCreate(key, pkt)
	if err != nil {
		if errors.Is(err, core.ErrFlowTableFull) {
			metrics.PacketsTotal.WithLabelValues(metrics.StageFlowTableFull).Inc()
		}
		return Result{Key: key}, err
	}
	if created {
		metrics.ActiveFlows.Inc()
		if e.logger.IsTraceEnabled() {
			e.logger.WithField("flow", key.String()).Trace("new flow")
		}
	}
	metrics.PacketsTotal.WithLabelValues(metrics.StageProcessed).Inc()

	flow.mu.Lock()
	defer flow.mu.Unlock()

	attrs := flow.observe(pkt)
	res := Result{Key: key, Protocol: flow.detected}
	if flow.detected != dissector.ProtocolUnknown {
		return res, nil
	}

	ctx := flowContext{flow: flow, now: pkt.Timestamp}
	for i := range e.dissectors {
		d := &e.dissectors[i]
		if flow.isExcluded(d.ID) || !d.Selection.Matches(attrs) {
			continue
		}

		ctx.id = d.ID
		d.Search(&ctx, pkt.Payload)
		res.Invoked++
		metrics.DissectorCallsTotal.WithLabelValues(d.Name).Inc()

		if flow.isExcluded(d.ID) {
			metrics.VerdictsTotal.WithLabelValues(d.Name, metrics.OutcomeExclude).Inc()
		}
		if flow.detected != dissector.ProtocolUnknown {
			name := e.registry.Name(flow.detected)
			metrics.VerdictsTotal.WithLabelValues(name, metrics.OutcomeConfirm).Inc()
			res.Protocol = flow.detected
			res.Detected = true
			if e.logger.IsDebugEnabled() {
				e.logger.WithFields(map[string]interface{}{
					"flow":       key.String(),
					"protocol":   name,
					"confidence": flow.confidence.String(),
					"packets":    flow.packets,
				}).Debug("flow classified")
			}
			break
		}
	}
	return res, nil
}

// Lookup returns a summary of the flow identified by key.
func (e *Engine) Lookup(key FlowKey) (FlowSummary, bool) {
	f, ok := e.table.get(key)
	if !ok {
		return FlowSummary{}, false
	}
	return f.summary(e.registry.Name), true
}

// Flows returns summaries of all live flows ordered by first packet time.
func (e *Engine) Flows() []FlowSummary {
	flows := e.table.snapshot()
	out := make([]FlowSummary, 0, len(flows))
	for _, f := range flows {
		out = append(out, f.summary(e.registry.Name))
	}
	SortSummaries(out)
	return out
}

// Expire removes flows idle for longer than the configured timeout as of now
// and returns how many were removed.
func (e *Engine) Expire(now time.Time) int {
	if e.opts.IdleTimeout <= 0 {
		return 0
	}
	removed := e.table.expire(now.Add(-e.opts.IdleTimeout))
	if len(removed) == 0 {
		return 0
	}

	metrics.ActiveFlows.Sub(float64(len(removed)))
	metrics.FlowsExpiredTotal.Add(float64(len(removed)))

	if e.opts.OnExpire != nil {
		for _, f := range removed {
			e.opts.OnExpire(f.summary(e.registry.Name))
		}
	}
	e.logger.WithField("count", len(removed)).Debug("expired idle flows")
	return len(removed)
}

// Len returns the number of live flows.
func (e *Engine) Len() int {
	return e.table.len()
}

// Close drops all flows from the active-flow gauge.
func (e *Engine) Close() {
	metrics.ActiveFlows.Sub(float64(e.table.len()))
}

// SortSummaries orders flow summaries by first packet time, then key.
func SortSummaries(s []FlowSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].FirstSeen.Equal(s[j].FirstSeen) {
			return s[i].FirstSeen.Before(s[j].FirstSeen)
		}
		return s[i].Key.String() < s[j].Key.String()
	})
}

func (s FlowSummary) String() string {
	return fmt.Sprintf("%s %s (%s)", s.Key, s.Protocol, s.Confidence)
}
