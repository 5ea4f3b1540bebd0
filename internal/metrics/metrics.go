// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Packet stages counted by PacketsTotal.
const (
	StageRead          = "read"
	StageDecoded       = "decoded"
	StageDecodeError   = "decode_error"
	StageProcessed     = "processed"
	StageFlowTableFull = "flow_table_full"
)

// Verdict outcomes counted by VerdictsTotal.
const (
	OutcomeConfirm = "confirm"
	OutcomeExclude = "exclude"
)

var (
	// PacketsTotal counts packets by pipeline stage
	PacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otus_dpi_packets_total",
			Help: "Total number of packets by processing stage",
		},
		[]string{"stage"},
	)

	// DissectorCallsTotal counts dissector invocations
	DissectorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otus_dpi_dissector_calls_total",
			Help: "Total number of dissector invocations",
		},
		[]string{"protocol"},
	)

	// VerdictsTotal counts confirm/exclude decisions per dissector
	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otus_dpi_verdicts_total",
			Help: "Total number of dissector verdicts by outcome",
		},
		[]string{"protocol", "outcome"},
	)

	// ActiveFlows tracks flows currently held in the flow table
	ActiveFlows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "otus_dpi_active_flows",
			Help: "Current number of flows in the flow table",
		},
	)

	// FlowsExpiredTotal counts flows removed after their idle timeout
	FlowsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "otus_dpi_flows_expired_total",
			Help: "Total number of flows expired from the flow table",
		},
	)
)
