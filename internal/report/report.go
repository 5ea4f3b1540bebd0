// Package report renders classification results.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"firestige.xyz/otusdpi/internal/engine"
	"firestige.xyz/otusdpi/internal/pipeline"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Report is the result of classifying one or more sources.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	Sources     []SourceSummary `json:"sources" yaml:"sources"`
	Protocols   []ProtocolCount `json:"protocols" yaml:"protocols"`
	Flows       []FlowEntry     `json:"flows" yaml:"flows"`
	Totals      Totals          `json:"totals" yaml:"totals"`
}

// SourceSummary is what one capture file or interface contributed.
type SourceSummary struct {
	Name         string    `json:"name" yaml:"name"`
	Packets      uint64    `json:"packets" yaml:"packets"`
	Decoded      uint64    `json:"decoded" yaml:"decoded"`
	DecodeErrors uint64    `json:"decode_errors" yaml:"decode_errors"`
	Skipped      uint64    `json:"skipped" yaml:"skipped"`
	Dropped      uint64    `json:"dropped" yaml:"dropped"`
	Classified   uint64    `json:"classified" yaml:"classified"`
	FirstPacket  time.Time `json:"first_packet,omitempty" yaml:"first_packet,omitempty"`
	LastPacket   time.Time `json:"last_packet,omitempty" yaml:"last_packet,omitempty"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProtocolCount aggregates flows per detected protocol.
type ProtocolCount struct {
	Protocol string `json:"protocol" yaml:"protocol"`
	Flows    int    `json:"flows" yaml:"flows"`
	Packets  uint64 `json:"packets" yaml:"packets"`
	Bytes    uint64 `json:"bytes" yaml:"bytes"`
}

// FlowEntry is one flow in the report.
type FlowEntry struct {
	Flow       string    `json:"flow" yaml:"flow"`
	Protocol   string    `json:"protocol" yaml:"protocol"`
	Confidence string    `json:"confidence" yaml:"confidence"`
	Packets    uint64    `json:"packets" yaml:"packets"`
	Bytes      uint64    `json:"bytes" yaml:"bytes"`
	FirstSeen  time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen   time.Time `json:"last_seen" yaml:"last_seen"`
	Excluded   []string  `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

// Totals summarises the whole report.
type Totals struct {
	Sources    int    `json:"sources" yaml:"sources"`
	Packets    uint64 `json:"packets" yaml:"packets"`
	Flows      int    `json:"flows" yaml:"flows"`
	Classified int    `json:"classified" yaml:"classified"`
}

// SourceResult pairs a pipeline's statistics with the error that stopped it.
type SourceResult struct {
	Stats pipeline.Stats
	Err   error
}

// Build assembles a report. Flows are sorted by first packet time.
func Build(sources []SourceResult, flows []engine.FlowSummary) *Report {
	r := &Report{GeneratedAt: time.Now().UTC()}

	for _, s := range sources {
		sum := SourceSummary{
			Name:         s.Stats.Source,
			Packets:      s.Stats.Received,
			Decoded:      s.Stats.Decoded,
			DecodeErrors: s.Stats.DecodeErrors,
			Skipped:      s.Stats.Skipped,
			Dropped:      s.Stats.Dropped,
			Classified:   s.Stats.Classified,
			FirstPacket:  s.Stats.FirstPacket.UTC(),
			LastPacket:   s.Stats.LastPacket.UTC(),
		}
		if s.Stats.FirstPacket.IsZero() {
			sum.FirstPacket, sum.LastPacket = time.Time{}, time.Time{}
		}
		if s.Err != nil {
			sum.Error = s.Err.Error()
		}
		r.Sources = append(r.Sources, sum)
		r.Totals.Packets += s.Stats.Received
	}
	r.Totals.Sources = len(r.Sources)

	sorted := append([]engine.FlowSummary(nil), flows...)
	engine.SortSummaries(sorted)

	counts := make(map[string]*ProtocolCount)
	for _, f := range sorted {
		r.Flows = append(r.Flows, FlowEntry{
			Flow:       f.Key.String(),
			Protocol:   f.Protocol,
			Confidence: f.Confidence.String(),
			Packets:    f.Packets,
			Bytes:      f.Bytes,
			FirstSeen:  f.FirstSeen.UTC(),
			LastSeen:   f.LastSeen.UTC(),
			Excluded:   f.Excluded,
		})

		c, ok := counts[f.Protocol]
		if !ok {
			c = &ProtocolCount{Protocol: f.Protocol}
			counts[f.Protocol] = c
		}
		c.Flows++
		c.Packets += f.Packets
		c.Bytes += f.Bytes

		if f.ProtocolID != 0 {
			r.Totals.Classified++
		}
	}
	r.Totals.Flows = len(r.Flows)

	for _, c := range counts {
		r.Protocols = append(r.Protocols, *c)
	}
	sort.Slice(r.Protocols, func(i, j int) bool {
		if r.Protocols[i].Flows != r.Protocols[j].Flows {
			return r.Protocols[i].Flows > r.Protocols[j].Flows
		}
		return r.Protocols[i].Protocol < r.Protocols[j].Protocol
	})
	return r
}

// ValidFormat reports whether format is a supported output format.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Write renders r to w in format.
func Write(w io.Writer, r *Report, format string) error {
	switch strings.ToLower(format) {
	case FormatTable:
		return WriteTable(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
