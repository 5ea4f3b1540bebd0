package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	headerColor  = color.New(color.FgBlue)
	detectColor  = color.New(color.FgGreen)
	unknownColor = color.New(color.FgYellow)
)

const timeLayout = "2006-01-02 15:04:05.000"

// WriteTable renders the source, protocol and flow tables.
func WriteTable(w io.Writer, r *Report) error {
	sources := newTable("Source", "Packets", "Decoded", "Errors", "Skipped", "Dropped", "Classified", "First packet", "Last packet")
	for _, s := range r.Sources {
		name := s.Name
		if s.Error != "" {
			name += " (" + s.Error + ")"
		}
		sources.AppendRow(table.Row{name, s.Packets, s.Decoded, s.DecodeErrors, s.Skipped, s.Dropped, s.Classified,
			formatTime(s.FirstPacket), formatTime(s.LastPacket)})
	}
	sources.AppendFooter(table.Row{"total", r.Totals.Packets})

	protocols := newTable("Protocol", "Flows", "Packets", "Bytes")
	for _, p := range r.Protocols {
		protocols.AppendRow(table.Row{colorProtocol(p.Protocol), p.Flows, p.Packets, p.Bytes})
	}
	protocols.AppendFooter(table.Row{"classified", fmt.Sprintf("%d/%d", r.Totals.Classified, r.Totals.Flows)})

	flows := newTable("Flow", "Protocol", "Confidence", "Packets", "Bytes", "First seen", "Excluded")
	for _, f := range r.Flows {
		flows.AppendRow(table.Row{f.Flow, colorProtocol(f.Protocol), f.Confidence, f.Packets, f.Bytes,
			formatTime(f.FirstSeen), strings.Join(f.Excluded, ",")})
	}

	for _, t := range []table.Writer{sources, protocols, flows} {
		if _, err := fmt.Fprintln(w, t.Render()); err != nil {
			return err
		}
	}
	return nil
}

func newTable(headers ...string) table.Writer {
	t := table.NewWriter()
	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = headerColor.Sprint(h)
	}
	t.AppendHeader(row)
	t.SetStyle(table.StyleLight)
	return t
}

func colorProtocol(name string) string {
	if name == "Unknown" {
		return unknownColor.Sprint(name)
	}
	return detectColor.Sprint(name)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}
