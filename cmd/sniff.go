package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/otusdpi/internal/engine"
	"firestige.xyz/otusdpi/internal/log"
	"firestige.xyz/otusdpi/internal/metrics"
	"firestige.xyz/otusdpi/internal/pipeline"
	"firestige.xyz/otusdpi/internal/report"
	"firestige.xyz/otusdpi/internal/source/afpacket"
)

var (
	sniffInterface string
	sniffDuration  time.Duration
	sniffMetrics   bool
	sniffFormat    string
)

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Classify flows on a live interface",
	Long: `Capture TCP/UDP traffic from a network interface with AF_PACKET and
classify flows as they arrive. Classified flows are logged as they expire;
a report of the remaining flows is printed on exit.

Requires Linux and CAP_NET_RAW.

Examples:
  otus-dpi sniff -i eth0
  otus-dpi sniff -i eth0 -d 5m --metrics -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if sniffDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, sniffDuration)
			defer cancel()
		}
		return runSniff(ctx, cmd)
	},
}

func init() {
	sniffCmd.Flags().StringVarP(&sniffInterface, "interface", "i", "",
		"interface to capture on (default capture.interface)")
	sniffCmd.Flags().DurationVarP(&sniffDuration, "duration", "d", 0,
		"stop after this long (default until interrupted)")
	sniffCmd.Flags().BoolVar(&sniffMetrics, "metrics", false,
		"serve Prometheus metrics (default metrics.enabled)")
	sniffCmd.Flags().StringVarP(&sniffFormat, "output", "o", "",
		"report format: table, json or yaml (default output.format)")
}

func runSniff(ctx context.Context, cmd *cobra.Command) error {
	capture := cfg.Capture
	if sniffInterface != "" {
		capture.Interface = sniffInterface
	}
	format := cfg.Output.Format
	if sniffFormat != "" {
		format = sniffFormat
	}
	if !report.ValidFormat(format) {
		return fmt.Errorf("unsupported output format %q", format)
	}

	if cfg.Metrics.Enabled || sniffMetrics {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	reg, err := newRegistry(cfg.Engine)
	if err != nil {
		return err
	}

	logger := log.GetLogger().WithField("interface", capture.Interface)
	eng := newEngine(reg, cfg.Engine, func(s engine.FlowSummary) {
		if s.ProtocolID == 0 {
			return
		}
		logger.WithFields(map[string]interface{}{
			"flow":     s.Key.String(),
			"protocol": s.Protocol,
			"packets":  s.Packets,
			"bytes":    s.Bytes,
		}).Info("flow expired")
	})
	defer eng.Close()

	src, err := afpacket.Open(capture)
	if err != nil {
		return err
	}
	defer src.Close()

	p, err := pipeline.NewBuilder().
		WithSource(src).
		WithEngine(eng).
		WithWallClock(true).
		Build()
	if err != nil {
		return err
	}

	stats, runErr := p.Run(ctx)
	received, dropped := src.Stats()
	logger.WithFields(map[string]interface{}{
		"received":       received,
		"kernel_dropped": dropped,
	}).Info("capture finished")

	sources := []report.SourceResult{{Stats: stats, Err: runErr}}
	if err := report.Write(cmd.OutOrStdout(), report.Build(sources, eng.Flows()), format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return runErr
}
