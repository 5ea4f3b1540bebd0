package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	"firestige.xyz/otusdpi/internal/engine"
	"firestige.xyz/otusdpi/internal/log"
	"firestige.xyz/otusdpi/internal/pipeline"
	"firestige.xyz/otusdpi/internal/report"
	"firestige.xyz/otusdpi/internal/source/file"
)

var (
	classifyFormat  string
	classifyWorkers int
)

var classifyCmd = &cobra.Command{
	Use:   "classify FILE...",
	Short: "Classify the flows in pcap/pcapng capture files",
	Long: `Classify every TCP/UDP flow in one or more capture files and print a report.

Files are processed in parallel, each with its own flow table. The format
(pcap or pcapng) is detected from the file contents.

Examples:
  otus-dpi classify capture.pcap
  otus-dpi classify -o json a.pcapng b.pcap
  otus-dpi classify -c config.yml --workers 4 *.pcap`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runClassify(ctx, cmd, args)
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyFormat, "output", "o", "",
		"report format: table, json or yaml (default output.format)")
	classifyCmd.Flags().IntVarP(&classifyWorkers, "workers", "w", 0,
		"files processed in parallel (default workers)")
}

// fileResult is the outcome of classifying one file.
type fileResult struct {
	source report.SourceResult
	flows  []engine.FlowSummary
}

func runClassify(ctx context.Context, cmd *cobra.Command, paths []string) error {
	format := cfg.Output.Format
	if classifyFormat != "" {
		format = classifyFormat
	}
	if !report.ValidFormat(format) {
		return fmt.Errorf("unsupported output format %q", format)
	}

	workers := cfg.Workers
	if classifyWorkers > 0 {
		workers = classifyWorkers
	}
	workers = max(1, min(workers, len(paths)))

	reg, err := newRegistry(cfg.Engine)
	if err != nil {
		return err
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]fileResult, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = classifyFile(ctx, reg, path)
		}); err != nil {
			wg.Done()
			results[i] = fileResult{source: report.SourceResult{
				Stats: pipeline.Stats{Source: path},
				Err:   fmt.Errorf("submit: %w", err),
			}}
		}
	}
	wg.Wait()

	var (
		sources []report.SourceResult
		flows   []engine.FlowSummary
		failed  int
	)
	for _, r := range results {
		sources = append(sources, r.source)
		flows = append(flows, r.flows...)
		if r.source.Err != nil {
			failed++
		}
	}

	if err := report.Write(cmd.OutOrStdout(), report.Build(sources, flows), format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d capture files failed", failed, len(paths))
	}
	return ctx.Err()
}

func classifyFile(ctx context.Context, reg *engine.Registry, path string) fileResult {
	logger := log.GetLogger().WithField("file", path)
	res := fileResult{source: report.SourceResult{Stats: pipeline.Stats{Source: path}}}

	src, err := file.Open(path)
	if err != nil {
		logger.WithError(err).Error("cannot open capture")
		res.source.Err = err
		return res
	}
	defer src.Close()

	var mu sync.Mutex
	eng := newEngine(reg, cfg.Engine, func(s engine.FlowSummary) {
		mu.Lock()
		res.flows = append(res.flows, s)
		mu.Unlock()
	})
	defer eng.Close()

	p, err := pipeline.NewBuilder().WithSource(src).WithEngine(eng).Build()
	if err != nil {
		logger.WithError(err).Error("cannot classify capture")
		res.source.Err = err
		return res
	}

	stats, err := p.Run(ctx)
	res.source.Stats = stats
	if err != nil && !errors.Is(err, context.Canceled) {
		res.source.Err = err
	}

	mu.Lock()
	res.flows = append(res.flows, eng.Flows()...)
	mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"format":     string(src.Format()),
		"packets":    stats.Received,
		"flows":      len(res.flows),
		"classified": stats.Classified,
	}).Info("capture classified")
	return res
}
