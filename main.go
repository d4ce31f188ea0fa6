package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ffmerge/config"
	"ffmerge/ffmpeg"
	"ffmerge/ffprobe"
	"ffmerge/internal/logging"
	"ffmerge/metrics"
	"ffmerge/models"
	"ffmerge/pipeline"
	"ffmerge/preset"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		config.Usage(os.Stderr)
		os.Exit(2)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "-help" || cmd == "--help" || cmd == "help" {
		config.Usage(os.Stdout)
		return
	}

	// Step 1: Load configuration (CLI flags > environment > config file > defaults)
	cfg, err := config.Load(cmd, os.Args[2:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	if cfg.SaveConfig != "" {
		if err := config.SaveConfigFile(cfg, cfg.SaveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Configuration saved to %s\n", cfg.SaveConfig)
	}

	// Step 2: Handle dry-run mode
	if cfg.DryRun {
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("                      DRY RUN MODE")
		fmt.Println("═══════════════════════════════════════════════════════════")
		cfg.PrintConfig(os.Stdout, cmd)
		fmt.Println("\n✓ Configuration is valid. No ffmpeg command will be run.")
		return
	}

	logger := logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	defer logger.Sync()

	// Step 3: Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 4: Register signal handlers (Ctrl+C, SIGTERM)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\n\n⚠️  Interrupt received, cleaning up...")
		cancel()
	}()

	// Step 5: Run the subcommand
	if err := run(ctx, cmd, cfg, logger); err != nil {
		if errors.Is(err, pipeline.ErrCancelled) || ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\n⚠️  Cancelled by user")
			os.Exit(130) // Standard exit code for SIGINT
		}
		fmt.Fprintf(os.Stderr, "\n❌ %v\n", err)
		os.Exit(1)
	}
}

// app bundles the services shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	runner   *ffmpeg.ShellRunner
	ffmpeg   *ffmpeg.Locator
	prober   *ffprobe.Prober
	presets  *preset.Registry
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

func newApp(cfg *config.Config, logger *zap.Logger) *app {
	runner := ffmpeg.NewShellRunner(logger)

	ffmpegLoc := ffmpeg.NewLocator("ffmpeg")
	if cfg.FFmpegPath != "" {
		ffmpegLoc.SetPath(cfg.FFmpegPath)
	}
	ffprobeLoc := ffmpeg.NewSiblingLocator("ffprobe", ffmpegLoc)
	if cfg.FFprobePath != "" {
		ffprobeLoc.SetPath(cfg.FFprobePath)
	}

	prober := ffprobe.NewProber(runner, ffmpegLoc, ffprobeLoc, logger)
	prober.RetryDelay = cfg.ProbeRetryDelay

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	prober.OnRetry = m.RecordProbeRetry

	return &app{
		cfg:      cfg,
		logger:   logger,
		runner:   runner,
		ffmpeg:   ffmpegLoc,
		prober:   prober,
		presets:  preset.Default(),
		metrics:  m,
		registry: reg,
	}
}

func run(ctx context.Context, cmd string, cfg *config.Config, logger *zap.Logger) error {
	a := newApp(cfg, logger)

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, a.registry, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	switch cmd {
	case config.CommandMerge:
		return a.merge(ctx)
	case config.CommandConvert:
		return a.convert(ctx)
	case config.CommandProbe:
		return a.probe(ctx)
	case config.CommandPresets:
		a.listPresets()
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) pipeline(opts ...pipeline.Option) *pipeline.Pipeline {
	opts = append([]pipeline.Option{
		pipeline.WithOptions(a.cfg.PipelineOptions()),
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
	}, opts...)
	return pipeline.New(a.runner, a.ffmpeg, a.prober, a.presets, opts...)
}

func (a *app) merge(ctx context.Context) error {
	req := a.cfg.MergeRequest()

	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    FFMERGE - MERGE START                       ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Printf("Inputs: %d\n", len(req.Inputs))
	fmt.Printf("Output: %s\n", req.OutputPath())
	fmt.Println()

	var opts []pipeline.Option
	closeBar := func() {}
	if a.cfg.Verbose {
		// ffmpeg output is on the terminal; a bar would garble it
		opts = append(opts, pipeline.WithProgress(func(mp models.MergeProgress) {
			a.logger.Info("progress", zap.String("merge_id", mp.ID), zap.String("summary", mp.FormatSummary()))
		}))
	} else {
		bar := newProgressBar(os.Stderr, len(req.Inputs))
		closeBar = bar.Close
		opts = append(opts, pipeline.WithProgress(bar.Update))
	}

	result, err := a.pipeline(opts...).Merge(ctx, req)
	closeBar()
	if err != nil {
		for _, stage := range pipeline.FailedStages(err) {
			fmt.Fprintf(os.Stderr, "  ✗ %s\n", stage)
		}
		return err
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("                     ✅ SUCCESS!")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Output:      %s\n", result.OutputPath)
	if res := result.Resolution(); res != "" {
		fmt.Printf("  Resolution:  %s\n", res)
	}
	if d, ok := result.Metadata[ffprobe.FormatPrefix+"duration"]; ok {
		fmt.Printf("  Duration:    %ss\n", d)
	}
	fmt.Printf("  Inputs:      %d merged", len(req.Inputs)-len(result.Skipped))
	if len(result.Skipped) > 0 {
		fmt.Printf(", %d skipped %v", len(result.Skipped), result.Skipped)
	}
	fmt.Println()
	fmt.Printf("  Total time:  %.2fs\n", result.Duration.Seconds())
	fmt.Println("═══════════════════════════════════════════════════════════")
	return nil
}

func (a *app) convert(ctx context.Context) error {
	res, err := a.pipeline().Convert(ctx, a.cfg.ConvertRequest())
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s (%.2fs)\n", res.OutputPath, res.Result.Duration.Seconds())
	return nil
}

func (a *app) probe(ctx context.Context) error {
	for i, file := range a.cfg.Inputs {
		if i > 0 {
			fmt.Println()
		}
		result, err := a.prober.Probe(ctx, file)
		if err != nil {
			return fmt.Errorf("media analysis of %s failed: %w", file, err)
		}
		bitrate, ok, err := a.prober.Bitrate(ctx, file)
		if err != nil {
			return err
		}
		if !ok {
			bitrate = "unknown"
		}

		fmt.Printf("📊 %s\n", file)
		fmt.Printf("  Format:         %s\n", result.Format.FormatLongName)
		if d, err := result.GetDuration(); err == nil {
			fmt.Printf("  Duration:       %.2f seconds\n", d)
		}
		fmt.Printf("  Bitrate:        %s\n", bitrate)
		fmt.Printf("  Audio streams:  %d\n", len(result.GetAudioStreams()))
		fmt.Printf("  Video streams:  %d\n", len(result.GetVideoStreams()))
		if s, ok := result.PrimaryStream(); ok {
			if res := s.Resolution(); res != "" {
				fmt.Printf("  Resolution:     %s\n", res)
			}
			if fps, ok := s.FrameRate(); ok {
				fmt.Printf("  Frame rate:     %.2f fps\n", fps)
			}
		}
		if result.HasChapters() {
			fmt.Printf("  Chapters:       %d\n", len(result.Chapters))
		}
	}
	return nil
}

func (a *app) listPresets() {
	for p := range a.presets.List() {
		fmt.Printf("  %-8s .%s\n", p.Name, p.Extension)
	}
}
