package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/signalsfoundry/geoar-bridge/core"
	"github.com/signalsfoundry/geoar-bridge/internal/config"
	"github.com/signalsfoundry/geoar-bridge/internal/logging"
	"github.com/signalsfoundry/geoar-bridge/internal/observability"
	"github.com/signalsfoundry/geoar-bridge/internal/sim"
	"github.com/signalsfoundry/geoar-bridge/timectrl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	scenarioPath string
	tick         time.Duration
	accelerated  bool
	metricsAddr  string
	logLevel     string
	logFormat    string
	quiet        bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("simulator", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "bridge configuration YAML (defaults apply when empty)")
	fs.StringVarP(&opts.scenarioPath, "scenario", "s", "configs/scenario.yaml", "scenario YAML to replay")
	fs.DurationVar(&opts.tick, "tick", 0, "frame interval, overriding the scenario's")
	fs.BoolVar(&opts.accelerated, "accelerated", true, "produce frames back to back instead of in real time")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "", "log format override (text, json)")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "do not print rendered frames")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return opts, nil
}

func loadConfig(opts options) (config.BridgeConfig, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = opts.metricsAddr
	}
	cfg.Tracing = observability.ApplyTracingEnv(cfg.Tracing)
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = stderr
	log := logging.New(logCfg)

	f, err := os.Open(opts.scenarioPath)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	sc, err := sim.LoadScenario(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("load scenario %q: %w", opts.scenarioPath, err)
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSessionCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics.Listen, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	frames := stdout
	if opts.quiet {
		frames = io.Discard
	}
	dev := sim.NewDevice(sc.Device, frames)
	sessionOpts := append(cfg.SessionOptions(),
		core.WithLogger(log),
		core.WithMetrics(collector),
		core.WithTracer(observability.Tracer()),
	)
	session := core.NewSession(dev.Dependencies(), sessionOpts...)
	defer session.StopTracking()

	mode := timectrl.RealTime
	if opts.accelerated {
		mode = timectrl.Accelerated
	}
	runner := sim.NewRunner(sc, session, dev, log)

	log.Info(ctx, "starting scenario",
		logging.String("scenario", sc.Name),
		logging.Int("frames", sc.Frames),
		logging.String("mode", mode.String()),
	)
	sum, err := runner.Run(ctx, mode, opts.tick)
	printSummary(stdout, sc, sum)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printSummary(w io.Writer, sc *sim.Scenario, sum sim.Summary) {
	fmt.Fprintf(w, "scenario %q: %d/%d frames, %d rendered, state=%s\n",
		sc.Name, sum.Frames, sc.Frames, sum.Rendered, sum.FinalState)
	fmt.Fprintf(w, "notifications=%v failures=%d tracker_runs=%d tracker_resets=%d\n",
		sum.Notifications, sum.Failures, sum.TrackerRuns, sum.TrackerResets)
	fmt.Fprintf(w, "anchors=%d planes=%d translation_factor=%g\n",
		sum.Anchors, sum.Planes, sum.TranslationFactor)
	if sum.Anchor != nil && sum.Anchor.Geo != nil {
		g := sum.Anchor.Geo
		fmt.Fprintf(w, "anchor lon=%.7f lat=%.7f alt=%.2f wkid=%d watermark=%.2fm\n",
			g.Longitude, g.Latitude, g.Altitude, g.WKID, sum.Watermark)
	}
}

func serveMetrics(addr string, collector *observability.SessionCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
