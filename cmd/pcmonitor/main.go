package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/collector"
	"codeberg.org/mutker/pcmonitor/internal/config"
	"codeberg.org/mutker/pcmonitor/internal/dashboard"
	"codeberg.org/mutker/pcmonitor/internal/datalog"
	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/gpu"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"codeberg.org/mutker/pcmonitor/internal/metrics"
	"codeberg.org/mutker/pcmonitor/internal/pid"
	"codeberg.org/mutker/pcmonitor/internal/sampler"
	"codeberg.org/mutker/pcmonitor/internal/server"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Str("file", cfg.ConfigFile).Msg("Config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("Error in main loop")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	errFactory := errors.New()

	pidFile := pid.New(cfg.PIDFile)
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	set, closeGPU := collectors(cfg)
	defer closeGPU()

	csv := datalog.New(datalog.Config{
		Path:        cfg.Log.Path,
		Rotate:      cfg.Log.Rotate,
		RotateBytes: cfg.RotateBytes(),
		QueueLimit:  cfg.Log.QueueLimit,
	})
	if err := csv.Initialize(); err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer csv.Shutdown()

	archive, err := metrics.NewService(metrics.Config{
		Enabled:         cfg.Metrics.Enabled,
		DBPath:          cfg.Metrics.DBPath,
		BatchSize:       cfg.Metrics.BatchSize,
		BatchTimeout:    cfg.Metrics.BatchTimeout,
		BackupOnMigrate: true,
	}, logger.New("metrics"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close metrics archive")
		}
	}()

	s := sampler.New(set, sampler.WithSinks(csv, archive))
	if err := s.Start(cfg.Interval); err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	// Deferred calls run in reverse, so the sampler stops before its sinks
	defer s.Stop()

	logger.Info().
		Dur("interval", cfg.Interval).
		Str("log", cfg.Log.Path).
		Bool("archive", archive.Enabled()).
		Msg("Monitoring started")

	if cfg.Server.Enabled {
		return serve(ctx, cfg, s, os.Stdout)
	}

	console(ctx, cfg, s, os.Stdout)
	return nil
}

// collectors builds the collector set. A missing GPU degrades to zero
// readings instead of failing startup.
func collectors(cfg *config.Config) (collector.Set, func()) {
	var (
		gpuCollector collector.Collector[telemetry.GPUMetrics]
		closeGPU     = func() {}
	)

	nv, err := gpu.Open(logger.New("gpu"))
	if err != nil {
		gpuCollector = gpu.NewUnavailable(err, logger.New("gpu"))
	} else {
		gpuCollector = nv
		closeGPU = func() {
			if err := nv.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to shut down NVML")
			}
		}
	}

	set := collector.Set{
		GPU:     gpuCollector,
		CPU:     collector.NewCPU(),
		RAM:     collector.NewRAM(cfg.Hardware.RAMSpeedMHz, cfg.Hardware.RAMLatencyCL),
		Storage: collector.NewStorage(),
		Power:   collector.NewPower(cfg.Hardware.PSUWattage),
		Thermal: collector.NewThermal(),
	}

	return set.WithTimeout(cfg.Collector.Timeout), closeGPU
}

func serve(ctx context.Context, cfg *config.Config, s *sampler.Sampler, out io.Writer) error {
	errFactory := errors.New()

	srv := server.New(s.CurrentSnapshot,
		dashboard.New(cfg.Server.Dashboard, logger.New("dashboard")),
		server.WithReadTimeout(cfg.Server.ReadTimeout))
	if err := srv.Start(cfg.Server.Port); err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	fmt.Fprintln(out, serverBanner(cfg.Server.Port))

	<-ctx.Done()
	logger.Info().Msg("Received termination signal.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

func serverBanner(port int) string {
	return fmt.Sprintf("Web server running. Dashboard: http://localhost:%d/  API: http://localhost:%d/api/metrics", port, port)
}

// console prints a status line every status interval until ctx ends
func console(ctx context.Context, cfg *config.Config, s *sampler.Sampler, out io.Writer) {
	fmt.Fprintf(out, "Running in console mode, logging to %s. Use --web to enable the web interface.\n", cfg.Log.Path)

	ticker := time.NewTicker(cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Received termination signal.")
			return
		case now := <-ticker.C:
			fmt.Fprintln(out, statusLine(now, s.CurrentSnapshot()))
		}
	}
}

func statusLine(now time.Time, snap telemetry.Snapshot) string {
	if snap.CapturedAt.IsZero() {
		return fmt.Sprintf("%s - waiting for first sample", now.Format(time.TimeOnly))
	}

	return fmt.Sprintf("%s - CPU %.1f%% %d°C | GPU %d%% %d°C | RAM %.1f%% | %dW @ %.1f%%",
		now.Format(time.TimeOnly),
		snap.CPU.UtilizationPercent, snap.CPU.TemperatureC,
		snap.GPU.UtilizationPercent, snap.GPU.TemperatureC,
		snap.RAM.UtilizationPercent,
		snap.Power.SystemPowerW, snap.Power.EfficiencyPercent)
}
