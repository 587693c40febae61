package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scanwell/scanwell/internal/api"
	"github.com/scanwell/scanwell/internal/api/handlers"
	"github.com/scanwell/scanwell/internal/db"
	"github.com/scanwell/scanwell/internal/discovery"
	"github.com/scanwell/scanwell/internal/engine"
	"github.com/scanwell/scanwell/internal/logging"
	"github.com/scanwell/scanwell/internal/metrics"
	"github.com/scanwell/scanwell/internal/scheduler"
	"github.com/scanwell/scanwell/internal/session"
	"github.com/scanwell/scanwell/internal/targets"
	"github.com/scanwell/scanwell/internal/templates"
)

var (
	servePort   int
	serveNoDB   bool
	serveTplDir string
)

// serveCmd runs the long-lived API server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scanwell API server",
	Long: `Run scanwell as a long-lived service exposing the REST API, the
websocket event stream, Prometheus metrics, and (when enabled) the
cron scheduler. Scan sessions started over the API are persisted when
a database is configured.`,
	Example: `  scanwell serve
  scanwell serve --port 9090
  scanwell serve --config /etc/scanwell/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override the configured API port")
	serveCmd.Flags().BoolVar(&serveNoDB, "no-db", false, "Run without result persistence")
	serveCmd.Flags().StringVar(&serveTplDir, "templates-dir", "templates", "Directory holding custom template files")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	if servePort != 0 {
		cfg.API.Port = servePort
	}
	logger := logging.Default().WithComponent("serve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	banner, err := engine.CheckBinary(ctx, cfg.Engine.BinaryPath)
	if err != nil {
		return fmt.Errorf("engine check failed: %w", err)
	}
	logger.Info("scan engine available", "banner", banner)

	promMetrics := metrics.NewPrometheusMetrics()

	var store *db.SessionStore
	if !serveNoDB && cfg.Database.Database != "" {
		database, dbErr := db.Connect(ctx, &cfg.Database)
		if dbErr != nil {
			return fmt.Errorf("database connection failed: %w", dbErr)
		}
		defer database.Close()
		if dbErr = database.EnsureSchema(ctx); dbErr != nil {
			return fmt.Errorf("schema setup failed: %w", dbErr)
		}
		store = db.NewSessionStore(database)
		logger.Info("result persistence enabled",
			"host", cfg.Database.Host, "database", cfg.Database.Database)
	} else {
		logger.Warn("running without result persistence")
	}

	builder := engine.NewBuilder(cfg.Engine.BinaryPath, cfg.Engine.DefaultTiming)
	supervisor := engine.NewSupervisor(builder, cfg.Engine.MaxConcurrentScans, cfg.Engine.TerminateGrace, logger)
	supervisor.SetJobFinishedHook(promMetrics.JobFinished)

	hub := handlers.NewHub(logger)

	var sessionStore session.Store
	if store != nil {
		sessionStore = store
	}
	coordinator := session.NewCoordinator(
		supervisor, cfg.Engine.ArtifactDir, sessionStore, hub, promMetrics, logger)

	expander := targets.NewExpander(cfg.Targets.CIDRCap, cfg.Targets.RangeCap)
	templateManager := templates.NewManager(serveTplDir)

	var sweeper *discovery.Sweeper
	if cfg.Discovery.Enabled {
		sweeper = discovery.NewSweeper(discovery.Config{
			Timeout:          cfg.Discovery.Timeout,
			ResolveHostnames: cfg.Discovery.ResolveHostnames,
			DNSServer:        cfg.Discovery.DNSServer,
		}, logger)
	}

	var cronScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		location, locErr := time.LoadLocation(cfg.Scheduler.Timezone)
		if locErr != nil {
			return fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Scheduler.Timezone, locErr)
		}
		cronScheduler = scheduler.New(coordinator, expander, location, logger)
		cronScheduler.Start()
		defer cronScheduler.Stop()

		for _, job := range cfg.Scheduler.Jobs {
			if _, addErr := cronScheduler.Add(job.Name, job.Cron, job.Targets, job.Options); addErr != nil {
				return fmt.Errorf("invalid schedule %q: %w", job.Name, addErr)
			}
			logger.Info("registered schedule", "name", job.Name, "cron", job.Cron)
		}
	}

	// Reap jobs whose owner stopped listening.
	go func() {
		ticker := time.NewTicker(cfg.Engine.AbandonedAfter / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := supervisor.CleanupAbandoned(cfg.Engine.AbandonedAfter); n > 0 {
					logger.Warn("cleaned up abandoned jobs", "count", n)
				}
			}
		}
	}()

	server := api.New(cfg.API, api.Dependencies{
		Scans:     handlers.NewScanHandler(coordinator, supervisor, expander, store, templateManager, logger),
		Targets:   handlers.NewTargetHandler(expander),
		Templates: handlers.NewTemplateHandler(templateManager),
		Discovery: handlers.NewDiscoveryHandler(sweeper),
		Schedules: handlers.NewScheduleHandler(cronScheduler),
		Hub:       hub,
		Metrics:   promMetrics,
	}, logger)

	logger.Info("starting API server", "address", cfg.GetAPIAddress())
	return server.Start(ctx)
}
