package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/burrow/pkg/api"
	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/objectstore"
	"github.com/cuemby/burrow/pkg/orchestrator"
	"github.com/cuemby/burrow/pkg/recovery"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/retry"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/scheduler"
	"github.com/cuemby/burrow/pkg/security"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Burrow control plane",
	Long: `Start the lifecycle API, the crash recovery hook and the per-instance
sync loops. Configuration comes from a yaml file layered over built-in
defaults; flags override the file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		apiAddr, _ := cmd.Flags().GetString("api-addr")
		dataDir, _ := cmd.Flags().GetString("data-dir")

		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		if apiAddr != "" {
			cfg.APIAddr = apiAddr
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().String("config", "/etc/burrow/burrow.yaml", "Path to config file")
	serveCmd.Flags().String("api-addr", "", "Listen address for the lifecycle API (overrides config)")
	serveCmd.Flags().String("data-dir", "", "State directory (overrides config)")
}

func serve(cfg config.File) error {
	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	logger := log.WithComponent("burrowd")
	metrics.Register()

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer store.Close()

	reg, cleanup, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}

	objects, err := objectstore.NewLocalStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open object store: %w", err)
	}

	secrets, err := newSecretsManager(cfg)
	if err != nil {
		return err
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	// Audit trail: every lifecycle event lands in the logs.
	go func() {
		eventLog := log.WithComponent("events")
		for event := range broker.Subscribe() {
			eventLog.Info().
				Str("event", string(event.Type)).
				Str("tenant_id", event.TenantID).
				Msg(event.Message)
		}
	}()

	orchCfg := orchestratorConfig(cfg)
	fleet := orchestrator.NewFleet(orchCfg, orchestrator.Deps{
		Store:     store,
		Registry:  reg,
		Runtime:   rt,
		Objects:   objects,
		Env:       config.NewLayering(secrets, cfg.SandboxDefaults),
		Events:    broker,
		Scheduler: scheduler.NewTimerScheduler(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Crash recovery hook: restarted until shutdown so a dropped Docker
	// event stream never silently disables recovery.
	hook := recovery.NewHook(fleet, rt, retry.DefaultPolicy())
	go func() {
		for ctx.Err() == nil {
			if err := hook.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("crash recovery hook exited, restarting")
			}
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
		}
	}()

	// Fleet-wide gauge, refreshed from the registry mirror.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rows, err := fleet.List(ctx)
				if err != nil {
					continue
				}
				counts := make(map[types.Status]int)
				for _, row := range rows {
					counts[row.Status]++
				}
				for _, status := range []types.Status{types.StatusProvisioned, types.StatusRunning, types.StatusStopped} {
					metrics.InstancesByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
				}
			}
		}
	}()

	mux := http.NewServeMux()
	api.NewHandler(fleet, retry.DefaultPolicy()).Mount(mux)
	server := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.APIAddr).Msg("lifecycle API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("API server failed")
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("API server shutdown incomplete")
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func openRegistry(cfg config.File) (registry.Registry, func(), error) {
	if cfg.PostgresDSN == "" {
		regLogger := log.WithComponent("burrowd")
		regLogger.Warn().Msg("no postgres_dsn configured, using in-memory registry")
		return registry.NewMemoryRegistry(), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reg, err := registry.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open registry: %w", err)
	}
	return reg, func() { reg.Close() }, nil
}

func newRuntime(cfg config.File) (runtime.Runtime, error) {
	dockerCfg := runtime.DefaultDockerConfig()
	if cfg.SandboxImage != "" {
		dockerCfg.Image = cfg.SandboxImage
	}
	rt, err := runtime.NewDockerRuntime(dockerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docker: %w", err)
	}
	return rt, nil
}

func newSecretsManager(cfg config.File) (*security.SecretsManager, error) {
	if cfg.SecretsPassword != "" {
		return security.NewSecretsManagerFromPassword(cfg.SecretsPassword)
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "burrow"
	}
	return security.NewSecretsManager(security.DeriveKeyFromPlatformID(hostname))
}

func orchestratorConfig(cfg config.File) orchestrator.Config {
	out := orchestrator.DefaultConfig()
	out.Bucket = cfg.Bucket
	out.MountPath = cfg.MountPath
	if d := cfg.Sync.FirstDelay.Std(); d > 0 {
		out.FirstSyncDelay = d
	}
	if d := cfg.Sync.Interval.Std(); d > 0 {
		out.SyncInterval = d
	}
	if d := cfg.Sync.BackoffBase.Std(); d > 0 {
		out.BackoffBase = d
	}
	if d := cfg.Sync.BackoffCap.Std(); d > 0 {
		out.BackoffCap = d
	}
	if cfg.Sync.SelfHealThreshold > 0 {
		out.SelfHealThreshold = cfg.Sync.SelfHealThreshold
	}
	if d := cfg.Sync.LockStaleAfter.Std(); d > 0 {
		out.LockStaleAfter = d
	}
	return out
}
