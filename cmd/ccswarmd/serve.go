package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kadirpekel/ccswarmd/pkg/autoaccept"
	"github.com/kadirpekel/ccswarmd/pkg/bus"
	"github.com/kadirpekel/ccswarmd/pkg/checkpoint"
	"github.com/kadirpekel/ccswarmd/pkg/config"
	"github.com/kadirpekel/ccswarmd/pkg/hooks"
	"github.com/kadirpekel/ccswarmd/pkg/ipc"
	"github.com/kadirpekel/ccswarmd/pkg/ratelimit"
	"github.com/kadirpekel/ccswarmd/pkg/sessionmanager"
)

// ServeCmd starts the daemon: the session manager, the checkpoint
// store, the auto-accept gate, the hook registry, and the IPC server
// that fronts them all. The delegation/orchestrator/tracing stack runs
// out-of-process via the "task" command instead of inside the daemon's
// own request loop — see TaskCmd.
type ServeCmd struct {
	SocketPath string `name:"socket" help:"Unix socket path (default: \${XDG_RUNTIME_DIR:-/tmp}/ccswarmd.sock)." type:"path"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	cfg, err := loadServeConfig(cli)
	if err != nil {
		return err
	}

	socketPath := c.SocketPath
	if socketPath == "" {
		socketPath = cfg.IPC.SocketPath
	}
	if socketPath == "" {
		socketPath = ipc.DefaultSocketPath("ccswarmd")
	}

	store, err := checkpoint.NewStore(&cfg.Checkpoint)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	manager := sessionmanager.New()
	manager.SetCheckpointStore(store)
	manager.SetBus(bus.New(cfg.BusHistoryLimit(), bus.NewMetrics()))
	defer drainSessions(manager)

	gate, err := buildGate(cfg)
	if err != nil {
		return fmt.Errorf("build auto-accept gate: %w", err)
	}

	handler := ipc.NewGatedHandler(manager, gate).WithHooks(buildHooks())
	server := ipc.NewServerWithHandler(socketPath, handler, slog.Default())

	slog.Info("ccswarmd starting", "socket", socketPath, "checkpoint_dir", cfg.Checkpoint.BaseDir)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("ipc server: %w", err)
	}
	return nil
}

func loadServeConfig(cli *CLI) (*config.Config, error) {
	if cli.Config == "" {
		cfg := &config.Config{}
		cfg.SetDefaults()
		return cfg, nil
	}
	return config.Load(cli.Config)
}

func buildGate(cfg *config.Config) (*autoaccept.Gate, error) {
	fs, cmd := cfg.AutoAcceptProfile().Policies(cfg.AutoAccept.Workdir)
	return autoaccept.NewGate(autoaccept.Config{
		FS:                fs,
		Command:           cmd,
		HostRateLimitPerM: cfg.HostRateLimitPerMinute(),
	}, ratelimit.NewMemoryStore())
}

func buildHooks() *hooks.Registry {
	registry := hooks.New()
	registry.Register(hooks.NewSecurityHook())
	registry.Register(hooks.NewMetricsHook())
	registry.Register(hooks.NewLoggingHook(slog.Default()))
	return registry
}

func drainSessions(manager *sessionmanager.Manager) {
	for _, id := range manager.List() {
		if err := manager.Remove(id); err != nil {
			slog.Warn("failed to stop session on shutdown", "session", id, "error", err)
		}
	}
}
