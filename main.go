package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"markestedt/layoutfix/config"
	"markestedt/layoutfix/platform"
	"markestedt/layoutfix/platform/native"
	"markestedt/layoutfix/storage"
	"markestedt/layoutfix/systray"
	"markestedt/layoutfix/web"
)

func main() {
	// Setup logging
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	// A broken config file must not take the converter down; the watcher
	// picks up the fix.
	cfg, configPath, err := config.Load()
	if err != nil {
		slog.Warn("Invalid config, using defaults", "path", configPath, "error", err)
	}
	if lvl, err := config.ParseLevel(cfg.Log.Level); err == nil {
		level.Set(lvl)
	}
	slog.Info("Configuration loaded", "path", configPath)

	services, err := native.New()
	if err != nil {
		if errors.Is(err, platform.ErrUnsupportedPlatform) {
			slog.Error("This platform is not supported", "error", err)
		} else {
			slog.Error("Failed to initialize platform", "error", err)
		}
		os.Exit(1)
	}

	var db *storage.DB
	if cfg.History.Enabled {
		dir, err := config.Dir()
		if err == nil {
			db, err = storage.Open(dir)
		}
		if err != nil {
			// History is optional; keep converting without it.
			slog.Warn("History disabled", "error", err)
			db = nil
		}
	}

	agent := NewAgent(cfg, services, AgentOptions{
		ConfigPath: configPath,
		DB:         db,
		Level:      level,
	})

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var server *web.Server
	if cfg.Web.Enabled {
		server = web.NewServer(db, agent)
		agent.AttachWeb(server)
		go func() {
			if err := server.Start(cfg.Web.Port); err != nil {
				slog.Error("Web server stopped", "error", err)
			}
		}()
	}

	if err := run(ctx, cancel, agent, cfg); err != nil {
		slog.Error("Agent error", "error", err)
	}

	if server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		if err := server.Close(shutdownCtx); err != nil {
			slog.Warn("Web server shutdown", "error", err)
		}
		stop()
	}
	if err := agent.Shutdown(); err != nil {
		slog.Warn("Shutdown", "error", err)
	}

	slog.Info("layoutfix stopped")
}

// run blocks until ctx is cancelled or the user quits from the tray.
// The tray owns the main goroutine when enabled.
func run(ctx context.Context, cancel context.CancelFunc, agent *Agent, cfg *config.Config) error {
	if !cfg.Tray.Enabled {
		return agent.Run(ctx)
	}

	dashboard := ""
	if cfg.Web.Enabled {
		dashboard = fmt.Sprintf("http://localhost:%d", cfg.Web.Port)
	}
	tray := systray.New(systray.Options{
		DashboardURL: dashboard,
		OnToggle:     agent.SetEnabled,
	})
	agent.AttachTray(tray)

	errCh := make(chan error, 1)
	go func() {
		errCh <- agent.Run(ctx)
		tray.Stop()
	}()
	go func() {
		select {
		case <-tray.Quit():
			cancel()
		case <-ctx.Done():
		}
	}()

	tray.Run()
	cancel()
	return <-errCh
}
