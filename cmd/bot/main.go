package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/reshetovitsme/folkomatic/internal/di"
	deliveryService "github.com/reshetovitsme/folkomatic/internal/modules/delivery/service"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	apperrors "github.com/reshetovitsme/folkomatic/internal/shared/errors"
	httpServer "github.com/reshetovitsme/folkomatic/internal/transport/http"
	"github.com/reshetovitsme/folkomatic/internal/transport/telegram"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"
)

func main() {
	configPath := flag.String("config", "", "settings file (default settings.toml, or $"+config.EnvConfigPath+")")
	flag.Parse()

	slog.SetDefault(newLogger(slog.LevelInfo, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, apperrors.ErrConfigMissing) {
			fmt.Fprintln(os.Stderr, "Fill in the settings file and start the bot again.")
		}
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logFile, err := openLogFile(cfg.Log.File)
	if err != nil {
		slog.Error("Failed to open log file", "error", err, "path", cfg.Log.File)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
		slog.SetDefault(newLogger(cfg.LogLevel(), logFile))
	} else {
		slog.SetDefault(newLogger(cfg.LogLevel(), nil))
	}

	// Setup dependency injection
	injector, err := di.Setup(cfg)
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	loop, err := do.Invoke[*deliveryService.Service](injector)
	if err != nil {
		slog.Error("Failed to create delivery loop", "error", err)
		os.Exit(1)
	}
	connector := do.MustInvoke[*telegram.Connector](injector)
	server := do.MustInvoke[*httpServer.Server](injector)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("HTTP server stopped", "error", err)
		}
	}()

	slog.Info("Application started", "addr", cfg.HTTP.Addr, "delay", cfg.Delay())
	slog.Info("Press Ctrl+C to stop")

	if err := loop.Serve(ctx, connector, deliveryService.DefaultCooldown); err != nil {
		slog.Error("Delivery stopped", "error", err)
	}
	slog.Info("Shutting down...")
}

// newLogger fans out to a text handler on stdout, a JSON error stream on
// stderr and, when configured, a JSON log file.
func newLogger(level slog.Level, file io.Writer) *slog.Logger {
	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	if file != nil {
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
