package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/avgwguard/internal/config"
	"github.com/vyrodovalexey/avgwguard/internal/observability"
	"github.com/vyrodovalexey/avgwguard/internal/server/middleware"
)

// runService starts the server and blocks until shutdown. It reports
// whether the service terminated because of a fatal error.
func runService(app *application, configPath string, logger observability.Logger) bool {
	if err := app.server.Start(); err != nil {
		logger.Error("failed to start server", observability.Error(err))
		shutdown(app, nil, logger)
		return true
	}

	startMetricsServerIfEnabled(app, logger)
	watcher := startConfigWatcher(app, configPath, logger)

	return waitForShutdown(app, watcher, logger)
}

// startConfigWatcher starts the configuration watcher. Only the gate
// settings are applied on reload; listener and store settings require
// a restart.
func startConfigWatcher(
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(newCfg *config.Config) {
		app.server.UpdateGateSettings(middleware.GateSettings{
			Enabled:   newCfg.Admission.Gate.Enabled,
			SkipPaths: newCfg.Admission.Gate.SkipPaths,
		})
	}, config.WithWatcherLogger(logger))

	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
	}

	return watcher
}

// waitForShutdown blocks until a shutdown signal arrives or the server
// fails, then performs graceful shutdown.
func waitForShutdown(app *application, watcher *config.Watcher, logger observability.Logger) bool {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fatal := false
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-app.server.Err():
		logger.Error("server terminated unexpectedly", observability.Error(err))
		fatal = true
	}

	shutdown(app, watcher, logger)
	return fatal
}

// shutdown stops all components within the configured shutdown timeout.
func shutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		app.config.Server.ShutdownTimeout.Duration(),
	)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", observability.Error(err))
		}
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if err := app.store.Close(); err != nil {
		logger.Error("failed to close admission store", observability.Error(err))
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("gwguard stopped")
}
