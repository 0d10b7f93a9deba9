// @title           EcoMission API
// @version         1.0.0
// @description     Campus eco-mission service: daily and event missions, proof submissions and point approvals

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecomission/internal/bootstrap"
	"ecomission/internal/config"
	"ecomission/internal/handlers/api/v1/jobs"
	"ecomission/internal/router"
	"ecomission/internal/scheduler"
	"ecomission/internal/utils/appinfo"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := bootstrap.NewLogger(cfg.Logging, cfg.Server.Environment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("service", appinfo.Name),
		zap.String("version", appinfo.Version()),
		zap.String("environment", cfg.Server.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Open(ctx, cfg, logger, cfg.Database.AutoMigrate)
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return err
	}

	var (
		runner  *scheduler.Runner
		jobsAPI jobs.Runner
	)
	if cfg.Scheduler.Enabled {
		runner, err = scheduler.NewRunner(app.Lifecycle, app.Services.Cache, cfg.Scheduler, logger.Named("scheduler"))
		if err != nil {
			logger.Error("Failed to create scheduler", zap.Error(err))
			return err
		}
		runner.Start()
		jobsAPI = runner
	} else {
		logger.Warn("Lifecycle scheduler disabled")
	}

	server := &http.Server{
		Addr: fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: router.New(router.Dependencies{
			Services: app.Services,
			Jobs:     jobsAPI,
			Logger:   logger,
		}),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down application...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if runner != nil {
		if err := runner.Stop(shutdownCtx); err != nil {
			logger.Warn("Scheduler did not stop in time", zap.Error(err))
		}
	}
	if err := app.Close(shutdownCtx); err != nil {
		logger.Warn("Error while releasing resources", zap.Error(err))
	}

	logger.Info("Application stopped")
	return nil
}
