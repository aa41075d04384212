package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/tenant-storefront/internal/config"
	"github.com/donaldgifford/tenant-storefront/internal/telemetry"
	"github.com/donaldgifford/tenant-storefront/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply audit store migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, logger.WithService(cfg.Telemetry.ServiceName))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}

	srv, err := newServer(ctx, cfg, log, serveMigrate)
	if err != nil {
		return err
	}
	srv.start()

	addr := cfg.Server.Addr()
	log.Info("starting server",
		"addr", addr,
		"catalog", cfg.Catalog.Endpoint,
		"audit_store", cfg.Database.Enabled,
		"telemetry", cfg.Telemetry.Enabled,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error("server error", "error", serveErr)
		}
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = errors.Join(
		serveErr,
		srv.shutdown(shutdownCtx),
		shutdownTelemetry(shutdownCtx),
	)
	if err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
