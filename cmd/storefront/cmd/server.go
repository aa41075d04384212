package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/donaldgifford/tenant-storefront/api/openapi"
	"github.com/donaldgifford/tenant-storefront/internal/api/handlers"
	"github.com/donaldgifford/tenant-storefront/internal/api/middleware"
	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	"github.com/donaldgifford/tenant-storefront/internal/config"
	"github.com/donaldgifford/tenant-storefront/internal/notify"
	"github.com/donaldgifford/tenant-storefront/internal/session"
	"github.com/donaldgifford/tenant-storefront/internal/store"
)

const apiTitle = "Tenant Storefront API"

// server holds every long-lived component of a running storefront.
type server struct {
	echo    *echo.Echo
	manager *session.Manager
	sweeper *session.Sweeper
	store   *store.PostgresStore
	log     *slog.Logger
}

// newServer wires the storefront from cfg. The audit store is connected
// only when database.enabled is set.
func newServer(ctx context.Context, cfg *config.Config, log *slog.Logger, migrate bool) (*server, error) {
	s := &server{log: log}

	if cfg.Database.Enabled {
		st, err := store.NewPostgresStore(ctx, cfg.Database.DSN(), cfg.Database.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("connecting to audit store: %w", err)
		}
		if migrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, fmt.Errorf("migrating audit store: %w", err)
			}
		}
		s.store = st
	}

	s.manager = session.NewManager(newFetcher(&cfg.Catalog), s.managerOptions(cfg)...)

	sweeperOpts := []session.SweeperOption{}
	if s.store != nil {
		sweeperOpts = append(sweeperOpts, session.WithPruner(s.store, cfg.Database.Retention))
	}
	sw, err := session.NewSweeper(s.manager, cfg.Sessions.SweepInterval, log, sweeperOpts...)
	if err != nil {
		s.closeStore()
		return nil, fmt.Errorf("creating session sweeper: %w", err)
	}
	s.sweeper = sw

	s.echo = s.newEcho(cfg)
	return s, nil
}

func newFetcher(c *config.CatalogConfig) *catalog.HTTPFetcher {
	opts := []catalog.FetcherOption{
		catalog.WithHTTPClient(&http.Client{
			Timeout:   c.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
		catalog.WithSuccessCode(c.SuccessCode),
	}
	if c.RateLimit.PerSecond > 0 {
		opts = append(opts, catalog.WithRateLimiter(
			catalog.NewRateLimiter(c.RateLimit.PerSecond, c.RateLimit.Burst),
		))
	}
	return catalog.NewHTTPFetcher(c.Endpoint, opts...)
}

func (s *server) managerOptions(cfg *config.Config) []session.Option {
	var n notify.Notifier = notify.NewNoOpNotifier(s.log)
	if cfg.Notifications.Discord.Enabled {
		n = notify.NewDiscordNotifier(cfg.Notifications.Discord.WebhookURL)
	}

	opts := []session.Option{
		session.WithConfig(session.Config{
			PageSize:     cfg.Loader.PageSize,
			FetchTimeout: cfg.Loader.FetchTimeout,
			Debounce:     cfg.Loader.Debounce,
			Threshold:    cfg.Loader.ThresholdValue(),
			MaxSessions:  cfg.Sessions.Max,
			IdleTTL:      cfg.Sessions.IdleTTL,
		}),
		session.WithNotifier(n),
		session.WithLogger(s.log),
	}
	if s.store != nil {
		opts = append(opts, session.WithRecorder(s.store))
	}
	return opts
}

func (s *server) newEcho(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(e)

	e.Use(middleware.Recovery(s.log))
	e.Use(middleware.RequestLog(s.log))
	e.Use(middleware.Tracing())
	e.Use(middleware.Metrics())

	// Interface values stay nil when the audit store is disabled.
	var (
		pinger handlers.Pinger
		events handlers.EventReader
	)
	if s.store != nil {
		pinger = s.store
		events = s.store
	}

	health := handlers.NewHealthHandler(pinger)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig(apiTitle, Version))
	handlers.RegisterSessionRoutes(api, handlers.NewSessionsHandler(s.manager))
	handlers.RegisterEventRoutes(api, handlers.NewEventsHandler(events))
	openapi.RegisterRoutes(e, apiTitle)

	images := handlers.NewImagesHandler(
		handlers.WithAllowedHosts(cfg.Storefront.ImageHosts...),
		handlers.WithPrivateNetworks(cfg.Storefront.ImagePrivateNetworks),
		handlers.WithImageLogger(s.log),
	)
	e.GET("/api/v1/images/download", images.Download)

	handlers.RegisterStorefrontRoutes(e, handlers.NewStorefrontHandler(
		s.manager,
		cfg.Storefront.Brand(),
		handlers.WithStorefrontLogger(s.log),
	))

	return e
}

// start launches the background sweeper. The HTTP listener is started by
// the caller.
func (s *server) start() {
	s.sweeper.Start()
}

// shutdown stops accepting requests, closes every session and releases the
// audit store.
func (s *server) shutdown(ctx context.Context) error {
	var errs []error

	if err := s.echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, fmt.Errorf("shutting down http server: %w", err))
	}

	select {
	case <-s.sweeper.Stop().Done():
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for sweeper: %w", ctx.Err()))
	}

	s.manager.CloseAll(ctx)
	s.closeStore()
	return errors.Join(errs...)
}

func (s *server) closeStore() {
	if s.store != nil {
		s.store.Close()
	}
}
