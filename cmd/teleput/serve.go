package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/teleput/internal/bindings"
	"github.com/memohai/teleput/internal/channel/adapters/telegram"
	"github.com/memohai/teleput/internal/config"
	"github.com/memohai/teleput/internal/handlers"
	channelchecker "github.com/memohai/teleput/internal/healthcheck/checkers/channel"
	storagechecker "github.com/memohai/teleput/internal/healthcheck/checkers/storage"
	"github.com/memohai/teleput/internal/keygen"
	"github.com/memohai/teleput/internal/logger"
	"github.com/memohai/teleput/internal/media"
	"github.com/memohai/teleput/internal/metrics"
	"github.com/memohai/teleput/internal/relay"
	"github.com/memohai/teleput/internal/server"
	"github.com/memohai/teleput/internal/upload"
	"github.com/memohai/teleput/internal/version"
)

func runServe() {
	fx.New(serveOptions()...).Run()
}

func serveOptions() []fx.Option {
	return []fx.Option{
		fx.Provide(
			provideConfig,
			provideLogger,
			metrics.New,
			provideStore,
			provideBindingRepository,
			provideKeyGenerator,
			provideBindingService,
			provideTelegramAdapter,
			provideRelay,
			provideSpoolSweeper,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideRelayHandler),
			provideServerHandler(provideTelegramWebhookHandler),
			provideServerHandler(provideMetricsHandler),
			provideServerHandler(provideHealthHandler),
			provideServer,
		),
		fx.Invoke(
			startSpoolSweeper,
			startTelegramAdapter,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	}
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (*store, error) {
	s, err := openStore(context.Background(), log, cfg.Storage)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { s.Close(); return nil }})
	return s, nil
}

func provideBindingRepository(s *store) bindings.Repository { return s.Repo }

func provideKeyGenerator(cfg config.Config) (bindings.KeyGenerator, error) {
	gen, err := keygen.New(cfg.Keys.Alphabet, cfg.Keys.Length)
	if err != nil {
		return nil, fmt.Errorf("key generator: %w", err)
	}
	return gen, nil
}

func provideBindingService(log *slog.Logger, repo bindings.Repository, keys bindings.KeyGenerator, m *metrics.Metrics) *bindings.Service {
	svc := bindings.NewService(log, repo, keys)
	svc.SetObserver(m)
	return svc
}

func provideTelegramAdapter(log *slog.Logger, cfg config.Config, keys *bindings.Service) (*telegram.TelegramAdapter, error) {
	adapter, err := telegram.NewTelegramAdapter(log, cfg.Telegram)
	if err != nil {
		return nil, err
	}
	var middlewares []telegram.CommandMiddleware
	if cfg.Telegram.GroupAdminOnly {
		middlewares = append(middlewares, telegram.RequireGroupAdmin(adapter))
	}
	adapter.SetCommands(telegram.NewCommands(log, keys, middlewares...))
	return adapter, nil
}

func provideRelay(log *slog.Logger, cfg config.Config, keys *bindings.Service, adapter *telegram.TelegramAdapter, m *metrics.Metrics) *relay.Relay {
	opts := upload.Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxFieldBytes: cfg.Upload.MaxFieldBytes,
		SpoolDir:      cfg.Upload.SpoolDir,
	}
	return relay.NewRelay(log, keys, adapter, opts,
		relay.LoggingMiddleware(log),
		relay.MetricsMiddleware(m),
	)
}

// provideSpoolSweeper returns nil when no sweep schedule is configured.
func provideSpoolSweeper(log *slog.Logger, cfg config.Config) (*media.Sweeper, error) {
	if cfg.Upload.SweepSchedule == "" {
		return nil, nil
	}
	return media.NewSweeper(log, cfg.Upload.SpoolDir, cfg.Upload.SweepSchedule, cfg.Upload.SweepMaxAge)
}

func provideRelayHandler(log *slog.Logger, cfg config.Config, r *relay.Relay, m *metrics.Metrics) *handlers.RelayHandler {
	h := handlers.NewRelayHandler(log, r, cfg.Server.MaxPostBody)
	h.SetObserver(m)
	return h
}

func provideTelegramWebhookHandler(log *slog.Logger, cfg config.Config, adapter *telegram.TelegramAdapter) *handlers.TelegramWebhookHandler {
	path := ""
	if cfg.Telegram.WebhookEnabled() {
		path = cfg.Telegram.WebhookPath
	}
	return handlers.NewTelegramWebhookHandler(log, path, adapter)
}

func provideMetricsHandler(cfg config.Config, m *metrics.Metrics) *handlers.MetricsHandler {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return handlers.NewMetricsHandler(path, m.Handler())
}

func provideHealthHandler(log *slog.Logger, s *store, adapter *telegram.TelegramAdapter) *handlers.HealthHandler {
	storage := storagechecker.NewChecker(log, s.Driver, s.Pinger)
	if s.Counter != nil {
		storage.SetCounter(s.Counter)
	}
	return handlers.NewHealthHandler(log,
		storage,
		channelchecker.NewChecker(log, "telegram", adapter),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startSpoolSweeper(lc fx.Lifecycle, sweeper *media.Sweeper) {
	if sweeper == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return sweeper.Stop(ctx)
		},
	})
}

func startTelegramAdapter(lc fx.Lifecycle, logger *slog.Logger, adapter *telegram.TelegramAdapter) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := adapter.Start(ctx); err != nil {
				return fmt.Errorf("telegram start: %w", err)
			}
			logger.Info("telegram intake started", slog.String("mode", adapter.Mode()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return adapter.Stop(ctx)
		},
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting Teleput %s\n", version.GetInfo())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
