// Package daemon composes the helpdesk daemon: configuration, storage,
// the WhatsApp channel session, and the HTTP/WebSocket surface, wired
// together with fx lifecycle hooks.
package daemon

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/auth"
	"github.com/david0ql/helpdeskd/internal/broadcast"
	"github.com/david0ql/helpdeskd/internal/config"
	"github.com/david0ql/helpdeskd/internal/gateway"
	"github.com/david0ql/helpdeskd/internal/httpapi"
	"github.com/david0ql/helpdeskd/internal/ingest"
	"github.com/david0ql/helpdeskd/internal/lock"
	"github.com/david0ql/helpdeskd/internal/logging"
	"github.com/david0ql/helpdeskd/internal/presence"
	"github.com/david0ql/helpdeskd/internal/store"
	"github.com/david0ql/helpdeskd/internal/ticket"
	"github.com/david0ql/helpdeskd/internal/wa"
	"github.com/david0ql/helpdeskd/internal/workdir"
)

// Params holds the resolved runtime options passed to the fx module.
type Params struct {
	DataDir string
	// ListenAddr overrides the configured bind address when non-empty.
	ListenAddr string
}

// Module returns the fx module for the daemon, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLock,
			provideStore,
			provideHub,
			provideTracker,
			provideVerifier,
			provideResolver,
			provideResponder,
			provideIngest,
			provideAdapter,
			provideSender,
			provideTicketService,
			provideAPI,
			provideGateway,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if err := workdir.Ensure(p.DataDir); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrInit(workdir.ConfigPath(p.DataDir))
	if err != nil {
		return nil, err
	}
	// A fresh install gets a random secret so tokens are never signed
	// with an empty key.
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		if err := config.Save(workdir.ConfigPath(p.DataDir), cfg); err != nil {
			return nil, err
		}
	}
	if p.ListenAddr != "" {
		cfg.ListenAddr = p.ListenAddr
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(workdir.LogPath(p.DataDir))
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring daemon lock", zap.String("dir", p.DataDir))
	l, err := lock.Acquire(p.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("daemon lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := workdir.DBPath(p.DataDir)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideHub(logger *zap.Logger) *broadcast.Hub {
	return broadcast.New(logger)
}

func provideTracker(db *store.DB, logger *zap.Logger) *presence.Tracker {
	return presence.NewTracker(db, logger)
}

func provideVerifier(cfg *config.Config) *auth.Verifier {
	return auth.NewVerifier(cfg.JWTSecret)
}

func provideResolver(db *store.DB, logger *zap.Logger) *ticket.Resolver {
	return ticket.NewResolver(db, logger)
}

func provideResponder(cfg *config.Config) ingest.Responder {
	return ingest.NewHTTPResponder(cfg.ResponderURL, cfg.ResponderTimeout())
}

func provideIngest(db *store.DB, hub *broadcast.Hub, responder ingest.Responder, logger *zap.Logger) *ingest.Service {
	return ingest.NewService(db, hub, responder, logger)
}

func provideAdapter(p Params, cfg *config.Config, db *store.DB, logger *zap.Logger) (*wa.Adapter, error) {
	channel, err := db.EnsureChannel(cfg.ChannelName)
	if err != nil {
		return nil, err
	}
	return wa.NewAdapter(context.Background(), workdir.SessionDBPath(p.DataDir), channel, logger)
}

func provideSender(adapter *wa.Adapter) ticket.Sender {
	return adapter
}

func provideTicketService(db *store.DB, hub *broadcast.Hub, sender ticket.Sender, logger *zap.Logger) *ticket.Service {
	return ticket.NewService(db, hub, sender, logger)
}

func provideAPI(
	db *store.DB,
	tickets *ticket.Service,
	ing *ingest.Service,
	sender ticket.Sender,
	tracker *presence.Tracker,
	verifier *auth.Verifier,
	logger *zap.Logger,
) *httpapi.Handler {
	return httpapi.New(db, tickets, ing, sender, tracker, verifier, logger)
}

func provideGateway(
	hub *broadcast.Hub,
	tracker *presence.Tracker,
	verifier *auth.Verifier,
	cfg *config.Config,
	logger *zap.Logger,
) *gateway.Handler {
	return gateway.New(hub, tracker, verifier, cfg.AllowedOrigins, logger)
}

func registerLifecycle(
	lc fx.Lifecycle,
	srv *Server,
	lk *lock.Lock,
	db *store.DB,
	resolver *ticket.Resolver,
	ing *ingest.Service,
	adapter *wa.Adapter,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			handler := wa.NewEventHandler(db, resolver, ing, adapter, logger)
			adapter.RegisterEventHandler(handler.Handle)

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()

			if err := adapter.Connect(context.Background()); err != nil {
				logger.Error("channel connect failed", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			adapter.Disconnect()
			srv.Stop(ctx)
			_ = db.Close()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
