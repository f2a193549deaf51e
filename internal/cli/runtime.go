package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"ideaflow/api/internal/admin"
	"ideaflow/api/internal/app"
	"ideaflow/api/internal/auth"
	"ideaflow/api/internal/authpw"
	"ideaflow/api/internal/config"
	"ideaflow/api/internal/email"
	"ideaflow/api/internal/events"
	"ideaflow/api/internal/ideas"
	"ideaflow/api/internal/session"
	"ideaflow/api/internal/store"
	"ideaflow/api/internal/topics"
	"ideaflow/api/internal/util"
)

// runtime is the wired application plus everything that must be closed
// on shutdown.
type runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	clock       util.Clock
	repo        store.Repository
	revocations session.Revocations
	auth        *authpw.Service
	checks      map[string]app.Pinger
	closers     []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// openRepository connects to Postgres and applies pending migrations, or
// returns a fresh memory store.
func openRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Repository, *sqlx.DB, error) {
	switch cfg.Storage {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on exit")
		return store.NewMemoryStore(), nil, nil
	case "", "postgres":
	default:
		return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations failed: %w", err)
	}
	for _, version := range applied {
		logger.Info("migration applied", "version", version)
	}
	return store.NewPostgresStore(db), db, nil
}

func newNotifier(cfg config.Config, clock util.Clock, logger *slog.Logger) (authpw.Notifier, func(), error) {
	switch strings.ToLower(cfg.Notifier) {
	case "", "smtp":
		svc := email.NewService(email.Config{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.SMTPFrom,
			FromName:   cfg.SMTPFromName,
			AppBaseURL: cfg.AppBaseURL,
		}, logger)
		if !svc.IsConfigured() {
			return nil, nil, fmt.Errorf("smtp notifier requires SMTP_HOST, SMTP_PORT and SMTP_FROM (set IDEAFLOW_NOTIFIER=log for local development)")
		}
		return svc, func() {}, nil
	case "nats":
		client, err := events.NewClient(events.Config{
			URL:           cfg.NATSURL,
			Name:          "ideaflow-api",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return events.NewNATSNotifier(client, clock, cfg.AppBaseURL, logger), client.Close, nil
	case "log":
		logger.Warn("log notifier selected; verification codes and reset links are not delivered")
		return email.LogSender{Logger: logger}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}

func buildRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		clock:  util.SystemClock{},
		checks: map[string]app.Pinger{},
	}

	repo, db, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.repo = repo
	rt.checks["database"] = repo
	if db != nil {
		rt.closers = append(rt.closers, func() { _ = db.Close() })
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for the revocation set")
		redisRevocations, err := session.NewRedisRevocations(cfg.RedisURL, rt.clock)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		rt.revocations = redisRevocations
		rt.checks["redis"] = redisRevocations
		rt.closers = append(rt.closers, func() { _ = redisRevocations.Close() })
	} else {
		rt.revocations = session.NewStoreRevocations(repo, rt.clock)
	}

	notifier, closeNotifier, err := newNotifier(cfg, rt.clock, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, closeNotifier)

	rt.auth = authpw.NewService(authpw.Options{
		Repo:        repo,
		Hasher:      auth.NewBcryptHasher(cfg.BcryptCost),
		Tokens:      auth.NewJWTCodec(cfg.JWTSecret, cfg.AccessTTL, rt.clock),
		Notifier:    notifier,
		Revocations: rt.revocations,
		Clock:       rt.clock,
		Logger:      logger,
	})
	return rt, nil
}

func (r *runtime) httpServer() *app.HTTPServer {
	return app.NewHTTPServer(app.Options{
		Auth:       r.auth,
		Topics:     topics.NewService(r.repo, r.clock),
		Ideas:      ideas.NewService(r.repo, r.clock),
		Admin:      admin.NewService(r.repo, r.clock),
		Clock:      r.clock,
		Logger:     r.logger,
		CORSOrigin: r.cfg.CORSOrigin,
		Checks:     r.checks,
	})
}

// seedAdmin creates the configured administrator when both credentials
// are set.
func (r *runtime) seedAdmin(ctx context.Context) error {
	if r.cfg.AdminEmail == "" || r.cfg.AdminPassword == "" {
		return nil
	}
	user, created, err := r.auth.EnsureAdmin(ctx, r.cfg.AdminEmail, r.cfg.AdminPassword, "Admin", "IdeaFlow")
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		r.logger.Info("administrator created", "email", user.Email)
	}
	return nil
}
