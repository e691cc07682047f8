// Package app wires the configured components into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/meetos/internal/audit"
	"github.com/redmonkez12/meetos/internal/auth"
	"github.com/redmonkez12/meetos/internal/config"
	"github.com/redmonkez12/meetos/internal/database"
	"github.com/redmonkez12/meetos/internal/email"
	"github.com/redmonkez12/meetos/internal/event"
	"github.com/redmonkez12/meetos/internal/group"
	httpServer "github.com/redmonkez12/meetos/internal/http"
	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/metrics"
	"github.com/redmonkez12/meetos/internal/ratelimit"
	"github.com/redmonkez12/meetos/internal/store"
	"github.com/redmonkez12/meetos/internal/store/memory"
	"github.com/redmonkez12/meetos/internal/store/postgres"
	"github.com/redmonkez12/meetos/internal/user"
	"github.com/redmonkez12/meetos/internal/web"
)

type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Store    store.Store
	Notifier *email.Notifier
	Accounts *auth.Service
	Users    *user.Service
	Groups   *group.Service
	Events   *event.Service
	Admins   auth.AdminList
	Router   http.Handler

	closers []func() error
}

// New builds every component. ctx bounds the background goroutines of the
// middleware; Close releases the connections.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Admins: auth.NewAdminList(cfg.App.Admins)}

	st, err := a.openStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Store = st

	limiter, err := a.newLimiter(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	tokens, err := newTokenService(cfg.Auth)
	if err != nil {
		a.Close()
		return nil, err
	}

	sender, err := newSender(cfg.Email)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := email.NewNotifier(
		sender,
		email.Address{Name: cfg.Email.FromName, Email: cfg.Email.FromEmail},
		cfg.App.BaseURL,
		a.Admins.Emails(),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}
	a.Notifier = notifier

	m := metrics.New()
	notifier.OnSend(m.EmailSent)

	recorder := audit.NewRecorder(st)
	a.Accounts = auth.NewService(st, notifier, recorder)
	a.Users = user.NewService(st)
	a.Groups = group.NewService(st, notifier, recorder)
	a.Events = event.NewService(st, a.Groups, recorder)

	sessions := auth.NewSessions(tokens, cfg.Auth.SessionDuration, !cfg.Server.IsDevelopment())

	handler, err := web.NewHandler(web.Deps{
		Store:    st,
		Accounts: a.Accounts,
		Sessions: sessions,
		Users:    a.Users,
		Groups:   a.Groups,
		Events:   a.Events,
		Limiter:  limiter,
		Admins:   a.Admins,
		Public:   cfg.Public,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	authMiddleware := auth.NewMiddleware(sessions, st, a.Admins, handler.Deny)
	a.Router = httpServer.NewRouter(ctx, cfg, handler, authMiddleware, m, logger)

	return a, nil
}

// Close waits for pending emails and closes the connections.
func (a *App) Close() error {
	if a.Notifier != nil {
		a.Notifier.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) openStore(cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.Driver == "memory" {
		a.Logger.Warn("using the in-memory store, data is lost on restart")
		return memory.New(), nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	if cfg.AutoMigrate {
		if err := database.Migrate(db.DB); err != nil {
			a.Close()
			return nil, err
		}
	}

	return postgres.New(db), nil
}

// OpenDB connects to Postgres for the maintenance commands.
func OpenDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	if cfg.Driver != "postgres" {
		return nil, fmt.Errorf("DB_DRIVER is %q, migrations need postgres", cfg.Driver)
	}
	return database.Open(cfg)
}

// newLimiter shares counters through Redis when it is configured and keeps
// them in process otherwise.
func (a *App) newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return ratelimit.Disabled{}, nil
	}

	if !cfg.Redis.Enabled() {
		l := ratelimit.NewMemoryLimiter()
		go l.Cleanup(ctx, 10*time.Minute)
		return l, nil
	}

	client, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return ratelimit.NewRedisLimiter(client), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenFormat {
	case "jwt":
		svc, err := auth.NewJWTService(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
		}
		return svc, nil
	default:
		svc, err := auth.NewPasetoService(cfg.PasetoKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PASETO service: %w", err)
		}
		return svc, nil
	}
}

func newSender(cfg config.EmailConfig) (email.Sender, error) {
	if cfg.Mode == "smtp" {
		return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), nil
	}

	sender, err := email.NewFolderSender(cfg.Folder)
	if err != nil {
		return nil, err
	}
	return sender, nil
}
