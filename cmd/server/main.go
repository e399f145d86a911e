// Command server runs the expense ledger web application.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-ledger/internal/config"
	"expense-ledger/internal/handlers"
	"expense-ledger/internal/logging"
	"expense-ledger/internal/metrics"
	"expense-ledger/internal/session"
	"expense-ledger/internal/storage"
	"expense-ledger/web"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewDB(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store, cleanup, err := newSessionStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer cleanup()

	m := metrics.New()
	sessions := session.NewManager(store, cfg.Session.TTL, cfg.Session.SecureCookie, log)

	h, err := handlers.NewHandlers(db, sessions, m, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           cfg.HTTP.Addr,
		Handler:        setupRouter(h, m, log),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: 1 << 16, // 64KB
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server",
			slog.String("addr", cfg.HTTP.Addr),
			slog.String("session_store", cfg.Session.Store),
			slog.String("db_path", cfg.Storage.DBPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if p, ok := store.(purger); ok {
		g.Go(func() error {
			purgeSessions(gctx, p, cfg.Session.CleanupInterval, log)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// newSessionStore builds the store named by SESSION_STORE. cleanup releases
// whatever the store holds open.
func newSessionStore(ctx context.Context, cfg *config.Config, db *storage.DB) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case config.StoreRedis:
		client, err := session.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return session.NewRedisStore(client), func() { _ = client.Close() }, nil
	case config.StoreCookie:
		return session.NewCookieStore(cfg.Session.SecretKey), func() {}, nil
	default:
		return session.NewSQLStore(db), func() {}, nil
	}
}

func setupRouter(h *handlers.Handlers, m *metrics.Metrics, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(log),
		m.Middleware,
		middleware.Recoverer,
	)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.StaticFS()))))
	r.Handle("/metrics", m.Handler())
	h.Register(r)

	return r
}

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

// purgeSessions deletes expired sessions every interval until ctx is done.
func purgeSessions(ctx context.Context, p purger, interval time.Duration, log *slog.Logger) {
	log = log.With(slog.String("op", "main.purgeSessions"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx)
			if err != nil {
				log.Error("failed to purge expired sessions", logging.Err(err))
				continue
			}
			if n > 0 {
				log.Info("purged expired sessions", slog.Int64("count", n))
			}
		}
	}
}
