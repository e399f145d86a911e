package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"expense-ledger/internal/config"
	"expense-ledger/internal/handlers"
	"expense-ledger/internal/metrics"
	"expense-ledger/internal/session"
	"expense-ledger/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetupRouter(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	defer db.Close()

	log := discardLogger()
	m := metrics.New()
	sessions := session.NewManager(session.NewSQLStore(db), time.Hour, false, log)
	h, err := handlers.NewHandlers(db, sessions, m, log)
	require.NoError(t, err)

	// A real server, so file responses go through the wrapped writer's ReadFrom.
	srv := httptest.NewServer(setupRouter(h, m, log))
	defer srv.Close()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	tests := []struct {
		name         string
		method       string
		path         string
		wantStatus   int
		wantLocation string
		wantBody     string
	}{
		{name: "Dashboard requires auth", method: "GET", path: "/", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "Add requires auth", method: "GET", path: "/add", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "Delete requires auth", method: "POST", path: "/delete/1", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "Login page", method: "GET", path: "/login", wantStatus: http.StatusOK, wantBody: "login-form"},
		{name: "Signup page", method: "GET", path: "/signup", wantStatus: http.StatusOK, wantBody: "signup-form"},
		{name: "Static file access", method: "GET", path: "/static/style.css", wantStatus: http.StatusOK, wantBody: ".navbar"},
		{name: "Health", method: "GET", path: "/healthz", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "Metrics", method: "GET", path: "/metrics", wantStatus: http.StatusOK, wantBody: "expense_ledger_signups_total"},
		{name: "Delete is POST only", method: "GET", path: "/delete/1", wantStatus: http.StatusMethodNotAllowed},
		{name: "Unknown route", method: "GET", path: "/expenses", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, http.NoBody)
			require.NoError(t, err)

			resp, err := client.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode, "%s %s returned unexpected status", tt.method, tt.path)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, resp.Header.Get("Location"))
			}
			if tt.wantBody != "" {
				assert.Contains(t, string(body), tt.wantBody)
			}
		})
	}
}

func TestNewSessionStore(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)

	tests := []struct {
		name  string
		store string
		want  any
	}{
		{"default is sqlite", config.StoreSQLite, &session.SQLStore{}},
		{"redis", config.StoreRedis, &session.RedisStore{}},
		{"cookie", config.StoreCookie, &session.CookieStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Session: config.Session{Store: tt.store, SecretKey: "0123456789abcdef0123456789abcdef"},
				Redis:   config.Redis{Addr: mr.Addr()},
			}

			store, cleanup, err := newSessionStore(context.Background(), cfg, db)
			require.NoError(t, err)
			defer cleanup()

			assert.IsType(t, tt.want, store)
		})
	}
}

func TestNewSessionStore_RedisUnavailable(t *testing.T) {
	cfg := &config.Config{
		Session: config.Session{Store: config.StoreRedis},
		Redis:   config.Redis{Addr: "127.0.0.1:1"},
	}

	_, _, err := newSessionStore(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to connect to redis"))
}

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) Purge(context.Context) (int64, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestPurgeSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &countingPurger{}

	done := make(chan struct{})
	go func() {
		purgeSessions(ctx, p, 5*time.Millisecond, discardLogger())
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purgeSessions did not stop after cancel")
	}
}
