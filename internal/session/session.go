// Package session implements cookie based sessions over a pluggable store,
// plus one-time flash notices.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"expense-ledger/internal/logging"
	"expense-ledger/internal/models"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "session"
	// DefaultTTL is how long sessions last (30 days).
	DefaultTTL = 30 * 24 * time.Hour
)

// ErrNotFound is returned by stores for unknown or expired tokens.
var ErrNotFound = errors.New("session not found")

// Session is the authenticated identity attached to a request.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

// Store persists sessions. Renew may hand back a different token, which then
// replaces the cookie value.
type Store interface {
	Create(ctx context.Context, userID int64, username string, expiresAt time.Time) (string, error)
	Lookup(ctx context.Context, token string) (*Session, error)
	Renew(ctx context.Context, token string, expiresAt time.Time) (string, error)
	Delete(ctx context.Context, token string) error
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Manager ties a Store to the session cookie.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
	log    *slog.Logger
}

// NewManager creates a Manager. A zero ttl means DefaultTTL.
func NewManager(store Store, ttl time.Duration, secureCookie bool, log *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store:  store,
		ttl:    ttl,
		secure: secureCookie,
		log:    log.With(slog.String("component", "session")),
	}
}

// Start creates a session for user and sets the cookie.
func (m *Manager) Start(w http.ResponseWriter, r *http.Request, user *models.User) (*Session, error) {
	expiresAt := time.Now().Add(m.ttl)
	token, err := m.store.Create(r.Context(), user.ID, user.Username, expiresAt)
	if err != nil {
		return nil, err
	}
	m.setCookie(w, token)
	return &Session{Token: token, UserID: user.ID, Username: user.Username, ExpiresAt: expiresAt}, nil
}

// Load resolves the request's session cookie. Sessions past the halfway
// point of their lifetime are renewed so active users stay signed in.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	s, err := m.store.Lookup(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.ErrorContext(r.Context(), "session lookup failed", logging.Err(err))
		}
		m.clearCookie(w)
		return nil, false
	}

	if time.Until(s.ExpiresAt) < m.ttl/2 {
		expiresAt := time.Now().Add(m.ttl)
		token, err := m.store.Renew(r.Context(), s.Token, expiresAt)
		if err != nil {
			// Keep serving the current session; renewal is retried next request.
			m.log.WarnContext(r.Context(), "session renewal failed", logging.Err(err))
		} else {
			s.Token = token
			s.ExpiresAt = expiresAt
			m.setCookie(w, token)
		}
	}
	return s, true
}

// Destroy deletes the request's session, if any, and clears the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		if err := m.store.Delete(r.Context(), cookie.Value); err != nil {
			m.log.ErrorContext(r.Context(), "failed to delete session", logging.Err(err))
		}
	}
	m.clearCookie(w)
}

// Middleware attaches the session, when there is one, to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := m.Load(w, r); ok {
			r = r.WithContext(NewContext(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth redirects requests without a session to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
