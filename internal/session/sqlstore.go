package session

import (
	"context"
	"errors"
	"time"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/storage"
)

// SQLStore keeps sessions in the application's SQLite database.
type SQLStore struct {
	db *storage.DB
}

// NewSQLStore creates a SQLStore.
func NewSQLStore(db *storage.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, userID int64, _ string, expiresAt time.Time) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", err
	}
	if err := s.db.CreateSession(ctx, token, userID, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

func (s *SQLStore) Lookup(ctx context.Context, token string) (*Session, error) {
	info, err := s.db.ValidateSessionWithInfo(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		UserID:    info.User.ID,
		Username:  info.User.Username,
		ExpiresAt: info.ExpiresAt,
	}, nil
}

func (s *SQLStore) Renew(ctx context.Context, token string, expiresAt time.Time) (string, error) {
	if err := s.db.RenewSession(ctx, token, expiresAt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return token, nil
}

func (s *SQLStore) Delete(ctx context.Context, token string) error {
	return s.db.DeleteSession(ctx, token)
}

// Purge removes expired sessions.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	return s.db.CleanExpiredSessions(ctx)
}
