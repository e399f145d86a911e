package storage

import (
	"context"
	"fmt"
	"time"

	"expense-ledger/internal/models"
)

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// CreateSession creates a new session for a user.
func (q *Queries) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	const op = "storage.CreateSession"

	_, err := q.q.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt.UnixMilli(), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
func (q *Queries) ValidateSessionWithInfo(ctx context.Context, token string) (*SessionInfo, error) {
	const op = "storage.ValidateSessionWithInfo"

	row := q.q.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, time.Now().UnixMilli())

	var (
		u                       models.User
		lastActivity, expiresAt int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &lastActivity, &expiresAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &SessionInfo{
		User:         &u,
		LastActivity: time.UnixMilli(lastActivity),
		ExpiresAt:    time.UnixMilli(expiresAt),
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (q *Queries) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	const op = "storage.RenewSession"

	result, err := q.q.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		time.Now().UnixMilli(), newExpiresAt.UnixMilli(), token,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOne(op, result)
}

// DeleteSession removes a session by token. Deleting an unknown token is not an error.
func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	if _, err := q.q.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("storage.DeleteSession: %w", err)
	}
	return nil
}

// CleanExpiredSessions removes all expired sessions and reports how many were deleted.
func (q *Queries) CleanExpiredSessions(ctx context.Context) (int64, error) {
	const op = "storage.CleanExpiredSessions"

	result, err := q.q.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return result.RowsAffected()
}
