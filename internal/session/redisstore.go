package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expense-ledger/internal/auth"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

type redisRecord struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisStore keeps sessions in redis, expiring keys with the session.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient connects to redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	const op = "session.NewRedisClient"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return client, nil
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, userID int64, username string, expiresAt time.Time) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", err
	}
	if err := s.save(ctx, token, redisRecord{UserID: userID, Username: username, ExpiresAt: expiresAt}); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisStore) Lookup(ctx context.Context, token string) (*Session, error) {
	rec, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		UserID:    rec.UserID,
		Username:  rec.Username,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *RedisStore) Renew(ctx context.Context, token string, expiresAt time.Time) (string, error) {
	rec, err := s.load(ctx, token)
	if err != nil {
		return "", err
	}
	rec.ExpiresAt = expiresAt
	if err := s.save(ctx, token, *rec); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("session.RedisStore.Delete: %w", err)
	}
	return nil
}

func (s *RedisStore) save(ctx context.Context, token string, rec redisRecord) error {
	const op = "session.RedisStore.save"

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%s: session already expired", op)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, token string) (*redisRecord, error) {
	const op = "session.RedisStore.load"

	val, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rec redisRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !rec.ExpiresAt.After(time.Now()) {
		return nil, ErrNotFound
	}
	return &rec, nil
}
