package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claims is the payload of a cookie session: user id and display name only.
type claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"name"`
	jwt.RegisteredClaims
}

// CookieStore keeps the whole session inside the cookie as an HS256 signed
// token. Nothing is stored server side, so Delete only drops the cookie.
type CookieStore struct {
	secret []byte
}

// NewCookieStore creates a CookieStore signing with secret.
func NewCookieStore(secret string) *CookieStore {
	return &CookieStore{secret: []byte(secret)}
}

func (s *CookieStore) Create(_ context.Context, userID int64, username string, expiresAt time.Time) (string, error) {
	return s.sign(userID, username, expiresAt)
}

func (s *CookieStore) Lookup(_ context.Context, token string) (*Session, error) {
	c, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		UserID:    c.UserID,
		Username:  c.Username,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (s *CookieStore) Renew(_ context.Context, token string, expiresAt time.Time) (string, error) {
	c, err := s.parse(token)
	if err != nil {
		return "", err
	}
	return s.sign(c.UserID, c.Username, expiresAt)
}

func (s *CookieStore) Delete(context.Context, string) error {
	return nil
}

func (s *CookieStore) sign(userID int64, username string, expiresAt time.Time) (string, error) {
	c := claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("session.CookieStore.sign: %w", err)
	}
	return token, nil
}

func (s *CookieStore) parse(token string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		// Expired, tampered and malformed tokens all mean "no session".
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return &c, nil
}
