// Package services implements the application's use cases on top of storage.
package services

import (
	"context"
	"errors"
	"fmt"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/forms"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserStore is the subset of storage the account use cases need.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Accounts handles registration and credential checks.
type Accounts struct {
	users UserStore
}

// NewAccounts creates an Accounts service.
func NewAccounts(users UserStore) *Accounts {
	return &Accounts{users: users}
}

// Signup registers a new user. Email and username must both be unused.
func (a *Accounts) Signup(ctx context.Context, in forms.Signup) (*models.User, error) {
	const op = "services.Accounts.Signup"

	if _, err := a.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := a.users.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.users.CreateUser(ctx, in.Username, in.Email, hash)
	if err != nil {
		// Lost a race with a concurrent signup.
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			if conflict.Field == "email" {
				return nil, ErrDuplicateEmail
			}
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Login returns the user owning email if password matches. Unknown emails and
// wrong passwords both return ErrInvalidCredentials.
func (a *Accounts) Login(ctx context.Context, in forms.Login) (*models.User, error) {
	const op = "services.Accounts.Login"

	user, err := a.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, storage.ErrNotFound) {
		auth.BurnCompare(in.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !auth.CheckPassword(in.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
