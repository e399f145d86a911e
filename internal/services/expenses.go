package services

import (
	"context"
	"errors"
	"fmt"

	"expense-ledger/internal/forms"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

// ErrNotFound is returned for expenses that do not exist or belong to someone else.
var ErrNotFound = errors.New("expense not found")

// Dashboard is everything the index page shows.
type Dashboard struct {
	Expenses []models.Expense
	Summary  models.Summary
}

// Expenses implements the expense use cases. Every lookup is scoped to the
// acting user.
type Expenses struct {
	db *storage.DB
}

// NewExpenses creates an Expenses service.
func NewExpenses(db *storage.DB) *Expenses {
	return &Expenses{db: db}
}

// Dashboard lists the user's expenses newest first with their totals.
func (s *Expenses) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	expenses, err := s.db.ListExpensesByUser(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("services.Expenses.Dashboard: %w", err)
	}
	return Dashboard{
		Expenses: expenses,
		Summary:  models.Summarize(expenses),
	}, nil
}

// Add records a new expense for userID.
func (s *Expenses) Add(ctx context.Context, userID int64, in forms.Expense) (*models.Expense, error) {
	e := models.NewExpense(userID, in.Date, in.Category, in.Amount, in.Description)

	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		return q.CreateExpense(ctx, &e)
	})
	if err != nil {
		return nil, fmt.Errorf("services.Expenses.Add: %w", err)
	}
	return &e, nil
}

// Get returns an expense owned by userID.
func (s *Expenses) Get(ctx context.Context, userID, id int64) (*models.Expense, error) {
	e, err := owned(ctx, s.db.Queries, userID, id)
	if err != nil {
		return nil, wrap("services.Expenses.Get", err)
	}
	return e, nil
}

// Edit replaces every field of an expense owned by userID.
func (s *Expenses) Edit(ctx context.Context, userID, id int64, in forms.Expense) (*models.Expense, error) {
	var updated *models.Expense

	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		e, err := owned(ctx, q, userID, id)
		if err != nil {
			return err
		}
		e.Date = in.Date
		e.Category = in.Category
		e.Amount = in.Amount
		e.Description = in.Description
		if err := q.UpdateExpense(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, wrap("services.Expenses.Edit", err)
	}
	return updated, nil
}

// Delete removes an expense owned by userID. Nothing is written when the
// expense does not exist.
func (s *Expenses) Delete(ctx context.Context, userID, id int64) error {
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		if _, err := owned(ctx, q, userID, id); err != nil {
			return err
		}
		return q.DeleteExpense(ctx, id)
	})
	if err != nil {
		return wrap("services.Expenses.Delete", err)
	}
	return nil
}

// owned loads an expense and hides ones that belong to another user.
func owned(ctx context.Context, q *storage.Queries, userID, id int64) (*models.Expense, error) {
	e, err := q.GetExpense(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, ErrNotFound
	}
	return e, nil
}

func wrap(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
