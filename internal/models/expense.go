package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by forms and storage.
const DateLayout = "2006-01-02"

// Expense represents a financial expense record owned by a single user.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// NewExpense builds an expense for userID. A zero date means today.
func NewExpense(userID int64, date time.Time, category string, amount decimal.Decimal, description string) Expense {
	if date.IsZero() {
		date = Today()
	}
	return Expense{
		UserID:      userID,
		Date:        date,
		Category:    category,
		Amount:      amount,
		Description: description,
	}
}

// Today returns the current local date truncated to midnight UTC.
func Today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// FormattedDate returns the date as YYYY-MM-DD.
func (e Expense) FormattedDate() string {
	return e.Date.Format(DateLayout)
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary aggregates a set of expenses.
type Summary struct {
	Total      decimal.Decimal
	Categories map[string]decimal.Decimal
}

// CategoryNames returns the summary's categories sorted alphabetically.
func (s Summary) CategoryNames() []string {
	names := make([]string, 0, len(s.Categories))
	for name := range s.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summarize computes the grand total and the per-category sums.
func Summarize(expenses []Expense) Summary {
	s := Summary{
		Total:      decimal.Zero,
		Categories: make(map[string]decimal.Decimal),
	}
	for _, e := range expenses {
		s.Total = s.Total.Add(e.Amount)
		s.Categories[e.Category] = s.Categories[e.Category].Add(e.Amount)
	}
	return s
}
