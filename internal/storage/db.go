package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense-ledger/internal/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a lookup, update or delete matches no row.
	ErrNotFound = errors.New("storage: record not found")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("storage: unique constraint violated")
)

// ConflictError reports a UNIQUE constraint violation on Field.
type ConflictError struct {
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("storage: %s already exists: %v", e.Field, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds every statement the application runs. It is bound either to
// the connection pool or to a transaction.
type Queries struct {
	q querier
}

// DB wraps a sql.DB connection.
type DB struct {
	*Queries
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	const op = "storage.NewDB"

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", op, err)
	}

	// A single connection keeps :memory: databases alive across queries and
	// serializes writers.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %s: %w", op, pragma, err)
		}
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &DB{Queries: &Queries{q: conn}, conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back on error or panic. fn must only use the
// Queries it is given.
func (db *DB) WithTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	const op = "storage.WithTx"

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("%s: rollback: %w", op, rbErr))
			}
		}
	}()

	if err = fn(&Queries{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// CreateExpense inserts e and sets its ID.
func (q *Queries) CreateExpense(ctx context.Context, e *models.Expense) error {
	const op = "storage.CreateExpense"

	if e.Date.IsZero() {
		e.Date = models.Today()
	}
	result, err := q.q.ExecContext(ctx,
		"INSERT INTO expenses (user_id, date, category, amount, description) VALUES (?, ?, ?, ?, ?)",
		e.UserID, e.Date.Format(models.DateLayout), e.Category, e.Amount.String(), e.Description,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: last insert id: %w", op, err)
	}
	e.ID = id
	return nil
}

// GetExpense retrieves a single expense by ID.
func (q *Queries) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	const op = "storage.GetExpense"

	row := q.q.QueryRowContext(ctx,
		"SELECT id, user_id, date, category, amount, description FROM expenses WHERE id = ?",
		id,
	)
	e, err := scanExpense(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return e, nil
}

// UpdateExpense overwrites every mutable field of an existing expense.
func (q *Queries) UpdateExpense(ctx context.Context, e *models.Expense) error {
	const op = "storage.UpdateExpense"

	result, err := q.q.ExecContext(ctx,
		"UPDATE expenses SET date = ?, category = ?, amount = ?, description = ? WHERE id = ?",
		e.Date.Format(models.DateLayout), e.Category, e.Amount.String(), e.Description, e.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return affectedOne(op, result)
}

// DeleteExpense removes an expense by ID.
func (q *Queries) DeleteExpense(ctx context.Context, id int64) error {
	const op = "storage.DeleteExpense"

	result, err := q.q.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return affectedOne(op, result)
}

// ListExpensesByUser returns every expense owned by userID, newest date first.
// Expenses sharing a date are ordered by insertion, newest first.
func (q *Queries) ListExpensesByUser(ctx context.Context, userID int64) ([]models.Expense, error) {
	const op = "storage.ListExpensesByUser"

	rows, err := q.q.QueryContext(ctx,
		"SELECT id, user_id, date, category, amount, description FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return expenses, nil
}

// CountExpenses returns the number of stored expenses across all users.
func (q *Queries) CountExpenses(ctx context.Context) (int, error) {
	var count int
	err := q.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses").Scan(&count)
	return count, err
}

// CreateUser creates a new user with the given username, email and password hash.
func (q *Queries) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	const op = "storage.CreateUser"

	result, err := q.q.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		username, email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: last insert id: %w", op, err)
	}

	return q.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return q.getUser(ctx, "storage.GetUserByID", "id", id)
}

// GetUserByEmail retrieves a user by email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return q.getUser(ctx, "storage.GetUserByEmail", "email", email)
}

// GetUserByUsername retrieves a user by username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return q.getUser(ctx, "storage.GetUserByUsername", "username", username)
}

// column is always one of the fixed identifiers above.
func (q *Queries) getUser(ctx context.Context, op, column string, value any) (*models.User, error) {
	row := q.q.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE "+column+" = ?",
		value,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &u, nil
}

// UserCount returns the number of users in the database.
func (q *Queries) UserCount(ctx context.Context) (int, error) {
	var count int
	err := q.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (*models.Expense, error) {
	var (
		e    models.Expense
		date string
	)
	if err := s.Scan(&e.ID, &e.UserID, &date, &e.Category, &e.Amount, &e.Description); err != nil {
		return nil, err
	}

	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	e.Date = d
	return &e, nil
}

func affectedOne(op string, result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// mapError translates driver errors into the package's sentinel errors.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &ConflictError{Field: conflictField(se.Error()), Err: err}
		}
	}
	return err
}

// conflictField extracts "email" from "UNIQUE constraint failed: users.email".
func conflictField(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	field := msg[i+len(marker):]
	if j := strings.IndexAny(field, " ,)"); j >= 0 {
		field = field[:j]
	}
	if k := strings.LastIndex(field, "."); k >= 0 {
		field = field[k+1:]
	}
	return field
}
