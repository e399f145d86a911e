// Package forms turns submitted form values into typed, validated inputs.
// Every parser either returns a complete value or an error; nothing is
// written to storage until parsing has succeeded.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"expense-ledger/internal/models"

	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("parse error")

// ParseError describes a field that could not be converted or validated.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v (got %q)", e.Field, e.Err, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

var validate = validator.New()

// Signup is a validated registration form.
type Signup struct {
	Username string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=120"`
	Password string `validate:"required"`
}

// Login is a validated login form.
type Login struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// Expense is a validated add/edit expense form.
type Expense struct {
	Date        time.Time
	Category    string `validate:"required,max=100"`
	Amount      decimal.Decimal
	Description string `validate:"max=255"`
}

// maxPasswordBytes is bcrypt's input limit. Multibyte characters count for
// every byte they take.
const maxPasswordBytes = 72

// ParseSignup reads username, email and password.
func ParseSignup(form url.Values) (Signup, error) {
	in := Signup{
		Username: strings.TrimSpace(form.Get("username")),
		Email:    strings.TrimSpace(form.Get("email")),
		Password: form.Get("password"),
	}
	if err := check(in); err != nil {
		return Signup{}, err
	}
	if len(in.Password) > maxPasswordBytes {
		return Signup{}, &ParseError{Field: "password", Err: fmt.Errorf("must be at most %d bytes", maxPasswordBytes)}
	}
	return in, nil
}

// ParseLogin reads email and password.
func ParseLogin(form url.Values) (Login, error) {
	in := Login{
		Email:    strings.TrimSpace(form.Get("email")),
		Password: form.Get("password"),
	}
	if err := check(in); err != nil {
		return Login{}, err
	}
	return in, nil
}

// ParseExpense reads date (YYYY-MM-DD), category, amount and the optional
// description. A missing description becomes the empty string.
func ParseExpense(form url.Values) (Expense, error) {
	date, err := ParseDate(form.Get("date"))
	if err != nil {
		return Expense{}, err
	}

	amount, err := ParseAmount(form.Get("amount"))
	if err != nil {
		return Expense{}, err
	}

	in := Expense{
		Date:        date,
		Category:    strings.TrimSpace(form.Get("category")),
		Amount:      amount,
		Description: strings.TrimSpace(form.Get("description")),
	}
	if err := check(in); err != nil {
		return Expense{}, err
	}
	return in, nil
}

// ParseDate parses a calendar date. Impossible dates such as 2024-02-30 are rejected.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &ParseError{Field: "date", Err: errors.New("is required")}
	}
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, &ParseError{Field: "date", Value: raw, Err: errors.New("must be a valid date in YYYY-MM-DD format")}
	}
	return d, nil
}

// Amount bounds. Exponent notation is not accepted.
const (
	maxAmountIntDigits  = 15
	maxAmountFracDigits = 4
)

var amountPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)$`)

// ParseAmount parses a signed plain decimal such as "12.50" or "-4". The
// shape and digit counts are checked before the value is converted.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, &ParseError{Field: "amount", Err: errors.New("is required")}
	}
	if !amountPattern.MatchString(raw) {
		return decimal.Decimal{}, &ParseError{Field: "amount", Value: raw, Err: errors.New("must be a number")}
	}

	sign := ""
	digits := raw
	switch raw[0] {
	case '-':
		sign, digits = "-", raw[1:]
	case '+':
		digits = raw[1:]
	}
	intPart, fracPart, _ := strings.Cut(digits, ".")
	if len(strings.TrimLeft(intPart, "0")) > maxAmountIntDigits || len(fracPart) > maxAmountFracDigits {
		return decimal.Decimal{}, &ParseError{Field: "amount", Value: raw, Err: fmt.Errorf(
			"must have at most %d digits before and %d after the decimal point",
			maxAmountIntDigits, maxAmountFracDigits)}
	}
	if intPart == "" {
		intPart = "0"
	}
	normalized := sign + intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}

	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, &ParseError{Field: "amount", Value: raw, Err: errors.New("must be a number")}
	}
	return amount, nil
}

// check runs struct tag validation and converts the first failure into a ParseError.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &ParseError{
		Field: strings.ToLower(fe.Field()),
		Err:   errors.New(describe(fe)),
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed the %s check", fe.Tag())
	}
}
