package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"expense-ledger/internal/forms"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func expenseInput(t *testing.T, date, category, amount, description string) forms.Expense {
	t.Helper()
	d, err := time.Parse(models.DateLayout, date)
	require.NoError(t, err)
	return forms.Expense{
		Date:        d,
		Category:    category,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
	}
}

type ServicesTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *storage.DB
	accounts *Accounts
	expenses *Expenses
	alice    *models.User
}

func (suite *ServicesTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db
	suite.ctx = context.Background()
	suite.accounts = NewAccounts(db)
	suite.expenses = NewExpenses(db)

	alice, err := suite.accounts.Signup(suite.ctx, forms.Signup{Username: "alice", Email: "a@x.com", Password: "secret"})
	require.NoError(suite.T(), err)
	suite.alice = alice
}

func (suite *ServicesTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ServicesTestSuite) userCount() int {
	n, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	return n
}

func (suite *ServicesTestSuite) expenseCount() int {
	n, err := suite.db.CountExpenses(suite.ctx)
	require.NoError(suite.T(), err)
	return n
}

func (suite *ServicesTestSuite) TestSignup_StoresHashNotPlaintext() {
	user, err := suite.db.GetUserByEmail(suite.ctx, "a@x.com")
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), "secret", user.PasswordHash)
	assert.NotEmpty(suite.T(), user.PasswordHash)
}

func (suite *ServicesTestSuite) TestSignup_DuplicateEmail() {
	_, err := suite.accounts.Signup(suite.ctx, forms.Signup{Username: "alice2", Email: "a@x.com", Password: "other"})
	assert.ErrorIs(suite.T(), err, ErrDuplicateEmail)
	assert.Equal(suite.T(), 1, suite.userCount(), "no second user may be created")
}

func (suite *ServicesTestSuite) TestSignup_DuplicateUsername() {
	_, err := suite.accounts.Signup(suite.ctx, forms.Signup{Username: "alice", Email: "new@x.com", Password: "other"})
	assert.ErrorIs(suite.T(), err, ErrDuplicateUsername)
	assert.Equal(suite.T(), 1, suite.userCount())
}

func (suite *ServicesTestSuite) TestLogin() {
	user, err := suite.accounts.Login(suite.ctx, forms.Login{Email: "a@x.com", Password: "secret"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.alice.ID, user.ID)
	assert.Equal(suite.T(), "alice", user.Username)
}

func (suite *ServicesTestSuite) TestLogin_FailuresAreIndistinguishable() {
	_, wrongPassword := suite.accounts.Login(suite.ctx, forms.Login{Email: "a@x.com", Password: "nope"})
	_, unknownEmail := suite.accounts.Login(suite.ctx, forms.Login{Email: "ghost@x.com", Password: "secret"})

	assert.ErrorIs(suite.T(), wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(suite.T(), unknownEmail, ErrInvalidCredentials)
	assert.Equal(suite.T(), wrongPassword.Error(), unknownEmail.Error())
}

func (suite *ServicesTestSuite) TestDashboard_Empty() {
	d, err := suite.expenses.Dashboard(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), d.Expenses)
	assert.True(suite.T(), d.Summary.Total.IsZero())
	assert.Empty(suite.T(), d.Summary.Categories)
}

func (suite *ServicesTestSuite) TestAddAndDashboard() {
	_, err := suite.expenses.Add(suite.ctx, suite.alice.ID, expenseInput(suite.T(), "2024-01-05", "Food", "12.50", ""))
	require.NoError(suite.T(), err)
	_, err = suite.expenses.Add(suite.ctx, suite.alice.ID, expenseInput(suite.T(), "2024-01-07", "Transport", "2.30", "bus"))
	require.NoError(suite.T(), err)
	_, err = suite.expenses.Add(suite.ctx, suite.alice.ID, expenseInput(suite.T(), "2024-01-06", "Food", "0.20", ""))
	require.NoError(suite.T(), err)

	d, err := suite.expenses.Dashboard(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), d.Expenses, 3)
	assert.Equal(suite.T(), "2024-01-07", d.Expenses[0].FormattedDate())
	assert.Equal(suite.T(), "2024-01-05", d.Expenses[2].FormattedDate())

	assert.Equal(suite.T(), "15", d.Summary.Total.String())
	assert.Equal(suite.T(), "12.7", d.Summary.Categories["Food"].String())
	assert.Equal(suite.T(), "2.3", d.Summary.Categories["Transport"].String())
}

func (suite *ServicesTestSuite) TestDashboard_OnlyOwnExpenses() {
	bob, err := suite.accounts.Signup(suite.ctx, forms.Signup{Username: "bob", Email: "b@x.com", Password: "pw"})
	require.NoError(suite.T(), err)
	_, err = suite.expenses.Add(suite.ctx, bob.ID, expenseInput(suite.T(), "2024-01-05", "Food", "99", ""))
	require.NoError(suite.T(), err)

	d, err := suite.expenses.Dashboard(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), d.Expenses)
}

func (suite *ServicesTestSuite) TestEdit_OverwritesFields() {
	e, err := suite.expenses.Add(suite.ctx, suite.alice.ID, expenseInput(suite.T(), "2024-01-05", "Misc", "1", "old note"))
	require.NoError(suite.T(), err)

	_, err = suite.expenses.Edit(suite.ctx, suite.alice.ID, e.ID, expenseInput(suite.T(), "2024-01-05", "Food", "42.50", ""))
	require.NoError(suite.T(), err)

	got, err := suite.expenses.Get(suite.ctx, suite.alice.ID, e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Food", got.Category)
	assert.True(suite.T(), decimal.RequireFromString("42.50").Equal(got.Amount))
	assert.Equal(suite.T(), "2024-01-05", got.FormattedDate())
	assert.Equal(suite.T(), "", got.Description)
}

func (suite *ServicesTestSuite) TestEdit_NotFound() {
	_, err := suite.expenses.Edit(suite.ctx, suite.alice.ID, 777, expenseInput(suite.T(), "2024-01-05", "Food", "1", ""))
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *ServicesTestSuite) TestEdit_OtherUsersExpense() {
	bob, err := suite.accounts.Signup(suite.ctx, forms.Signup{Username: "bob", Email: "b@x.com", Password: "pw"})
	require.NoError(suite.T(), err)
	e, err := suite.expenses.Add(suite.ctx, bob.ID, expenseInput(suite.T(), "2024-01-05", "Food", "10", ""))
	require.NoError(suite.T(), err)

	_, err = suite.expenses.Edit(suite.ctx, suite.alice.ID, e.ID, expenseInput(suite.T(), "2024-01-05", "Hacked", "0", ""))
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	got, err := suite.expenses.Get(suite.ctx, bob.ID, e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Food", got.Category, "another user's expense must stay untouched")
}

func (suite *ServicesTestSuite) TestDelete() {
	e, err := suite.expenses.Add(suite.ctx, suite.alice.ID, expenseInput(suite.T(), "2024-01-05", "Food", "1", ""))
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.expenses.Delete(suite.ctx, suite.alice.ID, e.ID))
	assert.Zero(suite.T(), suite.expenseCount())

	_, err = suite.expenses.Get(suite.ctx, suite.alice.ID, e.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *ServicesTestSuite) TestDelete_NotFoundWritesNothing() {
	_, err := suite.expenses.Add(suite.ctx, suite.alice.ID, expenseInput(suite.T(), "2024-01-05", "Food", "1", ""))
	require.NoError(suite.T(), err)

	err = suite.expenses.Delete(suite.ctx, suite.alice.ID, 12345)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
	assert.True(suite.T(), errors.Is(err, ErrNotFound))
	assert.Equal(suite.T(), 1, suite.expenseCount())
}

func (suite *ServicesTestSuite) TestDelete_OtherUsersExpense() {
	bob, err := suite.accounts.Signup(suite.ctx, forms.Signup{Username: "bob", Email: "b@x.com", Password: "pw"})
	require.NoError(suite.T(), err)
	e, err := suite.expenses.Add(suite.ctx, bob.ID, expenseInput(suite.T(), "2024-01-05", "Food", "10", ""))
	require.NoError(suite.T(), err)

	assert.ErrorIs(suite.T(), suite.expenses.Delete(suite.ctx, suite.alice.ID, e.ID), ErrNotFound)
	assert.Equal(suite.T(), 1, suite.expenseCount())
}

func TestServicesSuite(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}
