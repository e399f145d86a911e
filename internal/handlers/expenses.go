package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"expense-ledger/internal/forms"
	"expense-ledger/internal/logging"
	"expense-ledger/internal/metrics"
	"expense-ledger/internal/models"
	"expense-ledger/internal/services"
	"expense-ledger/internal/session"
)

// ExpenseItem represents an expense in the dashboard table.
type ExpenseItem struct {
	models.Expense
	DisplayAmount string
	Style         CategoryStyle
}

// DashboardViewModel is the data passed to the index template.
type DashboardViewModel struct {
	Total      string
	Categories []StatsCategoryItem
	Expenses   []ExpenseItem
}

// FormViewModel is the data passed to the add and edit templates.
type FormViewModel struct {
	ID          int64
	Date        string
	Category    string
	Amount      string
	Description string
	Categories  []CategoryDef
}

func newFormViewModel(e *models.Expense) FormViewModel {
	if e == nil {
		return FormViewModel{Date: models.Today().Format(models.DateLayout), Categories: categories}
	}
	return FormViewModel{
		ID:          e.ID,
		Date:        e.FormattedDate(),
		Category:    e.Category,
		Amount:      e.Amount.String(),
		Description: e.Description,
		Categories:  categories,
	}
}

// reason turns a failed add or edit into the text shown to the user. Only
// validation problems are spelled out.
func reason(err error) string {
	if errors.Is(err, forms.ErrParse) {
		return err.Error()
	}
	return "could not save the expense"
}

// Dashboard renders the user's expenses with totals.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Dashboard"
	s := session.FromContext(r.Context())

	d, err := h.expenses.Dashboard(r.Context(), s.UserID)
	if err != nil {
		h.serverError(w, r, h.logger(r, op), "failed to load dashboard", err)
		return
	}

	items := make([]ExpenseItem, 0, len(d.Expenses))
	for _, e := range d.Expenses {
		items = append(items, ExpenseItem{
			Expense:       e,
			DisplayAmount: e.Amount.StringFixed(2),
			Style:         getCategoryStyle(e.Category),
		})
	}

	h.render(w, r, http.StatusOK, "index.html", DashboardViewModel{
		Total:      d.Summary.Total.StringFixed(2),
		Categories: categoryItems(d.Summary, d.Expenses),
		Expenses:   items,
	})
}

// AddForm renders the empty expense form.
func (h *Handlers) AddForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "add.html", newFormViewModel(nil))
}

// Add handles the creation of a new expense.
func (h *Handlers) Add(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Add"
	log := h.logger(r, op)
	s := session.FromContext(r.Context())

	fail := func(status int, err error) {
		h.render(w, r, status, "add.html", newFormViewModel(nil),
			danger("Error adding expense: "+reason(err)))
	}

	if err := r.ParseForm(); err != nil {
		fail(http.StatusBadRequest, err)
		return
	}
	in, err := forms.ParseExpense(r.PostForm)
	if err != nil {
		fail(http.StatusBadRequest, err)
		return
	}

	e, err := h.expenses.Add(r.Context(), s.UserID, in)
	if err != nil {
		log.ErrorContext(r.Context(), "failed to add expense", logging.Err(err))
		fail(http.StatusInternalServerError, err)
		return
	}

	h.metrics.ExpenseWrite(metrics.OpAdd)
	log.InfoContext(r.Context(), "expense added", slog.Int64("expense_id", e.ID))
	redirect(w, r, "/", session.FlashSuccess, "Expense added successfully!")
}

// EditForm renders the form for one of the user's expenses.
func (h *Handlers) EditForm(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.EditForm"
	s := session.FromContext(r.Context())

	id, ok := expenseID(r)
	if !ok {
		notFound(w)
		return
	}

	e, err := h.expenses.Get(r.Context(), s.UserID, id)
	if errors.Is(err, services.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.serverError(w, r, h.logger(r, op), "failed to load expense", err)
		return
	}

	h.render(w, r, http.StatusOK, "edit.html", newFormViewModel(e))
}

// Edit handles the update of an existing expense.
func (h *Handlers) Edit(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Edit"
	log := h.logger(r, op)
	s := session.FromContext(r.Context())

	id, ok := expenseID(r)
	if !ok {
		notFound(w)
		return
	}

	current, err := h.expenses.Get(r.Context(), s.UserID, id)
	if errors.Is(err, services.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.serverError(w, r, log, "failed to load expense", err)
		return
	}

	fail := func(status int, err error) {
		h.render(w, r, status, "edit.html", newFormViewModel(current),
			danger("Error updating expense: "+reason(err)))
	}

	if err := r.ParseForm(); err != nil {
		fail(http.StatusBadRequest, err)
		return
	}
	in, err := forms.ParseExpense(r.PostForm)
	if err != nil {
		fail(http.StatusBadRequest, err)
		return
	}

	if _, err := h.expenses.Edit(r.Context(), s.UserID, id, in); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			notFound(w)
			return
		}
		log.ErrorContext(r.Context(), "failed to update expense", logging.Err(err))
		fail(http.StatusInternalServerError, err)
		return
	}

	h.metrics.ExpenseWrite(metrics.OpEdit)
	log.InfoContext(r.Context(), "expense updated", slog.Int64("expense_id", id))
	redirect(w, r, "/", session.FlashSuccess, "Expense updated successfully!")
}

// Delete removes one of the user's expenses.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Delete"
	log := h.logger(r, op)
	s := session.FromContext(r.Context())

	id, ok := expenseID(r)
	if !ok {
		notFound(w)
		return
	}

	err := h.expenses.Delete(r.Context(), s.UserID, id)
	if errors.Is(err, services.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		log.ErrorContext(r.Context(), "failed to delete expense", logging.Err(err))
		redirect(w, r, "/", session.FlashDanger, "Error deleting expense: could not delete the expense")
		return
	}

	h.metrics.ExpenseWrite(metrics.OpDelete)
	log.InfoContext(r.Context(), "expense deleted", slog.Int64("expense_id", id))
	redirect(w, r, "/", session.FlashSuccess, "Expense deleted successfully!")
}
