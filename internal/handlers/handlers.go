// Package handlers implements the HTML pages and form posts of the ledger.
package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"expense-ledger/internal/logging"
	"expense-ledger/internal/metrics"
	"expense-ledger/internal/services"
	"expense-ledger/internal/session"
	"expense-ledger/internal/storage"
	"expense-ledger/web"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// views are the page templates; each is rendered inside base.html.
var views = map[string]string{
	"login.html":  "Log in",
	"signup.html": "Sign up",
	"index.html":  "Dashboard",
	"add.html":    "Add expense",
	"edit.html":   "Edit expense",
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db       *storage.DB
	accounts *services.Accounts
	expenses *services.Expenses
	sessions *session.Manager
	metrics  *metrics.Metrics
	log      *slog.Logger
	pages    map[string]*template.Template
}

// NewHandlers creates a new Handlers instance and parses the embedded templates.
func NewHandlers(db *storage.DB, sessions *session.Manager, m *metrics.Metrics, log *slog.Logger) (*Handlers, error) {
	pages := make(map[string]*template.Template, len(views))
	for view := range views {
		tmpl, err := template.New(view).ParseFS(web.TemplatesFS(), "base.html", "fields.html", view)
		if err != nil {
			return nil, fmt.Errorf("handlers.NewHandlers: parse %s: %w", view, err)
		}
		pages[view] = tmpl
	}

	return &Handlers{
		db:       db,
		accounts: services.NewAccounts(db.Queries),
		expenses: services.NewExpenses(db),
		sessions: sessions,
		metrics:  m,
		log:      log.With(slog.String("component", "handlers")),
		pages:    pages,
	}, nil
}

// Register mounts every page on r. Pages outside the auth group still see
// the session so they can redirect signed-in users.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Middleware)

		r.Get("/signup", h.SignupForm)
		r.Post("/signup", h.Signup)
		r.Get("/login", h.LoginForm)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(session.RequireAuth)

			r.Get("/", h.Dashboard)
			r.Get("/add", h.AddForm)
			r.Post("/add", h.Add)
			r.Get("/edit/{id}", h.EditForm)
			r.Post("/edit/{id}", h.Edit)
			r.Post("/delete/{id}", h.Delete)
		})
	})
}

// Page is what base.html receives. Data carries the view model of the page.
type Page struct {
	Title   string
	User    *session.Session
	Flashes []session.Flash
	Data    any
}

// render executes view inside the layout. Pending flash notices are consumed
// and shown before extra.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, view string, data any, extra ...session.Flash) {
	tmpl, ok := h.pages[view]
	if !ok {
		h.log.ErrorContext(r.Context(), "unknown view", slog.String("view", view))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	page := Page{
		Title:   views[view],
		User:    session.FromContext(r.Context()),
		Flashes: append(session.PopFlashes(w, r), extra...),
		Data:    data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", page); err != nil {
		h.log.ErrorContext(r.Context(), "template execution failed",
			slog.String("view", view), logging.Err(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirect queues a flash notice and sends the browser to url.
func redirect(w http.ResponseWriter, r *http.Request, url, category, message string) {
	session.AddFlash(w, r, session.Flash{Category: category, Message: message})
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handlers) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	log.ErrorContext(r.Context(), msg, logging.Err(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func notFound(w http.ResponseWriter) {
	http.Error(w, "Expense not found", http.StatusNotFound)
}

// expenseID reads the {id} path parameter. Anything but a positive integer is
// treated as a missing expense.
func expenseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CategoryDef is a suggested category shown in the expense form.
type CategoryDef struct {
	ID    string
	Name  string
	Icon  string
	Color string
}

var categories = []CategoryDef{
	{"food", "Food", "🍽️", "#60a5fa"},
	{"transport", "Transport", "🚌", "#a78bfa"},
	{"entertainment", "Entertainment", "🎮", "#f472b6"},
	{"utilities", "Utilities", "💡", "#fbbf24"},
	{"housing", "Housing", "🏠", "#818cf8"},
	{"gifts", "Gifts", "🎁", "#fb7185"},
	{"other", "Other", "📦", "#94a3b8"},
}

// CategoryStyle defines the visual style for a category.
type CategoryStyle struct {
	Icon  string
	Color string
}

// getCategoryStyle matches free-text categories against the suggestions,
// case-insensitively. Unknown categories get the "other" style.
func getCategoryStyle(category string) CategoryStyle {
	catLower := strings.ToLower(strings.TrimSpace(category))
	for _, c := range categories {
		if c.ID == catLower {
			return CategoryStyle{Icon: c.Icon, Color: c.Color}
		}
	}
	return CategoryStyle{Icon: "📦", Color: "#94a3b8"}
}
