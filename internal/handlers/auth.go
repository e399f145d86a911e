package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"expense-ledger/internal/forms"
	"expense-ledger/internal/logging"
	"expense-ledger/internal/services"
	"expense-ledger/internal/session"
)

const genericError = "An error occurred. Please try again."

// SignupForm renders the registration page.
func (h *Handlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "signup.html", nil)
}

// Signup handles the registration form submission.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Signup"
	log := h.logger(r, op)

	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "signup.html", nil, danger("Invalid form submission"))
		return
	}
	in, err := forms.ParseSignup(r.PostForm)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "signup.html", nil, danger(err.Error()))
		return
	}

	user, err := h.accounts.Signup(r.Context(), in)
	switch {
	case errors.Is(err, services.ErrDuplicateEmail):
		redirect(w, r, "/login", session.FlashWarning, "Email already registered. Please log in.")
		return
	case errors.Is(err, services.ErrDuplicateUsername):
		h.render(w, r, http.StatusConflict, "signup.html", nil,
			session.Flash{Category: session.FlashWarning, Message: "Username already taken. Please choose another."})
		return
	case err != nil:
		log.ErrorContext(r.Context(), "signup failed", logging.Err(err))
		h.render(w, r, http.StatusInternalServerError, "signup.html", nil, danger(genericError))
		return
	}

	h.metrics.Signup()
	log.InfoContext(r.Context(), "user registered", slog.Int64("user_id", user.ID))
	redirect(w, r, "/login", session.FlashSuccess, "Signup successful! Please log in.")
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", nil)
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Login"
	log := h.logger(r, op)

	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login.html", nil, danger("Invalid form submission"))
		return
	}
	in, err := forms.ParseLogin(r.PostForm)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "login.html", nil, danger(err.Error()))
		return
	}

	user, err := h.accounts.Login(r.Context(), in)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.metrics.Login(false)
		h.render(w, r, http.StatusUnauthorized, "login.html", nil, danger("Invalid email or password."))
		return
	}
	if err != nil {
		log.ErrorContext(r.Context(), "login failed", logging.Err(err))
		h.render(w, r, http.StatusInternalServerError, "login.html", nil, danger(genericError))
		return
	}

	if _, err := h.sessions.Start(w, r, user); err != nil {
		log.ErrorContext(r.Context(), "failed to create session", logging.Err(err))
		h.render(w, r, http.StatusInternalServerError, "login.html", nil, danger(genericError))
		return
	}

	h.metrics.Login(true)
	log.InfoContext(r.Context(), "user logged in", slog.Int64("user_id", user.ID))
	redirect(w, r, "/", session.FlashSuccess, "Login successful!")
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	redirect(w, r, "/login", session.FlashInfo, "Logged out successfully.")
}

func danger(msg string) session.Flash {
	return session.Flash{Category: session.FlashDanger, Message: msg}
}
