package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"blogd/internal/auth"
	"blogd/internal/middleware"
	"blogd/internal/model"
	"blogd/internal/render"
	"blogd/internal/store"
)

// AuthHandler handles registration, login, logout and password changes.
type AuthHandler struct {
	*Base
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		Base:            NewBase(db, renderer, sm),
		loginProtection: lp,
	}
}

type registerForm struct {
	Username string
	Email    string
}

// RegisterForm renders the signup page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if h.sessionManager.GetInt64(r.Context(), middleware.SessionUserIDKey) > 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.render(w, r, "auth/register", render.TemplateData{
		Title: "Sign up",
		Data:  map[string]any{"Form": registerForm{}},
	})
}

// Register creates a new account and logs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, "/auth/register", "Invalid form data", "error")
		return
	}

	form := registerForm{
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.TrimSpace(r.FormValue("email")),
	}
	password := r.FormValue("password")

	fieldErrors := map[string]string{}
	if msg := validateUsername(form.Username); msg != "" {
		fieldErrors["username"] = msg
	}
	if msg := validateEmail(form.Email); msg != "" {
		fieldErrors["email"] = msg
	}
	if msg := validatePassword(password, r.FormValue("password_confirm")); msg != "" {
		fieldErrors["password"] = msg
	}

	if len(fieldErrors) == 0 {
		if taken, err := h.queries.UsernameExists(r.Context(), form.Username, 0); err != nil {
			h.serverError(w, "checking username", err)
			return
		} else if taken {
			fieldErrors["username"] = "Username is already taken"
		}
		if taken, err := h.queries.EmailExists(r.Context(), form.Email, 0); err != nil {
			h.serverError(w, "checking email", err)
			return
		} else if taken {
			fieldErrors["email"] = "Email is already registered"
		}
	}

	if len(fieldErrors) > 0 {
		h.render(w, r, "auth/register", render.TemplateData{
			Title:  "Sign up",
			Data:   map[string]any{"Form": form},
			Errors: fieldErrors,
		})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		h.serverError(w, "hashing password", err)
		return
	}

	now := time.Now().UTC()
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		h.serverError(w, "creating user", err)
		return
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		h.serverError(w, "session renewal", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionUserIDKey, user.ID)

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User registered",
		&user.ID, middleware.GetClientIP(r), r.URL.Path, map[string]any{"username": user.Username})

	h.flashAndRedirect(w, r, "/profile/"+user.Username, "Welcome to Blogd!", "success")
}

// LoginForm renders the login page. Authenticated users are sent home.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.sessionManager.GetInt64(r.Context(), middleware.SessionUserIDKey) > 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.render(w, r, "auth/login", render.TemplateData{
		Title: "Log in",
		Data:  map[string]any{"Next": sanitizeNext(r.URL.Query().Get("next"))},
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, "/auth/login", "Invalid form data", "error")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	next := sanitizeNext(r.FormValue("next"))
	clientIP := middleware.GetClientIP(r)

	if username == "" || password == "" {
		h.flashAndRedirect(w, r, "/auth/login", "Username and password are required", "error")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(username); locked {
			_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login attempt on locked account",
				nil, clientIP, r.URL.Path, map[string]any{"username": username})
			h.flashAndRedirect(w, r, "/auth/login",
				fmt.Sprintf("Account is locked, try again in %s", formatDuration(remaining)), "error")
			return
		}
	}

	user, err := h.queries.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: user not found",
				nil, clientIP, r.URL.Path, map[string]any{"username": username})
		} else {
			slog.Error("database error during login", "error", err)
		}
		// Count attempts against unknown names too, to block enumeration.
		h.recordFailedLogin(w, r, username)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		h.flashAndRedirect(w, r, "/auth/login", "Invalid username or password", "error")
		return
	}
	if !valid {
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: invalid password",
			&user.ID, clientIP, r.URL.Path, map[string]any{"username": username})
		h.recordFailedLogin(w, r, username)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(username)
	}

	// Upgrade hashes created with older parameters.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now().UTC(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		// Not worth blocking the login.
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	}

	// Regenerate the session ID to prevent fixation.
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		h.serverError(w, "session renewal", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionUserIDKey, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in",
		&user.ID, clientIP, r.URL.Path, map[string]any{"username": user.Username})

	h.renderer.SetFlash(r, "Welcome back, "+user.DisplayName(), "success")
	if next == "" {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *AuthHandler) recordFailedLogin(w http.ResponseWriter, r *http.Request, username string) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(username); locked {
			h.flashAndRedirect(w, r, "/auth/login",
				fmt.Sprintf("Too many failed attempts, account locked for %s", formatDuration(lockDuration)), "error")
			return
		}
		if remaining := h.loginProtection.GetRemainingAttempts(username); remaining > 0 && remaining <= 3 {
			h.flashAndRedirect(w, r, "/auth/login",
				fmt.Sprintf("Invalid username or password, %d attempts remaining", remaining), "error")
			return
		}
	}
	h.flashAndRedirect(w, r, "/auth/login", "Invalid username or password", "error")
}

// Logout destroys the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionUserIDKey)

	if userID > 0 {
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out",
			&userID, middleware.GetClientIP(r), r.URL.Path, nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	h.flashAndRedirect(w, r, "/", "You have been logged out", "info")
}

// PasswordForm renders the change-password page.
func (h *AuthHandler) PasswordForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/password", render.TemplateData{Title: "Change password"})
}

// ChangePassword updates the current user's password after verifying the
// old one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, "/auth/password", "Invalid form data", "error")
		return
	}

	current := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	fieldErrors := map[string]string{}
	if valid, err := auth.CheckPassword(current, user.PasswordHash); err != nil || !valid {
		fieldErrors["current_password"] = "Current password is incorrect"
	}
	if msg := validatePassword(newPassword, r.FormValue("password_confirm")); msg != "" {
		fieldErrors["new_password"] = msg
	}

	if len(fieldErrors) > 0 {
		h.render(w, r, "auth/password", render.TemplateData{
			Title:  "Change password",
			Errors: fieldErrors,
		})
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		h.serverError(w, "hashing password", err)
		return
	}
	if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
		PasswordHash: hash,
		UpdatedAt:    time.Now().UTC(),
		ID:           user.ID,
	}); err != nil {
		h.serverError(w, "updating password", err)
		return
	}

	_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "Password changed",
		&user.ID, middleware.GetClientIP(r), r.URL.Path, nil)

	h.flashAndRedirect(w, r, "/profile/"+user.Username, "Password changed", "success")
}

// sanitizeNext keeps post-login redirects on this site.
func sanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}

// formatDuration renders a lockout duration for humans.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return fmt.Sprintf("%.0f hours", d.Hours())
}
