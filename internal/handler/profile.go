package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"blogd/internal/middleware"
	"blogd/internal/model"
	"blogd/internal/render"
	"blogd/internal/service"
)

// ProfileHandler handles public profile pages and profile editing.
type ProfileHandler struct {
	*Base
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *ProfileHandler {
	return &ProfileHandler{Base: NewBase(db, renderer, sm)}
}

// Show renders a user's profile page. Owners see all their posts, visitors
// only the public ones.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	viewerID := middleware.GetUserID(r.Context())

	owner, page, err := h.blog.ListProfilePosts(r.Context(), username, viewerID, time.Now(), pageParam(r))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.notFound(w)
			return
		}
		h.serverError(w, "listing profile posts", err)
		return
	}

	h.render(w, r, "blog/profile", render.TemplateData{
		Title: owner.DisplayName(),
		Data: map[string]any{
			"Owner":      owner,
			"Page":       page,
			"Pagination": buildPagination(page),
			"IsOwner":    viewerID != 0 && viewerID == owner.ID,
		},
	})
}

type profileForm struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// EditForm renders the profile edit form for the current user.
func (h *ProfileHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	h.render(w, r, "blog/profile_form", render.TemplateData{
		Title: "Edit profile",
		Data: map[string]any{
			"Form": profileForm{
				Username:  user.Username,
				Email:     user.Email,
				FirstName: user.FirstName,
				LastName:  user.LastName,
			},
		},
	})
}

// Update saves the current user's profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, "/profile/edit", "Invalid form data", "error")
		return
	}

	form := profileForm{
		Username:  strings.TrimSpace(r.FormValue("username")),
		Email:     strings.TrimSpace(r.FormValue("email")),
		FirstName: strings.TrimSpace(r.FormValue("first_name")),
		LastName:  strings.TrimSpace(r.FormValue("last_name")),
	}

	fieldErrors := map[string]string{}
	if msg := validateUsername(form.Username); msg != "" {
		fieldErrors["username"] = msg
	}
	if msg := validateEmail(form.Email); msg != "" {
		fieldErrors["email"] = msg
	}

	if len(fieldErrors) == 0 {
		if taken, err := h.queries.UsernameExists(r.Context(), form.Username, user.ID); err != nil {
			h.serverError(w, "checking username", err)
			return
		} else if taken {
			fieldErrors["username"] = "Username is already taken"
		}
		if taken, err := h.queries.EmailExists(r.Context(), form.Email, user.ID); err != nil {
			h.serverError(w, "checking email", err)
			return
		} else if taken {
			fieldErrors["email"] = "Email is already registered"
		}
	}

	if len(fieldErrors) > 0 {
		h.render(w, r, "blog/profile_form", render.TemplateData{
			Title:  "Edit profile",
			Data:   map[string]any{"Form": form},
			Errors: fieldErrors,
		})
		return
	}

	err := h.blog.UpdateProfile(r.Context(), user.ID, service.ProfileInput{
		Username:  form.Username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
	})
	if err != nil {
		h.serverError(w, "updating profile", err)
		return
	}

	_ = h.events.LogContentEvent(r.Context(), model.EventLevelInfo, model.EventCategoryUser,
		"Profile updated", &user.ID, nil)

	h.flashAndRedirect(w, r, "/profile/"+form.Username, "Profile updated", "success")
}
