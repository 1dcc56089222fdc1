// Package handler implements the HTML request handlers.
package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"blogd/internal/middleware"
	"blogd/internal/render"
	"blogd/internal/service"
	"blogd/internal/store"
)

// Base bundles the dependencies shared by all handlers.
type Base struct {
	queries        *store.Queries
	blog           *service.BlogService
	events         *service.EventService
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewBase creates the shared handler dependencies.
func NewBase(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *Base {
	return &Base{
		queries:        store.New(db),
		blog:           service.NewBlogService(db),
		events:         service.NewEventService(db),
		renderer:       renderer,
		sessionManager: sm,
	}
}

// render writes a page, falling back to a plain 500 when the template
// fails.
func (b *Base) render(w http.ResponseWriter, r *http.Request, name string, data render.TemplateData) {
	data.User = middleware.GetUser(r.Context())
	if err := b.renderer.Render(w, r, name, data); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (b *Base) notFound(w http.ResponseWriter) {
	http.Error(w, "Not Found", http.StatusNotFound)
}

func (b *Base) serverError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// flashAndRedirect sets a flash message and redirects.
func (b *Base) flashAndRedirect(w http.ResponseWriter, r *http.Request, url, message, flashType string) {
	b.renderer.SetFlash(r, message, flashType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// pageParam parses the ?page query parameter, defaulting to 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// idParam parses a numeric chi URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
