package handler

import (
	"database/sql"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"blogd/internal/middleware"
	"blogd/internal/render"
	"blogd/internal/session"
	"blogd/internal/store"
	"blogd/internal/testutil"
	"blogd/web"
)

func testHandlerSetup(t *testing.T) (*sql.DB, *scs.SessionManager) {
	t.Helper()

	db := testutil.TestDB(t)
	return db, session.New(db, true)
}

func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("locating templates: %v", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("creating renderer: %v", err)
	}
	return renderer
}

// withSessionUser loads a fresh session into the request context,
// authenticated as userID when it is non-zero.
func withSessionUser(sm *scs.SessionManager, userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := sm.Load(r.Context(), "")
			if err != nil {
				http.Error(w, "session load failed", http.StatusInternalServerError)
				return
			}
			if userID != 0 {
				sm.Put(ctx, middleware.SessionUserIDKey, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authedRouter mirrors the server's authenticated route group: session,
// Auth redirect and user loading, in that order.
func authedRouter(sm *scs.SessionManager, q *store.Queries, userID int64) chi.Router {
	r := chi.NewRouter()
	r.Use(withSessionUser(sm, userID))
	r.Use(middleware.Auth(sm))
	r.Use(middleware.LoadUser(sm, q))
	return r
}

func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, wantLocation string) {
	t.Helper()
	assertStatus(t, w.Code, http.StatusSeeOther)
	if got := w.Header().Get("Location"); got != wantLocation {
		t.Errorf("Location = %q; want %q", got, wantLocation)
	}
}
