package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blogd/internal/store"
	"blogd/internal/testutil"
)

func TestCategoryPageRequiresLogin(t *testing.T) {
	db, sm := testHandlerSetup(t)
	q := store.New(db)

	testutil.CreateCategory(t, q, "Travel", "travel", true)

	h := NewTaxonomyHandler(db, testRenderer(t, sm), sm)
	r := authedRouter(sm, q, 0)
	r.Get("/category/{slug}", h.CategoryPage)

	req := httptest.NewRequest(http.MethodGet, "/category/travel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Anonymous viewers are sent to login regardless of category state.
	assertRedirect(t, w, "/auth/login?next=/category/travel")
}

func TestCategoryPageListsPublishedPosts(t *testing.T) {
	db, sm := testHandlerSetup(t)
	q := store.New(db)

	viewer := testutil.CreateUser(t, q, "viewer")
	author := testutil.CreateUser(t, q, "author")
	category := testutil.CreateCategory(t, q, "Travel", "travel", true)
	testutil.CreatePost(t, q, author.ID, "Visible trip", testutil.InCategory(category.ID))
	testutil.CreatePost(t, q, author.ID, "Hidden draft", testutil.InCategory(category.ID), testutil.Unpublished())

	h := NewTaxonomyHandler(db, testRenderer(t, sm), sm)
	r := authedRouter(sm, q, viewer.ID)
	r.Get("/category/{slug}", h.CategoryPage)

	req := httptest.NewRequest(http.MethodGet, "/category/travel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assertStatus(t, w.Code, http.StatusOK)
	body := w.Body.String()
	if !strings.Contains(body, "Visible trip") {
		t.Error("published post missing from category page")
	}
	if strings.Contains(body, "Hidden draft") {
		t.Error("draft post listed on category page")
	}
}

func TestCategoryPageHiddenOrMissingIsNotFound(t *testing.T) {
	db, sm := testHandlerSetup(t)
	q := store.New(db)

	viewer := testutil.CreateUser(t, q, "viewer")
	testutil.CreateCategory(t, q, "Secret", "secret", false)

	h := NewTaxonomyHandler(db, testRenderer(t, sm), sm)
	r := authedRouter(sm, q, viewer.ID)
	r.Get("/category/{slug}", h.CategoryPage)

	for _, slug := range []string{"secret", "no-such-category"} {
		req := httptest.NewRequest(http.MethodGet, "/category/"+slug, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assertStatus(t, w.Code, http.StatusNotFound)
	}
}
