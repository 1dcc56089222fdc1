package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"blogd/internal/render"
	"blogd/internal/service"
	"blogd/internal/store"
	"blogd/internal/util"
)

// TaxonomyHandler handles the public category pages and the admin CRUD for
// categories and locations.
type TaxonomyHandler struct {
	*Base
}

// NewTaxonomyHandler creates a TaxonomyHandler.
func NewTaxonomyHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *TaxonomyHandler {
	return &TaxonomyHandler{Base: NewBase(db, renderer, sm)}
}

// CategoryPage renders the listing for a published category. Hidden and
// missing categories both 404. The route sits behind Auth.
func (h *TaxonomyHandler) CategoryPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	category, page, err := h.blog.ListCategoryPosts(r.Context(), slug, time.Now(), pageParam(r))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.notFound(w)
			return
		}
		h.serverError(w, "listing category posts", err)
		return
	}

	h.render(w, r, "blog/category", render.TemplateData{
		Title: category.Title,
		Data: map[string]any{
			"Category":   category,
			"Page":       page,
			"Pagination": buildPagination(page),
		},
	})
}

// ---- Admin: categories ----

type categoryForm struct {
	Title       string
	Slug        string
	Description string
	IsPublished bool
}

// AdminCategories lists all categories for admins.
func (h *TaxonomyHandler) AdminCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queries.ListCategories(r.Context())
	if err != nil {
		h.serverError(w, "listing categories", err)
		return
	}

	h.render(w, r, "admin/categories", render.TemplateData{
		Title: "Categories",
		Data:  map[string]any{"Categories": categories},
	})
}

// AdminCategoryNewForm renders the empty category form.
func (h *TaxonomyHandler) AdminCategoryNewForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "admin/category_form", render.TemplateData{
		Title: "New category",
		Data:  map[string]any{"Form": categoryForm{IsPublished: true}},
	})
}

// validateCategoryForm checks the form, generating the slug from the title
// when it is left empty.
func (h *TaxonomyHandler) validateCategoryForm(r *http.Request, excludeID int64) (categoryForm, map[string]string) {
	form := categoryForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Slug:        strings.TrimSpace(r.FormValue("slug")),
		Description: r.FormValue("description"),
		IsPublished: r.FormValue("is_published") == "1",
	}

	fieldErrors := map[string]string{}
	if form.Title == "" {
		fieldErrors["title"] = "Title is required"
	}

	if form.Slug == "" {
		form.Slug = util.Slugify(form.Title)
	}
	if !util.IsValidSlug(form.Slug) {
		fieldErrors["slug"] = "Slug may only contain lowercase letters, digits and hyphens"
	} else if taken, err := h.queries.CategorySlugExists(r.Context(), form.Slug, excludeID); err == nil && taken {
		fieldErrors["slug"] = "Slug is already in use"
	}

	return form, fieldErrors
}

// AdminCategoryCreate handles the new category submission.
func (h *TaxonomyHandler) AdminCategoryCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, "/admin/categories", "Invalid form data", "error")
		return
	}

	form, fieldErrors := h.validateCategoryForm(r, 0)
	if len(fieldErrors) > 0 {
		h.render(w, r, "admin/category_form", render.TemplateData{
			Title:  "New category",
			Data:   map[string]any{"Form": form},
			Errors: fieldErrors,
		})
		return
	}

	now := time.Now().UTC()
	if _, err := h.queries.CreateCategory(r.Context(), store.CreateCategoryParams{
		Title:       form.Title,
		Description: form.Description,
		Slug:        form.Slug,
		IsPublished: form.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		h.serverError(w, "creating category", err)
		return
	}

	h.flashAndRedirect(w, r, "/admin/categories", "Category created", "success")
}

// AdminCategoryEditForm renders the category edit form.
func (h *TaxonomyHandler) AdminCategoryEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "categoryID")
	if !ok {
		h.notFound(w)
		return
	}

	category, err := h.queries.GetCategoryByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w)
			return
		}
		h.serverError(w, "getting category", err)
		return
	}

	h.render(w, r, "admin/category_form", render.TemplateData{
		Title: "Edit category",
		Data: map[string]any{
			"Category": category,
			"Form": categoryForm{
				Title:       category.Title,
				Slug:        category.Slug,
				Description: category.Description,
				IsPublished: category.IsPublished,
			},
		},
	})
}

// AdminCategoryUpdate handles the category edit submission.
func (h *TaxonomyHandler) AdminCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "categoryID")
	if !ok {
		h.notFound(w)
		return
	}

	category, err := h.queries.GetCategoryByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w)
			return
		}
		h.serverError(w, "getting category", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, "/admin/categories", "Invalid form data", "error")
		return
	}

	form, fieldErrors := h.validateCategoryForm(r, id)
	if len(fieldErrors) > 0 {
		h.render(w, r, "admin/category_form", render.TemplateData{
			Title:  "Edit category",
			Data:   map[string]any{"Category": category, "Form": form},
			Errors: fieldErrors,
		})
		return
	}

	if err := h.queries.UpdateCategory(r.Context(), store.UpdateCategoryParams{
		Title:       form.Title,
		Description: form.Description,
		Slug:        form.Slug,
		IsPublished: form.IsPublished,
		UpdatedAt:   time.Now().UTC(),
		ID:          id,
	}); err != nil {
		h.serverError(w, "updating category", err)
		return
	}

	h.flashAndRedirect(w, r, "/admin/categories", "Category updated", "success")
}

// AdminCategoryDelete removes a category. Posts keep existing with the
// reference cleared, which drops them from the public set.
func (h *TaxonomyHandler) AdminCategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "categoryID")
	if !ok {
		h.notFound(w)
		return
	}

	if err := h.queries.DeleteCategory(r.Context(), id); err != nil {
		h.serverError(w, "deleting category", err)
		return
	}

	h.flashAndRedirect(w, r, "/admin/categories", "Category deleted", "success")
}

// ---- Admin: locations ----

type locationForm struct {
	Name        string
	IsPublished bool
}

// AdminLocations lists all locations for admins.
func (h *TaxonomyHandler) AdminLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.queries.ListLocations(r.Context())
	if err != nil {
		h.serverError(w, "listing locations", err)
		return
	}

	h.render(w, r, "admin/locations", render.TemplateData{
		Title: "Locations",
		Data:  map[string]any{"Locations": locations},
	})
}

// AdminLocationNewForm renders the empty location form.
func (h *TaxonomyHandler) AdminLocationNewForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "admin/location_form", render.TemplateData{
		Title: "New location",
		Data:  map[string]any{"Form": locationForm{IsPublished: true}},
	})
}

// AdminLocationCreate handles the new location submission.
func (h *TaxonomyHandler) AdminLocationCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, "/admin/locations", "Invalid form data", "error")
		return
	}

	form := locationForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		IsPublished: r.FormValue("is_published") == "1",
	}
	if form.Name == "" {
		h.render(w, r, "admin/location_form", render.TemplateData{
			Title:  "New location",
			Data:   map[string]any{"Form": form},
			Errors: map[string]string{"name": "Name is required"},
		})
		return
	}

	now := time.Now().UTC()
	if _, err := h.queries.CreateLocation(r.Context(), store.CreateLocationParams{
		Name:        form.Name,
		IsPublished: form.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		h.serverError(w, "creating location", err)
		return
	}

	h.flashAndRedirect(w, r, "/admin/locations", "Location created", "success")
}

// AdminLocationEditForm renders the location edit form.
func (h *TaxonomyHandler) AdminLocationEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "locationID")
	if !ok {
		h.notFound(w)
		return
	}

	location, err := h.queries.GetLocationByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w)
			return
		}
		h.serverError(w, "getting location", err)
		return
	}

	h.render(w, r, "admin/location_form", render.TemplateData{
		Title: "Edit location",
		Data: map[string]any{
			"Location": location,
			"Form":     locationForm{Name: location.Name, IsPublished: location.IsPublished},
		},
	})
}

// AdminLocationUpdate handles the location edit submission.
func (h *TaxonomyHandler) AdminLocationUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "locationID")
	if !ok {
		h.notFound(w)
		return
	}

	location, err := h.queries.GetLocationByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w)
			return
		}
		h.serverError(w, "getting location", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, "/admin/locations", "Invalid form data", "error")
		return
	}

	form := locationForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		IsPublished: r.FormValue("is_published") == "1",
	}
	if form.Name == "" {
		h.render(w, r, "admin/location_form", render.TemplateData{
			Title:  "Edit location",
			Data:   map[string]any{"Location": location, "Form": form},
			Errors: map[string]string{"name": "Name is required"},
		})
		return
	}

	if err := h.queries.UpdateLocation(r.Context(), store.UpdateLocationParams{
		Name:        form.Name,
		IsPublished: form.IsPublished,
		UpdatedAt:   time.Now().UTC(),
		ID:          id,
	}); err != nil {
		h.serverError(w, "updating location", err)
		return
	}

	h.flashAndRedirect(w, r, "/admin/locations", "Location updated", "success")
}

// AdminLocationDelete removes a location, clearing the reference on its
// posts.
func (h *TaxonomyHandler) AdminLocationDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "locationID")
	if !ok {
		h.notFound(w)
		return
	}

	if err := h.queries.DeleteLocation(r.Context(), id); err != nil {
		h.serverError(w, "deleting location", err)
		return
	}

	h.flashAndRedirect(w, r, "/admin/locations", "Location deleted", "success")
}
