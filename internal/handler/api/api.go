// Package api implements the read-only JSON API. It exposes only the
// public post set; the anonymous visibility rules apply to every endpoint.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"blogd/internal/service"
	"blogd/internal/store"
)

// Handler serves the /api/v1 routes.
type Handler struct {
	blog    *service.BlogService
	queries *store.Queries
	version string
}

// New creates an API handler.
func New(db *sql.DB, version string) *Handler {
	return &Handler{
		blog:    service.NewBlogService(db),
		queries: store.New(db),
		version: version,
	}
}

// Routes mounts the API endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.Status)
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{postID}", h.GetPost)
	r.Get("/categories", h.ListCategories)
	return r
}

// postJSON is the wire representation of a post.
type postJSON struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body,omitempty"`
	PubDate      time.Time `json:"pub_date"`
	Author       string    `json:"author"`
	Category     *string   `json:"category,omitempty"`
	Location     *string   `json:"location,omitempty"`
	CommentCount int64     `json:"comment_count"`
}

func toPostJSON(p store.PostListRow, includeBody bool) postJSON {
	out := postJSON{
		ID:           p.ID,
		Title:        p.Title,
		PubDate:      p.PubDate,
		Author:       p.AuthorUsername,
		CommentCount: p.CommentCount,
	}
	if includeBody {
		out.Body = p.Body
	}
	if p.CategorySlug.Valid {
		out.Category = &p.CategorySlug.String
	}
	if p.LocationName.Valid {
		out.Location = &p.LocationName.String
	}
	return out
}

// commentJSON is the wire representation of a comment.
type commentJSON struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Status reports service health and version.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ListPosts returns one page of the public post set.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := h.blog.ListPublicPosts(r.Context(), time.Now(), page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		slog.Error("api: listing posts", "error", err)
		return
	}

	posts := make([]postJSON, 0, len(result.Posts))
	for _, p := range result.Posts {
		posts = append(posts, toPostJSON(p, false))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts":       posts,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total":       result.Total,
		"total_pages": result.TotalPages(),
	})
}

// GetPost returns a publicly visible post with its comments. The API is
// anonymous, so there is no owner override here.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	post, comments, err := h.blog.GetPost(r.Context(), id, 0, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		slog.Error("api: getting post", "error", err, "post_id", id)
		return
	}

	commentsOut := make([]commentJSON, 0, len(comments))
	for _, c := range comments {
		commentsOut = append(commentsOut, commentJSON{
			ID:        c.ID,
			Author:    c.AuthorUsername,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"post":     toPostJSON(post, true),
		"comments": commentsOut,
	})
}

// ListCategories returns the published categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queries.ListPublishedCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		slog.Error("api: listing categories", "error", err)
		return
	}

	type categoryJSON struct {
		Title       string `json:"title"`
		Slug        string `json:"slug"`
		Description string `json:"description,omitempty"`
	}

	out := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryJSON{Title: c.Title, Slug: c.Slug, Description: c.Description})
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func writeJSON(w http.ResponseWriter, statusCode int, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
