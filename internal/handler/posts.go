package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexedwards/scs/v2"

	"blogd/internal/imaging"
	"blogd/internal/middleware"
	"blogd/internal/model"
	"blogd/internal/render"
	"blogd/internal/service"
	"blogd/internal/store"
	"blogd/internal/util"
)

// PostHandler handles the post listing, detail and authoring routes.
type PostHandler struct {
	*Base
	processor *imaging.Processor
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, processor *imaging.Processor) *PostHandler {
	return &PostHandler{
		Base:      NewBase(db, renderer, sm),
		processor: processor,
	}
}

// Index renders the home page: the public post set, newest first.
func (h *PostHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.blog.ListPublicPosts(r.Context(), time.Now(), pageParam(r))
	if err != nil {
		h.serverError(w, "listing posts", err)
		return
	}

	h.render(w, r, "blog/index", render.TemplateData{
		Data: map[string]any{
			"Page":       page,
			"Pagination": buildPagination(page),
		},
	})
}

// Detail renders a single post with its comments. Authors see their own
// hidden posts; everyone else gets 404 for anything outside the public set.
func (h *PostHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		h.notFound(w)
		return
	}

	viewerID := middleware.GetUserID(r.Context())
	post, comments, err := h.blog.GetPost(r.Context(), id, viewerID, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.notFound(w)
			return
		}
		h.serverError(w, "getting post", err)
		return
	}

	h.render(w, r, "blog/detail", render.TemplateData{
		Title: post.Title,
		Data: map[string]any{
			"Post":     post,
			"Comments": comments,
			"IsOwner":  viewerID != 0 && viewerID == post.AuthorID,
		},
	})
}

// postForm carries the post form values back into the template.
type postForm struct {
	Title       string
	Body        string
	PubDate     string
	CategoryID  string
	LocationID  string
	IsPublished bool
}

func postFormFromRequest(r *http.Request) postForm {
	return postForm{
		Title:       r.FormValue("title"),
		Body:        r.FormValue("body"),
		PubDate:     r.FormValue("pub_date"),
		CategoryID:  r.FormValue("category_id"),
		LocationID:  r.FormValue("location_id"),
		IsPublished: r.FormValue("is_published") == "1",
	}
}

func postFormFromPost(p store.Post) postForm {
	form := postForm{
		Title:       p.Title,
		Body:        p.Body,
		PubDate:     p.PubDate.Format(pubDateLayout),
		IsPublished: p.IsPublished,
	}
	if p.CategoryID.Valid {
		form.CategoryID = strconv.FormatInt(p.CategoryID.Int64, 10)
	}
	if p.LocationID.Valid {
		form.LocationID = strconv.FormatInt(p.LocationID.Int64, 10)
	}
	return form
}

// validate checks the form and converts it to a service input.
func (f postForm) validate() (service.PostInput, map[string]string) {
	fieldErrors := map[string]string{}

	if msg := validatePostTitle(f.Title); msg != "" {
		fieldErrors["title"] = msg
	}
	if f.Body == "" {
		fieldErrors["body"] = "Body is required"
	}
	pubDate, msg := parsePubDate(f.PubDate)
	if msg != "" {
		fieldErrors["pub_date"] = msg
	}

	in := service.PostInput{
		Title:       f.Title,
		Body:        f.Body,
		PubDate:     pubDate,
		CategoryID:  util.ParseNullInt64(f.CategoryID),
		LocationID:  util.ParseNullInt64(f.LocationID),
		IsPublished: f.IsPublished,
	}

	return in, fieldErrors
}

// renderForm renders the post form with taxonomy options.
func (h *PostHandler) renderForm(w http.ResponseWriter, r *http.Request, title string, post any, form postForm, fieldErrors map[string]string) {
	categories, err := h.queries.ListPublishedCategories(r.Context())
	if err != nil {
		h.serverError(w, "listing categories", err)
		return
	}
	locations, err := h.queries.ListPublishedLocations(r.Context())
	if err != nil {
		h.serverError(w, "listing locations", err)
		return
	}

	h.render(w, r, "blog/post_form", render.TemplateData{
		Title: title,
		Data: map[string]any{
			"Post":       post,
			"Form":       form,
			"Categories": categories,
			"Locations":  locations,
		},
		Errors: fieldErrors,
	})
}

// NewForm renders the empty post form.
func (h *PostHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	form := postForm{
		PubDate:     time.Now().UTC().Format(pubDateLayout),
		IsPublished: true,
	}
	h.renderForm(w, r, "New post", nil, form, nil)
}

// Create handles the new post form submission.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	_, in, imagePath, ok := h.parsePostForm(w, r, "New post", nil)
	if !ok {
		return
	}
	in.ImagePath = imagePath

	post, err := h.blog.CreatePost(r.Context(), user.ID, in)
	if err != nil {
		h.serverError(w, "creating post", err)
		return
	}

	_ = h.events.LogContentEvent(r.Context(), model.EventLevelInfo, model.EventCategoryPost,
		"Post created", &user.ID, map[string]any{"post_id": post.ID, "title": post.Title})

	h.flashAndRedirect(w, r, fmt.Sprintf("/posts/%d", post.ID), "Post created", "success")
}

// EditForm renders the edit form. Non-owners are bounced to the post's
// detail view instead of an error page.
func (h *PostHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		h.notFound(w)
		return
	}

	post, err := h.queries.GetPostByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w)
			return
		}
		h.serverError(w, "getting post", err)
		return
	}

	if post.AuthorID != middleware.GetUserID(r.Context()) {
		http.Redirect(w, r, fmt.Sprintf("/posts/%d", post.ID), http.StatusSeeOther)
		return
	}

	h.renderForm(w, r, "Edit post", post, postFormFromPost(post), nil)
}

// Update handles the edit form submission.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		h.notFound(w)
		return
	}
	user := middleware.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	current, err := h.queries.GetPostByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w)
			return
		}
		h.serverError(w, "getting post", err)
		return
	}

	// Check ownership before parsing the form so a denied submission never
	// stores an uploaded image.
	if current.AuthorID != user.ID {
		http.Redirect(w, r, fmt.Sprintf("/posts/%d", id), http.StatusSeeOther)
		return
	}

	_, in, imagePath, ok := h.parsePostForm(w, r, "Edit post", current)
	if !ok {
		return
	}
	if imagePath.Valid {
		in.ImagePath = imagePath
	} else {
		in.ImagePath = current.ImagePath
	}

	if err := h.blog.UpdatePost(r.Context(), id, user.ID, in); err != nil {
		switch {
		case errors.Is(err, service.ErrNotOwner):
			http.Redirect(w, r, fmt.Sprintf("/posts/%d", id), http.StatusSeeOther)
		case errors.Is(err, service.ErrNotFound):
			h.notFound(w)
		default:
			h.serverError(w, "updating post", err)
		}
		return
	}

	// Replacing the image orphans the old files; clean them up.
	if imagePath.Valid && current.ImagePath.Valid && h.processor != nil {
		if err := h.processor.Delete(current.ImagePath.String); err != nil {
			slog.Warn("failed to delete replaced image", "error", err, "post_id", id)
		}
	}

	_ = h.events.LogContentEvent(r.Context(), model.EventLevelInfo, model.EventCategoryPost,
		"Post updated", &user.ID, map[string]any{"post_id": id})

	h.flashAndRedirect(w, r, fmt.Sprintf("/posts/%d", id), "Post updated", "success")
}

// parsePostForm parses and validates the multipart post form, storing an
// uploaded image if present. It renders the form and returns ok=false on
// validation failure.
func (h *PostHandler) parsePostForm(w http.ResponseWriter, r *http.Request, title string, post any) (postForm, service.PostInput, sql.NullString, bool) {
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		h.flashAndRedirect(w, r, "/", "Invalid form data", "error")
		return postForm{}, service.PostInput{}, sql.NullString{}, false
	}

	form := postFormFromRequest(r)
	in, fieldErrors := form.validate()

	var imagePath sql.NullString
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if h.processor == nil {
			fieldErrors["image"] = "Image uploads are disabled"
		} else if result, err := h.processor.Process(file, header.Filename); err != nil {
			fieldErrors["image"] = "Could not process image: " + err.Error()
		} else {
			imagePath = util.NullStringFromValue(result.Path)
		}
	}

	if len(fieldErrors) > 0 {
		h.renderForm(w, r, title, post, form, fieldErrors)
		return form, in, imagePath, false
	}
	return form, in, imagePath, true
}

// ConfirmDelete renders the delete confirmation page.
func (h *PostHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		h.notFound(w)
		return
	}

	post, err := h.queries.GetPostByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w)
			return
		}
		h.serverError(w, "getting post", err)
		return
	}

	if post.AuthorID != middleware.GetUserID(r.Context()) {
		http.Redirect(w, r, fmt.Sprintf("/posts/%d", post.ID), http.StatusSeeOther)
		return
	}

	h.render(w, r, "blog/confirm_delete", render.TemplateData{
		Title: "Delete post",
		Data:  map[string]any{"Post": post},
	})
}

// Delete removes a post and its image files.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		h.notFound(w)
		return
	}
	user := middleware.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	post, err := h.queries.GetPostByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w)
			return
		}
		h.serverError(w, "getting post", err)
		return
	}

	if err := h.blog.DeletePost(r.Context(), id, user.ID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotOwner):
			http.Redirect(w, r, fmt.Sprintf("/posts/%d", id), http.StatusSeeOther)
		case errors.Is(err, service.ErrNotFound):
			h.notFound(w)
		default:
			h.serverError(w, "deleting post", err)
		}
		return
	}

	if post.ImagePath.Valid && h.processor != nil {
		if err := h.processor.Delete(post.ImagePath.String); err != nil {
			slog.Warn("failed to delete post image", "error", err, "post_id", id)
		}
	}

	_ = h.events.LogContentEvent(r.Context(), model.EventLevelInfo, model.EventCategoryPost,
		"Post deleted", &user.ID, map[string]any{"post_id": id, "title": post.Title})

	h.flashAndRedirect(w, r, "/profile/"+user.Username, "Post deleted", "success")
}
