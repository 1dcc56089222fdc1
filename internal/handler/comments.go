package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"blogd/internal/middleware"
	"blogd/internal/model"
	"blogd/internal/render"
	"blogd/internal/service"
)

// CommentHandler handles comment creation, editing and deletion.
type CommentHandler struct {
	*Base
}

// NewCommentHandler creates a CommentHandler.
func NewCommentHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *CommentHandler {
	return &CommentHandler{Base: NewBase(db, renderer, sm)}
}

// Create adds a comment to a post visible to the commenter.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	postID, ok := idParam(r, "postID")
	if !ok {
		h.notFound(w)
		return
	}
	user := middleware.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, fmt.Sprintf("/posts/%d", postID), "Invalid form data", "error")
		return
	}

	body := r.FormValue("body")
	if msg := validateCommentBody(body); msg != "" {
		h.flashAndRedirect(w, r, fmt.Sprintf("/posts/%d", postID), msg, "error")
		return
	}

	comment, err := h.blog.AddComment(r.Context(), postID, user.ID, body, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.notFound(w)
			return
		}
		h.serverError(w, "creating comment", err)
		return
	}

	_ = h.events.LogContentEvent(r.Context(), model.EventLevelInfo, model.EventCategoryComment,
		"Comment created", &user.ID, map[string]any{"post_id": postID, "comment_id": comment.ID})

	http.Redirect(w, r, fmt.Sprintf("/posts/%d#comment-%d", postID, comment.ID), http.StatusSeeOther)
}

// commentParams parses the post and comment IDs from the URL, writing a 404
// when either is malformed.
func (h *CommentHandler) commentParams(w http.ResponseWriter, r *http.Request) (postID, commentID int64, ok bool) {
	postID, ok = idParam(r, "postID")
	if !ok {
		h.notFound(w)
		return 0, 0, false
	}
	commentID, ok = idParam(r, "commentID")
	if !ok {
		h.notFound(w)
		return 0, 0, false
	}
	return postID, commentID, true
}

// EditForm renders the comment edit form.
func (h *CommentHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	h.renderCommentForm(w, r, false)
}

// ConfirmDelete renders the comment delete confirmation.
func (h *CommentHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	h.renderCommentForm(w, r, true)
}

func (h *CommentHandler) renderCommentForm(w http.ResponseWriter, r *http.Request, isDelete bool) {
	postID, commentID, ok := h.commentParams(w, r)
	if !ok {
		return
	}

	comment, err := h.queries.GetCommentByID(r.Context(), commentID)
	if err != nil || comment.PostID != postID {
		h.notFound(w)
		return
	}

	if comment.AuthorID != middleware.GetUserID(r.Context()) {
		http.Redirect(w, r, fmt.Sprintf("/posts/%d", postID), http.StatusSeeOther)
		return
	}

	title := "Edit comment"
	if isDelete {
		title = "Delete comment"
	}
	h.render(w, r, "blog/comment_form", render.TemplateData{
		Title: title,
		Data:  map[string]any{"Comment": comment, "Delete": isDelete},
	})
}

// Update saves an edited comment body.
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	postID, commentID, ok := h.commentParams(w, r)
	if !ok {
		return
	}
	user := middleware.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, fmt.Sprintf("/posts/%d", postID), "Invalid form data", "error")
		return
	}

	body := r.FormValue("body")
	if msg := validateCommentBody(body); msg != "" {
		h.flashAndRedirect(w, r, fmt.Sprintf("/posts/%d/comments/%d/edit", postID, commentID), msg, "error")
		return
	}

	if err := h.blog.UpdateComment(r.Context(), commentID, postID, user.ID, body); err != nil {
		switch {
		case errors.Is(err, service.ErrNotOwner):
			http.Redirect(w, r, fmt.Sprintf("/posts/%d", postID), http.StatusSeeOther)
		case errors.Is(err, service.ErrNotFound):
			h.notFound(w)
		default:
			h.serverError(w, "updating comment", err)
		}
		return
	}

	h.flashAndRedirect(w, r, fmt.Sprintf("/posts/%d#comment-%d", postID, commentID), "Comment updated", "success")
}

// Delete removes a comment.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	postID, commentID, ok := h.commentParams(w, r)
	if !ok {
		return
	}
	user := middleware.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	if err := h.blog.DeleteComment(r.Context(), commentID, postID, user.ID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotOwner):
			http.Redirect(w, r, fmt.Sprintf("/posts/%d", postID), http.StatusSeeOther)
		case errors.Is(err, service.ErrNotFound):
			h.notFound(w)
		default:
			h.serverError(w, "deleting comment", err)
		}
		return
	}

	_ = h.events.LogContentEvent(r.Context(), model.EventLevelInfo, model.EventCategoryComment,
		"Comment deleted", &user.ID, map[string]any{"post_id": postID, "comment_id": commentID})

	h.flashAndRedirect(w, r, fmt.Sprintf("/posts/%d", postID), "Comment deleted", "success")
}
