package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"blogd/internal/store"
	"blogd/internal/testutil"
)

func commentRoutesSetup(t *testing.T) (*store.Queries, store.User, store.User, store.Post, store.Comment, *CommentHandler) {
	t.Helper()

	db, sm := testHandlerSetup(t)
	q := store.New(db)

	alice := testutil.CreateUser(t, q, "alice")
	bob := testutil.CreateUser(t, q, "bob")
	post := testutil.CreatePost(t, q, alice.ID, "Alice post")
	comment := testutil.CreateComment(t, q, post.ID, alice.ID, "original text")

	h := NewCommentHandler(db, testRenderer(t, sm), sm)
	return q, alice, bob, post, comment, h
}

func commentRouter(t *testing.T, h *CommentHandler, userID int64) http.Handler {
	t.Helper()

	r := authedRouter(h.sessionManager, h.queries, userID)
	r.Get("/posts/{postID}/comments/{commentID}/edit", h.EditForm)
	r.Post("/posts/{postID}/comments/{commentID}/edit", h.Update)
	r.Post("/posts/{postID}/comments/{commentID}/delete", h.Delete)
	return r
}

func TestCommentEditFormNonOwnerRedirects(t *testing.T) {
	_, _, bob, post, comment, h := commentRoutesSetup(t)

	r := commentRouter(t, h, bob.ID)
	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/posts/%d/comments/%d/edit", post.ID, comment.ID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assertRedirect(t, w, fmt.Sprintf("/posts/%d", post.ID))
}

func TestUpdateCommentNonOwnerRedirectsAndKeepsBody(t *testing.T) {
	q, _, bob, post, comment, h := commentRoutesSetup(t)

	r := commentRouter(t, h, bob.ID)
	form := url.Values{"body": {"tampered"}}
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/posts/%d/comments/%d/edit", post.ID, comment.ID),
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assertRedirect(t, w, fmt.Sprintf("/posts/%d", post.ID))

	got, err := q.GetCommentByID(context.Background(), comment.ID)
	if err != nil {
		t.Fatalf("GetCommentByID failed: %v", err)
	}
	if got.Body != "original text" {
		t.Errorf("body = %q, want unchanged %q", got.Body, "original text")
	}
}

func TestDeleteCommentNonOwnerKeepsComment(t *testing.T) {
	q, _, bob, post, comment, h := commentRoutesSetup(t)

	r := commentRouter(t, h, bob.ID)
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/posts/%d/comments/%d/delete", post.ID, comment.ID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assertRedirect(t, w, fmt.Sprintf("/posts/%d", post.ID))

	if _, err := q.GetCommentByID(context.Background(), comment.ID); err != nil {
		t.Errorf("comment deleted by non-owner: %v", err)
	}
}

func TestUpdateCommentOwnerSucceeds(t *testing.T) {
	q, alice, _, post, comment, h := commentRoutesSetup(t)

	r := commentRouter(t, h, alice.ID)
	form := url.Values{"body": {"edited text"}}
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/posts/%d/comments/%d/edit", post.ID, comment.ID),
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assertRedirect(t, w, fmt.Sprintf("/posts/%d#comment-%d", post.ID, comment.ID))

	got, err := q.GetCommentByID(context.Background(), comment.ID)
	if err != nil {
		t.Fatalf("GetCommentByID failed: %v", err)
	}
	if got.Body != "edited text" {
		t.Errorf("body = %q, want %q", got.Body, "edited text")
	}
}
