// Package testutil provides helpers shared by database-backed tests.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"blogd/internal/store"
)

// TestDB creates a temporary SQLite database with all migrations applied.
// The database is removed with the test's temp directory.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	return db
}

// DiscardLogger returns a slog.Logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateUser inserts a user with a fixed password hash and returns it.
func CreateUser(t *testing.T, q *store.Queries, username string) store.User {
	t.Helper()

	now := time.Now().UTC()
	user, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$dGVzdHNhbHQxMjM0NTY$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		Role:         "user",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("creating test user %q: %v", username, err)
	}
	return user
}

// CreateCategory inserts a category and returns it.
func CreateCategory(t *testing.T, q *store.Queries, title, slug string, published bool) store.Category {
	t.Helper()

	now := time.Now().UTC()
	category, err := q.CreateCategory(context.Background(), store.CreateCategoryParams{
		Title:       title,
		Description: "Posts about " + title,
		Slug:        slug,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("creating test category %q: %v", slug, err)
	}
	return category
}

// CreateLocation inserts a location and returns it.
func CreateLocation(t *testing.T, q *store.Queries, name string, published bool) store.Location {
	t.Helper()

	now := time.Now().UTC()
	location, err := q.CreateLocation(context.Background(), store.CreateLocationParams{
		Name:        name,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("creating test location %q: %v", name, err)
	}
	return location
}

// PostOpt mutates the params of CreatePost before insertion.
type PostOpt func(*store.CreatePostParams)

// WithPubDate sets the post's publication date.
func WithPubDate(at time.Time) PostOpt {
	return func(p *store.CreatePostParams) { p.PubDate = at }
}

// Unpublished marks the post as a draft.
func Unpublished() PostOpt {
	return func(p *store.CreatePostParams) { p.IsPublished = false }
}

// InCategory assigns the post to a category.
func InCategory(id int64) PostOpt {
	return func(p *store.CreatePostParams) { p.CategoryID = sql.NullInt64{Int64: id, Valid: true} }
}

// AtLocation assigns the post to a location.
func AtLocation(id int64) PostOpt {
	return func(p *store.CreatePostParams) { p.LocationID = sql.NullInt64{Int64: id, Valid: true} }
}

// CreatePost inserts a published post dated an hour in the past, applies
// the options, and returns it.
func CreatePost(t *testing.T, q *store.Queries, authorID int64, title string, opts ...PostOpt) store.Post {
	t.Helper()

	now := time.Now().UTC()
	params := store.CreatePostParams{
		Title:       title,
		Body:        "Body of " + title,
		PubDate:     now.Add(-time.Hour),
		AuthorID:    authorID,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(&params)
	}

	post, err := q.CreatePost(context.Background(), params)
	if err != nil {
		t.Fatalf("creating test post %q: %v", title, err)
	}
	return post
}

// CreateComment inserts a comment and returns it.
func CreateComment(t *testing.T, q *store.Queries, postID, authorID int64, body string) store.Comment {
	t.Helper()

	comment, err := q.CreateComment(context.Background(), store.CreateCommentParams{
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating test comment: %v", err)
	}
	return comment
}
