package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogd/internal/store"
	"blogd/internal/testutil"
)

type blogFixture struct {
	db      *sql.DB
	queries *store.Queries
	svc     *BlogService

	alice store.User
	bob   store.User

	travel store.Category
	hidden store.Category
}

func newBlogFixture(t *testing.T) *blogFixture {
	t.Helper()

	db := testutil.TestDB(t)
	q := store.New(db)

	return &blogFixture{
		db:      db,
		queries: q,
		svc:     NewBlogService(db),
		alice:   testutil.CreateUser(t, q, "alice"),
		bob:     testutil.CreateUser(t, q, "bob"),
		travel:  testutil.CreateCategory(t, q, "Travel", "travel", true),
		hidden:  testutil.CreateCategory(t, q, "Secret", "secret", false),
	}
}

func TestListPublicPostsFiltering(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	visible := testutil.CreatePost(t, f.queries, f.alice.ID, "Visible", testutil.InCategory(f.travel.ID))
	testutil.CreatePost(t, f.queries, f.alice.ID, "Draft", testutil.InCategory(f.travel.ID), testutil.Unpublished())
	testutil.CreatePost(t, f.queries, f.alice.ID, "Scheduled", testutil.InCategory(f.travel.ID), testutil.WithPubDate(now.Add(time.Hour)))
	testutil.CreatePost(t, f.queries, f.alice.ID, "Hidden category", testutil.InCategory(f.hidden.ID))
	testutil.CreatePost(t, f.queries, f.alice.ID, "No category")

	page, err := f.svc.ListPublicPosts(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, visible.ID, page.Posts[0].ID)
	assert.Equal(t, int64(1), page.Total)
}

func TestListPublicPostsFutureBecomesVisible(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	scheduled := testutil.CreatePost(t, f.queries, f.alice.ID, "Scheduled",
		testutil.InCategory(f.travel.ID), testutil.WithPubDate(now.Add(time.Hour)))

	page, err := f.svc.ListPublicPosts(ctx, now, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)

	// Two hours later the same post is public, with no writes in between.
	page, err = f.svc.ListPublicPosts(ctx, now.Add(2*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, scheduled.ID, page.Posts[0].ID)
}

func TestListPublicPostsOrderingAndPagination(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 25; i++ {
		testutil.CreatePost(t, f.queries, f.alice.ID, fmt.Sprintf("Post %02d", i),
			testutil.InCategory(f.travel.ID),
			testutil.WithPubDate(now.Add(-time.Duration(25-i)*time.Minute)))
	}

	page, err := f.svc.ListPublicPosts(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, PostsPerPage)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages())
	// Newest first.
	assert.Equal(t, "Post 24", page.Posts[0].Title)
	assert.Equal(t, "Post 15", page.Posts[9].Title)

	page2, err := f.svc.ListPublicPosts(ctx, now, 2)
	require.NoError(t, err)
	require.Len(t, page2.Posts, PostsPerPage)
	assert.Equal(t, "Post 14", page2.Posts[0].Title)

	page3, err := f.svc.ListPublicPosts(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, page3.Posts, 5)

	// Out-of-range pages are empty, not an error.
	page4, err := f.svc.ListPublicPosts(ctx, now, 4)
	require.NoError(t, err)
	assert.Empty(t, page4.Posts)

	// Page 0 normalizes to page 1.
	page0, err := f.svc.ListPublicPosts(ctx, now, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page0.Page)
	assert.Equal(t, "Post 24", page0.Posts[0].Title)
}

func TestListPublicPostsCommentCount(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	post := testutil.CreatePost(t, f.queries, f.alice.ID, "Commented", testutil.InCategory(f.travel.ID))
	testutil.CreateComment(t, f.queries, post.ID, f.bob.ID, "first")
	testutil.CreateComment(t, f.queries, post.ID, f.alice.ID, "second")

	page, err := f.svc.ListPublicPosts(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, int64(2), page.Posts[0].CommentCount)
}

func TestGetPostOwnerOverride(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	draft := testutil.CreatePost(t, f.queries, f.alice.ID, "Draft",
		testutil.InCategory(f.travel.ID), testutil.Unpublished())

	// The author sees their own draft.
	got, _, err := f.svc.GetPost(ctx, draft.ID, f.alice.ID, now)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	// Everyone else gets not-found, indistinguishable from absence.
	_, _, err = f.svc.GetPost(ctx, draft.ID, f.bob.ID, now)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = f.svc.GetPost(ctx, draft.ID, 0, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPostHiddenCategory(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	post := testutil.CreatePost(t, f.queries, f.alice.ID, "In hidden", testutil.InCategory(f.hidden.ID))

	_, _, err := f.svc.GetPost(ctx, post.ID, f.bob.ID, now)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.svc.GetPost(ctx, post.ID, f.alice.ID, now)
	assert.NoError(t, err)
}

func TestGetPostMissing(t *testing.T) {
	f := newBlogFixture(t)

	_, _, err := f.svc.GetPost(context.Background(), 9999, f.alice.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPostCommentsOldestFirst(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	post := testutil.CreatePost(t, f.queries, f.alice.ID, "Discussed", testutil.InCategory(f.travel.ID))

	for i := 0; i < 3; i++ {
		_, err := f.queries.CreateComment(ctx, store.CreateCommentParams{
			PostID:    post.ID,
			AuthorID:  f.bob.ID,
			Body:      fmt.Sprintf("comment %d", i),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	_, comments, err := f.svc.GetPost(ctx, post.ID, 0, now)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "comment 0", comments[0].Body)
	assert.Equal(t, "comment 2", comments[2].Body)
	assert.Equal(t, "bob", comments[0].AuthorUsername)
}

func TestListProfilePostsOwnerSeesEverything(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	testutil.CreatePost(t, f.queries, f.alice.ID, "Public", testutil.InCategory(f.travel.ID))
	testutil.CreatePost(t, f.queries, f.alice.ID, "Draft", testutil.InCategory(f.travel.ID), testutil.Unpublished())
	testutil.CreatePost(t, f.queries, f.alice.ID, "Scheduled", testutil.InCategory(f.travel.ID), testutil.WithPubDate(now.Add(time.Hour)))
	testutil.CreatePost(t, f.queries, f.alice.ID, "Hidden cat", testutil.InCategory(f.hidden.ID))

	owner, page, err := f.svc.ListProfilePosts(ctx, "alice", f.alice.ID, now, 1)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, owner.ID)
	assert.Len(t, page.Posts, 4)
	assert.Equal(t, int64(4), page.Total)

	// A different viewer only sees the publicly visible post.
	_, page, err = f.svc.ListProfilePosts(ctx, "alice", f.bob.ID, now, 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Public", page.Posts[0].Title)

	// So does an anonymous viewer.
	_, page, err = f.svc.ListProfilePosts(ctx, "alice", 0, now, 1)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)
}

func TestListProfilePostsUnknownUser(t *testing.T) {
	f := newBlogFixture(t)

	_, _, err := f.svc.ListProfilePosts(context.Background(), "nobody", 0, time.Now(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCategoryPosts(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	visible := testutil.CreatePost(t, f.queries, f.alice.ID, "In travel", testutil.InCategory(f.travel.ID))
	testutil.CreatePost(t, f.queries, f.alice.ID, "Travel draft", testutil.InCategory(f.travel.ID), testutil.Unpublished())
	testutil.CreatePost(t, f.queries, f.alice.ID, "Travel future", testutil.InCategory(f.travel.ID), testutil.WithPubDate(now.Add(time.Hour)))
	testutil.CreatePost(t, f.queries, f.alice.ID, "Elsewhere")

	category, page, err := f.svc.ListCategoryPosts(ctx, "travel", now, 1)
	require.NoError(t, err)
	assert.Equal(t, "Travel", category.Title)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, visible.ID, page.Posts[0].ID)
	assert.Equal(t, int64(1), page.Total)
}

func TestListCategoryPostsHiddenOrMissing(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now()

	_, _, err := f.svc.ListCategoryPosts(ctx, "secret", now, 1)
	assert.ErrorIs(t, err, ErrNotFound, "hidden category must look absent")

	_, _, err = f.svc.ListCategoryPosts(ctx, "no-such", now, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePostAuthorization(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()

	post := testutil.CreatePost(t, f.queries, f.alice.ID, "Original", testutil.InCategory(f.travel.ID))

	in := PostInput{
		Title:       "Edited",
		Body:        "New body",
		PubDate:     post.PubDate,
		CategoryID:  post.CategoryID,
		IsPublished: true,
	}

	err := f.svc.UpdatePost(ctx, post.ID, f.bob.ID, in)
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, f.svc.UpdatePost(ctx, post.ID, f.alice.ID, in))

	got, err := f.queries.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Title)
	assert.Equal(t, f.alice.ID, got.AuthorID, "author never changes")

	err = f.svc.UpdatePost(ctx, 9999, f.alice.ID, in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePostCascadesComments(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()

	post := testutil.CreatePost(t, f.queries, f.alice.ID, "Doomed", testutil.InCategory(f.travel.ID))
	testutil.CreateComment(t, f.queries, post.ID, f.bob.ID, "gone soon")

	err := f.svc.DeletePost(ctx, post.ID, f.bob.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, f.svc.DeletePost(ctx, post.ID, f.alice.ID))

	_, err = f.queries.GetPostByID(ctx, post.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	n, err := f.queries.CountCommentsForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddCommentVisibilityGate(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	draft := testutil.CreatePost(t, f.queries, f.alice.ID, "Draft",
		testutil.InCategory(f.travel.ID), testutil.Unpublished())

	// Another user cannot comment on a post they cannot see.
	_, err := f.svc.AddComment(ctx, draft.ID, f.bob.ID, "sneaky", now)
	assert.ErrorIs(t, err, ErrNotFound)

	// The author can comment on their own draft.
	comment, err := f.svc.AddComment(ctx, draft.ID, f.alice.ID, "note to self", now)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, comment.PostID)

	_, err = f.svc.AddComment(ctx, 9999, f.bob.ID, "void", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCommentAuthorization(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()

	post := testutil.CreatePost(t, f.queries, f.alice.ID, "Post", testutil.InCategory(f.travel.ID))
	other := testutil.CreatePost(t, f.queries, f.alice.ID, "Other", testutil.InCategory(f.travel.ID))
	comment := testutil.CreateComment(t, f.queries, post.ID, f.bob.ID, "hello")

	err := f.svc.UpdateComment(ctx, comment.ID, post.ID, f.alice.ID, "hijack")
	assert.ErrorIs(t, err, ErrNotOwner)

	// A comment addressed under the wrong post is not found.
	err = f.svc.UpdateComment(ctx, comment.ID, other.ID, f.bob.ID, "misfiled")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.UpdateComment(ctx, comment.ID, post.ID, f.bob.ID, "edited"))

	got, err := f.queries.GetCommentByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Body)
	assert.True(t, got.CreatedAt.Equal(comment.CreatedAt), "creation time is immutable")
}

func TestDeleteCommentAuthorization(t *testing.T) {
	f := newBlogFixture(t)
	ctx := context.Background()

	post := testutil.CreatePost(t, f.queries, f.alice.ID, "Post", testutil.InCategory(f.travel.ID))
	comment := testutil.CreateComment(t, f.queries, post.ID, f.bob.ID, "ephemeral")

	err := f.svc.DeleteComment(ctx, comment.ID, post.ID, f.alice.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, f.svc.DeleteComment(ctx, comment.ID, post.ID, f.bob.ID))

	_, err = f.queries.GetCommentByID(ctx, comment.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestVisibleTo(t *testing.T) {
	now := time.Now().UTC()
	base := store.PostListRow{
		Post: store.Post{
			AuthorID:    1,
			PubDate:     now.Add(-time.Hour),
			IsPublished: true,
		},
		CategoryIsPublished: sql.NullBool{Bool: true, Valid: true},
	}

	tests := []struct {
		name     string
		mutate   func(*store.PostListRow)
		viewerID int64
		want     bool
	}{
		{"public post, anonymous", func(p *store.PostListRow) {}, 0, true},
		{"draft, anonymous", func(p *store.PostListRow) { p.IsPublished = false }, 0, false},
		{"draft, author", func(p *store.PostListRow) { p.IsPublished = false }, 1, true},
		{"future, other user", func(p *store.PostListRow) { p.PubDate = now.Add(time.Hour) }, 2, false},
		{"future, author", func(p *store.PostListRow) { p.PubDate = now.Add(time.Hour) }, 1, true},
		{"hidden category", func(p *store.PostListRow) { p.CategoryIsPublished.Bool = false }, 0, false},
		{"no category", func(p *store.PostListRow) { p.CategoryIsPublished = sql.NullBool{} }, 0, false},
		{"no category, author", func(p *store.PostListRow) { p.CategoryIsPublished = sql.NullBool{} }, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			assert.Equal(t, tt.want, VisibleTo(p, tt.viewerID, now))
		})
	}
}
