package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blogd/internal/store"
)

// PostsPerPage is the page size for every post listing.
const PostsPerPage = 10

// Core error kinds. ErrNotFound covers both absent entities and entities
// filtered out by a visibility rule, so callers cannot distinguish the two.
// ErrNotOwner signals a denied mutation; the presentation layer decides how
// to surface it (the HTML handlers redirect to the entity's detail view).
var (
	ErrNotFound = errors.New("not found")
	ErrNotOwner = errors.New("not owner")
)

// BlogService implements the visibility and authorization rules for posts
// and comments. All time comparisons use the instant passed by the caller,
// taken per request.
type BlogService struct {
	queries *store.Queries
}

// NewBlogService creates a BlogService.
func NewBlogService(db *sql.DB) *BlogService {
	return &BlogService{queries: store.New(db)}
}

// PubliclyVisible reports whether a post satisfies the public-post-set rule:
// published, not future-dated, and in a published category. A post without a
// category is never publicly visible.
func PubliclyVisible(p store.PostListRow, now time.Time) bool {
	return p.IsPublished &&
		!p.PubDate.After(now) &&
		p.CategoryIsPublished.Valid && p.CategoryIsPublished.Bool
}

// VisibleTo reports whether a post is visible to the given viewer. The
// author always sees their own posts; everyone else gets the
// public-post-set rule. A zero viewerID means anonymous.
func VisibleTo(p store.PostListRow, viewerID int64, now time.Time) bool {
	if viewerID != 0 && viewerID == p.AuthorID {
		return true
	}
	return PubliclyVisible(p, now)
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts   []store.PostListRow
	Total   int64
	Page    int
	PerPage int
}

// TotalPages returns the number of pages in the listing, at least 1.
func (p PostPage) TotalPages() int {
	pages := int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if pages < 1 {
		pages = 1
	}
	return pages
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ListPublicPosts returns one page of the public post set, newest first,
// each row carrying its live comment count.
func (s *BlogService) ListPublicPosts(ctx context.Context, now time.Time, page int) (PostPage, error) {
	page = normalizePage(page)
	now = now.UTC()

	posts, err := s.queries.ListVisiblePosts(ctx, store.ListVisiblePostsParams{
		Now:    now,
		Limit:  PostsPerPage,
		Offset: int64((page - 1) * PostsPerPage),
	})
	if err != nil {
		return PostPage{}, fmt.Errorf("listing visible posts: %w", err)
	}

	total, err := s.queries.CountVisiblePosts(ctx, now)
	if err != nil {
		return PostPage{}, fmt.Errorf("counting visible posts: %w", err)
	}

	return PostPage{Posts: posts, Total: total, Page: page, PerPage: PostsPerPage}, nil
}

// ListProfilePosts returns one page of a user's posts. The profile owner
// sees all of their posts, including unpublished and future-dated ones;
// any other viewer sees only the owner's publicly visible posts.
func (s *BlogService) ListProfilePosts(ctx context.Context, username string, viewerID int64, now time.Time, page int) (store.User, PostPage, error) {
	owner, err := s.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, PostPage{}, ErrNotFound
		}
		return store.User{}, PostPage{}, fmt.Errorf("getting profile user: %w", err)
	}

	page = normalizePage(page)
	now = now.UTC()
	arg := store.ListPostsByAuthorParams{
		AuthorID: owner.ID,
		Now:      now,
		Limit:    PostsPerPage,
		Offset:   int64((page - 1) * PostsPerPage),
	}

	var (
		posts []store.PostListRow
		total int64
	)
	if viewerID == owner.ID {
		posts, err = s.queries.ListPostsByAuthor(ctx, arg)
		if err == nil {
			total, err = s.queries.CountPostsByAuthor(ctx, owner.ID)
		}
	} else {
		posts, err = s.queries.ListVisiblePostsByAuthor(ctx, arg)
		if err == nil {
			total, err = s.queries.CountVisiblePostsByAuthor(ctx, owner.ID, now)
		}
	}
	if err != nil {
		return store.User{}, PostPage{}, fmt.Errorf("listing profile posts: %w", err)
	}

	return owner, PostPage{Posts: posts, Total: total, Page: page, PerPage: PostsPerPage}, nil
}

// GetPost returns a post with its comments (oldest first). The author sees
// their post unconditionally; other viewers get ErrNotFound unless the post
// satisfies the public-post-set rule, hiding its existence.
func (s *BlogService) GetPost(ctx context.Context, id, viewerID int64, now time.Time) (store.PostListRow, []store.CommentRow, error) {
	post, err := s.queries.GetPostRow(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.PostListRow{}, nil, ErrNotFound
		}
		return store.PostListRow{}, nil, fmt.Errorf("getting post: %w", err)
	}

	if !VisibleTo(post, viewerID, now.UTC()) {
		return store.PostListRow{}, nil, ErrNotFound
	}

	comments, err := s.queries.ListCommentsForPost(ctx, id)
	if err != nil {
		return store.PostListRow{}, nil, fmt.Errorf("listing comments: %w", err)
	}

	return post, comments, nil
}

// ListCategoryPosts returns one page of published, non-future posts in a
// published category. A hidden or absent category yields ErrNotFound.
func (s *BlogService) ListCategoryPosts(ctx context.Context, slug string, now time.Time, page int) (store.Category, PostPage, error) {
	category, err := s.queries.GetPublishedCategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Category{}, PostPage{}, ErrNotFound
		}
		return store.Category{}, PostPage{}, fmt.Errorf("getting category: %w", err)
	}

	page = normalizePage(page)
	now = now.UTC()

	posts, err := s.queries.ListPostsInCategory(ctx, store.ListPostsInCategoryParams{
		CategoryID: category.ID,
		Now:        now,
		Limit:      PostsPerPage,
		Offset:     int64((page - 1) * PostsPerPage),
	})
	if err != nil {
		return store.Category{}, PostPage{}, fmt.Errorf("listing category posts: %w", err)
	}

	total, err := s.queries.CountPostsInCategory(ctx, category.ID, now)
	if err != nil {
		return store.Category{}, PostPage{}, fmt.Errorf("counting category posts: %w", err)
	}

	return category, PostPage{Posts: posts, Total: total, Page: page, PerPage: PostsPerPage}, nil
}

// PostInput holds the author-editable post fields.
type PostInput struct {
	Title       string
	Body        string
	PubDate     time.Time
	CategoryID  sql.NullInt64
	LocationID  sql.NullInt64
	ImagePath   sql.NullString
	IsPublished bool
}

// CreatePost creates a post owned by authorID. The author is stamped once
// and never reassigned.
func (s *BlogService) CreatePost(ctx context.Context, authorID int64, in PostInput) (store.Post, error) {
	now := time.Now().UTC()
	post, err := s.queries.CreatePost(ctx, store.CreatePostParams{
		Title:       in.Title,
		Body:        in.Body,
		PubDate:     in.PubDate.UTC(),
		AuthorID:    authorID,
		CategoryID:  in.CategoryID,
		LocationID:  in.LocationID,
		ImagePath:   in.ImagePath,
		IsPublished: in.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return store.Post{}, fmt.Errorf("creating post: %w", err)
	}
	return post, nil
}

// authorizePost loads a post and verifies the viewer owns it.
func (s *BlogService) authorizePost(ctx context.Context, id, viewerID int64) (store.Post, error) {
	post, err := s.queries.GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Post{}, ErrNotFound
		}
		return store.Post{}, fmt.Errorf("getting post: %w", err)
	}
	if post.AuthorID != viewerID {
		return store.Post{}, ErrNotOwner
	}
	return post, nil
}

// UpdatePost updates a post if the viewer is its author.
func (s *BlogService) UpdatePost(ctx context.Context, id, viewerID int64, in PostInput) error {
	if _, err := s.authorizePost(ctx, id, viewerID); err != nil {
		return err
	}

	err := s.queries.UpdatePost(ctx, store.UpdatePostParams{
		Title:       in.Title,
		Body:        in.Body,
		PubDate:     in.PubDate.UTC(),
		CategoryID:  in.CategoryID,
		LocationID:  in.LocationID,
		ImagePath:   in.ImagePath,
		IsPublished: in.IsPublished,
		UpdatedAt:   time.Now().UTC(),
		ID:          id,
	})
	if err != nil {
		return fmt.Errorf("updating post: %w", err)
	}
	return nil
}

// DeletePost deletes a post if the viewer is its author. Comments are
// cascade-deleted by the schema.
func (s *BlogService) DeletePost(ctx context.Context, id, viewerID int64) error {
	if _, err := s.authorizePost(ctx, id, viewerID); err != nil {
		return err
	}
	if err := s.queries.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return nil
}

// AddComment creates a comment on a post. The post must be visible to the
// commenting viewer under the same rules as the detail view; otherwise the
// post does not exist as far as the commenter can tell.
func (s *BlogService) AddComment(ctx context.Context, postID, authorID int64, body string, now time.Time) (store.Comment, error) {
	post, err := s.queries.GetPostRow(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Comment{}, ErrNotFound
		}
		return store.Comment{}, fmt.Errorf("getting post: %w", err)
	}
	if !VisibleTo(post, authorID, now.UTC()) {
		return store.Comment{}, ErrNotFound
	}

	comment, err := s.queries.CreateComment(ctx, store.CreateCommentParams{
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now.UTC(),
	})
	if err != nil {
		return store.Comment{}, fmt.Errorf("creating comment: %w", err)
	}
	return comment, nil
}

// authorizeComment loads a comment, verifies it belongs to postID and that
// the viewer owns it.
func (s *BlogService) authorizeComment(ctx context.Context, commentID, postID, viewerID int64) (store.Comment, error) {
	comment, err := s.queries.GetCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Comment{}, ErrNotFound
		}
		return store.Comment{}, fmt.Errorf("getting comment: %w", err)
	}
	if comment.PostID != postID {
		return store.Comment{}, ErrNotFound
	}
	if comment.AuthorID != viewerID {
		return store.Comment{}, ErrNotOwner
	}
	return comment, nil
}

// UpdateComment replaces a comment's body if the viewer is its author.
func (s *BlogService) UpdateComment(ctx context.Context, commentID, postID, viewerID int64, body string) error {
	if _, err := s.authorizeComment(ctx, commentID, postID, viewerID); err != nil {
		return err
	}
	if err := s.queries.UpdateComment(ctx, store.UpdateCommentParams{Body: body, ID: commentID}); err != nil {
		return fmt.Errorf("updating comment: %w", err)
	}
	return nil
}

// DeleteComment deletes a comment if the viewer is its author.
func (s *BlogService) DeleteComment(ctx context.Context, commentID, postID, viewerID int64) error {
	if _, err := s.authorizeComment(ctx, commentID, postID, viewerID); err != nil {
		return err
	}
	if err := s.queries.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	return nil
}

// ProfileInput holds the self-editable profile fields.
type ProfileInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// UpdateProfile updates the viewer's own profile. The target is always the
// viewer, so no ownership check is needed or possible.
func (s *BlogService) UpdateProfile(ctx context.Context, viewerID int64, in ProfileInput) error {
	err := s.queries.UpdateUserProfile(ctx, store.UpdateUserProfileParams{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		UpdatedAt: time.Now().UTC(),
		ID:        viewerID,
	})
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}
