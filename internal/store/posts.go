package store

import (
	"context"
	"database/sql"
	"time"
)

const postColumns = `id, title, body, pub_date, author_id, category_id, location_id, image_path, is_published, created_at, updated_at`

// postListSelect joins each post with its author, optional category and
// location, and a live comment count. Listing predicates are appended by the
// individual queries.
const postListSelect = `
	SELECT p.id, p.title, p.body, p.pub_date, p.author_id, p.category_id, p.location_id,
	       p.image_path, p.is_published, p.created_at, p.updated_at,
	       u.username,
	       c.title, c.slug, c.is_published,
	       l.name, l.is_published,
	       (SELECT COUNT(*) FROM comments cm WHERE cm.post_id = p.id)
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN locations l ON l.id = p.location_id`

// visiblePredicate is the public-post-set rule: published, not future-dated,
// in a published category. A post without a category never matches because
// c.is_published is NULL for it.
const visiblePredicate = `p.is_published = 1 AND p.pub_date <= ? AND c.is_published = 1`

const postListOrder = ` ORDER BY p.pub_date DESC, p.id DESC LIMIT ? OFFSET ?`

func scanPostListRow(s interface{ Scan(...any) error }) (PostListRow, error) {
	var r PostListRow
	err := s.Scan(&r.ID, &r.Title, &r.Body, &r.PubDate, &r.AuthorID, &r.CategoryID, &r.LocationID,
		&r.ImagePath, &r.IsPublished, &r.CreatedAt, &r.UpdatedAt,
		&r.AuthorUsername,
		&r.CategoryTitle, &r.CategorySlug, &r.CategoryIsPublished,
		&r.LocationName, &r.LocationIsPublished,
		&r.CommentCount)
	return r, err
}

func (q *Queries) queryPostList(ctx context.Context, query string, args ...any) ([]PostListRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PostListRow
	for rows.Next() {
		r, err := scanPostListRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// CreatePostParams holds the fields for CreatePost.
type CreatePostParams struct {
	Title       string
	Body        string
	PubDate     time.Time
	AuthorID    int64
	CategoryID  sql.NullInt64
	LocationID  sql.NullInt64
	ImagePath   sql.NullString
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreatePost inserts a new post and returns it.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, body, pub_date, author_id, category_id, location_id, image_path, is_published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+postColumns,
		arg.Title, arg.Body, arg.PubDate, arg.AuthorID, arg.CategoryID, arg.LocationID,
		arg.ImagePath, arg.IsPublished, arg.CreatedAt, arg.UpdatedAt)
	return scanPost(row)
}

func scanPost(row *sql.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Body, &p.PubDate, &p.AuthorID, &p.CategoryID,
		&p.LocationID, &p.ImagePath, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetPostByID fetches a bare post row by primary key.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (Post, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// GetPostRow fetches a post by primary key joined with author, category,
// location and comment count. No visibility predicate is applied; callers
// decide visibility.
func (q *Queries) GetPostRow(ctx context.Context, id int64) (PostListRow, error) {
	row := q.db.QueryRowContext(ctx, postListSelect+` WHERE p.id = ?`, id)
	return scanPostListRow(row)
}

// ListVisiblePostsParams holds the arguments for ListVisiblePosts.
type ListVisiblePostsParams struct {
	Now    time.Time
	Limit  int64
	Offset int64
}

// ListVisiblePosts returns the public post set, newest first.
func (q *Queries) ListVisiblePosts(ctx context.Context, arg ListVisiblePostsParams) ([]PostListRow, error) {
	return q.queryPostList(ctx,
		postListSelect+` WHERE `+visiblePredicate+postListOrder,
		arg.Now, arg.Limit, arg.Offset)
}

// CountVisiblePosts counts the public post set.
func (q *Queries) CountVisiblePosts(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE `+visiblePredicate, now).Scan(&n)
	return n, err
}

// ListPostsByAuthorParams holds the arguments for the author listing queries.
type ListPostsByAuthorParams struct {
	AuthorID int64
	Now      time.Time
	Limit    int64
	Offset   int64
}

// ListPostsByAuthor returns all posts by an author regardless of visibility,
// newest first. Used for the author's own profile page.
func (q *Queries) ListPostsByAuthor(ctx context.Context, arg ListPostsByAuthorParams) ([]PostListRow, error) {
	return q.queryPostList(ctx,
		postListSelect+` WHERE p.author_id = ?`+postListOrder,
		arg.AuthorID, arg.Limit, arg.Offset)
}

// CountPostsByAuthor counts all posts by an author.
func (q *Queries) CountPostsByAuthor(ctx context.Context, authorID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = ?`, authorID).Scan(&n)
	return n, err
}

// ListVisiblePostsByAuthor returns an author's publicly visible posts, newest
// first. Used when someone else views the profile.
func (q *Queries) ListVisiblePostsByAuthor(ctx context.Context, arg ListPostsByAuthorParams) ([]PostListRow, error) {
	return q.queryPostList(ctx,
		postListSelect+` WHERE p.author_id = ? AND `+visiblePredicate+postListOrder,
		arg.AuthorID, arg.Now, arg.Limit, arg.Offset)
}

// CountVisiblePostsByAuthor counts an author's publicly visible posts.
func (q *Queries) CountVisiblePostsByAuthor(ctx context.Context, authorID int64, now time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.author_id = ? AND `+visiblePredicate, authorID, now).Scan(&n)
	return n, err
}

// ListPostsInCategoryParams holds the arguments for ListPostsInCategory.
type ListPostsInCategoryParams struct {
	CategoryID int64
	Now        time.Time
	Limit      int64
	Offset     int64
}

// ListPostsInCategory returns published, non-future posts in a category,
// newest first. Callers must already have resolved a published category.
func (q *Queries) ListPostsInCategory(ctx context.Context, arg ListPostsInCategoryParams) ([]PostListRow, error) {
	return q.queryPostList(ctx,
		postListSelect+` WHERE p.category_id = ? AND p.is_published = 1 AND p.pub_date <= ?`+postListOrder,
		arg.CategoryID, arg.Now, arg.Limit, arg.Offset)
}

// CountPostsInCategory counts published, non-future posts in a category.
func (q *Queries) CountPostsInCategory(ctx context.Context, categoryID int64, now time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts WHERE category_id = ? AND is_published = 1 AND pub_date <= ?`,
		categoryID, now).Scan(&n)
	return n, err
}

// UpdatePostParams holds the fields for UpdatePost. The author is fixed at
// creation and deliberately absent here.
type UpdatePostParams struct {
	Title       string
	Body        string
	PubDate     time.Time
	CategoryID  sql.NullInt64
	LocationID  sql.NullInt64
	ImagePath   sql.NullString
	IsPublished bool
	UpdatedAt   time.Time
	ID          int64
}

// UpdatePost updates a post's editable fields.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, body = ?, pub_date = ?, category_id = ?, location_id = ?,
		       image_path = ?, is_published = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Body, arg.PubDate, arg.CategoryID, arg.LocationID,
		arg.ImagePath, arg.IsPublished, arg.UpdatedAt, arg.ID)
	return err
}

// DeletePost removes a post. Its comments are cascade-deleted.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}
