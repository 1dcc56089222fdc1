package store

import (
	"context"
	"database/sql"
	"time"
)

const commentColumns = `id, post_id, author_id, body, created_at`

func scanComment(row *sql.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt)
	return c, err
}

// CreateCommentParams holds the fields for CreateComment.
type CreateCommentParams struct {
	PostID    int64
	AuthorID  int64
	Body      string
	CreatedAt time.Time
}

// CreateComment inserts a new comment and returns it. CreatedAt is set once
// and never updated afterwards.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (Comment, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO comments (post_id, author_id, body, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING `+commentColumns,
		arg.PostID, arg.AuthorID, arg.Body, arg.CreatedAt)
	return scanComment(row)
}

// GetCommentByID fetches a comment by primary key.
func (q *Queries) GetCommentByID(ctx context.Context, id int64) (Comment, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id)
	return scanComment(row)
}

// ListCommentsForPost returns a post's comments oldest first.
func (q *Queries) ListCommentsForPost(ctx context.Context, postID int64) ([]CommentRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.author_id, c.body, c.created_at, u.username
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ?
		ORDER BY c.created_at ASC, c.id ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []CommentRow
	for rows.Next() {
		var c CommentRow
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.AuthorUsername); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CountCommentsForPost returns the live comment count for a post.
func (q *Queries) CountCommentsForPost(ctx context.Context, postID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID).Scan(&n)
	return n, err
}

// UpdateCommentParams holds the fields for UpdateComment.
type UpdateCommentParams struct {
	Body string
	ID   int64
}

// UpdateComment replaces a comment's body. The creation timestamp is immutable.
func (q *Queries) UpdateComment(ctx context.Context, arg UpdateCommentParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE comments SET body = ? WHERE id = ?`, arg.Body, arg.ID)
	return err
}

// DeleteComment removes a comment.
func (q *Queries) DeleteComment(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	return err
}
