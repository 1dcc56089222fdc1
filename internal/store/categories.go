package store

import (
	"context"
	"database/sql"
	"time"
)

const categoryColumns = `id, title, description, slug, is_published, created_at, updated_at`

func scanCategory(row *sql.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Slug, &c.IsPublished, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCategoryParams holds the fields for CreateCategory.
type CreateCategoryParams struct {
	Title       string
	Description string
	Slug        string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateCategory inserts a new category and returns it.
func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO categories (title, description, slug, is_published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+categoryColumns,
		arg.Title, arg.Description, arg.Slug, arg.IsPublished, arg.CreatedAt, arg.UpdatedAt)
	return scanCategory(row)
}

// GetCategoryByID fetches a category by primary key.
func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (Category, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

// GetCategoryBySlug fetches a category by its unique slug.
func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug)
	return scanCategory(row)
}

// GetPublishedCategoryBySlug fetches a published category by slug.
// Hidden categories are indistinguishable from absent ones.
func (q *Queries) GetPublishedCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = ? AND is_published = 1`, slug)
	return scanCategory(row)
}

// ListCategories returns all categories ordered by title.
func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY title, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Slug, &c.IsPublished, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListPublishedCategories returns published categories ordered by title.
func (q *Queries) ListPublishedCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE is_published = 1 ORDER BY title, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Slug, &c.IsPublished, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategoryParams holds the fields for UpdateCategory.
type UpdateCategoryParams struct {
	Title       string
	Description string
	Slug        string
	IsPublished bool
	UpdatedAt   time.Time
	ID          int64
}

// UpdateCategory updates a category.
func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE categories SET title = ?, description = ?, slug = ?, is_published = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Description, arg.Slug, arg.IsPublished, arg.UpdatedAt, arg.ID)
	return err
}

// DeleteCategory removes a category. Posts referencing it keep existing with
// their category reference cleared (ON DELETE SET NULL).
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return err
}

// CategorySlugExists reports whether a slug is taken by a category other than excludeID.
func (q *Queries) CategorySlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&n)
	return n > 0, err
}
