package store

import (
	"context"
	"database/sql"
	"time"
)

const locationColumns = `id, name, is_published, created_at, updated_at`

func scanLocation(row *sql.Row) (Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.IsPublished, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// CreateLocationParams holds the fields for CreateLocation.
type CreateLocationParams struct {
	Name        string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateLocation inserts a new location and returns it.
func (q *Queries) CreateLocation(ctx context.Context, arg CreateLocationParams) (Location, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO locations (name, is_published, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING `+locationColumns,
		arg.Name, arg.IsPublished, arg.CreatedAt, arg.UpdatedAt)
	return scanLocation(row)
}

// GetLocationByID fetches a location by primary key.
func (q *Queries) GetLocationByID(ctx context.Context, id int64) (Location, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	return scanLocation(row)
}

// ListLocations returns all locations ordered by name.
func (q *Queries) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.IsPublished, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// ListPublishedLocations returns published locations ordered by name.
func (q *Queries) ListPublishedLocations(ctx context.Context) ([]Location, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE is_published = 1 ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.IsPublished, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpdateLocationParams holds the fields for UpdateLocation.
type UpdateLocationParams struct {
	Name        string
	IsPublished bool
	UpdatedAt   time.Time
	ID          int64
}

// UpdateLocation updates a location.
func (q *Queries) UpdateLocation(ctx context.Context, arg UpdateLocationParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE locations SET name = ?, is_published = ?, updated_at = ? WHERE id = ?`,
		arg.Name, arg.IsPublished, arg.UpdatedAt, arg.ID)
	return err
}

// DeleteLocation removes a location. Posts referencing it keep existing with
// their location reference cleared (ON DELETE SET NULL).
func (q *Queries) DeleteLocation(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	return err
}
