package store

import (
	"database/sql"
	"time"
)

// User is an account that authors posts and comments.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  sql.NullTime
}

// DisplayName returns the user's full name, falling back to the username.
func (u User) DisplayName() string {
	if u.FirstName != "" || u.LastName != "" {
		if u.FirstName == "" {
			return u.LastName
		}
		if u.LastName == "" {
			return u.FirstName
		}
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

// Category groups posts under a unique URL slug.
type Category struct {
	ID          int64
	Title       string
	Description string
	Slug        string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location is an optional place tag for posts.
type Location struct {
	ID          int64
	Name        string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Post is a dated publication owned by exactly one author. Category and
// location references are optional and cleared when the referenced row is
// deleted.
type Post struct {
	ID          int64
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

// Comment belongs to a post and is cascade-deleted with it.
type Comment struct {
	ID        int64
	PostID    int64
	AuthorID  int64
	Body      string
	CreatedAt time.Time
}

// Event is an audit log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	IPAddress string
	URL       string
	Metadata  string
	CreatedAt time.Time
}

// PostListRow is a post joined with its author, category, location and live
// comment count, as returned by the listing queries.
type PostListRow struct {
	Post
	AuthorUsername      string
	CategoryTitle       sql.NullString
	CategorySlug        sql.NullString
	CategoryIsPublished sql.NullBool
	LocationName        sql.NullString
	LocationIsPublished sql.NullBool
	CommentCount        int64
}

// CommentRow is a comment joined with its author's username.
type CommentRow struct {
	Comment
	AuthorUsername string
}
