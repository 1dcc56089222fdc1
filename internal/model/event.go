// Package model holds shared domain constants used across packages.
package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth    = "auth"
	EventCategoryPost    = "post"
	EventCategoryComment = "comment"
	EventCategoryUser    = "user"
	EventCategorySystem  = "system"
)

// User roles. Regular users can publish their own posts and comments;
// admins additionally manage categories and locations.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
