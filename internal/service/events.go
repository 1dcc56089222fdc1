// Package service implements the application's business rules on top of the
// store layer.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"blogd/internal/store"
	"blogd/internal/util"
)

// EventService records audit events in the database.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{queries: store.New(db)}
}

// Log records an event. Metadata is stored as JSON; a nil map becomes {}.
func (s *EventService) Log(ctx context.Context, level, category, message string, userID *int64, ip, url string, metadata map[string]any) error {
	meta := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		} else {
			slog.Error("failed to marshal event metadata", "error", err)
		}
	}

	var uid sql.NullInt64
	if userID != nil {
		uid = util.NullInt64FromValue(*userID)
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    uid,
		IPAddress: ip,
		URL:       url,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// LogAuthEvent records an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *int64, ip, url string, metadata map[string]any) error {
	return s.Log(ctx, level, "auth", message, userID, ip, url, metadata)
}

// LogContentEvent records a post/comment lifecycle event.
func (s *EventService) LogContentEvent(ctx context.Context, level, category, message string, userID *int64, metadata map[string]any) error {
	return s.Log(ctx, level, category, message, userID, "", "", metadata)
}
