package scheduler

import (
	"context"
	"testing"
	"time"

	"blogd/internal/store"
	"blogd/internal/testutil"
)

func TestTrimEvents(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, age := range []time.Duration{time.Hour, 100 * 24 * time.Hour} {
		_, err := q.CreateEvent(ctx, store.CreateEventParams{
			Level:     "info",
			Category:  "system",
			Message:   "event",
			Metadata:  "{}",
			CreatedAt: now.Add(-age),
		})
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	s := New(db, testutil.DiscardLogger(), 90)
	if err := s.TrimEvents(ctx); err != nil {
		t.Fatalf("TrimEvents: %v", err)
	}

	events, err := q.ListRecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("remaining events = %d, want 1", len(events))
	}
}

func TestCheckpointWAL(t *testing.T) {
	db := testutil.TestDB(t)

	s := New(db, testutil.DiscardLogger(), 90)
	if err := s.CheckpointWAL(context.Background()); err != nil {
		t.Fatalf("CheckpointWAL: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	db := testutil.TestDB(t)

	s := New(db, testutil.DiscardLogger(), 90)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := len(s.cron.Entries()); got != 2 {
		t.Errorf("registered jobs = %d, want 2", got)
	}
	s.Stop()
}
