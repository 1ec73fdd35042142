package presence

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"codeshare/internal/config"
	"codeshare/internal/domain/models"
	"codeshare/internal/repository/memory"
)

var (
	alice = &models.UserIdentity{ID: "alice", Email: "alice@example.com", DisplayName: "Alice", PhotoURL: "https://example.com/alice.png"}
	bob   = &models.UserIdentity{ID: "bob", Email: "bob@example.com", DisplayName: "Bob"}
)

func newTracker(t *testing.T, store *memory.Store, ttl time.Duration) *Tracker {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTracker(store.Presence(), &config.Config{
		PresenceTTL:     ttl,
		PresenceSweep:   time.Minute,
		CursorRateLimit: 1000, // effectively unlimited unless a test says otherwise
	}, logger)
}

func TestJoinRefreshesInsteadOfDuplicating(t *testing.T) {
	store := memory.NewStore()
	tracker := newTracker(t, store, 30*time.Second)
	ctx := context.Background()

	if err := tracker.Join(ctx, "doc-1", alice); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := tracker.Join(ctx, "doc-1", alice); err != nil {
		t.Fatalf("Join(again) error = %v", err)
	}

	entries, err := store.Presence().List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries after double join, want 1", len(entries))
	}
	if entries[0].Name != alice.DisplayName || entries[0].PhotoURL != alice.PhotoURL {
		t.Errorf("entry profile = %+v, want identity fields carried over", entries[0])
	}
}

func TestCursorUpdateKeepsProfile(t *testing.T) {
	store := memory.NewStore()
	tracker := newTracker(t, store, 30*time.Second)
	ctx := context.Background()

	if err := tracker.Join(ctx, "doc-1", alice); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := tracker.UpdateCursor(ctx, "doc-1", alice.ID, models.CursorPosition{Line: 3, Column: 14}); err != nil {
		t.Fatalf("UpdateCursor() error = %v", err)
	}

	entries, err := store.Presence().List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Cursor == nil || entry.Cursor.Line != 3 || entry.Cursor.Column != 14 {
		t.Errorf("Cursor = %+v, want line 3 column 14", entry.Cursor)
	}
	// A cursor-only write must not blank the profile fields.
	if entry.Name != alice.DisplayName || entry.Email != alice.Email {
		t.Errorf("profile = %q/%q, want preserved identity", entry.Name, entry.Email)
	}

	// And a later profile refresh must not drop the cursor.
	if err := tracker.Join(ctx, "doc-1", alice); err != nil {
		t.Fatalf("Join(refresh) error = %v", err)
	}
	entries, _ = store.Presence().List(ctx, "doc-1")
	if entries[0].Cursor == nil {
		t.Error("cursor lost on profile refresh")
	}
}

func TestCursorRateLimitDropsExcess(t *testing.T) {
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := NewTracker(store.Presence(), &config.Config{
		PresenceTTL:     30 * time.Second,
		PresenceSweep:   time.Minute,
		CursorRateLimit: 1, // 1/s with burst 2
	}, logger)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := tracker.UpdateCursor(ctx, "doc-1", alice.ID, models.CursorPosition{Line: i}); err != nil {
			t.Fatalf("UpdateCursor(%d) error = %v", i, err)
		}
	}

	entries, err := store.Presence().List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	// Burst is 2, so the surviving cursor is from one of the first writes,
	// not the tenth.
	if entries[0].Cursor.Line >= 9 {
		t.Errorf("cursor line = %d, expected later updates to be dropped", entries[0].Cursor.Line)
	}
}

func TestSubscribeFiltersStaleEntries(t *testing.T) {
	store := memory.NewStore()
	tracker := newTracker(t, store, 30*time.Second)
	ctx := context.Background()

	// Bob's entry is older than the TTL; the store keeps it, the rendered
	// set must not.
	stale := &models.PresenceEntry{
		UserID:   bob.ID,
		Name:     bob.DisplayName,
		LastSeen: time.Now().Add(-time.Minute),
	}
	if err := store.Presence().Upsert(ctx, "doc-1", stale); err != nil {
		t.Fatalf("seed stale entry error = %v", err)
	}
	if err := tracker.Join(ctx, "doc-1", alice); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	sub, err := tracker.Subscribe(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Cancel()

	select {
	case entries := <-sub.Updates():
		if len(entries) != 1 || entries[0].UserID != alice.ID {
			t.Errorf("rendered set = %v, want alice only", entries)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for presence snapshot")
	}

	raw, err := store.Presence().List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(raw) != 2 {
		t.Errorf("store holds %d entries, want 2 (stale kept until swept)", len(raw))
	}
}

func TestSweeperDeletesExpired(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	stale := &models.PresenceEntry{UserID: bob.ID, LastSeen: time.Now().Add(-time.Minute)}
	if err := store.Presence().Upsert(ctx, "doc-1", stale); err != nil {
		t.Fatalf("seed stale entry error = %v", err)
	}
	fresh := &models.PresenceEntry{UserID: alice.ID}
	if err := store.Presence().Upsert(ctx, "doc-1", fresh); err != nil {
		t.Fatalf("seed fresh entry error = %v", err)
	}

	if err := store.Presence().DeleteExpired(ctx, time.Now().Add(-30*time.Second)); err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}

	entries, err := store.Presence().List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != alice.ID {
		t.Errorf("entries after sweep = %v, want alice only", entries)
	}
}

func TestLeaveIsBestEffort(t *testing.T) {
	store := memory.NewStore()
	tracker := newTracker(t, store, 30*time.Second)
	ctx := context.Background()

	// Leaving without ever joining must not panic or error out.
	tracker.Leave(ctx, "doc-1", alice.ID)

	if err := tracker.Join(ctx, "doc-1", alice); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	tracker.Leave(ctx, "doc-1", alice.ID)

	entries, err := store.Presence().List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries after leave = %v, want empty", entries)
	}
}
