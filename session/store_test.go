package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, "sess"), mr
}

func makeSession(t *testing.T, userID string, lifetime time.Duration) *Session {
	t.Helper()

	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}
	csrf, err := NewCSRFToken()
	if err != nil {
		t.Fatalf("NewCSRFToken failed: %v", err)
	}

	now := time.Now()
	return &Session{
		SessionID: sid,
		UserID:    userID,
		CSRFToken: csrf,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(lifetime).Unix(),
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sess := makeSession(t, "u1", time.Hour)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("UserID = %q, want u1", got.UserID)
	}
	if got.CSRFToken != sess.CSRFToken {
		t.Fatal("CSRF token did not round trip")
	}
	if got.ExpiresAt != sess.ExpiresAt || got.CreatedAt != sess.CreatedAt {
		t.Fatal("timestamps did not round trip")
	}
}

func TestGetUnknownIDReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)

	for _, id := range []string{
		"0123456789abcdef0123456789abcdef",
		"not-a-session-id",
		"",
	} {
		if _, err := store.Get(context.Background(), id); !errors.Is(err, redis.Nil) {
			t.Fatalf("Get(%q): expected redis.Nil, got %v", id, err)
		}
	}
}

func TestGetExpiredDeletesLazily(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	sess := makeSession(t, "u1", time.Second)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Move the wall clock past expiry; miniredis keeps the key alive so the
	// read-time check is what rejects it.
	mr.FastForward(2 * time.Second)

	// Rewrite the record with a past ExpiresAt to simulate elapsed time for
	// the read-time check as well.
	expired := *sess
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	data, err := Encode(&expired)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	mr.Set("sess:"+sess.SessionID, string(data))

	if _, err := store.Get(ctx, sess.SessionID); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil for expired session, got %v", err)
	}

	// The stale key was deleted on read.
	if mr.Exists("sess:" + sess.SessionID) {
		t.Fatal("expected expired session key to be deleted lazily")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sess := makeSession(t, "u1", time.Hour)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete(ctx, sess.SessionID); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}
	if err := store.Delete(ctx, sess.SessionID); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "0123456789abcdef0123456789abcdef"); err != nil {
		t.Fatalf("Delete of unknown id failed: %v", err)
	}

	if _, err := store.Get(ctx, sess.SessionID); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		sess := makeSession(t, "u1", time.Hour)
		if err := store.Save(ctx, sess); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		ids = append(ids, sess.SessionID)
	}
	other := makeSession(t, "u2", time.Hour)
	if err := store.Save(ctx, other); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.DeleteAllForUser(ctx, "u1"); err != nil {
		t.Fatalf("DeleteAllForUser failed: %v", err)
	}

	for _, id := range ids {
		if _, err := store.Get(ctx, id); !errors.Is(err, redis.Nil) {
			t.Fatalf("session %s survived DeleteAllForUser: %v", id, err)
		}
	}

	// u2 is untouched.
	if _, err := store.Get(ctx, other.SessionID); err != nil {
		t.Fatalf("unrelated user's session was removed: %v", err)
	}

	remaining, err := store.ActiveSessionIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveSessionIDs failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty index after DeleteAllForUser, got %v", remaining)
	}
}

func TestActiveSessionIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := makeSession(t, "u1", time.Hour)
	b := makeSession(t, "u1", time.Hour)
	for _, sess := range []*Session{a, b} {
		if err := store.Save(ctx, sess); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	ids, err := store.ActiveSessionIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveSessionIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 tracked sessions, got %d", len(ids))
	}
}
