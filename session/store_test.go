package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, "as"), mr, rdb
}

func testSession(id string) *Session {
	now := time.Now()
	return &Session{
		SessionID: id,
		UserID:    "u-1",
		Role:      "USER",
		IPHash:    [32]byte{7},
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := testSession("sid-1")
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID != in.UserID || out.Role != in.Role || out.IPHash != in.IPHash || out.ExpiresAt != in.ExpiresAt {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestDecodeRejectsUnknownVersionAndTrailingBytes(t *testing.T) {
	data, err := Encode(testSession("sid-1"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	bad := append([]byte{}, data...)
	bad[0] = 9
	if _, err := Decode(bad); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding for version, got %v", err)
	}
	if _, err := Decode(append(data, 0x00)); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding for trailing bytes, got %v", err)
	}
	if _, err := Decode(data[:5]); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding for truncation, got %v", err)
	}
}

func TestSaveGetDelete(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("sid-1")

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SessionID != "sid-1" || got.UserID != "u-1" {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := store.DeleteForUser(ctx, "u-1", "sid-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if !errors.Is(ErrNotFound, redis.Nil) {
		t.Fatal("ErrNotFound must match redis.Nil")
	}
}

func TestDeleteSessionIdempotent(t *testing.T) {
	store, _, rdb := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("sid-1")

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := store.DeleteForUser(ctx, sess.UserID, sess.SessionID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.DeleteForUser(ctx, sess.UserID, sess.SessionID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("delete of unknown session: %v", err)
	}

	members, err := rdb.SMembers(ctx, store.userKey(sess.UserID)).Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no user index members, got %v", members)
	}
}

func TestGetExpiredAndCorrupt(t *testing.T) {
	store, mr, rdb := newSessionStoreTest(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession("sid-ttl"), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "sid-ttl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}

	if err := rdb.Set(ctx, store.key("sid-bad"), []byte("bad"), time.Hour).Err(); err != nil {
		t.Fatalf("seed corrupt: %v", err)
	}
	if _, err := store.Get(ctx, "sid-bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for corrupt blob, got %v", err)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, testSession(id), time.Hour); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	ids, err := store.ActiveSessionIDs(ctx, "u-1")
	if err != nil || len(ids) != 3 {
		t.Fatalf("expected 3 sessions, got %v err=%v", ids, err)
	}

	if err := store.DeleteAllForUser(ctx, "u-1"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("session %s survived DeleteAllForUser: %v", id, err)
		}
	}
}

func TestRedisDownIsWrapped(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	mr.Close()

	_, err := store.Get(context.Background(), "sid")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
