package stores

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newResetStore(t *testing.T) (*PasswordResetStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewPasswordResetStore(rdb, "apr"), mr
}

func saveRecord(t *testing.T, s *PasswordResetStore, id string, secret string) [32]byte {
	t.Helper()
	hash := sha256.Sum256([]byte(secret))
	err := s.Save(context.Background(), id, &PasswordResetRecord{
		UserID:     "u1",
		SecretHash: hash,
		ExpiresAt:  time.Now().Add(10 * time.Minute).Unix(),
	}, 10*time.Minute)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return hash
}

func TestConsumeIsSingleUse(t *testing.T) {
	s, _ := newResetStore(t)
	ctx := context.Background()
	hash := saveRecord(t, s, "r1", "secret")

	record, err := s.Consume(ctx, "r1", hash, 5)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if record.UserID != "u1" {
		t.Fatalf("unexpected user %q", record.UserID)
	}

	if _, err := s.Consume(ctx, "r1", hash, 5); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected replay to fail with ErrResetNotFound, got %v", err)
	}
}

func TestCheckDoesNotConsume(t *testing.T) {
	s, _ := newResetStore(t)
	ctx := context.Background()
	hash := saveRecord(t, s, "r1", "secret")

	if _, err := s.Check(ctx, "r1", hash, 5); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if _, err := s.Consume(ctx, "r1", hash, 5); err != nil {
		t.Fatalf("Consume after Check failed: %v", err)
	}
}

func TestMismatchBurnsAttempts(t *testing.T) {
	s, _ := newResetStore(t)
	ctx := context.Background()
	hash := saveRecord(t, s, "r1", "secret")
	wrong := sha256.Sum256([]byte("nope"))

	if _, err := s.Consume(ctx, "r1", wrong, 2); !errors.Is(err, ErrResetSecretMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if _, err := s.Consume(ctx, "r1", wrong, 2); !errors.Is(err, ErrResetAttemptsExceeded) {
		t.Fatalf("expected attempts exceeded, got %v", err)
	}
	if _, err := s.Consume(ctx, "r1", hash, 2); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected record to be gone after exhausting attempts, got %v", err)
	}
}

func TestExpiredRecord(t *testing.T) {
	s, mr := newResetStore(t)
	hash := saveRecord(t, s, "r1", "secret")
	mr.FastForward(11 * time.Minute)

	if _, err := s.Consume(context.Background(), "r1", hash, 5); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected ErrResetNotFound, got %v", err)
	}
}
