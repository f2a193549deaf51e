package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"ideaflow/api/internal/util"
)

func setupTestRedis(t *testing.T) (*RedisRevocations, *miniredis.Miniredis, *util.ManualClock) {
	s := miniredis.RunT(t)
	clock := util.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	revocations, err := NewRedisRevocations("redis://"+s.Addr(), clock)
	if err != nil {
		t.Fatalf("failed to create redis revocations: %v", err)
	}
	t.Cleanup(func() { _ = revocations.Close() })
	return revocations, s, clock
}

func TestNewRedisRevocations(t *testing.T) {
	revocations, _, _ := setupTestRedis(t)
	if err := revocations.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisRevocationsRejectsBadURL(t *testing.T) {
	if _, err := NewRedisRevocations("not-a-url", nil); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}

func TestRevokeAndCheck(t *testing.T) {
	revocations, _, clock := setupTestRedis(t)
	ctx := context.Background()

	if err := revocations.Revoke(ctx, "jti-1", clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	revoked, err := revocations.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Error("expected jti-1 to be revoked")
	}

	revoked, err = revocations.IsRevoked(ctx, "jti-2")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Error("jti-2 was never revoked")
	}
}

func TestRevokedEntryExpiresWithToken(t *testing.T) {
	revocations, s, clock := setupTestRedis(t)
	ctx := context.Background()

	if err := revocations.Revoke(ctx, "jti-1", clock.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if ttl := s.TTL("revoked:jti-1"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}

	s.FastForward(2 * time.Minute)

	revoked, err := revocations.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Error("entry should be gone after the token expired")
	}
}

func TestRevokeAlreadyExpiredIsNoop(t *testing.T) {
	revocations, s, clock := setupTestRedis(t)
	ctx := context.Background()

	if err := revocations.Revoke(ctx, "jti-old", clock.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if s.Exists("revoked:jti-old") {
		t.Error("expired token should not be stored")
	}
}
