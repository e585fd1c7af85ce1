package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestTokenDenylist(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	denylist := NewTokenDenylist(newClient(mr))

	denied, err := denylist.Denied(ctx, "token-1")
	if err != nil || denied {
		t.Fatalf("unknown token denied=%v err=%v, want allowed", denied, err)
	}

	if err := denylist.Deny(ctx, "token-1", time.Minute); err != nil {
		t.Fatalf("deny: %v", err)
	}
	denied, err = denylist.Denied(ctx, "token-1")
	if err != nil || !denied {
		t.Fatalf("revoked token denied=%v err=%v, want denied", denied, err)
	}

	// The raw token never lands in Redis.
	for _, key := range mr.Keys() {
		if key == "auth:denied:token-1" {
			t.Fatal("token stored unhashed")
		}
	}

	// Entries lapse with the token's own expiry.
	mr.FastForward(2 * time.Minute)
	denied, err = denylist.Denied(ctx, "token-1")
	if err != nil || denied {
		t.Fatalf("expired entry denied=%v err=%v, want allowed again", denied, err)
	}
}

func TestTokenDenylistNonPositiveTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	denylist := NewTokenDenylist(newClient(mr))

	if err := denylist.Deny(ctx, "stale", 0); err != nil {
		t.Fatalf("deny with zero ttl: %v", err)
	}
	if denied, _ := denylist.Denied(ctx, "stale"); denied {
		t.Fatal("expired token denylisted anyway")
	}
}
