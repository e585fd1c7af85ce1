package memory

import (
	"context"
	"sync"
	"time"
)

// TokenDenylist is an in-memory implementation of app.TokenDenylist.
type TokenDenylist struct {
	now func() time.Time

	mu     sync.Mutex
	denied map[string]time.Time
}

func NewTokenDenylist() *TokenDenylist {
	return &TokenDenylist{now: time.Now, denied: make(map[string]time.Time)}
}

func (d *TokenDenylist) Deny(_ context.Context, token string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denied[token] = d.now().Add(ttl)
	return nil
}

func (d *TokenDenylist) Denied(_ context.Context, token string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.denied[token]
	if !ok {
		return false, nil
	}
	if d.now().After(until) {
		delete(d.denied, token)
		return false, nil
	}
	return true, nil
}
