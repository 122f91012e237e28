package azampay

import (
	"context"
	"sync"
	"time"
)

// TokenCache keeps a gateway access token until shortly before the
// gateway would expire it (tokens live 60 minutes, we keep them 50).
// Refresh is lazy: the next Get after expiry fetches a new token.
type TokenCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	fetch func(ctx context.Context) (string, error)

	token     string
	expiresAt time.Time
}

func NewTokenCache(ttl time.Duration, fetch func(ctx context.Context) (string, error)) *TokenCache {
	return &TokenCache{ttl: ttl, now: time.Now, fetch: fetch}
}

func (t *TokenCache) Get(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiresAt) {
		return t.token, nil
	}

	token, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}

	t.token = token
	t.expiresAt = t.now().Add(t.ttl)
	return token, nil
}

// Invalidate drops the cached token. Called after the gateway rejects
// a request as unauthenticated so the next call fetches a fresh one.
func (t *TokenCache) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiresAt = time.Time{}
}
