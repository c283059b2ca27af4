// internal/identity/cache.go
package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache stores per-room identity tokens keyed by a session scope (one scope
// per session cookie). Entries are cleared on explicit leave or
// request-denial acknowledgment.
type Cache interface {
	Get(ctx context.Context, scope, code string) (Token, bool, error)
	Put(ctx context.Context, scope, code string, t Token) error
	SetPending(ctx context.Context, scope, code string, pending bool) error
	Pending(ctx context.Context, scope, code string) (bool, error)
	Clear(ctx context.Context, scope, code string) error
}

// ---------------- in-memory ----------------

// MemCache is a process-local Cache for tests and single-node dev.
type MemCache struct {
	mu      sync.Mutex
	tokens  map[string]Token
	pending map[string]bool
}

// NewMemCache returns an empty in-memory cache.
func NewMemCache() *MemCache {
	return &MemCache{
		tokens:  make(map[string]Token),
		pending: make(map[string]bool),
	}
}

func memKey(scope, code string) string { return scope + ":" + code }

func (c *MemCache) Get(ctx context.Context, scope, code string) (Token, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[memKey(scope, code)]
	return t, ok, nil
}

func (c *MemCache) Put(ctx context.Context, scope, code string, t Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[memKey(scope, code)] = t
	return nil
}

func (c *MemCache) SetPending(ctx context.Context, scope, code string, pending bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pending {
		c.pending[memKey(scope, code)] = true
	} else {
		delete(c.pending, memKey(scope, code))
	}
	return nil
}

func (c *MemCache) Pending(ctx context.Context, scope, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[memKey(scope, code)], nil
}

func (c *MemCache) Clear(ctx context.Context, scope, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, memKey(scope, code))
	delete(c.pending, memKey(scope, code))
	return nil
}

// ---------------- redis ----------------

// tokenTTL bounds how long an abandoned identity lingers. A live client
// refreshes it on every (re)subscribe.
const tokenTTL = 24 * time.Hour

// RedisCache stores tokens in Redis under {scope}:{code}-pid / -name /
// -pending string keys.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) key(scope, code, suffix string) string {
	return scope + ":" + code + suffix
}

func (c *RedisCache) Get(ctx context.Context, scope, code string) (Token, bool, error) {
	pid, err := c.rdb.Get(ctx, c.key(scope, code, keyPID)).Result()
	if errors.Is(err, redis.Nil) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, err
	}
	id, err := uuid.Parse(pid)
	if err != nil {
		return Token{}, false, nil
	}
	name, err := c.rdb.Get(ctx, c.key(scope, code, keyName)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Token{}, false, err
	}
	return Token{ParticipantID: id, Name: name}, true, nil
}

func (c *RedisCache) Put(ctx context.Context, scope, code string, t Token) error {
	if err := c.rdb.Set(ctx, c.key(scope, code, keyPID), t.ParticipantID.String(), tokenTTL).Err(); err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(scope, code, keyName), t.Name, tokenTTL).Err()
}

func (c *RedisCache) SetPending(ctx context.Context, scope, code string, pending bool) error {
	if pending {
		return c.rdb.Set(ctx, c.key(scope, code, keyPending), "1", tokenTTL).Err()
	}
	return c.rdb.Del(ctx, c.key(scope, code, keyPending)).Err()
}

func (c *RedisCache) Pending(ctx context.Context, scope, code string) (bool, error) {
	_, err := c.rdb.Get(ctx, c.key(scope, code, keyPending)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Clear(ctx context.Context, scope, code string) error {
	return c.rdb.Del(ctx,
		c.key(scope, code, keyPID),
		c.key(scope, code, keyName),
		c.key(scope, code, keyPending),
	).Err()
}
