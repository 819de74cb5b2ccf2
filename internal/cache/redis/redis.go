package redis

import (
	"context"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Cache is a thin byte cache over redis with per-scope generation
// counters. Bumping a scope's generation makes every key derived from
// the previous generation unreachable, which stands in for pattern
// deletes.
type Cache struct {
	c *rdb.Client
}

func New(addr string, db int) *Cache {
	return &Cache{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db})}
}

func (r *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.c.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = r.c.Set(ctx, key, value, ttl).Err()
}

func (r *Cache) Delete(ctx context.Context, key string) {
	_ = r.c.Del(ctx, key).Err()
}

// Generation returns the current generation of a scope, 0 when the
// scope was never bumped. Errors degrade to 0: a cache miss, never a
// failure.
func (r *Cache) Generation(ctx context.Context, scope string) int64 {
	n, err := r.c.Get(ctx, generationKey(scope)).Int64()
	if err != nil {
		return 0
	}
	return n
}

func (r *Cache) BumpGeneration(ctx context.Context, scope string) {
	_ = r.c.Incr(ctx, generationKey(scope)).Err()
}

func (r *Cache) Close() error {
	return r.c.Close()
}

func generationKey(scope string) string {
	return fmt.Sprintf("planora:gen:%s", scope)
}
