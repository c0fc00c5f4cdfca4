package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"marketsync/internal/feature/names/domain/entity"
	"marketsync/internal/feature/names/usecase"
)

// NameStore is the name repository plus the retention delete.
type NameStore interface {
	usecase.NameRepository
	DeleteNameEntriesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// cachedName is the Redis value of one lookup. Misses are cached too, so a
// dashboard listing unknown symbols does not hit the store on every request.
type cachedName struct {
	Found bool             `json:"found"`
	Entry entity.NameEntry `json:"entry"`
}

// CachingNameRepository decorates a NameStore with a Redis read-through cache
// for single-symbol lookups. Writes go to the store first and then drop the
// affected keys.
type CachingNameRepository struct {
	inner     NameStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	now       func() time.Time
}

var _ NameStore = (*CachingNameRepository)(nil)

// NewCachingNameRepository decorates inner with Redis caching.
// If ttl is 0, it defaults to 10 minutes. If namespace is empty, it uses "names".
// A nil rdb disables caching.
func NewCachingNameRepository(rdb *redis.Client, ttl time.Duration, inner NameStore, namespace string) *CachingNameRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if namespace == "" {
		namespace = "names"
	}
	return &CachingNameRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
	}
}

// GetNameEntry checks the cache first, then falls back to the store.
func (c *CachingNameRepository) GetNameEntry(ctx context.Context, symbol string) (entity.NameEntry, bool, error) {
	if c.rdb == nil {
		return c.inner.GetNameEntry(ctx, symbol)
	}

	key := c.cacheKey(symbol)
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var v cachedName
		if err := json.Unmarshal(b, &v); err == nil {
			return v.Entry, v.Found, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	e, ok, err := c.inner.GetNameEntry(ctx, symbol)
	if err != nil {
		return entity.NameEntry{}, false, err
	}

	if b, err := json.Marshal(cachedName{Found: ok, Entry: e}); err == nil {
		_ = c.rdb.Set(ctx, key, b, capTTL(c.ttl, c.now())).Err()
	}
	return e, ok, nil
}

// UpsertNameEntry writes through to the store and invalidates the symbol's key.
func (c *CachingNameRepository) UpsertNameEntry(ctx context.Context, e entity.NameEntry) error {
	if err := c.inner.UpsertNameEntry(ctx, e); err != nil {
		return err
	}
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, c.cacheKey(e.Symbol)).Err()
	}
	return nil
}

// DeleteNameEntriesOlderThan deletes from the store and drops the whole namespace.
func (c *CachingNameRepository) DeleteNameEntriesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := c.inner.DeleteNameEntriesOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if c.rdb != nil && n > 0 {
		_ = c.deleteByPattern(ctx, c.namespace+":*")
	}
	return n, nil
}

func (c *CachingNameRepository) CountNameEntries(ctx context.Context, since time.Time) (int64, error) {
	return c.inner.CountNameEntries(ctx, since)
}

func (c *CachingNameRepository) RecentNameEntries(ctx context.Context, limit int) ([]entity.NameEntry, error) {
	return c.inner.RecentNameEntries(ctx, limit)
}

func (c *CachingNameRepository) cacheKey(symbol string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(symbol))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingNameRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}
