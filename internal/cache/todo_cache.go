package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	dom "dualtodo/internal/domain"

	"github.com/redis/go-redis/v9"
)

const dayLayout = "2006-01-02"

// ErrStale is returned by SetList and SetDue when the cache was invalidated
// after the caller read the generation. The value is not stored.
var ErrStale = errors.New("cache generation changed")

// TodoCache caches list and by-due-date results of one backend in Redis.
type TodoCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewTodoCache returns a TodoCache whose keys live under "todo:<backend>:".
func NewTodoCache(rdb *redis.Client, backend string, ttl time.Duration) *TodoCache {
	return &TodoCache{rdb: rdb, ttl: ttl, prefix: "todo:" + backend + ":"}
}

func (c *TodoCache) listKey() string { return c.prefix + "list" }

func (c *TodoCache) genKey() string { return c.prefix + "gen" }

func (c *TodoCache) dueKey(day time.Time) string {
	return c.prefix + "due:" + day.UTC().Format(dayLayout)
}

// GetList returns cached list or nil if miss.
func (c *TodoCache) GetList(ctx context.Context) ([]dom.Todo, error) {
	return c.get(ctx, c.listKey())
}

// Generation returns the invalidation counter of the backend. Read it before
// loading from the store and pass it to SetList or SetDue.
func (c *TodoCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// SetList stores the list if the generation is still gen.
func (c *TodoCache) SetList(ctx context.Context, gen int64, list []dom.Todo) error {
	return c.set(ctx, c.listKey(), gen, list)
}

// GetDue returns the cached result for the UTC day of day, or nil if miss.
func (c *TodoCache) GetDue(ctx context.Context, day time.Time) ([]dom.Todo, error) {
	return c.get(ctx, c.dueKey(day))
}

// SetDue stores the result for the UTC day of day if the generation is still gen.
func (c *TodoCache) SetDue(ctx context.Context, gen int64, day time.Time, list []dom.Todo) error {
	return c.set(ctx, c.dueKey(day), gen, list)
}

// InvalidateAll bumps the generation, then removes the list key and every
// due-date key of the backend. Fills that read the old generation are rejected.
func (c *TodoCache) InvalidateAll(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, c.genKey()).Err(); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, c.listKey()).Err(); err != nil {
		return err
	}
	iter := c.rdb.Scan(ctx, 0, c.prefix+"due:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *TodoCache) get(ctx context.Context, key string) ([]dom.Todo, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := []dom.Todo{}
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// set writes key inside a WATCH on the generation key, so an InvalidateAll
// racing with the fill aborts the transaction.
func (c *TodoCache) set(ctx context.Context, key string, gen int64, list []dom.Todo) error {
	if list == nil {
		list = []dom.Todo{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, c.genKey()).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, c.ttl)
			return nil
		})
		return err
	}, c.genKey())
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	return err
}
