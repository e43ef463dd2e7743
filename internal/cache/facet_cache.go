package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "storefront:facets"

// FacetCache keeps computed facet listings in Redis, one key per category.
// Every key written is also recorded in an index set so a catalog write can
// drop all of them at once.
type FacetCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewFacetCache(client *redis.Client, ttl time.Duration) *FacetCache {
	return &FacetCache{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
	}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *FacetCache) key(generation int64, category string) string {
	return fmt.Sprintf("%s:g%d:cat:%s", c.keyPrefix, generation, category)
}

func (c *FacetCache) indexKey() string {
	return c.keyPrefix + ":keys"
}

func (c *FacetCache) generationKey() string {
	return c.keyPrefix + ":gen"
}

func (c *FacetCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get decodes the cached value for category into dst. It reports false on a
// miss, along with the generation a later Set for the same listing must pass.
func (c *FacetCache) Get(ctx context.Context, category string, dst interface{}) (int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("facet cache generation: %w", err)
	}

	data, err := c.client.Get(ctx, c.key(gen, category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, fmt.Errorf("facet cache get: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return gen, false, fmt.Errorf("facet cache decode: %w", err)
	}
	return gen, true, nil
}

// Set stores v under the given generation. A listing computed before an
// Invalidate lands under a retired generation and is never read back.
func (c *FacetCache) Set(ctx context.Context, generation int64, category string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("facet cache encode: %w", err)
	}

	key := c.key(generation, category)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, c.ttl)
		pipe.SAdd(ctx, c.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("facet cache set: %w", err)
	}
	return nil
}

// Invalidate retires the current generation and removes every cached listing.
func (c *FacetCache) Invalidate(ctx context.Context) error {
	// 1. Bump the generation so fills already in flight go stale
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("facet cache invalidate: %w", err)
	}

	// 2. Drop the stored listings
	keys, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("facet cache invalidate: %w", err)
	}

	keys = append(keys, c.indexKey())
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("facet cache invalidate: %w", err)
	}
	return nil
}
