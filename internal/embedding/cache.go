// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Cache stores vectors by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// RedisCache keeps vectors in redis as JSON arrays.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(cfg types.CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

// Get returns the cached vector for key, or false on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, "embedding:"+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting cached embedding: %w", err)
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("decoding cached embedding: %w", err)
	}
	return vec, true, nil
}

// Set stores vec under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encoding embedding: %w", err)
	}
	if err := c.client.Set(ctx, "embedding:"+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching embedding: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Cached serves repeated texts from a Cache and embeds only the misses.
// Cache errors are logged and treated as misses.
type Cached struct {
	next  Embedder
	cache Cache
	model string
	log   *zap.Logger
}

// NewCached wraps next. model namespaces the cache keys.
func NewCached(next Embedder, cache Cache, model string, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{next: next, cache: cache, model: model, log: log}
}

// Embed returns one vector per text, calling the wrapped embedder once for
// all cache misses.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		vec, ok, err := c.cache.Get(ctx, c.key(text))
		if err != nil {
			c.log.Debug("embedding cache read failed", zap.Error(err))
		}
		if ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d inputs", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := c.cache.Set(ctx, c.key(texts[i]), vecs[j]); err != nil {
			c.log.Debug("embedding cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// Close closes the underlying cache when it holds connections.
func (c *Cached) Close() error {
	if cl, ok := c.cache.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
