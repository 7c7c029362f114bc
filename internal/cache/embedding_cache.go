package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/limglenaldin/ai-insurance-agent/internal/ai"
)

// EmbeddingCache stores query embeddings in Redis keyed by model and text hash.
type EmbeddingCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewEmbeddingCache(client *redisv9.Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &EmbeddingCache{client: client, ttl: ttl}
}

func (c *EmbeddingCache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, Key(model, text)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding failed: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached embedding failed: %w", err)
	}
	return vec, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, model, text string, vec []float32) error {
	payload, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal embedding cache failed: %w", err)
	}
	if err := c.client.Set(ctx, Key(model, text), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding failed: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embed:%s:%s", model, hex.EncodeToString(sum[:]))
}

// CachingEmbedder answers Embed from the cache when it can. Cache errors are
// logged and the call falls through to the wrapped embedder.
type CachingEmbedder struct {
	ai.Embedder
	cache *EmbeddingCache
}

func NewCachingEmbedder(inner ai.Embedder, cache *EmbeddingCache) *CachingEmbedder {
	return &CachingEmbedder{Embedder: inner, cache: cache}
}

func (e *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.Embedder.ModelName()
	vec, ok, err := e.cache.Get(ctx, model, text)
	if err != nil {
		log.Printf("embedding cache lookup failed: %v", err)
	}
	if ok {
		return vec, nil
	}

	vec, err = e.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, model, text, vec); err != nil {
		log.Printf("embedding cache store failed: %v", err)
	}
	return vec, nil
}
