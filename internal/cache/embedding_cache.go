package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/logger"
	"go.uber.org/zap"
)

// EmbeddingCache 基于Redis的向量缓存，包装任意Embedder。
// 嵌入后端是网络调用，重复文本（重建索引、重复查询）直接命中缓存。
type EmbeddingCache struct {
	inner  llm.Embedder
	client *redis.Client
	ttl    time.Duration
}

// NewEmbeddingCache 创建向量缓存
func NewEmbeddingCache(inner llm.Embedder, addr string, db int, ttlSeconds int) *EmbeddingCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ttl := 24 * time.Hour
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}

	return &EmbeddingCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
	}
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%s", c.inner.Model(), hex.EncodeToString(sum[:]))
}

func (c *EmbeddingCache) get(ctx context.Context, text string) ([]float32, bool) {
	if c.client == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(val, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (c *EmbeddingCache) put(ctx context.Context, text string, vec []float32) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	// 缓存写失败不影响主流程
	if err := c.client.SetEx(ctx, c.key(text), data, c.ttl).Err(); err != nil {
		logger.Debug("embedding cache write failed", zap.Error(err))
	}
}

func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.get(ctx, text); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(ctx, text, vec)
	return vec, nil
}

func (c *EmbeddingCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vec, ok := c.get(ctx, text); ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		fresh, err := c.inner.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, vec := range fresh {
			vectors[missingIdx[j]] = vec
			c.put(ctx, missing[j], vec)
		}
	}

	return vectors, nil
}

func (c *EmbeddingCache) Model() string {
	return c.inner.Model()
}

func (c *EmbeddingCache) Ready() bool {
	return c.inner.Ready()
}

// Close 关闭Redis连接
func (c *EmbeddingCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
