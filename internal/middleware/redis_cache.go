package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheConfig holds configuration for the cache middleware
type CacheConfig struct {
	Enabled         bool
	DefaultDuration time.Duration
	PrefixKey       string
}

// RedisCache caches successful GET responses in Redis for a short TTL
type RedisCache struct {
	client *redis.Client
	config CacheConfig
	logger *zap.Logger
}

// NewRedisCache creates a new response cache
func NewRedisCache(client *redis.Client, config CacheConfig, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		config: config,
		logger: logger,
	}
}

// Middleware returns the caching middleware for GET endpoints
func (rc *RedisCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rc.config.Enabled || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		cacheKey := generateCacheKey(c, rc.config.PrefixKey)

		ctx := context.Background()
		cachedResponse, err := rc.client.Get(ctx, cacheKey).Bytes()
		if err == nil {
			rc.logger.Debug("Cache hit",
				zap.String("path", c.Request.URL.Path),
				zap.String("cache_key", cacheKey))

			c.Writer.Header().Set("Content-Type", "application/json")
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(http.StatusOK)
			c.Writer.Write(cachedResponse)
			c.Abort()
			return
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		// Only cache successful responses
		if c.Writer.Status() == http.StatusOK {
			err := rc.client.Set(ctx, cacheKey, writer.body.Bytes(), rc.config.DefaultDuration).Err()
			if err != nil {
				rc.logger.Error("Failed to set cache",
					zap.Error(err),
					zap.String("cache_key", cacheKey))
			}
		}
	}
}

// Invalidate returns middleware that flushes all cached entries after a
// request that created something, so a fresh registration shows up in the
// listing immediately
func (rc *RedisCache) Invalidate() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if !rc.config.Enabled || c.Writer.Status() != http.StatusCreated {
			return
		}

		if err := rc.Flush(); err != nil {
			rc.logger.Error("Failed to flush cache", zap.Error(err))
		}
	}
}

// Flush clears every cached entry under the configured prefix
func (rc *RedisCache) Flush() error {
	ctx := context.Background()

	pattern := rc.config.PrefixKey + ":*"
	keys, err := rc.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return rc.client.Del(ctx, keys...).Err()
	}
	return nil
}

// responseWriter captures the response body for caching
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response for caching
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// generateCacheKey creates a unique cache key for a request
func generateCacheKey(c *gin.Context, prefix string) string {
	path := c.Request.URL.Path
	query := c.Request.URL.RawQuery

	hash := sha256.New()
	if query != "" {
		io.WriteString(hash, fmt.Sprintf("%s?%s", path, query))
	} else {
		io.WriteString(hash, path)
	}
	return prefix + ":" + hex.EncodeToString(hash.Sum(nil))
}
