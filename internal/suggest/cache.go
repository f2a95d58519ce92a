package suggest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedOracle memoizes oracle answers in Redis, keyed by a hash of the
// description. Cache trouble is logged and otherwise ignored: a broken
// cache degrades to calling the engine directly.
type CachedOracle struct {
	inner  Oracle
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedOracle wraps inner with a Redis cache. A nil client disables
// caching entirely.
func NewCachedOracle(inner Oracle, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedOracle {
	return &CachedOracle{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(description string) string {
	sum := sha256.Sum256([]byte(description))
	return "helpdesk:suggestion:" + hex.EncodeToString(sum[:])
}

// Classify serves a cached answer when available, otherwise consults
// the engine and stores the result.
func (c *CachedOracle) Classify(ctx context.Context, description string) (Suggestion, error) {
	key := cacheKey(description)

	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Result()
		if err == nil {
			var cached Suggestion
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			c.logger.Debug("suggestion cache read failed", zap.Error(err))
		}
	}

	answer, err := c.inner.Classify(ctx, description)
	if err != nil {
		return Suggestion{}, err
	}

	if c.client != nil {
		if raw, marshalErr := json.Marshal(answer); marshalErr == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.Debug("suggestion cache write failed", zap.Error(err))
			}
		}
	}
	return answer, nil
}
