// Package dedupe provides the delivery guards that make webhook processing
// safe under at-least-once redelivery. A guard claims (instance, message id)
// before any side effect; a second claim for the same pair loses until the
// claim expires or is released.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/repo"
)

// DefaultTTL bounds how long a claimed message id is remembered.
const DefaultTTL = 24 * time.Hour

// DBGuard stores claims as webhook_receipts rows.
type DBGuard struct {
	DB  *gorm.DB
	TTL time.Duration

	// Now is a test seam.
	Now func() time.Time
}

func (g *DBGuard) ttl() time.Duration {
	if g.TTL > 0 {
		return g.TTL
	}
	return DefaultTTL
}

func (g *DBGuard) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

// Claim returns false when the message was already claimed. An empty
// message id cannot be deduplicated and is always claimable.
func (g *DBGuard) Claim(ctx context.Context, instanceID, messageID string) (bool, error) {
	_, err := repo.ClaimReceipt(ctx, g.DB, instanceID, messageID, g.ttl(), g.now())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repo.ErrDuplicate):
		return false, nil
	case errors.Is(err, repo.ErrNotFound):
		return true, nil
	default:
		return false, err
	}
}

// Release forgets a claim so a redelivery is processed again.
func (g *DBGuard) Release(ctx context.Context, instanceID, messageID string) error {
	return repo.ReleaseReceipt(ctx, g.DB, instanceID, messageID)
}

// Complete marks a claim as fully processed.
func (g *DBGuard) Complete(ctx context.Context, instanceID, messageID string) error {
	return repo.CompleteReceipt(ctx, g.DB, instanceID, messageID)
}

// redisClient is the subset of *redis.Client the guard uses.
type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisGuard stores claims as Redis keys set with SET NX and a TTL, for
// deployments with several replicas behind one webhook URL.
type RedisGuard struct {
	Client redisClient
	TTL    time.Duration
	Prefix string
}

// NewRedisGuard connects a guard to the Redis server at addr.
func NewRedisGuard(addr, password string, db int, ttl time.Duration) *RedisGuard {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisGuard{Client: rdb, TTL: ttl}
}

func (g *RedisGuard) key(instanceID, messageID string) string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = "sari:webhook"
	}
	return fmt.Sprintf("%s:%s:%s", prefix, instanceID, messageID)
}

// Claim returns false when the key already exists.
func (g *RedisGuard) Claim(ctx context.Context, instanceID, messageID string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	ttl := g.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ok, err := g.Client.SetNX(ctx, g.key(instanceID, messageID), time.Now().UTC().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim: %w", err)
	}
	return ok, nil
}

// Release deletes the claim key.
func (g *RedisGuard) Release(ctx context.Context, instanceID, messageID string) error {
	if messageID == "" {
		return nil
	}
	if err := g.Client.Del(ctx, g.key(instanceID, messageID)).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}

// Close closes the underlying client when it owns a connection pool.
func (g *RedisGuard) Close() error {
	if c, ok := g.Client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
