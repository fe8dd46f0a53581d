package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ingaz2013/sari-sub001/internal/repo"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:dedupe_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

func TestDBGuard_ClaimReleaseExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := &DBGuard{DB: newDB(t), TTL: time.Minute, Now: func() time.Time { return now }}
	ctx := context.Background()

	ok, err := g.Claim(ctx, "1", "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, "1", "m1")
	require.NoError(t, err)
	assert.False(t, ok, "second claim loses")

	ok, err = g.Claim(ctx, "2", "m1")
	require.NoError(t, err)
	assert.True(t, ok, "claims are per instance")

	require.NoError(t, g.Release(ctx, "1", "m1"))
	ok, err = g.Claim(ctx, "1", "m1")
	require.NoError(t, err)
	assert.True(t, ok, "released claim can be retaken")

	require.NoError(t, g.Complete(ctx, "1", "m1"))
	now = now.Add(2 * time.Minute)
	ok, err = g.Claim(ctx, "1", "m1")
	require.NoError(t, err)
	assert.True(t, ok, "expired claim can be retaken")

	ok, err = g.Claim(ctx, "1", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ any, exp time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, f.err)
}

func TestRedisGuard_SetNXSemantics(t *testing.T) {
	rc := &fakeRedis{keys: map[string]time.Duration{}}
	g := &RedisGuard{Client: rc, TTL: time.Hour}
	ctx := context.Background()

	ok, err := g.Claim(ctx, "1101", "m1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, rc.keys["sari:webhook:1101:m1"])

	ok, err = g.Claim(ctx, "1101", "m1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, "1101", "m1"))
	ok, err = g.Claim(ctx, "1101", "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	rc.err = errors.New("connection refused")
	_, err = g.Claim(ctx, "1101", "m2")
	assert.ErrorContains(t, err, "connection refused")
}

func TestRedisGuard_CloseWithoutPool(t *testing.T) {
	g := &RedisGuard{Client: &fakeRedis{keys: map[string]time.Duration{}}}
	assert.NoError(t, g.Close())

	real := NewRedisGuard("127.0.0.1:0", "", 0, 0)
	assert.NoError(t, real.Close())
}
