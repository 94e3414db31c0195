package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	in := samplePayload{Name: "piece-1", Count: 3}
	require.NoError(t, c.Set(ctx, "k1", in, 0))

	var out samplePayload
	found, err := c.Get(ctx, "k1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestMemoryCacheMissingKey(t *testing.T) {
	c := NewMemoryCache()

	var out samplePayload
	found, err := c.Get(context.Background(), "khong-ton-tai", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	base := time.Now()
	c.nowFn = func() time.Time { return base }

	expiresAt := base.Add(time.Minute).UnixMilli()
	require.NoError(t, c.Set(ctx, "k1", samplePayload{Name: "x"}, expiresAt))

	// Trước hạn: còn
	var out samplePayload
	found, err := c.Get(ctx, "k1", &out)
	require.NoError(t, err)
	assert.True(t, found)

	// Sau hạn: mất
	c.nowFn = func() time.Time { return base.Add(2 * time.Minute) }
	found, err = c.Get(ctx, "k1", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheNoExpiryLivesForever(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	base := time.Now()
	c.nowFn = func() time.Time { return base }
	require.NoError(t, c.Set(ctx, "k1", samplePayload{Name: "x"}, 0))

	c.nowFn = func() time.Time { return base.AddDate(1, 0, 0) }
	found, err := c.Get(ctx, "k1", nil)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryCacheDeleteIdempotent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", samplePayload{}, 0))
	require.NoError(t, c.Delete(ctx, "k1"))
	require.NoError(t, c.Delete(ctx, "k1"))

	found, err := c.Get(ctx, "k1", nil)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", samplePayload{Count: 1}, 0))
	require.NoError(t, c.Set(ctx, "k1", samplePayload{Count: 2}, 0))

	var out samplePayload
	found, err := c.Get(ctx, "k1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, out.Count)
}

func TestAcquireLock(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	acquired, err := AcquireLock(ctx, c, "lock/test", "owner-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	// Lock đang giữ: lần hai thất bại
	acquired, err = AcquireLock(ctx, c, "lock/test", "owner-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	// Release rồi lấy lại được
	require.NoError(t, ReleaseLock(ctx, c, "lock/test"))
	acquired, err = AcquireLock(ctx, c, "lock/test", "owner-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestAcquireLockExpires(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	base := time.Now()
	c.nowFn = func() time.Time { return base }

	acquired, err := AcquireLock(ctx, c, "lock/test", "owner-1", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	// TTL hết: holder chết không release vẫn không giữ lock mãi
	c.nowFn = func() time.Time { return base.Add(2 * time.Minute) }
	acquired, err = AcquireLock(ctx, c, "lock/test", "owner-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}
