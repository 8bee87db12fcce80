package infra

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magic-math-gateway/cache"
	"magic-math-gateway/middleware/ratelimit/domain"
)

func TestCacheWindowStore_StoresWindowWithRemainingTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	defer store.Close()

	ws := NewCacheWindowStore(store, "rate_limit:")
	assert.Equal(t, "redis", ws.Name())
	assert.True(t, ws.Available())

	now := time.Now()
	w, err := ws.Hit(context.Background(), "1.2.3.4", now, 60*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Count)
	assert.Equal(t, 60*time.Second, mr.TTL("rate_limit:1.2.3.4"))

	w, err = ws.Hit(context.Background(), "1.2.3.4", now.Add(20500*time.Millisecond), 60*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Count)
	assert.Equal(t, 40*time.Second, mr.TTL("rate_limit:1.2.3.4"))

	raw, err := mr.Get("rate_limit:1.2.3.4")
	require.NoError(t, err)
	var stored domain.Window
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, 2, stored.Count)
}

func TestCacheWindowStore_ExpiryByStoreStartsNewWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	defer store.Close()

	ws := NewCacheWindowStore(store, "")
	now := time.Now()
	_, err = ws.Hit(context.Background(), "k", now, 2*time.Second)
	require.NoError(t, err)

	mr.FastForward(3 * time.Second)
	assert.False(t, mr.Exists("rate_limit:k"))

	w, err := ws.Hit(context.Background(), "k", now.Add(3*time.Second), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Count)
}

func TestCacheWindowStore_PropagatesUnavailable(t *testing.T) {
	store := cache.NewMemoryStore()
	require.NoError(t, store.Close())

	ws := NewCacheWindowStore(store, "")
	assert.False(t, ws.Available())

	_, err := ws.Hit(context.Background(), "k", time.Now(), time.Minute)
	assert.True(t, cache.IsUnavailable(err))
}

func TestCacheWindowStore_MatchesMemoryBackend(t *testing.T) {
	mem := NewMemoryWindowStore()
	ext := NewCacheWindowStore(cache.NewMemoryStore(), "")
	now := time.Unix(1_700_000_000, 0)
	size := 10 * time.Second

	offsets := []time.Duration{0, time.Second, 2 * time.Second, 9 * time.Second, 10 * time.Second, 11 * time.Second, 25 * time.Second}
	for _, off := range offsets {
		a, err := mem.Hit(context.Background(), "k", now.Add(off), size)
		require.NoError(t, err)
		b, err := ext.Hit(context.Background(), "k", now.Add(off), size)
		require.NoError(t, err)

		assert.Equal(t, a.Count, b.Count, "offset %s", off)
		assert.True(t, a.ResetAt.Equal(b.ResetAt), "offset %s", off)
	}
}

func TestTTLForRoundsUp(t *testing.T) {
	now := time.Unix(0, 0)
	assert.Equal(t, 2*time.Second, ttlFor(domain.Window{ResetAt: now.Add(1100 * time.Millisecond)}, now))
	assert.Equal(t, time.Second, ttlFor(domain.Window{ResetAt: now}, now))
}
