package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time      { return c.t }
func (c *fakeClock) Add(d time.Duration) { c.t = c.t.Add(d) }
func newFakeClock() *fakeClock           { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.True(t, s.IsConnected())
	assert.Equal(t, "memory", s.Name())

	_, err := s.Get(ctx, "k")
	assert.True(t, IsMiss(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.True(t, IsMiss(err))
}

func TestMemoryStore_ExpiresByTTL(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	s := NewMemoryStore(WithClock(clk.Now))

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 2*time.Second))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	clk.Add(1 * time.Second)
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)

	clk.Add(1 * time.Second)
	_, err = s.Get(ctx, "a")
	assert.True(t, IsMiss(err))

	// sem TTL não expira
	_, err = s.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	s := NewMemoryStore(WithClock(clk.Now))

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Hour))
	clk.Add(2 * time.Second)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_ValueIsCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", v, 0))
	v[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryStore_ClosedIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.IsConnected())

	_, err := s.Get(ctx, "k")
	assert.True(t, IsUnavailable(err))
	assert.True(t, IsUnavailable(s.Set(ctx, "k", nil, 0)))
	assert.True(t, IsUnavailable(s.Delete(ctx, "k")))
	assert.True(t, IsUnavailable(s.FlushAll(ctx)))
}

func TestMemoryStore_FlushAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, s.FlushAll(ctx))
	assert.Equal(t, 0, s.Len())
}
