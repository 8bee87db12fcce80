package infra

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magic-math-gateway/middleware/ratelimit/domain"
)

func TestMemoryStatsStore_Record(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: true, Backend: "memory", Method: "GET", Path: "/5"}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: false, Backend: "memory", Method: "GET", Path: "/5"}))

	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.Total())
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.ByRoute()["GET /5"])
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.ByKey()["a"])
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.ByBackend()["memory"])

	tot, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tot.Denied)
}

func TestRedisStatsStore_Record(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedisStatsStore(rdb, WithStatsPrefix("stats:"), WithStatsTrackKeys(true), WithStatsTTL(time.Hour))
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "1.2.3.4", Allowed: true, Backend: "redis", Method: "GET", Path: "/5", At: at}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "1.2.3.4", Allowed: false, Backend: "redis", Method: "GET", Path: "/5", At: at}))

	assert.Equal(t, "1", mr.HGet("stats:total", "allowed"))
	assert.Equal(t, "1", mr.HGet("stats:total", "denied"))
	assert.Equal(t, "1", mr.HGet("stats:minute:202601020304", "allowed"))
	assert.Equal(t, "1", mr.HGet("stats:backend", "redis:denied"))
	assert.Equal(t, "1", mr.HGet("stats:route", "GET /5:allowed"))
	assert.Equal(t, "1", mr.HGet("stats:key:1.2.3.4", "denied"))
	assert.Equal(t, time.Hour, mr.TTL("stats:key:1.2.3.4"))

	tot, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, tot)
}

func TestRedisStatsStore_GateSkipsWhenDisconnected(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedisStatsStore(rdb, WithStatsGate(func() bool { return false }))
	require.NoError(t, s.Record(context.Background(), domain.StatsEvent{Allowed: true}))
	assert.False(t, mr.Exists("ratelimit:stats:total"))
}

func TestRedisStatsStore_RecordIsBoundedByTimeout(t *testing.T) {
	// servidor que aceita a conexão e nunca responde
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	rdb := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), MaxRetries: -1, ContextTimeoutEnabled: true})
	defer rdb.Close()
	s := NewRedisStatsStore(rdb, WithStatsTimeout(50*time.Millisecond))

	start := time.Now()
	err = s.Record(context.Background(), domain.StatsEvent{Allowed: true})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err = s.Totals(context.Background())
	require.Error(t, err)
}

func TestPromStatsStore_CountsLimitedToo(t *testing.T) {
	s := NewPromStatsStore()
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Allowed: true, Backend: "memory"})
	_ = s.Record(ctx, domain.StatsEvent{Allowed: false, Backend: "memory"})
	_ = s.Record(ctx, domain.StatsEvent{Allowed: false, Backend: "memory"})

	assert.Equal(t, 1.0, testutil.ToFloat64(s.checks.WithLabelValues("memory", "allowed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.checks.WithLabelValues("memory", "limited")))
}

type failingStats struct{}

func (failingStats) Record(context.Context, domain.StatsEvent) error { return errors.New("boom") }

func TestMultiStats_RecordsEverywhere(t *testing.T) {
	a := NewMemoryStatsStore()
	b := NewMemoryStatsStore()
	m := MultiStats{a, failingStats{}, nil, b}

	err := m.Record(context.Background(), domain.StatsEvent{Allowed: true})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int64(1), a.Total().Allowed)
	assert.Equal(t, int64(1), b.Total().Allowed)
}
