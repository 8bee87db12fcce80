package infra

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"magic-math-gateway/middleware/ratelimit/domain"
)

// RedisStatsStore grava contadores de checks em hashes do Redis:
//
//	<prefix>:total                  allowed / denied (cumulativo, sem TTL)
//	<prefix>:minute:<yyyymmddhhmm>  allowed / denied por minuto (TTL)
//	<prefix>:backend                <backend>:allowed / <backend>:denied
//	<prefix>:route                  "<METHOD> <path>:allowed" ...
//	<prefix>:key:<key>              por identificador (opcional, TTL)
//
// Tudo vai em um pipeline só.
type RedisStatsStore struct {
	rdb redis.Cmdable
	// quando definido e falso, Record vira no-op (backend desconectado).
	connected func() bool

	prefix    string
	ttl       time.Duration
	timeout   time.Duration
	bucket    string // "minute" (padrão) ou "none"
	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

// WithStatsTTL aplica apenas em chaves de série temporal / por key.
func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

// WithStatsGate liga o store ao status de conexão do Cache Store.
func WithStatsGate(connected func() bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.connected = connected }
}

// WithStatsTimeout limita cada Record/Totals; o Record roda no caminho do request.
func WithStatsTimeout(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.timeout = d }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:     rdb,
		prefix:  "ratelimit:stats",
		ttl:     24 * time.Hour,
		bucket:  "minute",
		timeout: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	if s.connected != nil && !s.connected() {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := ev.Outcome()

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := s.prefix + ":minute:" + at.UTC().Format("200601021504")
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if ev.Backend != "" {
		pipe.HIncrBy(ctx, s.prefix+":backend", ev.Backend+":"+field, 1)
	}

	if route := ev.Route(); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "recording rate-limit stats")
}

// Totals lê o hash cumulativo.
func (s *RedisStatsStore) Totals(ctx context.Context) (Counters, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return Counters{}, errors.Wrap(err, "reading rate-limit stats")
	}
	var c Counters
	c.Allowed, _ = strconv.ParseInt(m["allowed"], 10, 64)
	c.Denied, _ = strconv.ParseInt(m["denied"], 10, 64)
	return c, nil
}

func (s *RedisStatsStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
