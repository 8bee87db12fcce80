package infra

import (
	"context"
	"sync"

	"magic-math-gateway/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

// MemoryStatsStore guarda contadores em memória.
// Útil para testes e desenvolvimento; não faz expiração.
type MemoryStatsStore struct {
	mu        sync.Mutex
	total     Counters
	byRoute   map[string]Counters
	byKey     map[string]Counters
	byBackend map[string]Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRoute:   make(map[string]Counters),
		byKey:     make(map[string]Counters),
		byBackend: make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)
	if route := ev.Route(); route != "" {
		bump(s.byRoute, route, ev.Allowed)
	}
	if ev.Backend != "" {
		bump(s.byBackend, ev.Backend, ev.Allowed)
	}
	if s.trackKeys {
		bump(s.byKey, string(ev.Key), ev.Allowed)
	}
	return nil
}

func bump(m map[string]Counters, k string, allowed bool) {
	c := m[k]
	c.add(allowed)
	m[k] = c
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Totals tem a mesma assinatura de RedisStatsStore.Totals.
func (s *MemoryStatsStore) Totals(context.Context) (Counters, error) { return s.Total(), nil }

func (s *MemoryStatsStore) ByRoute() map[string]Counters   { return s.snapshot(s.byRoute) }
func (s *MemoryStatsStore) ByKey() map[string]Counters     { return s.snapshot(s.byKey) }
func (s *MemoryStatsStore) ByBackend() map[string]Counters { return s.snapshot(s.byBackend) }

func (s *MemoryStatsStore) snapshot(m map[string]Counters) map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
