package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryStore é um Cache Store em memória com TTL.
//
// Fica conectado desde a criação até Close. Serve para rodar sem Redis em uma
// instância só (CACHE_BACKEND=memory) e para testes. Não é fallback do RedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time

	status Status
}

type memEntry struct {
	value    []byte
	expireAt time.Time // zero = sem expiração
}

type MemoryOption func(*MemoryStore)

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.set(true)
	return s
}

func (s *MemoryStore) Name() string      { return "memory" }
func (s *MemoryStore) IsConnected() bool { return s.status.Connected() }

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if !s.status.Connected() {
		return nil, errors.Wrap(ErrUnavailable, "get")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !ent.expireAt.IsZero() && !s.now().Before(ent.expireAt) {
		delete(s.entries, key)
		return nil, ErrMiss
	}
	out := make([]byte, len(ent.value))
	copy(out, ent.value)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if !s.status.Connected() {
		return errors.Wrap(ErrUnavailable, "set")
	}

	ent := memEntry{value: make([]byte, len(value))}
	copy(ent.value, value)
	if ttl > 0 {
		ent.expireAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = ent
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if !s.status.Connected() {
		return errors.Wrap(ErrUnavailable, "delete")
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) FlushAll(_ context.Context) error {
	if !s.status.Connected() {
		return errors.Wrap(ErrUnavailable, "flush")
	}

	s.mu.Lock()
	s.entries = make(map[string]memEntry)
	s.mu.Unlock()
	return nil
}

// Sweep remove entradas expiradas e retorna quantas saíram.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, ent := range s.entries {
		if !ent.expireAt.IsZero() && !now.Before(ent.expireAt) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len retorna o número de entradas, inclusive as expiradas ainda não varridas.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close marca o store como desconectado. Idempotente.
func (s *MemoryStore) Close() error {
	s.status.set(false)
	return nil
}

// StartJanitor chama Sweep periodicamente. Pare cancelando o contexto.
func (s *MemoryStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}
