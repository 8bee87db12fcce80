package infra

import (
	"context"
	"sync"
	"time"

	"magic-math-gateway/middleware/ratelimit/domain"
)

// MemoryWindowStore é o backend em memória das janelas fixas, usado quando o
// Cache Store externo está desconectado.
//
// O read-modify-write de cada chave acontece sob o mutex, então incrementos
// concorrentes não se perdem. Janelas vencidas saem na varredura periódica.
type MemoryWindowStore struct {
	mu         sync.Mutex
	entries    map[string]domain.Window
	sweepEvery time.Duration
	now        func() time.Time
}

type StoreOption func(*MemoryWindowStore)

// WithSweepEvery define o intervalo da varredura. Normalmente igual à janela.
func WithSweepEvery(d time.Duration) StoreOption {
	return func(s *MemoryWindowStore) { s.sweepEvery = d }
}

// WithNow troca o relógio usado pela varredura (testes).
func WithNow(now func() time.Time) StoreOption {
	return func(s *MemoryWindowStore) { s.now = now }
}

func NewMemoryWindowStore(opts ...StoreOption) *MemoryWindowStore {
	s := &MemoryWindowStore{
		entries:    make(map[string]domain.Window),
		sweepEvery: time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryWindowStore) Name() string              { return "memory" }
func (s *MemoryWindowStore) Available() bool           { return true }
func (s *MemoryWindowStore) SweepEvery() time.Duration { return s.sweepEvery }

// Hit implementa domain.WindowStore. Nunca falha.
func (s *MemoryWindowStore) Hit(_ context.Context, key domain.Key, now time.Time, size time.Duration) (domain.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *domain.Window
	if w, ok := s.entries[string(key)]; ok {
		cur = &w
	}
	next := domain.Advance(cur, now, size)
	s.entries[string(key)] = next
	return next, nil
}

// Sweep remove janelas com resetAt <= now e retorna quantas saíram.
func (s *MemoryWindowStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, w := range s.entries {
		if w.Expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *MemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor inicia uma goroutine que varre janelas vencidas periodicamente.
// Pare cancelando o contexto. Não bloqueia o caminho do request além do mutex.
func (s *MemoryWindowStore) StartJanitor(ctx DoneContext) {
	if s.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(s.sweepEvery)
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

// DoneContext é o mínimo necessário para aceitar context.Context na janitor.
type DoneContext interface {
	Done() <-chan struct{}
}
