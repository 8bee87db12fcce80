package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrMiss indica chave inexistente ou expirada. Não é falha.
	ErrMiss = errors.New("cache miss")
	// ErrUnavailable indica backend desconectado ou erro de comunicação.
	ErrUnavailable = errors.New("cache backend unavailable")
)

// Store é o contrato do Cache Store.
//
// Get retorna ErrMiss ou ErrUnavailable (possivelmente com wrap); nunca entra em pânico.
// Set/Delete/FlushAll retornam nil quando a escrita foi aceita.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	FlushAll(ctx context.Context) error
	IsConnected() bool
	Name() string
}

// Status é o flag de conexão do backend. Começa desconectado.
type Status struct {
	connected atomic.Bool
}

func (s *Status) Connected() bool { return s.connected.Load() }

// set retorna true quando houve transição.
func (s *Status) set(v bool) bool { return s.connected.Swap(v) != v }

// IsMiss é um atalho para errors.Is(err, ErrMiss).
func IsMiss(err error) bool { return errors.Is(err, ErrMiss) }

// IsUnavailable é um atalho para errors.Is(err, ErrUnavailable).
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
