package application

import (
	"context"
	"sync/atomic"
	"time"

	"magic-math-gateway/middleware/ratelimit/domain"
)

// ConcurrencyService limita quantas execuções rodam ao mesmo tempo, sem saber
// nada sobre HTTP. Sem Pool tudo passa.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration

	rejected atomic.Int64
}

// Acquire espera por uma vaga: até o ctx encerrar quando AcquireTimeout <= 0,
// senão no máximo AcquireTimeout. Com ok=false não há vaga e release é nil.
func (s *ConcurrencyService) Acquire(ctx context.Context) (release func(), ok bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}
	release, ok = s.Pool.Acquire(ctx)
	if !ok {
		s.rejected.Add(1)
	}
	return release, ok
}

// Do roda fn ocupando uma vaga. Retorna false (sem rodar fn) quando não houve vaga.
func (s *ConcurrencyService) Do(ctx context.Context, fn func()) bool {
	release, ok := s.Acquire(ctx)
	if !ok {
		return false
	}
	defer release()
	fn()
	return true
}

// Rejected conta as vezes em que Acquire desistiu.
func (s *ConcurrencyService) Rejected() int64 { return s.rejected.Load() }
