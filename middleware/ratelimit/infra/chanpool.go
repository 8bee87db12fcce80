package infra

import (
	"context"
	"sync"
)

// ChanPool é um semáforo em channel: cada vaga ocupada é um item no buffer.
type ChanPool struct {
	sem chan struct{}
}

func NewChanPool(max int) *ChanPool {
	return &ChanPool{sem: make(chan struct{}, max)}
}

// Acquire bloqueia até haver vaga ou ctx encerrar. O release é idempotente.
func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-p.sem }) }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InUse é o número de vagas ocupadas agora (alimenta o gauge de requests em voo).
func (p *ChanPool) InUse() int { return len(p.sem) }

func (p *ChanPool) Cap() int { return cap(p.sem) }
