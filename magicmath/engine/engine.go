// Package engine calcula o magic math:
//
//	f(0) = 0, f(1) = 1, f(n) = f(n-1) + f(n-2) + n
//
// Há duas estratégias: recursiva com memo (entradas pequenas) e iterativa
// (entradas >= threshold, sem crescimento de pilha nem de memória).
package engine

import (
	"math/big"
	"sync"

	"magic-math-gateway/magicmath/domain"
)

// DefaultThreshold é o LARGE_INPUT_THRESHOLD padrão.
const DefaultThreshold = 1000

// Engine é dono do memo da estratégia recursiva. O memo persiste entre chamadas
// e cresce sem limite; em produção só recebe n < threshold.
type Engine struct {
	mu        sync.RWMutex
	memo      map[int]*big.Int
	threshold int
}

type Option func(*Engine)

// WithThreshold define a partir de qual n a estratégia iterativa é usada.
func WithThreshold(n int) Option {
	return func(e *Engine) { e.threshold = n }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		memo:      make(map[int]*big.Int),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Threshold() int { return e.threshold }

// Select retorna o algoritmo que Compute usaria para n.
func (e *Engine) Select(n int) domain.Algorithm {
	if n >= e.threshold {
		return domain.Iterative
	}
	return domain.Recursive
}

// Compute despacha pela política de threshold.
func (e *Engine) Compute(n int) (*big.Int, domain.Algorithm, error) {
	alg := e.Select(n)
	var (
		v   *big.Int
		err error
	)
	if alg == domain.Iterative {
		v, err = Iterative(n)
	} else {
		v, err = e.Recursive(n)
	}
	return v, alg, err
}

// Recursive calcula f(n) consultando o memo antes de recursar.
// A profundidade da recursão é limitada por n.
func (e *Engine) Recursive(n int) (*big.Int, error) {
	if n < 0 {
		return nil, domain.ErrInvalidInput
	}
	return new(big.Int).Set(e.recurse(n)), nil
}

func (e *Engine) recurse(n int) *big.Int {
	if n < 2 {
		return big.NewInt(int64(n))
	}

	e.mu.RLock()
	v, ok := e.memo[n]
	e.mu.RUnlock()
	if ok {
		return v
	}

	v = new(big.Int).Add(e.recurse(n-1), e.recurse(n-2))
	v.Add(v, big.NewInt(int64(n)))

	// duas escritas concorrentes do mesmo n gravam o mesmo valor.
	e.mu.Lock()
	e.memo[n] = v
	e.mu.Unlock()
	return v
}

// MemoSize retorna quantos valores estão memoizados.
func (e *Engine) MemoSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.memo)
}

// Iterative calcula f(n) em uma passada guardando só os dois últimos valores.
func Iterative(n int) (*big.Int, error) {
	if n < 0 {
		return nil, domain.ErrInvalidInput
	}
	if n < 2 {
		return big.NewInt(int64(n)), nil
	}

	prev, cur := big.NewInt(0), big.NewInt(1)
	i := new(big.Int)
	for k := 2; k <= n; k++ {
		i.SetInt64(int64(k))
		next := new(big.Int).Add(cur, prev)
		next.Add(next, i)
		prev, cur = cur, next
	}
	return cur, nil
}
