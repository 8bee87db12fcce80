package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Window é a janela fixa de um identificador: Count requisições até ResetAt.
type Window struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"resetAt"`
}

// Expired diz se a janela já terminou em now (resetAt <= now).
func (w Window) Expired(now time.Time) bool { return !w.ResetAt.After(now) }

// Advance aplica uma requisição em now: abre janela nova {1, now+size} se não
// houver janela ativa, senão incrementa Count mantendo ResetAt.
//
// É a regra única usada pelos dois backends.
func Advance(w *Window, now time.Time, size time.Duration) Window {
	if w == nil || w.Expired(now) {
		return Window{Count: 1, ResetAt: now.Add(size)}
	}
	return Window{Count: w.Count + 1, ResetAt: w.ResetAt}
}

// WindowStore guarda janelas por chave.
//
// Observação: a implementação pode ser externa (Redis via Cache Store) ou em memória.
// Hit aplica Advance e devolve a janela resultante.
type WindowStore interface {
	Name() string
	Available() bool
	Hit(ctx context.Context, key Key, now time.Time, size time.Duration) (Window, error)
}

// Result é o resultado de um check.
type Result struct {
	Limited   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
	Backend   string
}

// Evaluate converte a janela em Result para capacidade max.
func Evaluate(w Window, max int) Result {
	remaining := max - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Limited:   w.Count > max,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
		Limit:     max,
	}
}

// RetryAfter é o tempo até a janela reabrir, arredondado para cima em segundos.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return ((d + time.Second - 1) / time.Second) * time.Second
}
