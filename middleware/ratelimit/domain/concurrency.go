package domain

import "context"

// SlotPool representa um recurso com capacidade finita (requests em atendimento).
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar. Ao adquirir,
// retorna um release que deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
