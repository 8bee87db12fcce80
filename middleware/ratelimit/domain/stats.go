package domain

import (
	"context"
	"strings"
	"time"
)

// StatsEvent representa um check do rate limit, bloqueado ou não.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Path sem controle pode
// explodir o número de séries/chaves em uma base como Redis/Prometheus).
type StatsEvent struct {
	Key     Key
	Allowed bool
	Backend string

	Method string
	Path   string

	At time.Time
}

// Outcome é o nome do contador do evento: "allowed" ou "denied".
func (e StatsEvent) Outcome() string {
	if e.Allowed {
		return "allowed"
	}
	return "denied"
}

// Route é "METHOD path", ou "" quando o check não veio de um request HTTP.
func (e StatsEvent) Route() string {
	return strings.TrimSpace(strings.TrimSpace(e.Method) + " " + strings.TrimSpace(e.Path))
}

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// Erro é best-effort: nunca derruba o request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
