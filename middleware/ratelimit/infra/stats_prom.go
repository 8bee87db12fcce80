package infra

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"magic-math-gateway/middleware/ratelimit/domain"
)

// PromStatsStore são os contadores de servidor do rate limit. Todo check conta,
// inclusive os bloqueados.
type PromStatsStore struct {
	checks *prometheus.CounterVec
}

func NewPromStatsStore() *PromStatsStore {
	return &PromStatsStore{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magicmath_ratelimit_checks_total",
			Help: "Checks do rate limit por backend e resultado (allowed/limited).",
		}, []string{"backend", "outcome"}),
	}
}

func (s *PromStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := "limited"
	if ev.Allowed {
		outcome = "allowed"
	}
	s.checks.WithLabelValues(ev.Backend, outcome).Inc()
	return nil
}

func (s *PromStatsStore) Describe(ch chan<- *prometheus.Desc) { s.checks.Describe(ch) }
func (s *PromStatsStore) Collect(ch chan<- prometheus.Metric) { s.checks.Collect(ch) }

// MultiStats repassa o evento para todos os stores e devolve o primeiro erro.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
