package application

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"magic-math-gateway/middleware/ratelimit/domain"
)

const (
	DefaultLimit  = 100
	DefaultWindow = 60 * time.Second
)

// Service concentra a regra de aplicação do rate limit (janela fixa).
//
// Ele não sabe nada sobre HTTP (status), apenas retorna o resultado e os headers.
// Primary é o backend externo; quando indisponível (ou se falhar no meio do check)
// o Fallback em memória atende. Janelas fixas deixam passar até 2x Limit na virada
// de janela; é o comportamento esperado.
type Service struct {
	Primary  domain.WindowStore
	Fallback domain.WindowStore
	Stats    domain.StatsStore

	Limit  int
	Window time.Duration

	Now func() time.Time
	Log logrus.FieldLogger

	warn *rate.Sometimes
}

// NewService monta o serviço com o aviso de fallback limitado a um a cada 10s.
func NewService(primary, fallback domain.WindowStore, limit int, window time.Duration) *Service {
	return &Service{
		Primary:  primary,
		Fallback: fallback,
		Limit:    limit,
		Window:   window,
		warn:     &rate.Sometimes{Interval: 10 * time.Second},
	}
}

func (s *Service) limit() int {
	if s.Limit <= 0 {
		return DefaultLimit
	}
	return s.Limit
}

func (s *Service) window() time.Duration {
	if s.Window <= 0 {
		return DefaultWindow
	}
	return s.Window
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Clock é o "agora" usado pelo serviço (Retry-After precisa do mesmo relógio).
func (s *Service) Clock() time.Time { return s.now() }

func (s *Service) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.WithField("category", "ratelimit")
	}
	return s.Log
}

// Check aplica uma requisição de key e retorna o resultado. Sempre conta, mesmo
// quando o resultado é limited.
func (s *Service) Check(ctx context.Context, key domain.Key) domain.Result {
	now, limit, size := s.now(), s.limit(), s.window()

	store := s.pick()
	if store == nil {
		return domain.Result{Remaining: limit, ResetAt: now.Add(size), Limit: limit, Backend: "none"}
	}

	w, err := store.Hit(ctx, key, now, size)
	if err != nil && s.Fallback != nil && store != s.Fallback {
		s.warnf(err, store.Name())
		store = s.Fallback
		w, err = store.Hit(ctx, key, now, size)
	}
	if err != nil {
		// sem backend nenhum não há o que contar: deixa passar.
		s.log().WithError(err).Error("rate limit check failed")
		return domain.Result{Remaining: limit, ResetAt: now.Add(size), Limit: limit, Backend: store.Name()}
	}

	res := domain.Evaluate(w, limit)
	res.Backend = store.Name()
	return res
}

func (s *Service) warnf(err error, backend string) {
	entry := s.log().WithError(err).WithField("backend", backend)
	if s.warn == nil {
		entry.Warn("rate limit backend failed, using fallback")
		return
	}
	s.warn.Do(func() { entry.Warn("rate limit backend failed, using fallback") })
}

func (s *Service) pick() domain.WindowStore {
	if s.Primary != nil && s.Primary.Available() {
		return s.Primary
	}
	return s.Fallback
}

// Apply é o Check com os headers de resposta já montados:
// X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset (unix s) e X-RateLimit-Backend.
//
// Também registra o evento em Stats (quando definido), inclusive quando limited.
func (s *Service) Apply(ctx context.Context, key domain.Key) (bool, map[string]string) {
	res := s.Check(ctx, key)
	s.record(ctx, key, res, "", "")
	return res.Limited, Headers(res)
}

// ApplyRequest é o Apply com método/rota para as estatísticas.
func (s *Service) ApplyRequest(ctx context.Context, key domain.Key, method, path string) domain.Result {
	res := s.Check(ctx, key)
	s.record(ctx, key, res, method, path)
	return res
}

func (s *Service) record(ctx context.Context, key domain.Key, res domain.Result, method, path string) {
	if s.Stats == nil {
		return
	}
	err := s.Stats.Record(ctx, domain.StatsEvent{
		Key:     key,
		Allowed: !res.Limited,
		Backend: res.Backend,
		Method:  method,
		Path:    path,
		At:      s.now(),
	})
	if err != nil {
		s.log().WithError(err).Debug("recording rate limit stats")
	}
}

func Headers(res domain.Result) map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(res.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(res.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(res.ResetAt.Unix(), 10),
		"X-RateLimit-Backend":   res.Backend,
	}
}
