package ratelimit

import (
	"net/http"
	"time"

	"magic-math-gateway/middleware/ratelimit/application"
	"magic-math-gateway/middleware/ratelimit/domain"
	"magic-math-gateway/middleware/ratelimit/infra"
)

// ConcurrencyOptions limita quantos requests são atendidos ao mesmo tempo.
// Max <= 0 desliga o limite.
type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// Pool substitui o semáforo padrão (infra.NewChanPool(Max)).
	Pool domain.SlotPool
	// Service, quando definido, ignora Pool e AcquireTimeout.
	Service *application.ConcurrencyService
	// OnReject escreve a resposta quando não há vaga. Padrão: http.Error com StatusText.
	OnReject func(w http.ResponseWriter, r *http.Request)
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.OnReject == nil {
		opts.OnReject = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
		}
	}

	if opts.Pool == nil && opts.Service == nil {
		opts.Pool = infra.NewChanPool(opts.Max)
	}
	svc := opts.Service
	if svc == nil {
		svc = &application.ConcurrencyService{
			Pool:           opts.Pool,
			AcquireTimeout: opts.AcquireTimeout,
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !svc.Do(r.Context(), func() { next.ServeHTTP(w, r) }) {
				opts.OnReject(w, r)
			}
		})
	}
}
