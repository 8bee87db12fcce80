package ratelimit

import (
	"net/http"
	"strings"

	"magic-math-gateway/middleware/ratelimit/application"
	"magic-math-gateway/middleware/ratelimit/domain"
)

const (
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderConnectingIP   = "CF-Connecting-IP"
	DefaultClientAddress = "127.0.0.1"
)

type KeyFunc func(r *http.Request) string

type Options struct {
	Service      *application.Service
	KeyFn        KeyFunc
	RejectStatus int
	// OnLimited escreve a resposta de bloqueio. Padrão: http.Error com StatusText.
	OnLimited func(w http.ResponseWriter, r *http.Request, res domain.Result)
}

// DefaultKeyFunc resolve o identificador do cliente nesta ordem:
// primeiro IP do X-Forwarded-For, CF-Connecting-IP, e por fim 127.0.0.1.
//
// A ordem faz parte do contrato: proxies podem sobrescrever a origem aparente.
func DefaultKeyFunc() KeyFunc {
	return HeaderKeyFunc(HeaderForwardedFor, HeaderConnectingIP)
}

// HeaderKeyFunc usa o primeiro header não vazio da lista. Valores com vírgula
// (listas de proxies) contribuem só com o primeiro item, o cliente original.
func HeaderKeyFunc(headers ...string) KeyFunc {
	return func(r *http.Request) string {
		for _, h := range headers {
			v := r.Header.Get(h)
			if v == "" {
				continue
			}
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
		return DefaultClientAddress
	}
}

// Middleware aplica o rate limit antes do próximo handler. Todo response leva os
// headers X-RateLimit-*; quando bloqueado responde RejectStatus com Retry-After.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Service == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc()
	}
	if opts.OnLimited == nil {
		opts.OnLimited = func(w http.ResponseWriter, r *http.Request, _ domain.Result) {
			http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
		}
	}
	svc := opts.Service

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))

			res := svc.ApplyRequest(r.Context(), key, r.Method, r.URL.Path)
			for k, v := range application.Headers(res) {
				w.Header().Set(k, v)
			}

			if res.Limited {
				w.Header().Set("Retry-After", formatSeconds(res.RetryAfter(svc.Clock())))
				opts.OnLimited(w, r, res)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
