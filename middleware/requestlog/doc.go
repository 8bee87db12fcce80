// Package requestlog registra cada request com um trace ID.
//
// O trace ID (UUID v4) vai no contexto do request, no header X-Trace-ID da resposta
// e em todas as linhas de log do request. Panics no handler viram 500 em JSON com
// o mesmo trace ID.
//
// Exemplo:
//
//	h = requestlog.Middleware(requestlog.Options{Log: log})(h)
package requestlog
