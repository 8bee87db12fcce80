package requestlog

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const HeaderTraceID = "X-Trace-ID"

type ctxKey struct{}

// TraceID retorna o trace ID do request, ou "" fora do middleware.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger retorna o logger do request, já com trace_id. Fora do middleware
// devolve fallback.
func Logger(ctx context.Context, fallback logrus.FieldLogger) logrus.FieldLogger {
	if id := TraceID(ctx); id != "" {
		return fallback.WithField("trace_id", id)
	}
	return fallback
}

type Options struct {
	Log logrus.FieldLogger
	// NewID gera o trace ID. Padrão: uuid.NewString.
	NewID func() string
}

// statusWriter guarda o status escrito pelo próximo handler.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.status = http.StatusOK
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Log == nil {
		opts.Log = logrus.WithField("category", "http")
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := opts.NewID()

			entry := opts.Log.WithFields(logrus.Fields{
				"trace_id":   id,
				"method":     r.Method,
				"path":       r.URL.Path,
				"user_agent": userAgent(r),
			})
			entry.Info("request received")

			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))
			r.Header.Set(HeaderTraceID, id)
			w.Header().Set(HeaderTraceID, id)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				rec := recover()
				if rec == nil {
					entry.WithFields(logrus.Fields{
						"status":   sw.status,
						"duration": time.Since(start).String(),
					}).Info("request completed")
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				entry.WithFields(logrus.Fields{
					"error":    rec,
					"stack":    string(debug.Stack()),
					"duration": time.Since(start).String(),
				}).Error("request failed")

				// com o header já enviado não há como trocar o status.
				if sw.written {
					return
				}
				sw.Header().Set("Content-Type", "application/json")
				sw.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(sw).Encode(map[string]string{
					"error":   "Internal server error",
					"traceId": id,
				})
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

func userAgent(r *http.Request) string {
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return "unknown"
}
