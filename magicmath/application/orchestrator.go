package application

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"

	"magic-math-gateway/cache"
	"magic-math-gateway/magicmath/domain"
	"magic-math-gateway/magicmath/engine"
)

const (
	DefaultKeyPrefix = "magic_math:"
	DefaultTTL       = 3600 * time.Second
)

// Orchestrator implementa o cache-aside em volta do engine.
//
// O cache é só otimização: sem ele (nil ou desconectado) o resultado é o mesmo,
// só muda a proveniência. Não há single-flight; dois misses concorrentes do mesmo n
// calculam e gravam o mesmo valor.
type Orchestrator struct {
	engine    *engine.Engine
	store     cache.Store
	keyPrefix string
	ttl       time.Duration
	log       logrus.FieldLogger

	results *prometheus.CounterVec
}

type Option func(*Orchestrator)

func WithKeyPrefix(prefix string) Option {
	return func(o *Orchestrator) { o.keyPrefix = prefix }
}

func WithTTL(d time.Duration) Option {
	return func(o *Orchestrator) { o.ttl = d }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator aceita store nil (sempre miss).
func NewOrchestrator(eng *engine.Engine, store cache.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:    eng,
		store:     store,
		keyPrefix: DefaultKeyPrefix,
		ttl:       DefaultTTL,
		log:       logrus.WithField("category", "orchestrator"),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magicmath_results_total",
			Help: "Resultados servidos, por algoritmo e proveniência.",
		}, []string{"algorithm", "provenance"}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Threshold é o n a partir do qual o engine usa a estratégia iterativa.
func (o *Orchestrator) Threshold() int { return o.engine.Threshold() }

func (o *Orchestrator) Key(n int) string { return o.keyPrefix + strconv.Itoa(n) }

// ComputeWithCache só falha com domain.ErrInvalidInput.
func (o *Orchestrator) ComputeWithCache(ctx context.Context, n int) (domain.ComputeResult, error) {
	if n < 0 {
		return domain.ComputeResult{}, domain.ErrInvalidInput
	}
	key := o.Key(n)
	connected := o.store != nil && o.store.IsConnected()

	if connected {
		if res, ok := o.lookup(ctx, key, n); ok {
			o.count(res)
			return res, nil
		}
	}

	v, alg, err := o.engine.Compute(n)
	if err != nil {
		return domain.ComputeResult{}, err
	}
	res := domain.ComputeResult{Input: n, Result: v, Algorithm: alg, Provenance: domain.Miss}

	if connected {
		o.writeBack(ctx, key, res)
	}
	o.count(res)
	return res, nil
}

func (o *Orchestrator) lookup(ctx context.Context, key string, n int) (domain.ComputeResult, bool) {
	b, err := o.store.Get(ctx, key)
	switch {
	case err == nil:
	case cache.IsMiss(err):
		return domain.ComputeResult{}, false
	default:
		o.log.WithError(err).WithField("key", key).Warn("cache get failed, computing")
		return domain.ComputeResult{}, false
	}

	var res domain.ComputeResult
	if err := json.Unmarshal(b, &res); err != nil || res.Result == nil || res.Input != n {
		o.log.WithField("key", key).Warn("discarding unreadable cache entry")
		_ = o.store.Delete(ctx, key)
		return domain.ComputeResult{}, false
	}
	res.Provenance = domain.Hit
	return res, true
}

func (o *Orchestrator) writeBack(ctx context.Context, key string, res domain.ComputeResult) {
	b, err := json.Marshal(res)
	if err != nil {
		o.log.WithError(err).Error("encoding result for cache")
		return
	}
	if err := o.store.Set(ctx, key, b, o.ttl); err != nil {
		o.log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

func (o *Orchestrator) count(res domain.ComputeResult) {
	o.results.WithLabelValues(string(res.Algorithm), string(res.Provenance)).Inc()
}

// ComputeBatch valida e calcula cada item em paralelo e espera todos.
// A saída tem o mesmo tamanho e ordem da entrada; erro de um item não aborta os outros.
func (o *Orchestrator) ComputeBatch(ctx context.Context, inputs []any) []domain.BatchItem {
	return iter.Map(inputs, func(in *any) domain.BatchItem {
		item := domain.BatchItem{Input: *in}

		n, err := domain.ParseInput(*in)
		if err != nil {
			item.Err = err
			return item
		}
		res, err := o.ComputeWithCache(ctx, n)
		if err != nil {
			item.Err = err
			return item
		}
		item.Result = &res
		return item
	})
}

// CacheConnected é usado pelo health-check.
func (o *Orchestrator) CacheConnected() bool {
	return o.store != nil && o.store.IsConnected()
}

// CacheBackend retorna o nome do backend ou "none".
func (o *Orchestrator) CacheBackend() string {
	if o.store == nil {
		return "none"
	}
	return o.store.Name()
}

func (o *Orchestrator) Describe(ch chan<- *prometheus.Desc) { o.results.Describe(ch) }
func (o *Orchestrator) Collect(ch chan<- prometheus.Metric) { o.results.Collect(ch) }
