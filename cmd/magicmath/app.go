package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"magic-math-gateway/cache"
	"magic-math-gateway/magicmath/api"
	"magic-math-gateway/magicmath/application"
	"magic-math-gateway/magicmath/engine"
	"magic-math-gateway/middleware/ratelimit"
	rlapp "magic-math-gateway/middleware/ratelimit/application"
	rldomain "magic-math-gateway/middleware/ratelimit/domain"
	"magic-math-gateway/middleware/ratelimit/infra"
	"magic-math-gateway/middleware/requestlog"
)

// app é o grafo de dependências montado a partir da config.
type app struct {
	cfg config
	log *logrus.Logger

	store   cache.Store
	redis   *cache.RedisStore
	memory  *cache.MemoryStore
	windows *infra.MemoryWindowStore
	slots   *infra.ChanPool
	busy    *rlapp.ConcurrencyService
	orch    *application.Orchestrator
	limiter *rlapp.Service

	stats    api.StatsSource
	registry *prometheus.Registry
	closers  []func() error
}

func newApp(cfg config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	switch cfg.CacheBackend {
	case backendRedis:
		rs, err := cache.NewRedisStore(cfg.RedisURL,
			cache.WithTimeout(cfg.RedisTimeout),
			cache.WithLogger(log.WithField("category", "cache")),
		)
		if err != nil {
			return nil, err
		}
		a.redis, a.store = rs, rs
		a.closers = append(a.closers, rs.Close)
	case backendMemory:
		a.memory = cache.NewMemoryStore()
		a.store = a.memory
		a.closers = append(a.closers, a.memory.Close)
	}

	eng := engine.New(engine.WithThreshold(cfg.LargeInputThreshold))
	opts := []application.Option{
		application.WithKeyPrefix(cfg.CacheKeyPrefix),
		application.WithTTL(cfg.CacheTTL),
		application.WithLogger(log.WithField("category", "orchestrator")),
	}
	a.orch = application.NewOrchestrator(eng, a.store, opts...)
	a.registry.MustRegister(a.orch)

	if cfg.ConcurrencyMax > 0 {
		a.slots = infra.NewChanPool(cfg.ConcurrencyMax)
		a.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "magicmath_inflight_requests",
			Help: "Requests ocupando uma vaga do limite de concorrência.",
		}, func() float64 { return float64(a.slots.InUse()) }))

		a.busy = &rlapp.ConcurrencyService{Pool: a.slots, AcquireTimeout: cfg.ConcurrencyTimeout}
		a.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "magicmath_concurrency_rejections_total",
			Help: "Requests recusados por falta de vaga.",
		}, func() float64 { return float64(a.busy.Rejected()) }))
	}

	if cfg.RateLimitEnabled {
		if err := a.buildLimiter(); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) buildLimiter() error {
	a.windows = infra.NewMemoryWindowStore(infra.WithSweepEvery(a.cfg.RateLimitWindow))

	var primary rldomain.WindowStore
	if a.store != nil {
		primary = infra.NewCacheWindowStore(a.store, a.cfg.RateLimitKeyPrefix)
	}
	svc := rlapp.NewService(primary, a.windows, a.cfg.RateLimitMax, a.cfg.RateLimitWindow)
	svc.Log = a.log.WithField("category", "ratelimit")

	prom := infra.NewPromStatsStore()
	a.registry.MustRegister(prom)
	stats := infra.MultiStats{prom}

	if a.cfg.RateStatsEnabled {
		opt, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parsing REDIS_URL for rate stats")
		}
		opt.DialTimeout = a.cfg.RedisTimeout
		opt.ReadTimeout, opt.WriteTimeout = a.cfg.RedisTimeout, a.cfg.RedisTimeout
		opt.MaxRetries = -1
		opt.ContextTimeoutEnabled = true
		rdb := redis.NewClient(opt)
		a.closers = append(a.closers, rdb.Close)

		rs := infra.NewRedisStatsStore(rdb,
			infra.WithStatsPrefix(a.cfg.RateStatsPrefix),
			infra.WithStatsTTL(a.cfg.RateStatsTTL),
			infra.WithStatsBucket(a.cfg.RateStatsBucket),
			infra.WithStatsTrackKeys(a.cfg.RateStatsTrackKeys),
			infra.WithStatsGate(a.store.IsConnected),
			infra.WithStatsTimeout(a.cfg.RedisTimeout),
		)
		stats = append(stats, rs)
		a.stats = rs
	}
	svc.Stats = stats
	a.limiter = svc
	return nil
}

// start conecta o cache e sobe as goroutines de manutenção; todas param com ctx.
func (a *app) start(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Init(ctx); err != nil {
			a.log.WithError(err).Warn("redis unavailable at startup, serving without cache")
		}
		a.redis.StartReconnector(ctx, a.cfg.RedisReconnectEvery)
	}
	if a.memory != nil {
		a.memory.StartJanitor(ctx, time.Minute)
	}
	if a.windows != nil {
		a.windows.StartJanitor(ctx)
	}
}

// handler monta a cadeia: request log -> rate limit -> concorrência -> API.
func (a *app) handler() http.Handler {
	opts := []api.Option{
		api.WithMaxInput(a.cfg.MaxInput),
		api.WithGatherer(a.registry),
		api.WithLogger(a.log.WithField("category", "api")),
	}
	if a.stats != nil {
		opts = append(opts, api.WithStats(a.stats))
	}

	h := http.Handler(api.NewHandler(a.orch, opts...))
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:      a.cfg.ConcurrencyMax,
		Service:  a.busy,
		OnReject: api.Overloaded,
	})(h)
	if a.limiter != nil {
		h = ratelimit.Middleware(ratelimit.Options{
			Service:   a.limiter,
			OnLimited: api.RateLimited,
		})(h)
	}
	return requestlog.Middleware(requestlog.Options{Log: a.log.WithField("category", "http")})(h)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("closing")
		}
	}
	a.closers = nil
}
