package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"magic-math-gateway/magicmath/application"
	"magic-math-gateway/magicmath/domain"
	"magic-math-gateway/magicmath/engine"
	"magic-math-gateway/middleware/ratelimit/infra"
	"magic-math-gateway/middleware/requestlog"
)

const (
	DefaultMaxInput      = 100000
	DefaultMaxBatch      = 1000
	DefaultBenchmarkRuns = 3

	msgInvalidPath = "Invalid path. Use /:number format."
)

var numberPath = regexp.MustCompile(`^/(-?\d+)$`)

// StatsSource é qualquer store de estatísticas do rate limit com totais.
type StatsSource interface {
	Totals(ctx context.Context) (infra.Counters, error)
}

type Handler struct {
	orch     *application.Orchestrator
	log      logrus.FieldLogger
	gatherer prometheus.Gatherer
	stats    StatsSource

	maxInput      int
	maxBatch      int
	benchInputs   []int
	benchmarkRuns int

	mux *http.ServeMux
}

type Option func(*Handler)

// WithMaxInput limita n; 0 desliga o limite.
func WithMaxInput(n int) Option {
	return func(h *Handler) { h.maxInput = n }
}

func WithMaxBatch(n int) Option {
	return func(h *Handler) { h.maxBatch = n }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Handler) { h.log = log }
}

// WithGatherer habilita /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) { h.gatherer = g }
}

// WithStats habilita /stats.
func WithStats(s StatsSource) Option {
	return func(h *Handler) { h.stats = s }
}

func WithBenchmark(inputs []int, runs int) Option {
	return func(h *Handler) {
		h.benchInputs = inputs
		h.benchmarkRuns = runs
	}
}

func NewHandler(orch *application.Orchestrator, opts ...Option) *Handler {
	h := &Handler{
		orch:          orch,
		log:           logrus.WithField("category", "api"),
		maxInput:      DefaultMaxInput,
		maxBatch:      DefaultMaxBatch,
		benchInputs:   engine.DefaultBenchmarkInputs,
		benchmarkRuns: DefaultBenchmarkRuns,
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.usage)
	mux.HandleFunc("GET /benchmark", h.benchmark)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /batch", h.batch)
	if h.stats != nil {
		mux.HandleFunc("GET /stats", h.statsTotals)
	}
	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", h.compute)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.mux.ServeHTTP(w, r) }

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Magic Math API",
		"usage":   "GET /:number - Calculate magic math for a given number",
		"batch":   `POST /batch {"numbers": [1, 2, 3]}`,
		"example": "curl http://" + r.Host + "/5",
		"note": fmt.Sprintf("For large numbers (n >= %d), an iterative algorithm is used to avoid stack overflow",
			h.orch.Threshold()),
	})
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		return
	}
	m := numberPath.FindStringSubmatch(r.URL.Path)
	if m == nil {
		writeError(w, http.StatusBadRequest, msgInvalidPath)
		return
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		// só acontece com overflow de int
		if strings.HasPrefix(m[1], "-") {
			writeError(w, http.StatusBadRequest, domain.ErrInvalidInput.Error())
			return
		}
		writeError(w, http.StatusBadRequest, h.tooLarge())
		return
	}
	if n >= 0 && h.maxInput > 0 && n > h.maxInput {
		writeError(w, http.StatusBadRequest, h.tooLarge())
		return
	}

	res, err := h.orch.ComputeWithCache(r.Context(), n)
	if err != nil {
		h.reject(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) tooLarge() string {
	if h.maxInput <= 0 {
		return domain.ErrInvalidInput.Error()
	}
	return fmt.Sprintf("Input must be at most %d", h.maxInput)
}

type batchRequest struct {
	Numbers []any `json:"numbers"`
}

type batchResponse struct {
	Results []domain.BatchItem `json:"results"`
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.UseNumber()

	var req batchRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Numbers == nil {
		writeError(w, http.StatusBadRequest, `Body must be {"numbers": [...]}`)
		return
	}
	if h.maxBatch > 0 && len(req.Numbers) > h.maxBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Batch must have at most %d numbers", h.maxBatch))
		return
	}

	inputs, capped := h.capInputs(req.Numbers)
	items := h.orch.ComputeBatch(r.Context(), inputs)
	for _, i := range capped {
		items[i].Input = req.Numbers[i]
		items[i].Err = errors.New(h.tooLarge())
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: items})
}

// capInputs troca itens acima de maxInput por nil, que o batch rejeita sem
// calcular, e devolve as posições trocadas.
func (h *Handler) capInputs(in []any) ([]any, []int) {
	if h.maxInput <= 0 {
		return in, nil
	}
	var (
		out    []any
		capped []int
	)
	for i, v := range in {
		n, err := domain.ParseInput(v)
		if err != nil || n <= h.maxInput {
			continue
		}
		if out == nil {
			out = append([]any(nil), in...)
		}
		out[i] = nil
		capped = append(capped, i)
	}
	if out == nil {
		return in, nil
	}
	return out, capped
}

type benchmarkResponse struct {
	Message   string                `json:"message"`
	Threshold int                   `json:"threshold"`
	Tests     []engine.BenchmarkRow `json:"tests"`
}

func (h *Handler) benchmark(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, benchmarkResponse{
		Message:   "Magic Math Benchmark",
		Threshold: h.orch.Threshold(),
		Tests:     engine.Benchmark(h.benchInputs, h.benchmarkRuns),
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Connected bool   `json:"connected"`
}

// health responde 200 mesmo com o cache fora; o cache é só otimização.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	res := healthResponse{
		Status:    "ok",
		Backend:   h.orch.CacheBackend(),
		Connected: h.orch.CacheConnected(),
	}
	if res.Backend != "none" && !res.Connected {
		res.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) statsTotals(w http.ResponseWriter, r *http.Request) {
	c, err := h.stats.Totals(r.Context())
	if err != nil {
		requestlog.Logger(r.Context(), h.log).WithError(err).Warn("reading rate limit stats")
		writeError(w, http.StatusServiceUnavailable, "Stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	requestlog.Logger(r.Context(), h.log).WithError(err).Error("compute failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
