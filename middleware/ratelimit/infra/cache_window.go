package infra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"magic-math-gateway/cache"
	"magic-math-gateway/middleware/ratelimit/domain"
)

// CacheWindowStore guarda as janelas no Cache Store externo, uma chave por
// identificador, com TTL igual ao tempo restante da janela. Quem expira é o store.
//
// Get seguido de Set não é atômico: sob rajada concorrente a contagem é aproximada.
type CacheWindowStore struct {
	store  cache.Store
	prefix string
}

func NewCacheWindowStore(store cache.Store, prefix string) *CacheWindowStore {
	if prefix == "" {
		prefix = "rate_limit:"
	}
	return &CacheWindowStore{store: store, prefix: prefix}
}

func (s *CacheWindowStore) Name() string    { return s.store.Name() }
func (s *CacheWindowStore) Available() bool { return s.store.IsConnected() }

func (s *CacheWindowStore) Hit(ctx context.Context, key domain.Key, now time.Time, size time.Duration) (domain.Window, error) {
	k := s.prefix + string(key)

	var cur *domain.Window
	b, err := s.store.Get(ctx, k)
	switch {
	case err == nil:
		var w domain.Window
		if jerr := json.Unmarshal(b, &w); jerr == nil {
			cur = &w
		}
	case cache.IsMiss(err):
	default:
		return domain.Window{}, err
	}

	next := domain.Advance(cur, now, size)

	raw, err := json.Marshal(next)
	if err != nil {
		return domain.Window{}, errors.Wrap(err, "encoding window")
	}
	if err := s.store.Set(ctx, k, raw, ttlFor(next, now)); err != nil {
		return domain.Window{}, err
	}
	return next, nil
}

// ttlFor arredonda o tempo restante para cima em segundos, mínimo 1s.
func ttlFor(w domain.Window, now time.Time) time.Duration {
	d := w.ResetAt.Sub(now)
	secs := (d + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}
