package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ppiankov/chronosight/internal/cache"
	"github.com/ppiankov/chronosight/internal/model"
)

// CachedResolver serves repeated lookups of the same location from a cache.
// Only validated contexts are stored; failures always reach the provider
// again on the next call.
type CachedResolver struct {
	next   Resolver
	cache  cache.Cache
	scope  string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedResolver wraps next. scope keeps entries of different providers
// and models apart.
func NewCachedResolver(next Resolver, c cache.Cache, scope string, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedResolver{next: next, cache: c, scope: scope, ttl: ttl, logger: logger}
}

// Resolve returns the cached context for req or asks the wrapped resolver
func (r *CachedResolver) Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error) {
	key := cache.ContextKey(req, r.scope)

	if data, ok := r.cache.Get(key); ok {
		var hc model.HistoricalContext
		if err := json.Unmarshal(data, &hc); err == nil {
			r.logger.Debug("cache hit", "identifier", req.Identifier())
			return &hc, nil
		}
		_ = r.cache.Delete(key)
	}

	hc, err := r.next.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(hc); err == nil {
		if err := r.cache.Set(key, data, r.ttl); err != nil {
			r.logger.Warn("cache write failed", "error", err)
		}
	}
	return hc, nil
}
