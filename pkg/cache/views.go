package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noor-academy/backend/pkg/apperr"
)

// Remember returns the view cached at key, or loads it, stores it with ttl
// and returns it. A failing cache only costs a store read. The loaded view is
// not stored when key was invalidated while it loaded.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, logger *zap.Logger, load func(context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		return load(ctx)
	}
	gen, err := c.Generation(ctx, key)
	if err != nil {
		logger.Warn("cache generation read failed", zap.String("key", key), zap.Error(err))
		return load(ctx)
	}
	var v T
	hit, err := c.Get(ctx, key, &v)
	if err != nil {
		logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return v, nil
	}
	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	stored, err := c.SetIfGeneration(ctx, key, gen, v, ttl)
	if err != nil {
		logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	} else if !stored {
		logger.Debug("cache write skipped: invalidated during load", zap.String("key", key))
	}
	return v, nil
}

// Invalidate drops keys and advances their generation. A failure is
// Upstream: the caller's write already happened, but readers could still see
// the old view.
func Invalidate(ctx context.Context, c Cache, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	if err := c.Delete(ctx, keys...); err != nil {
		return apperr.Upstream(err, "cache invalidation failed")
	}
	return nil
}
