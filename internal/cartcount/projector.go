package cartcount

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const defaultTTL = 24 * time.Hour

// LineCounter reports how many lines the owner's cart currently holds.
type LineCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type countCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartCountKey(userID string) string
}

// Projector keeps a cached per-owner cart line count for badges and
// headers. It only reads the cart.
type Projector struct {
	source LineCounter
	cache  countCache
	ttl    time.Duration
	logg   *logger.Logger
	group  singleflight.Group
}

// NewProjector wires the projector; a non-positive ttl falls back to 24h.
func NewProjector(source LineCounter, cache countCache, ttl time.Duration, logg *logger.Logger) (*Projector, error) {
	if source == nil {
		return nil, fmt.Errorf("line counter required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Projector{source: source, cache: cache, ttl: ttl, logg: logg}, nil
}

// Count returns the cached count, recomputing it on a miss.
func (p *Projector) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	raw, err := p.cache.Get(ctx, p.cache.CartCountKey(userID.String()))
	if err == nil {
		if count, convErr := strconv.Atoi(raw); convErr == nil {
			return count, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "cartcount.cache_read_failed")
	}
	return p.Refresh(ctx, userID)
}

// Refresh recomputes the count from the cart and stores it. Concurrent
// refreshes for the same owner share one read.
func (p *Projector) Refresh(ctx context.Context, userID uuid.UUID) (int, error) {
	v, err, _ := p.group.Do(userID.String(), func() (any, error) {
		count, err := p.source.CountByUser(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("count cart lines: %w", err)
		}
		p.store(ctx, userID, count)
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// CartChanged records the count reported by the cart after a mutation.
func (p *Projector) CartChanged(ctx context.Context, userID uuid.UUID, itemCount int) {
	p.store(ctx, userID, itemCount)
}

func (p *Projector) store(ctx context.Context, userID uuid.UUID, count int) {
	key := p.cache.CartCountKey(userID.String())
	if err := p.cache.Set(ctx, key, count, p.ttl); err != nil {
		logCtx := p.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "error": err.Error()})
		p.logg.Warn(logCtx, "cartcount.cache_write_failed")
		// a stale value is worse than a miss
		_ = p.cache.Del(ctx, key)
	}
}
