package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"book-recommender/internal/common/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter enforces a minimum spacing between upstream catalog calls. Wait
// blocks until the caller may issue its request. Implementations are safe for
// concurrent use.
type Limiter interface {
	Wait(ctx context.Context) error
}

// LocalLimiter is an in-process token bucket holding a single token that
// refills once per interval.
type LocalLimiter struct {
	mu    sync.Mutex
	lim   *rate.Limiter
	clock Clock
}

func NewLocalLimiter(interval time.Duration, clock Clock) *LocalLimiter {
	if clock == nil {
		clock = SystemClock{}
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &LocalLimiter{
		lim:   rate.NewLimiter(limit, 1),
		clock: clock,
	}
}

func (l *LocalLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := l.clock.Now()
	r := l.lim.ReserveN(now, 1)
	l.mu.Unlock()

	if !r.OK() {
		return fmt.Errorf("rate limiter cannot grant a token")
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := l.clock.Sleep(ctx, delay); err != nil {
		l.mu.Lock()
		r.CancelAt(l.clock.Now())
		l.mu.Unlock()
		return err
	}
	return nil
}

// RedisLimiter shares the spacing across every worker process. Holding the
// key means the last call happened less than one interval ago; the key
// expires exactly one interval after it was taken.
type RedisLimiter struct {
	client   redis.Cmdable
	key      string
	interval time.Duration
	clock    Clock
	fallback Limiter
	logger   logger.Logger
}

func NewRedisLimiter(client redis.Cmdable, key string, interval time.Duration, clock Clock, log logger.Logger) *RedisLimiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RedisLimiter{
		client:   client,
		key:      key,
		interval: interval,
		clock:    clock,
		fallback: NewLocalLimiter(interval, clock),
		logger:   log,
	}
}

// minPoll stops a vanished TTL from turning the wait loop into a busy spin.
const minPoll = 10 * time.Millisecond

func (l *RedisLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := l.client.SetNX(ctx, l.key, l.clock.Now().UnixMilli(), l.interval).Result()
		if err != nil {
			l.logger.Warn("shared limiter unavailable, spacing locally", map[string]interface{}{
				"key":   l.key,
				"error": err,
			})
			return l.fallback.Wait(ctx)
		}
		if ok {
			return nil
		}

		ttl, err := l.client.PTTL(ctx, l.key).Result()
		if err != nil {
			l.logger.Warn("shared limiter ttl lookup failed, spacing locally", map[string]interface{}{
				"key":   l.key,
				"error": err,
			})
			return l.fallback.Wait(ctx)
		}
		if ttl < minPoll {
			ttl = minPoll
		}
		if err := l.clock.Sleep(ctx, ttl); err != nil {
			return err
		}
	}
}
