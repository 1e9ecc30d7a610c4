package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"helpdesk/internal/flash"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter считает попытки по ключу в фиксированном окне.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter — общий счётчик для нескольких экземпляров сервиса.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: int64(limit), window: window}
}

// Allow: INCR и TTL идут одной транзакцией. Ключ без TTL (новый или оставшийся
// после неудачного EXPIRE) получает окно заново, иначе счётчик не сбросится никогда.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "helpdesk:ratelimit:" + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}

	if ttl.Val() < 0 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	return incr.Val() <= l.limit, nil
}

type window struct {
	count int
	start time.Time
}

// MemoryLimiter — для одного экземпляра, когда Redis не настроен.
type MemoryLimiter struct {
	mu     sync.Mutex
	hits   map[string]*window
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(limit int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		hits:   make(map[string]*window),
		limit:  limit,
		window: win,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.hits[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &window{start: now}
		l.hits[key] = w
		l.sweep(now)
	}
	w.count++
	return w.count <= l.limit, nil
}

// sweep убирает старые окна, чтобы карта не росла бесконечно.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.hits {
		if now.Sub(w.start) >= l.window {
			delete(l.hits, k)
		}
	}
}

// LoginThrottle ограничивает попытки входа с одного IP.
// Если счётчик недоступен, вход не блокируется.
func LoginThrottle(l Limiter, fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "login:" + c.FullPath() + ":" + c.ClientIP()
		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Msg("login throttle unavailable")
			c.Next()
			return
		}
		if !ok {
			flash.Error(c, "Слишком много попыток входа, попробуйте позже")
			c.Redirect(http.StatusFound, fallback)
			c.Abort()
			return
		}
		c.Next()
	}
}
