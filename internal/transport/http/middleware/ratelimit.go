package httpmw

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/pkg/httputil"
)

type RateLimiterOptions struct {
	Limit rate.Limit // запросов в секунду
	Burst int
	// сколько держать limiter клиента после последнего запроса
	ExpiryDuration time.Duration
	// ключ лимита; по умолчанию id пользователя, иначе IP
	KeyFunc func(*http.Request) string
}

func DefaultRateLimiterOptions() RateLimiterOptions {
	return RateLimiterOptions{
		Limit:          5,
		Burst:          10,
		ExpiryDuration: time.Hour,
		KeyFunc:        userOrIP,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	mu      sync.Mutex
	opts    RateLimiterOptions
	clients map[string]*client
	now     func() time.Time
}

func NewRateLimiter(opts RateLimiterOptions) *RateLimiter {
	def := DefaultRateLimiterOptions()
	if opts.Limit <= 0 {
		opts.Limit = def.Limit
	}
	if opts.Burst <= 0 {
		opts.Burst = def.Burst
	}
	if opts.ExpiryDuration <= 0 {
		opts.ExpiryDuration = def.ExpiryDuration
	}
	if opts.KeyFunc == nil {
		opts.KeyFunc = def.KeyFunc
	}
	return &RateLimiter{opts: opts, clients: make(map[string]*client), now: time.Now}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.opts.KeyFunc(r)
		if !l.limiter(key).Allow() {
			metrics.RateLimitHits.WithLabelValues(routePattern(r)).Inc()
			httputil.L(r.Context()).Warn("rate limit exceeded", "client", key)

			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.opts.Burst))
			httputil.Error(r.Context(), w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.opts.Limit, l.opts.Burst)}
		l.clients[key] = c
	}
	c.lastSeen = l.now()
	return c.limiter
}

// Cleanup раз в минуту выкидывает протухшие limiter'ы до отмены ctx.
func (l *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

func (l *RateLimiter) evict() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.opts.ExpiryDuration)
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

func userOrIP(r *http.Request) string {
	if uid := UserIDFromCtx(r.Context()); uid != 0 {
		return "user:" + strconv.FormatInt(uid, 10)
	}
	return "ip:" + r.RemoteAddr
}
