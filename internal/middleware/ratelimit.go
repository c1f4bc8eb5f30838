package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unicatolica/registro-huellas/pkg/clientip"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the number of requests allowed per window
	RateLimitMaxRequests = 600
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = time.Hour
)

// RateLimiter counts requests per IP in Redis and blocks an IP that exceeds
// the window budget. Redis failures let the request through.
type RateLimiter struct {
	client   *redis.Client
	max      int64
	window   time.Duration
	blockFor time.Duration
	logger   *slog.Logger
}

func NewRateLimiter(client *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client:   client,
		max:      RateLimitMaxRequests,
		window:   RateLimitWindow,
		blockFor: BlockedIPDuration,
		logger:   logger,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientip.RealClientIP(r)

		blockedKey := BlockedIPKeyPrefix + ip
		blocked, err := rl.client.Exists(ctx, blockedKey).Result()
		if err == nil && blocked > 0 {
			writeJSONError(w, http.StatusTooManyRequests, "Su IP fue bloqueada temporalmente por exceso de solicitudes.")
			return
		}

		key := RateLimitKeyPrefix + ip
		count, err := rl.client.Incr(ctx, key).Result()
		if err == nil && count == 1 {
			err = rl.client.Expire(ctx, key, rl.window).Err()
		}
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if count > rl.max {
			if err := rl.client.Set(ctx, blockedKey, "1", rl.blockFor).Err(); err != nil {
				rl.logger.Warn("failed to block ip", "ip", ip, "error", err)
			}
			rl.logger.Warn("ip blocked for excessive requests", "ip", ip, "count", count)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeJSONError(w, http.StatusTooManyRequests, "Límite de solicitudes excedido. Intente más tarde.")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.max, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(rl.max-count, 10))
		next.ServeHTTP(w, r)
	})
}
