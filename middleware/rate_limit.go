package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"goblog/config"
	"goblog/utils"
)

// Per-client token buckets protect the credential endpoints (register,
// token, refresh) from brute forcing. Idle buckets are dropped after a
// few minutes so the map does not grow with every visitor seen.

const limiterIdleTTL = 5 * time.Minute

type clientLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

var (
	clients   = map[string]*clientLimiter{}
	clientsMu sync.Mutex
)

// RateLimitMiddleware limits each client IP to the configured requests per minute.
func RateLimitMiddleware() gin.HandlerFunc {
	perMinute := config.Get().RateLimitPerMinute
	if perMinute < 1 {
		perMinute = 1
	}
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	burst := perMinute/2 + 1

	return func(ctx *gin.Context) {
		if !allow(ctx.ClientIP(), limit, burst) {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func allow(ip string, limit rate.Limit, burst int) bool {
	clientsMu.Lock()
	defer clientsMu.Unlock()

	now := time.Now()
	for key, cl := range clients {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(clients, key)
		}
	}

	cl, ok := clients[ip]
	if !ok {
		cl = &clientLimiter{bucket: rate.NewLimiter(limit, burst)}
		clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.bucket.Allow()
}
