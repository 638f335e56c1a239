package httpkit

import (
	"net/http"
	"sync"
	"time"

	"gigportal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestID assigns a request ID to every request and echoes it in the
// X-Request-ID response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set(string(logger.RequestIDKey), requestID)
		c.Next()
	}
}

// RequestLogger logs every request with latency using the structured logger.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.HTTPRequest(
			c.Request.Method,
			c.FullPath(),
			c.Writer.Status(),
			float64(time.Since(start).Microseconds())/1000.0,
			c.ClientIP(),
		)
	}
}

// RateLimiter applies a per-client-IP token bucket limit.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
	log      *logger.Logger
	lastSeen map[string]time.Time
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// with the given burst per client IP.
func NewRateLimiter(rps float64, burst int, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rps:      rate.Limit(rps),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Opportunistic cleanup of stale entries
	if len(rl.clients) > 10000 {
		cutoff := time.Now().Add(-10 * time.Minute)
		for k, seen := range rl.lastSeen {
			if seen.Before(cutoff) {
				delete(rl.clients, k)
				delete(rl.lastSeen, k)
			}
		}
	}

	lim, ok := rl.clients[ip]
	if !ok {
		lim = rate.NewLimiter(rl.rps, rl.burst)
		rl.clients[ip] = lim
	}
	rl.lastSeen[ip] = time.Now()
	return lim
}

// Middleware returns the gin middleware enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			rl.log.RateLimitExceeded(c.ClientIP(), c.FullPath())
			Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
