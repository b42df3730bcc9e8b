package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmn-raj/seo-tool/config"
	"github.com/rmn-raj/seo-tool/models"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = time.Hour
	limiterSweepTick = 5 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
}

func (cl *clientLimiters) get(ip string, now time.Time) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	e, ok := cl.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (cl *clientLimiters) sweep(cutoff time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for ip, e := range cl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(cl.entries, ip)
		}
	}
}

// RateLimit returns per-client-IP token-bucket rate limiting middleware.
// Buckets idle for an hour are evicted until ctx is done.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	cl := &clientLimiters{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}

	go func() {
		ticker := time.NewTicker(limiterSweepTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				cl.sweep(now.Add(-limiterIdleTTL))
			}
		}
	}()

	retryAfter := strconv.Itoa(int(math.Ceil(1 / math.Max(cfg.RequestsPerSecond, 0.001))))

	return func(c *gin.Context) {
		if !cl.get(c.ClientIP(), time.Now()).Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.AnalyzeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}
		c.Next()
	}
}
