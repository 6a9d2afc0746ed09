package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/tnptm/next-djchat/internal/errors"
	"github.com/tnptm/next-djchat/internal/httputil"
)

// limiterStore holds keyed rate limiters and evicts the ones left idle.
type limiterStore struct {
	limiters sync.Map // map[string]*limiterEntry
	rps      float64
	burst    int
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

func newLimiterStore(ctx context.Context, rps float64, burst int) *limiterStore {
	store := &limiterStore{rps: rps, burst: burst}
	go store.cleanupStale(ctx, 5*time.Minute, time.Hour)
	return store
}

func (s *limiterStore) get(key string) *rate.Limiter {
	if val, ok := s.limiters.Load(key); ok {
		entry := val.(*limiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &limiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: time.Now(),
	}
	actual, _ := s.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry).limiter
}

func (s *limiterStore) cleanupStale(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle(time.Now().Add(-maxIdle))
		}
	}
}

func (s *limiterStore) evictIdle(threshold time.Time) {
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*limiterEntry)
		entry.mu.Lock()
		idle := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if idle {
			s.limiters.Delete(key)
		}
		return true
	})
}

// allow writes a 429 with Retry-After and aborts when the limiter is exhausted.
func allow(c *gin.Context, limiter *rate.Limiter) bool {
	if limiter.Allow() {
		return true
	}

	reservation := limiter.Reserve()
	retryAfter := int(reservation.Delay().Seconds())
	reservation.Cancel()

	c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
	c.JSON(http.StatusTooManyRequests, httputil.ErrorResponse{
		Error:   "rate_limit_exceeded",
		Message: "Too many requests. Please retry after the specified delay.",
	})
	c.Abort()
	return false
}

// RateLimitMiddleware enforces per-principal rate limiting on authenticated requests.
//
// MUST be used after AuthenticationMiddleware. Limiters idle for an hour are evicted;
// the eviction goroutine stops when ctx is done.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newLimiterStore(ctx, rps, burst)

	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok {
			logger.Error("rate limit middleware: no authenticated principal in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !allow(c, store.get(principal.ID.String())) {
			logger.Debug("rate limit exceeded", slog.String("user_id", principal.ID.String()))
			return
		}
		c.Next()
	}
}

// IPRateLimitMiddleware enforces per-IP rate limiting on endpoints reached before
// authentication, such as the websocket handshake.
func IPRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newLimiterStore(ctx, rps, burst)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allow(c, store.get(clientIP)) {
			logger.Debug("rate limit exceeded", slog.String("client_ip", clientIP))
			return
		}
		c.Next()
	}
}
